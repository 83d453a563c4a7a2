package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/phishing-detector/internal/features"
	"github.com/mikey/phishing-detector/internal/whitelist"
	"go.uber.org/zap"
)

var (
	// ErrContentRequired is returned when an email has no body
	ErrContentRequired = errors.New("content required")
	// ErrModelUnavailable is returned when no trained classifier is loaded
	ErrModelUnavailable = errors.New("model unavailable")
)

// DetectionConfig holds the tunables of the detection service
type DetectionConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	// Threshold is the phishing probability at or above which filters act
	Threshold float64
}

// DetectionService is the core service for phishing detection
type DetectionService struct {
	classifier Classifier
	cache      CacheRepository
	trusted    *whitelist.Checker
	metrics    MetricsRecorder
	logger     *zap.Logger
	cfg        DetectionConfig
}

// NewDetectionService creates a new detection service. classifier may be nil
// when no model is loaded; Detect then fails with ErrModelUnavailable.
func NewDetectionService(
	classifier Classifier,
	cache CacheRepository,
	trusted *whitelist.Checker,
	metrics MetricsRecorder,
	logger *zap.Logger,
	cfg DetectionConfig,
) *DetectionService {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if cache == nil {
		cfg.CacheEnabled = false
	}
	return &DetectionService{
		classifier: classifier,
		cache:      cache,
		trusted:    trusted,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// ModelAvailable reports whether a classifier is loaded
func (s *DetectionService) ModelAvailable() bool {
	return s.classifier != nil
}

// ExtractFeatures runs the feature extractor without classification
func (s *DetectionService) ExtractFeatures(email *Email) features.Vector {
	start := time.Now()
	v := features.Extract(email.FeatureInput())
	s.metrics.ObserveExtraction(time.Since(start))
	return v
}

// Detect classifies an email as phishing or legitimate
func (s *DetectionService) Detect(ctx context.Context, email *Email) (*DetectionResult, error) {
	if email == nil || email.Body == "" {
		return nil, ErrContentRequired
	}

	vector := s.ExtractFeatures(email)

	// Trusted senders bypass the classifier
	if s.trusted.IsWhitelisted(email.From) {
		s.logger.Info("Skipping phishing check for trusted domain",
			zap.String("sender", email.From),
			zap.String("action", "whitelist_bypass"))

		result := &DetectionResult{
			IsPhishing:            false,
			PhishingProbability:   0,
			LegitimateProbability: 1,
			Confidence:            1,
			Explanation:           "Sender domain is trusted",
			ModelUsed:             "whitelist",
			ProcessingID:          uuid.NewString(),
			AnalyzedAt:            time.Now(),
			Features:              vector,
		}
		s.metrics.RecordDetection(result)
		return result, nil
	}

	if s.classifier == nil {
		return nil, ErrModelUnavailable
	}

	// Check cache if enabled
	fingerprint := email.Fingerprint()
	if s.cfg.CacheEnabled {
		entry, err := s.cache.Get(ctx, fingerprint)
		s.metrics.RecordCacheLookup(err == nil)
		if err == nil {
			s.logger.Debug("Cache hit for message", zap.String("fingerprint", fingerprint))
			result := &DetectionResult{
				IsPhishing:            entry.IsPhishing,
				PhishingProbability:   entry.PhishingProbability,
				LegitimateProbability: 1 - entry.PhishingProbability,
				Confidence:            confidence(entry.PhishingProbability),
				Explanation:           "Result from cache",
				ModelUsed:             entry.ModelUsed,
				ProcessingID:          uuid.NewString(),
				AnalyzedAt:            time.Now(),
				Cached:                true,
				Features:              vector,
			}
			s.metrics.RecordDetection(result)
			return result, nil
		}
	}

	prediction, err := s.classifier.Predict(ctx, email, vector)
	if err != nil {
		return nil, fmt.Errorf("failed to classify email: %w", err)
	}

	result := &DetectionResult{
		IsPhishing:            prediction.Label == LabelPhishing,
		PhishingProbability:   prediction.PhishingProbability,
		LegitimateProbability: prediction.LegitimateProbability,
		Confidence:            confidence(prediction.PhishingProbability),
		Explanation:           prediction.Explanation,
		ModelUsed:             prediction.ModelUsed,
		ProcessingID:          uuid.NewString(),
		AnalyzedAt:            time.Now(),
		Features:              vector,
	}

	// Update cache with result if enabled
	if s.cfg.CacheEnabled {
		now := time.Now()
		entry := &CacheEntry{
			Fingerprint:         fingerprint,
			IsPhishing:          result.IsPhishing,
			PhishingProbability: result.PhishingProbability,
			ModelUsed:           result.ModelUsed,
			LastSeen:            now,
			ExpiresAt:           now.Add(s.cfg.CacheTTL),
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.logger.Error("Failed to update cache", zap.Error(err))
		}
	}

	s.metrics.RecordDetection(result)
	return result, nil
}

// ShouldAct determines if a result crosses the configured threshold
func (s *DetectionService) ShouldAct(result *DetectionResult) bool {
	return result.PhishingProbability >= s.cfg.Threshold
}

// Threshold returns the configured action threshold
func (s *DetectionService) Threshold() float64 {
	return s.cfg.Threshold
}

func confidence(p float64) float64 {
	return math.Max(p, 1-p)
}
