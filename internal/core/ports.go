package core

import (
	"context"
	"time"

	"github.com/mikey/phishing-detector/internal/features"
)

// Classifier maps an extracted feature vector to a phishing probability
type Classifier interface {
	// Predict classifies an email given its feature vector
	Predict(ctx context.Context, email *Email, vector features.Vector) (*Prediction, error)
}

// CacheRepository defines the interface for caching detection verdicts
type CacheRepository interface {
	// Get retrieves a cached entry for a fingerprint
	Get(ctx context.Context, fingerprint string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, fingerprint string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// MetricsRecorder receives detection telemetry
type MetricsRecorder interface {
	ObserveExtraction(d time.Duration)
	RecordCacheLookup(hit bool)
	RecordDetection(result *DetectionResult)
}

type nopRecorder struct{}

func (nopRecorder) ObserveExtraction(time.Duration)  {}
func (nopRecorder) RecordCacheLookup(bool)           {}
func (nopRecorder) RecordDetection(*DetectionResult) {}
