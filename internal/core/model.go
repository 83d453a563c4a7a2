package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/mikey/phishing-detector/internal/features"
)

// Classifier labels
const (
	LabelLegitimate = 0
	LabelPhishing   = 1
)

// Email represents an email message
type Email struct {
	From    string
	To      []string
	Subject string
	Body    string
	Headers map[string][]string
}

// FeatureInput converts the email into the feature extractor input
func (e *Email) FeatureInput() features.Input {
	return features.Input{
		Subject: e.Subject,
		Body:    e.Body,
		From:    e.From,
		To:      strings.Join(e.To, ", "),
	}
}

// Fingerprint identifies the email content for caching
func (e *Email) Fingerprint() string {
	h := sha256.New()
	for _, part := range []string{e.From, strings.Join(e.To, ","), e.Subject, e.Body} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Prediction is the output of a classifier
type Prediction struct {
	Label                 int
	PhishingProbability   float64
	LegitimateProbability float64
	Explanation           string
	ModelUsed             string
}

// DetectionResult represents the result of phishing detection
type DetectionResult struct {
	IsPhishing            bool            `json:"is_phishing"`
	PhishingProbability   float64         `json:"phishing_probability"`
	LegitimateProbability float64         `json:"legitimate_probability"`
	Confidence            float64         `json:"confidence"`
	Explanation           string          `json:"explanation,omitempty"`
	ModelUsed             string          `json:"model_used"`
	ProcessingID          string          `json:"processing_id"`
	AnalyzedAt            time.Time       `json:"analyzed_at"`
	Cached                bool            `json:"cached"`
	Features              features.Vector `json:"features"`
}

// CacheEntry is a stored verdict keyed by email fingerprint
type CacheEntry struct {
	Fingerprint         string    `json:"fingerprint"`
	IsPhishing          bool      `json:"is_phishing"`
	PhishingProbability float64   `json:"phishing_probability"`
	ModelUsed           string    `json:"model_used"`
	LastSeen            time.Time `json:"last_seen"`
	ExpiresAt           time.Time `json:"expires_at"`
}
