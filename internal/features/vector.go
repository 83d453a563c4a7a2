package features

import (
	"errors"
	"fmt"
)

// ErrUnknownFeature is returned when a feature name is not part of the schema
var ErrUnknownFeature = errors.New("unknown feature")

// MaxLinkMismatch caps the link_mismatch feature
const MaxLinkMismatch = 5

// MaxSpamScore caps the spam_score feature
const MaxSpamScore = 50.0

// Vector is the fixed feature schema consumed by classifiers.
//
// Field order is the wire order: JSON encoding, Names and Values all follow the
// declaration below. Boolean signals are stored as 0 or 1. Adding, removing or
// reordering a field invalidates every model trained on earlier vectors.
type Vector struct {
	SuspiciousKeywordsCount int     `json:"suspicious_keywords_count"`
	UrgentLanguage          int     `json:"urgent_language"`
	URLCount                int     `json:"url_count"`
	SuspiciousURLs          int     `json:"suspicious_urls"`
	HasHTML                 int     `json:"has_html"`
	LinkCount               int     `json:"link_count"`
	AvgURLLength            float64 `json:"avg_url_length"`
	IPInURL                 int     `json:"ip_in_url"`
	SubjectLength           int     `json:"subject_length"`
	ContentLength           int     `json:"content_length"`
	UppercaseRatio          float64 `json:"uppercase_ratio"`
	AttachmentMention       int     `json:"attachment_mention"`
	LinkMismatch            int     `json:"link_mismatch"`
	ExclamationCount        int     `json:"exclamation_count"`
	IsCommonDomain          int     `json:"is_common_domain"`
	HasForm                 int     `json:"has_form"`
	ImageCount              int     `json:"image_count"`
	SpamScore               float64 `json:"spam_score"`
}

var featureNames = [...]string{
	"suspicious_keywords_count",
	"urgent_language",
	"url_count",
	"suspicious_urls",
	"has_html",
	"link_count",
	"avg_url_length",
	"ip_in_url",
	"subject_length",
	"content_length",
	"uppercase_ratio",
	"attachment_mention",
	"link_mismatch",
	"exclamation_count",
	"is_common_domain",
	"has_form",
	"image_count",
	"spam_score",
}

var featureIndex = func() map[string]int {
	idx := make(map[string]int, len(featureNames))
	for i, name := range featureNames {
		idx[name] = i
	}
	return idx
}()

// Names returns the feature names in schema order
func Names() []string {
	return append([]string(nil), featureNames[:]...)
}

// Len is the number of features in the schema
func Len() int {
	return len(featureNames)
}

// Values returns the feature values in schema order
func (v Vector) Values() []float64 {
	return []float64{
		float64(v.SuspiciousKeywordsCount),
		float64(v.UrgentLanguage),
		float64(v.URLCount),
		float64(v.SuspiciousURLs),
		float64(v.HasHTML),
		float64(v.LinkCount),
		v.AvgURLLength,
		float64(v.IPInURL),
		float64(v.SubjectLength),
		float64(v.ContentLength),
		v.UppercaseRatio,
		float64(v.AttachmentMention),
		float64(v.LinkMismatch),
		float64(v.ExclamationCount),
		float64(v.IsCommonDomain),
		float64(v.HasForm),
		float64(v.ImageCount),
		v.SpamScore,
	}
}

// Get returns the value of a single feature
func (v Vector) Get(name string) (float64, bool) {
	i, ok := featureIndex[name]
	if !ok {
		return 0, false
	}
	return v.Values()[i], true
}

// Reindex returns the values arranged in the given order. Every name must be
// part of the schema; unknown names are an error rather than a silent zero.
func (v Vector) Reindex(order []string) ([]float64, error) {
	values := v.Values()
	out := make([]float64, len(order))
	for i, name := range order {
		j, ok := featureIndex[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
		}
		out[i] = values[j]
	}
	return out, nil
}

// Map returns the vector as a name to value map
func (v Vector) Map() map[string]float64 {
	values := v.Values()
	m := make(map[string]float64, len(values))
	for i, name := range featureNames {
		m[name] = values[i]
	}
	return m
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
