// Package metrics exposes detection telemetry as Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/mikey/phishing-detector/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "phishing_detector"

// Recorder implements core.MetricsRecorder on a private registry
type Recorder struct {
	registry    *prometheus.Registry
	scanned     *prometheus.CounterVec
	cacheHits   *prometheus.CounterVec
	extraction  prometheus.Histogram
	probability prometheus.Histogram
}

// NewRecorder creates and registers the detection collectors
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		scanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_scanned_total",
			Help:      "Total number of emails classified",
		}, []string{"verdict", "model"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of verdict cache lookups",
		}, []string{"result"}),
		extraction: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feature_extraction_seconds",
			Help:      "Time spent extracting feature vectors",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
		}),
		probability: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phishing_probability",
			Help:      "Distribution of phishing probabilities",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
	}

	r.registry.MustRegister(
		r.scanned,
		r.cacheHits,
		r.extraction,
		r.probability,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveExtraction records the duration of one feature extraction
func (r *Recorder) ObserveExtraction(d time.Duration) {
	r.extraction.Observe(d.Seconds())
}

// RecordCacheLookup counts a cache hit or miss
func (r *Recorder) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheHits.WithLabelValues(result).Inc()
}

// RecordDetection counts a verdict
func (r *Recorder) RecordDetection(result *core.DetectionResult) {
	verdict := "legitimate"
	if result.IsPhishing {
		verdict = "phishing"
	}
	r.scanned.WithLabelValues(verdict, result.ModelUsed).Inc()
	r.probability.Observe(result.PhishingProbability)
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
