// Package metrics provides Prometheus metrics for the portal.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "portal"

var (
	// UploadsTotal counts finished upload attempts by kind and outcome.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Total number of upload attempts by outcome",
		},
		[]string{"kind", "outcome"},
	)

	// UploadStepDuration measures how long a job spends in each step.
	UploadStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_step_duration_seconds",
			Help:      "Time spent in each upload step in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"step"},
	)

	// CompressionSavings observes the savings percentage of each compression.
	CompressionSavings = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compression_savings_percent",
			Help:      "Distribution of compression savings in percent",
			Buckets:   []float64{0, 10, 25, 50, 75, 90},
		},
	)

	// CompressionFallbacks counts compressions that fell back to the original.
	CompressionFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compression_fallbacks_total",
			Help:      "Total number of compressions that kept the original file",
		},
	)

	// SettingsLookups counts settings cache reads by source.
	SettingsLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settings_lookups_total",
			Help:      "Total number of settings reads by source (cache, network, stale, default)",
		},
		[]string{"source"},
	)

	// ErrorsTotal counts errors by operation.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of errors",
		},
		[]string{"operation", "error_type"},
	)
)

// RecordUpload records a finished upload attempt.
func RecordUpload(kind, outcome string) {
	UploadsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordStep records time spent in a tracker step.
func RecordStep(step string, d time.Duration) {
	UploadStepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// RecordCompression records a compression outcome.
func RecordCompression(savings int, fellBack bool) {
	if fellBack {
		CompressionFallbacks.Inc()
		return
	}
	CompressionSavings.Observe(float64(savings))
}

// RecordSettingsLookup records where a settings read was served from.
func RecordSettingsLookup(source string) {
	SettingsLookups.WithLabelValues(source).Inc()
}

// RecordError records an error.
func RecordError(operation, errorType string) {
	ErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
