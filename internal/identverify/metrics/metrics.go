package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the identifier verification module.
type Metrics struct {
	Outcomes               *prometheus.CounterVec
	RegistryLookupDuration prometheus.Histogram
	RegistryLookupFailures prometheus.Counter
	ValidationCacheHits    prometheus.Counter
}

// New creates a Metrics instance with all identifier verification metrics
// registered on the default registry.
func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ctn_identifier_verifications_total",
			Help: "Identifier verification cycles by resulting status",
		}, []string{"status"}),
		RegistryLookupDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ctn_registry_lookup_duration_seconds",
			Help:    "Duration of external business registry validation calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		RegistryLookupFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ctn_registry_lookup_failures_total",
			Help: "Registry validation calls that errored or timed out",
		}),
		ValidationCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ctn_registry_validation_cache_hits_total",
			Help: "Registry verdicts served from the validation cache",
		}),
	}
}

// IncOutcome records a completed verification cycle by status.
func (m *Metrics) IncOutcome(status string) {
	if m != nil {
		m.Outcomes.WithLabelValues(status).Inc()
	}
}

// ObserveRegistryLookup records the duration of a registry call.
func (m *Metrics) ObserveRegistryLookup(start time.Time) {
	if m != nil {
		m.RegistryLookupDuration.Observe(time.Since(start).Seconds())
	}
}

// IncRegistryFailure records a failed registry call.
func (m *Metrics) IncRegistryFailure() {
	if m != nil {
		m.RegistryLookupFailures.Inc()
	}
}

// IncCacheHit records a verdict served from cache.
func (m *Metrics) IncCacheHit() {
	if m != nil {
		m.ValidationCacheHits.Inc()
	}
}
