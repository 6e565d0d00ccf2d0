package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the domain verification module.
type Metrics struct {
	VerificationsRequested  prometheus.Counter
	AttemptOutcomes         *prometheus.CounterVec
	LookupDuration          prometheus.Histogram
	OrganizationsDowngraded prometheus.Counter
	TokensPruned            prometheus.Counter
}

// New creates a Metrics instance with all domain verification metrics
// registered on the default registry.
func New() *Metrics {
	return &Metrics{
		VerificationsRequested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ctn_dns_verifications_requested_total",
			Help: "Total number of DNS verification tokens issued",
		}),
		AttemptOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ctn_dns_verification_attempts_total",
			Help: "Verification attempts by outcome",
		}, []string{"outcome"}),
		LookupDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ctn_dns_lookup_duration_seconds",
			Help:    "Duration of TXT lookups during verification attempts",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		OrganizationsDowngraded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ctn_dns_reverification_downgrades_total",
			Help: "Organizations downgraded by the reverification sweep",
		}),
		TokensPruned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ctn_dns_tokens_pruned_total",
			Help: "Terminal tokens removed by the retention cleanup",
		}),
	}
}

// IncRequested records an issued verification token.
func (m *Metrics) IncRequested() {
	if m != nil {
		m.VerificationsRequested.Inc()
	}
}

// IncAttempt records an attempt outcome label (verified, pending, expired,
// failed, resolver_error).
func (m *Metrics) IncAttempt(outcome string) {
	if m != nil {
		m.AttemptOutcomes.WithLabelValues(outcome).Inc()
	}
}

// ObserveLookup records the duration of a TXT lookup.
func (m *Metrics) ObserveLookup(start time.Time) {
	if m != nil {
		m.LookupDuration.Observe(time.Since(start).Seconds())
	}
}

// AddDowngraded records organizations downgraded by a sweep run.
func (m *Metrics) AddDowngraded(n int) {
	if m != nil && n > 0 {
		m.OrganizationsDowngraded.Add(float64(n))
	}
}

// AddPruned records tokens removed by a cleanup run.
func (m *Metrics) AddPruned(n int) {
	if m != nil && n > 0 {
		m.TokensPruned.Add(float64(n))
	}
}
