package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the authorization module. The decisions
// counter labeled by result is the live counterpart of the (result,
// created_at) index used for denial-rate monitoring.
type Metrics struct {
	Decisions          *prometheus.CounterVec
	AuditWriteFailures prometheus.Counter
	DecisionsRelayed   prometheus.Counter
	RelayFailures      prometheus.Counter
}

// New creates a Metrics instance with all authorization metrics registered
// on the default registry.
func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ctn_authorization_decisions_total",
			Help: "Authorization decisions by result",
		}, []string{"result"}),
		AuditWriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ctn_authorization_audit_write_failures_total",
			Help: "Decision-record writes that failed and forced a closed denial",
		}),
		DecisionsRelayed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ctn_authorization_decisions_relayed_total",
			Help: "Decision records relayed to the event stream",
		}),
		RelayFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ctn_authorization_relay_failures_total",
			Help: "Relay batches that failed to produce",
		}),
	}
}

// IncDecision records a rendered decision by result.
func (m *Metrics) IncDecision(result string) {
	if m != nil {
		m.Decisions.WithLabelValues(result).Inc()
	}
}

// IncAuditWriteFailure records a failed audit write.
func (m *Metrics) IncAuditWriteFailure() {
	if m != nil {
		m.AuditWriteFailures.Inc()
	}
}

// AddRelayed records decisions shipped by the relay.
func (m *Metrics) AddRelayed(n int) {
	if m != nil && n > 0 {
		m.DecisionsRelayed.Add(float64(n))
	}
}

// IncRelayFailure records a failed relay batch.
func (m *Metrics) IncRelayFailure() {
	if m != nil {
		m.RelayFailures.Inc()
	}
}
