package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the report lifecycle.
type Metrics struct {
	Transitions        *prometheus.CounterVec
	ValidationDuration prometheus.Histogram
	SweepTimeouts      prometheus.Counter
	AuditDropped       prometheus.Counter
}

// New registers lifecycle metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "regportal_report_transitions_total",
			Help: "Report lifecycle transitions by resulting status",
		}, []string{"status"}),
		ValidationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "regportal_validation_duration_seconds",
			Help:    "Time from submission to a recorded validation outcome",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		SweepTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "regportal_sweep_timeouts_total",
			Help: "Validation attempts timed out by the sweeper",
		}),
		AuditDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "regportal_audit_dropped_total",
			Help: "Audit events dropped because the buffer was full",
		}),
	}
}

// RecordTransition counts one transition into the given status.
func (m *Metrics) RecordTransition(status string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(status).Inc()
}
