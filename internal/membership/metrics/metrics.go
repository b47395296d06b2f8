package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks ledger transitions and operation latency.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agencyhub_membership_transitions_total",
			Help: "Membership ledger transitions by kind",
		}, []string{"transition"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agencyhub_membership_operation_duration_seconds",
			Help:    "Duration of membership ledger operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

// IncTransition counts one committed transition.
func (m *Metrics) IncTransition(transition string) {
	if m != nil {
		m.Transitions.WithLabelValues(transition).Inc()
	}
}

// Observe records the duration of operation since start.
func (m *Metrics) Observe(operation string, start time.Time) {
	if m != nil {
		m.Duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
