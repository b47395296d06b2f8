package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers the application queue.
type Metrics struct {
	Outcomes           *prometheus.CounterVec
	EnrichmentDuration prometheus.Histogram
	EnrichmentFailures *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agencyhub_applications_total",
			Help: "Applications by lifecycle outcome (submitted, accepted, declined)",
		}, []string{"outcome"}),
		EnrichmentDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "agencyhub_application_enrichment_duration_seconds",
			Help:    "Time spent enriching the pending queue with profiles and stats",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		EnrichmentFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agencyhub_application_enrichment_failures_total",
			Help: "Best-effort enrichment lookups that failed, by source",
		}, []string{"source"}),
	}
}

func (m *Metrics) IncOutcome(outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveEnrichment(start time.Time) {
	if m != nil {
		m.EnrichmentDuration.Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) IncEnrichmentFailure(source string) {
	if m != nil {
		m.EnrichmentFailures.WithLabelValues(source).Inc()
	}
}
