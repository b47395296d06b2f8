package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers the agency registry and the discovery read path.
type Metrics struct {
	AgenciesCreated   prometheus.Counter
	AgenciesDeleted   *prometheus.CounterVec
	CascadeRows       prometheus.Histogram
	DiscoveryDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AgenciesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "agencyhub_agencies_created_total",
			Help: "Agencies created",
		}),
		AgenciesDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agencyhub_agencies_deleted_total",
			Help: "Agencies deleted, by path (owner or admin)",
		}, []string{"path"}),
		CascadeRows: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "agencyhub_agency_cascade_rows",
			Help:    "Dependent rows removed by one agency deletion",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		DiscoveryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "agencyhub_discovery_duration_seconds",
			Help:    "Duration of discovery listing reads",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncCreated() {
	if m != nil {
		m.AgenciesCreated.Inc()
	}
}

func (m *Metrics) IncDeleted(path string, rows int) {
	if m != nil {
		m.AgenciesDeleted.WithLabelValues(path).Inc()
		m.CascadeRows.Observe(float64(rows))
	}
}

func (m *Metrics) ObserveDiscovery(start time.Time) {
	if m != nil {
		m.DiscoveryDuration.Observe(time.Since(start).Seconds())
	}
}
