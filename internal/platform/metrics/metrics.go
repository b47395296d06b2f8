package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics holds the infrastructure metrics shared across modules: HTTP
// latency, transaction retries, the outbox relay and the stats cache.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	TxRetries       prometheus.Counter
	OutboxRelayed   prometheus.Counter
	OutboxFailures  prometheus.Counter
	OutboxLag       prometheus.Gauge
	StatsLookups    *prometheus.CounterVec
}

// New registers the metrics with reg. A nil registerer creates unregistered
// collectors, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agencyhub_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status",
			Buckets: latencyBuckets,
		}, []string{"method", "route", "status"}),
		TxRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "agencyhub_tx_retries_total",
			Help: "Transactions retried after a transient store failure",
		}),
		OutboxRelayed: f.NewCounter(prometheus.CounterOpts{
			Name: "agencyhub_outbox_relayed_total",
			Help: "Outbox entries published to Kafka",
		}),
		OutboxFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "agencyhub_outbox_relay_failures_total",
			Help: "Outbox relay batches that failed to publish",
		}),
		OutboxLag: f.NewGauge(prometheus.GaugeOpts{
			Name: "agencyhub_outbox_pending",
			Help: "Unpublished outbox entries seen by the last relay pass",
		}),
		StatsLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agencyhub_stats_lookups_total",
			Help: "Recruiter stats lookups by outcome (hit, miss, error, open)",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncTxRetry() {
	if m != nil {
		m.TxRetries.Inc()
	}
}

func (m *Metrics) AddOutboxRelayed(n int) {
	if m != nil {
		m.OutboxRelayed.Add(float64(n))
	}
}

func (m *Metrics) IncOutboxFailure() {
	if m != nil {
		m.OutboxFailures.Inc()
	}
}

func (m *Metrics) SetOutboxLag(n int) {
	if m != nil {
		m.OutboxLag.Set(float64(n))
	}
}

func (m *Metrics) IncStatsLookup(outcome string) {
	if m != nil {
		m.StatsLookups.WithLabelValues(outcome).Inc()
	}
}

// LatencyMiddleware records request latency labelled by chi route pattern,
// so ids in the path do not blow up cardinality.
func LatencyMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.RequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
		})
	}
}
