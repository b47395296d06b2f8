package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatencyMiddlewareUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	r := chi.NewRouter()
	r.Use(LatencyMiddleware(m))
	r.Get("/agencies/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/agencies/abc", nil))

	count, err := testutil.GatherAndCount(reg, "agencyhub_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncTxRetry()
		m.AddOutboxRelayed(3)
		m.IncStatsLookup("hit")
	})
}

func TestCounters(t *testing.T) {
	m := New(nil)
	m.AddOutboxRelayed(2)
	m.IncStatsLookup("miss")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OutboxRelayed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatsLookups.WithLabelValues("miss")))
}
