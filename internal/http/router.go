// Package httpapi assembles the chi router from the module handlers.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agencyhub/internal/platform/metrics"
	"agencyhub/pkg/platform/httputil"
	"agencyhub/pkg/platform/middleware/metadata"
	request "agencyhub/pkg/platform/middleware/request"
	"agencyhub/pkg/platform/middleware/requesttime"
)

// Registrar is implemented by every module handler.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// AgencyRoutes also owns the public discovery and platform-admin routes.
type AgencyRoutes interface {
	Registrar
	RegisterPublic(r chi.Router)
	RegisterAdmin(r chi.Router)
}

type Config struct {
	Agencies     AgencyRoutes
	Modules      []Registrar
	RequireAuth  func(http.Handler) http.Handler
	RequireAdmin func(http.Handler) http.Handler
	Health       map[string]HealthCheck
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer
	Logger       *slog.Logger
	Timeout      time.Duration
}

func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.Logger(cfg.Logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	if cfg.Timeout > 0 {
		r.Use(request.Timeout(cfg.Timeout))
	}
	r.Use(metrics.LatencyMiddleware(cfg.Metrics))

	r.Get("/health", healthHandler(cfg.Health))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(request.ContentTypeJSON)
		cfg.Agencies.RegisterPublic(r)

		r.Group(func(r chi.Router) {
			r.Use(cfg.RequireAuth)
			cfg.Agencies.Register(r)
			for _, m := range cfg.Modules {
				m.Register(r)
			}
		})

		if cfg.RequireAdmin != nil {
			r.Group(func(r chi.Router) {
				r.Use(cfg.RequireAdmin)
				cfg.Agencies.RegisterAdmin(r)
			})
		}
	})
	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
				continue
			}
			body[name] = "ok"
		}
		httputil.WriteJSON(w, status, body)
	}
}
