package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	agencyhandler "agencyhub/internal/agency/handler"
	agencymetrics "agencyhub/internal/agency/metrics"
	agencyservice "agencyhub/internal/agency/service"
	apphandler "agencyhub/internal/application/handler"
	appmetrics "agencyhub/internal/application/metrics"
	appservice "agencyhub/internal/application/service"
	httpapi "agencyhub/internal/http"
	"agencyhub/internal/identity"
	membershiphandler "agencyhub/internal/membership/handler"
	membershipmetrics "agencyhub/internal/membership/metrics"
	membershipservice "agencyhub/internal/membership/service"
	"agencyhub/internal/outbox"
	"agencyhub/internal/platform/config"
	"agencyhub/internal/platform/httpserver"
	"agencyhub/internal/platform/kafka"
	"agencyhub/internal/platform/logger"
	"agencyhub/internal/platform/metrics"
	"agencyhub/internal/platform/redis"
	recruiterhandler "agencyhub/internal/recruiter/handler"
	recruiterservice "agencyhub/internal/recruiter/service"
	"agencyhub/internal/stats"
	teamhandler "agencyhub/internal/team/handler"
	teamservice "agencyhub/internal/team/service"
	"agencyhub/pkg/platform/audit"
	"agencyhub/pkg/platform/middleware/admin"
	"agencyhub/pkg/platform/middleware/auth"
)

const devSigningKey = "dev-secret-key-change-in-production"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "agencyhub: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if cfg.IsProduction() && cfg.Auth.JWTSigningKey == devSigningKey {
		return errors.New("JWT_SIGNING_KEY must be set in production")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	platformMetrics := metrics.New(reg)

	b, err := openBackend(ctx, cfg.Database, platformMetrics, log)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			log.Error("close database", "error", cerr)
		}
	}()

	health := map[string]httpapi.HealthCheck{"database": b.health}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		health["redis"] = redisClient.Health
	}

	statsProvider := newStatsProvider(cfg, redisClient, platformMetrics, log)
	publisher := audit.NewPublisher(b.audit)

	recruiters := recruiterservice.New(b.recruiters, b.agencies, b.memberships, b.applications,
		recruiterservice.WithLogger(log),
		recruiterservice.WithTx(b.tx))
	agencies := agencyservice.New(b.agencies, b.memberships, b.teams, b.applications, b.recruiters,
		agencyservice.WithLogger(log),
		agencyservice.WithAuditPublisher(publisher),
		agencyservice.WithAuditReader(publisher),
		agencyservice.WithMetrics(agencymetrics.New(reg)),
		agencyservice.WithTx(b.tx))
	teams := teamservice.New(b.teams, b.agencies, b.memberships,
		teamservice.WithLogger(log),
		teamservice.WithAuditPublisher(publisher),
		teamservice.WithTx(b.tx))
	memberships := membershipservice.New(b.memberships, b.agencies, b.recruiters, b.teams,
		membershipservice.WithLogger(log),
		membershipservice.WithAuditPublisher(publisher),
		membershipservice.WithMetrics(membershipmetrics.New(reg)),
		membershipservice.WithTx(b.tx))
	applications := appservice.New(b.applications, b.agencies, b.recruiters, b.memberships, memberships,
		appservice.WithLogger(log),
		appservice.WithAuditPublisher(publisher),
		appservice.WithMetrics(appmetrics.New(reg)),
		appservice.WithStats(statsProvider),
		appservice.WithTx(b.tx))

	validator := identity.NewValidator(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer)

	var requireAdmin func(http.Handler) http.Handler
	if cfg.Auth.AdminTokenHash != "" {
		requireAdmin = admin.RequireAdminToken([]byte(cfg.Auth.AdminTokenHash), log)
	} else {
		log.Warn("ADMIN_TOKEN_HASH not set, admin routes disabled")
	}

	var producer *kafka.Client
	if len(cfg.Kafka.Brokers) > 0 {
		if b.db == nil {
			log.Warn("KAFKA_BROKERS set without DATABASE_URL, outbox relay disabled")
		} else {
			producer, err = kafka.New(ctx, cfg.Kafka, log)
			if err != nil {
				return fmt.Errorf("connect kafka: %w", err)
			}
			defer producer.Close()
			health["kafka"] = producer.Health
		}
	}

	router := httpapi.NewRouter(httpapi.Config{
		Agencies: agencyhandler.New(agencies, log),
		Modules: []httpapi.Registrar{
			recruiterhandler.New(recruiters, log),
			membershiphandler.New(memberships, log),
			teamhandler.New(teams, log),
			apphandler.New(applications, log),
		},
		RequireAuth:  auth.RequireAuth(validator, log),
		RequireAdmin: requireAdmin,
		Health:       health,
		Metrics:      platformMetrics,
		Gatherer:     reg,
		Logger:       log,
		Timeout:      cfg.RequestTimeout,
	})
	srv := httpserver.New(cfg.Addr, router, cfg.RequestTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting agencyhub", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if producer != nil {
		relay := outbox.NewRelay(outbox.NewPostgresStore(b.db), producer, b.tx,
			outbox.WithInterval(cfg.Kafka.RelayInterval),
			outbox.WithBatchSize(cfg.Kafka.RelayBatch),
			outbox.WithMetrics(platformMetrics),
			outbox.WithLogger(log))
		g.Go(func() error {
			if err := relay.Run(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// newStatsProvider returns the enrichment source: the HTTP collaborator,
// fronted by the Redis cache when one is configured.
func newStatsProvider(cfg config.Server, rc *redis.Client, m *metrics.Metrics, log *slog.Logger) stats.Provider {
	if cfg.Stats.URL == "" {
		return stats.Noop{}
	}
	client := stats.NewHTTPClient(cfg.Stats.URL, cfg.Stats.Timeout,
		stats.WithMetrics(m),
		stats.WithLogger(log),
		stats.WithFailureThreshold(cfg.Stats.FailureThreshold),
		stats.WithHTTPClient(&http.Client{Timeout: cfg.Stats.Timeout + time.Second}))
	if rc == nil {
		return client
	}
	return stats.NewCache(rc.Client, client, cfg.Stats.CacheTTL, m, log)
}
