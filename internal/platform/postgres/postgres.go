// Package postgres opens the relational store, applies the embedded schema
// and provides the transaction runner the services use for every mutation.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/lib/pq"              // registers the "postgres" driver

	"agencyhub/internal/platform/config"
)

const (
	initialConnectInterval = 250 * time.Millisecond
	maxConnectInterval     = 5 * time.Second
)

// Open connects to Postgres with the configured driver and retries the first
// ping with exponential backoff until cfg.ConnectTimeout elapses.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	driver := cfg.Driver
	switch driver {
	case "", "postgres":
		driver = "postgres"
	case "pgx":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sql.Open(driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialConnectInterval
	bo.MaxInterval = maxConnectInterval
	bo.MaxElapsedTime = cfg.ConnectTimeout

	err = backoff.RetryNotify(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		logger.WarnContext(ctx, "database not ready, retrying",
			"error", err,
			"retry_in", next.String(),
		)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}
