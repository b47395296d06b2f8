package main

import (
	"context"
	"database/sql"
	"log/slog"

	agencyservice "agencyhub/internal/agency/service"
	agencystore "agencyhub/internal/agency/store"
	appservice "agencyhub/internal/application/service"
	appstore "agencyhub/internal/application/store"
	"agencyhub/internal/membership/access"
	membershipservice "agencyhub/internal/membership/service"
	membershipstore "agencyhub/internal/membership/store"
	"agencyhub/internal/platform/config"
	"agencyhub/internal/platform/metrics"
	"agencyhub/internal/platform/postgres"
	recruiterservice "agencyhub/internal/recruiter/service"
	recruiterstore "agencyhub/internal/recruiter/store"
	teamservice "agencyhub/internal/team/service"
	teamstore "agencyhub/internal/team/store"
	"agencyhub/pkg/platform/audit"
	auditmemory "agencyhub/pkg/platform/audit/store/memory"
	auditpostgres "agencyhub/pkg/platform/audit/store/postgres"
	txcontext "agencyhub/pkg/platform/tx"
)

// Each store backs several services; these unions name everything one
// implementation has to provide.
type (
	recruiterBackend interface {
		recruiterservice.Store
		agencyservice.RecruiterReader
		membershipservice.RecruiterDirectory
		appservice.RecruiterReader
	}
	agencyBackend interface {
		agencyservice.AgencyStore
		recruiterservice.OwnershipCounter
		membershipservice.AgencyReader
		appservice.AgencyReader
		teamservice.AgencyReader
	}
	membershipBackend interface {
		membershipservice.Store
		agencyservice.MembershipStore
		teamservice.MembershipStore
		recruiterservice.MembershipPurger
		access.MembershipFinder
	}
	teamBackend interface {
		teamservice.Store
		agencyservice.TeamStore
		membershipservice.TeamReader
	}
	applicationBackend interface {
		appservice.Store
		agencyservice.ApplicationStore
		recruiterservice.ApplicationPurger
	}
)

type backend struct {
	db           *sql.DB
	tx           txcontext.Runner
	recruiters   recruiterBackend
	agencies     agencyBackend
	memberships  membershipBackend
	teams        teamBackend
	applications applicationBackend
	audit        audit.Store
}

// openBackend picks Postgres when DATABASE_URL is set and the in-memory
// stores otherwise.
func openBackend(ctx context.Context, cfg config.DatabaseConfig, m *metrics.Metrics, logger *slog.Logger) (*backend, error) {
	if cfg.URL == "" {
		logger.WarnContext(ctx, "DATABASE_URL not set, using in-memory stores")
		return &backend{
			tx:           txcontext.NewInMemory(),
			recruiters:   recruiterstore.NewInMemory(),
			agencies:     agencystore.NewInMemory(),
			memberships:  membershipstore.NewInMemory(),
			teams:        teamstore.NewInMemory(),
			applications: appstore.NewInMemory(),
			audit:        auditmemory.NewInMemoryStore(),
		}, nil
	}

	db, err := postgres.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &backend{
		db: db,
		tx: postgres.NewTxRunner(db,
			postgres.WithTxTimeout(cfg.TxTimeout),
			postgres.WithMaxRetries(cfg.TxMaxRetries),
			postgres.WithTxLogger(logger),
			postgres.WithRetryObserver(m)),
		recruiters:   recruiterstore.NewPostgres(db),
		agencies:     agencystore.NewPostgres(db),
		memberships:  membershipstore.NewPostgres(db),
		teams:        teamstore.NewPostgres(db),
		applications: appstore.NewPostgres(db),
		audit:        auditpostgres.New(db),
	}, nil
}

func (b *backend) health(ctx context.Context) error {
	if b.db == nil {
		return nil
	}
	return b.db.PingContext(ctx)
}

func (b *backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}
