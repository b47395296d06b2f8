package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	agencymodels "agencyhub/internal/agency/models"
	appmetrics "agencyhub/internal/application/metrics"
	"agencyhub/internal/application/models"
	"agencyhub/internal/membership/access"
	membershipmodels "agencyhub/internal/membership/models"
	"agencyhub/internal/platform/tracing"
	recruitermodels "agencyhub/internal/recruiter/models"
	"agencyhub/internal/stats"
	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
	"agencyhub/pkg/platform/audit"
	"agencyhub/pkg/platform/sentinel"
	txcontext "agencyhub/pkg/platform/tx"
)

type Store interface {
	Create(ctx context.Context, a *models.Application) error
	FindByID(ctx context.Context, applicationID id.ApplicationID) (*models.Application, error)
	FindForUpdate(ctx context.Context, applicationID id.ApplicationID) (*models.Application, error)
	Resolve(ctx context.Context, a *models.Application) error
	ListPendingByAgency(ctx context.Context, agencyID id.AgencyID) ([]*models.Application, error)
	ListByRecruiter(ctx context.Context, recruiterID id.RecruiterID) ([]*models.Application, error)
}

type AgencyReader interface {
	FindByID(ctx context.Context, agencyID id.AgencyID) (*agencymodels.Agency, error)
}

type RecruiterReader interface {
	FindByID(ctx context.Context, recruiterID id.RecruiterID) (*recruitermodels.Recruiter, error)
}

// Ledger admits an accepted applicant as an active member.
type Ledger interface {
	Admit(ctx context.Context, agencyID id.AgencyID, recruiterID id.RecruiterID) (*membershipmodels.Membership, error)
}

const (
	defaultEnrichConcurrency = 8
	defaultStatsTimeout      = 2 * time.Second
)

// Service is the application queue. Accepting promotes the applicant into
// the ledger through the invite path in the same transaction.
type Service struct {
	applications Store
	agencies     AgencyReader
	recruiters   RecruiterReader
	memberships  access.MembershipFinder
	ledger       Ledger
	stats        stats.Provider
	access       *access.Resolver
	tx           txcontext.Runner
	audit        *audit.Emitter
	logger       *slog.Logger
	metrics      *appmetrics.Metrics
	tracer       trace.Tracer
	concurrency  int
	statsTimeout time.Duration
}

type config struct {
	logger       *slog.Logger
	publisher    audit.EventPublisher
	metrics      *appmetrics.Metrics
	tx           txcontext.Runner
	stats        stats.Provider
	concurrency  int
	statsTimeout time.Duration
}

type Option func(*config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

func WithAuditPublisher(publisher audit.EventPublisher) Option {
	return func(c *config) { c.publisher = publisher }
}

func WithMetrics(m *appmetrics.Metrics) Option {
	return func(c *config) { c.metrics = m }
}

func WithTx(runner txcontext.Runner) Option {
	return func(c *config) { c.tx = runner }
}

// WithStats sets the stats collaborator used to enrich the pending queue.
func WithStats(p stats.Provider) Option {
	return func(c *config) { c.stats = p }
}

// WithEnrichment bounds enrichment fan-out and the per-lookup stats timeout.
func WithEnrichment(concurrency int, statsTimeout time.Duration) Option {
	return func(c *config) {
		c.concurrency = concurrency
		c.statsTimeout = statsTimeout
	}
}

func New(applications Store, agencies AgencyReader, recruiters RecruiterReader, memberships access.MembershipFinder, ledger Ledger, opts ...Option) *Service {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.tx == nil {
		cfg.tx = txcontext.NewInMemory()
	}
	if cfg.stats == nil {
		cfg.stats = stats.Noop{}
	}
	if cfg.concurrency <= 0 {
		cfg.concurrency = defaultEnrichConcurrency
	}
	if cfg.statsTimeout <= 0 {
		cfg.statsTimeout = defaultStatsTimeout
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		applications: applications,
		agencies:     agencies,
		recruiters:   recruiters,
		memberships:  memberships,
		ledger:       ledger,
		stats:        cfg.stats,
		access:       access.NewResolver(memberships),
		tx:           cfg.tx,
		audit:        audit.NewEmitter(cfg.logger, cfg.publisher),
		logger:       logger,
		metrics:      cfg.metrics,
		tracer:       tracing.Tracer("application"),
		concurrency:  cfg.concurrency,
		statsTimeout: cfg.statsTimeout,
	}
}

func wrapErr(err error, entity string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, entity+" not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "a pending application already exists for this agency")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, entity+" is already resolved")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access "+entity)
	}
}
