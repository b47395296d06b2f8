package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	agencymetrics "agencyhub/internal/agency/metrics"
	"agencyhub/internal/agency/models"
	"agencyhub/internal/membership/access"
	membershipmodels "agencyhub/internal/membership/models"
	"agencyhub/internal/platform/tracing"
	recruitermodels "agencyhub/internal/recruiter/models"
	teammodels "agencyhub/internal/team/models"
	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
	"agencyhub/pkg/platform/audit"
	"agencyhub/pkg/platform/sentinel"
	txcontext "agencyhub/pkg/platform/tx"
)

type AgencyStore interface {
	Create(ctx context.Context, a *models.Agency) error
	FindByID(ctx context.Context, agencyID id.AgencyID) (*models.Agency, error)
	FindBySlug(ctx context.Context, slug string) (*models.Agency, error)
	Update(ctx context.Context, a *models.Agency) error
	Delete(ctx context.Context, agencyID id.AgencyID) error
	ListListed(ctx context.Context) ([]*models.Agency, error)
}

// MembershipStore is the slice of the ledger the registry writes: the owner
// row on create, bulk deletes on cascade and counts for discovery.
type MembershipStore interface {
	Create(ctx context.Context, m *membershipmodels.Membership) error
	FindByAgencyAndRecruiter(ctx context.Context, agencyID id.AgencyID, recruiterID id.RecruiterID) (*membershipmodels.Membership, error)
	ListByAgency(ctx context.Context, agencyID id.AgencyID) ([]*membershipmodels.Membership, error)
	DeleteByIDs(ctx context.Context, ids []id.MembershipID) (int, error)
	CountActiveByAgencies(ctx context.Context, agencyIDs []id.AgencyID) (map[id.AgencyID]int, error)
}

type TeamStore interface {
	ListByAgency(ctx context.Context, agencyID id.AgencyID) ([]*teammodels.Team, error)
	DeleteByIDs(ctx context.Context, ids []id.TeamID) (int, error)
}

type ApplicationStore interface {
	IDsByAgency(ctx context.Context, agencyID id.AgencyID) ([]id.ApplicationID, error)
	DeleteByIDs(ctx context.Context, ids []id.ApplicationID) (int, error)
}

type RecruiterReader interface {
	FindByID(ctx context.Context, recruiterID id.RecruiterID) (*recruitermodels.Recruiter, error)
}

// AuditReader lists the recorded audit trail of one agency.
type AuditReader interface {
	List(ctx context.Context, agencyID id.AgencyID) ([]audit.Event, error)
}

// Service is the agency registry plus the discovery view.
type Service struct {
	agencies     AgencyStore
	memberships  MembershipStore
	teams        TeamStore
	applications ApplicationStore
	recruiters   RecruiterReader
	auditReader  AuditReader
	access       *access.Resolver
	tx           txcontext.Runner
	audit        *audit.Emitter
	logger       *slog.Logger
	metrics      *agencymetrics.Metrics
	tracer       trace.Tracer
}

type config struct {
	logger      *slog.Logger
	publisher   audit.EventPublisher
	auditReader AuditReader
	metrics     *agencymetrics.Metrics
	tx          txcontext.Runner
}

type Option func(*config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

func WithAuditPublisher(publisher audit.EventPublisher) Option {
	return func(c *config) { c.publisher = publisher }
}

// WithAuditReader enables the audit trail read.
func WithAuditReader(reader AuditReader) Option {
	return func(c *config) { c.auditReader = reader }
}

func WithMetrics(m *agencymetrics.Metrics) Option {
	return func(c *config) { c.metrics = m }
}

func WithTx(runner txcontext.Runner) Option {
	return func(c *config) { c.tx = runner }
}

func New(agencies AgencyStore, memberships MembershipStore, teams TeamStore, applications ApplicationStore, recruiters RecruiterReader, opts ...Option) *Service {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.tx == nil {
		cfg.tx = txcontext.NewInMemory()
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		agencies:     agencies,
		memberships:  memberships,
		teams:        teams,
		applications: applications,
		recruiters:   recruiters,
		auditReader:  cfg.auditReader,
		access:       access.NewResolver(memberships),
		tx:           cfg.tx,
		audit:        audit.NewEmitter(cfg.logger, cfg.publisher),
		logger:       logger,
		metrics:      cfg.metrics,
		tracer:       tracing.Tracer("agency"),
	}
}

func (s *Service) load(ctx context.Context, agencyID id.AgencyID) (*models.Agency, error) {
	a, err := s.agencies.FindByID(ctx, agencyID)
	if err != nil {
		return nil, wrapAgencyErr(err)
	}
	return a, nil
}

func wrapAgencyErr(err error) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "agency not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "slug is already taken")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access agency")
	}
}
