package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	agencymodels "agencyhub/internal/agency/models"
	"agencyhub/internal/membership/access"
	membershipmetrics "agencyhub/internal/membership/metrics"
	"agencyhub/internal/membership/models"
	"agencyhub/internal/platform/tracing"
	recruitermodels "agencyhub/internal/recruiter/models"
	teammodels "agencyhub/internal/team/models"
	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
	"agencyhub/pkg/platform/audit"
	"agencyhub/pkg/platform/sentinel"
	txcontext "agencyhub/pkg/platform/tx"
)

type Store interface {
	Create(ctx context.Context, m *models.Membership) error
	FindByID(ctx context.Context, membershipID id.MembershipID) (*models.Membership, error)
	FindByAgencyAndRecruiter(ctx context.Context, agencyID id.AgencyID, recruiterID id.RecruiterID) (*models.Membership, error)
	ListByAgency(ctx context.Context, agencyID id.AgencyID) ([]*models.Membership, error)
	ListByRecruiter(ctx context.Context, recruiterID id.RecruiterID) ([]*models.Membership, error)
	FindForUpdate(ctx context.Context, membershipID id.MembershipID) (*models.Membership, error)
	UpdateStatus(ctx context.Context, m *models.Membership) error
	UpdateRole(ctx context.Context, m *models.Membership) error
	UpdateTeam(ctx context.Context, m *models.Membership) error
	Delete(ctx context.Context, membershipID id.MembershipID) error
	DeletePending(ctx context.Context, membershipID id.MembershipID) error
}

type AgencyReader interface {
	FindByID(ctx context.Context, agencyID id.AgencyID) (*agencymodels.Agency, error)
}

type RecruiterDirectory interface {
	FindByID(ctx context.Context, recruiterID id.RecruiterID) (*recruitermodels.Recruiter, error)
	FindByEmail(ctx context.Context, email string) (*recruitermodels.Recruiter, error)
}

type TeamReader interface {
	FindByID(ctx context.Context, teamID id.TeamID) (*teammodels.Team, error)
}

// Service is the membership ledger. Every mutation runs in one transaction
// and re-reads the caller's role from the caller's own membership row.
type Service struct {
	memberships Store
	agencies    AgencyReader
	recruiters  RecruiterDirectory
	teams       TeamReader
	access      *access.Resolver
	tx          txcontext.Runner
	audit       *audit.Emitter
	logger      *slog.Logger
	metrics     *membershipmetrics.Metrics
	tracer      trace.Tracer
}

type config struct {
	logger    *slog.Logger
	publisher audit.EventPublisher
	metrics   *membershipmetrics.Metrics
	tx        txcontext.Runner
}

type Option func(*config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

func WithAuditPublisher(publisher audit.EventPublisher) Option {
	return func(c *config) { c.publisher = publisher }
}

func WithMetrics(m *membershipmetrics.Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithTx sets the transaction runner; the default is an in-memory runner.
func WithTx(runner txcontext.Runner) Option {
	return func(c *config) { c.tx = runner }
}

func New(memberships Store, agencies AgencyReader, recruiters RecruiterDirectory, teams TeamReader, opts ...Option) *Service {
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
		memberships: memberships,
		agencies:    agencies,
		recruiters:  recruiters,
		teams:       teams,
		access:      access.NewResolver(memberships),
		tx:          cfg.tx,
		audit:       audit.NewEmitter(cfg.logger, cfg.publisher),
		logger:      logger,
		metrics:     cfg.metrics,
		tracer:      tracing.Tracer("membership"),
	}
}

func (s *Service) loadAgency(ctx context.Context, agencyID id.AgencyID) (*agencymodels.Agency, error) {
	a, err := s.agencies.FindByID(ctx, agencyID)
	if err != nil {
		return nil, translate(err, "agency")
	}
	return a, nil
}

// loadMembership locks the target row and scopes it to agencyID: a
// membership of another agency is reported as not found.
func (s *Service) loadMembership(ctx context.Context, agencyID id.AgencyID, membershipID id.MembershipID) (*models.Membership, error) {
	m, err := s.memberships.FindForUpdate(ctx, membershipID)
	if err != nil {
		return nil, translate(err, "membership")
	}
	if m.AgencyID != agencyID {
		return nil, dErrors.New(dErrors.CodeNotFound, "membership not found")
	}
	return m, nil
}

func (s *Service) loadRecruiter(ctx context.Context, recruiterID id.RecruiterID) (*recruitermodels.Recruiter, error) {
	r, err := s.recruiters.FindByID(ctx, recruiterID)
	if err != nil {
		return nil, translate(err, "recruiter")
	}
	return r, nil
}

// translate maps store sentinels to domain errors. Domain errors pass through.
func translate(err error, entity string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, entity+" not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed), errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "recruiter already has a membership in this agency")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, entity+" is in the wrong state")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access "+entity)
	}
}
