package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	agencymodels "agencyhub/internal/agency/models"
	"agencyhub/internal/membership/access"
	"agencyhub/internal/platform/tracing"
	"agencyhub/internal/team/models"
	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
	"agencyhub/pkg/platform/audit"
	"agencyhub/pkg/platform/sentinel"
	txcontext "agencyhub/pkg/platform/tx"
	"agencyhub/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, t *models.Team) error
	FindByID(ctx context.Context, teamID id.TeamID) (*models.Team, error)
	ListByAgency(ctx context.Context, agencyID id.AgencyID) ([]*models.Team, error)
	Delete(ctx context.Context, teamID id.TeamID) error
}

type AgencyReader interface {
	FindByID(ctx context.Context, agencyID id.AgencyID) (*agencymodels.Agency, error)
}

type MembershipStore interface {
	access.MembershipFinder
	ClearTeam(ctx context.Context, teamID id.TeamID) (int, error)
}

// Service manages the teams of an agency. Create and delete are owner-only;
// any active member can list.
type Service struct {
	teams       Store
	agencies    AgencyReader
	memberships MembershipStore
	access      *access.Resolver
	tx          txcontext.Runner
	audit       *audit.Emitter
	tracer      trace.Tracer
}

type config struct {
	logger    *slog.Logger
	publisher audit.EventPublisher
	tx        txcontext.Runner
}

type Option func(*config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

func WithAuditPublisher(publisher audit.EventPublisher) Option {
	return func(c *config) { c.publisher = publisher }
}

func WithTx(runner txcontext.Runner) Option {
	return func(c *config) { c.tx = runner }
}

func New(teams Store, agencies AgencyReader, memberships MembershipStore, opts ...Option) *Service {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.tx == nil {
		cfg.tx = txcontext.NewInMemory()
	}
	return &Service{
		teams:       teams,
		agencies:    agencies,
		memberships: memberships,
		access:      access.NewResolver(memberships),
		tx:          cfg.tx,
		audit:       audit.NewEmitter(cfg.logger, cfg.publisher),
		tracer:      tracing.Tracer("team"),
	}
}

func (s *Service) CreateTeam(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, name, specialization string) (_ *models.Team, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "team.Create",
		tracing.ID("agency_id", agencyID), tracing.ID("actor_id", actorID))
	defer func() { tracing.Finish(span, err) }()

	var created *models.Team
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requireAgency(txCtx, agencyID); err != nil {
			return err
		}
		if _, err := s.access.Require(txCtx, agencyID, actorID, access.ManageTeams, "manage teams"); err != nil {
			return err
		}
		t, err := models.NewTeam(id.TeamID(uuid.New()), agencyID, name, specialization, requestcontext.Now(txCtx))
		if err != nil {
			return err
		}
		if err := s.teams.Create(txCtx, t); err != nil {
			return wrapTeamErr(err)
		}
		created = t
		return s.audit.Emit(txCtx, audit.EventTeamCreated,
			"agency_id", agencyID.String(),
			"actor_id", actorID.String(),
			"resource", t.ID.String())
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// DeleteTeam removes a team and clears it from every membership in the same
// transaction.
func (s *Service) DeleteTeam(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, teamID id.TeamID) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "team.Delete",
		tracing.ID("team_id", teamID), tracing.ID("actor_id", actorID))
	defer func() { tracing.Finish(span, err) }()

	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		t, err := s.teams.FindByID(txCtx, teamID)
		if err != nil {
			return wrapTeamErr(err)
		}
		if t.AgencyID != agencyID {
			return dErrors.New(dErrors.CodeNotFound, "team not found")
		}
		if _, err := s.access.Require(txCtx, t.AgencyID, actorID, access.ManageTeams, "manage teams"); err != nil {
			return err
		}
		cleared, err := s.memberships.ClearTeam(txCtx, t.ID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear team assignments")
		}
		if err := s.teams.Delete(txCtx, t.ID); err != nil {
			return wrapTeamErr(err)
		}
		return s.audit.Emit(txCtx, audit.EventTeamDeleted,
			"agency_id", t.AgencyID.String(),
			"actor_id", actorID.String(),
			"resource", t.ID.String(),
			"cleared_memberships", cleared)
	})
}

func (s *Service) ListTeams(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID) ([]*models.Team, error) {
	if err := s.requireAgency(ctx, agencyID); err != nil {
		return nil, err
	}
	if _, err := s.access.Require(ctx, agencyID, actorID, access.AnyMember, "list teams"); err != nil {
		return nil, err
	}
	teams, err := s.teams.ListByAgency(ctx, agencyID)
	if err != nil {
		return nil, wrapTeamErr(err)
	}
	return teams, nil
}

// requireAgency reports an unknown agency as not found before any role check.
func (s *Service) requireAgency(ctx context.Context, agencyID id.AgencyID) error {
	if _, err := s.agencies.FindByID(ctx, agencyID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "agency not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agency")
	}
	return nil
}

func wrapTeamErr(err error) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "team not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "team name is already used in this agency")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access team")
	}
}
