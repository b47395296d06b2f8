package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"agencyhub/internal/platform/tracing"
	"agencyhub/internal/recruiter/models"
	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
	"agencyhub/pkg/email"
	"agencyhub/pkg/platform/sentinel"
	txcontext "agencyhub/pkg/platform/tx"
	"agencyhub/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, r *models.Recruiter) error
	Update(ctx context.Context, r *models.Recruiter) error
	FindByID(ctx context.Context, recruiterID id.RecruiterID) (*models.Recruiter, error)
	FindByEmail(ctx context.Context, email string) (*models.Recruiter, error)
	Delete(ctx context.Context, recruiterID id.RecruiterID) error
}

// OwnershipCounter reports how many agencies a recruiter owns.
type OwnershipCounter interface {
	CountOwnedBy(ctx context.Context, recruiterID id.RecruiterID) (int, error)
}

// MembershipPurger and ApplicationPurger remove a recruiter's rows when the
// profile is deleted.
type MembershipPurger interface {
	DeleteByRecruiter(ctx context.Context, recruiterID id.RecruiterID) (int, error)
}

type ApplicationPurger interface {
	DeleteByRecruiter(ctx context.Context, recruiterID id.RecruiterID) (int, error)
}

// Service is the recruiter directory: one profile per identity principal.
type Service struct {
	recruiters   Store
	ownership    OwnershipCounter
	memberships  MembershipPurger
	applications ApplicationPurger
	tx           txcontext.Runner
	logger       *slog.Logger
	tracer       trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTx(runner txcontext.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func New(recruiters Store, ownership OwnershipCounter, memberships MembershipPurger, applications ApplicationPurger, opts ...Option) *Service {
	s := &Service{
		recruiters:   recruiters,
		ownership:    ownership,
		memberships:  memberships,
		applications: applications,
		logger:       slog.Default(),
		tracer:       tracing.Tracer("recruiter"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = txcontext.NewInMemory()
	}
	return s
}

// Register creates or refreshes the profile of recruiterID. An empty display
// name on first registration is derived from the email address.
func (s *Service) Register(ctx context.Context, recruiterID id.RecruiterID, address, displayName string) (_ *models.Recruiter, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "recruiter.Register", tracing.ID("recruiter_id", recruiterID))
	defer func() { tracing.Finish(span, err) }()

	if recruiterID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	var result *models.Recruiter
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		existing, err := s.recruiters.FindByID(txCtx, recruiterID)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			name := strings.TrimSpace(displayName)
			if name == "" {
				name = email.DisplayNameFromEmail(address)
			}
			r, err := models.NewRecruiter(recruiterID, address, name, now)
			if err != nil {
				return err
			}
			if err := s.recruiters.Create(txCtx, r); err != nil {
				return wrapRecruiterErr(err)
			}
			result = r
			s.logger.InfoContext(txCtx, "recruiter registered", "recruiter_id", recruiterID.String())
			return nil
		case err != nil:
			return wrapRecruiterErr(err)
		}
		update := models.ProfileUpdate{Email: &address}
		if strings.TrimSpace(displayName) != "" {
			update.DisplayName = &displayName
		}
		changed, err := existing.Apply(update, now)
		if err != nil {
			return err
		}
		if changed {
			if err := s.recruiters.Update(txCtx, existing); err != nil {
				return wrapRecruiterErr(err)
			}
		}
		result = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) UpdateProfile(ctx context.Context, recruiterID id.RecruiterID, update models.ProfileUpdate) (*models.Recruiter, error) {
	var result *models.Recruiter
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		r, err := s.recruiters.FindByID(txCtx, recruiterID)
		if err != nil {
			return wrapRecruiterErr(err)
		}
		changed, err := r.Apply(update, requestcontext.Now(txCtx))
		if err != nil {
			return err
		}
		if changed {
			if err := s.recruiters.Update(txCtx, r); err != nil {
				return wrapRecruiterErr(err)
			}
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) FindByID(ctx context.Context, recruiterID id.RecruiterID) (*models.Recruiter, error) {
	r, err := s.recruiters.FindByID(ctx, recruiterID)
	if err != nil {
		return nil, wrapRecruiterErr(err)
	}
	return r, nil
}

func (s *Service) FindByEmail(ctx context.Context, address string) (*models.Recruiter, error) {
	r, err := s.recruiters.FindByEmail(ctx, address)
	if err != nil {
		return nil, wrapRecruiterErr(err)
	}
	return r, nil
}

// Delete removes a profile with its memberships and applications. A
// recruiter who owns an agency cannot be deleted.
func (s *Service) Delete(ctx context.Context, recruiterID id.RecruiterID) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "recruiter.Delete", tracing.ID("recruiter_id", recruiterID))
	defer func() { tracing.Finish(span, err) }()

	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.recruiters.FindByID(txCtx, recruiterID); err != nil {
			return wrapRecruiterErr(err)
		}
		owned, err := s.ownership.CountOwnedBy(txCtx, recruiterID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count owned agencies")
		}
		if owned > 0 {
			return dErrors.New(dErrors.CodeOwnershipViolation, "recruiter owns an agency and cannot be deleted")
		}
		if _, err := s.memberships.DeleteByRecruiter(txCtx, recruiterID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete memberships")
		}
		if _, err := s.applications.DeleteByRecruiter(txCtx, recruiterID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete applications")
		}
		if err := s.recruiters.Delete(txCtx, recruiterID); err != nil {
			return wrapRecruiterErr(err)
		}
		s.logger.InfoContext(txCtx, "recruiter deleted", "recruiter_id", recruiterID.String())
		return nil
	})
}

func wrapRecruiterErr(err error) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "recruiter not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "email is already registered")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeOwnershipViolation, "recruiter owns an agency and cannot be deleted")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access recruiter")
	}
}
