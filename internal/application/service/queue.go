package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"agencyhub/internal/application/models"
	"agencyhub/internal/membership/access"
	membershipmodels "agencyhub/internal/membership/models"
	"agencyhub/internal/platform/tracing"
	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
	"agencyhub/pkg/platform/audit"
	"agencyhub/pkg/platform/sentinel"
	"agencyhub/pkg/requestcontext"
)

// Apply submits a pending application. Existing members and agencies that
// are inactive or not accepting are refused by policy; a second pending
// application for the same agency is a conflict.
func (s *Service) Apply(ctx context.Context, recruiterID id.RecruiterID, agencyID id.AgencyID, message string) (_ *models.Application, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "application.Apply",
		tracing.ID("agency_id", agencyID), tracing.ID("recruiter_id", recruiterID))
	defer func() { tracing.Finish(span, err) }()

	var created *models.Application
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		agency, err := s.agencies.FindByID(txCtx, agencyID)
		if err != nil {
			return wrapErr(err, "agency")
		}
		if err := agency.CanAcceptJoins(); err != nil {
			return err
		}
		if _, err := s.recruiters.FindByID(txCtx, recruiterID); err != nil {
			return wrapErr(err, "recruiter")
		}
		switch _, err := s.memberships.FindByAgencyAndRecruiter(txCtx, agencyID, recruiterID); {
		case err == nil:
			return dErrors.New(dErrors.CodePolicyViolation, "recruiter already has a membership in this agency")
		case !errors.Is(err, sentinel.ErrNotFound):
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check membership")
		}
		a, err := models.NewApplication(id.ApplicationID(uuid.New()), agencyID, recruiterID, message, requestcontext.Now(txCtx))
		if err != nil {
			return err
		}
		if err := s.applications.Create(txCtx, a); err != nil {
			return wrapErr(err, "application")
		}
		created = a
		return s.audit.Emit(txCtx, audit.EventApplicationSubmitted,
			"agency_id", agencyID.String(),
			"recruiter_id", recruiterID.String(),
			"actor_id", recruiterID.String(),
			"resource", a.ID.String())
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncOutcome("submitted")
	return created, nil
}

// ListPending returns the agency's pending applications, each enriched with
// the applicant's profile and stats. Enrichment is best-effort: a failed
// lookup leaves that field nil.
func (s *Service) ListPending(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID) (_ []models.PendingItem, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "application.ListPending",
		tracing.ID("agency_id", agencyID), tracing.ID("actor_id", actorID))
	defer func() { tracing.Finish(span, err) }()

	if _, err := s.agencies.FindByID(ctx, agencyID); err != nil {
		return nil, wrapErr(err, "agency")
	}
	if _, err := s.access.Require(ctx, agencyID, actorID, access.ManageMembers, "review applications"); err != nil {
		return nil, err
	}
	pending, err := s.applications.ListPendingByAgency(ctx, agencyID)
	if err != nil {
		return nil, wrapErr(err, "application")
	}

	defer s.metrics.ObserveEnrichment(time.Now())
	items := make([]models.PendingItem, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, a := range pending {
		items[i].Application = a
		g.Go(func() error {
			items[i].Applicant = s.applicant(gctx, a.RecruiterID)
			items[i].Stats = s.recruiterStats(gctx, a.RecruiterID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) applicant(ctx context.Context, recruiterID id.RecruiterID) *models.ApplicantSnapshot {
	r, err := s.recruiters.FindByID(ctx, recruiterID)
	if err != nil {
		s.metrics.IncEnrichmentFailure("profile")
		s.logger.WarnContext(ctx, "applicant profile lookup failed",
			"recruiter_id", recruiterID.String(), "error", err)
		return nil
	}
	return &models.ApplicantSnapshot{DisplayName: r.DisplayName, Email: r.Email, Available: r.Available}
}

func (s *Service) recruiterStats(ctx context.Context, recruiterID id.RecruiterID) *models.Stats {
	ctx, cancel := context.WithTimeout(ctx, s.statsTimeout)
	defer cancel()
	st, err := s.stats.GetStats(ctx, recruiterID)
	if err != nil {
		s.metrics.IncEnrichmentFailure("stats")
		s.logger.WarnContext(ctx, "applicant stats lookup failed",
			"recruiter_id", recruiterID.String(), "error", err)
		return nil
	}
	if st == nil {
		return nil
	}
	return &models.Stats{Revenue: st.Revenue, Placements: st.Placements, TimeToFillDays: st.TimeToFillDays}
}

// Accept admits the applicant as an active member and marks the application
// approved, in one transaction. If admission fails the application stays
// pending and the error is returned unchanged.
func (s *Service) Accept(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, applicationID id.ApplicationID) (_ *models.Application, _ *membershipmodels.Membership, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "application.Accept",
		tracing.ID("application_id", applicationID), tracing.ID("actor_id", actorID))
	defer func() { tracing.Finish(span, err) }()

	var (
		result *models.Application
		member *membershipmodels.Membership
	)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.resolvable(txCtx, actorID, agencyID, applicationID, "accept applications")
		if err != nil {
			return err
		}
		m, err := s.ledger.Admit(txCtx, a.AgencyID, a.RecruiterID)
		if err != nil {
			return err
		}
		a.ApplyApproval(actorID, requestcontext.Now(txCtx))
		if err := s.applications.Resolve(txCtx, a); err != nil {
			return wrapErr(err, "application")
		}
		result, member = a, m
		return s.audit.Emit(txCtx, audit.EventApplicationAccepted,
			"agency_id", a.AgencyID.String(),
			"recruiter_id", a.RecruiterID.String(),
			"actor_id", actorID.String(),
			"resource", a.ID.String())
	})
	if err != nil {
		return nil, nil, err
	}
	s.metrics.IncOutcome("accepted")
	return result, member, nil
}

// Decline rejects a pending application. Rejection is terminal; the
// recruiter may apply again right away.
func (s *Service) Decline(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, applicationID id.ApplicationID) (_ *models.Application, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "application.Decline",
		tracing.ID("application_id", applicationID), tracing.ID("actor_id", actorID))
	defer func() { tracing.Finish(span, err) }()

	var result *models.Application
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.resolvable(txCtx, actorID, agencyID, applicationID, "decline applications")
		if err != nil {
			return err
		}
		a.ApplyRejection(actorID, requestcontext.Now(txCtx))
		if err := s.applications.Resolve(txCtx, a); err != nil {
			return wrapErr(err, "application")
		}
		result = a
		return s.audit.Emit(txCtx, audit.EventApplicationDeclined,
			"agency_id", a.AgencyID.String(),
			"recruiter_id", a.RecruiterID.String(),
			"actor_id", actorID.String(),
			"resource", a.ID.String())
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncOutcome("declined")
	return result, nil
}

// resolvable locks a pending application of agencyID and checks the
// reviewer's role.
func (s *Service) resolvable(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, applicationID id.ApplicationID, action string) (*models.Application, error) {
	a, err := s.applications.FindForUpdate(ctx, applicationID)
	if err != nil {
		return nil, wrapErr(err, "application")
	}
	if a.AgencyID != agencyID {
		return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	if _, err := s.access.Require(ctx, a.AgencyID, actorID, access.ManageMembers, action); err != nil {
		return nil, err
	}
	if err := a.CanResolve(); err != nil {
		return nil, err
	}
	return a, nil
}

// ListMine returns the recruiter's own applications across agencies.
func (s *Service) ListMine(ctx context.Context, recruiterID id.RecruiterID) ([]*models.Application, error) {
	apps, err := s.applications.ListByRecruiter(ctx, recruiterID)
	if err != nil {
		return nil, wrapErr(err, "application")
	}
	return apps, nil
}
