package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"agencyhub/internal/agency/models"
	"agencyhub/internal/membership/access"
	membershipmodels "agencyhub/internal/membership/models"
	"agencyhub/internal/platform/tracing"
	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
	"agencyhub/pkg/platform/audit"
	"agencyhub/pkg/platform/sentinel"
	"agencyhub/pkg/requestcontext"
)

// CreateRequest carries the fields of a new agency.
type CreateRequest struct {
	Name             string
	Slug             string
	Visibility       models.Visibility
	AcceptingMembers bool
	Branding         models.Branding
}

// CreateAgency registers an agency owned by the caller.
func (s *Service) CreateAgency(ctx context.Context, actorID id.RecruiterID, req CreateRequest) (*models.Agency, error) {
	if actorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return s.create(ctx, actorID, actorID, req)
}

// AdminCreateAgency registers an agency on ownerID's behalf. Authority comes
// from the platform-admin middleware, not from the ledger.
func (s *Service) AdminCreateAgency(ctx context.Context, ownerID id.RecruiterID, req CreateRequest) (*models.Agency, error) {
	if ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "owner_id is required")
	}
	return s.create(ctx, ownerID, requestcontext.RecruiterID(ctx), req)
}

// create writes the agency and its owner membership in one transaction.
func (s *Service) create(ctx context.Context, ownerID, actorID id.RecruiterID, req CreateRequest) (_ *models.Agency, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "agency.Create", tracing.ID("owner_id", ownerID))
	defer func() { tracing.Finish(span, err) }()

	var created *models.Agency
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.recruiters.FindByID(txCtx, ownerID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "owner recruiter not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load owner")
		}
		now := requestcontext.Now(txCtx)
		a, err := models.NewAgency(id.AgencyID(uuid.New()), req.Name, req.Slug, ownerID,
			req.Visibility, req.AcceptingMembers, req.Branding, now)
		if err != nil {
			return asValidation(err)
		}
		if err := s.agencies.Create(txCtx, a); err != nil {
			return wrapAgencyErr(err)
		}
		owner, err := membershipmodels.NewOwner(id.MembershipID(uuid.New()), a.ID, ownerID, now)
		if err != nil {
			return err
		}
		if err := s.memberships.Create(txCtx, owner); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create owner membership")
		}
		created = a
		attrs := []any{
			"agency_id", a.ID.String(),
			"recruiter_id", ownerID.String(),
			"resource", a.Slug,
		}
		if !actorID.IsNil() {
			attrs = append(attrs, "actor_id", actorID.String())
		}
		return s.audit.Emit(txCtx, audit.EventAgencyCreated, attrs...)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncCreated()
	return created, nil
}

// GetAgency returns an agency. Private or inactive agencies are visible to
// their active members only; everyone else gets not found.
func (s *Service) GetAgency(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID) (*models.Agency, error) {
	a, err := s.load(ctx, agencyID)
	if err != nil {
		return nil, err
	}
	if a.IsListed() {
		return a, nil
	}
	if actorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeNotFound, "agency not found")
	}
	if _, err := s.access.Membership(ctx, agencyID, actorID); err != nil {
		if dErrors.HasCode(err, dErrors.CodeForbidden) {
			return nil, dErrors.New(dErrors.CodeNotFound, "agency not found")
		}
		return nil, err
	}
	return a, nil
}

// GetAgencyBySlug resolves a slug and applies the GetAgency visibility rules.
func (s *Service) GetAgencyBySlug(ctx context.Context, actorID id.RecruiterID, slug string) (*models.Agency, error) {
	a, err := s.agencies.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, wrapAgencyErr(err)
	}
	return s.GetAgency(ctx, actorID, a.ID)
}

// UpdateAgency applies listing, branding and status changes. Owners and
// admins may edit listing and branding; status is owner-only.
func (s *Service) UpdateAgency(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, update models.Update) (_ *models.Agency, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "agency.Update",
		tracing.ID("agency_id", agencyID), tracing.ID("actor_id", actorID))
	defer func() { tracing.Finish(span, err) }()

	if update.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeValidation, "no fields to update")
	}
	var result *models.Agency
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.load(txCtx, agencyID)
		if err != nil {
			return err
		}
		check, action := access.EditAgency, "edit the agency"
		if update.TouchesStatus() {
			check, action = access.ChangeStatus, "change agency status"
		}
		if _, err := s.access.Require(txCtx, agencyID, actorID, check, action); err != nil {
			return err
		}
		wasAccepting, wasStatus := a.AcceptingMembers, a.Status
		changed, err := a.Apply(update, requestcontext.Now(txCtx))
		if err != nil {
			return err
		}
		result = a
		if len(changed) == 0 {
			return nil
		}
		if err := s.agencies.Update(txCtx, a); err != nil {
			return wrapAgencyErr(err)
		}
		return s.emitUpdate(txCtx, a, actorID, changed, wasAccepting, wasStatus)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) emitUpdate(ctx context.Context, a *models.Agency, actorID id.RecruiterID, changed []string, wasAccepting bool, wasStatus models.Status) error {
	base := []any{"agency_id", a.ID.String(), "actor_id", actorID.String()}
	if err := s.audit.Emit(ctx, audit.EventAgencyUpdated, append(base, "reason", strings.Join(changed, ","))...); err != nil {
		return err
	}
	if a.Status != wasStatus {
		if err := s.audit.Emit(ctx, audit.EventAgencyStatusChanged, append(base, "reason", string(a.Status))...); err != nil {
			return err
		}
	}
	if a.AcceptingMembers != wasAccepting {
		event := audit.EventAgencyAcceptanceClose
		if a.AcceptingMembers {
			event = audit.EventAgencyAcceptanceOpen
		}
		return s.audit.Emit(ctx, event, base...)
	}
	return nil
}

func (s *Service) SetAcceptingMembers(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, accepting bool) (*models.Agency, error) {
	return s.UpdateAgency(ctx, actorID, agencyID, models.Update{AcceptingMembers: &accepting})
}

func (s *Service) SetVisibility(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, visibility models.Visibility) (*models.Agency, error) {
	return s.UpdateAgency(ctx, actorID, agencyID, models.Update{Visibility: &visibility})
}

func (s *Service) SetStatus(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, status models.Status) (*models.Agency, error) {
	return s.UpdateAgency(ctx, actorID, agencyID, models.Update{Status: &status})
}

// DeleteAgency removes an agency on behalf of its owner.
func (s *Service) DeleteAgency(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "agency.Delete",
		tracing.ID("agency_id", agencyID), tracing.ID("actor_id", actorID))
	defer func() { tracing.Finish(span, err) }()

	var rows int
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.load(txCtx, agencyID); err != nil {
			return err
		}
		if _, err := s.access.Require(txCtx, agencyID, actorID, access.DeleteAgency, "delete the agency"); err != nil {
			return err
		}
		n, err := s.cascade(txCtx, agencyID)
		if err != nil {
			return err
		}
		rows = n
		return s.audit.Emit(txCtx, audit.EventAgencyDeleted,
			"agency_id", agencyID.String(),
			"actor_id", actorID.String(),
			"reason", "owner")
	})
	if err != nil {
		return err
	}
	s.metrics.IncDeleted("owner", rows)
	return nil
}

// AdminDeleteAgency removes an agency under platform-admin authority.
// Running it again after success returns not found.
func (s *Service) AdminDeleteAgency(ctx context.Context, agencyID id.AgencyID) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "agency.AdminDelete", tracing.ID("agency_id", agencyID))
	defer func() { tracing.Finish(span, err) }()

	var rows int
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.load(txCtx, agencyID); err != nil {
			return err
		}
		n, err := s.cascade(txCtx, agencyID)
		if err != nil {
			return err
		}
		rows = n
		return s.audit.Emit(txCtx, audit.EventAgencyDeleted,
			"agency_id", agencyID.String(),
			"reason", "platform_admin")
	})
	if err != nil {
		return err
	}
	s.metrics.IncDeleted("admin", rows)
	return nil
}

// cascade collects every dependent id first, then deletes memberships,
// teams, applications and the agency row, in that order. It must run inside
// a transaction.
func (s *Service) cascade(ctx context.Context, agencyID id.AgencyID) (int, error) {
	members, err := s.memberships.ListByAgency(ctx, agencyID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list memberships")
	}
	memberIDs := make([]id.MembershipID, len(members))
	for i, m := range members {
		memberIDs[i] = m.ID
	}
	teams, err := s.teams.ListByAgency(ctx, agencyID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list teams")
	}
	teamIDs := make([]id.TeamID, len(teams))
	for i, t := range teams {
		teamIDs[i] = t.ID
	}
	applicationIDs, err := s.applications.IDsByAgency(ctx, agencyID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}

	total := 0
	n, err := s.memberships.DeleteByIDs(ctx, memberIDs)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete memberships")
	}
	total += n
	if n, err = s.teams.DeleteByIDs(ctx, teamIDs); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete teams")
	}
	total += n
	if n, err = s.applications.DeleteByIDs(ctx, applicationIDs); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete applications")
	}
	total += n
	if err := s.agencies.Delete(ctx, agencyID); err != nil {
		return 0, wrapAgencyErr(err)
	}
	return total, nil
}

// ListAuditTrail returns the recorded lifecycle events of an agency. Owner or
// admin only.
func (s *Service) ListAuditTrail(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID) ([]audit.Event, error) {
	if _, err := s.load(ctx, agencyID); err != nil {
		return nil, err
	}
	if _, err := s.access.Require(ctx, agencyID, actorID, access.EditAgency, "read the audit trail"); err != nil {
		return nil, err
	}
	if s.auditReader == nil {
		return []audit.Event{}, nil
	}
	events, err := s.auditReader.List(ctx, agencyID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit trail")
	}
	return events, nil
}

func asValidation(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		return dErrors.New(dErrors.CodeValidation, err.Error())
	}
	return err
}
