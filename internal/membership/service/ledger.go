package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"agencyhub/internal/membership/access"
	"agencyhub/internal/membership/models"
	"agencyhub/internal/platform/tracing"
	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
	"agencyhub/pkg/platform/audit"
	"agencyhub/pkg/requestcontext"
)

// InviteTarget names the invitee by id or, failing that, by email.
type InviteTarget struct {
	RecruiterID id.RecruiterID
	Email       string
}

// RequestJoin creates a pending member row for recruiterID. The agency must be
// active and accepting members.
func (s *Service) RequestJoin(ctx context.Context, agencyID id.AgencyID, recruiterID id.RecruiterID) (_ *models.Membership, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "membership.RequestJoin",
		tracing.ID("agency_id", agencyID), tracing.ID("recruiter_id", recruiterID))
	defer func() { tracing.Finish(span, err) }()
	defer s.metrics.Observe("request_join", time.Now())

	var created *models.Membership
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		agency, err := s.loadAgency(txCtx, agencyID)
		if err != nil {
			return err
		}
		if err := agency.CanAcceptJoins(); err != nil {
			return err
		}
		if _, err := s.loadRecruiter(txCtx, recruiterID); err != nil {
			return err
		}
		m, err := models.NewJoinRequest(id.MembershipID(uuid.New()), agencyID, recruiterID, requestcontext.Now(txCtx))
		if err != nil {
			return err
		}
		if err := s.memberships.Create(txCtx, m); err != nil {
			return translate(err, "membership")
		}
		created = m
		return s.audit.Emit(txCtx, audit.EventJoinRequested,
			"agency_id", agencyID.String(),
			"recruiter_id", recruiterID.String(),
			"actor_id", recruiterID.String(),
			"resource", m.ID.String())
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition("requested")
	return created, nil
}

// Invite creates an active member row directly. Owner or admin only.
func (s *Service) Invite(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, target InviteTarget) (_ *models.Membership, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "membership.Invite",
		tracing.ID("agency_id", agencyID), tracing.ID("actor_id", actorID))
	defer func() { tracing.Finish(span, err) }()
	defer s.metrics.Observe("invite", time.Now())

	var created *models.Membership
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.loadAgency(txCtx, agencyID); err != nil {
			return err
		}
		if _, err := s.access.Require(txCtx, agencyID, actorID, access.ManageMembers, "invite members"); err != nil {
			return err
		}
		recruiterID, err := s.resolveInvitee(txCtx, target)
		if err != nil {
			return err
		}
		m, err := s.admit(txCtx, agencyID, recruiterID)
		if err != nil {
			return err
		}
		created = m
		return s.audit.Emit(txCtx, audit.EventMemberInvited,
			"agency_id", agencyID.String(),
			"recruiter_id", recruiterID.String(),
			"actor_id", actorID.String(),
			"resource", m.ID.String())
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition("invited")
	return created, nil
}

func (s *Service) resolveInvitee(ctx context.Context, target InviteTarget) (id.RecruiterID, error) {
	if !target.RecruiterID.IsNil() {
		r, err := s.loadRecruiter(ctx, target.RecruiterID)
		if err != nil {
			return id.RecruiterID{}, err
		}
		return r.ID, nil
	}
	email := strings.TrimSpace(target.Email)
	if email == "" {
		return id.RecruiterID{}, dErrors.New(dErrors.CodeValidation, "recruiter_id or email is required")
	}
	r, err := s.recruiters.FindByEmail(ctx, email)
	if err != nil {
		return id.RecruiterID{}, translate(err, "recruiter")
	}
	return r.ID, nil
}

// Admit writes an active member row for recruiterID without a caller role
// check. The application queue calls it inside its own transaction after
// authorizing the reviewer; the nested RunInTx joins that transaction.
func (s *Service) Admit(ctx context.Context, agencyID id.AgencyID, recruiterID id.RecruiterID) (*models.Membership, error) {
	var created *models.Membership
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		m, err := s.admit(txCtx, agencyID, recruiterID)
		created = m
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition("admitted")
	return created, nil
}

func (s *Service) admit(ctx context.Context, agencyID id.AgencyID, recruiterID id.RecruiterID) (*models.Membership, error) {
	m, err := models.NewInvited(id.MembershipID(uuid.New()), agencyID, recruiterID, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.memberships.Create(ctx, m); err != nil {
		return nil, translate(err, "membership")
	}
	return m, nil
}

// Approve activates a pending membership. Approving an active membership
// returns it unchanged.
func (s *Service) Approve(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, membershipID id.MembershipID) (_ *models.Membership, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "membership.Approve",
		tracing.ID("membership_id", membershipID), tracing.ID("actor_id", actorID))
	defer func() { tracing.Finish(span, err) }()
	defer s.metrics.Observe("approve", time.Now())

	var (
		result  *models.Membership
		changed bool
	)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		m, err := s.loadMembership(txCtx, agencyID, membershipID)
		if err != nil {
			return err
		}
		if _, err := s.access.Require(txCtx, m.AgencyID, actorID, access.ManageMembers, "approve members"); err != nil {
			return err
		}
		result = m
		if changed = m.Approve(requestcontext.Now(txCtx)); !changed {
			return nil
		}
		if err := s.memberships.UpdateStatus(txCtx, m); err != nil {
			return translate(err, "membership")
		}
		return s.audit.Emit(txCtx, audit.EventMemberApproved,
			"agency_id", m.AgencyID.String(),
			"recruiter_id", m.RecruiterID.String(),
			"actor_id", actorID.String(),
			"resource", m.ID.String())
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.metrics.IncTransition("approved")
	}
	return result, nil
}

// Reject deletes a pending membership.
func (s *Service) Reject(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, membershipID id.MembershipID) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "membership.Reject",
		tracing.ID("membership_id", membershipID), tracing.ID("actor_id", actorID))
	defer func() { tracing.Finish(span, err) }()
	defer s.metrics.Observe("reject", time.Now())

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		m, err := s.loadMembership(txCtx, agencyID, membershipID)
		if err != nil {
			return err
		}
		if _, err := s.access.Require(txCtx, m.AgencyID, actorID, access.ManageMembers, "reject members"); err != nil {
			return err
		}
		if err := m.CanReject(); err != nil {
			return err
		}
		if err := s.memberships.DeletePending(txCtx, m.ID); err != nil {
			return translate(err, "membership")
		}
		return s.audit.Emit(txCtx, audit.EventJoinRejected,
			"agency_id", m.AgencyID.String(),
			"recruiter_id", m.RecruiterID.String(),
			"actor_id", actorID.String(),
			"resource", m.ID.String())
	})
	if err != nil {
		return err
	}
	s.metrics.IncTransition("rejected")
	return nil
}

// Remove deletes a membership. The owner row is protected.
func (s *Service) Remove(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, membershipID id.MembershipID) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "membership.Remove",
		tracing.ID("membership_id", membershipID), tracing.ID("actor_id", actorID))
	defer func() { tracing.Finish(span, err) }()
	defer s.metrics.Observe("remove", time.Now())

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		m, err := s.loadMembership(txCtx, agencyID, membershipID)
		if err != nil {
			return err
		}
		if _, err := s.access.Require(txCtx, m.AgencyID, actorID, access.ManageMembers, "remove members"); err != nil {
			return err
		}
		if err := m.CanRemove(); err != nil {
			return err
		}
		if err := s.memberships.Delete(txCtx, m.ID); err != nil {
			return translate(err, "membership")
		}
		return s.audit.Emit(txCtx, audit.EventMemberRemoved,
			"agency_id", m.AgencyID.String(),
			"recruiter_id", m.RecruiterID.String(),
			"actor_id", actorID.String(),
			"resource", m.ID.String())
	})
	if err != nil {
		return err
	}
	s.metrics.IncTransition("removed")
	return nil
}

// ChangeRole sets the role of an active membership. Owner only; ownership
// itself never moves.
func (s *Service) ChangeRole(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, membershipID id.MembershipID, role models.Role) (_ *models.Membership, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "membership.ChangeRole",
		tracing.ID("membership_id", membershipID), tracing.ID("actor_id", actorID))
	defer func() { tracing.Finish(span, err) }()
	defer s.metrics.Observe("change_role", time.Now())

	if _, err := models.ParseRole(string(role)); err != nil {
		return nil, err
	}
	var (
		result  *models.Membership
		changed bool
	)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		m, err := s.loadMembership(txCtx, agencyID, membershipID)
		if err != nil {
			return err
		}
		if _, err := s.access.Require(txCtx, m.AgencyID, actorID, access.ChangeRoles, "change roles"); err != nil {
			return err
		}
		if err := m.CanChangeRoleTo(role); err != nil {
			return err
		}
		result = m
		previous := m.Role
		if changed = m.ApplyRole(role, requestcontext.Now(txCtx)); !changed {
			return nil
		}
		if err := s.memberships.UpdateRole(txCtx, m); err != nil {
			return translate(err, "membership")
		}
		return s.audit.Emit(txCtx, audit.EventMemberRoleChanged,
			"agency_id", m.AgencyID.String(),
			"recruiter_id", m.RecruiterID.String(),
			"actor_id", actorID.String(),
			"resource", m.ID.String(),
			"reason", string(previous)+"->"+string(role))
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.metrics.IncTransition("role_changed")
	}
	return result, nil
}

// AssignTeam sets or, with a nil teamID, clears the membership's team. The
// team must belong to the membership's agency.
func (s *Service) AssignTeam(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID, membershipID id.MembershipID, teamID *id.TeamID) (_ *models.Membership, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "membership.AssignTeam",
		tracing.ID("membership_id", membershipID), tracing.ID("actor_id", actorID))
	defer func() { tracing.Finish(span, err) }()
	defer s.metrics.Observe("assign_team", time.Now())

	var result *models.Membership
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		m, err := s.loadMembership(txCtx, agencyID, membershipID)
		if err != nil {
			return err
		}
		if _, err := s.access.Require(txCtx, m.AgencyID, actorID, access.ManageMembers, "assign teams"); err != nil {
			return err
		}
		if !m.IsActive() {
			return dErrors.New(dErrors.CodeInvalidState, "teams can only be assigned to active memberships")
		}
		resource := "none"
		if teamID != nil {
			team, err := s.teams.FindByID(txCtx, *teamID)
			if err != nil {
				return translate(err, "team")
			}
			if team.AgencyID != m.AgencyID {
				return dErrors.New(dErrors.CodeConflict, "team belongs to a different agency")
			}
			resource = team.ID.String()
		}
		m.AssignTeam(teamID, requestcontext.Now(txCtx))
		if err := s.memberships.UpdateTeam(txCtx, m); err != nil {
			return translate(err, "membership")
		}
		result = m
		return s.audit.Emit(txCtx, audit.EventMemberTeamAssigned,
			"agency_id", m.AgencyID.String(),
			"recruiter_id", m.RecruiterID.String(),
			"actor_id", actorID.String(),
			"resource", resource)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition("team_assigned")
	return result, nil
}

// ListMembers returns every membership of the agency, pending included. The
// caller must be an active member.
func (s *Service) ListMembers(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID) ([]*models.Membership, error) {
	if _, err := s.loadAgency(ctx, agencyID); err != nil {
		return nil, err
	}
	if _, err := s.access.Require(ctx, agencyID, actorID, access.AnyMember, "list members"); err != nil {
		return nil, err
	}
	members, err := s.memberships.ListByAgency(ctx, agencyID)
	if err != nil {
		return nil, translate(err, "membership")
	}
	return members, nil
}

// ListForRecruiter returns the recruiter's own memberships across agencies.
func (s *Service) ListForRecruiter(ctx context.Context, recruiterID id.RecruiterID) ([]*models.Membership, error) {
	members, err := s.memberships.ListByRecruiter(ctx, recruiterID)
	if err != nil {
		return nil, translate(err, "membership")
	}
	return members, nil
}

// Role returns the actor's active role in agencyID.
func (s *Service) Role(ctx context.Context, actorID id.RecruiterID, agencyID id.AgencyID) (models.Role, error) {
	m, err := s.access.Membership(ctx, agencyID, actorID)
	if err != nil {
		return "", err
	}
	return m.Role, nil
}
