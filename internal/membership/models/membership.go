package models

import (
	"time"

	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
)

// Role is the closed set of roles a recruiter can hold in an agency.
// Every policy check switches over all three values and denies anything else.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ParseRole validates an external role string.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleOwner, RoleAdmin, RoleMember:
		return r, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "role must be one of owner, admin, member")
	}
}

func (r Role) String() string { return string(r) }

// CanManageMembers covers invite, approve, reject, remove, team assignment and
// the application queue.
func (r Role) CanManageMembers() bool {
	switch r {
	case RoleOwner, RoleAdmin:
		return true
	case RoleMember:
		return false
	default:
		return false
	}
}

// CanChangeRoles is owner-only.
func (r Role) CanChangeRoles() bool {
	switch r {
	case RoleOwner:
		return true
	case RoleAdmin, RoleMember:
		return false
	default:
		return false
	}
}

// CanManageTeams is owner-only.
func (r Role) CanManageTeams() bool {
	switch r {
	case RoleOwner:
		return true
	case RoleAdmin, RoleMember:
		return false
	default:
		return false
	}
}

// CanEditAgency covers listing flags and branding.
func (r Role) CanEditAgency() bool {
	switch r {
	case RoleOwner, RoleAdmin:
		return true
	case RoleMember:
		return false
	default:
		return false
	}
}

// CanChangeStatus gates activating and deactivating an agency.
func (r Role) CanChangeStatus() bool {
	switch r {
	case RoleOwner:
		return true
	case RoleAdmin, RoleMember:
		return false
	default:
		return false
	}
}

// CanDeleteAgency is owner-only; platform admins use a separate path.
func (r Role) CanDeleteAgency() bool {
	switch r {
	case RoleOwner:
		return true
	case RoleAdmin, RoleMember:
		return false
	default:
		return false
	}
}

type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
)

func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusActive
}

// Membership is one row of the ledger: a recruiter's standing in one agency.
//
// Invariants:
//   - At most one membership per (AgencyID, RecruiterID); the store enforces it
//   - Exactly one owner per agency, and the owner row is always active
//   - Status moves pending -> active only; the alternative is deletion
//   - TeamID, when set, names a team of the same agency
type Membership struct {
	ID          id.MembershipID `json:"id"`
	AgencyID    id.AgencyID     `json:"agency_id"`
	RecruiterID id.RecruiterID  `json:"recruiter_id"`
	Role        Role            `json:"role"`
	Status      Status          `json:"status"`
	TeamID      *id.TeamID      `json:"team_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func newMembership(membershipID id.MembershipID, agencyID id.AgencyID, recruiterID id.RecruiterID, role Role, status Status, now time.Time) (*Membership, error) {
	if membershipID.IsNil() || agencyID.IsNil() || recruiterID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "membership requires membership, agency and recruiter ids")
	}
	return &Membership{
		ID:          membershipID,
		AgencyID:    agencyID,
		RecruiterID: recruiterID,
		Role:        role,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// NewOwner builds the owner row written together with a new agency.
func NewOwner(membershipID id.MembershipID, agencyID id.AgencyID, recruiterID id.RecruiterID, now time.Time) (*Membership, error) {
	return newMembership(membershipID, agencyID, recruiterID, RoleOwner, StatusActive, now)
}

// NewJoinRequest builds a pending member row.
func NewJoinRequest(membershipID id.MembershipID, agencyID id.AgencyID, recruiterID id.RecruiterID, now time.Time) (*Membership, error) {
	return newMembership(membershipID, agencyID, recruiterID, RoleMember, StatusPending, now)
}

// NewInvited builds an active member row (invite and accepted application).
func NewInvited(membershipID id.MembershipID, agencyID id.AgencyID, recruiterID id.RecruiterID, now time.Time) (*Membership, error) {
	return newMembership(membershipID, agencyID, recruiterID, RoleMember, StatusActive, now)
}

func (m *Membership) IsActive() bool  { return m.Status == StatusActive }
func (m *Membership) IsPending() bool { return m.Status == StatusPending }
func (m *Membership) IsOwner() bool   { return m.Role == RoleOwner }

// Approve moves a pending membership to active. Approving an active
// membership is a no-op and reports changed=false.
func (m *Membership) Approve(now time.Time) (changed bool) {
	if m.Status == StatusActive {
		return false
	}
	m.Status = StatusActive
	m.UpdatedAt = now
	return true
}

// CanReject requires a pending membership.
func (m *Membership) CanReject() error {
	if m.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvalidState, "only pending memberships can be rejected")
	}
	return nil
}

// CanRemove protects the owner row.
func (m *Membership) CanRemove() error {
	if m.Role == RoleOwner {
		return dErrors.New(dErrors.CodeOwnershipViolation, "the agency owner cannot be removed")
	}
	return nil
}

// CanChangeRoleTo checks a role transition for this membership. Ownership is
// never granted or taken through a role change.
func (m *Membership) CanChangeRoleTo(role Role) error {
	if m.Status != StatusActive {
		return dErrors.New(dErrors.CodeInvalidState, "roles can only be changed on active memberships")
	}
	switch role {
	case RoleOwner:
		if m.Role != RoleOwner {
			return dErrors.New(dErrors.CodeOwnershipViolation, "ownership transfer is not supported")
		}
		return nil
	case RoleAdmin, RoleMember:
		if m.Role == RoleOwner {
			return dErrors.New(dErrors.CodeOwnershipViolation, "the sole owner cannot be demoted")
		}
		return nil
	default:
		return dErrors.New(dErrors.CodeValidation, "unknown role")
	}
}

// ApplyRole sets role and reports whether anything changed.
func (m *Membership) ApplyRole(role Role, now time.Time) bool {
	if m.Role == role {
		return false
	}
	m.Role = role
	m.UpdatedAt = now
	return true
}

// AssignTeam sets or clears the team. Callers check the team's agency.
func (m *Membership) AssignTeam(teamID *id.TeamID, now time.Time) {
	m.TeamID = teamID
	m.UpdatedAt = now
}

// Clone returns a deep copy so stores never share pointers with callers.
func (m *Membership) Clone() *Membership {
	if m == nil {
		return nil
	}
	c := *m
	if m.TeamID != nil {
		t := *m.TeamID
		c.TeamID = &t
	}
	return &c
}
