// Package access derives a caller's authority in an agency from the ledger.
// Roles are always read from the caller's own stored membership, never from
// anything the client sends.
package access

import (
	"context"
	"errors"

	"agencyhub/internal/membership/models"
	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
	"agencyhub/pkg/platform/sentinel"
)

type MembershipFinder interface {
	FindByAgencyAndRecruiter(ctx context.Context, agencyID id.AgencyID, recruiterID id.RecruiterID) (*models.Membership, error)
}

// ShareLocker is implemented by stores that can hold the caller's row until
// the enclosing transaction ends, so a concurrent demotion or removal cannot
// commit while the caller still acts on the old role.
type ShareLocker interface {
	FindForShare(ctx context.Context, agencyID id.AgencyID, recruiterID id.RecruiterID) (*models.Membership, error)
}

// Check is one of the models.Role capability predicates.
type Check func(models.Role) bool

var (
	ManageMembers Check = models.Role.CanManageMembers
	ChangeRoles   Check = models.Role.CanChangeRoles
	ManageTeams   Check = models.Role.CanManageTeams
	EditAgency    Check = models.Role.CanEditAgency
	ChangeStatus  Check = models.Role.CanChangeStatus
	DeleteAgency  Check = models.Role.CanDeleteAgency
	// AnyMember admits every active member.
	AnyMember Check = func(models.Role) bool { return true }
)

type Resolver struct {
	memberships MembershipFinder
}

func NewResolver(memberships MembershipFinder) *Resolver {
	return &Resolver{memberships: memberships}
}

// Membership returns the actor's active membership in agencyID. A missing or
// pending membership is CodeForbidden.
func (r *Resolver) Membership(ctx context.Context, agencyID id.AgencyID, actorID id.RecruiterID) (*models.Membership, error) {
	if actorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	find := r.memberships.FindByAgencyAndRecruiter
	if locker, ok := r.memberships.(ShareLocker); ok {
		find = locker.FindForShare
	}
	m, err := find(ctx, agencyID, actorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeForbidden, "not a member of this agency")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load caller membership")
	}
	if !m.IsActive() {
		return nil, dErrors.New(dErrors.CodeForbidden, "membership is not active")
	}
	return m, nil
}

// Require returns the actor's membership when its role passes check.
func (r *Resolver) Require(ctx context.Context, agencyID id.AgencyID, actorID id.RecruiterID, check Check, action string) (*models.Membership, error) {
	m, err := r.Membership(ctx, agencyID, actorID)
	if err != nil {
		return nil, err
	}
	if !check(m.Role) {
		return nil, dErrors.New(dErrors.CodeForbidden, "role "+m.Role.String()+" cannot "+action)
	}
	return m, nil
}
