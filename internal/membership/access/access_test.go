package access

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agencyhub/internal/membership/models"
	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
	"agencyhub/pkg/platform/sentinel"
)

type plainFinder struct {
	rows map[id.RecruiterID]*models.Membership
}

func (f *plainFinder) FindByAgencyAndRecruiter(_ context.Context, _ id.AgencyID, recruiterID id.RecruiterID) (*models.Membership, error) {
	m, ok := f.rows[recruiterID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return m, nil
}

// lockingFinder serves a fresher row through FindForShare, the way a
// Postgres read that waited on a concurrent demotion would.
type lockingFinder struct {
	plainFinder
	locked map[id.RecruiterID]*models.Membership
}

func (f *lockingFinder) FindForShare(_ context.Context, _ id.AgencyID, recruiterID id.RecruiterID) (*models.Membership, error) {
	m, ok := f.locked[recruiterID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return m, nil
}

func membership(role models.Role, status models.Status) *models.Membership {
	return &models.Membership{ID: id.MembershipID(uuid.New()), Role: role, Status: status}
}

func TestRequire(t *testing.T) {
	agency := id.AgencyID(uuid.New())
	admin := id.RecruiterID(uuid.New())
	pending := id.RecruiterID(uuid.New())
	finder := &plainFinder{rows: map[id.RecruiterID]*models.Membership{
		admin:   membership(models.RoleAdmin, models.StatusActive),
		pending: membership(models.RoleMember, models.StatusPending),
	}}
	r := NewResolver(finder)
	ctx := context.Background()

	tests := []struct {
		name     string
		actor    id.RecruiterID
		check    Check
		wantCode dErrors.Code
	}{
		{name: "admin manages members", actor: admin, check: ManageMembers},
		{name: "admin cannot change roles", actor: admin, check: ChangeRoles, wantCode: dErrors.CodeForbidden},
		{name: "pending membership", actor: pending, check: AnyMember, wantCode: dErrors.CodeForbidden},
		{name: "outsider", actor: id.RecruiterID(uuid.New()), check: AnyMember, wantCode: dErrors.CodeForbidden},
		{name: "anonymous", actor: id.RecruiterID(uuid.Nil), check: AnyMember, wantCode: dErrors.CodeUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Require(ctx, agency, tt.actor, tt.check, "act")
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			assert.True(t, dErrors.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestRequireReadsLockedRow(t *testing.T) {
	agency := id.AgencyID(uuid.New())
	actor := id.RecruiterID(uuid.New())
	finder := &lockingFinder{
		plainFinder: plainFinder{rows: map[id.RecruiterID]*models.Membership{
			actor: membership(models.RoleAdmin, models.StatusActive),
		}},
		locked: map[id.RecruiterID]*models.Membership{
			actor: membership(models.RoleMember, models.StatusActive),
		},
	}

	_, err := NewResolver(finder).Require(context.Background(), agency, actor, ManageMembers, "remove members")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden), "a demoted admin loses authority: %v", err)
}
