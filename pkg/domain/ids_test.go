package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "agencyhub/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseRecruiterID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseRecruiterID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseRecruiterID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseRecruiterID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, RecruiterID(validUUID), id)
	})
}

// TestParseID_SecurityInvariants validates trust-boundary parsing rules.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE memberships;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Empty string", "", true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAgencyID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestAllIDTypes_ConsistentBehavior ensures all ID types parse identically.
func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()
	invalidInputs := []string{"", "invalid", uuid.Nil.String()}

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errRecruiter := ParseRecruiterID(validUUID)
		_, errAgency := ParseAgencyID(validUUID)
		_, errTeam := ParseTeamID(validUUID)
		_, errMembership := ParseMembershipID(validUUID)
		_, errApplication := ParseApplicationID(validUUID)

		require.NoError(t, errRecruiter)
		require.NoError(t, errAgency)
		require.NoError(t, errTeam)
		require.NoError(t, errMembership)
		require.NoError(t, errApplication)
	})

	for _, input := range invalidInputs {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errRecruiter := ParseRecruiterID(input)
			_, errAgency := ParseAgencyID(input)
			_, errTeam := ParseTeamID(input)
			_, errMembership := ParseMembershipID(input)
			_, errApplication := ParseApplicationID(input)

			require.Error(t, errRecruiter)
			require.Error(t, errAgency)
			require.Error(t, errTeam)
			require.Error(t, errMembership)
			require.Error(t, errApplication)
		})
	}
}

func TestIDsMarshalAsStrings(t *testing.T) {
	raw := uuid.New()
	out, err := json.Marshal(struct {
		Agency AgencyID `json:"agency_id"`
		Team   *TeamID  `json:"team_id"`
	}{Agency: AgencyID(raw)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"agency_id":"`+raw.String()+`","team_id":null}`, string(out))
}
