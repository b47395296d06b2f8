package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
)

func TestNewTeam(t *testing.T) {
	agencyID := id.AgencyID(uuid.New())

	tests := []struct {
		name           string
		teamName       string
		specialization string
		wantCode       dErrors.Code
	}{
		{name: "valid", teamName: " Tech ", specialization: "engineering"},
		{name: "blank name", teamName: "   ", wantCode: dErrors.CodeValidation},
		{name: "long name", teamName: strings.Repeat("x", 65), wantCode: dErrors.CodeValidation},
		{name: "long specialization", teamName: "Tech", specialization: strings.Repeat("y", 65), wantCode: dErrors.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			team, err := NewTeam(id.TeamID(uuid.New()), agencyID, tt.teamName, tt.specialization, time.Now())
			if tt.wantCode != "" {
				assert.True(t, dErrors.HasCode(err, tt.wantCode))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tt.teamName), team.Name)
		})
	}
}

func TestNameKey(t *testing.T) {
	assert.Equal(t, NameKey("Tech"), NameKey("  TECH "))
}
