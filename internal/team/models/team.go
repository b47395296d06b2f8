package models

import (
	"strings"
	"time"

	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
)

const (
	maxTeamNameLength       = 64
	maxSpecializationLength = 64
)

// Team is a named grouping inside one agency. Names are unique per agency,
// case-insensitively.
type Team struct {
	ID             id.TeamID   `json:"id"`
	AgencyID       id.AgencyID `json:"agency_id"`
	Name           string      `json:"name"`
	Specialization string      `json:"specialization,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

func NewTeam(teamID id.TeamID, agencyID id.AgencyID, name, specialization string, now time.Time) (*Team, error) {
	if teamID.IsNil() || agencyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "team and agency ids are required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "team name is required")
	}
	if len(name) > maxTeamNameLength {
		return nil, dErrors.New(dErrors.CodeValidation, "team name must be at most 64 characters")
	}
	specialization = strings.TrimSpace(specialization)
	if len(specialization) > maxSpecializationLength {
		return nil, dErrors.New(dErrors.CodeValidation, "specialization must be at most 64 characters")
	}
	return &Team{
		ID:             teamID,
		AgencyID:       agencyID,
		Name:           name,
		Specialization: specialization,
		CreatedAt:      now,
	}, nil
}

// NameKey is the uniqueness key for a team name.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
