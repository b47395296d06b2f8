package handler

import (
	"encoding/json"
	"strings"

	"agencyhub/internal/membership/models"
	"agencyhub/internal/membership/service"
	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
)

// InviteRequest names the invitee by id or by email.
type InviteRequest struct {
	RecruiterID string `json:"recruiter_id" validate:"max=64"`
	Email       string `json:"email" validate:"omitempty,email,max=254"`

	recruiterID id.RecruiterID
}

func (r *InviteRequest) Validate() error {
	r.RecruiterID = strings.TrimSpace(r.RecruiterID)
	r.Email = strings.TrimSpace(r.Email)
	switch {
	case r.RecruiterID == "" && r.Email == "":
		return dErrors.New(dErrors.CodeValidation, "recruiter_id or email is required")
	case r.RecruiterID != "" && r.Email != "":
		return dErrors.New(dErrors.CodeValidation, "set either recruiter_id or email, not both")
	case r.RecruiterID != "":
		recruiterID, err := id.ParseRecruiterID(r.RecruiterID)
		if err != nil {
			return err
		}
		r.recruiterID = recruiterID
	}
	return nil
}

func (r *InviteRequest) target() service.InviteTarget {
	return service.InviteTarget{RecruiterID: r.recruiterID, Email: r.Email}
}

// PatchMemberRequest sets exactly one of role or team_id. A null or empty
// team_id clears the assignment, so TeamID keeps the raw value to tell an
// explicit null from an absent key.
type PatchMemberRequest struct {
	Role   *string         `json:"role" validate:"omitempty,oneof=owner admin member"`
	TeamID json.RawMessage `json:"team_id"`

	role   models.Role
	teamID *id.TeamID
}

func (r *PatchMemberRequest) Validate() error {
	hasTeam := len(r.TeamID) > 0
	if (r.Role != nil) == hasTeam {
		return dErrors.New(dErrors.CodeValidation, "set exactly one of role or team_id")
	}
	if r.Role != nil {
		role, err := models.ParseRole(*r.Role)
		if err != nil {
			return err
		}
		r.role = role
		return nil
	}
	var raw *string
	if err := json.Unmarshal(r.TeamID, &raw); err != nil {
		return dErrors.New(dErrors.CodeValidation, "team_id must be a string or null")
	}
	if raw == nil {
		return nil
	}
	if trimmed := strings.TrimSpace(*raw); trimmed != "" {
		teamID, err := id.ParseTeamID(trimmed)
		if err != nil {
			return err
		}
		r.teamID = &teamID
	}
	return nil
}
