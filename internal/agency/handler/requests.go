package handler

import (
	"strings"
	"time"

	"agencyhub/internal/agency/models"
	"agencyhub/internal/agency/service"
	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
	"agencyhub/pkg/platform/audit"
)

// CreateAgencyRequest is the body of POST /agencies.
type CreateAgencyRequest struct {
	Name             string `json:"name" validate:"required,max=120"`
	Slug             string `json:"slug" validate:"required,max=63"`
	Visibility       string `json:"visibility" validate:"omitempty,oneof=public private"`
	AcceptingMembers *bool  `json:"accepting_members"`
	Description      string `json:"description" validate:"max=2000"`
	LogoURL          string `json:"logo_url" validate:"omitempty,url"`
	Website          string `json:"website" validate:"omitempty,url"`
	ContactEmail     string `json:"contact_email" validate:"omitempty,email"`
}

func (r *CreateAgencyRequest) toCreate() service.CreateRequest {
	accepting := true
	if r.AcceptingMembers != nil {
		accepting = *r.AcceptingMembers
	}
	return service.CreateRequest{
		Name:             r.Name,
		Slug:             r.Slug,
		Visibility:       models.Visibility(r.Visibility),
		AcceptingMembers: accepting,
		Branding: models.Branding{
			Description:  r.Description,
			LogoURL:      r.LogoURL,
			Website:      r.Website,
			ContactEmail: r.ContactEmail,
		},
	}
}

// AdminCreateAgencyRequest is the body of POST /admin/agencies.
type AdminCreateAgencyRequest struct {
	CreateAgencyRequest
	OwnerID string `json:"owner_id" validate:"required"`

	ownerID id.RecruiterID
}

func (r *AdminCreateAgencyRequest) Validate() error {
	ownerID, err := id.ParseRecruiterID(r.OwnerID)
	if err != nil {
		return err
	}
	r.ownerID = ownerID
	return nil
}

// UpdateAgencyRequest is the body of PATCH /agencies/{agencyID}. Absent
// fields are left unchanged.
type UpdateAgencyRequest struct {
	Name             *string `json:"name" validate:"omitempty,max=120"`
	Visibility       *string `json:"visibility" validate:"omitempty,oneof=public private"`
	AcceptingMembers *bool   `json:"accepting_members"`
	Status           *string `json:"status" validate:"omitempty,oneof=active inactive"`
	Description      *string `json:"description" validate:"omitempty,max=2000"`
	LogoURL          *string `json:"logo_url"`
	Website          *string `json:"website"`
	ContactEmail     *string `json:"contact_email"`
}

func (r *UpdateAgencyRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "name cannot be blank")
	}
	return nil
}

func (r *UpdateAgencyRequest) toUpdate() models.Update {
	u := models.Update{
		Name:             r.Name,
		AcceptingMembers: r.AcceptingMembers,
		Description:      r.Description,
		LogoURL:          r.LogoURL,
		Website:          r.Website,
		ContactEmail:     r.ContactEmail,
	}
	if r.Visibility != nil {
		v := models.Visibility(*r.Visibility)
		u.Visibility = &v
	}
	if r.Status != nil {
		s := models.Status(*r.Status)
		u.Status = &s
	}
	return u
}

// AuditEventResponse is one entry of an agency's audit trail.
type AuditEventResponse struct {
	Action    string    `json:"action"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actor_id,omitempty"`
	SubjectID string    `json:"subject_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Resource  string    `json:"resource,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

func toAuditResponse(events []audit.Event) map[string]any {
	out := make([]AuditEventResponse, 0, len(events))
	for _, e := range events {
		item := AuditEventResponse{
			Action:    e.Action,
			Category:  string(e.Category),
			Timestamp: e.Timestamp,
			Reason:    e.Reason,
			Resource:  e.Resource,
			RequestID: e.RequestID,
		}
		if !e.ActorID.IsNil() {
			item.ActorID = e.ActorID.String()
		}
		if !e.Subject.IsNil() {
			item.SubjectID = e.Subject.String()
		}
		out = append(out, item)
	}
	return map[string]any{"events": out}
}
