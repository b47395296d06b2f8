package models

import (
	"strings"
	"time"

	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

const maxMessageLength = 2000

// Application is a recruiter's request to join an agency, held outside the
// ledger until an owner or admin resolves it.
//
// Invariants:
//   - At most one pending application per (AgencyID, RecruiterID)
//   - pending -> approved and pending -> rejected are the only transitions;
//     both are terminal
//   - ResolvedAt and ResolvedBy are set exactly when the status is terminal
type Application struct {
	ID          id.ApplicationID `json:"id"`
	AgencyID    id.AgencyID      `json:"agency_id"`
	RecruiterID id.RecruiterID   `json:"recruiter_id"`
	Status      Status           `json:"status"`
	Message     string           `json:"message"`
	CreatedAt   time.Time        `json:"created_at"`
	ResolvedAt  *time.Time       `json:"resolved_at,omitempty"`
	ResolvedBy  *id.RecruiterID  `json:"resolved_by,omitempty"`
}

func NewApplication(applicationID id.ApplicationID, agencyID id.AgencyID, recruiterID id.RecruiterID, message string, now time.Time) (*Application, error) {
	if applicationID.IsNil() || agencyID.IsNil() || recruiterID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "application requires application, agency and recruiter ids")
	}
	message = strings.TrimSpace(message)
	if len(message) > maxMessageLength {
		return nil, dErrors.New(dErrors.CodeValidation, "message must be at most 2000 characters")
	}
	return &Application{
		ID:          applicationID,
		AgencyID:    agencyID,
		RecruiterID: recruiterID,
		Status:      StatusPending,
		Message:     message,
		CreatedAt:   now,
	}, nil
}

func (a *Application) IsPending() bool { return a.Status == StatusPending }

// CanResolve requires a pending application.
func (a *Application) CanResolve() error {
	if a.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvalidState, "application is already "+string(a.Status))
	}
	return nil
}

func (a *Application) resolve(status Status, by id.RecruiterID, now time.Time) {
	a.Status = status
	a.ResolvedAt = &now
	a.ResolvedBy = &by
}

// ApplyApproval marks the application approved. Call CanResolve first.
func (a *Application) ApplyApproval(by id.RecruiterID, now time.Time) {
	a.resolve(StatusApproved, by, now)
}

// ApplyRejection marks the application rejected. Call CanResolve first.
func (a *Application) ApplyRejection(by id.RecruiterID, now time.Time) {
	a.resolve(StatusRejected, by, now)
}

func (a *Application) Clone() *Application {
	if a == nil {
		return nil
	}
	c := *a
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	if a.ResolvedBy != nil {
		r := *a.ResolvedBy
		c.ResolvedBy = &r
	}
	return &c
}

// ApplicantSnapshot is the profile view shown to reviewers.
type ApplicantSnapshot struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Available   bool   `json:"available"`
}

// Stats is the best-effort performance summary attached to pending items.
type Stats struct {
	Revenue        float64 `json:"revenue"`
	Placements     int     `json:"placements"`
	TimeToFillDays float64 `json:"time_to_fill_days"`
}

// PendingItem is one enriched row of the review queue. Applicant and Stats
// are nil when the lookup failed or returned nothing.
type PendingItem struct {
	Application *Application       `json:"application"`
	Applicant   *ApplicantSnapshot `json:"applicant"`
	Stats       *Stats             `json:"stats"`
}
