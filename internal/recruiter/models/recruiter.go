package models

import (
	"net/mail"
	"strings"
	"time"

	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
)

const (
	maxEmailLength       = 254
	maxDisplayNameLength = 128
)

// Recruiter is a directory profile for one identity-provider principal. The
// ID is the principal id, so a recruiter is never created twice.
//
// Invariants:
//   - Email is normalized (trimmed, lower-cased) and unique case-insensitively
//   - DisplayName is non-empty and at most 128 characters
//   - A recruiter that owns an agency is never deleted
type Recruiter struct {
	ID          id.RecruiterID `json:"id"`
	Email       string         `json:"email"`
	DisplayName string         `json:"display_name"`
	Available   bool           `json:"available"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks an already-normalized email.
func ValidateEmail(email string) error {
	if email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if len(email) > maxEmailLength {
		return dErrors.New(dErrors.CodeValidation, "email is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	return nil
}

func validateDisplayName(name string) error {
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "display name is required")
	}
	if len(name) > maxDisplayNameLength {
		return dErrors.New(dErrors.CodeValidation, "display name must be at most 128 characters")
	}
	return nil
}

func NewRecruiter(recruiterID id.RecruiterID, email, displayName string, now time.Time) (*Recruiter, error) {
	if recruiterID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "recruiter id is required")
	}
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	displayName = strings.TrimSpace(displayName)
	if err := validateDisplayName(displayName); err != nil {
		return nil, err
	}
	return &Recruiter{
		ID:          recruiterID,
		Email:       email,
		DisplayName: displayName,
		Available:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ProfileUpdate carries optional profile changes; nil fields are untouched.
type ProfileUpdate struct {
	Email       *string
	DisplayName *string
	Available   *bool
}

// Apply validates and applies u, reporting whether anything changed.
func (r *Recruiter) Apply(u ProfileUpdate, now time.Time) (bool, error) {
	next := *r
	if u.Email != nil {
		email := NormalizeEmail(*u.Email)
		if err := ValidateEmail(email); err != nil {
			return false, err
		}
		next.Email = email
	}
	if u.DisplayName != nil {
		name := strings.TrimSpace(*u.DisplayName)
		if err := validateDisplayName(name); err != nil {
			return false, err
		}
		next.DisplayName = name
	}
	if u.Available != nil {
		next.Available = *u.Available
	}
	if next == *r {
		return false, nil
	}
	next.UpdatedAt = now
	*r = next
	return true, nil
}
