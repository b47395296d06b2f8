package models

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(strings.ToLower(strings.TrimSpace(s))); v {
	case VisibilityPublic, VisibilityPrivate:
		return v, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "visibility must be public or private")
	}
}

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusActive, StatusInactive:
		return st, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "status must be active or inactive")
	}
}

const (
	maxNameLength        = 128
	maxDescriptionLength = 2000
	maxURLLength         = 512
)

var slugPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{1,61}[a-z0-9])$`)

// ValidateSlug accepts 3-63 lowercase letters, digits and inner hyphens.
func ValidateSlug(slug string) error {
	if !slugPattern.MatchString(slug) || strings.Contains(slug, "--") {
		return dErrors.New(dErrors.CodeValidation,
			"slug must be 3-63 lowercase letters, digits or single hyphens, not starting or ending with a hyphen")
	}
	return nil
}

// Branding is the presentation data shown on listings.
type Branding struct {
	Description  string `json:"description"`
	LogoURL      string `json:"logo_url"`
	Website      string `json:"website"`
	ContactEmail string `json:"contact_email"`
}

func (b Branding) validate() error {
	if len(b.Description) > maxDescriptionLength {
		return dErrors.New(dErrors.CodeValidation, "description must be at most 2000 characters")
	}
	for field, raw := range map[string]string{"logo_url": b.LogoURL, "website": b.Website} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || len(raw) > maxURLLength || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return dErrors.New(dErrors.CodeValidation, field+" must be an absolute http(s) URL")
		}
	}
	if b.ContactEmail != "" && !strings.Contains(b.ContactEmail, "@") {
		return dErrors.New(dErrors.CodeValidation, "contact_email is invalid")
	}
	return nil
}

func (b Branding) normalized() Branding {
	return Branding{
		Description:  strings.TrimSpace(b.Description),
		LogoURL:      strings.TrimSpace(b.LogoURL),
		Website:      strings.TrimSpace(b.Website),
		ContactEmail: strings.ToLower(strings.TrimSpace(b.ContactEmail)),
	}
}

// Agency is the aggregate root of the registry.
//
// Invariants:
//   - Slug is unique platform-wide and immutable after creation
//   - OwnerID names exactly one recruiter, mirrored by the single owner
//     membership row written in the same transaction
//   - Inactive or private agencies never appear in discovery
//   - Discovery counts are derived from the ledger on read, never stored here
type Agency struct {
	ID               id.AgencyID    `json:"id"`
	Slug             string         `json:"slug"`
	Name             string         `json:"name"`
	OwnerID          id.RecruiterID `json:"owner_id"`
	Visibility       Visibility     `json:"visibility"`
	AcceptingMembers bool           `json:"accepting_members"`
	Status           Status         `json:"status"`
	Branding         Branding       `json:"branding"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func validateName(name string) error {
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(name) > maxNameLength {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 128 characters")
	}
	return nil
}

// NewAgency builds an active agency. Slug is lower-cased before validation.
func NewAgency(agencyID id.AgencyID, name, slug string, ownerID id.RecruiterID, visibility Visibility, accepting bool, branding Branding, now time.Time) (*Agency, error) {
	if agencyID.IsNil() || ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "agency and owner ids are required")
	}
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	if visibility == "" {
		visibility = VisibilityPublic
	}
	if _, err := ParseVisibility(string(visibility)); err != nil {
		return nil, err
	}
	branding = branding.normalized()
	if err := branding.validate(); err != nil {
		return nil, err
	}
	return &Agency{
		ID:               agencyID,
		Slug:             slug,
		Name:             name,
		OwnerID:          ownerID,
		Visibility:       visibility,
		AcceptingMembers: accepting,
		Status:           StatusActive,
		Branding:         branding,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (a *Agency) IsActive() bool { return a.Status == StatusActive }

// IsListed reports whether the agency belongs in discovery.
func (a *Agency) IsListed() bool {
	return a.Status == StatusActive && a.Visibility == VisibilityPublic
}

// CanAcceptJoins gates join requests and applications.
func (a *Agency) CanAcceptJoins() error {
	if a.Status != StatusActive {
		return dErrors.New(dErrors.CodePolicyViolation, "agency is inactive")
	}
	if !a.AcceptingMembers {
		return dErrors.New(dErrors.CodePolicyViolation, "agency is not accepting members")
	}
	return nil
}

// Update carries optional field changes; nil fields are untouched.
type Update struct {
	Name             *string
	Visibility       *Visibility
	AcceptingMembers *bool
	Status           *Status
	Description      *string
	LogoURL          *string
	Website          *string
	ContactEmail     *string
}

// TouchesStatus reports whether the update changes lifecycle status, which
// needs stronger authority than listing edits.
func (u Update) TouchesStatus() bool { return u.Status != nil }

func (u Update) IsEmpty() bool {
	return u.Name == nil && u.Visibility == nil && u.AcceptingMembers == nil && u.Status == nil &&
		u.Description == nil && u.LogoURL == nil && u.Website == nil && u.ContactEmail == nil
}

// Apply validates and applies u. It returns the names of changed fields.
func (a *Agency) Apply(u Update, now time.Time) ([]string, error) {
	next := *a
	var changed []string
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
		if name != a.Name {
			next.Name = name
			changed = append(changed, "name")
		}
	}
	if u.Visibility != nil {
		v, err := ParseVisibility(string(*u.Visibility))
		if err != nil {
			return nil, err
		}
		if v != a.Visibility {
			next.Visibility = v
			changed = append(changed, "visibility")
		}
	}
	if u.AcceptingMembers != nil && *u.AcceptingMembers != a.AcceptingMembers {
		next.AcceptingMembers = *u.AcceptingMembers
		changed = append(changed, "accepting_members")
	}
	if u.Status != nil {
		st, err := ParseStatus(string(*u.Status))
		if err != nil {
			return nil, err
		}
		if st != a.Status {
			next.Status = st
			changed = append(changed, "status")
		}
	}
	b := a.Branding
	if u.Description != nil {
		b.Description = *u.Description
	}
	if u.LogoURL != nil {
		b.LogoURL = *u.LogoURL
	}
	if u.Website != nil {
		b.Website = *u.Website
	}
	if u.ContactEmail != nil {
		b.ContactEmail = *u.ContactEmail
	}
	b = b.normalized()
	if err := b.validate(); err != nil {
		return nil, err
	}
	if b != a.Branding {
		next.Branding = b
		changed = append(changed, "branding")
	}
	if len(changed) == 0 {
		return nil, nil
	}
	next.UpdatedAt = now
	*a = next
	return changed, nil
}

// Listing is the discovery projection of an agency.
type Listing struct {
	ID               id.AgencyID `json:"id"`
	Slug             string      `json:"slug"`
	Name             string      `json:"name"`
	Branding         Branding    `json:"branding"`
	AcceptingMembers bool        `json:"accepting_members"`
	MemberCount      int         `json:"member_count"`
}
