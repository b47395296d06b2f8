package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "agencyhub/pkg/domain-errors"
)

// Typed identifiers keep recruiter, agency, team, membership and application
// ids from being swapped at compile time. Construct them with the Parse
// functions at trust boundaries; direct conversion from uuid.UUID is for
// stores and tests.
type (
	RecruiterID   uuid.UUID
	AgencyID      uuid.UUID
	TeamID        uuid.UUID
	MembershipID  uuid.UUID
	ApplicationID uuid.UUID
)

// maxIDLength bounds input before uuid.Parse sees it.
const maxIDLength = 64

func parseUUID(s, label string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	if len(s) > maxIDLength {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	return u, nil
}

func ParseRecruiterID(s string) (RecruiterID, error) {
	u, err := parseUUID(s, "recruiter id")
	return RecruiterID(u), err
}

func ParseAgencyID(s string) (AgencyID, error) {
	u, err := parseUUID(s, "agency id")
	return AgencyID(u), err
}

func ParseTeamID(s string) (TeamID, error) {
	u, err := parseUUID(s, "team id")
	return TeamID(u), err
}

func ParseMembershipID(s string) (MembershipID, error) {
	u, err := parseUUID(s, "membership id")
	return MembershipID(u), err
}

func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parseUUID(s, "application id")
	return ApplicationID(u), err
}

func (id RecruiterID) String() string   { return uuid.UUID(id).String() }
func (id AgencyID) String() string      { return uuid.UUID(id).String() }
func (id TeamID) String() string        { return uuid.UUID(id).String() }
func (id MembershipID) String() string  { return uuid.UUID(id).String() }
func (id ApplicationID) String() string { return uuid.UUID(id).String() }

func (id RecruiterID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id AgencyID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id TeamID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id MembershipID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id ApplicationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed ids serialize as plain UUID strings in JSON.
func (id RecruiterID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id AgencyID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id TeamID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id MembershipID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id ApplicationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
