package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: entity does not exist in store
//   - ErrAlreadyUsed: a unique key (slug, email, team name) is taken
//   - ErrConflict: a unique pair already exists (agency+recruiter membership,
//     agency+recruiter pending application)
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrUnavailable: store temporarily unreachable; retry the transaction
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
