// Package domainerrors carries coded errors from services to transports.
//
// Services return *Error values; stores return sentinel errors from
// pkg/platform/sentinel which services translate. Transports render the code
// with ToHTTPStatus and never inspect messages.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code is a stable, machine-readable error class.
type Code string

const (
	// CodeConflict covers uniqueness violations: duplicate slug, duplicate
	// (agency, recruiter) membership, duplicate pending application.
	CodeConflict Code = "conflict"
	// CodeInvalidState covers transitions from the wrong state, such as
	// rejecting a membership that is already active.
	CodeInvalidState Code = "invalid_state"
	// CodePolicyViolation covers business rules such as an agency that is not
	// accepting members.
	CodePolicyViolation Code = "policy_violation"
	// CodeOwnershipViolation protects the single owner row: removing or
	// demoting the owner, granting ownership, deleting an owning recruiter.
	CodeOwnershipViolation Code = "ownership_violation"
	// CodeForbidden covers callers whose own membership does not grant the role.
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeValidation   Code = "validation_error"
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeUnauthorized Code = "unauthorized"
	// CodeInvariantViolation is raised by aggregate constructors; services
	// convert it to CodeValidation before it reaches a transport.
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Error is a coded domain error. The wrapped cause is kept for logs only.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a coded error with no cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the outermost code in the chain, or CodeInternal when err
// carries no domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost domain error in the chain has code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == code
}

// Is is an alias of HasCode kept for handler call sites.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// IsConflict reports uniqueness and wrong-state failures. Callers may retry
// only after re-reading state.
func IsConflict(err error) bool {
	return HasCode(err, CodeConflict) || HasCode(err, CodeInvalidState)
}

// IsPolicy reports business-rule, ownership and role failures. Not retryable
// without a change of intent.
func IsPolicy(err error) bool {
	return HasCode(err, CodePolicyViolation) || HasCode(err, CodeOwnershipViolation) || HasCode(err, CodeForbidden)
}

func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsValidation reports malformed input.
func IsValidation(err error) bool {
	return HasCode(err, CodeValidation) || HasCode(err, CodeBadRequest) || HasCode(err, CodeInvalidInput)
}

// ToHTTPStatus maps a code to its response status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeConflict, CodeInvalidState, CodeOwnershipViolation:
		return http.StatusConflict
	case CodePolicyViolation, CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation, CodeBadRequest, CodeInvalidInput, CodeInvariantViolation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
