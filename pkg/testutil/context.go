package testutil

import (
	"net/http"

	id "agencyhub/pkg/domain"
	"agencyhub/pkg/requestcontext"
)

// WithRecruiter adds the authenticated recruiter to the request context,
// as the auth middleware would.
func WithRecruiter(req *http.Request, recruiterID id.RecruiterID) *http.Request {
	return req.WithContext(requestcontext.WithRecruiterID(req.Context(), recruiterID))
}

// WithAdmin marks the request as admitted by the admin token middleware.
func WithAdmin(req *http.Request) *http.Request {
	return req.WithContext(requestcontext.WithPlatformAdmin(req.Context()))
}
