package httputil

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
	"agencyhub/pkg/requestcontext"
)

// PathID parses the named chi URL parameter with parse. On failure the error
// response is already written and ok is false.
func PathID[T any](w http.ResponseWriter, r *http.Request, name string, parse func(string) (T, error)) (T, bool) {
	v, err := parse(chi.URLParam(r, name))
	if err != nil {
		WriteError(w, err)
		return v, false
	}
	return v, true
}

// Principal returns the authenticated recruiter, writing 401 when the auth
// middleware did not run.
func Principal(w http.ResponseWriter, ctx context.Context) (id.RecruiterID, bool) {
	recruiterID := requestcontext.RecruiterID(ctx)
	if recruiterID.IsNil() {
		WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return recruiterID, false
	}
	return recruiterID, true
}

// Fail logs a failed service call and writes its error response. Client
// errors log at warn, everything else at error.
func Fail(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, msg string, err error, args ...any) {
	args = append(args, "request_id", requestcontext.RequestID(ctx), "error", err)
	if dErrors.ToHTTPStatus(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, msg, args...)
	} else {
		logger.WarnContext(ctx, msg, args...)
	}
	WriteError(w, err)
}
