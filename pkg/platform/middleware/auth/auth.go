package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
	"agencyhub/pkg/platform/httputil"
	request "agencyhub/pkg/platform/middleware/request"
	"agencyhub/pkg/requestcontext"
)

// TokenValidator validates identity-provider bearer tokens and returns the
// principal they were issued for.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims are the fields the service relies on from a validated token.
type Claims struct {
	RecruiterID id.RecruiterID
}

// RequireAuth rejects requests without a valid bearer token and stores the
// authenticated recruiter id in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil || claims == nil || claims.RecruiterID.IsNil() {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token"))
				return
			}

			ctx = requestcontext.WithRecruiterID(ctx, claims.RecruiterID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
