package admin

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	dErrors "agencyhub/pkg/domain-errors"
	"agencyhub/pkg/platform/httputil"
	request "agencyhub/pkg/platform/middleware/request"
	"agencyhub/pkg/requestcontext"
)

// HeaderAdminToken carries the platform administrator token.
const HeaderAdminToken = "X-Admin-Token"

// RequireAdminToken admits requests whose X-Admin-Token matches the configured
// bcrypt hash and marks the context as a platform administrator. An empty hash
// disables the admin surface entirely.
func RequireAdminToken(tokenHash []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := r.Header.Get(HeaderAdminToken)
			if len(tokenHash) == 0 || token == "" ||
				bcrypt.CompareHashAndPassword(tokenHash, []byte(token)) != nil {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithPlatformAdmin(ctx)))
		})
	}
}
