package admin

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"agencyhub/pkg/requestcontext"
)

func TestRequireAdminToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	var admin bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin = requestcontext.IsPlatformAdmin(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	cases := []struct {
		name   string
		hash   []byte
		token  string
		status int
	}{
		{"matching token", hash, "s3cret", http.StatusNoContent},
		{"wrong token", hash, "guess", http.StatusUnauthorized},
		{"missing token", hash, "", http.StatusUnauthorized},
		{"admin surface disabled", nil, "s3cret", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			admin = false
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodDelete, "/admin/agencies/x", nil)
			if tc.token != "" {
				r.Header.Set(HeaderAdminToken, tc.token)
			}
			RequireAdminToken(tc.hash, logger)(next).ServeHTTP(w, r)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.status == http.StatusNoContent, admin)
		})
	}
}
