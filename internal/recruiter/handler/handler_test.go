package handler_test

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agencyhub/internal/recruiter/handler"
	"agencyhub/internal/testenv"
	id "agencyhub/pkg/domain"
	"agencyhub/pkg/testutil"
)

type profileBody struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Available   bool   `json:"available"`
}

func newRouter(env *testenv.Env) chi.Router {
	r := chi.NewRouter()
	handler.New(env.RecruiterService, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func TestProfileLifecycle(t *testing.T) {
	env := testenv.New()
	router := newRouter(env)
	me := id.RecruiterID(uuid.New())

	rr := testutil.DoRequest(router, testutil.WithRecruiter(testutil.NewRequest(t, http.MethodGet, "/me"), me))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")

	req := testutil.NewJSONRequest(t, http.MethodPut, "/me", map[string]string{"email": "Jane.Doe@Example.com"})
	rr = testutil.DoRequest(router, testutil.WithRecruiter(req, me))
	testutil.AssertStatusOK(t, rr)
	created := testutil.UnmarshalResponse[profileBody](t, rr)
	assert.Equal(t, me.String(), created.ID)
	assert.Equal(t, "jane.doe@example.com", created.Email)
	assert.Equal(t, "Jane Doe", created.DisplayName)

	req = testutil.NewJSONRequest(t, http.MethodPut, "/me", map[string]string{"email": "jane@example.com", "display_name": "J. Doe"})
	rr = testutil.DoRequest(router, testutil.WithRecruiter(req, me))
	testutil.AssertStatusOK(t, rr)
	refreshed := testutil.UnmarshalResponse[profileBody](t, rr)
	assert.Equal(t, "jane@example.com", refreshed.Email)
	assert.Equal(t, "J. Doe", refreshed.DisplayName)

	req = testutil.NewJSONRequest(t, http.MethodPatch, "/me", map[string]any{"available": false})
	rr = testutil.DoRequest(router, testutil.WithRecruiter(req, me))
	testutil.AssertStatusOK(t, rr)
	assert.False(t, testutil.UnmarshalResponse[profileBody](t, rr).Available)

	rr = testutil.DoRequest(router, testutil.WithRecruiter(testutil.NewRequest(t, http.MethodDelete, "/me"), me))
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	rr = testutil.DoRequest(router, testutil.WithRecruiter(testutil.NewRequest(t, http.MethodGet, "/me"), me))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestProfileErrors(t *testing.T) {
	env := testenv.New()
	router := newRouter(env)

	t.Run("no principal", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/me"))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("invalid email", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPut, "/me", map[string]string{"email": "not-an-email"})
		rr := testutil.DoRequest(router, testutil.WithRecruiter(req, id.RecruiterID(uuid.New())))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	t.Run("email taken by another recruiter", func(t *testing.T) {
		first := env.Recruiter(t)
		firstProfile, err := env.RecruiterService.FindByID(t.Context(), first)
		require.NoError(t, err)

		req := testutil.NewJSONRequest(t, http.MethodPut, "/me", map[string]string{"email": firstProfile.Email})
		rr := testutil.DoRequest(router, testutil.WithRecruiter(req, id.RecruiterID(uuid.New())))
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
	})

	t.Run("agency owner cannot delete the profile", func(t *testing.T) {
		owner := env.Recruiter(t)
		env.Agency(t, owner, true)

		rr := testutil.DoRequest(router, testutil.WithRecruiter(testutil.NewRequest(t, http.MethodDelete, "/me"), owner))
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "ownership_violation")
	})
}
