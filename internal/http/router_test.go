package httpapi_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	agencyhandler "agencyhub/internal/agency/handler"
	apphandler "agencyhub/internal/application/handler"
	httpapi "agencyhub/internal/http"
	"agencyhub/internal/identity"
	membershiphandler "agencyhub/internal/membership/handler"
	"agencyhub/internal/platform/metrics"
	recruiterhandler "agencyhub/internal/recruiter/handler"
	teamhandler "agencyhub/internal/team/handler"
	"agencyhub/internal/testenv"
	"agencyhub/pkg/platform/middleware/admin"
	"agencyhub/pkg/platform/middleware/auth"
	"agencyhub/pkg/testutil"
)

const (
	signingKey = "router-test-key"
	adminToken = "let-me-in"
)

type fixture struct {
	env       *testenv.Env
	router    http.Handler
	validator *identity.Validator
}

func newFixture(t *testing.T, health map[string]httpapi.HealthCheck, withAdmin bool) *fixture {
	t.Helper()
	env := testenv.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validator := identity.NewValidator(signingKey, "")
	reg := prometheus.NewRegistry()

	cfg := httpapi.Config{
		Agencies: agencyhandler.New(env.AgencyService, logger),
		Modules: []httpapi.Registrar{
			recruiterhandler.New(env.RecruiterService, logger),
			membershiphandler.New(env.MembershipService, logger),
			teamhandler.New(env.TeamService, logger),
			apphandler.New(env.ApplicationService, logger),
		},
		RequireAuth: auth.RequireAuth(validator, logger),
		Health:      health,
		Metrics:     metrics.New(reg),
		Gatherer:    reg,
		Logger:      logger,
		Timeout:     5 * time.Second,
	}
	if withAdmin {
		hash, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.MinCost)
		require.NoError(t, err)
		cfg.RequireAdmin = admin.RequireAdminToken(hash, logger)
	}
	return &fixture{env: env, router: httpapi.NewRouter(cfg), validator: validator}
}

func (f *fixture) bearer(t *testing.T, req *http.Request, recruiterID uuid.UUID) *http.Request {
	t.Helper()
	token, err := f.validator.Sign(recruiterID, "", time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestHealth(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		f := newFixture(t, map[string]httpapi.HealthCheck{
			"database": func(context.Context) error { return nil },
		}, false)
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/health"))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "ok")
		testutil.AssertJSONContains(t, rr, "database", "ok")
	})

	t.Run("a failing dependency degrades", func(t *testing.T) {
		f := newFixture(t, map[string]httpapi.HealthCheck{
			"database": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		}, false)
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/health"))
		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
		testutil.AssertJSONContains(t, rr, "status", "degraded")
		testutil.AssertJSONContains(t, rr, "redis", "connection refused")
	})
}

func TestMetricsEndpointExposesLatency(t *testing.T) {
	f := newFixture(t, nil, false)
	testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/discovery/agencies"))

	rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	testutil.AssertStatusOK(t, rr)
	assert.Contains(t, rr.Body.String(), `route="/discovery/agencies"`)
}

func TestAuthBoundary(t *testing.T) {
	f := newFixture(t, nil, false)

	t.Run("discovery is public", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/discovery/agencies"))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONHasKey(t, rr, "agencies")
	})

	t.Run("missing token", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/me"))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("token signed with another key", func(t *testing.T) {
		other := identity.NewValidator("some-other-key", "")
		token, err := other.Sign(uuid.New(), "", time.Hour)
		require.NoError(t, err)
		req := testutil.NewRequest(t, http.MethodGet, "/me")
		req.Header.Set("Authorization", "Bearer "+token)
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("valid token registers and creates an agency", func(t *testing.T) {
		me := uuid.New()
		req := f.bearer(t, testutil.NewJSONRequest(t, http.MethodPut, "/me", map[string]string{
			"email": "router@example.com",
		}), me)
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusOK(t, rr)

		req = f.bearer(t, testutil.NewJSONRequest(t, http.MethodPost, "/agencies", map[string]string{
			"name": "Router Agency", "slug": "router-agency",
		}), me)
		rr = testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusCreated)

		rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/discovery/agencies"))
		testutil.AssertStatusOK(t, rr)
		assert.Contains(t, rr.Body.String(), "router-agency")
	})

	t.Run("non-JSON bodies are refused", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/agencies", strings.NewReader("name=x"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := testutil.DoRequest(f.router, f.bearer(t, req, uuid.New()))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})
}

func TestAdminRoutes(t *testing.T) {
	t.Run("disabled without a token hash", func(t *testing.T) {
		f := newFixture(t, nil, false)
		req := testutil.NewRequest(t, http.MethodDelete, "/admin/agencies/"+uuid.NewString())
		req.Header.Set(admin.HeaderAdminToken, adminToken)
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})

	t.Run("wrong token", func(t *testing.T) {
		f := newFixture(t, nil, true)
		req := testutil.NewRequest(t, http.MethodDelete, "/admin/agencies/"+uuid.NewString())
		req.Header.Set(admin.HeaderAdminToken, "guess")
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("admin deletes any agency", func(t *testing.T) {
		f := newFixture(t, nil, true)
		owner := f.env.Recruiter(t)
		agency := f.env.Agency(t, owner, true)

		req := testutil.NewRequest(t, http.MethodDelete, "/admin/agencies/"+agency.ID.String())
		req.Header.Set(admin.HeaderAdminToken, adminToken)
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusNoContent)

		_, err := f.env.Agencies.FindByID(context.Background(), agency.ID)
		assert.Error(t, err)
	})
}
