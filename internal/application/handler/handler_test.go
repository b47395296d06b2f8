package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	agencymodels "agencyhub/internal/agency/models"
	"agencyhub/internal/application/handler"
	"agencyhub/internal/stats"
	statsmocks "agencyhub/internal/stats/mocks"
	"agencyhub/internal/testenv"
	id "agencyhub/pkg/domain"
	"agencyhub/pkg/testutil"
)

type applicationBody struct {
	ID          string `json:"id"`
	AgencyID    string `json:"agency_id"`
	RecruiterID string `json:"recruiter_id"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	ResolvedBy  string `json:"resolved_by"`
}

type ApplicationHandlerSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	provider *statsmocks.MockProvider
	env      *testenv.Env
	router   chi.Router
	owner    id.RecruiterID
	agency   *agencymodels.Agency
}

func TestApplicationHandlerSuite(t *testing.T) {
	suite.Run(t, new(ApplicationHandlerSuite))
}

func (s *ApplicationHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.provider = statsmocks.NewMockProvider(s.ctrl)
	s.env = testenv.New(testenv.WithStats(s.provider))
	s.router = chi.NewRouter()
	handler.New(s.env.ApplicationService, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
	s.owner = s.env.Recruiter(s.T())
	s.agency = s.env.Agency(s.T(), s.owner, true)
}

func (s *ApplicationHandlerSuite) do(req *http.Request, actor id.RecruiterID) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.WithRecruiter(req, actor))
}

func (s *ApplicationHandlerSuite) base() string {
	return "/agencies/" + s.agency.ID.String() + "/applications"
}

func (s *ApplicationHandlerSuite) apply(applicant id.RecruiterID, message string) applicationBody {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.base(), map[string]string{"message": message})
	rr := s.do(req, applicant)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return *testutil.UnmarshalResponse[applicationBody](s.T(), rr)
}

func (s *ApplicationHandlerSuite) TestApplyAndListPending() {
	applicant := s.env.Recruiter(s.T())
	app := s.apply(applicant, "  I place senior engineers  ")
	s.Equal("pending", app.Status)
	s.Equal("I place senior engineers", app.Message)

	s.provider.EXPECT().GetStats(gomock.Any(), applicant).
		Return(&stats.Stats{Revenue: 125000, Placements: 9, TimeToFillDays: 21.5}, nil)

	rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, s.base()), s.owner)
	testutil.AssertStatusOK(s.T(), rr)
	listed := testutil.UnmarshalResponse[struct {
		Applications []struct {
			Application applicationBody `json:"application"`
			Applicant   *struct {
				Email string `json:"email"`
			} `json:"applicant"`
			Stats *struct {
				Placements int `json:"placements"`
			} `json:"stats"`
		} `json:"applications"`
	}](s.T(), rr)
	s.Require().Len(listed.Applications, 1)
	item := listed.Applications[0]
	s.Equal(app.ID, item.Application.ID)
	s.Require().NotNil(item.Applicant)
	s.NotEmpty(item.Applicant.Email)
	s.Require().NotNil(item.Stats)
	s.Equal(9, item.Stats.Placements)

	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/me/applications"), applicant)
	testutil.AssertStatusOK(s.T(), rr)
	mine := testutil.UnmarshalResponse[struct {
		Applications []applicationBody `json:"applications"`
	}](s.T(), rr)
	s.Require().Len(mine.Applications, 1)
	s.Equal(app.ID, mine.Applications[0].ID)
}

func (s *ApplicationHandlerSuite) TestApplyRules() {
	applicant := s.env.Recruiter(s.T())
	s.apply(applicant, "")

	s.Run("duplicate pending application", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.base(), map[string]string{})
		rr := s.do(req, applicant)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})

	s.Run("existing members cannot apply", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.base(), map[string]string{})
		rr := s.do(req, s.owner)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "policy_violation")
	})

	s.Run("message too long", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.base(), map[string]string{
			"message": strings.Repeat("x", 2001),
		})
		rr := s.do(req, s.env.Recruiter(s.T()))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("body is required", func() {
		rr := s.do(testutil.NewRequest(s.T(), http.MethodPost, s.base()), s.env.Recruiter(s.T()))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("closed agency", func() {
		closed := s.env.Agency(s.T(), s.owner, false)
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/agencies/"+closed.ID.String()+"/applications", map[string]string{})
		rr := s.do(req, s.env.Recruiter(s.T()))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "policy_violation")
	})
}

func (s *ApplicationHandlerSuite) TestAccept() {
	applicant := s.env.Recruiter(s.T())
	app := s.apply(applicant, "hello")
	path := s.base() + "/" + app.ID + "/accept"

	member := s.env.Member(s.T(), s.owner, s.agency.ID)
	rr := s.do(testutil.NewRequest(s.T(), http.MethodPost, path), member)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")

	rr = s.do(testutil.NewRequest(s.T(), http.MethodPost, path), s.owner)
	testutil.AssertStatusOK(s.T(), rr)
	accepted := testutil.UnmarshalResponse[struct {
		Application applicationBody `json:"application"`
		Membership  struct {
			RecruiterID string `json:"recruiter_id"`
			Status      string `json:"status"`
			Role        string `json:"role"`
		} `json:"membership"`
	}](s.T(), rr)
	s.Equal("approved", accepted.Application.Status)
	s.Equal(s.owner.String(), accepted.Application.ResolvedBy)
	s.Equal(applicant.String(), accepted.Membership.RecruiterID)
	s.Equal("active", accepted.Membership.Status)
	s.Equal("member", accepted.Membership.Role)

	rr = s.do(testutil.NewRequest(s.T(), http.MethodPost, path), s.owner)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "invalid_state")

	m, err := s.env.Memberships.FindByAgencyAndRecruiter(context.Background(), s.agency.ID, applicant)
	s.Require().NoError(err)
	s.True(m.IsActive())
}

func (s *ApplicationHandlerSuite) TestDeclineThenReapply() {
	applicant := s.env.Recruiter(s.T())
	app := s.apply(applicant, "first try")

	rr := s.do(testutil.NewRequest(s.T(), http.MethodPost, s.base()+"/"+app.ID+"/decline"), s.owner)
	testutil.AssertStatusOK(s.T(), rr)
	s.Equal("rejected", testutil.UnmarshalResponse[applicationBody](s.T(), rr).Status)

	again := s.apply(applicant, "second try")
	s.NotEqual(app.ID, again.ID)
}

func (s *ApplicationHandlerSuite) TestResolveScopedToAgency() {
	applicant := s.env.Recruiter(s.T())
	app := s.apply(applicant, "")

	otherOwner := s.env.Recruiter(s.T())
	other := s.env.Agency(s.T(), otherOwner, true)
	path := "/agencies/" + other.ID.String() + "/applications/" + app.ID + "/accept"
	rr := s.do(testutil.NewRequest(s.T(), http.MethodPost, path), otherOwner)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")

	rr = s.do(testutil.NewRequest(s.T(), http.MethodPost, s.base()+"/"+uuid.NewString()+"/decline"), s.owner)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}
