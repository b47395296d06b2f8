package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	agencymodels "agencyhub/internal/agency/models"
	"agencyhub/internal/membership/handler"
	"agencyhub/internal/membership/models"
	"agencyhub/internal/testenv"
	id "agencyhub/pkg/domain"
	"agencyhub/pkg/testutil"
)

type membershipBody struct {
	ID          string  `json:"id"`
	AgencyID    string  `json:"agency_id"`
	RecruiterID string  `json:"recruiter_id"`
	Role        string  `json:"role"`
	Status      string  `json:"status"`
	TeamID      *string `json:"team_id"`
}

type MembershipHandlerSuite struct {
	suite.Suite
	env    *testenv.Env
	router chi.Router
	owner  id.RecruiterID
	agency *agencymodels.Agency
}

func TestMembershipHandlerSuite(t *testing.T) {
	suite.Run(t, new(MembershipHandlerSuite))
}

func (s *MembershipHandlerSuite) SetupTest() {
	s.env = testenv.New()
	s.router = chi.NewRouter()
	handler.New(s.env.MembershipService, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
	s.owner = s.env.Recruiter(s.T())
	s.agency = s.env.Agency(s.T(), s.owner, true)
}

func (s *MembershipHandlerSuite) do(req *http.Request, actor id.RecruiterID) *httptest.ResponseRecorder {
	if !actor.IsNil() {
		req = testutil.WithRecruiter(req, actor)
	}
	return testutil.DoRequest(s.router, req)
}

func (s *MembershipHandlerSuite) path(suffix string) string {
	return "/agencies/" + s.agency.ID.String() + suffix
}

func (s *MembershipHandlerSuite) membershipOf(recruiterID id.RecruiterID) *models.Membership {
	m, err := s.env.Memberships.FindByAgencyAndRecruiter(context.Background(), s.agency.ID, recruiterID)
	s.Require().NoError(err)
	return m
}

func (s *MembershipHandlerSuite) TestJoinThenApprove() {
	candidate := s.env.Recruiter(s.T())

	rr := s.do(testutil.NewRequest(s.T(), http.MethodPost, s.path("/join")), candidate)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	joined := testutil.UnmarshalResponse[membershipBody](s.T(), rr)
	s.Equal("pending", joined.Status)
	s.Equal("member", joined.Role)

	rr = s.do(testutil.NewRequest(s.T(), http.MethodPost, s.path("/members/"+joined.ID+"/approve")), s.owner)
	testutil.AssertStatusOK(s.T(), rr)
	approved := testutil.UnmarshalResponse[membershipBody](s.T(), rr)
	s.Equal("active", approved.Status)

	s.Run("a second join for the same pair conflicts", func() {
		rr := s.do(testutil.NewRequest(s.T(), http.MethodPost, s.path("/join")), candidate)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})
}

func (s *MembershipHandlerSuite) TestRejectReturnsNoContent() {
	candidate := s.env.Recruiter(s.T())
	rr := s.do(testutil.NewRequest(s.T(), http.MethodPost, s.path("/join")), candidate)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	joined := testutil.UnmarshalResponse[membershipBody](s.T(), rr)

	rr = s.do(testutil.NewRequest(s.T(), http.MethodPost, s.path("/members/"+joined.ID+"/reject")), s.owner)
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	s.Empty(rr.Body.Bytes())
}

func (s *MembershipHandlerSuite) TestRequestsWithoutPrincipal() {
	rr := s.do(testutil.NewRequest(s.T(), http.MethodPost, s.path("/join")), id.RecruiterID{})
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")

	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/me/memberships"), id.RecruiterID{})
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *MembershipHandlerSuite) TestMalformedPathIDs() {
	rr := s.do(testutil.NewRequest(s.T(), http.MethodPost, "/agencies/not-a-uuid/join"), s.owner)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")

	rr = s.do(testutil.NewRequest(s.T(), http.MethodPost, s.path("/members/nope/approve")), s.owner)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
}

func (s *MembershipHandlerSuite) TestJoinUnknownAgency() {
	candidate := s.env.Recruiter(s.T())
	rr := s.do(testutil.NewRequest(s.T(), http.MethodPost, "/agencies/"+uuid.NewString()+"/join"), candidate)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *MembershipHandlerSuite) TestInvite() {
	s.Run("by recruiter id", func() {
		invitee := s.env.Recruiter(s.T())
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.path("/members"), map[string]string{
			"recruiter_id": invitee.String(),
		})
		rr := s.do(req, s.owner)
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		body := testutil.UnmarshalResponse[membershipBody](s.T(), rr)
		s.Equal("active", body.Status)
		s.Equal(invitee.String(), body.RecruiterID)
	})

	s.Run("by email", func() {
		inviteeID := id.RecruiterID(uuid.New())
		_, err := s.env.RecruiterService.Register(context.Background(), inviteeID, "Invitee@Example.com", "")
		s.Require().NoError(err)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.path("/members"), map[string]string{
			"email": "invitee@example.com",
		})
		rr := s.do(req, s.owner)
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		body := testutil.UnmarshalResponse[membershipBody](s.T(), rr)
		s.Equal(inviteeID.String(), body.RecruiterID)
	})

	s.Run("neither target", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.path("/members"), map[string]string{})
		rr := s.do(req, s.owner)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("both targets", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.path("/members"), map[string]string{
			"recruiter_id": uuid.NewString(),
			"email":        "someone@example.com",
		})
		rr := s.do(req, s.owner)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("unknown fields are rejected", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, s.path("/members"), `{"recruiter":"x"}`)
		rr := s.do(req, s.owner)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("plain members cannot invite", func() {
		member := s.env.Member(s.T(), s.owner, s.agency.ID)
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.path("/members"), map[string]string{
			"recruiter_id": s.env.Recruiter(s.T()).String(),
		})
		rr := s.do(req, member)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})
}

func (s *MembershipHandlerSuite) TestPatch() {
	member := s.env.Member(s.T(), s.owner, s.agency.ID)
	m := s.membershipOf(member)
	target := s.path("/members/" + m.ID.String())

	s.Run("role and team together are rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPatch, target, map[string]string{
			"role":    "admin",
			"team_id": uuid.NewString(),
		})
		rr := s.do(req, s.owner)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("empty body is rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPatch, target, map[string]string{})
		rr := s.do(req, s.owner)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("unknown role", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPatch, target, map[string]string{"role": "superuser"})
		rr := s.do(req, s.owner)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("owner promotes to admin", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPatch, target, map[string]string{"role": "admin"})
		rr := s.do(req, s.owner)
		testutil.AssertStatusOK(s.T(), rr)
		s.Equal("admin", testutil.UnmarshalResponse[membershipBody](s.T(), rr).Role)
	})

	s.Run("team assignment and clearing", func() {
		team, err := s.env.TeamService.CreateTeam(context.Background(), s.owner, s.agency.ID, "Tech", "")
		s.Require().NoError(err)

		req := testutil.NewJSONRequest(s.T(), http.MethodPatch, target, map[string]string{"team_id": team.ID.String()})
		rr := s.do(req, s.owner)
		testutil.AssertStatusOK(s.T(), rr)
		body := testutil.UnmarshalResponse[membershipBody](s.T(), rr)
		s.Require().NotNil(body.TeamID)
		s.Equal(team.ID.String(), *body.TeamID)

		req = testutil.NewJSONRequest(s.T(), http.MethodPatch, target, map[string]string{"team_id": ""})
		rr = s.do(req, s.owner)
		testutil.AssertStatusOK(s.T(), rr)
		s.Nil(testutil.UnmarshalResponse[membershipBody](s.T(), rr).TeamID)
	})

	s.Run("explicit null clears the team", func() {
		team, err := s.env.TeamService.CreateTeam(context.Background(), s.owner, s.agency.ID, "Sales", "")
		s.Require().NoError(err)
		req := testutil.NewJSONRequest(s.T(), http.MethodPatch, target, map[string]string{"team_id": team.ID.String()})
		testutil.AssertStatusOK(s.T(), s.do(req, s.owner))

		req = testutil.NewJSONRequest(s.T(), http.MethodPatch, target, map[string]any{"team_id": nil})
		rr := s.do(req, s.owner)
		testutil.AssertStatusOK(s.T(), rr)
		s.Nil(testutil.UnmarshalResponse[membershipBody](s.T(), rr).TeamID)
		s.Nil(s.membershipOf(member).TeamID)
	})

	s.Run("team_id of the wrong type", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPatch, target, map[string]any{"team_id": 42})
		rr := s.do(req, s.owner)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
		env := testutil.UnmarshalResponse[testutil.ErrorEnvelope](s.T(), rr)
		s.Equal("team_id must be a string or null", env.ErrorDescription)
	})

	s.Run("demoting the owner is an ownership conflict", func() {
		owner := s.membershipOf(s.owner)
		req := testutil.NewJSONRequest(s.T(), http.MethodPatch, s.path("/members/"+owner.ID.String()), map[string]string{"role": "admin"})
		rr := s.do(req, s.owner)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "ownership_violation")
	})
}

func (s *MembershipHandlerSuite) TestRemove() {
	s.Run("owner row is protected", func() {
		owner := s.membershipOf(s.owner)
		rr := s.do(testutil.NewRequest(s.T(), http.MethodPost, s.path("/members/"+owner.ID.String()+"/remove")), s.owner)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "ownership_violation")
	})

	s.Run("member is removed", func() {
		member := s.env.Member(s.T(), s.owner, s.agency.ID)
		m := s.membershipOf(member)
		rr := s.do(testutil.NewRequest(s.T(), http.MethodPost, s.path("/members/"+m.ID.String()+"/remove")), s.owner)
		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)

		rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/me/memberships"), member)
		testutil.AssertStatusOK(s.T(), rr)
		listed := testutil.UnmarshalResponse[struct {
			Memberships []membershipBody `json:"memberships"`
		}](s.T(), rr)
		s.Empty(listed.Memberships)
	})
}

func (s *MembershipHandlerSuite) TestListMembers() {
	member := s.env.Member(s.T(), s.owner, s.agency.ID)

	rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, s.path("/members")), member)
	testutil.AssertStatusOK(s.T(), rr)
	listed := testutil.UnmarshalResponse[struct {
		Members []membershipBody `json:"members"`
	}](s.T(), rr)
	require.Len(s.T(), listed.Members, 2)

	roles := map[string]string{}
	for _, m := range listed.Members {
		roles[m.RecruiterID] = m.Role
	}
	assert.Equal(s.T(), "owner", roles[s.owner.String()])
	assert.Equal(s.T(), "member", roles[member.String()])

	outsider := s.env.Recruiter(s.T())
	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, s.path("/members")), outsider)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
}
