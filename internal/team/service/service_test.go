package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	agencymodels "agencyhub/internal/agency/models"
	membershipmodels "agencyhub/internal/membership/models"
	"agencyhub/internal/testenv"
	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
	"agencyhub/pkg/platform/audit"
)

type TeamServiceSuite struct {
	suite.Suite
	env    *testenv.Env
	ctx    context.Context
	owner  id.RecruiterID
	agency *agencymodels.Agency
}

func TestTeamServiceSuite(t *testing.T) {
	suite.Run(t, new(TeamServiceSuite))
}

func (s *TeamServiceSuite) SetupTest() {
	s.env = testenv.New()
	s.ctx = context.Background()
	s.owner = s.env.Recruiter(s.T())
	s.agency = s.env.Agency(s.T(), s.owner, true)
}

func (s *TeamServiceSuite) TestCreateTeam() {
	svc := s.env.TeamService

	team, err := svc.CreateTeam(s.ctx, s.owner, s.agency.ID, " Tech ", "engineering")
	s.Require().NoError(err)
	s.Equal("Tech", team.Name)
	s.Equal(s.agency.ID, team.AgencyID)

	s.Run("names are unique per agency ignoring case", func() {
		_, err := svc.CreateTeam(s.ctx, s.owner, s.agency.ID, "TECH", "")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("same name in another agency is fine", func() {
		other := s.env.Agency(s.T(), s.owner, true)
		_, err := svc.CreateTeam(s.ctx, s.owner, other.ID, "Tech", "")
		s.NoError(err)
	})

	s.Run("empty name is a validation error", func() {
		_, err := svc.CreateTeam(s.ctx, s.owner, s.agency.ID, "  ", "")
		s.True(dErrors.IsValidation(err))
	})

	s.Run("admins cannot manage teams", func() {
		admin := s.env.Member(s.T(), s.owner, s.agency.ID)
		_, err := s.env.MembershipService.ChangeRole(s.ctx, s.owner, s.agency.ID, s.membershipOf(admin), membershipmodels.RoleAdmin)
		s.Require().NoError(err)
		_, err = svc.CreateTeam(s.ctx, admin, s.agency.ID, "Sales", "")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("outsiders are forbidden", func() {
		_, err := svc.CreateTeam(s.ctx, s.env.Recruiter(s.T()), s.agency.ID, "Sales", "")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *TeamServiceSuite) TestDeleteTeamClearsAssignments() {
	team, err := s.env.TeamService.CreateTeam(s.ctx, s.owner, s.agency.ID, "Tech", "")
	s.Require().NoError(err)
	member := s.env.Member(s.T(), s.owner, s.agency.ID)
	_, err = s.env.MembershipService.AssignTeam(s.ctx, s.owner, s.agency.ID, s.membershipOf(member), &team.ID)
	s.Require().NoError(err)

	other := s.env.Agency(s.T(), s.owner, true)
	err = s.env.TeamService.DeleteTeam(s.ctx, s.owner, other.ID, team.ID)
	s.True(dErrors.IsNotFound(err), "team is scoped to its own agency")

	s.Require().NoError(s.env.TeamService.DeleteTeam(s.ctx, s.owner, s.agency.ID, team.ID))

	m, err := s.env.Memberships.FindByAgencyAndRecruiter(s.ctx, s.agency.ID, member)
	s.Require().NoError(err)
	s.Nil(m.TeamID)

	err = s.env.TeamService.DeleteTeam(s.ctx, s.owner, s.agency.ID, team.ID)
	s.True(dErrors.IsNotFound(err))

	events, err := s.env.AuditStore.ListByAgency(s.ctx, s.agency.ID)
	s.Require().NoError(err)
	s.Equal(string(audit.EventTeamDeleted), events[len(events)-1].Action)
}

func (s *TeamServiceSuite) TestListTeams() {
	for _, name := range []string{"Tech", "Finance"} {
		_, err := s.env.TeamService.CreateTeam(s.ctx, s.owner, s.agency.ID, name, "")
		s.Require().NoError(err)
	}
	member := s.env.Member(s.T(), s.owner, s.agency.ID)

	teams, err := s.env.TeamService.ListTeams(s.ctx, member, s.agency.ID)
	s.Require().NoError(err)
	s.Len(teams, 2)

	_, err = s.env.TeamService.ListTeams(s.ctx, s.env.Recruiter(s.T()), s.agency.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.env.TeamService.ListTeams(s.ctx, s.owner, id.AgencyID(uuid.New()))
	s.True(dErrors.IsNotFound(err))

	_, err = s.env.TeamService.CreateTeam(s.ctx, s.owner, id.AgencyID(uuid.New()), "Ops", "")
	s.True(dErrors.IsNotFound(err))
}

func (s *TeamServiceSuite) membershipOf(recruiterID id.RecruiterID) id.MembershipID {
	m, err := s.env.Memberships.FindByAgencyAndRecruiter(s.ctx, s.agency.ID, recruiterID)
	s.Require().NoError(err)
	return m.ID
}
