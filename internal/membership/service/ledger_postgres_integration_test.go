//go:build integration

package service_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	agencymodels "agencyhub/internal/agency/models"
	agencyservice "agencyhub/internal/agency/service"
	agencystore "agencyhub/internal/agency/store"
	appmodels "agencyhub/internal/application/models"
	appservice "agencyhub/internal/application/service"
	appstore "agencyhub/internal/application/store"
	membershipmodels "agencyhub/internal/membership/models"
	"agencyhub/internal/membership/service"
	membershipstore "agencyhub/internal/membership/store"
	"agencyhub/internal/platform/postgres"
	recruiterservice "agencyhub/internal/recruiter/service"
	recruiterstore "agencyhub/internal/recruiter/store"
	teamservice "agencyhub/internal/team/service"
	teamstore "agencyhub/internal/team/store"
	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
	"agencyhub/pkg/platform/audit"
	auditpostgres "agencyhub/pkg/platform/audit/store/postgres"
	"agencyhub/pkg/testutil/containers"
)

// LedgerPostgresSuite drives the services over the Postgres stores so the
// database constraints, not the in-memory indexes, decide races.
type LedgerPostgresSuite struct {
	suite.Suite
	pg  *containers.PostgresContainer
	ctx context.Context
	seq atomic.Int64

	recruiters   *recruiterservice.Service
	agencies     *agencyservice.Service
	teams        *teamservice.Service
	memberships  *service.Service
	applications *appservice.Service
	membershipDB *membershipstore.PostgresStore
	audit        *auditpostgres.Store
}

func TestLedgerPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(LedgerPostgresSuite))
}

func (s *LedgerPostgresSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.ctx = context.Background()

	db := s.pg.DB
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tx := postgres.NewTxRunner(db, postgres.WithTxLogger(logger))

	recruiterDB := recruiterstore.NewPostgres(db)
	agencyDB := agencystore.NewPostgres(db)
	teamDB := teamstore.NewPostgres(db)
	applicationDB := appstore.NewPostgres(db)
	s.membershipDB = membershipstore.NewPostgres(db)
	s.audit = auditpostgres.New(db)
	publisher := audit.NewPublisher(s.audit)

	s.recruiters = recruiterservice.New(recruiterDB, agencyDB, s.membershipDB, applicationDB,
		recruiterservice.WithLogger(logger), recruiterservice.WithTx(tx))
	s.agencies = agencyservice.New(agencyDB, s.membershipDB, teamDB, applicationDB, recruiterDB,
		agencyservice.WithLogger(logger),
		agencyservice.WithAuditPublisher(publisher),
		agencyservice.WithAuditReader(publisher),
		agencyservice.WithTx(tx))
	s.teams = teamservice.New(teamDB, agencyDB, s.membershipDB,
		teamservice.WithLogger(logger), teamservice.WithAuditPublisher(publisher), teamservice.WithTx(tx))
	s.memberships = service.New(s.membershipDB, agencyDB, recruiterDB, teamDB,
		service.WithLogger(logger), service.WithAuditPublisher(publisher), service.WithTx(tx))
	s.applications = appservice.New(applicationDB, agencyDB, recruiterDB, s.membershipDB, s.memberships,
		appservice.WithLogger(logger), appservice.WithAuditPublisher(publisher), appservice.WithTx(tx))
}

func (s *LedgerPostgresSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(s.ctx))
}

func (s *LedgerPostgresSuite) recruiter() id.RecruiterID {
	rid := id.RecruiterID(uuid.New())
	n := s.seq.Add(1)
	_, err := s.recruiters.Register(s.ctx, rid, fmt.Sprintf("pg%d@example.com", n), "")
	s.Require().NoError(err)
	return rid
}

func (s *LedgerPostgresSuite) agency(owner id.RecruiterID) *agencymodels.Agency {
	n := s.seq.Add(1)
	a, err := s.agencies.CreateAgency(s.ctx, owner, agencyservice.CreateRequest{
		Name:             fmt.Sprintf("PG Agency %d", n),
		Slug:             fmt.Sprintf("pg-agency-%d", n),
		Visibility:       agencymodels.VisibilityPublic,
		AcceptingMembers: true,
	})
	s.Require().NoError(err)
	return a
}

func (s *LedgerPostgresSuite) TestConcurrentJoinRequestsYieldOneRow() {
	owner := s.recruiter()
	a := s.agency(owner)
	candidate := s.recruiter()

	const workers = 12
	var (
		wg        sync.WaitGroup
		created   atomic.Int32
		conflicts atomic.Int32
		start     = make(chan struct{})
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.memberships.RequestJoin(s.ctx, a.ID, candidate)
			switch {
			case err == nil:
				created.Add(1)
			case dErrors.IsConflict(err):
				conflicts.Add(1)
			default:
				s.T().Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	s.Equal(int32(1), created.Load())
	s.Equal(int32(workers-1), conflicts.Load())

	members, err := s.membershipDB.ListByAgency(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Len(members, 2)
}

func (s *LedgerPostgresSuite) TestConcurrentApplicationsYieldOnePending() {
	owner := s.recruiter()
	a := s.agency(owner)
	applicant := s.recruiter()

	const workers = 8
	var (
		wg      sync.WaitGroup
		created atomic.Int32
		start   = make(chan struct{})
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := s.applications.Apply(s.ctx, applicant, a.ID, "hi"); err == nil {
				created.Add(1)
			} else if !dErrors.IsConflict(err) {
				s.T().Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()
	s.Equal(int32(1), created.Load())

	pending, err := s.applications.ListPending(s.ctx, owner, a.ID)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)

	app, m, err := s.applications.Accept(s.ctx, owner, a.ID, pending[0].Application.ID)
	s.Require().NoError(err)
	s.Equal(applicant, m.RecruiterID)
	s.True(m.IsActive())
	s.NotNil(app.ResolvedAt)

	_, err = s.applications.Apply(s.ctx, applicant, a.ID, "again")
	s.True(dErrors.IsPolicy(err), "members cannot apply: %v", err)
}

func (s *LedgerPostgresSuite) TestDeleteAgencyCascadesAndRecordsAudit() {
	owner := s.recruiter()
	a := s.agency(owner)
	member := s.recruiter()
	_, err := s.memberships.Invite(s.ctx, owner, a.ID, service.InviteTarget{RecruiterID: member})
	s.Require().NoError(err)
	_, err = s.teams.CreateTeam(s.ctx, owner, a.ID, "Finance", "")
	s.Require().NoError(err)
	_, err = s.applications.Apply(s.ctx, s.recruiter(), a.ID, "")
	s.Require().NoError(err)

	s.Require().NoError(s.agencies.DeleteAgency(s.ctx, owner, a.ID))

	_, err = s.agencies.GetAgency(s.ctx, owner, a.ID)
	s.True(dErrors.IsNotFound(err))
	mine, err := s.memberships.ListForRecruiter(s.ctx, member)
	s.Require().NoError(err)
	s.Empty(mine)

	events, err := s.audit.ListByAgency(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Require().NotEmpty(events)
	s.Equal(string(audit.EventAgencyCreated), events[0].Action)
	s.Equal(string(audit.EventAgencyDeleted), events[len(events)-1].Action)
}

func (s *LedgerPostgresSuite) TestApproveRequiresReviewer() {
	owner := s.recruiter()
	a := s.agency(owner)
	candidate := s.recruiter()
	m, err := s.memberships.RequestJoin(s.ctx, a.ID, candidate)
	s.Require().NoError(err)

	outsider := s.recruiter()
	_, err = s.memberships.Approve(s.ctx, outsider, a.ID, m.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	stored, err := s.membershipDB.FindByID(s.ctx, m.ID)
	s.Require().NoError(err)
	s.False(stored.IsActive())

	approved, err := s.memberships.Approve(s.ctx, owner, a.ID, m.ID)
	s.Require().NoError(err)
	s.True(approved.IsActive())
}

// race runs both functions at once and returns their errors in order.
func race(a, b func() error) (errA, errB error) {
	var wg sync.WaitGroup
	start := make(chan struct{})
	wg.Add(2)
	go func() { defer wg.Done(); <-start; errA = a() }()
	go func() { defer wg.Done(); <-start; errB = b() }()
	close(start)
	wg.Wait()
	return errA, errB
}

func (s *LedgerPostgresSuite) TestAcceptRacesDecline() {
	owner := s.recruiter()
	a := s.agency(owner)

	for range 10 {
		applicant := s.recruiter()
		app, err := s.applications.Apply(s.ctx, applicant, a.ID, "")
		s.Require().NoError(err)

		acceptErr, declineErr := race(
			func() error { _, _, err := s.applications.Accept(s.ctx, owner, a.ID, app.ID); return err },
			func() error { _, err := s.applications.Decline(s.ctx, owner, a.ID, app.ID); return err },
		)
		s.Require().True((acceptErr == nil) != (declineErr == nil),
			"exactly one resolution wins: accept=%v decline=%v", acceptErr, declineErr)

		mine, err := s.applications.ListMine(s.ctx, applicant)
		s.Require().NoError(err)
		s.Require().Len(mine, 1)
		m, memberErr := s.membershipDB.FindByAgencyAndRecruiter(s.ctx, a.ID, applicant)

		if acceptErr == nil {
			s.True(dErrors.HasCode(declineErr, dErrors.CodeInvalidState), "decline: %v", declineErr)
			s.Equal(appmodels.StatusApproved, mine[0].Status)
			s.Require().NoError(memberErr)
			s.True(m.IsActive())
		} else {
			s.True(dErrors.HasCode(acceptErr, dErrors.CodeInvalidState), "accept: %v", acceptErr)
			s.Equal(appmodels.StatusRejected, mine[0].Status)
			s.Error(memberErr, "a declined applicant has no membership")
		}
	}
}

func (s *LedgerPostgresSuite) TestApproveRacesReject() {
	owner := s.recruiter()
	a := s.agency(owner)

	for range 10 {
		candidate := s.recruiter()
		m, err := s.memberships.RequestJoin(s.ctx, a.ID, candidate)
		s.Require().NoError(err)

		approveErr, rejectErr := race(
			func() error { _, err := s.memberships.Approve(s.ctx, owner, a.ID, m.ID); return err },
			func() error { return s.memberships.Reject(s.ctx, owner, a.ID, m.ID) },
		)
		s.Require().True((approveErr == nil) != (rejectErr == nil),
			"exactly one decision wins: approve=%v reject=%v", approveErr, rejectErr)

		stored, findErr := s.membershipDB.FindByID(s.ctx, m.ID)
		if approveErr == nil {
			s.True(dErrors.HasCode(rejectErr, dErrors.CodeInvalidState), "reject: %v", rejectErr)
			s.Require().NoError(findErr, "an approved member is never deleted by a stale reject")
			s.True(stored.IsActive())
		} else {
			s.True(dErrors.IsNotFound(approveErr), "approve: %v", approveErr)
			s.Error(findErr)
		}
	}
}

func (s *LedgerPostgresSuite) TestRoleAndTeamChangesBothLand() {
	owner := s.recruiter()
	a := s.agency(owner)
	member := s.recruiter()
	m, err := s.memberships.Invite(s.ctx, owner, a.ID, service.InviteTarget{RecruiterID: member})
	s.Require().NoError(err)
	team, err := s.teams.CreateTeam(s.ctx, owner, a.ID, "Payroll", "")
	s.Require().NoError(err)

	roleErr, teamErr := race(
		func() error {
			_, err := s.memberships.ChangeRole(s.ctx, owner, a.ID, m.ID, membershipmodels.RoleAdmin)
			return err
		},
		func() error { _, err := s.memberships.AssignTeam(s.ctx, owner, a.ID, m.ID, &team.ID); return err },
	)
	s.Require().NoError(roleErr)
	s.Require().NoError(teamErr)

	stored, err := s.membershipDB.FindByID(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Equal(membershipmodels.RoleAdmin, stored.Role)
	s.Require().NotNil(stored.TeamID)
	s.Equal(team.ID, *stored.TeamID)
}
