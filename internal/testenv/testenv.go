// Package testenv wires every domain service over the in-memory stores for
// tests that cross module boundaries.
package testenv

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	agencymodels "agencyhub/internal/agency/models"
	agencyservice "agencyhub/internal/agency/service"
	agencystore "agencyhub/internal/agency/store"
	appservice "agencyhub/internal/application/service"
	appstore "agencyhub/internal/application/store"
	membershipservice "agencyhub/internal/membership/service"
	membershipstore "agencyhub/internal/membership/store"
	recruiterservice "agencyhub/internal/recruiter/service"
	recruiterstore "agencyhub/internal/recruiter/store"
	"agencyhub/internal/stats"
	teamservice "agencyhub/internal/team/service"
	teamstore "agencyhub/internal/team/store"
	id "agencyhub/pkg/domain"
	"agencyhub/pkg/platform/audit"
	auditmemory "agencyhub/pkg/platform/audit/store/memory"
	txcontext "agencyhub/pkg/platform/tx"
)

type Env struct {
	Recruiters   *recruiterstore.InMemory
	Agencies     *agencystore.InMemory
	Teams        *teamstore.InMemory
	Memberships  *membershipstore.InMemory
	Applications *appstore.InMemory
	AuditStore   *auditmemory.InMemoryStore
	Tx           *txcontext.InMemory

	RecruiterService   *recruiterservice.Service
	AgencyService      *agencyservice.Service
	TeamService        *teamservice.Service
	MembershipService  *membershipservice.Service
	ApplicationService *appservice.Service

	seq atomic.Int64
}

type config struct {
	stats stats.Provider
}

type Option func(*config)

// WithStats replaces the no-op stats provider.
func WithStats(p stats.Provider) Option {
	return func(c *config) { c.stats = p }
}

func New(opts ...Option) *Env {
	cfg := &config{stats: stats.Noop{}}
	for _, opt := range opts {
		opt(cfg)
	}
	e := &Env{
		Recruiters:   recruiterstore.NewInMemory(),
		Agencies:     agencystore.NewInMemory(),
		Teams:        teamstore.NewInMemory(),
		Memberships:  membershipstore.NewInMemory(),
		Applications: appstore.NewInMemory(),
		AuditStore:   auditmemory.NewInMemoryStore(),
		Tx:           txcontext.NewInMemory(),
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	publisher := audit.NewPublisher(e.AuditStore)

	e.RecruiterService = recruiterservice.New(e.Recruiters, e.Agencies, e.Memberships, e.Applications,
		recruiterservice.WithLogger(logger),
		recruiterservice.WithTx(e.Tx))
	e.AgencyService = agencyservice.New(e.Agencies, e.Memberships, e.Teams, e.Applications, e.Recruiters,
		agencyservice.WithLogger(logger),
		agencyservice.WithAuditPublisher(publisher),
		agencyservice.WithAuditReader(publisher),
		agencyservice.WithTx(e.Tx))
	e.TeamService = teamservice.New(e.Teams, e.Agencies, e.Memberships,
		teamservice.WithLogger(logger),
		teamservice.WithAuditPublisher(publisher),
		teamservice.WithTx(e.Tx))
	e.MembershipService = membershipservice.New(e.Memberships, e.Agencies, e.Recruiters, e.Teams,
		membershipservice.WithLogger(logger),
		membershipservice.WithAuditPublisher(publisher),
		membershipservice.WithTx(e.Tx))
	e.ApplicationService = appservice.New(e.Applications, e.Agencies, e.Recruiters, e.Memberships, e.MembershipService,
		appservice.WithLogger(logger),
		appservice.WithAuditPublisher(publisher),
		appservice.WithStats(cfg.stats),
		appservice.WithTx(e.Tx))
	return e
}

// Recruiter registers a fresh recruiter and returns its id.
func (e *Env) Recruiter(t *testing.T) id.RecruiterID {
	t.Helper()
	rid := id.RecruiterID(uuid.New())
	n := e.seq.Add(1)
	_, err := e.RecruiterService.Register(context.Background(), rid, fmt.Sprintf("recruiter%d@example.com", n), "")
	require.NoError(t, err)
	return rid
}

// Agency creates a public agency owned by owner.
func (e *Env) Agency(t *testing.T, owner id.RecruiterID, accepting bool) *agencymodels.Agency {
	t.Helper()
	n := e.seq.Add(1)
	a, err := e.AgencyService.CreateAgency(context.Background(), owner, agencyservice.CreateRequest{
		Name:             fmt.Sprintf("Agency %d", n),
		Slug:             fmt.Sprintf("agency-%d", n),
		Visibility:       agencymodels.VisibilityPublic,
		AcceptingMembers: accepting,
	})
	require.NoError(t, err)
	return a
}

// Member adds recruiter to the agency as an active member via invite by owner.
func (e *Env) Member(t *testing.T, owner id.RecruiterID, agencyID id.AgencyID) id.RecruiterID {
	t.Helper()
	rid := e.Recruiter(t)
	_, err := e.MembershipService.Invite(context.Background(), owner, agencyID, membershipservice.InviteTarget{RecruiterID: rid})
	require.NoError(t, err)
	return rid
}
