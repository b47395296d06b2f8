package store

import (
	"context"
	"sort"
	"sync"

	"agencyhub/internal/membership/models"
	id "agencyhub/pkg/domain"
	"agencyhub/pkg/platform/sentinel"
	txcontext "agencyhub/pkg/platform/tx"
)

type pairKey struct {
	agency    id.AgencyID
	recruiter id.RecruiterID
}

// InMemory is the ledger for development and tests. It enforces the same
// uniqueness as the Postgres indexes and registers undo steps so an aborted
// transaction leaves no trace.
type InMemory struct {
	mu     sync.RWMutex
	byID   map[id.MembershipID]*models.Membership
	byPair map[pairKey]id.MembershipID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:   make(map[id.MembershipID]*models.Membership),
		byPair: make(map[pairKey]id.MembershipID),
	}
}

func (s *InMemory) Create(ctx context.Context, m *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{m.AgencyID, m.RecruiterID}
	if _, exists := s.byPair[key]; exists {
		return sentinel.ErrAlreadyUsed
	}
	if m.Role == models.RoleOwner {
		for _, other := range s.byID {
			if other.AgencyID == m.AgencyID && other.Role == models.RoleOwner {
				return sentinel.ErrAlreadyUsed
			}
		}
	}
	s.byID[m.ID] = m.Clone()
	s.byPair[key] = m.ID
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.byID, m.ID)
		delete(s.byPair, key)
	})
	return nil
}

func (s *InMemory) FindByID(_ context.Context, membershipID id.MembershipID) (*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[membershipID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return m.Clone(), nil
}

func (s *InMemory) FindByAgencyAndRecruiter(_ context.Context, agencyID id.AgencyID, recruiterID id.RecruiterID) (*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mid, ok := s.byPair[pairKey{agencyID, recruiterID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.byID[mid].Clone(), nil
}

func (s *InMemory) ListByAgency(_ context.Context, agencyID id.AgencyID) ([]*models.Membership, error) {
	return s.filter(func(m *models.Membership) bool { return m.AgencyID == agencyID }), nil
}

func (s *InMemory) ListByRecruiter(_ context.Context, recruiterID id.RecruiterID) ([]*models.Membership, error) {
	return s.filter(func(m *models.Membership) bool { return m.RecruiterID == recruiterID }), nil
}

func (s *InMemory) filter(keep func(*models.Membership) bool) []*models.Membership {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Membership, 0)
	for _, m := range s.byID {
		if keep(m) {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// FindForUpdate reads the row a mutation is about to change. The in-memory
// runner serializes transactions, so it is a plain read.
func (s *InMemory) FindForUpdate(ctx context.Context, membershipID id.MembershipID) (*models.Membership, error) {
	return s.FindByID(ctx, membershipID)
}

// UpdateStatus writes only the status of m.
func (s *InMemory) UpdateStatus(ctx context.Context, m *models.Membership) error {
	return s.patch(ctx, m.ID, func(stored *models.Membership) error {
		stored.Status = m.Status
		stored.UpdatedAt = m.UpdatedAt
		return nil
	})
}

// UpdateRole writes only the role of m. A second owner is refused.
func (s *InMemory) UpdateRole(ctx context.Context, m *models.Membership) error {
	return s.patch(ctx, m.ID, func(stored *models.Membership) error {
		if m.Role == models.RoleOwner && stored.Role != models.RoleOwner {
			for _, other := range s.byID {
				if other.AgencyID == stored.AgencyID && other.Role == models.RoleOwner {
					return sentinel.ErrAlreadyUsed
				}
			}
		}
		stored.Role = m.Role
		stored.UpdatedAt = m.UpdatedAt
		return nil
	})
}

// UpdateTeam writes only the team of m.
func (s *InMemory) UpdateTeam(ctx context.Context, m *models.Membership) error {
	return s.patch(ctx, m.ID, func(stored *models.Membership) error {
		stored.TeamID = nil
		if m.TeamID != nil {
			t := *m.TeamID
			stored.TeamID = &t
		}
		stored.UpdatedAt = m.UpdatedAt
		return nil
	})
}

func (s *InMemory) patch(ctx context.Context, membershipID id.MembershipID, apply func(*models.Membership) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.byID[membershipID]
	if !ok {
		return sentinel.ErrNotFound
	}
	next := prev.Clone()
	if err := apply(next); err != nil {
		return err
	}
	s.byID[membershipID] = next
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.byID[prev.ID] = prev
	})
	return nil
}

func (s *InMemory) Delete(ctx context.Context, membershipID id.MembershipID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[membershipID]; !ok {
		return sentinel.ErrNotFound
	}
	s.deleteLocked(ctx, membershipID)
	return nil
}

// DeletePending removes membershipID only while it is still pending.
func (s *InMemory) DeletePending(ctx context.Context, membershipID id.MembershipID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[membershipID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if m.Status != models.StatusPending {
		return sentinel.ErrInvalidState
	}
	s.deleteLocked(ctx, membershipID)
	return nil
}

// DeleteByIDs removes every listed membership; unknown ids are ignored.
func (s *InMemory) DeleteByIDs(ctx context.Context, ids []id.MembershipID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, mid := range ids {
		if _, ok := s.byID[mid]; ok {
			s.deleteLocked(ctx, mid)
			n++
		}
	}
	return n, nil
}

func (s *InMemory) deleteLocked(ctx context.Context, membershipID id.MembershipID) {
	prev := s.byID[membershipID]
	key := pairKey{prev.AgencyID, prev.RecruiterID}
	delete(s.byID, membershipID)
	delete(s.byPair, key)
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.byID[prev.ID] = prev
		s.byPair[key] = prev.ID
	})
}

// ClearTeam unsets the team on every membership pointing at teamID.
func (s *InMemory) ClearTeam(ctx context.Context, teamID id.TeamID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for mid, m := range s.byID {
		if m.TeamID == nil || *m.TeamID != teamID {
			continue
		}
		prev := m
		next := m.Clone()
		next.TeamID = nil
		s.byID[mid] = next
		n++
		txcontext.OnRollback(ctx, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.byID[prev.ID] = prev
		})
	}
	return n, nil
}

// CountActiveByAgencies returns active member counts keyed by agency. Agencies
// with no active members are absent from the map.
func (s *InMemory) CountActiveByAgencies(_ context.Context, agencyIDs []id.AgencyID) (map[id.AgencyID]int, error) {
	want := make(map[id.AgencyID]struct{}, len(agencyIDs))
	for _, a := range agencyIDs {
		want[a] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[id.AgencyID]int)
	for _, m := range s.byID {
		if _, ok := want[m.AgencyID]; ok && m.Status == models.StatusActive {
			counts[m.AgencyID]++
		}
	}
	return counts, nil
}

// DeleteByRecruiter removes all of a recruiter's memberships.
func (s *InMemory) DeleteByRecruiter(ctx context.Context, recruiterID id.RecruiterID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []id.MembershipID
	for mid, m := range s.byID {
		if m.RecruiterID == recruiterID {
			ids = append(ids, mid)
		}
	}
	for _, mid := range ids {
		s.deleteLocked(ctx, mid)
	}
	return len(ids), nil
}
