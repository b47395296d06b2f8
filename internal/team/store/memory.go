package store

import (
	"context"
	"sort"
	"sync"

	"agencyhub/internal/team/models"
	id "agencyhub/pkg/domain"
	"agencyhub/pkg/platform/sentinel"
	txcontext "agencyhub/pkg/platform/tx"
)

type nameKey struct {
	agency id.AgencyID
	name   string
}

type InMemory struct {
	mu     sync.RWMutex
	byID   map[id.TeamID]*models.Team
	byName map[nameKey]id.TeamID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:   make(map[id.TeamID]*models.Team),
		byName: make(map[nameKey]id.TeamID),
	}
}

func (s *InMemory) Create(ctx context.Context, t *models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := nameKey{t.AgencyID, models.NameKey(t.Name)}
	if _, ok := s.byName[key]; ok {
		return sentinel.ErrAlreadyUsed
	}
	c := *t
	s.byID[t.ID] = &c
	s.byName[key] = t.ID
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.byID, t.ID)
		delete(s.byName, key)
	})
	return nil
}

func (s *InMemory) FindByID(_ context.Context, teamID id.TeamID) (*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byID[teamID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (s *InMemory) ListByAgency(_ context.Context, agencyID id.AgencyID) ([]*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Team, 0)
	for _, t := range s.byID {
		if t.AgencyID == agencyID {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return models.NameKey(out[i].Name) < models.NameKey(out[j].Name) })
	return out, nil
}

func (s *InMemory) Delete(ctx context.Context, teamID id.TeamID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[teamID]; !ok {
		return sentinel.ErrNotFound
	}
	s.deleteLocked(ctx, teamID)
	return nil
}

func (s *InMemory) DeleteByIDs(ctx context.Context, ids []id.TeamID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, tid := range ids {
		if _, ok := s.byID[tid]; ok {
			s.deleteLocked(ctx, tid)
			n++
		}
	}
	return n, nil
}

func (s *InMemory) deleteLocked(ctx context.Context, teamID id.TeamID) {
	prev := s.byID[teamID]
	key := nameKey{prev.AgencyID, models.NameKey(prev.Name)}
	delete(s.byID, teamID)
	delete(s.byName, key)
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.byID[prev.ID] = prev
		s.byName[key] = prev.ID
	})
}
