package store

import (
	"context"
	"sort"
	"sync"

	"agencyhub/internal/application/models"
	id "agencyhub/pkg/domain"
	"agencyhub/pkg/platform/sentinel"
	txcontext "agencyhub/pkg/platform/tx"
)

type pairKey struct {
	agency    id.AgencyID
	recruiter id.RecruiterID
}

// InMemory holds applications and a pending index enforcing one pending
// application per (agency, recruiter).
type InMemory struct {
	mu      sync.RWMutex
	byID    map[id.ApplicationID]*models.Application
	pending map[pairKey]id.ApplicationID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[id.ApplicationID]*models.Application),
		pending: make(map[pairKey]id.ApplicationID),
	}
}

func (s *InMemory) Create(ctx context.Context, a *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{a.AgencyID, a.RecruiterID}
	if a.IsPending() {
		if _, ok := s.pending[key]; ok {
			return sentinel.ErrAlreadyUsed
		}
		s.pending[key] = a.ID
	}
	s.byID[a.ID] = a.Clone()
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.byID, a.ID)
		if s.pending[key] == a.ID {
			delete(s.pending, key)
		}
	})
	return nil
}

func (s *InMemory) FindByID(_ context.Context, applicationID id.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[applicationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return a.Clone(), nil
}

// FindForUpdate reads the row a resolution is about to change. Transactions
// are serialized by the in-memory runner, so no extra locking is needed.
func (s *InMemory) FindForUpdate(ctx context.Context, applicationID id.ApplicationID) (*models.Application, error) {
	return s.FindByID(ctx, applicationID)
}

// Resolve persists a transition out of pending. A row that is no longer
// pending is left untouched.
func (s *InMemory) Resolve(ctx context.Context, a *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.byID[a.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !prev.IsPending() {
		return sentinel.ErrInvalidState
	}
	key := pairKey{a.AgencyID, a.RecruiterID}
	s.byID[a.ID] = a.Clone()
	if s.pending[key] == a.ID {
		delete(s.pending, key)
	}
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.byID[prev.ID] = prev
		s.pending[key] = prev.ID
	})
	return nil
}

func (s *InMemory) ListPendingByAgency(_ context.Context, agencyID id.AgencyID) ([]*models.Application, error) {
	return s.filter(func(a *models.Application) bool {
		return a.AgencyID == agencyID && a.IsPending()
	}), nil
}

func (s *InMemory) ListByRecruiter(_ context.Context, recruiterID id.RecruiterID) ([]*models.Application, error) {
	return s.filter(func(a *models.Application) bool { return a.RecruiterID == recruiterID }), nil
}

func (s *InMemory) IDsByAgency(_ context.Context, agencyID id.AgencyID) ([]id.ApplicationID, error) {
	apps := s.filter(func(a *models.Application) bool { return a.AgencyID == agencyID })
	ids := make([]id.ApplicationID, len(apps))
	for i, a := range apps {
		ids[i] = a.ID
	}
	return ids, nil
}

func (s *InMemory) filter(keep func(*models.Application) bool) []*models.Application {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Application, 0)
	for _, a := range s.byID {
		if keep(a) {
			out = append(out, a.Clone())
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

func (s *InMemory) DeleteByIDs(ctx context.Context, ids []id.ApplicationID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, aid := range ids {
		if _, ok := s.byID[aid]; ok {
			s.deleteLocked(ctx, aid)
			n++
		}
	}
	return n, nil
}

func (s *InMemory) DeleteByRecruiter(ctx context.Context, recruiterID id.RecruiterID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []id.ApplicationID
	for aid, a := range s.byID {
		if a.RecruiterID == recruiterID {
			ids = append(ids, aid)
		}
	}
	for _, aid := range ids {
		s.deleteLocked(ctx, aid)
	}
	return len(ids), nil
}

func (s *InMemory) deleteLocked(ctx context.Context, applicationID id.ApplicationID) {
	prev := s.byID[applicationID]
	key := pairKey{prev.AgencyID, prev.RecruiterID}
	delete(s.byID, applicationID)
	wasPending := s.pending[key] == applicationID
	if wasPending {
		delete(s.pending, key)
	}
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.byID[prev.ID] = prev
		if wasPending {
			s.pending[key] = prev.ID
		}
	})
}
