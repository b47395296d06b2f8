package store

import (
	"context"
	"sort"
	"sync"

	"agencyhub/internal/agency/models"
	id "agencyhub/pkg/domain"
	"agencyhub/pkg/platform/sentinel"
	txcontext "agencyhub/pkg/platform/tx"
)

type InMemory struct {
	mu     sync.RWMutex
	byID   map[id.AgencyID]*models.Agency
	bySlug map[string]id.AgencyID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:   make(map[id.AgencyID]*models.Agency),
		bySlug: make(map[string]id.AgencyID),
	}
}

// Create fails with sentinel.ErrAlreadyUsed when the slug is taken.
func (s *InMemory) Create(ctx context.Context, a *models.Agency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bySlug[a.Slug]; ok {
		return sentinel.ErrAlreadyUsed
	}
	c := *a
	s.byID[a.ID] = &c
	s.bySlug[a.Slug] = a.ID
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.byID, a.ID)
		delete(s.bySlug, a.Slug)
	})
	return nil
}

func (s *InMemory) FindByID(_ context.Context, agencyID id.AgencyID) (*models.Agency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[agencyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (s *InMemory) FindBySlug(_ context.Context, slug string) (*models.Agency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	aid, ok := s.bySlug[slug]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *s.byID[aid]
	return &c, nil
}

// Update persists mutable fields; the slug never changes.
func (s *InMemory) Update(ctx context.Context, a *models.Agency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.byID[a.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c := *a
	c.Slug = prev.Slug
	s.byID[a.ID] = &c
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.byID[prev.ID] = prev
	})
	return nil
}

func (s *InMemory) Delete(ctx context.Context, agencyID id.AgencyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.byID[agencyID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byID, agencyID)
	delete(s.bySlug, prev.Slug)
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.byID[prev.ID] = prev
		s.bySlug[prev.Slug] = prev.ID
	})
	return nil
}

// ListListed returns active public agencies ordered by name.
func (s *InMemory) ListListed(_ context.Context) ([]*models.Agency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Agency, 0)
	for _, a := range s.byID {
		if a.IsListed() {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].Slug < out[j].Slug
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *InMemory) CountOwnedBy(_ context.Context, recruiterID id.RecruiterID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.byID {
		if a.OwnerID == recruiterID {
			n++
		}
	}
	return n, nil
}
