package store

import (
	"context"
	"sync"

	"agencyhub/internal/recruiter/models"
	id "agencyhub/pkg/domain"
	"agencyhub/pkg/platform/sentinel"
	txcontext "agencyhub/pkg/platform/tx"
)

// InMemory keeps recruiter profiles with a case-insensitive email index.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[id.RecruiterID]*models.Recruiter
	byEmail map[string]id.RecruiterID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[id.RecruiterID]*models.Recruiter),
		byEmail: make(map[string]id.RecruiterID),
	}
}

func (s *InMemory) Create(ctx context.Context, r *models.Recruiter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[r.ID]; ok {
		return sentinel.ErrConflict
	}
	email := models.NormalizeEmail(r.Email)
	if _, ok := s.byEmail[email]; ok {
		return sentinel.ErrAlreadyUsed
	}
	c := *r
	s.byID[r.ID] = &c
	s.byEmail[email] = r.ID
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.byID, r.ID)
		delete(s.byEmail, email)
	})
	return nil
}

func (s *InMemory) Update(ctx context.Context, r *models.Recruiter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.byID[r.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	prevEmail := models.NormalizeEmail(prev.Email)
	email := models.NormalizeEmail(r.Email)
	if owner, taken := s.byEmail[email]; taken && owner != r.ID {
		return sentinel.ErrAlreadyUsed
	}
	c := *r
	s.byID[r.ID] = &c
	delete(s.byEmail, prevEmail)
	s.byEmail[email] = r.ID
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.byEmail, email)
		s.byID[prev.ID] = prev
		s.byEmail[prevEmail] = prev.ID
	})
	return nil
}

func (s *InMemory) FindByID(_ context.Context, recruiterID id.RecruiterID) (*models.Recruiter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[recruiterID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.Recruiter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rid, ok := s.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *s.byID[rid]
	return &c, nil
}

func (s *InMemory) Delete(ctx context.Context, recruiterID id.RecruiterID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.byID[recruiterID]
	if !ok {
		return sentinel.ErrNotFound
	}
	email := models.NormalizeEmail(prev.Email)
	delete(s.byID, recruiterID)
	delete(s.byEmail, email)
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.byID[prev.ID] = prev
		s.byEmail[email] = prev.ID
	})
	return nil
}
