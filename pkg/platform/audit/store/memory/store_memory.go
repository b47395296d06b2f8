package memory

import (
	"context"
	"sync"

	id "agencyhub/pkg/domain"
	audit "agencyhub/pkg/platform/audit"
	txcontext "agencyhub/pkg/platform/tx"
)

// InMemoryStore keeps audit events per agency. Appends made inside an
// in-memory transaction are dropped if the transaction rolls back.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.AgencyID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.AgencyID][]audit.Event)}
}

func (s *InMemoryStore) Append(ctx context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.AgencyID] = append(s.events[event.AgencyID], event)
	n := len(s.events[event.AgencyID])
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if len(s.events[event.AgencyID]) >= n {
			s.events[event.AgencyID] = s.events[event.AgencyID][:n-1]
		}
	})
	return nil
}

func (s *InMemoryStore) ListByAgency(_ context.Context, agencyID id.AgencyID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[agencyID]...), nil
}

// Clear drops every event. Used between test cases.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.AgencyID][]audit.Event)
}
