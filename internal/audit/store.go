package audit

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Store is an append-only sink for match events.
type Store interface {
	Append(ctx context.Context, e Event) error
	ListByVenue(ctx context.Context, venueID uuid.UUID) ([]Event, error)
}

// InMemoryStore keeps events in memory, used in tests and when no broker is
// configured.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[uuid.UUID][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[uuid.UUID][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.VenueID] = append(s.events[e.VenueID], e)
	return nil
}

func (s *InMemoryStore) ListByVenue(_ context.Context, venueID uuid.UUID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[venueID]...), nil
}
