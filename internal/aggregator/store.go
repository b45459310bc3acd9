package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"venuegraph/internal/source"
)

// ContextStore holds the latest per-source payload for each venue.
type ContextStore interface {
	Put(ctx context.Context, venueID uuid.UUID, entry ContextEntry) error
	GetByVenue(ctx context.Context, venueID uuid.UUID) (map[source.Type]ContextEntry, error)
	Delete(ctx context.Context, venueID uuid.UUID) error
}

// InMemoryContextStore keeps context rows in memory.
type InMemoryContextStore struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]map[source.Type]ContextEntry
}

func NewInMemoryContextStore() *InMemoryContextStore {
	return &InMemoryContextStore{entries: make(map[uuid.UUID]map[source.Type]ContextEntry)}
}

func (s *InMemoryContextStore) Put(_ context.Context, venueID uuid.UUID, entry ContextEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now()
	}
	byType, ok := s.entries[venueID]
	if !ok {
		byType = make(map[source.Type]ContextEntry)
		s.entries[venueID] = byType
	}
	byType[entry.SourceType] = entry
	return nil
}

func (s *InMemoryContextStore) GetByVenue(_ context.Context, venueID uuid.UUID) (map[source.Type]ContextEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[source.Type]ContextEntry, len(s.entries[venueID]))
	for t, e := range s.entries[venueID] {
		out[t] = e
	}
	return out, nil
}

func (s *InMemoryContextStore) Delete(_ context.Context, venueID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, venueID)
	return nil
}
