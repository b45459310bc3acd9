package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"venuegraph/pkg/geo"
)

// InMemoryVenueStore keeps venues in a map. Used in tests and when no
// database is configured.
type InMemoryVenueStore struct {
	mu     sync.RWMutex
	venues map[uuid.UUID]Venue
}

func NewInMemoryVenueStore() *InMemoryVenueStore {
	return &InMemoryVenueStore{venues: make(map[uuid.UUID]Venue)}
}

func (s *InMemoryVenueStore) Create(_ context.Context, v Venue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.venues[v.ID] = v
	return nil
}

func (s *InMemoryVenueStore) Get(_ context.Context, id uuid.UUID) (Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.venues[id]
	if !ok {
		return Venue{}, ErrNotFound
	}
	return v, nil
}

func (s *InMemoryVenueStore) Update(_ context.Context, v Venue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.venues[v.ID]; !ok {
		return ErrNotFound
	}
	s.venues[v.ID] = v
	return nil
}

func (s *InMemoryVenueStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.venues[id]; !ok {
		return ErrNotFound
	}
	delete(s.venues, id)
	return nil
}

func (s *InMemoryVenueStore) List(_ context.Context) ([]Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Venue, 0, len(s.venues))
	for _, v := range s.venues {
		out = append(out, v)
	}
	sortVenues(out)
	return out, nil
}

func (s *InMemoryVenueStore) ListInBounds(_ context.Context, b geo.Bounds) ([]Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Venue
	for _, v := range s.venues {
		p, ok := v.Point()
		if ok && b.Contains(p) {
			out = append(out, v)
		}
	}
	sortVenues(out)
	return out, nil
}

// sortVenues orders by creation time so the first-registered venue comes
// first, with ID as tiebreaker. Consolidation relies on this when picking
// masters.
func sortVenues(vs []Venue) {
	sort.Slice(vs, func(i, j int) bool {
		if !vs[i].CreatedAt.Equal(vs[j].CreatedAt) {
			return vs[i].CreatedAt.Before(vs[j].CreatedAt)
		}
		return vs[i].ID.String() < vs[j].ID.String()
	})
}

// InMemoryEventStore keeps events in a map.
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events map[uuid.UUID]Event
}

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{events: make(map[uuid.UUID]Event)}
}

func (s *InMemoryEventStore) Upsert(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
	return nil
}

func (s *InMemoryEventStore) Get(_ context.Context, id uuid.UUID) (Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return Event{}, ErrNotFound
	}
	return e, nil
}

func (s *InMemoryEventStore) List(_ context.Context) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e)
	}
	SortEvents(out)
	return out, nil
}

func (s *InMemoryEventStore) ListUnlinked(_ context.Context) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.VenueID == nil {
			out = append(out, e)
		}
	}
	SortEvents(out)
	return out, nil
}

func (s *InMemoryEventStore) ListByVenue(_ context.Context, venueID uuid.UUID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.VenueID != nil && *e.VenueID == venueID {
			out = append(out, e)
		}
	}
	SortEvents(out)
	return out, nil
}

func (s *InMemoryEventStore) ListInWindow(_ context.Context, start, end time.Time) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		// unscheduled events always qualify; scheduled ones must start
		// inside the window
		if e.StartTime == nil || (!e.StartTime.Before(start) && e.StartTime.Before(end)) {
			out = append(out, e)
		}
	}
	SortEvents(out)
	return out, nil
}

func (s *InMemoryEventStore) ReassignVenue(_ context.Context, from, to uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved := 0
	for id, e := range s.events {
		if e.VenueID != nil && *e.VenueID == from {
			v := to
			e.VenueID = &v
			s.events[id] = e
			moved++
		}
	}
	return moved, nil
}

// SortEvents orders events by start time ascending with nil start times
// last, breaking ties by event score descending.
func SortEvents(es []Event) {
	sort.SliceStable(es, func(i, j int) bool {
		a, b := es[i], es[j]
		switch {
		case a.StartTime == nil && b.StartTime == nil:
		case a.StartTime == nil:
			return false
		case b.StartTime == nil:
			return true
		case !a.StartTime.Equal(*b.StartTime):
			return a.StartTime.Before(*b.StartTime)
		}
		as, bs := 0.0, 0.0
		if a.EventScore != nil {
			as = *a.EventScore
		}
		if b.EventScore != nil {
			bs = *b.EventScore
		}
		return as > bs
	})
}
