package registry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"venuegraph/pkg/geo"
)

// ErrNotFound is returned when a venue or event does not exist.
var ErrNotFound = errors.New("registry: not found")

// ValidationError rejects a record that cannot participate in matching.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "registry: invalid record: " + e.Reason
}

// VenueStore persists canonical venues.
type VenueStore interface {
	Create(ctx context.Context, v Venue) error
	Get(ctx context.Context, id uuid.UUID) (Venue, error)
	Update(ctx context.Context, v Venue) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]Venue, error)
	ListInBounds(ctx context.Context, b geo.Bounds) ([]Venue, error)
}

// EventStore persists events and their venue links.
type EventStore interface {
	Upsert(ctx context.Context, e Event) error
	Get(ctx context.Context, id uuid.UUID) (Event, error)
	List(ctx context.Context) ([]Event, error)
	ListUnlinked(ctx context.Context) ([]Event, error)
	ListByVenue(ctx context.Context, venueID uuid.UUID) ([]Event, error)
	// ListInWindow returns events starting inside [start, end) plus events
	// with no start time, which are always in scope.
	ListInWindow(ctx context.Context, start, end time.Time) ([]Event, error)
	// ReassignVenue moves every event from one venue to another and returns
	// how many rows moved.
	ReassignVenue(ctx context.Context, from, to uuid.UUID) (int, error)
}
