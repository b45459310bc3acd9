package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Publisher captures structured match events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	return p.store.Append(ctx, base)
}

func (p *Publisher) List(ctx context.Context, venueID uuid.UUID) ([]Event, error) {
	return p.store.ListByVenue(ctx, venueID)
}
