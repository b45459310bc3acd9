package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherStampsTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	venueID := uuid.New()

	err := pub.Emit(context.Background(), Event{
		VenueID:    venueID,
		SourceName: "google_places",
		RecordName: "The Brick",
		MatchType:  "exact_name",
		Confidence: 1.0,
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), venueID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisherKeepsExplicitTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	venueID := uuid.New()
	stamp := time.Date(2025, 6, 14, 20, 0, 0, 0, time.UTC)

	err := pub.Emit(context.Background(), Event{VenueID: venueID, Timestamp: stamp})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), venueID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Timestamp.Equal(stamp))
}

func TestChannelStoreBacklog(t *testing.T) {
	store := NewChannelStore(2)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, Event{RecordName: "a"}))
	require.NoError(t, store.Append(ctx, Event{RecordName: "b"}))
	assert.ErrorIs(t, store.Append(ctx, Event{RecordName: "c"}), ErrBacklogFull)
}

func TestWorkerDrainsIntoStore(t *testing.T) {
	inbox := NewChannelStore(8)
	sink := NewInMemoryStore()
	worker := NewWorker(sink, inbox.Inbox())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	venueID := uuid.New()
	require.NoError(t, inbox.Append(ctx, Event{VenueID: venueID, RecordName: "Green Lady Lounge"}))

	require.Eventually(t, func() bool {
		events, err := sink.ListByVenue(context.Background(), venueID)
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
