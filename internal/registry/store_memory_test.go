package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryEventStoreWindowKeepsUnscheduled(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()

	now := time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC)
	soon := now.Add(2 * time.Hour)
	farOut := now.Add(72 * time.Hour)

	scheduled := Event{ID: newUUID(t), Name: "Tonight", StartTime: &soon}
	distant := Event{ID: newUUID(t), Name: "Next Month", StartTime: &farOut}
	unscheduled := Event{ID: newUUID(t), Name: "Date TBD"}
	for _, e := range []Event{scheduled, distant, unscheduled} {
		require.NoError(t, store.Upsert(ctx, e))
	}

	window, err := store.ListInWindow(ctx, now, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, scheduled.ID, window[0].ID)
	assert.Equal(t, unscheduled.ID, window[1].ID, "events with no start time always qualify")
}
