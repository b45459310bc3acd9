package audit

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrBacklogFull is returned when the worker cannot keep up with match
// events. Callers treat audit failures as non-fatal.
var ErrBacklogFull = errors.New("audit: backlog full")

// ChannelStore hands events to a Worker over a buffered channel so the
// registration hot path never waits on sink latency.
type ChannelStore struct {
	inbox chan Event
}

func NewChannelStore(size int) *ChannelStore {
	if size <= 0 {
		size = 256
	}
	return &ChannelStore{inbox: make(chan Event, size)}
}

// Inbox is the channel a Worker drains.
func (s *ChannelStore) Inbox() <-chan Event {
	return s.inbox
}

func (s *ChannelStore) Append(_ context.Context, event Event) error {
	select {
	case s.inbox <- event:
		return nil
	default:
		return ErrBacklogFull
	}
}

// ListByVenue is unsupported on the write-only channel path.
func (s *ChannelStore) ListByVenue(context.Context, uuid.UUID) ([]Event, error) {
	return nil, nil
}
