// Package ingest feeds raw source records into the refresh pipeline from a
// Kafka topic. Records accumulate in a buffer between refresh runs.
package ingest

import (
	"context"
	"sync"

	"venuegraph/internal/source"
)

// Buffer accumulates records per source type until the next refresh reads
// them. A per-source cap keeps a stuck pipeline from growing without bound;
// when full, the oldest records fall off.
type Buffer struct {
	mu      sync.RWMutex
	records map[source.Type][]source.RawRecord
	cap     int
}

// NewBuffer creates a buffer holding at most capPerSource records per source
// type. Zero or negative means a default of 10000.
func NewBuffer(capPerSource int) *Buffer {
	if capPerSource <= 0 {
		capPerSource = 10000
	}
	return &Buffer{
		records: make(map[source.Type][]source.RawRecord),
		cap:     capPerSource,
	}
}

// Add appends one record under its source type.
func (b *Buffer) Add(t source.Type, rec source.RawRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	records := append(b.records[t], rec)
	if over := len(records) - b.cap; over > 0 {
		records = records[over:]
	}
	b.records[t] = records
}

// Snapshot returns a copy of everything buffered. The buffer keeps its
// contents; sources replace records wholesale on their next publish.
func (b *Buffer) Snapshot(_ context.Context) (map[source.Type][]source.RawRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[source.Type][]source.RawRecord, len(b.records))
	for t, records := range b.records {
		out[t] = append([]source.RawRecord(nil), records...)
	}
	return out, nil
}

// Len reports how many records one source has buffered.
func (b *Buffer) Len(t source.Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records[t])
}
