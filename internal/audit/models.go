// Package audit records how each incoming record was matched to a canonical
// venue, for later review of consolidation decisions.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event is emitted from matching logic to capture one resolution decision.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	VenueID    uuid.UUID `json:"venue_id"`
	SourceName string    `json:"source_name"`
	RecordName string    `json:"record_name"`
	MatchType  string    `json:"match_type"`
	Confidence float64   `json:"confidence"`
	Created    bool      `json:"created"`
}
