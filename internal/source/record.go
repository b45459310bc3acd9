// Package source defines the collector contract: the flat raw records
// producers hand to the pipeline and the source taxonomy the quality rules
// and aggregator blocks are keyed by. Raw records are ephemeral; nothing
// persists them past validation.
package source

import (
	"time"

	"venuegraph/pkg/geo"
)

// Type identifies a data source family. Each type has its own quality rules
// and, for contextual sources, its own block in the consolidated view.
type Type string

const (
	TypeVenues      Type = "venues"
	TypeEvents      Type = "events"
	TypeSocial      Type = "social_sentiment"
	TypeML          Type = "ml_predictions"
	TypeWeather     Type = "weather"
	TypeTraffic     Type = "traffic"
	TypeFootTraffic Type = "foot_traffic"
	TypeEconomic    Type = "economic"
	TypeDemographic Type = "demographic"
)

// RawRecord is the flat record producers emit. Name and SourceName are the
// only required fields; everything else degrades gracefully. Source-specific
// values travel in Payload and are only interpreted by that source's quality
// rules and contextual block.
type RawRecord struct {
	SourceName string         `json:"source_name"`
	ExternalID string         `json:"external_id,omitempty"`
	Name       string         `json:"name"`
	Category   string         `json:"category,omitempty"`
	Lat        *float64       `json:"lat,omitempty"`
	Lng        *float64       `json:"lng,omitempty"`
	Address    string         `json:"address,omitempty"`
	Phone      string         `json:"phone,omitempty"`
	Website    string         `json:"website,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// HasCoordinates reports whether both lat and lng are present.
func (r RawRecord) HasCoordinates() bool {
	return r.Lat != nil && r.Lng != nil
}

// Point returns the record's coordinates when both are present.
func (r RawRecord) Point() (geo.Point, bool) {
	if !r.HasCoordinates() {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *r.Lat, Lng: *r.Lng}, true
}

// Float reads a numeric payload value. JSON decoding yields float64 for all
// numbers, but int is tolerated for hand-built records in tests.
func (r RawRecord) Float(key string) (float64, bool) {
	v, ok := r.Payload[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// SetFloat writes a numeric payload value, allocating the map if needed.
func (r *RawRecord) SetFloat(key string, v float64) {
	if r.Payload == nil {
		r.Payload = make(map[string]any)
	}
	r.Payload[key] = v
}

// Clone returns a copy with its own payload map so cleaning never mutates a
// caller's records.
func (r RawRecord) Clone() RawRecord {
	out := r
	if r.Payload != nil {
		out.Payload = make(map[string]any, len(r.Payload))
		for k, v := range r.Payload {
			out.Payload[k] = v
		}
	}
	if r.Lat != nil {
		lat := *r.Lat
		out.Lat = &lat
	}
	if r.Lng != nil {
		lng := *r.Lng
		out.Lng = &lng
	}
	return out
}

// Empty reports whether the record carries no usable values at all.
func (r RawRecord) Empty() bool {
	if r.Name != "" || r.Category != "" || r.Address != "" || r.Phone != "" ||
		r.Website != "" || r.ExternalID != "" || r.HasCoordinates() {
		return false
	}
	for _, v := range r.Payload {
		if v != nil {
			return false
		}
	}
	return true
}
