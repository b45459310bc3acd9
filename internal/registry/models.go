// Package registry maintains the canonical venue list. Incoming records from
// any source are resolved against existing venues through staged matching,
// and pairwise duplicate detection collapses venues that slipped past the
// matcher.
package registry

import (
	"time"

	"github.com/google/uuid"

	"venuegraph/pkg/geo"
)

// Venue is a canonical venue entry. Provenance records which source first
// created it and which sources have contributed since.
type Venue struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Category  string     `json:"category,omitempty"`
	Lat       *float64   `json:"lat,omitempty"`
	Lng       *float64   `json:"lng,omitempty"`
	Address   string     `json:"address,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Website   string     `json:"website,omitempty"`
	FirstSource string   `json:"first_source"`
	Sources   []string   `json:"sources,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// HasCoordinates reports whether both coordinates are set.
func (v Venue) HasCoordinates() bool { return v.Lat != nil && v.Lng != nil }

// Point returns the venue's location when both coordinates are set.
func (v Venue) Point() (geo.Point, bool) {
	if !v.HasCoordinates() {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *v.Lat, Lng: *v.Lng}, true
}

// Event is an event row tied (when linkable) to a canonical venue.
type Event struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Category   string     `json:"category,omitempty"`
	VenueID    *uuid.UUID `json:"venue_id,omitempty"`
	VenueName  string     `json:"venue_name,omitempty"`
	Lat        *float64   `json:"lat,omitempty"`
	Lng        *float64   `json:"lng,omitempty"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	EventScore *float64   `json:"event_score,omitempty"`
	SourceName string     `json:"source_name,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// HasCoordinates reports whether both coordinates are set.
func (e Event) HasCoordinates() bool { return e.Lat != nil && e.Lng != nil }

// MatchType identifies which stage of the matcher resolved a record.
type MatchType string

const (
	MatchExactName      MatchType = "exact_name"
	MatchNormalizedName MatchType = "normalized_name"
	MatchLocation       MatchType = "location"
	MatchFuzzyName      MatchType = "fuzzy_name"
	MatchNameAddress    MatchType = "name_address"
	MatchNone           MatchType = "none"
)

// MatchResult describes how an incoming record was resolved.
type MatchResult struct {
	VenueID    uuid.UUID `json:"venue_id"`
	MatchType  MatchType `json:"match_type"`
	Confidence float64   `json:"confidence"`
	Created    bool      `json:"created"`
}

// DuplicatePair is one detected duplicate: the venue to keep and the venue to
// fold into it.
type DuplicatePair struct {
	MasterID    uuid.UUID `json:"master_id"`
	DuplicateID uuid.UUID `json:"duplicate_id"`
	MatchType   MatchType `json:"match_type"`
	Confidence  float64   `json:"confidence"`
}

// ConsolidationResult summarizes one duplicate-consolidation run.
type ConsolidationResult struct {
	Examined        int             `json:"examined"`
	PairsFound      int             `json:"pairs_found"`
	VenuesMerged    int             `json:"venues_merged"`
	EventsReassigned int            `json:"events_reassigned"`
	Pairs           []DuplicatePair `json:"pairs,omitempty"`
	Duration        time.Duration   `json:"duration"`
}

// LinkResult summarizes one event-linking pass.
type LinkResult struct {
	Examined         int `json:"examined"`
	LinkedByName     int `json:"linked_by_name"`
	LinkedByLocation int `json:"linked_by_location"`
	VenuesCreated    int `json:"venues_created"`
	Unlinked         int `json:"unlinked"`
}
