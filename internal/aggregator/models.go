// Package aggregator assembles consolidated venue and event views from the
// registry and the per-source context rows collected around each venue.
package aggregator

import (
	"time"

	"github.com/google/uuid"

	"venuegraph/internal/registry"
	"venuegraph/internal/source"
)

// Weather is current conditions near a venue.
type Weather struct {
	TemperatureF *float64 `json:"temperature_f"`
	Condition    string   `json:"weather_condition,omitempty"`
	Humidity     *float64 `json:"humidity,omitempty"`
	WindSpeed    *float64 `json:"wind_speed,omitempty"`
}

// Traffic is road congestion around a venue.
type Traffic struct {
	CongestionScore *float64 `json:"congestion_score"`
	TravelTimeIndex *float64 `json:"travel_time_index,omitempty"`
}

// Social is aggregated social-media signal for a venue.
type Social struct {
	MentionCount      *float64 `json:"mention_count"`
	PositiveSentiment *float64 `json:"positive_sentiment,omitempty"`
	NegativeSentiment *float64 `json:"negative_sentiment,omitempty"`
	EngagementScore   *float64 `json:"engagement_score,omitempty"`
}

// MLPrediction is the model's psychographic estimate for a venue's area.
type MLPrediction struct {
	PsychographicDensity *float64 `json:"psychographic_density"`
	ConfidenceLower      *float64 `json:"confidence_lower,omitempty"`
	ConfidenceUpper      *float64 `json:"confidence_upper,omitempty"`
	Segment              string   `json:"segment,omitempty"`
}

// FootTraffic is measured visitor volume.
type FootTraffic struct {
	VisitorsCount *float64 `json:"visitors_count"`
	PeakHour      *float64 `json:"peak_hour,omitempty"`
	DwellTime     *float64 `json:"dwell_time,omitempty"`
}

// Economic is neighborhood economic indicators.
type Economic struct {
	UnemploymentRate *float64 `json:"unemployment_rate"`
	BusinessCount    *float64 `json:"business_count,omitempty"`
	MedianRent       *float64 `json:"median_rent,omitempty"`
}

// Demographic is census-derived neighborhood makeup.
type Demographic struct {
	MedianIncome *float64 `json:"median_income"`
	Population   *float64 `json:"population,omitempty"`
	MedianAge    *float64 `json:"median_age,omitempty"`
}

// EventSummary is the compact event form embedded in venue views.
type EventSummary struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Category   string     `json:"category,omitempty"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	EventScore *float64   `json:"event_score,omitempty"`
}

// VenueView is one venue with every contextual block that currently has
// data. A block is present only when its primary field is known; partial
// context never fabricates a block.
type VenueView struct {
	Venue registry.Venue `json:"venue"`

	Weather     *Weather      `json:"weather,omitempty"`
	Traffic     *Traffic      `json:"traffic,omitempty"`
	Social      *Social       `json:"social,omitempty"`
	ML          *MLPrediction `json:"ml_predictions,omitempty"`
	FootTraffic *FootTraffic  `json:"foot_traffic,omitempty"`
	Economic    *Economic     `json:"economic,omitempty"`
	Demographic *Demographic  `json:"demographic,omitempty"`

	Events []EventSummary `json:"events,omitempty"`

	// CompletenessScore is the fraction of the eight data facets (core venue
	// fields plus seven contextual blocks) present on this view.
	CompletenessScore float64 `json:"completeness_score"`

	// ComprehensiveScore is the model's psychographic density when one is
	// known, falling back to completeness.
	ComprehensiveScore float64 `json:"comprehensive_score"`

	// DataReliability is the mean source-reliability weight across present
	// facets.
	DataReliability float64 `json:"data_reliability"`

	GeneratedAt time.Time `json:"generated_at"`
}

// EventView is one event with its venue attached when linked.
type EventView struct {
	Event registry.Event  `json:"event"`
	Venue *registry.Venue `json:"venue,omitempty"`
}

// AreaView is the consumer contract: every known venue inside the bounds
// with its context, plus the events starting inside the time window.
type AreaView struct {
	Venues      []VenueView `json:"venues"`
	Events      []EventView `json:"events"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// ContextEntry is one source's latest payload for a venue.
type ContextEntry struct {
	SourceType source.Type    `json:"source_type"`
	Payload    map[string]any `json:"payload"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// reliabilityWeights ranks how much each source is trusted when blending a
// view. Registry core data is authoritative.
var reliabilityWeights = map[source.Type]float64{
	source.TypeVenues:      1.0,
	source.TypeML:          0.9,
	source.TypeWeather:     0.9,
	source.TypeDemographic: 0.9,
	source.TypeEconomic:    0.8,
	source.TypeSocial:      0.8,
	source.TypeTraffic:     0.7,
	source.TypeFootTraffic: 0.6,
}
