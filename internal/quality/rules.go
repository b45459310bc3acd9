package quality

import (
	"time"

	"venuegraph/internal/source"
)

// Rule captures how one source type is gated. Required fields drive
// completeness, the freshness window drives the recency ratio, and the two
// blend into the quality score by weight.
type Rule struct {
	RequiredFields   []string
	FreshnessWindow  time.Duration
	CompletenessWeight float64
	RecencyWeight    float64
	MinCompleteness  float64
	MinQualityScore  float64
}

// DefaultRules is the per-source gating table. Social data is allowed to be
// sparse; ML predictions are expected to be near-complete.
func DefaultRules() map[source.Type]Rule {
	return map[source.Type]Rule{
		source.TypeVenues: {
			RequiredFields:     []string{"name", "lat", "lng"},
			FreshnessWindow:    7 * 24 * time.Hour,
			CompletenessWeight: 0.8,
			RecencyWeight:      0.2,
			MinCompleteness:    0.8,
			MinQualityScore:    0.7,
		},
		source.TypeEvents: {
			RequiredFields:     []string{"name", "venue_name"},
			FreshnessWindow:    7 * 24 * time.Hour,
			CompletenessWeight: 0.8,
			RecencyWeight:      0.2,
			MinCompleteness:    0.7,
			MinQualityScore:    0.6,
		},
		source.TypeSocial: {
			RequiredFields:     []string{"mention_count", "positive_sentiment"},
			FreshnessWindow:    7 * 24 * time.Hour,
			CompletenessWeight: 0.8,
			RecencyWeight:      0.2,
			MinCompleteness:    0.6,
			MinQualityScore:    0.6,
		},
		source.TypeML: {
			RequiredFields:     []string{"psychographic_density", "confidence_lower"},
			FreshnessWindow:    7 * 24 * time.Hour,
			CompletenessWeight: 0.8,
			RecencyWeight:      0.2,
			MinCompleteness:    0.9,
			MinQualityScore:    0.8,
		},
		source.TypeWeather: {
			RequiredFields:     []string{"temperature_f", "weather_condition"},
			FreshnessWindow:    24 * time.Hour,
			CompletenessWeight: 0.5,
			RecencyWeight:      0.5,
			MinCompleteness:    0.9,
			MinQualityScore:    0.8,
		},
		source.TypeTraffic: {
			RequiredFields:     []string{"congestion_score"},
			FreshnessWindow:    24 * time.Hour,
			CompletenessWeight: 0.5,
			RecencyWeight:      0.5,
			MinCompleteness:    0.7,
			MinQualityScore:    0.7,
		},
		source.TypeFootTraffic: {
			RequiredFields:     []string{"visitors_count"},
			FreshnessWindow:    24 * time.Hour,
			CompletenessWeight: 0.5,
			RecencyWeight:      0.5,
			MinCompleteness:    0.6,
			MinQualityScore:    0.5,
		},
		source.TypeEconomic: {
			RequiredFields:     []string{"unemployment_rate"},
			FreshnessWindow:    30 * 24 * time.Hour,
			CompletenessWeight: 0.8,
			RecencyWeight:      0.2,
			MinCompleteness:    0.6,
			MinQualityScore:    0.5,
		},
		source.TypeDemographic: {
			RequiredFields:     []string{"median_income"},
			FreshnessWindow:    90 * 24 * time.Hour,
			CompletenessWeight: 0.9,
			RecencyWeight:      0.1,
			MinCompleteness:    0.6,
			MinQualityScore:    0.5,
		},
	}
}

// genericRule gates source types without a dedicated entry.
var genericRule = Rule{
	RequiredFields:     []string{"name"},
	FreshnessWindow:    7 * 24 * time.Hour,
	CompletenessWeight: 0.8,
	RecencyWeight:      0.2,
	MinCompleteness:    0.5,
	MinQualityScore:    0.5,
}
