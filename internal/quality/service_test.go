package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuegraph/internal/source"
)

func ptr(v float64) *float64 { return &v }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestValidateCompleteAndFresh(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	c := New(WithClock(fixedClock(now)))

	records := []source.RawRecord{
		{SourceName: "venues", Name: "T-Mobile Center", Lat: ptr(39.0975), Lng: ptr(-94.5804), UpdatedAt: now.Add(-time.Hour)},
		{SourceName: "venues", Name: "Kauffman Center", Lat: ptr(39.0928), Lng: ptr(-94.5857), UpdatedAt: now.Add(-2 * time.Hour)},
	}

	report := c.Validate(source.TypeVenues, records)
	assert.Equal(t, 2, report.TotalInput)
	assert.Equal(t, 2, report.TotalOutput)
	assert.InDelta(t, 1.0, report.CompletenessScore, 1e-9)
	assert.InDelta(t, 1.0, report.RecencyRatio, 1e-9)
	assert.InDelta(t, 1.0, report.QualityScore, 1e-9)
	assert.Empty(t, report.ValidationErrors)
	assert.Empty(t, report.DataIssues)
}

func TestValidateMissingFieldsFlagged(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	c := New(WithClock(fixedClock(now)))

	records := []source.RawRecord{
		{SourceName: "venues", Name: "Nameless Bar", UpdatedAt: now},       // no coords
		{SourceName: "venues", Lat: ptr(39.1), Lng: ptr(-94.6), UpdatedAt: now}, // no name
	}

	report := c.Validate(source.TypeVenues, records)
	assert.Equal(t, 0, report.TotalOutput)
	assert.Less(t, report.CompletenessScore, 0.8)
	require.NotEmpty(t, report.DataIssues)
	assert.Contains(t, report.DataIssues[0], "completeness")
}

func TestValidateEmptySource(t *testing.T) {
	c := New()
	report := c.Validate(source.TypeWeather, nil)
	assert.Zero(t, report.QualityScore)
	require.Len(t, report.ValidationErrors, 1)
	assert.Contains(t, report.ValidationErrors[0], "weather")
}

func TestValidateStaleData(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	c := New(WithClock(fixedClock(now)))

	records := []source.RawRecord{
		{SourceName: "weather", Payload: map[string]any{"temperature_f": 72.0, "weather_condition": "clear"}, UpdatedAt: now.Add(-48 * time.Hour)},
	}

	report := c.Validate(source.TypeWeather, records)
	assert.Zero(t, report.RecencyRatio)
	assert.InDelta(t, 1.0, report.CompletenessScore, 1e-9)
	require.NotEmpty(t, report.DataIssues)
	assert.Contains(t, report.DataIssues[0], "stale")
}

func TestCleanSocialClampsSentiment(t *testing.T) {
	c := New()
	records := []source.RawRecord{
		{SourceName: "twitter", Name: "Power & Light", Payload: map[string]any{
			"mention_count":      12.0,
			"positive_sentiment": 1.4,
			"negative_sentiment": -0.2,
		}},
	}

	cleaned := c.Clean(records, source.TypeSocial)
	require.Len(t, cleaned, 1)
	pos, _ := cleaned[0].Float("positive_sentiment")
	neg, _ := cleaned[0].Float("negative_sentiment")
	assert.InDelta(t, 1.0, pos, 1e-9)
	assert.InDelta(t, 0.0, neg, 1e-9)

	// original untouched
	orig, _ := records[0].Float("positive_sentiment")
	assert.InDelta(t, 1.4, orig, 1e-9)
}

func TestCleanSocialDropsNegativeMentions(t *testing.T) {
	c := New()
	records := []source.RawRecord{
		{SourceName: "twitter", Name: "Ghost Bar", Payload: map[string]any{
			"mention_count":      -3.0,
			"positive_sentiment": 0.5,
		}},
	}
	assert.Empty(t, c.Clean(records, source.TypeSocial))
}

func TestCleanMLSwapsInvertedConfidence(t *testing.T) {
	c := New()
	records := []source.RawRecord{
		{SourceName: "ml", Name: "Westport", Payload: map[string]any{
			"psychographic_density": 0.6,
			"confidence_lower":      0.9,
			"confidence_upper":      0.4,
		}},
	}

	cleaned := c.Clean(records, source.TypeML)
	require.Len(t, cleaned, 1)
	lo, _ := cleaned[0].Float("confidence_lower")
	hi, _ := cleaned[0].Float("confidence_upper")
	assert.InDelta(t, 0.4, lo, 1e-9)
	assert.InDelta(t, 0.9, hi, 1e-9)
}

func TestCleanMLDropsOutOfRangeDensity(t *testing.T) {
	c := New()
	records := []source.RawRecord{
		{SourceName: "ml", Name: "Crossroads", Payload: map[string]any{"psychographic_density": 1.7}},
	}
	assert.Empty(t, c.Clean(records, source.TypeML))
}

func TestCleanVenueCollapsesWhitespace(t *testing.T) {
	c := New()
	records := []source.RawRecord{
		{SourceName: "venues", Name: "  The   Brick   ", Lat: ptr(39.09), Lng: ptr(-94.58)},
	}
	cleaned := c.Clean(records, source.TypeVenues)
	require.Len(t, cleaned, 1)
	assert.Equal(t, "The Brick", cleaned[0].Name)
}

func TestCleanDropsEmptyRecords(t *testing.T) {
	c := New()
	records := []source.RawRecord{{}, {SourceName: "traffic", Payload: map[string]any{"congestion_score": 0.4}}}
	cleaned := c.Clean(records, source.TypeTraffic)
	assert.Len(t, cleaned, 1)
}

func TestDeduplicateVenuesByNameAndCoordinates(t *testing.T) {
	c := New()
	records := []source.RawRecord{
		{Name: "Green Lady Lounge", Lat: ptr(39.09170), Lng: ptr(-94.58310)},
		{Name: "green lady lounge", Lat: ptr(39.09171), Lng: ptr(-94.58311)}, // same at 4dp
		{Name: "Green Lady Lounge", Lat: ptr(39.10000), Lng: ptr(-94.58310)}, // different spot
	}
	out := c.Deduplicate(records, source.TypeVenues)
	assert.Len(t, out, 2)
	assert.InDelta(t, 39.09170, *out[0].Lat, 1e-9)
}

func TestDeduplicateVenuesAddressFallback(t *testing.T) {
	c := New()
	records := []source.RawRecord{
		{Name: "Joe's Pizza", Address: "1336 Main St"},
		{Name: "Joe's Pizza", Address: "1336 main st"},
		{Name: "Joe's Pizza", Address: "8801 State Line Rd"},
	}
	out := c.Deduplicate(records, source.TypeVenues)
	assert.Len(t, out, 2)
}

func TestDeduplicateSocialByVenuePlatformTimestamp(t *testing.T) {
	c := New()
	records := []source.RawRecord{
		{Name: "RecordBar", Payload: map[string]any{"platform": "twitter", "ts": "2025-06-10T12:00:00Z", "mention_count": 4.0}},
		{Name: "RecordBar", Payload: map[string]any{"platform": "twitter", "ts": "2025-06-10T12:00:00Z", "mention_count": 9.0}},
		{Name: "RecordBar", Payload: map[string]any{"platform": "instagram", "ts": "2025-06-10T12:00:00Z", "mention_count": 4.0}},
	}
	out := c.Deduplicate(records, source.TypeSocial)
	require.Len(t, out, 2)
	n, _ := out[0].Float("mention_count")
	assert.InDelta(t, 4.0, n, 1e-9)
}

func TestDeduplicateGenericFullTuple(t *testing.T) {
	c := New()
	records := []source.RawRecord{
		{SourceName: "weather", Payload: map[string]any{"temperature_f": 72.0}},
		{SourceName: "weather", Payload: map[string]any{"temperature_f": 72.0}},
		{SourceName: "weather", Payload: map[string]any{"temperature_f": 68.0}},
	}
	assert.Len(t, c.Deduplicate(records, source.TypeWeather), 2)
}

func TestMetricsBucketsSources(t *testing.T) {
	c := New()
	reports := map[source.Type]Report{
		source.TypeVenues:  {QualityScore: 0.9, CompletenessScore: 0.95},
		source.TypeWeather: {QualityScore: 0.6, CompletenessScore: 0.7},
		source.TypeSocial:  {QualityScore: 0.2, CompletenessScore: 0.3},
	}

	m := c.Metrics(reports)
	assert.Equal(t, 3, m.TotalSources)
	assert.Equal(t, 1, m.HealthySources)
	assert.Equal(t, 1, m.WarningSources)
	assert.Equal(t, 1, m.CriticalSources)
	assert.InDelta(t, (0.9+0.6+0.2)/3, m.OverallQualityScore, 1e-9)
	assert.InDelta(t, 0.9, m.SourceHealth[source.TypeVenues], 1e-9)
}

func TestMetricsEmpty(t *testing.T) {
	m := New().Metrics(nil)
	assert.Zero(t, m.OverallQualityScore)
	assert.Zero(t, m.TotalSources)
}
