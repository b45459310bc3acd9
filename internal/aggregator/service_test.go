package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuegraph/internal/registry"
	"venuegraph/internal/source"
	"venuegraph/pkg/geo"
)

func newTestAggregator(t *testing.T) (*Service, *registry.InMemoryVenueStore, *registry.InMemoryEventStore, *InMemoryContextStore) {
	t.Helper()
	venues := registry.NewInMemoryVenueStore()
	events := registry.NewInMemoryEventStore()
	contexts := NewInMemoryContextStore()
	return NewService(venues, events, contexts), venues, events, contexts
}

func metroBounds() geo.Bounds {
	return geo.Bounds{North: 39.2, South: 39.0, East: -94.5, West: -94.7}
}

func seedVenue(t *testing.T, store *registry.InMemoryVenueStore, name string, lat, lng float64) registry.Venue {
	t.Helper()
	v := registry.Venue{
		ID: uuid.New(), Name: name, Lat: &lat, Lng: &lng,
		FirstSource: "google_places", Sources: []string{"google_places"},
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, store.Create(context.Background(), v))
	return v
}

func TestVenueViewCoreOnly(t *testing.T) {
	svc, venues, _, _ := newTestAggregator(t)
	v := seedVenue(t, venues, "Green Lady Lounge", 39.09170, -94.58310)

	view, err := svc.VenueView(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, view.Venue.ID)
	assert.Nil(t, view.Weather)
	assert.Nil(t, view.Social)
	assert.InDelta(t, 1.0/8, view.CompletenessScore, 1e-9)
	assert.InDelta(t, 1.0, view.DataReliability, 1e-9)
}

func TestVenueViewWithContextBlocks(t *testing.T) {
	svc, venues, _, _ := newTestAggregator(t)
	ctx := context.Background()
	v := seedVenue(t, venues, "The Brick", 39.09100, -94.58400)

	require.NoError(t, svc.PutContext(ctx, v.ID, source.TypeWeather, map[string]any{
		"temperature_f": 78.0, "weather_condition": "clear", "humidity": 0.55,
	}))
	require.NoError(t, svc.PutContext(ctx, v.ID, source.TypeSocial, map[string]any{
		"mention_count": 42.0, "positive_sentiment": 0.7,
	}))

	view, err := svc.VenueView(ctx, v.ID)
	require.NoError(t, err)

	require.NotNil(t, view.Weather)
	assert.InDelta(t, 78.0, *view.Weather.TemperatureF, 1e-9)
	assert.Equal(t, "clear", view.Weather.Condition)
	require.NotNil(t, view.Social)
	assert.InDelta(t, 42.0, *view.Social.MentionCount, 1e-9)

	// venue core + weather + social out of eight facets
	assert.InDelta(t, 3.0/8, view.CompletenessScore, 1e-9)
	assert.InDelta(t, (1.0+0.9+0.8)/3, view.DataReliability, 1e-9)
	// no ML prediction, so the comprehensive score falls back to completeness
	assert.InDelta(t, view.CompletenessScore, view.ComprehensiveScore, 1e-9)
}

func TestVenueViewComprehensiveScoreFromML(t *testing.T) {
	svc, venues, _, _ := newTestAggregator(t)
	ctx := context.Background()
	v := seedVenue(t, venues, "Mutual Musicians Foundation", 39.09280, -94.55600)

	require.NoError(t, svc.PutContext(ctx, v.ID, source.TypeML, map[string]any{
		"psychographic_density": 0.63,
	}))

	view, err := svc.VenueView(ctx, v.ID)
	require.NoError(t, err)
	require.NotNil(t, view.ML)
	assert.InDelta(t, 0.63, view.ComprehensiveScore, 1e-9)
}

func TestVenueViewOmitsBlockWithoutPrimaryField(t *testing.T) {
	svc, venues, _, _ := newTestAggregator(t)
	ctx := context.Background()
	v := seedVenue(t, venues, "RecordBar", 39.08700, -94.58500)

	// humidity alone does not make a weather block
	require.NoError(t, svc.PutContext(ctx, v.ID, source.TypeWeather, map[string]any{
		"humidity": 0.8,
	}))

	view, err := svc.VenueView(ctx, v.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Weather)
	assert.InDelta(t, 1.0/8, view.CompletenessScore, 1e-9)
}

func TestVenueViewIncludesLinkedEvents(t *testing.T) {
	svc, venues, events, _ := newTestAggregator(t)
	ctx := context.Background()
	v := seedVenue(t, venues, "Uptown Theater", 39.05500, -94.58900)

	later := time.Date(2025, 7, 1, 20, 0, 0, 0, time.UTC)
	earlier := time.Date(2025, 7, 1, 18, 0, 0, 0, time.UTC)
	vid := v.ID
	require.NoError(t, events.Upsert(ctx, registry.Event{ID: uuid.New(), Name: "Late Show", VenueID: &vid, StartTime: &later}))
	require.NoError(t, events.Upsert(ctx, registry.Event{ID: uuid.New(), Name: "Early Show", VenueID: &vid, StartTime: &earlier}))

	view, err := svc.VenueView(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, view.Events, 2)
	assert.Equal(t, "Early Show", view.Events[0].Name, "events sorted by start time")
}

func TestEventViewsAttachVenuesAndKeepOrphans(t *testing.T) {
	svc, venues, events, _ := newTestAggregator(t)
	ctx := context.Background()
	v := seedVenue(t, venues, "Knuckleheads", 39.11600, -94.55300)

	start := time.Date(2025, 7, 4, 19, 0, 0, 0, time.UTC)
	vid := v.ID
	require.NoError(t, events.Upsert(ctx, registry.Event{ID: uuid.New(), Name: "Blues Night", VenueID: &vid, StartTime: &start}))
	require.NoError(t, events.Upsert(ctx, registry.Event{ID: uuid.New(), Name: "Pop-up Market", StartTime: &start}))

	views, err := svc.EventViews(ctx, metroBounds(), start.Add(-time.Hour), start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, views, 2)

	var linked, orphaned int
	for _, ev := range views {
		if ev.Venue != nil {
			linked++
			assert.Equal(t, v.ID, ev.Venue.ID)
		} else {
			orphaned++
		}
	}
	assert.Equal(t, 1, linked)
	assert.Equal(t, 1, orphaned, "unlinked events still flow through")
}

func TestEventViewsWindowExcludesOutside(t *testing.T) {
	svc, _, events, _ := newTestAggregator(t)
	ctx := context.Background()

	inside := time.Date(2025, 7, 4, 19, 0, 0, 0, time.UTC)
	outside := inside.Add(48 * time.Hour)
	require.NoError(t, events.Upsert(ctx, registry.Event{ID: uuid.New(), Name: "Tonight", StartTime: &inside}))
	require.NoError(t, events.Upsert(ctx, registry.Event{ID: uuid.New(), Name: "Next Week", StartTime: &outside}))

	views, err := svc.EventViews(ctx, metroBounds(), inside.Add(-time.Hour), inside.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Tonight", views[0].Event.Name)
}

func TestEventViewsKeepUnscheduledEvents(t *testing.T) {
	svc, _, events, _ := newTestAggregator(t)
	ctx := context.Background()

	tonight := time.Date(2025, 7, 4, 19, 0, 0, 0, time.UTC)
	require.NoError(t, events.Upsert(ctx, registry.Event{ID: uuid.New(), Name: "Tonight", StartTime: &tonight}))
	require.NoError(t, events.Upsert(ctx, registry.Event{ID: uuid.New(), Name: "Date TBD"}))

	views, err := svc.EventViews(ctx, metroBounds(), tonight.Add(-time.Hour), tonight.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, views, 2, "events with no start time always qualify")
	assert.Equal(t, "Tonight", views[0].Event.Name, "scheduled events sort first")
	assert.Equal(t, "Date TBD", views[1].Event.Name)
}

func TestEventViewsFilterByBounds(t *testing.T) {
	svc, venues, events, _ := newTestAggregator(t)
	ctx := context.Background()

	start := time.Date(2025, 7, 4, 19, 0, 0, 0, time.UTC)
	inLat, inLng := 39.09700, -94.58300
	outLat, outLng := 38.80000, -94.90000
	require.NoError(t, events.Upsert(ctx, registry.Event{ID: uuid.New(), Name: "Downtown Block Party",
		Lat: &inLat, Lng: &inLng, StartTime: &start}))
	require.NoError(t, events.Upsert(ctx, registry.Event{ID: uuid.New(), Name: "Suburb Fair",
		Lat: &outLat, Lng: &outLng, StartTime: &start}))
	// no coordinates on the event itself; its venue sits outside the bounds
	far := seedVenue(t, venues, "Far Hall", outLat, outLng)
	farID := far.ID
	require.NoError(t, events.Upsert(ctx, registry.Event{ID: uuid.New(), Name: "Far Hall Gala",
		VenueID: &farID, StartTime: &start}))
	// no coordinates anywhere: kept rather than dropped from every area
	require.NoError(t, events.Upsert(ctx, registry.Event{ID: uuid.New(), Name: "Roaming Popup", StartTime: &start}))

	views, err := svc.EventViews(ctx, metroBounds(), start.Add(-time.Hour), start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, views, 2)

	names := []string{views[0].Event.Name, views[1].Event.Name}
	assert.ElementsMatch(t, []string{"Downtown Block Party", "Roaming Popup"}, names)
}

func TestAreaViewFiltersByBounds(t *testing.T) {
	svc, venues, _, _ := newTestAggregator(t)
	ctx := context.Background()

	seedVenue(t, venues, "Downtown Spot", 39.09700, -94.58300)
	seedVenue(t, venues, "Far Suburb Spot", 38.80000, -94.90000)

	bounds := geo.Bounds{North: 39.2, South: 39.0, East: -94.5, West: -94.7}
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	area, err := svc.AreaView(ctx, bounds, start, start.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, area.Venues, 1)
	assert.Equal(t, "Downtown Spot", area.Venues[0].Venue.Name)
}

func TestAreaViewOrdersByCompleteness(t *testing.T) {
	svc, venues, _, _ := newTestAggregator(t)
	ctx := context.Background()

	sparse := seedVenue(t, venues, "Sparse Spot", 39.09500, -94.58100)
	rich := seedVenue(t, venues, "Rich Spot", 39.09600, -94.58200)
	require.NoError(t, svc.PutContext(ctx, rich.ID, source.TypeWeather, map[string]any{
		"temperature_f": 70.0,
	}))

	bounds := geo.Bounds{North: 39.2, South: 39.0, East: -94.5, West: -94.7}
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	area, err := svc.AreaView(ctx, bounds, start, start.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, area.Venues, 2)
	assert.Equal(t, rich.ID, area.Venues[0].Venue.ID)
	assert.Equal(t, sparse.ID, area.Venues[1].Venue.ID)
}

func TestAreaViewRejectsInvalidBounds(t *testing.T) {
	svc, _, _, _ := newTestAggregator(t)
	bounds := geo.Bounds{North: 38.0, South: 39.0, East: -94.5, West: -94.7} // inverted
	_, err := svc.AreaView(context.Background(), bounds, time.Now(), time.Now().Add(time.Hour))
	assert.Error(t, err)
}
