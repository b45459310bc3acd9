package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"venuegraph/internal/registry"
	"venuegraph/internal/source"
	"venuegraph/pkg/geo"
)

// Service builds consolidated views on read from the registry and context
// stores. Views are not materialized; callers that need caching layer it on
// top.
type Service struct {
	venues  registry.VenueStore
	events  registry.EventStore
	context ContextStore
	logger  *slog.Logger
	now     func() time.Time

	// venueWorkers bounds how many venue views build concurrently in an
	// area query.
	venueWorkers int
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithVenueWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.venueWorkers = n
		}
	}
}

// NewService constructs an aggregator.
func NewService(venues registry.VenueStore, events registry.EventStore, contextStore ContextStore, opts ...Option) *Service {
	s := &Service{
		venues:       venues,
		events:       events,
		context:      contextStore,
		logger:       slog.Default(),
		now:          time.Now,
		venueWorkers: 8,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PutContext records one source's latest payload for a venue.
func (s *Service) PutContext(ctx context.Context, venueID uuid.UUID, sourceType source.Type, payload map[string]any) error {
	return s.context.Put(ctx, venueID, ContextEntry{
		SourceType: sourceType,
		Payload:    payload,
		UpdatedAt:  s.now(),
	})
}

// VenueView assembles the consolidated view of one venue.
func (s *Service) VenueView(ctx context.Context, venueID uuid.UUID) (VenueView, error) {
	venue, err := s.venues.Get(ctx, venueID)
	if err != nil {
		return VenueView{}, fmt.Errorf("load venue: %w", err)
	}
	return s.buildVenueView(ctx, venue)
}

func (s *Service) buildVenueView(ctx context.Context, venue registry.Venue) (VenueView, error) {
	view := VenueView{Venue: venue, GeneratedAt: s.now()}

	entries, err := s.context.GetByVenue(ctx, venue.ID)
	if err != nil {
		return VenueView{}, fmt.Errorf("load venue context: %w", err)
	}

	if e, ok := entries[source.TypeWeather]; ok {
		view.Weather = decodeWeather(e.Payload)
	}
	if e, ok := entries[source.TypeTraffic]; ok {
		view.Traffic = decodeTraffic(e.Payload)
	}
	if e, ok := entries[source.TypeSocial]; ok {
		view.Social = decodeSocial(e.Payload)
	}
	if e, ok := entries[source.TypeML]; ok {
		view.ML = decodeML(e.Payload)
	}
	if e, ok := entries[source.TypeFootTraffic]; ok {
		view.FootTraffic = decodeFootTraffic(e.Payload)
	}
	if e, ok := entries[source.TypeEconomic]; ok {
		view.Economic = decodeEconomic(e.Payload)
	}
	if e, ok := entries[source.TypeDemographic]; ok {
		view.Demographic = decodeDemographic(e.Payload)
	}

	linked, err := s.events.ListByVenue(ctx, venue.ID)
	if err != nil {
		return VenueView{}, fmt.Errorf("load venue events: %w", err)
	}
	for _, e := range linked {
		view.Events = append(view.Events, EventSummary{
			ID:         e.ID,
			Name:       e.Name,
			Category:   e.Category,
			StartTime:  e.StartTime,
			EventScore: e.EventScore,
		})
	}

	view.CompletenessScore, view.DataReliability = scoreView(view)
	view.ComprehensiveScore = view.CompletenessScore
	if view.ML != nil && view.ML.PsychographicDensity != nil {
		view.ComprehensiveScore = *view.ML.PsychographicDensity
	}
	return view, nil
}

// scoreView computes completeness over the eight data facets and the mean
// reliability weight of the facets present. Core venue data always counts.
func scoreView(v VenueView) (completeness, reliability float64) {
	present := []source.Type{source.TypeVenues}
	if v.Weather != nil {
		present = append(present, source.TypeWeather)
	}
	if v.Traffic != nil {
		present = append(present, source.TypeTraffic)
	}
	if v.Social != nil {
		present = append(present, source.TypeSocial)
	}
	if v.ML != nil {
		present = append(present, source.TypeML)
	}
	if v.FootTraffic != nil {
		present = append(present, source.TypeFootTraffic)
	}
	if v.Economic != nil {
		present = append(present, source.TypeEconomic)
	}
	if v.Demographic != nil {
		present = append(present, source.TypeDemographic)
	}

	var weightSum float64
	for _, t := range present {
		weightSum += reliabilityWeights[t]
	}
	return float64(len(present)) / 8, weightSum / float64(len(present))
}

// EventViews returns events inside the bounds that start inside the window,
// with their venues attached. Events with no start time count as upcoming and
// always pass the window. Events without a resolvable venue still appear, and
// events that carry no coordinates at all pass the bounds filter rather than
// vanish from every area.
func (s *Service) EventViews(ctx context.Context, bounds geo.Bounds, start, end time.Time) ([]EventView, error) {
	events, err := s.events.ListInWindow(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list events in window: %w", err)
	}

	out := make([]EventView, 0, len(events))
	for _, e := range events {
		view := EventView{Event: e}
		if e.VenueID != nil {
			v, err := s.venues.Get(ctx, *e.VenueID)
			switch {
			case err == nil:
				view.Venue = &v
			case !errors.Is(err, registry.ErrNotFound):
				return nil, fmt.Errorf("load event venue: %w", err)
			}
		}
		if p, ok := eventPoint(view); ok && !bounds.Contains(p) {
			continue
		}
		out = append(out, view)
	}
	return out, nil
}

// eventPoint locates an event for bounds filtering: its own coordinates
// first, its venue's as fallback.
func eventPoint(v EventView) (geo.Point, bool) {
	if v.Event.HasCoordinates() {
		return geo.Point{Lat: *v.Event.Lat, Lng: *v.Event.Lng}, true
	}
	if v.Venue != nil {
		return v.Venue.Point()
	}
	return geo.Point{}, false
}

// AreaView answers the consumer contract: all venues inside the bounds with
// their consolidated context, plus the events inside the bounds starting
// inside the window. Venue views build concurrently.
func (s *Service) AreaView(ctx context.Context, bounds geo.Bounds, start, end time.Time) (AreaView, error) {
	if !bounds.Valid() {
		return AreaView{}, fmt.Errorf("invalid bounds: north %f south %f east %f west %f",
			bounds.North, bounds.South, bounds.East, bounds.West)
	}

	area := AreaView{GeneratedAt: s.now()}

	venues, err := s.venues.ListInBounds(ctx, bounds)
	if err != nil {
		return AreaView{}, fmt.Errorf("list venues in bounds: %w", err)
	}

	views := make([]VenueView, len(venues))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.venueWorkers)
	for i, venue := range venues {
		g.Go(func() error {
			view, err := s.buildVenueView(gctx, venue)
			if err != nil {
				return err
			}
			views[i] = view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return AreaView{}, err
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].CompletenessScore > views[j].CompletenessScore
	})
	area.Venues = views

	area.Events, err = s.EventViews(ctx, bounds, start, end)
	if err != nil {
		return AreaView{}, err
	}

	s.logger.Debug("built area view",
		"venues", len(area.Venues),
		"events", len(area.Events))
	return area, nil
}
