package registry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"venuegraph/internal/audit"
	"venuegraph/internal/registry/metrics"
	"venuegraph/internal/source"
	"venuegraph/pkg/geo"
	"venuegraph/pkg/platform/tx"
)

// Service resolves incoming records into canonical venues and keeps the
// registry free of duplicates.
type Service struct {
	venues  VenueStore
	events  EventStore
	matcher *Matcher
	audit   *audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	db      *sql.DB
	now     func() time.Time

	// Serializes match-then-create so two concurrent registrations of the
	// same new venue cannot both miss and both insert.
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAudit(p *audit.Publisher) Option {
	return func(s *Service) { s.audit = p }
}

// WithDB enables transactional consolidation. Without it each cluster merge
// runs as plain sequential store calls.
func WithDB(db *sql.DB) Option {
	return func(s *Service) { s.db = db }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService constructs a registry service.
func NewService(venues VenueStore, events EventStore, matcher *Matcher, opts ...Option) *Service {
	s := &Service{
		venues:  venues,
		events:  events,
		matcher: matcher,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterVenue resolves one record against the registry. A matched venue is
// enriched in place; an unmatched record creates a new venue. Matching never
// overwrites a populated field, it only fills gaps. Records carrying neither
// a name nor coordinates are rejected with a ValidationError, since no stage
// could ever match them and creating them would mint unidentifiable venues.
func (s *Service) RegisterVenue(ctx context.Context, rec source.RawRecord) (MatchResult, error) {
	if strings.TrimSpace(rec.Name) == "" && !rec.HasCoordinates() {
		return MatchResult{}, &ValidationError{Reason: "record has neither name nor coordinates"}
	}

	start := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	known, err := s.venues.List(ctx)
	if err != nil {
		return MatchResult{}, fmt.Errorf("list venues: %w", err)
	}

	var point *geo.Point
	if p, ok := rec.Point(); ok {
		point = &p
	}

	result := s.matcher.Match(rec.Name, point, known)
	if result.MatchType == MatchNone {
		created, err := s.createVenue(ctx, rec)
		if err != nil {
			return MatchResult{}, err
		}
		result = MatchResult{VenueID: created.ID, MatchType: MatchNone, Created: true}
	} else if err := s.enrichVenue(ctx, result.VenueID, rec); err != nil {
		return MatchResult{}, err
	}

	s.metrics.RecordRegistration(string(result.MatchType), result.Confidence)
	s.metrics.ObserveRegisterLatency(s.now().Sub(start))
	s.emitMatch(ctx, rec, result)

	return result, nil
}

// ResolveVenue matches a record against the registry without creating or
// modifying anything. Context records use this to find their venue.
func (s *Service) ResolveVenue(ctx context.Context, rec source.RawRecord) (uuid.UUID, bool, error) {
	known, err := s.venues.List(ctx)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("list venues: %w", err)
	}
	var point *geo.Point
	if p, ok := rec.Point(); ok {
		point = &p
	}
	result := s.matcher.Match(rec.Name, point, known)
	if result.MatchType == MatchNone {
		return uuid.Nil, false, nil
	}
	return result.VenueID, true, nil
}

func (s *Service) createVenue(ctx context.Context, rec source.RawRecord) (Venue, error) {
	now := s.now()
	v := Venue{
		ID:          uuid.New(),
		Name:        rec.Name,
		Category:    rec.Category,
		Lat:         rec.Lat,
		Lng:         rec.Lng,
		Address:     rec.Address,
		Phone:       rec.Phone,
		Website:     rec.Website,
		FirstSource: rec.SourceName,
		Sources:     []string{rec.SourceName},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.venues.Create(ctx, v); err != nil {
		return Venue{}, fmt.Errorf("create venue: %w", err)
	}
	s.logger.Debug("created venue", "venue_id", v.ID, "name", v.Name, "source", rec.SourceName)
	return v, nil
}

// enrichVenue back-fills empty fields from the record and stamps the venue as
// freshly seen.
func (s *Service) enrichVenue(ctx context.Context, id uuid.UUID, rec source.RawRecord) error {
	v, err := s.venues.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load matched venue: %w", err)
	}

	if v.Address == "" && rec.Address != "" {
		v.Address = rec.Address
	}
	if v.Phone == "" && rec.Phone != "" {
		v.Phone = rec.Phone
	}
	if v.Website == "" && rec.Website != "" {
		v.Website = rec.Website
	}
	if v.Category == "" && rec.Category != "" {
		v.Category = rec.Category
	}
	if !v.HasCoordinates() && rec.HasCoordinates() {
		v.Lat, v.Lng = rec.Lat, rec.Lng
	}
	if rec.SourceName != "" && !contains(v.Sources, rec.SourceName) {
		v.Sources = append(v.Sources, rec.SourceName)
	}
	v.UpdatedAt = s.now()

	if err := s.venues.Update(ctx, v); err != nil {
		return fmt.Errorf("update matched venue: %w", err)
	}
	return nil
}

func (s *Service) emitMatch(ctx context.Context, rec source.RawRecord, r MatchResult) {
	if s.audit == nil {
		return
	}
	err := s.audit.Emit(ctx, audit.Event{
		Timestamp:  s.now(),
		VenueID:    r.VenueID,
		SourceName: rec.SourceName,
		RecordName: rec.Name,
		MatchType:  string(r.MatchType),
		Confidence: r.Confidence,
		Created:    r.Created,
	})
	if err != nil {
		s.logger.Warn("audit emit failed", "error", err, "venue_id", r.VenueID)
	}
}

// RegisterEvent stores one event record. Linking to a venue happens in
// LinkEvents; here the event is persisted as given.
func (s *Service) RegisterEvent(ctx context.Context, rec source.RawRecord) (Event, error) {
	now := s.now()
	e := Event{
		ID:         uuid.New(),
		Name:       rec.Name,
		Category:   rec.Category,
		Lat:        rec.Lat,
		Lng:        rec.Lng,
		SourceName: rec.SourceName,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if vn, ok := rec.Payload["venue_name"].(string); ok {
		e.VenueName = vn
	}
	if ts, ok := rec.Payload["start_time"].(string); ok {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			e.StartTime = &t
		}
	}
	if ts, ok := rec.Payload["end_time"].(string); ok {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			e.EndTime = &t
		}
	}
	if score, ok := rec.Float("event_score"); ok {
		e.EventScore = &score
	}
	if err := s.events.Upsert(ctx, e); err != nil {
		return Event{}, fmt.Errorf("store event: %w", err)
	}
	return e, nil
}

// EventVenueCategory marks venues that exist only because an event named
// them before any venue source did.
const EventVenueCategory = "event_venue"

// LinkEvents attaches unlinked events to venues. Each event's venue name (or
// its own name when no venue name came with it) runs through the same staged
// resolution as venue records, so an event at a venue nobody has registered
// yet creates that venue rather than staying orphaned. Only events with no
// name and no nearby venue stay unlinked.
func (s *Service) LinkEvents(ctx context.Context) (LinkResult, error) {
	var res LinkResult

	unlinked, err := s.events.ListUnlinked(ctx)
	if err != nil {
		return res, fmt.Errorf("list unlinked events: %w", err)
	}
	res.Examined = len(unlinked)

	for _, e := range unlinked {
		name := e.VenueName
		if name == "" {
			name = e.Name
		}

		if strings.TrimSpace(name) == "" {
			if err := s.linkNamelessEvent(ctx, e, &res); err != nil {
				return res, err
			}
			continue
		}

		match, err := s.RegisterVenue(ctx, source.RawRecord{
			SourceName: e.SourceName,
			Name:       name,
			Category:   EventVenueCategory,
			Lat:        e.Lat,
			Lng:        e.Lng,
		})
		if err != nil {
			return res, fmt.Errorf("resolve event venue: %w", err)
		}
		if err := s.linkEvent(ctx, e, match.VenueID); err != nil {
			return res, err
		}
		switch {
		case match.Created:
			res.VenuesCreated++
		case match.MatchType == MatchLocation:
			res.LinkedByLocation++
		default:
			res.LinkedByName++
		}
	}

	s.logger.Info("linked events",
		"examined", res.Examined,
		"by_name", res.LinkedByName,
		"by_location", res.LinkedByLocation,
		"venues_created", res.VenuesCreated,
		"unlinked", res.Unlinked)
	return res, nil
}

// linkNamelessEvent handles events that carry no usable name: coordinates can
// still tie them to the nearest venue within 100 meters, otherwise they stay
// unlinked and flow through consolidated views on their own.
func (s *Service) linkNamelessEvent(ctx context.Context, e Event, res *LinkResult) error {
	if e.HasCoordinates() {
		venues, err := s.venues.List(ctx)
		if err != nil {
			return fmt.Errorf("list venues: %w", err)
		}
		if id, ok := nearestVenue(geo.Point{Lat: *e.Lat, Lng: *e.Lng}, venues, 0.1); ok {
			if err := s.linkEvent(ctx, e, id); err != nil {
				return err
			}
			res.LinkedByLocation++
			return nil
		}
	}
	res.Unlinked++
	return nil
}

func (s *Service) linkEvent(ctx context.Context, e Event, venueID uuid.UUID) error {
	e.VenueID = &venueID
	e.UpdatedAt = s.now()
	if err := s.events.Upsert(ctx, e); err != nil {
		return fmt.Errorf("link event: %w", err)
	}
	return nil
}

func nearestVenue(p geo.Point, venues []Venue, maxKm float64) (uuid.UUID, bool) {
	var best uuid.UUID
	bestDist := maxKm
	found := false
	for _, v := range venues {
		vp, ok := v.Point()
		if !ok {
			continue
		}
		if d := geo.DistanceKm(p, vp); d < bestDist {
			best, bestDist, found = v.ID, d, true
		}
	}
	return best, found
}

// Consolidate finds venue pairs that describe the same place and merges each
// duplicate into its master. The first-registered venue of a cluster wins;
// its events absorb the duplicates' events and the duplicates are deleted.
// Each cluster merges in its own transaction.
func (s *Service) Consolidate(ctx context.Context) (ConsolidationResult, error) {
	start := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	venues, err := s.venues.List(ctx)
	if err != nil {
		return ConsolidationResult{}, fmt.Errorf("list venues: %w", err)
	}

	res := ConsolidationResult{Examined: len(venues)}

	// Venues come back ordered by creation time, so pairing i < j makes the
	// earlier venue the master. A venue claimed as someone's duplicate never
	// becomes a master itself.
	claimed := make(map[uuid.UUID]bool)
	clusters := make(map[uuid.UUID][]DuplicatePair)
	var masters []uuid.UUID

	for i := 0; i < len(venues); i++ {
		if claimed[venues[i].ID] {
			continue
		}
		for j := i + 1; j < len(venues); j++ {
			if claimed[venues[j].ID] {
				continue
			}
			pair, ok := s.matcher.ScoreDuplicate(venues[i], venues[j])
			if !ok {
				continue
			}
			claimed[venues[j].ID] = true
			if _, seen := clusters[pair.MasterID]; !seen {
				masters = append(masters, pair.MasterID)
			}
			clusters[pair.MasterID] = append(clusters[pair.MasterID], pair)
			res.Pairs = append(res.Pairs, pair)
		}
	}
	res.PairsFound = len(res.Pairs)

	for _, masterID := range masters {
		merged, reassigned, err := s.mergeCluster(ctx, masterID, clusters[masterID])
		if err != nil {
			return res, fmt.Errorf("merge cluster %s: %w", masterID, err)
		}
		res.VenuesMerged += merged
		res.EventsReassigned += reassigned
	}

	res.Duration = s.now().Sub(start)
	s.metrics.RecordConsolidation(res.VenuesMerged, res.EventsReassigned)
	s.logger.Info("consolidated duplicates",
		"examined", res.Examined,
		"pairs", res.PairsFound,
		"merged", res.VenuesMerged,
		"events_reassigned", res.EventsReassigned)
	return res, nil
}

// mergeCluster folds every duplicate of one master inside a single
// transaction, so a failure leaves the cluster untouched.
func (s *Service) mergeCluster(ctx context.Context, masterID uuid.UUID, pairs []DuplicatePair) (merged, reassigned int, err error) {
	err = s.inTx(ctx, func(ctx context.Context) error {
		master, err := s.venues.Get(ctx, masterID)
		if err != nil {
			return fmt.Errorf("load master: %w", err)
		}
		for _, pair := range pairs {
			dup, err := s.venues.Get(ctx, pair.DuplicateID)
			if err != nil {
				return fmt.Errorf("load duplicate: %w", err)
			}

			master = absorb(master, dup)

			n, err := s.events.ReassignVenue(ctx, dup.ID, master.ID)
			if err != nil {
				return err
			}
			reassigned += n

			if err := s.venues.Delete(ctx, dup.ID); err != nil {
				return fmt.Errorf("delete duplicate: %w", err)
			}
			merged++
		}
		master.UpdatedAt = s.now()
		if err := s.venues.Update(ctx, master); err != nil {
			return fmt.Errorf("update master: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return merged, reassigned, nil
}

func (s *Service) inTx(ctx context.Context, fn func(context.Context) error) error {
	if s.db == nil {
		return fn(ctx)
	}
	return tx.InTx(ctx, s.db, fn)
}

// absorb back-fills the master's empty fields from a duplicate and unions
// their source lists.
func absorb(master, dup Venue) Venue {
	if master.Address == "" {
		master.Address = dup.Address
	}
	if master.Phone == "" {
		master.Phone = dup.Phone
	}
	if master.Website == "" {
		master.Website = dup.Website
	}
	if master.Category == "" {
		master.Category = dup.Category
	}
	if !master.HasCoordinates() && dup.HasCoordinates() {
		master.Lat, master.Lng = dup.Lat, dup.Lng
	}
	for _, src := range dup.Sources {
		if !contains(master.Sources, src) {
			master.Sources = append(master.Sources, src)
		}
	}
	return master
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
