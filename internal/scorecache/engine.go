package scorecache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"venuegraph/pkg/geo"
)

// Default TTLs per layer. Spending shifts hourly, college presence more
// slowly, and combined scores fold in event data so they expire fastest.
const (
	spendingTTL = time.Hour
	collegeTTL  = 2 * time.Hour
	combinedTTL = 30 * time.Minute
)

// EventRef is the event context folded into a combined score.
type EventRef struct {
	ID    string    `json:"id"`
	Point geo.Point `json:"point"`
}

// CombinedScore is the blended output of the scoring layers.
type CombinedScore struct {
	SpendingPropensity  float64   `json:"spending_propensity"`
	CollegePresence     float64   `json:"college_presence"`
	EventProximityBonus float64   `json:"event_proximity_bonus"`
	Combined            float64   `json:"combined_score"`
	Timestamp           time.Time `json:"timestamp"`
}

// Weights blends the layers into a combined score.
type Weights struct {
	Spending       float64
	College        float64
	EventProximity float64
}

// DefaultWeights favors spending slightly over the other two signals.
func DefaultWeights() Weights {
	return Weights{Spending: 0.4, College: 0.3, EventProximity: 0.3}
}

// Engine computes layer scores through their caches.
type Engine struct {
	spending Cache
	college  Cache
	combined Cache

	weights           Weights
	minRecalcInterval time.Duration
	logger            *slog.Logger
	now               func() time.Time

	mu         sync.Mutex
	lastRecalc map[string]time.Time
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithWeights(w Weights) Option {
	return func(e *Engine) { e.weights = w }
}

// WithMinRecalcInterval sets how long a recalculation sweep suppresses the
// next one.
func WithMinRecalcInterval(d time.Duration) Option {
	return func(e *Engine) { e.minRecalcInterval = d }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine constructs a scoring engine over three caches, one per layer.
func NewEngine(spending, college, combined Cache, opts ...Option) *Engine {
	e := &Engine{
		spending:          spending,
		college:           college,
		combined:          combined,
		weights:           DefaultWeights(),
		minRecalcInterval: 5 * time.Minute,
		logger:            slog.Default(),
		now:               time.Now,
		lastRecalc:        make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// pyWeekday numbers days Monday=0 through Sunday=6, the convention the
// factor tables and dependency tags were built around.
func pyWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// cacheKey builds a layer key from rounded coordinates and the time facets
// the layer is sensitive to.
func cacheKey(layer string, p geo.Point, t time.Time, event *EventRef) string {
	lat := roundTo(p.Lat, 4)
	lng := roundTo(p.Lng, 4)

	var timeKey string
	if layer == "college" {
		timeKey = fmt.Sprintf("%d-%d", t.Hour(), pyWeekday(t))
	} else {
		timeKey = fmt.Sprintf("%d-%d-%d-%d-%d", t.Year(), int(t.Month()), t.Day(), t.Hour(), pyWeekday(t))
	}

	key := fmt.Sprintf("%s_%g_%g_%s", layer, lat, lng, timeKey)
	if event != nil {
		key += "_" + event.ID
	}
	return key
}

func roundTo(v float64, places int) float64 {
	shift := 1.0
	for i := 0; i < places; i++ {
		shift *= 10
	}
	if v < 0 {
		return float64(int64(v*shift-0.5)) / shift
	}
	return float64(int64(v*shift+0.5)) / shift
}

func locationTag(p geo.Point) string {
	return fmt.Sprintf("location_%.3f_%.3f", p.Lat, p.Lng)
}

// SpendingScore returns the cached spending propensity for a point and time,
// computing it on a miss.
func (e *Engine) SpendingScore(ctx context.Context, p geo.Point, t time.Time) (float64, error) {
	key := cacheKey("spending", p, t, nil)
	if v, ok, err := e.getFloat(ctx, e.spending, key); err != nil {
		return 0, err
	} else if ok {
		return v, nil
	}

	score := SpendingPropensity(p, t)
	tags := []string{
		fmt.Sprintf("time_hour_%d", t.Hour()),
		fmt.Sprintf("time_day_%d", t.Day()),
		fmt.Sprintf("time_month_%d", int(t.Month())),
		fmt.Sprintf("time_dow_%d", pyWeekday(t)),
	}
	if err := e.setFloat(ctx, e.spending, key, score, spendingTTL, tags); err != nil {
		return 0, err
	}
	return score, nil
}

// CollegeScore returns the cached college presence for a point and time,
// computing it on a miss.
func (e *Engine) CollegeScore(ctx context.Context, p geo.Point, t time.Time) (float64, error) {
	key := cacheKey("college", p, t, nil)
	if v, ok, err := e.getFloat(ctx, e.college, key); err != nil {
		return 0, err
	} else if ok {
		return v, nil
	}

	score := CollegePresence(p, t)
	tags := []string{
		fmt.Sprintf("time_hour_%d", t.Hour()),
		fmt.Sprintf("time_dow_%d", pyWeekday(t)),
		locationTag(p),
	}
	if err := e.setFloat(ctx, e.college, key, score, collegeTTL, tags); err != nil {
		return 0, err
	}
	return score, nil
}

// Combined blends the layers for one point and time. When an event is given,
// proximity to it adds a bonus that fades linearly to zero at five
// kilometers, and the cached result is tagged with the event so event
// changes invalidate it.
func (e *Engine) Combined(ctx context.Context, p geo.Point, t time.Time, event *EventRef) (CombinedScore, error) {
	key := cacheKey("combined", p, t, event)
	if raw, ok, err := e.combined.Get(ctx, key); err != nil {
		return CombinedScore{}, fmt.Errorf("combined cache get: %w", err)
	} else if ok {
		var cached CombinedScore
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		// Undecodable entry: fall through and recompute over it.
	}

	spending, err := e.SpendingScore(ctx, p, t)
	if err != nil {
		return CombinedScore{}, err
	}
	college, err := e.CollegeScore(ctx, p, t)
	if err != nil {
		return CombinedScore{}, err
	}

	var bonus float64
	if event != nil {
		if dist := geo.DistanceKm(p, event.Point); dist < 5 {
			bonus = 1 - dist/5
		}
	}

	result := CombinedScore{
		SpendingPropensity:  spending,
		CollegePresence:     college,
		EventProximityBonus: bonus,
		Combined: spending*e.weights.Spending +
			college*e.weights.College +
			bonus*e.weights.EventProximity,
		Timestamp: t,
	}

	tags := []string{
		fmt.Sprintf("time_hour_%d", t.Hour()),
		fmt.Sprintf("time_day_%d", t.Day()),
		fmt.Sprintf("time_month_%d", int(t.Month())),
		locationTag(p),
	}
	if event != nil {
		tags = append(tags, "event_"+event.ID)
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return CombinedScore{}, fmt.Errorf("encode combined score: %w", err)
	}
	if err := e.combined.Set(ctx, key, raw, combinedTTL, tags); err != nil {
		return CombinedScore{}, fmt.Errorf("combined cache set: %w", err)
	}
	return result, nil
}

// RecalculateSpending drops spending entries built from the given time's
// facets. Sweeps closer together than the minimum interval are skipped.
func (e *Engine) RecalculateSpending(ctx context.Context, t time.Time) error {
	if !e.shouldRecalc("spending", t) {
		e.logger.Debug("skipping spending recalculation, too soon")
		return nil
	}
	e.logger.Info("recalculating spending propensity scores")

	tags := []string{
		fmt.Sprintf("time_hour_%d", t.Hour()),
		fmt.Sprintf("time_day_%d", t.Day()),
		fmt.Sprintf("time_month_%d", int(t.Month())),
		fmt.Sprintf("time_dow_%d", pyWeekday(t)),
	}
	for _, tag := range tags {
		if _, err := e.spending.InvalidateTag(ctx, tag); err != nil {
			return err
		}
	}
	for _, tag := range tags[:2] {
		if _, err := e.combined.InvalidateTag(ctx, tag); err != nil {
			return err
		}
	}
	return nil
}

// RecalculateCollege drops college entries built from the given time's
// facets, under the same minimum-interval rule.
func (e *Engine) RecalculateCollege(ctx context.Context, t time.Time) error {
	if !e.shouldRecalc("college", t) {
		e.logger.Debug("skipping college recalculation, too soon")
		return nil
	}
	e.logger.Info("recalculating college presence scores")

	tags := []string{
		fmt.Sprintf("time_hour_%d", t.Hour()),
		fmt.Sprintf("time_dow_%d", pyWeekday(t)),
	}
	for _, tag := range tags {
		if _, err := e.college.InvalidateTag(ctx, tag); err != nil {
			return err
		}
	}
	if _, err := e.combined.InvalidateTag(ctx, tags[0]); err != nil {
		return err
	}
	return nil
}

// InvalidateArea drops location-tagged entries around a point, used when an
// event near it appears or changes shape.
func (e *Engine) InvalidateArea(ctx context.Context, p geo.Point) error {
	tag := locationTag(p)
	if _, err := e.college.InvalidateTag(ctx, tag); err != nil {
		return err
	}
	if _, err := e.combined.InvalidateTag(ctx, tag); err != nil {
		return err
	}
	return nil
}

// InvalidateEvent drops every combined score that folded in the event.
func (e *Engine) InvalidateEvent(ctx context.Context, eventID string) error {
	n, err := e.combined.InvalidateTag(ctx, "event_"+eventID)
	if err != nil {
		return err
	}
	e.logger.Debug("invalidated event scores", "event_id", eventID, "entries", n)
	return nil
}

// ClearAll empties every layer cache. Nothing stale survives a clear.
func (e *Engine) ClearAll(ctx context.Context) error {
	for _, c := range []Cache{e.spending, e.college, e.combined} {
		if err := c.Clear(ctx); err != nil {
			return err
		}
	}
	e.logger.Info("cleared all score caches")
	return nil
}

// LayerStats is per-layer cache statistics.
type LayerStats struct {
	Spending CacheStats `json:"spending"`
	College  CacheStats `json:"college"`
	Combined CacheStats `json:"combined"`
}

func (e *Engine) Stats(ctx context.Context) (LayerStats, error) {
	var out LayerStats
	var err error
	if out.Spending, err = e.spending.Stats(ctx); err != nil {
		return out, err
	}
	if out.College, err = e.college.Stats(ctx); err != nil {
		return out, err
	}
	if out.Combined, err = e.combined.Stats(ctx); err != nil {
		return out, err
	}
	return out, nil
}

func (e *Engine) shouldRecalc(layer string, t time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if last, ok := e.lastRecalc[layer]; ok && t.Sub(last) < e.minRecalcInterval {
		return false
	}
	e.lastRecalc[layer] = t
	return true
}

func (e *Engine) getFloat(ctx context.Context, c Cache, key string) (float64, bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil {
		return 0, false, fmt.Errorf("cache get: %w", err)
	}
	if !ok {
		return 0, false, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false, nil
	}
	return v, true, nil
}

func (e *Engine) setFloat(ctx context.Context, c Cache, key string, v float64, ttl time.Duration, tags []string) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode score: %w", err)
	}
	if err := c.Set(ctx, key, raw, ttl, tags); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
