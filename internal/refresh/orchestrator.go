// Package refresh drives the consolidation pipeline: gate raw data through
// quality control, resolve it into the registry, attach context, and shake
// stale entries out of the score caches.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"venuegraph/internal/aggregator"
	"venuegraph/internal/quality"
	"venuegraph/internal/registry"
	"venuegraph/internal/scorecache"
	"venuegraph/internal/source"
)

// RecordSource supplies the raw records accumulated since the last refresh,
// grouped by source type. Draining is the provider's concern; the
// orchestrator only reads snapshots.
type RecordSource interface {
	Snapshot(ctx context.Context) (map[source.Type][]source.RawRecord, error)
}

// Status reports one refresh run. Partial means the deadline cut the run
// short; the phases that finished kept their results.
type Status struct {
	StartedAt  time.Time                      `json:"started_at"`
	FinishedAt time.Time                      `json:"finished_at"`
	Forced     bool                           `json:"forced"`
	Skipped    bool                           `json:"skipped"`
	Partial    bool                           `json:"partial"`
	Reports    map[source.Type]quality.Report `json:"reports,omitempty"`
	Registered int                            `json:"registered"`
	Events     int                            `json:"events"`
	Context    int                            `json:"context"`

	Consolidation registry.ConsolidationResult `json:"consolidation"`
	Links         registry.LinkResult          `json:"links"`
	Error         string                       `json:"error,omitempty"`
}

// Health is the service health summary exposed over HTTP.
type Health struct {
	Status        string          `json:"status"`
	LastRefresh   time.Time       `json:"last_refresh"`
	RefreshNeeded bool            `json:"refresh_needed"`
	Quality       quality.Metrics `json:"quality"`
}

// Orchestrator runs the pipeline end to end.
type Orchestrator struct {
	records    RecordSource
	quality    *quality.Controller
	registry   *registry.Service
	aggregator *aggregator.Service
	scores     *scorecache.Engine

	workers    int
	deadline   time.Duration
	minRefresh time.Duration
	staleAfter time.Duration
	logger     *slog.Logger
	metrics    *Metrics
	now        func() time.Time

	mu          sync.Mutex
	running     bool
	lastRefresh time.Time
	lastStatus  Status
	lastMetrics quality.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithWorkers bounds per-source validation concurrency.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithDeadline caps how long one refresh run may take.
func WithDeadline(d time.Duration) Option {
	return func(o *Orchestrator) { o.deadline = d }
}

// WithMinRefreshInterval sets how recent a previous run must be for an
// unforced refresh to be skipped.
func WithMinRefreshInterval(d time.Duration) Option {
	return func(o *Orchestrator) { o.minRefresh = d }
}

// WithStaleAfter sets the age at which health reports a refresh as needed.
func WithStaleAfter(d time.Duration) Option {
	return func(o *Orchestrator) { o.staleAfter = d }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New constructs a refresh orchestrator.
func New(records RecordSource, qc *quality.Controller, reg *registry.Service, agg *aggregator.Service, scores *scorecache.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		records:    records,
		quality:    qc,
		registry:   reg,
		aggregator: agg,
		scores:     scores,
		workers:    4,
		deadline:   time.Hour,
		minRefresh: time.Hour,
		staleAfter: 24 * time.Hour,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Refresh runs the full pipeline. An unforced run is skipped while the
// previous one is recent enough. Only one run executes at a time.
func (o *Orchestrator) Refresh(ctx context.Context, force bool) (Status, error) {
	start := o.now()

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return Status{StartedAt: start, Skipped: true}, fmt.Errorf("refresh already running")
	}
	if !force && !o.lastRefresh.IsZero() && start.Sub(o.lastRefresh) < o.minRefresh {
		last := o.lastStatus
		o.mu.Unlock()
		o.logger.Debug("skipping refresh, data is fresh", "last_refresh", last.FinishedAt)
		last.Skipped = true
		return last, nil
	}
	o.running = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()

	status := Status{StartedAt: start, Forced: force}
	err := o.run(ctx, &status)
	status.FinishedAt = o.now()
	if err != nil {
		status.Error = err.Error()
		if ctx.Err() != nil {
			// Deadline hit: what finished stays committed.
			status.Partial = true
			err = nil
		}
	}

	o.metrics.ObserveRefresh(status.FinishedAt.Sub(start), status.Partial || status.Error != "")

	o.mu.Lock()
	o.lastStatus = status
	if err == nil && !status.Partial {
		o.lastRefresh = status.FinishedAt
	}
	o.mu.Unlock()

	o.logger.Info("refresh finished",
		"duration", status.FinishedAt.Sub(start),
		"registered", status.Registered,
		"events", status.Events,
		"partial", status.Partial,
		"error", status.Error)
	return status, err
}

func (o *Orchestrator) run(ctx context.Context, status *Status) error {
	snapshot, err := o.records.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot records: %w", err)
	}

	cleaned, reports, err := o.gate(ctx, snapshot)
	if err != nil {
		return err
	}
	status.Reports = reports

	o.mu.Lock()
	o.lastMetrics = o.quality.Metrics(reports)
	o.mu.Unlock()
	for t, r := range reports {
		o.metrics.SetSourceQuality(string(t), r.QualityScore)
	}

	if err := o.ingest(ctx, cleaned, status); err != nil {
		return err
	}

	status.Consolidation, err = o.registry.Consolidate(ctx)
	if err != nil {
		return fmt.Errorf("consolidate: %w", err)
	}
	status.Links, err = o.registry.LinkEvents(ctx)
	if err != nil {
		return fmt.Errorf("link events: %w", err)
	}

	if o.scores != nil {
		now := o.now()
		if err := o.scores.RecalculateSpending(ctx, now); err != nil {
			return fmt.Errorf("recalculate spending: %w", err)
		}
		if err := o.scores.RecalculateCollege(ctx, now); err != nil {
			return fmt.Errorf("recalculate college: %w", err)
		}
	}
	return nil
}

// gate validates, cleans, and deduplicates every source concurrently.
func (o *Orchestrator) gate(ctx context.Context, snapshot map[source.Type][]source.RawRecord) (map[source.Type][]source.RawRecord, map[source.Type]quality.Report, error) {
	var mu sync.Mutex
	cleaned := make(map[source.Type][]source.RawRecord, len(snapshot))
	reports := make(map[source.Type]quality.Report, len(snapshot))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for t, records := range snapshot {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out := o.quality.Clean(records, t)
			out = o.quality.Deduplicate(out, t)
			report := o.quality.Validate(t, out)

			mu.Lock()
			cleaned[t] = out
			reports[t] = report
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return cleaned, reports, nil
}

// ingest feeds gated records into the registry and context stores. Venues
// resolve first so events and context have something to attach to.
func (o *Orchestrator) ingest(ctx context.Context, cleaned map[source.Type][]source.RawRecord, status *Status) error {
	for _, rec := range cleaned[source.TypeVenues] {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := o.registry.RegisterVenue(ctx, rec); err != nil {
			var verr *registry.ValidationError
			if errors.As(err, &verr) {
				// one malformed record must not sink the run
				o.logger.Warn("skipping invalid venue record",
					"source", rec.SourceName, "error", err)
				continue
			}
			return fmt.Errorf("register venue %q: %w", rec.Name, err)
		}
		status.Registered++
	}

	for _, rec := range cleaned[source.TypeEvents] {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := o.registry.RegisterEvent(ctx, rec); err != nil {
			return fmt.Errorf("register event %q: %w", rec.Name, err)
		}
		status.Events++
	}

	for t, records := range cleaned {
		if t == source.TypeVenues || t == source.TypeEvents {
			continue
		}
		for _, rec := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			venueID, ok, err := o.registry.ResolveVenue(ctx, rec)
			if err != nil {
				return fmt.Errorf("resolve context venue: %w", err)
			}
			if !ok {
				continue
			}
			if err := o.aggregator.PutContext(ctx, venueID, t, rec.Payload); err != nil {
				return fmt.Errorf("store context: %w", err)
			}
			status.Context++
		}
	}
	return nil
}

// Health reports freshness and source quality for the health endpoint.
func (o *Orchestrator) Health() Health {
	o.mu.Lock()
	defer o.mu.Unlock()

	h := Health{
		Status:      "ok",
		LastRefresh: o.lastRefresh,
		Quality:     o.lastMetrics,
	}
	if o.lastRefresh.IsZero() || o.now().Sub(o.lastRefresh) > o.staleAfter {
		h.RefreshNeeded = true
	}
	if h.RefreshNeeded || o.lastMetrics.CriticalSources > 0 {
		h.Status = "degraded"
	}
	return h
}

// LastStatus returns the outcome of the most recent run.
func (o *Orchestrator) LastStatus() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastStatus
}
