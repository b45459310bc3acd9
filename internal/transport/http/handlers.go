package httptransport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"venuegraph/internal/aggregator"
	"venuegraph/internal/refresh"
	"venuegraph/pkg/geo"
)

const (
	defaultWindowDays = 7
	maxWindowDays     = 90
)

var (
	errPartialBounds  = errors.New("bounds require all of north, south, east, west")
	errInvertedBounds = errors.New("bounds are inverted")
)

func errInvalidBound(name string) error {
	return fmt.Errorf("%s must be a number", name)
}

// Aggregator is what the handlers need from the aggregation service.
type Aggregator interface {
	AreaView(ctx context.Context, bounds geo.Bounds, start, end time.Time) (aggregator.AreaView, error)
}

// Refresher is what the handlers need from the orchestrator.
type Refresher interface {
	Refresh(ctx context.Context, force bool) (refresh.Status, error)
	Health() refresh.Health
}

// Handler wires the consolidated-data endpoints to their services.
type Handler struct {
	aggregator Aggregator
	refresher  Refresher
	bounds     geo.Bounds
	logger     *slog.Logger
	now        func() time.Time
}

// New constructs a handler. bounds is the default aggregation area used when
// a request does not supply its own.
func New(agg Aggregator, refresher Refresher, bounds geo.Bounds, logger *slog.Logger) *Handler {
	return &Handler{
		aggregator: agg,
		refresher:  refresher,
		bounds:     bounds,
		logger:     logger,
		now:        time.Now,
	}
}

// Register mounts the public endpoints. The refresh endpoint is mounted
// separately so the caller can wrap it in auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/venues-events", h.HandleVenuesEvents)
	r.Get("/health", h.HandleHealth)
}

// RegisterAdmin mounts the bearer-guarded endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/refresh", h.HandleRefresh)
}

// HandleVenuesEvents handles GET /venues-events. Bounds default to the
// configured area; the time window defaults to the next seven days.
func (h *Handler) HandleVenuesEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bounds, err := h.parseBounds(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	windowDays := defaultWindowDays
	if raw := r.URL.Query().Get("window_days"); raw != "" {
		windowDays, err = strconv.Atoi(raw)
		if err != nil || windowDays < 1 || windowDays > maxWindowDays {
			writeError(w, http.StatusBadRequest, "bad_request", "window_days must be between 1 and 90")
			return
		}
	}

	start := h.now()
	end := start.AddDate(0, 0, windowDays)

	view, err := h.aggregator.AreaView(ctx, bounds, start, end)
	if err != nil {
		h.logger.ErrorContext(ctx, "area view failed",
			"bounds", bounds,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not assemble area view")
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// healthResponse is the health endpoint payload.
type healthResponse struct {
	OverallStatus      string     `json:"overall_status"`
	TotalVenues        int        `json:"total_venues"`
	HighQualityVenues  int        `json:"high_quality_venues"`
	TotalEvents        int        `json:"total_events"`
	DataSourcesHealthy int        `json:"data_sources_healthy"`
	DataSourcesTotal   int        `json:"data_sources_total"`
	LastRefresh        *time.Time `json:"last_refresh,omitempty"`
	RefreshNeeded      bool       `json:"refresh_needed"`
	OverallQuality     float64    `json:"overall_quality_score"`
}

// HandleHealth handles GET /health.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	health := h.refresher.Health()

	resp := healthResponse{
		OverallStatus:      "healthy",
		DataSourcesHealthy: health.Quality.HealthySources,
		DataSourcesTotal:   health.Quality.TotalSources,
		RefreshNeeded:      health.RefreshNeeded,
		OverallQuality:     health.Quality.OverallQualityScore,
	}
	if health.Status != "ok" {
		resp.OverallStatus = "degraded"
	}
	if !health.LastRefresh.IsZero() {
		last := health.LastRefresh
		resp.LastRefresh = &last
	}

	start := h.now()
	view, err := h.aggregator.AreaView(ctx, h.bounds, start, start.AddDate(0, 0, defaultWindowDays))
	if err != nil {
		h.logger.ErrorContext(ctx, "health view failed", "error", err)
		resp.OverallStatus = "unhealthy"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	resp.TotalVenues = len(view.Venues)
	resp.TotalEvents = len(view.Events)
	for _, v := range view.Venues {
		if v.CompletenessScore >= 0.8 {
			resp.HighQualityVenues++
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleRefresh handles POST /refresh. force=true bypasses the minimum
// refresh interval.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	force := r.URL.Query().Get("force") == "true"

	status, err := h.refresher.Refresh(ctx, force)
	if err != nil {
		if strings.Contains(err.Error(), "already running") {
			writeError(w, http.StatusConflict, "conflict", "a refresh is already running")
			return
		}
		h.logger.ErrorContext(ctx, "refresh failed",
			"forced", force,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// parseBounds reads the optional north/south/east/west query parameters,
// falling back to the configured defaults. Either all four are supplied or
// none.
func (h *Handler) parseBounds(r *http.Request) (geo.Bounds, error) {
	q := r.URL.Query()
	names := []string{"north", "south", "east", "west"}

	supplied := 0
	values := make(map[string]float64, len(names))
	for _, name := range names {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return geo.Bounds{}, errInvalidBound(name)
		}
		values[name] = v
		supplied++
	}

	if supplied == 0 {
		return h.bounds, nil
	}
	if supplied != len(names) {
		return geo.Bounds{}, errPartialBounds
	}

	bounds := geo.Bounds{
		North: values["north"],
		South: values["south"],
		East:  values["east"],
		West:  values["west"],
	}
	if !bounds.Valid() {
		return geo.Bounds{}, errInvertedBounds
	}
	return bounds, nil
}
