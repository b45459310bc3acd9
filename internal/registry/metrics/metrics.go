// Package metrics provides observability for the venue registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks registry matching and consolidation activity.
type Metrics struct {
	// Registrations by match outcome
	Registrations *prometheus.CounterVec

	// Confidence of accepted matches
	MatchConfidence prometheus.Histogram

	// Venues merged away by duplicate consolidation
	VenuesMerged prometheus.Counter

	// Events moved to a new master during consolidation
	EventsReassigned prometheus.Counter

	// Full registration latency, matching included
	RegisterLatency prometheus.Histogram
}

// New registers all registry metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		Registrations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "venuegraph_registry_registrations_total",
			Help: "Venue registrations by match type",
		}, []string{"match_type"}), // match_type: "exact_name", "normalized_name", "location", "fuzzy_name", "none"

		MatchConfidence: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "venuegraph_registry_match_confidence",
			Help:    "Confidence of accepted venue matches",
			Buckets: []float64{0.5, 0.6, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95, 1},
		}),

		VenuesMerged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "venuegraph_registry_venues_merged_total",
			Help: "Venues removed by duplicate consolidation",
		}),

		EventsReassigned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "venuegraph_registry_events_reassigned_total",
			Help: "Events moved to a surviving master venue",
		}),

		RegisterLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "venuegraph_registry_register_duration_seconds",
			Help:    "Duration of a single venue registration",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

// RecordRegistration counts one registration outcome.
func (m *Metrics) RecordRegistration(matchType string, confidence float64) {
	if m != nil {
		m.Registrations.WithLabelValues(matchType).Inc()
		if confidence > 0 {
			m.MatchConfidence.Observe(confidence)
		}
	}
}

// RecordConsolidation counts a finished consolidation run.
func (m *Metrics) RecordConsolidation(merged, reassigned int) {
	if m != nil {
		m.VenuesMerged.Add(float64(merged))
		m.EventsReassigned.Add(float64(reassigned))
	}
}

// ObserveRegisterLatency records how long one registration took.
func (m *Metrics) ObserveRegisterLatency(d time.Duration) {
	if m != nil {
		m.RegisterLatency.Observe(d.Seconds())
	}
}
