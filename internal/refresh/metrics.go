package refresh

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks refresh runs and per-source data quality.
type Metrics struct {
	RefreshDuration *prometheus.HistogramVec
	SourceQuality   *prometheus.GaugeVec
}

// NewMetrics registers refresh metrics on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		RefreshDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "venuegraph_refresh_duration_seconds",
			Help:    "Duration of refresh runs by outcome",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 1800, 3600},
		}, []string{"outcome"}), // outcome: "ok", "failed"

		SourceQuality: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "venuegraph_source_quality_score",
			Help: "Latest quality score per data source",
		}, []string{"source"}),
	}
}

// ObserveRefresh records one finished run.
func (m *Metrics) ObserveRefresh(d time.Duration, failed bool) {
	if m != nil {
		outcome := "ok"
		if failed {
			outcome = "failed"
		}
		m.RefreshDuration.WithLabelValues(outcome).Observe(d.Seconds())
	}
}

// SetSourceQuality publishes a source's latest quality score.
func (m *Metrics) SetSourceQuality(source string, score float64) {
	if m != nil {
		m.SourceQuality.WithLabelValues(source).Set(score)
	}
}
