package quality

import (
	"time"

	"venuegraph/internal/source"
)

// Report is the per-source quality assessment produced by Validate. A source
// that fails validation still yields a Report (score zero, errors recorded);
// failures never abort sibling sources.
type Report struct {
	SourceName       string
	TotalInput       int
	TotalOutput      int
	QualityScore     float64
	CompletenessScore float64
	RecencyRatio     float64
	ValidationErrors []string
	DataIssues       []string
	ProcessingTime   time.Duration
	Timestamp        time.Time
}

// Healthy reports whether the source clears its configured quality floor.
func (r Report) Healthy(minScore float64) bool {
	return r.QualityScore >= minScore
}

// Metrics summarizes quality across all validated sources.
type Metrics struct {
	OverallQualityScore float64
	DataCompleteness    float64
	SourceHealth        map[source.Type]float64
	TotalSources        int
	HealthySources      int
	WarningSources      int
	CriticalSources     int
	LastAssessment      time.Time
}
