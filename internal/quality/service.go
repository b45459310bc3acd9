// Package quality gates raw per-source data before it can reach the canonical
// registry: validation reports, source-specific cleaning, and exact-key
// deduplication. Fuzzy deduplication is the registry's job, not this
// package's.
package quality

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"venuegraph/internal/source"
)

// Controller validates, cleans, and deduplicates raw records per source.
type Controller struct {
	rules  map[source.Type]Rule
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

func WithRules(rules map[source.Type]Rule) Option {
	return func(c *Controller) { c.rules = rules }
}

// WithClock overrides the wall clock, used by tests to pin recency windows.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New constructs a quality controller with the default rule table.
func New(opts ...Option) *Controller {
	c := &Controller{
		rules:  DefaultRules(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rule returns the gating rule for a source type, falling back to the
// generic rule.
func (c *Controller) rule(t source.Type) Rule {
	if r, ok := c.rules[t]; ok {
		return r
	}
	return genericRule
}

// Validate assesses one source's records. A source with zero records is
// reported with quality score zero and a validation error; it never returns a
// Go error for data problems, so sibling sources keep flowing.
func (c *Controller) Validate(t source.Type, records []source.RawRecord) Report {
	start := c.now()
	rule := c.rule(t)

	report := Report{
		SourceName: string(t),
		TotalInput: len(records),
		Timestamp:  start,
	}

	if len(records) == 0 {
		report.ValidationErrors = append(report.ValidationErrors,
			fmt.Sprintf("no records received from %s", t))
		report.ProcessingTime = c.now().Sub(start)
		return report
	}

	var completeSum float64
	var fresh, usable int
	cutoff := start.Add(-rule.FreshnessWindow)

	for _, r := range records {
		present := 0
		for _, f := range rule.RequiredFields {
			if fieldPresent(r, f) {
				present++
			}
		}
		frac := float64(present) / float64(len(rule.RequiredFields))
		completeSum += frac
		if frac == 1 {
			usable++
		}
		if !r.UpdatedAt.IsZero() && r.UpdatedAt.After(cutoff) {
			fresh++
		}
	}

	report.CompletenessScore = completeSum / float64(len(records))
	report.RecencyRatio = float64(fresh) / float64(len(records))
	report.TotalOutput = usable
	report.QualityScore = clamp01(report.CompletenessScore*rule.CompletenessWeight +
		report.RecencyRatio*rule.RecencyWeight)

	if report.CompletenessScore < rule.MinCompleteness {
		report.DataIssues = append(report.DataIssues, fmt.Sprintf(
			"completeness %.2f below threshold %.2f",
			report.CompletenessScore, rule.MinCompleteness))
	}
	if report.RecencyRatio < 0.1 {
		report.DataIssues = append(report.DataIssues,
			fmt.Sprintf("most %s data is stale (older than %s)", t, rule.FreshnessWindow))
	}

	report.ProcessingTime = c.now().Sub(start)

	c.logger.Debug("validated source",
		"source", t,
		"records", len(records),
		"quality", report.QualityScore,
		"completeness", report.CompletenessScore)

	return report
}

// Clean applies source-specific normalization rules and drops records that
// carry no usable values. The input slice is never mutated.
func (c *Controller) Clean(records []source.RawRecord, t source.Type) []source.RawRecord {
	out := make([]source.RawRecord, 0, len(records))
	for _, rec := range records {
		if rec.Empty() {
			continue
		}
		r := rec.Clone()
		switch t {
		case source.TypeVenues, source.TypeEvents:
			r.Name = strings.Join(strings.Fields(r.Name), " ")
			if r.Name == "" && !r.HasCoordinates() {
				continue
			}
		case source.TypeSocial:
			if n, ok := r.Float("mention_count"); !ok || n < 0 {
				continue
			}
			if _, ok := r.Float("positive_sentiment"); !ok {
				continue
			}
			clampPayload(&r, "positive_sentiment")
			clampPayload(&r, "negative_sentiment")
			clampPayload(&r, "neutral_sentiment")
		case source.TypeML:
			d, ok := r.Float("psychographic_density")
			if !ok || d < 0 || d > 1 {
				continue
			}
			lo, okLo := r.Float("confidence_lower")
			hi, okHi := r.Float("confidence_upper")
			if okLo && okHi {
				lo, hi = clamp01(lo), clamp01(hi)
				if lo > hi {
					lo, hi = hi, lo
				}
				r.SetFloat("confidence_lower", lo)
				r.SetFloat("confidence_upper", hi)
			}
		}
		out = append(out, r)
	}
	return out
}

// Deduplicate collapses exact-key duplicates. Key construction is per source:
// venues use name plus rounded coordinates (address fallback), social
// sentiment uses venue+platform+timestamp, everything else hashes the full
// tuple. First occurrence wins.
func (c *Controller) Deduplicate(records []source.RawRecord, t source.Type) []source.RawRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]source.RawRecord, 0, len(records))
	for _, r := range records {
		key := dedupeKey(r, t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	if removed := len(records) - len(out); removed > 0 {
		c.logger.Debug("removed duplicate records", "source", t, "removed", removed)
	}
	return out
}

// Metrics rolls individual reports up into a system-level summary.
func (c *Controller) Metrics(reports map[source.Type]Report) Metrics {
	m := Metrics{
		SourceHealth:   make(map[source.Type]float64, len(reports)),
		TotalSources:   len(reports),
		LastAssessment: c.now(),
	}
	if len(reports) == 0 {
		return m
	}

	var qualitySum, completeSum float64
	for t, r := range reports {
		qualitySum += r.QualityScore
		completeSum += r.CompletenessScore
		m.SourceHealth[t] = r.QualityScore
		switch {
		case r.QualityScore >= 0.7:
			m.HealthySources++
		case r.QualityScore >= 0.5:
			m.WarningSources++
		default:
			m.CriticalSources++
		}
	}
	m.OverallQualityScore = qualitySum / float64(len(reports))
	m.DataCompleteness = completeSum / float64(len(reports))
	return m
}

func fieldPresent(r source.RawRecord, field string) bool {
	switch field {
	case "name":
		return strings.TrimSpace(r.Name) != ""
	case "venue_name":
		if v, ok := r.Payload["venue_name"].(string); ok {
			return strings.TrimSpace(v) != ""
		}
		return false
	case "lat":
		return r.Lat != nil
	case "lng":
		return r.Lng != nil
	case "address":
		return strings.TrimSpace(r.Address) != ""
	default:
		v, ok := r.Payload[field]
		return ok && v != nil
	}
}

func dedupeKey(r source.RawRecord, t source.Type) string {
	switch t {
	case source.TypeVenues, source.TypeEvents:
		name := strings.ToLower(strings.TrimSpace(r.Name))
		if r.HasCoordinates() {
			return fmt.Sprintf("%s|%.4f|%.4f", name, *r.Lat, *r.Lng)
		}
		return fmt.Sprintf("%s|%s", name, strings.ToLower(strings.TrimSpace(r.Address)))
	case source.TypeSocial:
		platform, _ := r.Payload["platform"].(string)
		ts, _ := r.Payload["ts"].(string)
		return fmt.Sprintf("%s|%s|%s|%s", r.ExternalID, r.Name, platform, ts)
	default:
		return fullTupleKey(r)
	}
}

// fullTupleKey builds a deterministic key from every field of the record.
func fullTupleKey(r source.RawRecord) string {
	var b strings.Builder
	b.WriteString(r.SourceName)
	b.WriteByte('|')
	b.WriteString(r.ExternalID)
	b.WriteByte('|')
	b.WriteString(r.Name)
	b.WriteByte('|')
	b.WriteString(r.Category)
	b.WriteByte('|')
	b.WriteString(r.Address)
	b.WriteByte('|')
	b.WriteString(r.Phone)
	b.WriteByte('|')
	b.WriteString(r.Website)
	if r.HasCoordinates() {
		fmt.Fprintf(&b, "|%.6f|%.6f", *r.Lat, *r.Lng)
	}
	keys := make([]string, 0, len(r.Payload))
	for k := range r.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%v", k, r.Payload[k])
	}
	return b.String()
}

func clampPayload(r *source.RawRecord, key string) {
	if v, ok := r.Float(key); ok {
		r.SetFloat(key, clamp01(v))
	}
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
