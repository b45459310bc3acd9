package scorecache

import (
	"time"

	"venuegraph/pkg/geo"
)

// Factor tables below are calendar heuristics: pay cycles, holiday windows,
// nightlife hours. Scores are multiplicative on a base of 1.0 and clamped to
// [0, 3].

// weekOfMonthFactors index is (day-1)/7: a payday boost in week one, a dip
// mid-month, an uptick before the next cycle.
var weekOfMonthFactors = [5]float64{1.4, 0.9, 0.8, 1.1, 1.0}

var monthlyFactors = map[time.Month]float64{
	time.January:   0.8,
	time.February:  0.9,
	time.March:     0.95,
	time.April:     1.0,
	time.May:       1.0,
	time.June:      1.1,
	time.July:      1.1,
	time.August:    1.0,
	time.September: 1.0,
	time.October:   1.2,
	time.November:  1.4,
	time.December:  1.5,
}

type monthDay struct {
	month time.Month
	day   int
}

var holidayFactors = map[monthDay]float64{
	{time.December, 25}: 2.0,
	{time.November, 24}: 2.5,
	{time.July, 4}:      1.7,
	{time.December, 31}: 1.8,
}

// dowFactors is keyed by time.Weekday: quiet early week, Friday and Saturday
// peaks, a solid Sunday.
var dowFactors = map[time.Weekday]float64{
	time.Monday:    0.7,
	time.Tuesday:   0.8,
	time.Wednesday: 0.9,
	time.Thursday:  1.0,
	time.Friday:    1.5,
	time.Saturday:  2.0,
	time.Sunday:    1.2,
}

func weekOfMonthFactor(t time.Time) float64 {
	week := (t.Day() - 1) / 7
	if week > 4 {
		week = 4
	}
	return weekOfMonthFactors[week]
}

func monthlyFactor(m time.Month) float64 {
	if f, ok := monthlyFactors[m]; ok {
		return f
	}
	return 1.0
}

func holidayFactor(t time.Time) float64 {
	if f, ok := holidayFactors[monthDay{t.Month(), t.Day()}]; ok {
		return f
	}
	return 1.0
}

func hourFactor(hour int) float64 {
	switch {
	case hour < 6:
		return 0.2
	case hour < 11:
		return 0.7
	case hour < 16:
		return 1.1
	case hour < 18:
		return 1.3
	default:
		return 1.8
	}
}

// SpendingPropensity scores how likely people near a point are to spend at
// the given time. The location does not enter the calculation yet; every
// factor is calendar-driven.
func SpendingPropensity(_ geo.Point, t time.Time) float64 {
	score := 1.0 *
		weekOfMonthFactor(t) *
		monthlyFactor(t.Month()) *
		holidayFactor(t) *
		dowFactors[t.Weekday()] *
		hourFactor(t.Hour())
	return clampScore(score)
}

// studentHotspot is a point that draws students, with a draw weight.
type studentHotspot struct {
	point  geo.Point
	weight float64
}

var studentHotspots = []studentHotspot{
	{geo.Point{Lat: 39.0334, Lng: -94.5760}, 1.5}, // UMKC main campus
	{geo.Point{Lat: 38.9584, Lng: -95.2448}, 1.5}, // KU main campus
	{geo.Point{Lat: 38.7440, Lng: -93.7310}, 1.5}, // UCM main campus
	{geo.Point{Lat: 39.0496, Lng: -94.5913}, 1.2}, // Westport bar district
	{geo.Point{Lat: 39.0991, Lng: -94.5783}, 1.1}, // Power & Light district
}

// CollegePresence scores expected student presence at a point and time.
// Proximity to each hotspot decays as 1/(1+km); the time multiplier favors
// campuses on weekday class hours and nightlife districts on weekend nights.
func CollegePresence(p geo.Point, t time.Time) float64 {
	var total float64
	for _, h := range studentHotspots {
		dist := geo.DistanceKm(p, h.point)
		total += h.weight / (1 + dist)
	}

	hour := t.Hour()
	weekend := t.Weekday() == time.Saturday || t.Weekday() == time.Sunday

	multiplier := 1.0
	switch {
	case hour >= 8 && hour < 18 && !weekend:
		multiplier = 1.5
	case hour >= 18 && hour < 23 && weekend:
		multiplier = 2.0
	case hour < 6:
		multiplier = 0.3
	}

	return clampScore(total * multiplier)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 3 {
		return 3
	}
	return v
}
