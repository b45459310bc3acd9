package registry

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuegraph/pkg/geo"
)

func venue(name string, lat, lng float64) Venue {
	return Venue{ID: uuid.New(), Name: name, Lat: &lat, Lng: &lng}
}

func TestMatchExactNameIgnoresCaseAndSpacing(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	known := []Venue{venue("T-Mobile Center", 39.0975, -94.5804)}

	r := m.Match("  t-mobile   center ", nil, known)
	assert.Equal(t, MatchExactName, r.MatchType)
	assert.Equal(t, known[0].ID, r.VenueID)
	assert.InDelta(t, 1.0, r.Confidence, 1e-9)
}

func TestMatchNormalizedName(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	known := []Venue{venue("Main Street Cafe", 39.09, -94.58)}

	r := m.Match("Main St Cafe KC", nil, known)
	assert.Equal(t, MatchNormalizedName, r.MatchType)
	assert.Equal(t, known[0].ID, r.VenueID)
}

func TestMatchLocationWithinAcceptRadius(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	known := []Venue{venue("Sprint Center", 39.09740, -94.58040)}

	// about 11m north of the known venue, unrelated name
	p := geo.Point{Lat: 39.09750, Lng: -94.58040}
	r := m.Match("Arena Box Office", &p, known)
	assert.Equal(t, MatchLocation, r.MatchType)
	assert.Equal(t, known[0].ID, r.VenueID)
}

func TestMatchLocationNeedsNameAgreementFartherOut(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	known := []Venue{venue("Kauffman Center for the Performing Arts", 39.09280, -94.58570)}

	// about 33m away: inside the name-gated band but names disagree entirely
	p := geo.Point{Lat: 39.09310, Lng: -94.58570}
	r := m.Match("Quick Stop Liquor", &p, known)
	assert.Equal(t, MatchNone, r.MatchType)

	// same distance with an agreeing name matches
	r = m.Match("Kauffman Center", &p, known)
	assert.Equal(t, MatchLocation, r.MatchType)
}

func TestMatchFuzzyNameWithProximityBonus(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	known := []Venue{venue("Grinders Pizza Crossroads", 39.09100, -94.57800)}

	// shares "grinders" and "pizza"; sits ~500m away, outside the location
	// stage but inside the fuzzy proximity bonus range
	p := geo.Point{Lat: 39.09550, Lng: -94.57800}
	r := m.Match("Grinders Pizza Co", &p, known)
	assert.Equal(t, MatchFuzzyName, r.MatchType)
	assert.Equal(t, known[0].ID, r.VenueID)
	assert.Greater(t, r.Confidence, 0.75)
}

func TestMatchFuzzyProximityBonusCannotRescueDissimilarName(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	known := []Venue{venue("Westport Saloon", 39.05310, -94.59080)}

	// shares "westport" but the names only agree to ~0.65; sitting 150m away
	// earns a proximity bonus, which must not push a weak name over the bar
	p := geo.Point{Lat: 39.05445, Lng: -94.59080}
	r := m.Match("Westport Kitchen", &p, known)
	assert.Equal(t, MatchNone, r.MatchType)
}

func TestMatchFuzzyShortWordNamesStillConsidered(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	known := []Venue{venue("KC BBQ", 39.08990, -94.57750)}

	// every word is three letters or fewer, so the significant-word filter
	// falls back to the full word list instead of skipping the fuzzy stage
	r := m.Match("KC BBQ Co", nil, known)
	assert.Equal(t, MatchFuzzyName, r.MatchType)
	assert.Equal(t, known[0].ID, r.VenueID)
}

func TestMatchFuzzyRequiresSharedSignificantWord(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	known := []Venue{venue("The Ship", 39.08400, -94.60600)}

	r := m.Match("The Shed", nil, known)
	assert.Equal(t, MatchNone, r.MatchType)
}

func TestMatchNoneForUnknownVenue(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	known := []Venue{venue("Green Lady Lounge", 39.09170, -94.58310)}

	p := geo.Point{Lat: 38.95000, Lng: -94.70000}
	r := m.Match("Brand New Taproom", &p, known)
	assert.Equal(t, MatchNone, r.MatchType)
	assert.Zero(t, r.Confidence)
}

func TestScoreDuplicateNearIdenticalNames(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	a := venue("T-Mobile Center", 39.09750, -94.58040)
	b := venue("T-Mobile Center", 39.09755, -94.58040) // ~6m apart

	pair, ok := m.ScoreDuplicate(a, b)
	require.True(t, ok)
	assert.Equal(t, MatchExactName, pair.MatchType)
	assert.InDelta(t, 0.95, pair.Confidence, 1e-9)
	assert.Equal(t, a.ID, pair.MasterID)
	assert.Equal(t, b.ID, pair.DuplicateID)
}

func TestScoreDuplicateNoCoordinatesStillMatchesOnName(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	a := Venue{ID: uuid.New(), Name: "The Phoenix"}
	b := Venue{ID: uuid.New(), Name: "The Phoenix KC"}

	pair, ok := m.ScoreDuplicate(a, b)
	require.True(t, ok)
	assert.Equal(t, MatchExactName, pair.MatchType)
}

func TestScoreDuplicateCoLocated(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	a := venue("Westport Ale House", 39.05310, -94.59080)
	b := venue("Westport Alehouse Bar", 39.05312, -94.59080) // a couple meters apart

	pair, ok := m.ScoreDuplicate(a, b)
	require.True(t, ok)
	assert.NotEqual(t, MatchNone, pair.MatchType)
	assert.GreaterOrEqual(t, pair.Confidence, 0.85)
}

func TestScoreDuplicateNameAddress(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	a := Venue{ID: uuid.New(), Name: "Char Bar Smoked Meats", Address: "4050 Pennsylvania Ave, Kansas City, MO"}
	b := Venue{ID: uuid.New(), Name: "Char Bar Smoked Meat Co", Address: "4050 Pennsylvania Avenue, Kansas City, MO"}

	pair, ok := m.ScoreDuplicate(a, b)
	require.True(t, ok)
	assert.Equal(t, MatchNameAddress, pair.MatchType)
	assert.InDelta(t, 0.80, pair.Confidence, 1e-9)
}

func TestScoreDuplicateDistinctVenues(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	a := venue("Joe's Pizza Downtown", 39.09700, -94.58300)
	b := venue("Joe's Pizza Plaza", 38.95000, -94.70000) // far apart

	_, ok := m.ScoreDuplicate(a, b)
	assert.False(t, ok)
}

func TestSimilarityBounds(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	assert.InDelta(t, 1.0, m.Similarity("The Brick", "the brick kc"), 1e-9)
	assert.Zero(t, m.Similarity("", "anything"))
	mid := m.Similarity("Green Lady Lounge", "Blue Room Jazz Club")
	assert.GreaterOrEqual(t, mid, 0.0)
	assert.LessOrEqual(t, mid, 1.0)
}
