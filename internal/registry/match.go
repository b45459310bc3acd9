package registry

import (
	"strings"

	"github.com/adrg/strutil"

	"venuegraph/pkg/geo"
)

// Config holds the matcher thresholds. Distances are kilometers.
type Config struct {
	// Staged matching.
	SearchRadiusKm   float64 // location stage: how far to look for candidates
	LocationAcceptKm float64 // location stage: unconditional accept distance
	LocationNameKm   float64 // location stage: accept distance when names agree
	LocationMinSim   float64 // location stage: similarity needed at LocationNameKm
	FuzzyMinScore    float64 // fuzzy stage: minimum name similarity
	FuzzyBonusKm     float64 // fuzzy stage: proximity bonus range
	FuzzyBonusWeight float64 // fuzzy stage: proximity bonus weight
	MinSharedWordLen int     // fuzzy stage: shared words must be longer than this

	// Duplicate detection.
	DupExactSim    float64 // near-identical names
	DupExactMaxKm  float64
	DupNameLocSim  float64 // similar names, close locations
	DupNameLocKm   float64
	DupLocKm       float64 // co-located, loosely similar names
	DupLocMinSim   float64
	DupNameAddrSim float64 // similar names and similar addresses
	DupAddrSim     float64
	DupAddrMaxKm   float64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		SearchRadiusKm:   0.1,
		LocationAcceptKm: 0.02,
		LocationNameKm:   0.05,
		LocationMinSim:   0.5,
		FuzzyMinScore:    0.75,
		FuzzyBonusKm:     1.0,
		FuzzyBonusWeight: 0.2,
		MinSharedWordLen: 3,

		DupExactSim:    0.95,
		DupExactMaxKm:  0.1,
		DupNameLocSim:  0.85,
		DupNameLocKm:   0.05,
		DupLocKm:       0.02,
		DupLocMinSim:   0.6,
		DupNameAddrSim: 0.8,
		DupAddrSim:     0.8,
		DupAddrMaxKm:   0.2,
	}
}

// Matcher resolves incoming records against known venues and scores venue
// pairs for duplication. It is stateless and safe for concurrent use.
type Matcher struct {
	cfg Config
}

func NewMatcher(cfg Config) *Matcher {
	return &Matcher{cfg: cfg}
}

// Similarity is the string similarity used everywhere in matching. It is the
// Ratcliff-Obershelp ratio over normalized names, in [0, 1].
func (m *Matcher) Similarity(a, b string) float64 {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	return strutil.Similarity(na, nb, ratcliffObershelp{})
}

// candidate is a record being resolved: a name plus optional coordinates.
type candidate struct {
	name  string
	point *geo.Point
}

// Match resolves a record against the venue list, trying stages from
// strictest to loosest. A zero result with MatchNone means no venue matched
// and a new one should be created.
func (m *Matcher) Match(name string, point *geo.Point, venues []Venue) MatchResult {
	c := candidate{name: name, point: point}

	if r, ok := m.matchExactName(c, venues); ok {
		return r
	}
	if r, ok := m.matchNormalizedName(c, venues); ok {
		return r
	}
	if r, ok := m.matchLocation(c, venues); ok {
		return r
	}
	if r, ok := m.matchFuzzyName(c, venues); ok {
		return r
	}
	return MatchResult{MatchType: MatchNone}
}

func (m *Matcher) matchExactName(c candidate, venues []Venue) (MatchResult, bool) {
	folded := foldName(c.name)
	if folded == "" {
		return MatchResult{}, false
	}
	for _, v := range venues {
		if foldName(v.Name) == folded {
			return MatchResult{VenueID: v.ID, MatchType: MatchExactName, Confidence: 1.0}, true
		}
	}
	return MatchResult{}, false
}

func (m *Matcher) matchNormalizedName(c candidate, venues []Venue) (MatchResult, bool) {
	normalized := NormalizeName(c.name)
	if normalized == "" {
		return MatchResult{}, false
	}
	for _, v := range venues {
		if NormalizeName(v.Name) == normalized {
			return MatchResult{VenueID: v.ID, MatchType: MatchNormalizedName, Confidence: 0.95}, true
		}
	}
	return MatchResult{}, false
}

// matchLocation finds the nearest venue within the search radius. A venue
// within LocationAcceptKm matches regardless of name; one within
// LocationNameKm needs some name agreement too.
func (m *Matcher) matchLocation(c candidate, venues []Venue) (MatchResult, bool) {
	if c.point == nil {
		return MatchResult{}, false
	}

	var best *Venue
	bestDist := m.cfg.SearchRadiusKm
	for i := range venues {
		p, ok := venues[i].Point()
		if !ok {
			continue
		}
		if d := geo.DistanceKm(*c.point, p); d <= bestDist {
			best, bestDist = &venues[i], d
		}
	}
	if best == nil {
		return MatchResult{}, false
	}

	if bestDist < m.cfg.LocationAcceptKm {
		return MatchResult{VenueID: best.ID, MatchType: MatchLocation, Confidence: 0.9}, true
	}
	if bestDist < m.cfg.LocationNameKm && m.Similarity(c.name, best.Name) > m.cfg.LocationMinSim {
		return MatchResult{VenueID: best.ID, MatchType: MatchLocation, Confidence: 0.85}, true
	}
	return MatchResult{}, false
}

// matchFuzzyName considers every venue whose normalized name contains one of
// the record's significant words and whose name similarity clears
// FuzzyMinScore on its own. Among those, a small proximity bonus when both
// sides carry coordinates within FuzzyBonusKm breaks ties toward the closer
// venue; the bonus never turns a dissimilar name into a match.
func (m *Matcher) matchFuzzyName(c candidate, venues []Venue) (MatchResult, bool) {
	words := significantWords(c.name, m.cfg.MinSharedWordLen)
	if len(words) == 0 {
		return MatchResult{}, false
	}

	var best *Venue
	var bestScore float64
	for i := range venues {
		if !containsAnyWord(NormalizeName(venues[i].Name), words) {
			continue
		}
		sim := m.Similarity(c.name, venues[i].Name)
		if sim <= m.cfg.FuzzyMinScore {
			continue
		}
		score := sim
		if c.point != nil {
			if p, ok := venues[i].Point(); ok {
				if d := geo.DistanceKm(*c.point, p); d < m.cfg.FuzzyBonusKm {
					score += m.cfg.FuzzyBonusWeight * (1 - d/m.cfg.FuzzyBonusKm)
				}
			}
		}
		if score > bestScore {
			best, bestScore = &venues[i], score
		}
	}
	if best == nil {
		return MatchResult{}, false
	}
	conf := bestScore
	if conf > 1 {
		conf = 1
	}
	return MatchResult{VenueID: best.ID, MatchType: MatchFuzzyName, Confidence: conf}, true
}

// ScoreDuplicate evaluates whether two venues describe the same place. Rules
// run strictest first; the first hit wins.
func (m *Matcher) ScoreDuplicate(a, b Venue) (DuplicatePair, bool) {
	sim := m.Similarity(a.Name, b.Name)

	var dist *float64
	if pa, ok := a.Point(); ok {
		if pb, ok := b.Point(); ok {
			d := geo.DistanceKm(pa, pb)
			dist = &d
		}
	}

	pair := DuplicatePair{MasterID: a.ID, DuplicateID: b.ID}

	if sim > m.cfg.DupExactSim && (dist == nil || *dist < m.cfg.DupExactMaxKm) {
		pair.MatchType, pair.Confidence = MatchExactName, 0.95
		return pair, true
	}
	if dist != nil {
		if sim > m.cfg.DupNameLocSim && *dist < m.cfg.DupNameLocKm {
			pair.MatchType, pair.Confidence = MatchNormalizedName, 0.90
			return pair, true
		}
		if *dist < m.cfg.DupLocKm && sim > m.cfg.DupLocMinSim {
			pair.MatchType, pair.Confidence = MatchLocation, 0.85
			return pair, true
		}
	}
	if a.Address != "" && b.Address != "" {
		addrSim := addressSimilarity(a.Address, b.Address)
		if sim > m.cfg.DupNameAddrSim && addrSim > m.cfg.DupAddrSim &&
			(dist == nil || *dist < m.cfg.DupAddrMaxKm) {
			pair.MatchType, pair.Confidence = MatchNameAddress, 0.80
			return pair, true
		}
	}
	return DuplicatePair{}, false
}

func addressSimilarity(a, b string) float64 {
	fa := strings.ToLower(strings.Join(strings.Fields(a), " "))
	fb := strings.ToLower(strings.Join(strings.Fields(b), " "))
	if fa == "" || fb == "" {
		return 0
	}
	if fa == fb {
		return 1
	}
	return strutil.Similarity(fa, fb, ratcliffObershelp{})
}

// significantWords returns the words of a normalized name longer than minLen.
// Names made entirely of short words ("KC BBQ") fall back to all their words,
// so they still get a fuzzy pass instead of being skipped.
func significantWords(name string, minLen int) map[string]struct{} {
	fields := strings.Fields(NormalizeName(name))
	out := make(map[string]struct{})
	for _, w := range fields {
		if len(w) > minLen {
			out[w] = struct{}{}
		}
	}
	if len(out) == 0 {
		for _, w := range fields {
			out[w] = struct{}{}
		}
	}
	return out
}

func containsAnyWord(normalized string, words map[string]struct{}) bool {
	for _, w := range strings.Fields(normalized) {
		if _, ok := words[w]; ok {
			return true
		}
	}
	return false
}
