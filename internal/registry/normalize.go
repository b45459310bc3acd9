package registry

import (
	"strings"
	"unicode"
)

// abbreviations rewrites common venue-name tokens to a canonical long form so
// that "Main St" and "Main Street" normalize identically.
var abbreviations = map[string]string{
	"st":   "street",
	"ave":  "avenue",
	"blvd": "boulevard",
	"dr":   "drive",
	"rd":   "road",
	"ln":   "lane",
	"ct":   "court",
	"pl":   "place",
	"pkwy": "parkway",
	"rest": "restaurant",
	"cafe": "cafe",
	"pub":  "pub",
	"&":    "and",
}

// citySuffixes are locality tokens trimmed off the end of a name. They add no
// identity: "The Brick KC" and "The Brick" are the same venue.
var citySuffixes = []string{
	"kansas city",
	"kc",
	"mo",
	"missouri",
	"downtown",
	"midtown",
	"crossroads",
	"plaza",
}

// NormalizeName reduces a venue name to a canonical comparison form:
// lowercased, abbreviations expanded, locality suffixes stripped, and all
// non-alphanumeric characters removed.
func NormalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return ""
	}

	words := strings.Fields(s)
	for i, w := range words {
		bare := strings.Trim(w, ".,")
		if repl, ok := abbreviations[bare]; ok {
			words[i] = repl
		} else {
			words[i] = bare
		}
	}
	s = strings.Join(words, " ")

	for changed := true; changed; {
		changed = false
		for _, suffix := range citySuffixes {
			if trimmed, ok := trimSuffixWord(s, suffix); ok {
				s = trimmed
				changed = true
			}
		}
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else if r == ' ' {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// trimSuffixWord removes suffix from the end of s only at a word boundary.
func trimSuffixWord(s, suffix string) (string, bool) {
	if s == suffix {
		return "", true
	}
	if strings.HasSuffix(s, " "+suffix) {
		return strings.TrimSpace(strings.TrimSuffix(s, suffix)), true
	}
	return s, false
}

// foldName is the loosest comparison form: lowercase with whitespace
// collapsed. Exact-name matching uses this before any rewriting happens.
func foldName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
