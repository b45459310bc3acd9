package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Joe's Pizza", "joes pizza"},
		{"Main St Cafe", "main street cafe"},
		{"Main Street Cafe", "main street cafe"},
		{"Tom & Jerry's", "tom and jerrys"},
		{"The Brick KC", "the brick"},
		{"The Brick Kansas City", "the brick"},
		{"Westport Ale House Downtown", "westport ale house"},
		{"Grinders Crossroads", "grinders"},
		{"  Power   &  Light  ", "power and light"},
		{"Broadway Blvd Tavern", "broadway boulevard tavern"},
		{"", ""},
		{"KC", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeName(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeNameStripsStackedSuffixes(t *testing.T) {
	// both suffixes come off, innermost last
	assert.Equal(t, "the brick", NormalizeName("The Brick Downtown KC"))
}

func TestFoldName(t *testing.T) {
	assert.Equal(t, "t-mobile center", foldName("  T-Mobile   Center "))
	assert.Equal(t, foldName("T-MOBILE CENTER"), foldName("t-mobile center"))
}
