package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatcliffObershelpRatio(t *testing.T) {
	var ro ratcliffObershelp

	assert.InDelta(t, 1.0, ro.Compare("grinders", "grinders"), 1e-9)
	assert.InDelta(t, 1.0, ro.Compare("", ""), 1e-9)
	assert.Zero(t, ro.Compare("", "anything"))
	assert.Zero(t, ro.Compare("abc", "xyz"))

	// longest run "bcd" plus nothing on either flank: 2*3/8
	assert.InDelta(t, 0.75, ro.Compare("abcd", "bcde"), 1e-9)
	// "apple" matches entirely: 2*5/11
	assert.InDelta(t, 10.0/11.0, ro.Compare("apple", "applet"), 1e-9)
	// "westport " plus the trailing "n": 2*10/31
	assert.InDelta(t, 20.0/31.0, ro.Compare("westport saloon", "westport kitchen"), 1e-9)
}

func TestRatcliffObershelpRecursesPastLongestRun(t *testing.T) {
	var ro ratcliffObershelp

	// "char bar" splits around " bar smoked meat" and keeps matching the
	// flanks on both sides of the split
	got := ro.Compare("char bar smoked meats", "char bar smoked meat co")
	assert.Greater(t, got, 0.9)
	assert.LessOrEqual(t, got, 1.0)
}
