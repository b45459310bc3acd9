package registry

// ratcliffObershelp is the Ratcliff-Obershelp (gestalt pattern matching)
// similarity: twice the number of matching characters over the combined
// length, where matches are counted by recursively splitting both strings
// around their longest common substring. The matcher thresholds are tuned
// against this ratio, so it is implemented here rather than swapped for one
// of the stock strutil metrics.
type ratcliffObershelp struct{}

// Compare implements strutil.StringMetric. The result is in [0, 1].
func (ratcliffObershelp) Compare(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	return 2 * float64(matchingChars(ra, rb)) / float64(len(ra)+len(rb))
}

func matchingChars(a, b []rune) int {
	ai, bi, size := longestCommonRun(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingChars(a[:ai], b[:bi]) +
		matchingChars(a[ai+size:], b[bi+size:])
}

// longestCommonRun finds the longest common substring, preferring the
// earliest start in a and then in b on ties.
func longestCommonRun(a, b []rune) (ai, bi, size int) {
	for i := range a {
		if len(a)-i <= size {
			break
		}
		for j := range b {
			k := 0
			for i+k < len(a) && j+k < len(b) && a[i+k] == b[j+k] {
				k++
			}
			if k > size {
				ai, bi, size = i, j, k
			}
		}
	}
	return ai, bi, size
}
