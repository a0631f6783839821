package brand

import (
	"strings"
	"unicode"
)

// normalizeName lower-cases and removes every non-alphanumeric rune, so
// "Nordic-Nest.se" and "nordicnest se" compare equal.
func normalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// similarity returns the symmetric character-similarity of two normalized
// names in [0,1], computed as 2*LCS / (len(a)+len(b)).
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	lcs := lcsLength(a, b)
	return float64(2*lcs) / float64(len(a)+len(b))
}

// lcsLength computes the longest-common-subsequence length with a rolling
// single-row table. Brand cardinality is small, quadratic time is fine.
func lcsLength(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
