package naming

import (
	"strings"
)

// DefaultSharedRunLength is the number of consecutive shared words at which
// two generated names count as near-identical.
const DefaultSharedRunLength = 3

// FlagDuplicateNames relabels near-identical generated names. For every
// ordered pair (i, j) with i < j, it finds the longest run of consecutive
// words from name i that all individually appear in name j; when that run
// reaches minRun, name j is overwritten with its fallback name. Intentionally
// asymmetric: the earlier name survives. This only guards against
// near-identical generated labels, not genuine topical overlap. Returns a new
// slice; the input is not modified.
func FlagDuplicateNames(names []string, minRun int) []string {
	if minRun <= 0 {
		minRun = DefaultSharedRunLength
	}

	out := make([]string, len(names))
	copy(out, names)

	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if longestSharedRun(out[i], out[j]) >= minRun {
				out[j] = FallbackName(j)
			}
		}
	}

	return out
}

// longestSharedRun returns the length of the longest run of consecutive
// words in a whose words all individually appear in b.
func longestSharedRun(a, b string) int {
	aWords := strings.Fields(strings.ToLower(a))
	bSet := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(b)) {
		bSet[w] = struct{}{}
	}

	longest, run := 0, 0
	for _, w := range aWords {
		if _, ok := bSet[w]; ok {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}

	return longest
}
