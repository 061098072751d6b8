// Package fuzzy scores how similar two strings are on a 0-100 scale.
//
// Scores match the classic SequenceMatcher based ratios: Ratio compares
// whole strings, PartialRatio slides the shorter string over the longer one
// and keeps the best window, so a question is found inside a larger block
// of text.
package fuzzy

import (
	"math"

	"github.com/pmezard/go-difflib/difflib"
)

// perfect is the window ratio treated as an exact hit.
const perfect = 0.995

// Ratio returns the whole-string similarity. Empty input scores 0.
func Ratio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	return score(difflib.NewMatcher(runes(a), runes(b)).Ratio())
}

// PartialRatio returns the similarity of the shorter string to its best
// aligned window in the longer one. Empty input scores 0.
func PartialRatio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	shorter, longer := runes(a), runes(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}

	best := 0.0
	for _, blk := range difflib.NewMatcher(shorter, longer).GetMatchingBlocks() {
		start := max(blk.B-blk.A, 0)
		end := min(start+len(shorter), len(longer))

		r := difflib.NewMatcher(shorter, longer[start:end]).Ratio()
		if r > perfect {
			return 100
		}
		best = max(best, r)
	}
	return score(best)
}

// runes splits s into one element per rune, the unit the matcher compares.
func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// score rounds half to even, as the reference implementation does.
func score(r float64) int {
	return int(math.RoundToEven(100 * r))
}
