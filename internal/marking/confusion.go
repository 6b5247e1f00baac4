package marking

import "strings"

// confusionClasses groups characters OCR habitually swaps on worn or
// low-contrast package prints. The first rune of each class is the
// representative all members fold to during comparison.
var confusionClasses = []string{
	"O0QD",
	"I1L|",
	"S5$",
	"B8",
	"Z2",
	"G6",
	"EF",
	"MN",
	"A4@",
	"T7",
	"UV",
}

// confusionFold maps each confusable rune to its class representative.
var confusionFold = func() map[rune]rune {
	m := make(map[rune]rune)
	for _, class := range confusionClasses {
		runes := []rune(class)
		for _, r := range runes {
			m[r] = runes[0]
		}
	}
	return m
}()

// foldConfusions canonicalizes a string through the confusion-class table.
// Two strings that differ only by confusable characters fold to the same
// value.
func foldConfusions(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		if rep, ok := confusionFold[r]; ok {
			sb.WriteRune(rep)
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// editDistance computes the Levenshtein distance between two strings.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// matchesVariant reports whether token is a near-miss of a known
// manufacturer name variant: identical after confusion folding, or within
// a small edit distance of it.
func matchesVariant(token, variant string) bool {
	ft, fv := foldConfusions(token), foldConfusions(variant)
	if ft == fv {
		return true
	}
	// Short names like "TI" or "ST" must fold exactly; longer names
	// tolerate one or two residual errors.
	var allowed int
	switch {
	case len(fv) < 4:
		allowed = 0
	case len(fv) < 6:
		allowed = 1
	default:
		allowed = 2
	}
	return editDistance(ft, fv) <= allowed
}
