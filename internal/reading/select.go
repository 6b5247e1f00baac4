package reading

import "strings"

// Selected is the single chosen reading for a run.
type Selected struct {
	Text      string
	Quality   float64
	VariantID int
}

// Select picks the best candidate: maximum quality score, ties broken by
// the earliest-generated variant. The result is deterministic for a given
// candidate list. ok is false when no candidate produced any text.
func Select(candidates []Candidate) (sel Selected, ok bool) {
	if len(candidates) == 0 {
		return Selected{}, false
	}

	bestIdx := -1
	bestScore := -1.0
	for i, c := range candidates {
		score := Score(c)
		better := score > bestScore ||
			(score == bestScore && bestIdx >= 0 && c.VariantID < candidates[bestIdx].VariantID)
		if better {
			bestIdx = i
			bestScore = score
		}
	}

	c := candidates[bestIdx]
	sel = Selected{Text: c.Text, Quality: bestScore, VariantID: c.VariantID}
	return sel, strings.TrimSpace(c.Text) != "" && !c.Failed
}
