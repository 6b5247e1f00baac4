package engine

import "math"

// Verdict is the final authentication outcome.
type Verdict string

const (
	VerdictAuthentic   Verdict = "AUTHENTIC"
	VerdictCounterfeit Verdict = "COUNTERFEIT"
)

// ScoreBreakdown holds the four weighted sub-scores.
type ScoreBreakdown struct {
	MarkingScore       int `json:"marking_score"`       // 0-40
	DocumentationScore int `json:"documentation_score"` // 0-30
	OCRScore           int `json:"ocr_score"`           // 0-20
	DateBonus          int `json:"date_bonus"`          // 0-10
}

// Decision thresholds. An undocumented part gets a lower bar: a genuine
// but obsolete part should not be penalized twice for missing datasheets.
const (
	thresholdDocumented   = 70
	thresholdUndocumented = 60
)

// WeightedTotal sums the breakdown into a 0-100 score. Each sub-score is
// clamped to its band so the total is monotonic in every component.
func WeightedTotal(b ScoreBreakdown) int {
	return clampInt(b.MarkingScore, 0, 40) +
		clampInt(b.DocumentationScore, 0, 30) +
		clampInt(b.OCRScore, 0, 20) +
		clampInt(b.DateBonus, 0, 10)
}

// Decide applies the override phase. A CRITICAL validation issue forces
// COUNTERFEIT unconditionally, irrespective of the total; otherwise the
// verdict follows the threshold for the documentation state.
func Decide(total int, hasCritical, documentationFound bool) Verdict {
	if hasCritical {
		return VerdictCounterfeit
	}
	threshold := thresholdUndocumented
	if documentationFound {
		threshold = thresholdDocumented
	}
	if total >= threshold {
		return VerdictAuthentic
	}
	return VerdictCounterfeit
}

// ocrScore maps the selected reading's quality to the 0-20 OCR sub-score.
// Monotonic in the underlying confidence.
func ocrScore(quality float64) int {
	if quality <= 0 {
		return 0
	}
	if quality >= 1 {
		return 20
	}
	return int(math.Round(20 * quality))
}

// dateBonus is awarded only when at least one date code parsed cleanly.
func dateBonus(validDateCode bool) int {
	if validDateCode {
		return 10
	}
	return 0
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
