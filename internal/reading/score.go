// Package reading scores per-variant OCR results and selects the single
// best text reading for parsing.
package reading

import (
	"strings"

	"chipauth/internal/ocr"
)

// Candidate is one variant's OCR reading.
type Candidate struct {
	VariantID      int
	Technique      string
	Text           string
	MeanConfidence float64
	Spans          []ocr.Span

	// Failed marks a variant whose extraction call errored. It scores
	// zero but never aborts the pipeline.
	Failed bool
}

// EarlyExitQuality is the score above which remaining variants may be
// skipped. A skipped variant could in principle have scored higher still;
// at this quality the reading is reliable enough that the saved recognizer
// calls outweigh that marginal improvement.
const EarlyExitQuality = 0.90

// Score weights per term. Mean OCR confidence dominates; the text-quality
// terms separate a real marking from confidently recognized noise.
const (
	confidenceWeight = 0.55
	lengthWeight     = 0.20
	mixWeight        = 0.10
	specialWeight    = 0.05
	vocabWeight      = 0.10

	consonantRunPenalty = 0.10
	repeatRunPenalty    = 0.05
)

// icVocabulary lists manufacturer names and part-family prefixes whose
// presence marks a reading as plausible IC marking text.
var icVocabulary = []string{
	"ATMEL", "CYPRESS", "TEXAS", "INSTRUMENTS", "STMICRO", "HITACHI",
	"MICROCHIP", "MOTOROLA", "TOSHIBA", "INFINEON", "ANALOG", "MAXIM",
	"ATMEGA", "ATTINY", "AT89", "AT90",
	"SN74", "SN54", "TMS",
	"CY8C", "CY7C",
	"STM32", "STM8",
	"HD68", "HD63",
	"PIC1", "LM3", "NE55", "MAX2",
}

// Score computes the quality score for a candidate in [0,1]. Failed and
// empty readings score zero.
func Score(c Candidate) float64 {
	if c.Failed {
		return 0
	}
	text := strings.ToUpper(strings.TrimSpace(c.Text))
	if text == "" {
		return 0
	}

	score := confidenceWeight*clamp01(c.MeanConfidence) +
		lengthWeight*lengthTerm(text) +
		mixWeight*mixTerm(text) +
		specialWeight*specialTerm(text) +
		vocabWeight*vocabTerm(text)

	score -= gibberishPenalty(text)
	return clamp01(score)
}

// lengthTerm peaks for readings between 5 and 60 characters, the plausible
// range for IC marking text.
func lengthTerm(text string) float64 {
	n := 0
	for _, r := range text {
		if r != ' ' && r != '\n' {
			n++
		}
	}
	switch {
	case n < 5:
		return float64(n) / 5
	case n <= 60:
		return 1
	default:
		return clamp01(1 - float64(n-60)/60)
	}
}

// mixTerm rewards a balanced mix of letters and digits. Real markings
// carry both; pure-letter or pure-digit readings are suspect.
func mixTerm(text string) float64 {
	letters, digits := 0, 0
	for _, r := range text {
		switch {
		case r >= 'A' && r <= 'Z':
			letters++
		case r >= '0' && r <= '9':
			digits++
		}
	}
	total := letters + digits
	if total == 0 {
		return 0
	}
	minority := min(letters, digits)
	// Full marks when the minority class holds at least a quarter.
	return clamp01(4 * float64(minority) / float64(total))
}

// specialTerm penalizes special-character-heavy readings; above 15% the
// term bottoms out.
func specialTerm(text string) float64 {
	total, special := 0, 0
	for _, r := range text {
		if r == ' ' || r == '\n' {
			continue
		}
		total++
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			special++
		}
	}
	if total == 0 {
		return 0
	}
	ratio := float64(special) / float64(total)
	return clamp01(1 - ratio/0.15)
}

// vocabTerm grants a bonus for recognizable IC vocabulary substrings.
func vocabTerm(text string) float64 {
	hits := 0
	for _, word := range icVocabulary {
		if strings.Contains(text, word) {
			hits++
			if hits == 2 {
				break
			}
		}
	}
	return float64(hits) / 2
}

// gibberishPenalty detects OCR noise signatures: long consonant runs and
// excessive repeated characters.
func gibberishPenalty(text string) float64 {
	penalty := 0.0
	if longestConsonantRun(text) >= 5 {
		penalty += consonantRunPenalty
	}
	if longestRepeatRun(text) >= 4 {
		penalty += repeatRunPenalty
	}
	return penalty
}

func longestConsonantRun(text string) int {
	longest, run := 0, 0
	for _, r := range text {
		if r >= 'A' && r <= 'Z' && !strings.ContainsRune("AEIOU", r) {
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

func longestRepeatRun(text string) int {
	longest, run := 0, 0
	var prev rune
	for _, r := range text {
		if r == prev && r != ' ' {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = r
	}
	return longest
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
