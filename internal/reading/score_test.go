package reading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreFailedAndEmptyCandidates(t *testing.T) {
	assert.Zero(t, Score(Candidate{Failed: true, MeanConfidence: 0.99}))
	assert.Zero(t, Score(Candidate{Text: "", MeanConfidence: 0.99}))
	assert.Zero(t, Score(Candidate{Text: "   "}))
}

func TestScoreRewardsPlausibleMarkingText(t *testing.T) {
	marking := Candidate{Text: "ATMEL ATMEGA328P 20AU 1004", MeanConfidence: 0.85}
	noise := Candidate{Text: "///%%%###", MeanConfidence: 0.85}

	assert.Greater(t, Score(marking), Score(noise))
}

func TestScoreMonotonicInConfidence(t *testing.T) {
	low := Candidate{Text: "SN74LS244N 8923", MeanConfidence: 0.40}
	high := Candidate{Text: "SN74LS244N 8923", MeanConfidence: 0.90}

	assert.Greater(t, Score(high), Score(low))
}

func TestScorePenalizesGibberish(t *testing.T) {
	clean := Candidate{Text: "CY8C29666 1025", MeanConfidence: 0.8}
	consonants := Candidate{Text: "XKWRTQPLN 1025", MeanConfidence: 0.8}
	repeats := Candidate{Text: "CY8C29666 11111025", MeanConfidence: 0.8}

	assert.Greater(t, Score(clean), Score(consonants))
	assert.Greater(t, Score(clean), Score(repeats))
}

func TestScoreVocabularyBonus(t *testing.T) {
	plain := Candidate{Text: "QQ99ZZ17 1004", MeanConfidence: 0.7}
	vocab := Candidate{Text: "ATMEL ATMEGA328P 1004", MeanConfidence: 0.7}

	assert.Greater(t, Score(vocab), Score(plain))
}

func TestSelectPicksMaximumScore(t *testing.T) {
	candidates := []Candidate{
		{VariantID: 0, Text: "##@@!!", MeanConfidence: 0.2},
		{VariantID: 1, Text: "ATMEL ATMEGA328P 1004", MeanConfidence: 0.9},
		{VariantID: 2, Text: "ATMEL", MeanConfidence: 0.5},
	}

	sel, ok := Select(candidates)
	assert.True(t, ok)
	assert.Equal(t, 1, sel.VariantID)
	assert.Equal(t, "ATMEL ATMEGA328P 1004", sel.Text)
}

func TestSelectTieBreaksOnEarliestVariant(t *testing.T) {
	same := "ATMEL ATMEGA328P 1004"
	candidates := []Candidate{
		{VariantID: 3, Text: same, MeanConfidence: 0.8},
		{VariantID: 1, Text: same, MeanConfidence: 0.8},
		{VariantID: 2, Text: same, MeanConfidence: 0.8},
	}

	sel, ok := Select(candidates)
	assert.True(t, ok)
	assert.Equal(t, 1, sel.VariantID)
}

func TestSelectDeterministic(t *testing.T) {
	candidates := []Candidate{
		{VariantID: 0, Text: "SN74LS244N 8923", MeanConfidence: 0.6},
		{VariantID: 1, Text: "SN74L5244N 8923", MeanConfidence: 0.6},
	}

	first, _ := Select(candidates)
	for i := 0; i < 10; i++ {
		again, _ := Select(candidates)
		assert.Equal(t, first, again)
	}
}

func TestSelectAllFailed(t *testing.T) {
	candidates := []Candidate{
		{VariantID: 0, Failed: true},
		{VariantID: 1, Text: ""},
	}

	_, ok := Select(candidates)
	assert.False(t, ok)
}
