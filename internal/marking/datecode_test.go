package marking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chipauth/internal/scheme"
)

func findCode(t *testing.T, codes []DateCodeCandidate, format scheme.DateFormat) DateCodeCandidate {
	t.Helper()
	for _, c := range codes {
		if c.Format == format {
			return c
		}
	}
	t.Fatalf("no %s candidate in %v", format, codes)
	return DateCodeCandidate{}
}

func TestExtractDateCodesYYWW(t *testing.T) {
	tests := []struct {
		name string
		text string
		year int
		week int
	}{
		{"recent code", "ATMEGA328P 1004", 2010, 4},
		{"boundary year 40", "PART1 4012", 2040, 12},
		{"nineties code", "SN74LS244N 9523", 1995, 23},
		{"ambiguous decade stays unresolved", "PART1 6530", 0, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codes := ExtractDateCodes(tt.text, nil)
			c := findCode(t, codes, scheme.FormatYYWW)
			assert.Equal(t, tt.year, c.Year)
			assert.Equal(t, tt.week, c.Week)
		})
	}
}

func TestExtractDateCodesRejectsInvalidWeek(t *testing.T) {
	codes := ExtractDateCodes("XYZ 1060", nil)
	for _, c := range codes {
		assert.NotEqual(t, scheme.FormatYYWW, c.Format, "week 60 must not parse as YYWW")
	}
}

func TestYYWWRoundTrip(t *testing.T) {
	codes := ExtractDateCodes("1004", nil)
	c := findCode(t, codes, scheme.FormatYYWW)

	require.Equal(t, 2010, c.Year)
	require.Equal(t, 4, c.Week)
	assert.Equal(t, "1004", c.Serialize())
}

func TestExtractDateCodesFullYear(t *testing.T) {
	codes := ExtractDateCodes("CY8C29666-24PVXI B05 PHI 2007", nil)

	full := findCode(t, codes, scheme.FormatFullYear)
	assert.Equal(t, 2007, full.Year)
	assert.Equal(t, "2007", full.Raw)

	// The same token reads as YYWW 2020 week 7; both interpretations are
	// plausible and both are kept.
	yyww := findCode(t, codes, scheme.FormatYYWW)
	assert.Equal(t, 2020, yyww.Year)
	assert.Equal(t, 7, yyww.Week)
}

func TestExtractDateCodesLetterLot(t *testing.T) {
	codes := ExtractDateCodes("HD68000 A23BC", nil)
	c := findCode(t, codes, scheme.FormatLetterLot)
	assert.Equal(t, "A23BC", c.Raw)
	assert.Zero(t, c.Year, "letter lot year encoding is manufacturer specific")
}

func TestExtractDateCodesMultipleFormats(t *testing.T) {
	codes := ExtractDateCodes("SN74LS244N 9523 1995 A23BC", nil)

	assert.Equal(t, 1995, findCode(t, codes, scheme.FormatYYWW).Year)
	assert.Equal(t, 1995, findCode(t, codes, scheme.FormatFullYear).Year)
	assert.Equal(t, "A23BC", findCode(t, codes, scheme.FormatLetterLot).Raw)
}

func TestExtractDateCodesSkipsPartNumbers(t *testing.T) {
	codes := ExtractDateCodes("1004", []string{"1004"})
	assert.Empty(t, codes)
}
