package marking

import (
	"regexp"
	"strconv"
	"strings"

	"chipauth/internal/scheme"
)

// Date code patterns, most specific first. Letter lot codes are a letter
// followed by two digits and attached batch letters, used by some legacy
// manufacturers in place of YYWW.
var (
	letterLotPattern = regexp.MustCompile(`\b([A-Z][0-9]{2}[A-Z]{1,3})\b`)
	yywwPattern      = regexp.MustCompile(`\b([0-9]{2})(0[1-9]|[1-4][0-9]|5[0-3])\b`)
	fullYearPattern  = regexp.MustCompile(`\b(19[0-9]{2}|20[0-9]{2})\b`)
)

// resolveTwoDigitYear maps a 2-digit year to a full year. Values up to 40
// land in the 2000s, 90-99 in the 1990s; the band in between stays
// unresolved so a chip is never misdated by a whole century.
func resolveTwoDigitYear(yy int) int {
	switch {
	case yy <= 40:
		return 2000 + yy
	case yy >= 90:
		return 1900 + yy
	default:
		return 0
	}
}

// ExtractDateCodes finds all plausible date codes in the marking text.
// Multiple formats may co-occur on one marking, and a single 4-digit token
// can be readable both as YYWW and as a bare year, so every plausible
// interpretation is returned. Tokens listed in skip (already claimed as
// part numbers) are ignored.
func ExtractDateCodes(text string, skip []string) []DateCodeCandidate {
	text = strings.ToUpper(text)

	skipSet := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipSet[strings.ToUpper(s)] = true
	}

	var codes []DateCodeCandidate
	seen := make(map[string]bool)
	add := func(c DateCodeCandidate) {
		key := c.Raw + "/" + string(c.Format)
		if seen[key] || skipSet[c.Raw] {
			return
		}
		seen[key] = true
		codes = append(codes, c)
	}

	for _, m := range yywwPattern.FindAllStringSubmatch(text, -1) {
		yy, _ := strconv.Atoi(m[1])
		ww, _ := strconv.Atoi(m[2])
		add(DateCodeCandidate{
			Raw:    m[1] + m[2],
			Format: scheme.FormatYYWW,
			Year:   resolveTwoDigitYear(yy),
			Week:   ww,
		})
	}

	for _, m := range fullYearPattern.FindAllStringSubmatch(text, -1) {
		year, _ := strconv.Atoi(m[1])
		add(DateCodeCandidate{
			Raw:    m[1],
			Format: scheme.FormatFullYear,
			Year:   year,
		})
	}

	for _, m := range letterLotPattern.FindAllStringSubmatch(text, -1) {
		// Year encoding of letter lots is manufacturer specific, so the
		// candidate carries no resolved year.
		add(DateCodeCandidate{
			Raw:    m[1],
			Format: scheme.FormatLetterLot,
		})
	}

	return codes
}
