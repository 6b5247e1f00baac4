package marking

import (
	"regexp"
	"sort"
	"strings"

	"chipauth/internal/scheme"
)

// Part number matchers, most specific first. The hyphenated form covers
// manufacturer-prefixed package codes like CY8C29666-24PVXI; the generic
// form catches plain alphanumeric part numbers like ATMEGA328P.
var (
	hyphenatedPartPattern = regexp.MustCompile(`\b([A-Z]{1,4}[0-9][A-Z0-9]{3,}-[A-Z0-9]{2,})\b`)
	genericPartPattern    = regexp.MustCompile(`\b([A-Z0-9]{5,})\b`)
	lotPattern            = regexp.MustCompile(`\b([A-Z]{2,4}) ?([0-9]{5,})\b`)
)

// Parse extracts structured marking fields from OCR text. It is a
// deterministic, stateless transformation; the scheme table supplies only
// static name-normalization data and is never modified.
func Parse(text string, table *scheme.Table) Extracted {
	upper := strings.ToUpper(text)

	e := Extracted{RawLines: splitLines(upper)}
	e.PartNumbers = extractPartNumbers(upper)
	e.LotCode = extractLotCode(upper, table)
	e.DateCodes = ExtractDateCodes(upper, knownParts(e.PartNumbers, table))
	e.ManufacturerHint, e.Misspelling = matchManufacturer(upper, table)
	return e
}

// splitLines breaks text into trimmed, non-empty lines.
func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// extractPartNumbers applies the part number matchers in specificity order
// and returns the candidates from the first matcher family that hits.
func extractPartNumbers(text string) []string {
	if parts := collectParts(hyphenatedPartPattern, text); len(parts) > 0 {
		return parts
	}
	return collectParts(genericPartPattern, text)
}

// collectParts gathers unique matches for one matcher, longest first so the
// most specific candidate leads.
func collectParts(re *regexp.Regexp, text string) []string {
	var parts []string
	seen := make(map[string]bool)
	for _, m := range re.FindAllString(text, -1) {
		if !hasLetter(m) || !hasDigit(m) {
			continue
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		parts = append(parts, m)
	}
	sort.SliceStable(parts, func(i, j int) bool {
		return len(parts[i]) > len(parts[j])
	})
	return parts
}

// knownParts returns the part number candidates that resolve against a
// configured family. Only these are withheld from date code scanning: a
// letter lot code fits the generic part shape too, and must stay readable
// as a date even when it was also collected as a part candidate.
func knownParts(parts []string, table *scheme.Table) []string {
	if table == nil {
		return parts
	}
	var known []string
	for _, p := range parts {
		if _, _, ok := table.Match(p); ok {
			known = append(known, p)
		}
	}
	return known
}

// extractLotCode finds a manufacturer lot code: a 2-4 letter prefix token
// followed by a run of at least five digits, optionally space separated.
// Classic prefix+number parts like TMS32010 fit the same shape, so a match
// belonging to a configured part family is never taken as a lot.
func extractLotCode(text string, table *scheme.Table) string {
	for _, m := range lotPattern.FindAllStringSubmatch(text, -1) {
		joined := m[1] + m[2]
		if table != nil {
			if _, _, ok := table.Match(joined); ok {
				continue
			}
		}
		return joined
	}
	return ""
}

// matchManufacturer resolves the manufacturer hint from logo text. Each
// token (and adjacent token pair, for two-word names) is checked first
// against documented counterfeit misspellings, then folded through the
// confusion table against each scheme's name variants.
func matchManufacturer(text string, table *scheme.Table) (hint, misspelling string) {
	if table == nil {
		return "", ""
	}

	tokens := strings.Fields(nonAlnumPattern.ReplaceAllString(text, " "))
	var candidates []string
	candidates = append(candidates, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		candidates = append(candidates, tokens[i]+" "+tokens[i+1])
	}

	for _, tok := range candidates {
		for mi := range table.Manufacturers {
			m := &table.Manufacturers[mi]
			for _, bad := range m.Misspellings {
				if strings.EqualFold(tok, bad) {
					return m.Name, tok
				}
			}
		}
	}

	for _, tok := range candidates {
		for mi := range table.Manufacturers {
			m := &table.Manufacturers[mi]
			for _, variant := range m.NameVariants {
				if matchesVariant(tok, variant) {
					return m.Name, ""
				}
			}
		}
	}

	return "", ""
}

var nonAlnumPattern = regexp.MustCompile(`[^A-Z0-9 ]+`)

func hasLetter(s string) bool {
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}

func hasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
