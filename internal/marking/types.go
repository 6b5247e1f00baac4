// Package marking parses OCR text from an IC package into structured
// marking fields: part number candidates, date codes, lot code, and a
// normalized manufacturer hint.
package marking

import (
	"fmt"

	"chipauth/internal/scheme"
)

// DateCodeCandidate is one plausible date code found in the marking text.
// Year is 0 when the format does not resolve to a calendar year (letter lot
// codes, ambiguous 2-digit years). Week is 0 for formats without a week.
type DateCodeCandidate struct {
	Raw    string            `json:"raw"`
	Format scheme.DateFormat `json:"format"`
	Year   int               `json:"year,omitempty"`
	Week   int               `json:"week,omitempty"`
}

// Serialize renders the candidate back to its marking form. For YYWW this
// is the identity round trip of the original 4-digit code.
func (d DateCodeCandidate) Serialize() string {
	switch d.Format {
	case scheme.FormatYYWW:
		if d.Year > 0 && d.Week > 0 {
			return fmt.Sprintf("%02d%02d", d.Year%100, d.Week)
		}
	case scheme.FormatFullYear:
		if d.Year > 0 {
			return fmt.Sprintf("%04d", d.Year)
		}
	}
	return d.Raw
}

// Extracted holds the structured fields parsed from one marking text.
type Extracted struct {
	// PartNumbers lists part number candidates in specificity order. The
	// first entry is the primary candidate; documentation lookup tries
	// each in turn.
	PartNumbers []string `json:"part_numbers,omitempty"`

	// ManufacturerHint is the canonical manufacturer name resolved from
	// logo text, or empty if none was recognized.
	ManufacturerHint string `json:"manufacturer_hint,omitempty"`

	// Misspelling is a raw token matching a documented counterfeit
	// indicator misspelling of a manufacturer name, or empty.
	Misspelling string `json:"misspelling,omitempty"`

	DateCodes []DateCodeCandidate `json:"date_codes,omitempty"`
	LotCode   string              `json:"lot_code,omitempty"`
	RawLines  []string            `json:"raw_lines,omitempty"`
}

// PartNumber returns the primary part number candidate, or "".
func (e *Extracted) PartNumber() string {
	if len(e.PartNumbers) == 0 {
		return ""
	}
	return e.PartNumbers[0]
}
