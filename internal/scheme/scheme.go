// Package scheme holds manufacturer marking-scheme configuration: which date
// code formats a part family uses, when parts were released, and which
// marking traits are documented counterfeit indicators. The table is loaded
// once at startup and treated as immutable; validation logic receives it by
// reference and never mutates it.
package scheme

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed schemes.toml
var defaultSchemes []byte

// DateFormat identifies a date code format family.
type DateFormat string

const (
	FormatYYWW      DateFormat = "YYWW"     // 2-digit year + 2-digit week
	FormatFullYear  DateFormat = "FullYear" // bare 4-digit year
	FormatLetterLot DateFormat = "LetterLot" // letter + digits + batch letters
	FormatUnknown   DateFormat = "Unknown"
)

// knownFormats lists the formats a scheme file may reference.
var knownFormats = map[DateFormat]bool{
	FormatYYWW:      true,
	FormatFullYear:  true,
	FormatLetterLot: true,
}

// SuspiciousPattern documents a marking trait strongly correlated with
// counterfeit remarking for a part family.
type SuspiciousPattern struct {
	Format DateFormat `toml:"format"` // disallowed date format
	Reason string     `toml:"reason"`
}

// Family describes the marking rules for one part family within a
// manufacturer's catalog.
type Family struct {
	Pattern             string              `toml:"pattern"` // regexp matched against part numbers
	AcceptedDateFormats []DateFormat        `toml:"accepted_date_formats"`
	ReleaseYear         int                 `toml:"release_year"` // 0 = unknown
	DateCodeRequired    bool                `toml:"date_code_required"`
	Suspicious          []SuspiciousPattern `toml:"suspicious"`

	re *regexp.Regexp
}

// Matches reports whether the part number belongs to this family.
func (f *Family) Matches(partNumber string) bool {
	return f.re != nil && f.re.MatchString(partNumber)
}

// Accepts reports whether the family accepts the given date format.
func (f *Family) Accepts(format DateFormat) bool {
	for _, a := range f.AcceptedDateFormats {
		if a == format {
			return true
		}
	}
	return false
}

// SuspiciousFormat returns the suspicious-pattern entry for a date format,
// or nil if the format is not documented as a counterfeit indicator.
func (f *Family) SuspiciousFormat(format DateFormat) *SuspiciousPattern {
	for i := range f.Suspicious {
		if f.Suspicious[i].Format == format {
			return &f.Suspicious[i]
		}
	}
	return nil
}

// Manufacturer holds marking rules and name-normalization data for one
// manufacturer.
type Manufacturer struct {
	Name string `toml:"name"`

	// NameVariants are OCR-confusable renderings of the logo text that
	// fold to the canonical name (e.g. "4TMEL" for "ATMEL").
	NameVariants []string `toml:"name_variants"`

	// Misspellings are known counterfeit-indicator misspellings, distinct
	// from OCR noise (e.g. "AMEL" stamped instead of "ATMEL").
	Misspellings []string `toml:"misspellings"`

	Families []Family `toml:"family"`
}

// Table is the full manufacturer scheme table.
type Table struct {
	Manufacturers []Manufacturer `toml:"manufacturer"`
}

// Match finds the manufacturer and family for a part number. Families are
// tried in file order within each manufacturer; the first match wins.
func (t *Table) Match(partNumber string) (*Manufacturer, *Family, bool) {
	partNumber = strings.ToUpper(strings.TrimSpace(partNumber))
	for mi := range t.Manufacturers {
		m := &t.Manufacturers[mi]
		for fi := range m.Families {
			if m.Families[fi].Matches(partNumber) {
				return m, &m.Families[fi], true
			}
		}
	}
	return nil, nil, false
}

// ByName returns the manufacturer with the given canonical name.
func (t *Table) ByName(name string) (*Manufacturer, bool) {
	for i := range t.Manufacturers {
		if strings.EqualFold(t.Manufacturers[i].Name, name) {
			return &t.Manufacturers[i], true
		}
	}
	return nil, false
}

// Default returns the embedded scheme table.
func Default() (*Table, error) {
	return parse(defaultSchemes)
}

// Load reads the scheme table. When path is empty the embedded defaults are
// returned. Otherwise the file's manufacturers are merged over the defaults:
// same-name entries replace the default, new entries are appended.
func Load(path string) (*Table, error) {
	base, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read scheme file: %w", err)
	}
	user, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("scheme file %s: %w", path, err)
	}

	for _, um := range user.Manufacturers {
		replaced := false
		for i := range base.Manufacturers {
			if strings.EqualFold(base.Manufacturers[i].Name, um.Name) {
				base.Manufacturers[i] = um
				replaced = true
				break
			}
		}
		if !replaced {
			base.Manufacturers = append(base.Manufacturers, um)
		}
	}
	return base, nil
}

// parse unmarshals and compiles a scheme table.
func parse(data []byte) (*Table, error) {
	var t Table
	if err := toml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("cannot parse scheme table: %w", err)
	}
	if err := t.compile(); err != nil {
		return nil, err
	}
	return &t, nil
}

// compile validates format names and compiles family patterns.
func (t *Table) compile() error {
	for mi := range t.Manufacturers {
		m := &t.Manufacturers[mi]
		if m.Name == "" {
			return fmt.Errorf("manufacturer %d: missing name", mi)
		}
		for fi := range m.Families {
			f := &m.Families[fi]
			if f.Pattern == "" {
				return fmt.Errorf("%s family %d: missing pattern", m.Name, fi)
			}
			re, err := regexp.Compile(f.Pattern)
			if err != nil {
				return fmt.Errorf("%s family %q: %w", m.Name, f.Pattern, err)
			}
			f.re = re
			for _, df := range f.AcceptedDateFormats {
				if !knownFormats[df] {
					return fmt.Errorf("%s family %q: unknown date format %q", m.Name, f.Pattern, df)
				}
			}
			for _, sp := range f.Suspicious {
				if !knownFormats[sp.Format] {
					return fmt.Errorf("%s family %q: unknown suspicious format %q", m.Name, f.Pattern, sp.Format)
				}
			}
		}
	}
	return nil
}
