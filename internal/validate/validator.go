// Package validate checks extracted marking fields against manufacturer
// marking schemes and produces severity-tagged issues plus the marking
// sub-score.
package validate

import (
	"fmt"
	"time"

	"chipauth/internal/marking"
	"chipauth/internal/scheme"
)

// Severity ranks a validation issue.
type Severity int

const (
	SeverityMinor Severity = iota + 1
	SeverityMajor
	SeverityCritical
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityMinor:
		return "MINOR"
	case SeverityMajor:
		return "MAJOR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// escalate raises a severity one tier. CRITICAL stays CRITICAL.
func (s Severity) escalate() Severity {
	if s < SeverityCritical {
		return s + 1
	}
	return s
}

// Issue codes.
const (
	CodeNoMarkings           = "no_markings_detected"
	CodeFormatMismatch       = "date_format_mismatch"
	CodeSuspiciousFormat     = "suspicious_date_format"
	CodeDatePrecedesRelease  = "date_precedes_release"
	CodeStaleDateCode        = "stale_date_code"
	CodeMissingDateCode      = "missing_date_code"
	CodeMisspelledName       = "manufacturer_misspelling"
)

// Issue is one validation finding.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`

	// dateRelated marks issues that participate in combined indicator
	// escalation together with a manufacturer-name misspelling.
	dateRelated bool
}

// Options tune validation policy.
type Options struct {
	// Now anchors staleness checks. Zero means time.Now at call time.
	Now time.Time

	// StaleAfterYears is how far before Now a date code counts as
	// unusually old. StaleSeverity is the severity of that finding; the
	// field exists because manufacturers disagree on how alarming an old
	// but possible date is.
	StaleAfterYears int
	StaleSeverity   Severity
}

// DefaultOptions returns the default validation policy.
func DefaultOptions() Options {
	return Options{
		StaleAfterYears: 13,
		StaleSeverity:   SeverityMinor,
	}
}

// Report is the outcome of one validation run.
type Report struct {
	Issues []Issue `json:"issues"`

	// ValidDateCode is true when at least one date code parsed cleanly
	// with no issues against an accepted format.
	ValidDateCode bool `json:"valid_date_code"`

	// Matched scheme entries, for reporting. Empty when the part number
	// matched no configured family.
	Manufacturer  string `json:"manufacturer,omitempty"`
	FamilyPattern string `json:"family_pattern,omitempty"`
}

// HasCritical reports whether any issue is CRITICAL.
func (r *Report) HasCritical() bool {
	for _, is := range r.Issues {
		if is.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// MarkingScore derives the 0-40 marking sub-score. A CRITICAL issue forces
// zero regardless of anything else; otherwise each MAJOR costs 15 points
// and each MINOR costs 5.
func (r *Report) MarkingScore() int {
	if r.HasCritical() {
		return 0
	}
	score := 40
	for _, is := range r.Issues {
		switch is.Severity {
		case SeverityMajor:
			score -= 15
		case SeverityMinor:
			score -= 5
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Validate evaluates extracted marking fields against the scheme table.
// The table is read only; a validation run never mutates it.
func Validate(m *marking.Extracted, table *scheme.Table, opts Options) Report {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.StaleAfterYears <= 0 {
		opts.StaleAfterYears = 13
	}
	if opts.StaleSeverity == 0 {
		opts.StaleSeverity = SeverityMinor
	}

	var r Report

	if len(m.RawLines) == 0 {
		r.Issues = append(r.Issues, Issue{
			Severity: SeverityMajor,
			Code:     CodeNoMarkings,
			Message:  "no markings detected in any preprocessing variant",
		})
		return r
	}

	// The first part number candidate that matches a configured family
	// defines the rules for the whole marking.
	var mfr *scheme.Manufacturer
	var family *scheme.Family
	for _, part := range m.PartNumbers {
		if fm, f, ok := table.Match(part); ok {
			mfr, family = fm, f
			break
		}
	}
	if mfr != nil {
		r.Manufacturer = mfr.Name
		r.FamilyPattern = family.Pattern
	}

	r.validateDateCodes(m, family, opts)

	if m.Misspelling != "" {
		r.Issues = append(r.Issues, Issue{
			Severity: SeverityMajor,
			Code:     CodeMisspelledName,
			Message:  fmt.Sprintf("marking reads %q, a documented counterfeit misspelling", m.Misspelling),
		})
		r.escalateCombined()
	}

	return r
}

// validateDateCodes checks every date code candidate against the matched
// family's rules.
func (r *Report) validateDateCodes(m *marking.Extracted, family *scheme.Family, opts Options) {
	if len(m.DateCodes) == 0 {
		sev := SeverityMinor
		if family != nil && family.DateCodeRequired {
			sev = SeverityMajor
		}
		r.Issues = append(r.Issues, Issue{
			Severity:    sev,
			Code:        CodeMissingDateCode,
			Message:     "no date code found on marking",
			dateRelated: true,
		})
		return
	}

	staleBefore := opts.Now.Year() - opts.StaleAfterYears

	for _, dc := range m.DateCodes {
		clean := true

		if family != nil && !family.Accepts(dc.Format) {
			clean = false
			if sp := family.SuspiciousFormat(dc.Format); sp != nil {
				r.Issues = append(r.Issues, Issue{
					Severity:    SeverityCritical,
					Code:        CodeSuspiciousFormat,
					Message:     fmt.Sprintf("date code %q uses format %s: %s", dc.Raw, dc.Format, sp.Reason),
					dateRelated: true,
				})
			} else {
				r.Issues = append(r.Issues, Issue{
					Severity:    SeverityMajor,
					Code:        CodeFormatMismatch,
					Message:     fmt.Sprintf("date code %q format %s not used by this part family", dc.Raw, dc.Format),
					dateRelated: true,
				})
			}
		}

		// A date before the part existed is physically impossible. This
		// is always CRITICAL and never downgraded.
		if family != nil && family.ReleaseYear > 0 && dc.Year > 0 && dc.Year < family.ReleaseYear {
			clean = false
			r.Issues = append(r.Issues, Issue{
				Severity:    SeverityCritical,
				Code:        CodeDatePrecedesRelease,
				Message:     fmt.Sprintf("date code %q decodes to %d, before the part's %d release", dc.Raw, dc.Year, family.ReleaseYear),
				dateRelated: true,
			})
		}

		if dc.Year > 0 && dc.Year < staleBefore {
			clean = false
			r.Issues = append(r.Issues, Issue{
				Severity:    opts.StaleSeverity,
				Code:        CodeStaleDateCode,
				Message:     fmt.Sprintf("date code %q decodes to %d, unusually old for current stock", dc.Raw, dc.Year),
				dateRelated: true,
			})
		}

		if clean && (family == nil || family.Accepts(dc.Format)) {
			r.ValidDateCode = true
		}
	}
}

// escalateCombined applies combined indicator escalation: a misspelled
// manufacturer name alone is noise and a weak date issue alone is noise,
// but together they are a strong counterfeit indicator, so the worst
// date-related issue is raised one severity tier.
func (r *Report) escalateCombined() {
	worst := -1
	for i, is := range r.Issues {
		if !is.dateRelated {
			continue
		}
		if worst < 0 || is.Severity > r.Issues[worst].Severity {
			worst = i
		}
	}
	if worst >= 0 {
		r.Issues[worst].Severity = r.Issues[worst].Severity.escalate()
	}
}
