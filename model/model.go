// Package model holds the check, section and review result types produced by
// a DAC review, together with the helpers that turn them into a JSON-safe,
// deterministic representation.
package model

import "time"

// Status is the outcome of a check, a section, or a whole review.
type Status string

const (
	StatusMet          Status = "MET"
	StatusPartiallyMet Status = "PARTIALLY_MET"
	StatusNotMet       Status = "NOT_MET"
	StatusSkipped      Status = "SKIPPED"
	StatusUnknown      Status = "UNKNOWN"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusMet, StatusPartiallyMet, StatusNotMet, StatusSkipped, StatusUnknown:
		return true
	}
	return false
}

// Severity ranks how much a failing check matters.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
	SeverityInfo     Severity = "info"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityMajor, SeverityMinor, SeverityInfo:
		return true
	}
	return false
}

// Evidence is the open key/value bag attached to a check. Values should be
// JSON-safe; Sanitize is applied at the serialization boundary.
type Evidence map[string]any

// Merge returns a new bag holding e overlaid with other.
func (e Evidence) Merge(other Evidence) Evidence {
	out := make(Evidence, len(e)+len(other))
	for k, v := range e {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// CheckResult is one atomic compliance assertion.
type CheckResult struct {
	CheckID  string   `json:"check_id"`
	Name     string   `json:"name"`
	Status   Status   `json:"status"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Evidence Evidence `json:"evidence"`
}

// SectionResult is a named group of checks whose status is derived from
// its checks. Build it with compliance.AggregateSection.
type SectionResult struct {
	SectionID string        `json:"section_id"`
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Checks    []CheckResult `json:"checks"`
}

// ReviewResult is the single artifact produced by a review run.
type ReviewResult struct {
	DACFile         string          `json:"dac_file"`
	GeneratedAt     time.Time       `json:"generated_at"`
	OverallStatus   Status          `json:"overall_status"`
	Sections        []SectionResult `json:"sections"`
	Recommendations []string        `json:"recommendations"`
	Stats           map[string]any  `json:"stats"`
}

// CountChecks returns the number of checks across all sections.
func (r *ReviewResult) CountChecks() int {
	n := 0
	for _, s := range r.Sections {
		n += len(s.Checks)
	}
	return n
}

// Checks calls fn for every check in section then check order. Iteration
// stops when fn returns false.
func (r *ReviewResult) Checks(fn func(section SectionResult, check CheckResult) bool) {
	for _, s := range r.Sections {
		for _, c := range s.Checks {
			if !fn(s, c) {
				return
			}
		}
	}
}
