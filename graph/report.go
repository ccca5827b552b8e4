package graph

import (
	"strings"

	"github.com/syssam/relgraph"
)

// Report holds the diagnostics of catalog ingestion. Errors are references
// that were skipped; warnings are references that were merged into an
// existing association.
type Report struct {
	Errors   []error
	Warnings []error
}

// HasErrors returns true if any reference was skipped.
func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if any reference was merged.
func (r *Report) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Err joins the errors of the report, or returns nil.
func (r *Report) Err() error {
	return relgraph.NewAggregateError(r.Errors...)
}

func (r *Report) add(err error) {
	if relgraph.IsRedundancyError(err) {
		r.Warnings = append(r.Warnings, err)
		return
	}
	r.Errors = append(r.Errors, err)
}

// remove drops a warning that no longer applies.
func (r *Report) remove(err error) {
	for i, w := range r.Warnings {
		if w == err {
			r.Warnings = append(r.Warnings[:i:i], r.Warnings[i+1:]...)
			return
		}
	}
}

// String returns a human-readable summary of the report.
func (r *Report) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - ")
			sb.WriteString(w.Error())
			sb.WriteString("\n")
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}
