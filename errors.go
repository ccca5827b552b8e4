package relgraph

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for the failure classes of catalog ingestion and
// integrity scanning.
var (
	// ErrReference is returned when a foreign key points at a table or column
	// that is not part of the catalog.
	ErrReference = errors.New("relgraph: unresolved reference")

	// ErrRedundant is reported when a foreign key duplicates an association
	// that is already modeled.
	ErrRedundant = errors.New("relgraph: redundant reference")

	// ErrUnsupportedShape is reported for reference shapes that are not
	// modeled, such as composite polymorphic keys.
	ErrUnsupportedShape = errors.New("relgraph: unsupported reference shape")

	// ErrScan is returned when the orphan scan of one association fails.
	ErrScan = errors.New("relgraph: scan failed")

	// ErrConfig indicates an invalid configuration value.
	ErrConfig = errors.New("relgraph: invalid configuration")
)

// ReferenceError represents a foreign key whose table or column is unknown.
type ReferenceError struct {
	Table      string   // Table that owns the foreign key
	Column     string   // Referencing column (if applicable)
	Constraint string   // Constraint name (if known)
	Missing    string   // The missing table or column
	Known      []string // Known tables or columns, for diagnostics
}

// Error returns the error string.
func (e *ReferenceError) Error() string {
	var b strings.Builder
	b.WriteString("relgraph: unresolved reference")
	if e.Constraint != "" {
		fmt.Fprintf(&b, " %q", e.Constraint)
	}
	if e.Table != "" {
		b.WriteString(" on ")
		b.WriteString(e.Table)
		if e.Column != "" {
			b.WriteString(".")
			b.WriteString(e.Column)
		}
	}
	if e.Missing != "" {
		fmt.Fprintf(&b, ": %s not found", e.Missing)
	}
	if len(e.Known) > 0 {
		fmt.Fprintf(&b, " (known: %s)", strings.Join(e.Known, ", "))
	}
	return b.String()
}

// Is reports whether the target matches ErrReference.
func (e *ReferenceError) Is(target error) bool {
	return target == ErrReference
}

// NewReferenceError returns a new ReferenceError.
func NewReferenceError(table, column, constraint, missing string, known []string) *ReferenceError {
	return &ReferenceError{
		Table:      table,
		Column:     column,
		Constraint: constraint,
		Missing:    missing,
		Known:      known,
	}
}

// IsReferenceError returns true if the error is a ReferenceError.
func IsReferenceError(err error) bool {
	if err == nil {
		return false
	}
	var e *ReferenceError
	return errors.As(err, &e)
}

// RedundancyError represents a foreign key that duplicates an existing
// association. It is a warning: the existing association is kept.
type RedundancyError struct {
	Table      string
	Column     string
	Constraint string // Constraint of the skipped foreign key
	Existing   string // Constraint of the association that was kept
}

// Error returns the error string.
func (e *RedundancyError) Error() string {
	return fmt.Sprintf("relgraph: reference %q on %s.%s is redundant with %q", e.Constraint, e.Table, e.Column, e.Existing)
}

// Is reports whether the target matches ErrRedundant.
func (e *RedundancyError) Is(target error) bool {
	return target == ErrRedundant
}

// NewRedundancyError returns a new RedundancyError.
func NewRedundancyError(table, column, constraint, existing string) *RedundancyError {
	return &RedundancyError{Table: table, Column: column, Constraint: constraint, Existing: existing}
}

// IsRedundancyError returns true if the error is a RedundancyError.
func IsRedundancyError(err error) bool {
	if err == nil {
		return false
	}
	var e *RedundancyError
	return errors.As(err, &e)
}

// UnsupportedShapeError represents a reference that cannot be modeled.
type UnsupportedShapeError struct {
	Table      string
	Constraint string
	Columns    []string // Columns that were offered for the reference
	Message    string
}

// Error returns the error string.
func (e *UnsupportedShapeError) Error() string {
	msg := fmt.Sprintf("relgraph: unsupported reference %q on %s (%s)", e.Constraint, e.Table, strings.Join(e.Columns, ", "))
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Is reports whether the target matches ErrUnsupportedShape.
func (e *UnsupportedShapeError) Is(target error) bool {
	return target == ErrUnsupportedShape
}

// NewUnsupportedShapeError returns a new UnsupportedShapeError.
func NewUnsupportedShapeError(table, constraint string, columns []string, message string) *UnsupportedShapeError {
	return &UnsupportedShapeError{Table: table, Constraint: constraint, Columns: columns, Message: message}
}

// IsUnsupportedShapeError returns true if the error is an UnsupportedShapeError.
func IsUnsupportedShapeError(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedShapeError
	return errors.As(err, &e)
}

// ScanError wraps the failure of a single association's orphan scan.
type ScanError struct {
	Table       string // Table that owns the association
	Association string // Association (constraint) name
	Query       string // Query that was executed, if any
	Err         error  // Underlying error
}

// Error returns the error string.
func (e *ScanError) Error() string {
	return fmt.Sprintf("relgraph: scanning %s (%s): %v", e.Table, e.Association, e.Err)
}

// Unwrap returns the underlying error.
func (e *ScanError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches ErrScan.
func (e *ScanError) Is(target error) bool {
	return target == ErrScan
}

// NewScanError returns a new ScanError.
func NewScanError(table, association, query string, err error) *ScanError {
	return &ScanError{Table: table, Association: association, Query: query, Err: err}
}

// IsScanError returns true if the error is a ScanError.
func IsScanError(err error) bool {
	if err == nil {
		return false
	}
	var e *ScanError
	return errors.As(err, &e)
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error returns the error string.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("relgraph: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("relgraph: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches ErrConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// NewConfigError returns a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{Option: option, Value: value, Message: message}
}

// IsConfigError returns true if the error is a ConfigError.
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigError
	return errors.As(err, &e)
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "relgraph: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("relgraph: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors for errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
