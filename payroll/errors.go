/*
errors.go - Error types for ingestion and reporting

PURPOSE:
  All error kinds in one place. Transport maps them to HTTP statuses with
  errors.Is, so wrap with %w and never compare strings.

ERROR CATEGORIES:
  1. Ingestion errors - missing file, duplicate upload, malformed rows
  2. Report errors - nothing to report
  3. Lookup errors - unknown ingestion identifier

SEE ALSO:
  - ingest/gatekeeper.go: Produces ingestion errors
  - report.go: Produces ErrEmptyReportSource
  - api/handlers.go: Maps errors to responses
*/
package payroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingFile is returned when an upload carries no file.
	ErrMissingFile = errors.New("file not given")

	// ErrDuplicateIngestion is returned when the upload's identifier collides
	// with a previously accepted identifier.
	ErrDuplicateIngestion = errors.New("file already ingested")

	// ErrEmptyReportSource is returned when the timesheet store holds no rows.
	ErrEmptyReportSource = errors.New("timesheet is empty")

	// ErrMalformedRow is returned when a CSV row cannot be parsed.
	ErrMalformedRow = errors.New("malformed timesheet row")

	// ErrIngestionNotFound is returned by exact identifier lookups.
	ErrIngestionNotFound = errors.New("ingestion not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DuplicateIngestionError names the identifier that caused the rejection.
type DuplicateIngestionError struct {
	Identifier string
	Existing   string
}

func (e *DuplicateIngestionError) Error() string {
	return fmt.Sprintf("file %q already ingested (matches %q)", e.Identifier, e.Existing)
}

func (e *DuplicateIngestionError) Unwrap() error {
	return ErrDuplicateIngestion
}

// MalformedRowError points at the offending CSV cell.
// Line is 1-based and counts the header row.
type MalformedRowError struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *MalformedRowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d: invalid %s %q: %v", e.Line, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("line %d: invalid %s %q", e.Line, e.Field, e.Value)
}

func (e *MalformedRowError) Unwrap() error {
	return ErrMalformedRow
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to the caller's input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingFile) ||
		errors.Is(err, ErrDuplicateIngestion) ||
		errors.Is(err, ErrMalformedRow) ||
		errors.Is(err, ErrEmptyReportSource)
}
