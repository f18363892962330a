/*
store.go - Persistence contract for ingestions and timesheet rows

PURPOSE:
  Defines the interface between the core and the database. The core never
  reaches for a global connection: callers construct a Store and pass it in.

APPEND-ONLY CONTRACT:
  Timesheet rows are only ever appended, inside WithTx, together with the
  ingestion record that owns them. Reset is the single destructive call and
  exists for demo scenarios.

TRANSACTIONS:
  WithTx serializes writers. The ingestion gatekeeper reads the accepted
  identifiers, applies its duplicate predicate and writes the new record
  and its rows in one call, so two concurrent uploads of the same file
  cannot both be accepted.

IMPLEMENTATIONS:
  - store/sqlite: Embedded SQLite
  - store/postgres: PostgreSQL via lib/pq
  - payroll/store: In-memory for testing

SEE ALSO:
  - ingest/gatekeeper.go: Uses WithTx
  - report.go: Consumes LoadTimesheet output
*/
package payroll

import "context"

// Store persists ingestion records and timesheet rows.
type Store interface {
	// WithTx runs fn with exclusive write access. If fn returns an error,
	// nothing it wrote is kept.
	WithTx(ctx context.Context, fn func(tx IngestTx) error) error

	// LoadTimesheet returns every stored row in insertion order.
	LoadTimesheet(ctx context.Context) ([]TimesheetRow, error)

	// ListIngestions returns all accepted ingestion records, oldest first.
	ListIngestions(ctx context.Context) ([]IngestionRecord, error)

	// GetIngestion returns the record whose identifier equals identifier
	// exactly, or ErrIngestionNotFound.
	GetIngestion(ctx context.Context, identifier string) (*IngestionRecord, error)

	// Reset deletes all rows and records.
	Reset(ctx context.Context) error
}

// IngestTx is the write side of a Store, valid only inside WithTx.
type IngestTx interface {
	// Identifiers returns every accepted identifier.
	Identifiers(ctx context.Context) ([]string, error)

	// RecordIngestion stores the record. An identifier that already exists
	// exactly yields ErrDuplicateIngestion.
	RecordIngestion(ctx context.Context, rec IngestionRecord) error

	// AppendRows bulk inserts rows.
	AppendRows(ctx context.Context, rows []TimesheetRow) error
}
