/*
Package sqlite provides a SQLite-backed implementation of payroll.Store.

PURPOSE:
  Persists ingestion records and timesheet rows in an embedded database.
  store/postgres implements the same contract for PostgreSQL; the schema
  differs only in column types.

APPEND-ONLY ENFORCEMENT:
  - Rows are inserted only inside WithTx, together with their ingestion
  - No UPDATE statements exist
  - DELETE only in Reset (demo scenarios)

KEY TABLES:
  ingestions: One row per accepted upload (identifier is UNIQUE)
  timesheet:  Logged shifts, id gives insertion order

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for the
  whole duplicate-check-then-insert sequence.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging) so readers don't
  block the writer. ":memory:" databases are pinned to one connection,
  since every new connection would open a fresh empty database.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - payroll/store.go: Interface definitions
  - store/postgres: PostgreSQL implementation
  - payroll/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

const dateLayout = "2006-01-02"

// Store implements payroll.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ payroll.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Accepted uploads
	CREATE TABLE IF NOT EXISTS ingestions (
		id TEXT PRIMARY KEY,
		identifier TEXT NOT NULL UNIQUE,
		row_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- Timesheet rows (append-only)
	CREATE TABLE IF NOT EXISTS timesheet (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ingestion_id TEXT NOT NULL REFERENCES ingestions(id),
		date_logged TEXT NOT NULL,
		hours_worked TEXT NOT NULL,
		employee_id INTEGER NOT NULL,
		job_group TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_timesheet_ingestion
		ON timesheet(ingestion_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL WRITES (payroll.IngestTx)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx payroll.IngestTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) Identifiers(ctx context.Context) ([]string, error) {
	rows, err := ts.tx.QueryContext(ctx, "SELECT identifier FROM ingestions ORDER BY rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query identifiers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan identifier: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (ts *txStore) RecordIngestion(ctx context.Context, rec payroll.IngestionRecord) error {
	_, err := ts.tx.ExecContext(ctx,
		"INSERT INTO ingestions (id, identifier, row_count, created_at) VALUES (?, ?, ?, ?)",
		rec.ID,
		rec.Identifier,
		rec.RowCount,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return payroll.ErrDuplicateIngestion
		}
		return fmt.Errorf("failed to record ingestion: %w", err)
	}
	return nil
}

func (ts *txStore) AppendRows(ctx context.Context, rows []payroll.TimesheetRow) error {
	if len(rows) == 0 {
		return nil
	}

	stmt, err := ts.tx.PrepareContext(ctx, `
		INSERT INTO timesheet (ingestion_id, date_logged, hours_worked, employee_id, job_group)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			r.IngestionID,
			r.DateLogged.Format(dateLayout),
			r.HoursWorked.String(),
			r.EmployeeID,
			string(r.JobGroup),
		)
		if err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	}
	return nil
}

// =============================================================================
// READS
// =============================================================================

// LoadTimesheet returns every row in insertion order.
func (s *Store) LoadTimesheet(ctx context.Context) ([]payroll.TimesheetRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT ingestion_id, date_logged, hours_worked, employee_id, job_group
		FROM timesheet
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query timesheet: %w", err)
	}
	defer rows.Close()

	var result []payroll.TimesheetRow
	for rows.Next() {
		var (
			r          payroll.TimesheetRow
			dateLogged string
			hours      string
			jobGroup   string
		)
		if err := rows.Scan(&r.IngestionID, &dateLogged, &hours, &r.EmployeeID, &jobGroup); err != nil {
			return nil, fmt.Errorf("failed to scan timesheet row: %w", err)
		}
		if r.DateLogged, err = time.Parse(dateLayout, dateLogged); err != nil {
			return nil, fmt.Errorf("invalid date_logged %q: %w", dateLogged, err)
		}
		if r.HoursWorked, err = decimal.NewFromString(hours); err != nil {
			return nil, fmt.Errorf("invalid hours_worked %q: %w", hours, err)
		}
		r.JobGroup = payroll.JobGroup(jobGroup)
		result = append(result, r)
	}

	return result, rows.Err()
}

// ListIngestions returns all ingestion records, oldest first.
func (s *Store) ListIngestions(ctx context.Context) ([]payroll.IngestionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, identifier, row_count, created_at
		FROM ingestions
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingestions: %w", err)
	}
	defer rows.Close()

	var records []payroll.IngestionRecord
	for rows.Next() {
		rec, err := scanIngestion(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetIngestion looks up an ingestion by exact identifier.
func (s *Store) GetIngestion(ctx context.Context, identifier string) (*payroll.IngestionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, identifier, row_count, created_at
		FROM ingestions
		WHERE identifier = ?
	`, identifier)

	rec, err := scanIngestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payroll.ErrIngestionNotFound
		}
		return nil, err
	}
	return &rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIngestion(row scanner) (payroll.IngestionRecord, error) {
	var (
		rec       payroll.IngestionRecord
		createdAt string
	)
	if err := row.Scan(&rec.ID, &rec.Identifier, &rec.RowCount, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("failed to scan ingestion: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return rec, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"timesheet", "ingestions"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
