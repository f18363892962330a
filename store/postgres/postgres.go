/*
Package postgres provides a PostgreSQL-backed implementation of payroll.Store.

PURPOSE:
  Same contract as store/sqlite, for deployments that share one database
  between several server processes.

CONCURRENCY:
  There is no in-process lock. WithTx takes a SHARE ROW EXCLUSIVE lock on
  the ingestions table, which serializes writers across processes while
  readers keep going. The UNIQUE index on identifier backs it up.

SEE ALSO:
  - payroll/store.go: Interface definitions
  - store/sqlite: Embedded implementation
*/
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/payroll"
)

// insertChunk bounds the rows per INSERT statement (5 params each).
const insertChunk = 500

const uniqueViolation = "23505"

// Open connects to PostgreSQL and verifies the connection.
func Open(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Store implements payroll.Store on a *sql.DB.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ payroll.Store = (*Store)(nil)

// New wraps db. Call Migrate before first use.
func New(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS ingestions (
		id UUID PRIMARY KEY,
		identifier TEXT NOT NULL,
		row_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_ingestions_identifier ON ingestions(identifier);

	CREATE TABLE IF NOT EXISTS timesheet (
		id BIGSERIAL PRIMARY KEY,
		ingestion_id UUID NOT NULL REFERENCES ingestions(id),
		date_logged DATE NOT NULL,
		hours_worked NUMERIC NOT NULL,
		employee_id BIGINT NOT NULL,
		job_group TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_timesheet_ingestion ON timesheet(ingestion_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL WRITES
// =============================================================================

// WithTx runs fn inside a transaction holding the ingestion write lock.
func (s *Store) WithTx(ctx context.Context, fn func(tx payroll.IngestTx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, "LOCK TABLE ingestions IN SHARE ROW EXCLUSIVE MODE"); err != nil {
		return fmt.Errorf("failed to lock ingestions: %w", err)
	}

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) Identifiers(ctx context.Context) ([]string, error) {
	rows, err := ts.tx.QueryContext(ctx, "SELECT identifier FROM ingestions ORDER BY created_at, identifier")
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
		"INSERT INTO ingestions (id, identifier, row_count, created_at) VALUES ($1, $2, $3, $4)",
		rec.ID, rec.Identifier, rec.RowCount, rec.CreatedAt.UTC(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return payroll.ErrDuplicateIngestion
		}
		return fmt.Errorf("failed to record ingestion: %w", err)
	}
	return nil
}

func (ts *txStore) AppendRows(ctx context.Context, rows []payroll.TimesheetRow) error {
	for start := 0; start < len(rows); start += insertChunk {
		end := start + insertChunk
		if end > len(rows) {
			end = len(rows)
		}
		query, args := buildInsert(rows[start:end])
		if _, err := ts.tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to append rows: %w", err)
		}
	}
	return nil
}

func buildInsert(rows []payroll.TimesheetRow) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO timesheet (ingestion_id, date_logged, hours_worked, employee_id, job_group) VALUES ")

	args := make([]any, 0, len(rows)*5)
	for i, r := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		n := i * 5
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5)
		args = append(args,
			r.IngestionID,
			r.DateLogged.Format("2006-01-02"),
			r.HoursWorked.String(),
			r.EmployeeID,
			string(r.JobGroup),
		)
	}
	return b.String(), args
}

// =============================================================================
// READS
// =============================================================================

// LoadTimesheet returns every row in insertion order.
func (s *Store) LoadTimesheet(ctx context.Context) ([]payroll.TimesheetRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ingestion_id::text, date_logged::text, hours_worked::text, employee_id, job_group
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
			r                        payroll.TimesheetRow
			dateLogged, hours, group string
		)
		if err := rows.Scan(&r.IngestionID, &dateLogged, &hours, &r.EmployeeID, &group); err != nil {
			return nil, fmt.Errorf("failed to scan timesheet row: %w", err)
		}
		if r.DateLogged, err = parseDate(dateLogged); err != nil {
			return nil, err
		}
		if r.HoursWorked, err = decimal.NewFromString(hours); err != nil {
			return nil, fmt.Errorf("invalid hours_worked %q: %w", hours, err)
		}
		r.JobGroup = payroll.JobGroup(group)
		result = append(result, r)
	}

	s.logger.Debug("loaded timesheet", zap.Int("rows", len(result)))
	return result, rows.Err()
}

// ListIngestions returns all ingestion records, oldest first.
func (s *Store) ListIngestions(ctx context.Context) ([]payroll.IngestionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id::text, identifier, row_count, created_at
		FROM ingestions
		ORDER BY created_at, identifier
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingestions: %w", err)
	}
	defer rows.Close()

	var records []payroll.IngestionRecord
	for rows.Next() {
		var rec payroll.IngestionRecord
		if err := rows.Scan(&rec.ID, &rec.Identifier, &rec.RowCount, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ingestion: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetIngestion looks up an ingestion by exact identifier.
func (s *Store) GetIngestion(ctx context.Context, identifier string) (*payroll.IngestionRecord, error) {
	var rec payroll.IngestionRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id::text, identifier, row_count, created_at
		FROM ingestions
		WHERE identifier = $1
	`, identifier).Scan(&rec.ID, &rec.Identifier, &rec.RowCount, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, payroll.ErrIngestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ingestion: %w", err)
	}
	return &rec, nil
}

// Reset clears all data.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "TRUNCATE timesheet, ingestions"); err != nil {
		return fmt.Errorf("failed to reset: %w", err)
	}
	s.logger.Info("payroll data reset")
	return nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date_logged %q: %w", s, err)
	}
	return t, nil
}
