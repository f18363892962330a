/*
Package payroll provides the timesheet aggregation engine.

PURPOSE:
  This package turns stored timesheet rows into payroll reports. It holds
  the domain types, the half-month pay period resolver, the run grouper,
  the pay calculator and the storage contract that ingestion and
  reporting share.

KEY CONCEPTS IN THIS FILE (types.go):
  - TimesheetRow: One logged shift (date, hours, employee, job group)
  - IngestionRecord: One accepted CSV upload
  - PayrollReport: Amount paid to one employee for one pay period

DESIGN PRINCIPLES:
  1. Immutability: Rows are never modified after ingestion
  2. Precision: Hours and pay use decimal.Decimal
  3. Explicit storage: Every operation takes its Store as a parameter

USAGE:
  rows, _ := store.LoadTimesheet(ctx)
  reports, err := payroll.Aggregate(rows, payroll.NewPayCalculator())
  if errors.Is(err, payroll.ErrEmptyReportSource) {
      // nothing ingested yet
  }

SEE ALSO:
  - period.go: Pay period resolution
  - group.go: Run-length grouping of sorted rows
  - pay.go: Rate table and amount formatting
  - report.go: Aggregate, the end-to-end report pipeline
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TIMESHEET
// =============================================================================

// JobGroup classifies an employee and selects their hourly rate.
type JobGroup string

const (
	JobGroupA JobGroup = "A"
	JobGroupB JobGroup = "B"
)

// TimesheetRow is a single line of an ingested timesheet.
type TimesheetRow struct {
	DateLogged  time.Time
	HoursWorked decimal.Decimal
	EmployeeID  int64
	JobGroup    JobGroup

	// IngestionID links the row to the upload that created it.
	IngestionID string
}

// NewDate returns the calendar date as UTC midnight.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// INGESTION
// =============================================================================

// IngestionRecord marks a source file as loaded.
type IngestionRecord struct {
	ID         string
	Identifier string
	RowCount   int
	CreatedAt  time.Time
}

// =============================================================================
// REPORT
// =============================================================================

// PayrollReport is the amount owed to one employee for one pay period.
type PayrollReport struct {
	EmployeeID int64
	PayPeriod  PayPeriod
	AmountPaid string
}
