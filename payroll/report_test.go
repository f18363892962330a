package payroll_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payroll/store"
)

func TestAggregate_EmptyInput(t *testing.T) {
	reports, err := payroll.Aggregate(nil, payroll.NewPayCalculator())

	assert.ErrorIs(t, err, payroll.ErrEmptyReportSource)
	assert.Nil(t, reports)
}

func TestAggregate_UnsortedInput(t *testing.T) {
	// GIVEN: Rows for two employees across two months, out of order
	rows := []payroll.TimesheetRow{
		row(2, 2023, time.November, 14, 7.5, "B"),
		row(1, 2023, time.November, 4, 10, "A"),
		row(1, 2023, time.December, 20, 4, "A"),
		row(2, 2023, time.November, 9, 4, "B"),
		row(1, 2023, time.November, 14, 5, "A"),
	}

	// WHEN: Aggregating
	reports, err := payroll.Aggregate(rows, payroll.NewPayCalculator())
	require.NoError(t, err)

	// THEN: One report per employee and pay period, ordered by month then employee
	require.Len(t, reports, 3)

	assert.Equal(t, int64(1), reports[0].EmployeeID)
	assert.Equal(t, "2023-11-01", reports[0].PayPeriod.StartDate())
	assert.Equal(t, "2023-11-15", reports[0].PayPeriod.EndDate())
	assert.Equal(t, "$300.00", reports[0].AmountPaid)

	assert.Equal(t, int64(2), reports[1].EmployeeID)
	assert.Equal(t, "$345.00", reports[1].AmountPaid)

	assert.Equal(t, int64(1), reports[2].EmployeeID)
	assert.Equal(t, "2023-12-16", reports[2].PayPeriod.StartDate())
	assert.Equal(t, "2023-12-31", reports[2].PayPeriod.EndDate())
	assert.Equal(t, "$80.00", reports[2].AmountPaid)
}

func TestAggregate_DoesNotReorderInput(t *testing.T) {
	rows := []payroll.TimesheetRow{
		row(2, 2023, time.November, 14, 1, "B"),
		row(1, 2023, time.November, 4, 1, "A"),
	}

	_, err := payroll.Aggregate(rows, payroll.NewPayCalculator())
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows[0].EmployeeID)
}

func TestAggregate_RoundTripThroughStore(t *testing.T) {
	// GIVEN: One employee, one pay period, written through a store
	ctx := context.Background()
	mem := store.NewMemory()
	rows := []payroll.TimesheetRow{
		row(7, 2023, time.July, 2, 8, "A"),
		row(7, 2023, time.July, 9, 3.5, "B"),
	}
	err := mem.WithTx(ctx, func(tx payroll.IngestTx) error {
		if err := tx.RecordIngestion(ctx, payroll.IngestionRecord{ID: "ing-1", Identifier: "july"}); err != nil {
			return err
		}
		return tx.AppendRows(ctx, rows)
	})
	require.NoError(t, err)

	// WHEN: Reading back and aggregating
	stored, err := mem.LoadTimesheet(ctx)
	require.NoError(t, err)
	calc := payroll.NewPayCalculator()
	reports, err := payroll.Aggregate(stored, calc)
	require.NoError(t, err)

	// THEN: Exactly one report, priced like the calculator prices the rows
	require.Len(t, reports, 1)
	assert.Equal(t, int64(7), reports[0].EmployeeID)
	assert.Equal(t, payroll.Resolve(2023, time.July, 2), reports[0].PayPeriod)
	assert.Equal(t, calc.Compute(rows), reports[0].AmountPaid)
	assert.Equal(t, "$265.00", reports[0].AmountPaid)
}
