package payroll

// =============================================================================
// AGGREGATE - Rows to reports
// =============================================================================

// Aggregate builds one report per run of rows. The input slice is left
// untouched; a sorted copy is grouped. Empty input is an error, not an
// empty report list.
func Aggregate(rows []TimesheetRow, calc *PayCalculator) ([]PayrollReport, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyReportSource
	}

	sorted := make([]TimesheetRow, len(rows))
	copy(sorted, rows)
	SortRows(sorted)

	var reports []PayrollReport
	grouper := NewGrouper(sorted)
	for {
		run, ok := grouper.Next()
		if !ok {
			break
		}
		first := run[0]
		reports = append(reports, PayrollReport{
			EmployeeID: first.EmployeeID,
			PayPeriod:  PeriodFor(first.DateLogged),
			AmountPaid: calc.Compute(run),
		})
	}
	return reports, nil
}
