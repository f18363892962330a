package payroll

import "sort"

// =============================================================================
// ROW GROUPER - Run-length grouping of sorted rows
// =============================================================================

// SortRows orders rows by year, month and employee. The sort is stable, so
// rows that share those keys keep their input order regardless of day.
func SortRows(rows []TimesheetRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.DateLogged.Year() != b.DateLogged.Year() {
			return a.DateLogged.Year() < b.DateLogged.Year()
		}
		if a.DateLogged.Month() != b.DateLogged.Month() {
			return a.DateLogged.Month() < b.DateLogged.Month()
		}
		return a.EmployeeID < b.EmployeeID
	})
}

// Grouper splits a SortRows-ordered slice into runs that share year, month,
// employee and pay period half. Each row is compared with the row right
// before it, never with the first row of its run.
type Grouper struct {
	rows []TimesheetRow
	pos  int
}

// NewGrouper returns a grouper over rows. The slice is not copied.
func NewGrouper(rows []TimesheetRow) *Grouper {
	return &Grouper{rows: rows}
}

// Next returns the next run. It returns false once the input is exhausted,
// and immediately for empty input.
func (g *Grouper) Next() ([]TimesheetRow, bool) {
	if g.pos >= len(g.rows) {
		return nil, false
	}

	start := g.pos
	g.pos++
	for g.pos < len(g.rows) && samePayRun(g.rows[g.pos-1], g.rows[g.pos]) {
		g.pos++
	}
	return g.rows[start:g.pos], true
}

// samePayRun is the adjacency test between two consecutive rows.
func samePayRun(prev, cur TimesheetRow) bool {
	return prev.DateLogged.Year() == cur.DateLogged.Year() &&
		prev.DateLogged.Month() == cur.DateLogged.Month() &&
		prev.EmployeeID == cur.EmployeeID &&
		IsSecondHalf(prev.DateLogged.Day()) == IsSecondHalf(cur.DateLogged.Day())
}
