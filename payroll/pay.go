package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RATE TABLE
// =============================================================================

// RateTable maps job groups to hourly rates. Groups missing from Rates are
// paid Default.
type RateTable struct {
	Rates   map[JobGroup]decimal.Decimal
	Default decimal.Decimal
}

// DefaultRates pays group A 20 per hour and every other group 30.
func DefaultRates() RateTable {
	return RateTable{
		Rates:   map[JobGroup]decimal.Decimal{JobGroupA: decimal.NewFromInt(20)},
		Default: decimal.NewFromInt(30),
	}
}

// RateFor returns the hourly rate for a job group.
func (rt RateTable) RateFor(group JobGroup) decimal.Decimal {
	if rate, ok := rt.Rates[group]; ok {
		return rate
	}
	return rt.Default
}

// =============================================================================
// AMOUNT FORMAT
// =============================================================================

// AmountFormat selects how a pay sum is rendered.
type AmountFormat string

const (
	// FormatLegacy appends ".00" to the shortest decimal form of the sum,
	// so 67.5 renders as "$67.5.00". Existing API clients compare these
	// strings verbatim.
	FormatLegacy AmountFormat = "legacy"

	// FormatFixed rounds to two decimal places: 67.5 renders as "$67.50".
	FormatFixed AmountFormat = "fixed"
)

// ParseAmountFormat accepts "legacy", "fixed" or "" (legacy).
func ParseAmountFormat(s string) (AmountFormat, error) {
	switch AmountFormat(s) {
	case "", FormatLegacy:
		return FormatLegacy, nil
	case FormatFixed:
		return FormatFixed, nil
	default:
		return "", fmt.Errorf("unknown amount format %q", s)
	}
}

// Format renders a sum in this format.
func (f AmountFormat) Format(sum decimal.Decimal) string {
	if f == FormatFixed {
		return "$" + sum.StringFixed(2)
	}
	return "$" + sum.String() + ".00"
}

// =============================================================================
// PAY CALCULATOR
// =============================================================================

// PayCalculator prices a run of timesheet rows.
type PayCalculator struct {
	Rates  RateTable
	Format AmountFormat
}

// NewPayCalculator returns a calculator with the default rates and the
// legacy amount format.
func NewPayCalculator() *PayCalculator {
	return &PayCalculator{Rates: DefaultRates(), Format: FormatLegacy}
}

// Sum adds hours times rate over the rows, in order.
func (c *PayCalculator) Sum(rows []TimesheetRow) decimal.Decimal {
	sum := decimal.Zero
	for _, row := range rows {
		sum = sum.Add(row.HoursWorked.Mul(c.Rates.RateFor(row.JobGroup)))
	}
	return sum
}

// Compute returns the formatted amount paid for the rows.
func (c *PayCalculator) Compute(rows []TimesheetRow) string {
	return c.Format.Format(c.Sum(rows))
}
