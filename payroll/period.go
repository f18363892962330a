package payroll

import (
	"fmt"
	"time"
)

// =============================================================================
// PAY PERIOD - Half-month billing window
// =============================================================================

// daysInMonth is indexed by month-1. February is always 28 days: leap years
// are not modelled.
var daysInMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// lastFirstHalfDay is the last day of the first pay period in every month.
const lastFirstHalfDay = 15

// PayPeriod is either days 1-15 or days 16-end of a calendar month.
type PayPeriod struct {
	Year       int
	Month      time.Month
	SecondHalf bool
}

// Resolve returns the pay period containing the given day.
// The month must be in [January, December]; day is not validated.
func Resolve(year int, month time.Month, day int) PayPeriod {
	return PayPeriod{Year: year, Month: month, SecondHalf: IsSecondHalf(day)}
}

// PeriodFor returns the pay period containing the date.
func PeriodFor(date time.Time) PayPeriod {
	return Resolve(date.Year(), date.Month(), date.Day())
}

// IsSecondHalf reports whether the day falls in the 16th-to-end period.
func IsSecondHalf(day int) bool {
	return day > lastFirstHalfDay
}

// LastDayOfMonth returns the month's last day from the fixed table.
func LastDayOfMonth(month time.Month) int {
	return daysInMonth[month-1]
}

// FirstDay returns the first day of month covered by the period.
func (p PayPeriod) FirstDay() int {
	if p.SecondHalf {
		return lastFirstHalfDay + 1
	}
	return 1
}

// LastDay returns the last day of month covered by the period.
func (p PayPeriod) LastDay() int {
	if p.SecondHalf {
		return LastDayOfMonth(p.Month)
	}
	return lastFirstHalfDay
}

// StartDate formats the first day as YYYY-M-DD. The month is not padded.
func (p PayPeriod) StartDate() string {
	return p.format(p.FirstDay())
}

// EndDate formats the last day as YYYY-M-DD. The month is not padded.
func (p PayPeriod) EndDate() string {
	return p.format(p.LastDay())
}

// Contains returns true if the date falls inside [StartDate, EndDate].
func (p PayPeriod) Contains(date time.Time) bool {
	if date.Year() != p.Year || date.Month() != p.Month {
		return false
	}
	return date.Day() >= p.FirstDay() && date.Day() <= p.LastDay()
}

// String returns a string representation of the period.
func (p PayPeriod) String() string {
	return "[" + p.StartDate() + ", " + p.EndDate() + "]"
}

func (p PayPeriod) format(day int) string {
	return fmt.Sprintf("%d-%d-%02d", p.Year, int(p.Month), day)
}
