package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// CSV DECODING
// =============================================================================

// csvColumns is the number of fields every timesheet line must carry.
const csvColumns = 4

// dateLayout reads DD/MM/YYYY with or without leading zeros.
const dateLayout = "2/1/2006"

// csvRow is one undecoded timesheet line. Columns are positional; the header
// names are never consulted.
type csvRow struct {
	Date        string `csv:"date"`
	HoursWorked string `csv:"hours worked"`
	EmployeeID  string `csv:"employee id"`
	JobGroup    string `csv:"job group"`
}

// ParseTimesheet decodes a timesheet upload. The first line is dropped
// unconditionally as the header, whatever it contains: its field count and
// quoting are never checked.
func ParseTimesheet(r io.Reader) ([]payroll.TimesheetRow, error) {
	body := bufio.NewReader(r)
	if _, err := body.ReadString('\n'); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	reader := csv.NewReader(body)
	reader.FieldsPerRecord = csvColumns
	reader.TrimLeadingSpace = true

	var raw []csvRow
	if err := gocsv.UnmarshalCSVWithoutHeaders(reader, &raw); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			// The reader starts after the header line.
			return nil, &payroll.MalformedRowError{Line: parseErr.Line + 1, Field: "record", Err: parseErr.Err}
		}
		return nil, err
	}

	rows := make([]payroll.TimesheetRow, 0, len(raw))
	for i, r := range raw {
		row, err := r.toTimesheetRow(i + 2)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// toTimesheetRow converts the line numbered line (1-based, header included).
func (r csvRow) toTimesheetRow(line int) (payroll.TimesheetRow, error) {
	date, err := time.Parse(dateLayout, strings.TrimSpace(r.Date))
	if err != nil {
		return payroll.TimesheetRow{}, &payroll.MalformedRowError{Line: line, Field: "date", Value: r.Date, Err: err}
	}

	hours, err := decimal.NewFromString(strings.TrimSpace(r.HoursWorked))
	if err != nil {
		return payroll.TimesheetRow{}, &payroll.MalformedRowError{Line: line, Field: "hours worked", Value: r.HoursWorked, Err: err}
	}
	if hours.IsNegative() {
		return payroll.TimesheetRow{}, &payroll.MalformedRowError{Line: line, Field: "hours worked", Value: r.HoursWorked}
	}

	employeeID, err := strconv.ParseInt(strings.TrimSpace(r.EmployeeID), 10, 64)
	if err != nil {
		return payroll.TimesheetRow{}, &payroll.MalformedRowError{Line: line, Field: "employee id", Value: r.EmployeeID, Err: err}
	}

	return payroll.TimesheetRow{
		DateLogged:  date,
		HoursWorked: hours,
		EmployeeID:  employeeID,
		JobGroup:    payroll.JobGroup(strings.TrimSpace(r.JobGroup)),
	}, nil
}
