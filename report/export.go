package report

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/warp/payroll-engine/payroll"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "Payroll"

// exportRow is the flat shape shared by the CSV and XLSX exports.
type exportRow struct {
	EmployeeID int64  `csv:"employee_id"`
	StartDate  string `csv:"start_date"`
	EndDate    string `csv:"end_date"`
	AmountPaid string `csv:"amount_paid"`
}

var exportHeader = []string{"Employee ID", "Start Date", "End Date", "Amount Paid"}

func toExportRows(reports []payroll.PayrollReport) []*exportRow {
	rows := make([]*exportRow, len(reports))
	for i, r := range reports {
		rows[i] = &exportRow{
			EmployeeID: r.EmployeeID,
			StartDate:  r.PayPeriod.StartDate(),
			EndDate:    r.PayPeriod.EndDate(),
			AmountPaid: r.AmountPaid,
		}
	}
	return rows
}

// WriteCSV renders reports as CSV with a header line.
func WriteCSV(w io.Writer, reports []payroll.PayrollReport) error {
	if err := gocsv.Marshal(toExportRows(reports), w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// WriteXLSX renders reports as a single-sheet workbook.
func WriteXLSX(w io.Writer, reports []payroll.PayrollReport) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
	}
	if err := f.SetCellStyle(SheetName, "A1", "D1", headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}
	if err := f.SetColWidth(SheetName, "A", "D", 16); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	for i, r := range toExportRows(reports) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{r.EmployeeID, r.StartDate, r.EndDate, r.AmountPaid}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}
