package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/client"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file.csv>...",
	Short: "Upload one or more timesheet CSV files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		for _, path := range args {
			if err := c.Upload(cmd.Context(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s\n", path)
		}
		return nil
	},
}

var reportFormat string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the payroll report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reports, err := newClient().Report(cmd.Context())
		if err != nil {
			return err
		}
		return printReports(cmd.OutOrStdout(), reportFormat, reports)
	},
}

var ingestionsCmd = &cobra.Command{
	Use:   "ingestions",
	Short: "List accepted uploads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := newClient().Ingestions(cmd.Context())
		if err != nil {
			return err
		}
		printIngestions(cmd.OutOrStdout(), records)
		return nil
	},
}

var exportOutput string

var exportCmd = &cobra.Command{
	Use:       "export <csv|xlsx>",
	Short:     "Download the report as CSV or XLSX",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{client.FormatCSV, client.FormatXLSX},
	RunE: func(cmd *cobra.Command, args []string) error {
		format := args[0]
		data, err := newClient().Export(cmd.Context(), format)
		if err != nil {
			return err
		}

		out := exportOutput
		if out == "" {
			out = "payroll." + format
		}
		if out == "-" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", out, len(data))
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "table", "Output format: table or json")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", `Output file ("-" for stdout, default payroll.<format>)`)
}

func printReports(w io.Writer, format string, reports []api.EmployeeReportDTO) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(api.PayrollResponse{PayrollReport: api.PayrollReportDTO{EmployeeReports: reports}})
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "EMPLOYEE\tSTART\tEND\tAMOUNT")
		for _, r := range reports {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.EmployeeID, r.PayPeriod.StartDate, r.PayPeriod.EndDate, r.AmountPaid)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q (want table or json)", format)
	}
}

func printIngestions(w io.Writer, records []api.IngestionDTO) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "IDENTIFIER\tROWS\tCREATED\tID")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.Identifier, r.RowCount, r.CreatedAt.Format("2006-01-02 15:04:05"), r.ID)
	}
	tw.Flush()
}
