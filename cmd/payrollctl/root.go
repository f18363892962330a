package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/payroll-engine/client"
)

var (
	serverURL string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "payrollctl",
	Short: "Command-line client for the payroll engine",
	Long: `payrollctl talks to a running payroll server. Set the server with
--server or the PAYROLL_SERVER environment variable.`,
	SilenceUsage: true,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaultServer := os.Getenv("PAYROLL_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:3000"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer, "Payroll server base URL")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests to stderr")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(ingestionsCmd)
	rootCmd.AddCommand(exportCmd)
}

func newClient() *client.Client {
	logger := zap.NewNop()
	if verbose {
		if dev, err := zap.NewDevelopment(); err == nil {
			logger = dev
		}
	}
	return client.New(serverURL, logger)
}
