package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"profilescout/pkg/config"
	"profilescout/pkg/storage"
	"profilescout/pkg/ui"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect result files",
}

var reportValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check the structure of a profile CSV",
	Long: `Check that a profile CSV carries every column and that at least 90% of
its rows have a name and a profile URL.

Without an argument the configured output CSV is checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReportValidate,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportValidateCmd)
}

func runReportValidate(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) > 0 {
		path = args[0]
	} else {
		cfg, err := config.Load(configFile, nil)
		if err != nil {
			ui.PrintError("Failed to load configuration", err.Error())
			return err
		}
		path = cfg.CSVPath()
	}

	ui.PrintInfo("Validating", path)
	f, err := os.Open(path)
	if err != nil {
		ui.PrintError("Failed to open file", err.Error())
		return err
	}
	defer f.Close()

	return printValidation(ui.Out, f)
}

// printValidation validates the CSV in r and writes the findings to w. The returned
// error is non-nil when the file is unusable.
func printValidation(w io.Writer, r io.Reader) error {
	report, err := storage.ValidateCSV(r)
	if err != nil {
		ui.PrintError("Unreadable CSV", err.Error())
		return err
	}
	if !report.Valid() {
		missing := strings.Join(report.MissingColumns, ", ")
		ui.PrintError("Missing columns", missing)
		return fmt.Errorf("missing columns: %s", missing)
	}

	fmt.Fprintf(w, "  Rows: %d\n", report.Rows)
	fmt.Fprintf(w, "  With name: %d\n", report.NamesPresent)
	fmt.Fprintf(w, "  With profile URL: %d\n", report.URLsPresent)
	for _, warning := range report.Warnings {
		ui.PrintWarning(warning)
	}
	if len(report.Warnings) == 0 {
		ui.PrintSuccess("CSV structure is valid")
	}
	return nil
}
