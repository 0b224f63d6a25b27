package main

import (
	"errors"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/assessor-cli/internal/pipeline"
)

var (
	analyzeInputs  inputFlags
	analyzeFormat  string
	analyzeAdvisor string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Reconcile monthly spreadsheets and print the revenue report",
	Long: "Loads one spreadsheet per period, validates and merges them, then prints the advisor ranking, " +
		"client counts, duplicate and multi-advisor reports and demographics for the selected periods.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		a, loadErrs, err := loadAnalysis(cmd.Context(), cfg, &analyzeInputs, time.Now())
		if err != nil && !errors.Is(err, pipeline.ErrEmptyInput) {
			return err
		}
		if errors.Is(err, pipeline.ErrEmptyInput) {
			if analyzeFormat == "json" {
				_ = writeJSON(os.Stderr, newIssues(a, loadErrs))
			} else {
				formatIssues(os.Stderr, newIssues(a, loadErrs))
			}
			return err
		}

		sel := analyzeInputs.selection()
		var advisorKey string
		if analyzeAdvisor != "" {
			advisorKey, err = resolveAdvisor(a, analyzeAdvisor)
			if err != nil {
				return err
			}
		}

		r := buildReport(a, loadErrs, sel, advisorKey)
		switch analyzeFormat {
		case "json":
			return writeJSON(os.Stdout, r)
		case "table":
			formatReport(os.Stdout, r)
			return nil
		default:
			return eris.Errorf("unknown --format %q (want json or table)", analyzeFormat)
		}
	},
}

func init() {
	analyzeInputs.register(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "table", "output format: table or json")
	analyzeCmd.Flags().StringVar(&analyzeAdvisor, "advisor", "", "advisor code or name for the client and category drill-down")
	rootCmd.AddCommand(analyzeCmd)
}
