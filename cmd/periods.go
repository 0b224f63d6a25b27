package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var periodsFormat string

var periodsCmd = &cobra.Command{
	Use:   "periods",
	Short: "Print the default reporting window",
	Long:  "Prints the last periods.count months before the reference date, skipping the months in periods.exclude.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}
		window, err := defaultWindow(cfg, time.Now())
		if err != nil {
			return err
		}

		if periodsFormat == "json" {
			return writeJSON(os.Stdout, window.Periods())
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "PERIOD\tMONTH")
		for _, p := range window.Periods() {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", p.Label, p.Month.Format("2006-01"))
		}
		return w.Flush()
	},
}

func init() {
	periodsCmd.Flags().StringVar(&periodsFormat, "format", "table", "output format: table or json")
	rootCmd.AddCommand(periodsCmd)
}
