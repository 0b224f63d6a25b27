package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/assessor-cli/internal/registry"
)

var directoryFormat string

var directoryCmd = &cobra.Command{
	Use:   "directory",
	Short: "Print the active advisor roster",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, err := registry.LoadAdvisorDirectory(cfg.Directory.Path, cfg.Directory.UnknownLabel)
		if err != nil {
			return err
		}

		if directoryFormat == "json" {
			return writeJSON(os.Stdout, map[string]any{
				"version":       dir.Version(),
				"unknown_label": dir.UnknownLabel(),
				"advisors":      dir.Advisors(),
			})
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "Version: %s (%d advisors)\n", dir.Version(), dir.Len())
		_, _ = fmt.Fprintln(w, "CODE\tNAME")
		_, _ = fmt.Fprintln(w, "----\t----")
		for _, a := range dir.Advisors() {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", a.Code, a.Name)
		}
		return w.Flush()
	},
}

func init() {
	directoryCmd.Flags().StringVar(&directoryFormat, "format", "table", "output format: table or json")
	rootCmd.AddCommand(directoryCmd)
}
