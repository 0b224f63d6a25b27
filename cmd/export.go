package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/assessor-cli/internal/export"
	"github.com/sells-group/assessor-cli/internal/model"
	"github.com/sells-group/assessor-cli/internal/pipeline"
)

var (
	exportInputs  inputFlags
	exportTable   string
	exportFormat  string
	exportOut     string
	exportAdvisor string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the advisor or client table to .xlsx or .csv",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		format := exportFormat
		if format == "" {
			format = cfg.Export.Format
		}
		f, err := export.ParseFormat(format)
		if err != nil {
			return err
		}
		dir := exportOut
		if dir == "" {
			dir = cfg.Export.Dir
		}

		a, _, err := loadAnalysis(cmd.Context(), cfg, &exportInputs, time.Now())
		if err != nil {
			return err
		}
		sel := exportInputs.selection()
		labels := selectedLabels(a, sel)

		var path string
		switch exportTable {
		case "advisors":
			rows := a.Ranking(sel)
			path, err = export.SaveFile(dir, export.AdvisorsFileName(labels, f), func(w io.Writer) error {
				return export.WriteAdvisors(w, f, rows, a.Schema.Categories)
			})
		case "clients":
			if exportAdvisor == "" {
				return eris.New("--advisor is required for --table clients")
			}
			key, rerr := resolveAdvisor(a, exportAdvisor)
			if rerr != nil {
				return rerr
			}
			rows := a.Clients(key, sel)
			name := advisorName(a, key)
			revenueColumn := a.Schema.Categories[model.GrandTotal].Column
			path, err = export.SaveFile(dir, export.ClientsFileName(name, labels, f), func(w io.Writer) error {
				return export.WriteClients(w, f, rows, revenueColumn)
			})
		default:
			return eris.Errorf("unknown --table %q (want advisors or clients)", exportTable)
		}
		if err != nil {
			return err
		}

		zap.L().Info("export complete", zap.String("table", exportTable), zap.String("path", path))
		_, _ = fmt.Fprintln(os.Stdout, path)
		return nil
	},
}

// selectedLabels returns the analysis periods covered by sel, in period
// order. An empty selection covers every period.
func selectedLabels(a *pipeline.Analysis, sel model.Selection) []string {
	out := make([]string, 0, len(a.Periods))
	for _, p := range a.Periods {
		if sel.Includes(p) {
			out = append(out, p)
		}
	}
	return out
}

// advisorName returns the display name recorded for key.
func advisorName(a *pipeline.Analysis, key string) string {
	for i := 0; i < a.Records.Len(); i++ {
		if r := a.Records.At(i); r.AdvisorKey == key {
			return r.AdvisorName
		}
	}
	return key
}

func init() {
	exportInputs.register(exportCmd)
	exportCmd.Flags().StringVar(&exportTable, "table", "advisors", "table to export: advisors or clients")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "file format: xlsx or csv (default from config)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output directory (default from config)")
	exportCmd.Flags().StringVar(&exportAdvisor, "advisor", "", "advisor code or name (required for --table clients)")
	rootCmd.AddCommand(exportCmd)
}
