package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/assessor-cli/internal/config"
	"github.com/sells-group/assessor-cli/internal/fetcher"
	"github.com/sells-group/assessor-cli/internal/model"
	"github.com/sells-group/assessor-cli/internal/pipeline"
	"github.com/sells-group/assessor-cli/internal/registry"
)

// inputFlags select the spreadsheets and periods a command works on.
type inputFlags struct {
	batches []string
	dir     string
	all     bool
	periods []string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.batches, "batch", nil, `spreadsheet for one period as "Label=path" (repeatable)`)
	cmd.Flags().StringVar(&f.dir, "dir", "", "directory of period-named spreadsheets (default from config)")
	cmd.Flags().BoolVar(&f.all, "all", false, "with --dir, load every period file instead of the configured window")
	cmd.Flags().StringArrayVar(&f.periods, "period", nil, "restrict reports to this period label (repeatable, default all)")
}

// selection returns the period selection requested with --period.
func (f *inputFlags) selection() model.Selection {
	return model.NewSelection(f.periods...)
}

// parseBatchFlag parses a "Label=path" batch flag.
func parseBatchFlag(s string) (fetcher.Source, error) {
	label, path, ok := strings.Cut(s, "=")
	label = strings.TrimSpace(label)
	path = strings.TrimSpace(path)
	if !ok || label == "" || path == "" {
		return fetcher.Source{}, eris.Errorf("invalid --batch %q (want Label=path)", s)
	}
	return fetcher.Source{Period: model.ParsePeriod(label), Path: path}, nil
}

// defaultWindow returns the configured reporting window: the last
// periods.count months before the reference date, skipping excluded months.
func defaultWindow(c *config.Config, now time.Time) (*model.PeriodSet, error) {
	ref, err := c.ReferenceTime(now)
	if err != nil {
		return nil, err
	}
	exclude, err := model.ParseMonths(c.Periods.Exclude)
	if err != nil {
		return nil, eris.Wrap(err, "periods.exclude")
	}
	return model.LastMonths(ref, c.Periods.Count, exclude), nil
}

// pipelineOptions builds the schema, advisor directory and reference date
// for a run.
func pipelineOptions(c *config.Config, now time.Time) (pipeline.Options, error) {
	dir, err := registry.LoadAdvisorDirectory(c.Directory.Path, c.Directory.UnknownLabel)
	if err != nil {
		return pipeline.Options{}, err
	}
	today, err := c.ReferenceTime(now)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Schema:    pipeline.DefaultSchema().WithLabels(c.Schema.Columns),
		Directory: dir,
		Today:     today,
	}, nil
}

// fetchOptions converts birth-date serials in workbooks declared by schema.
func fetchOptions(c *config.Config, schema pipeline.Schema) fetcher.Options {
	return fetcher.Options{
		XLSX:        fetcher.XLSXOptions{DateColumns: []string{schema.BirthDate}},
		Concurrency: c.Input.Concurrency,
	}
}

// sources resolves the flags into spreadsheet sources. Explicit --batch
// flags win over directory discovery.
func (f *inputFlags) sources(c *config.Config, now time.Time) ([]fetcher.Source, error) {
	if len(f.batches) > 0 {
		out := make([]fetcher.Source, 0, len(f.batches))
		for _, b := range f.batches {
			src, err := parseBatchFlag(b)
			if err != nil {
				return nil, err
			}
			out = append(out, src)
		}
		return out, nil
	}

	dir := f.dir
	if dir == "" {
		dir = c.Input.Dir
	}
	var want *model.PeriodSet
	if !f.all {
		w, err := defaultWindow(c, now)
		if err != nil {
			return nil, err
		}
		want = w
	}

	out, err := fetcher.DiscoverSources(dir, want)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, eris.Errorf("no period spreadsheets found in %s", dir)
	}
	return out, nil
}

// loadAnalysis reads the selected spreadsheets and runs the pipeline. When no
// batch survives it returns the partial analysis with pipeline.ErrEmptyInput.
func loadAnalysis(ctx context.Context, c *config.Config, in *inputFlags, now time.Time) (*pipeline.Analysis, []*fetcher.LoadError, error) {
	opts, err := pipelineOptions(c, now)
	if err != nil {
		return nil, nil, err
	}
	srcs, err := in.sources(c, now)
	if err != nil {
		return nil, nil, err
	}

	batches, loadErrs, err := fetcher.LoadBatches(ctx, srcs, fetchOptions(c, opts.Schema))
	if err != nil {
		return nil, nil, err
	}

	a, err := pipeline.Run(batches, opts)
	return a, loadErrs, err
}

// resolveAdvisor finds an advisor by code or name within an analysis.
func resolveAdvisor(a *pipeline.Analysis, ref string) (string, error) {
	key, err := a.FindAdvisor(ref)
	if errors.Is(err, pipeline.ErrAdvisorNotFound) {
		return "", eris.Errorf("advisor %q not found in the loaded periods", ref)
	}
	if err != nil {
		return "", err
	}
	return key, nil
}
