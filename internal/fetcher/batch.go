// Package fetcher reads monthly revenue spreadsheets (.xlsx and .csv) from
// disk or memory and turns them into header-plus-rows batches.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/assessor-cli/internal/model"
)

// Supported file extensions.
const (
	ExtXLSX = ".xlsx"
	ExtCSV  = ".csv"
)

// Source names one spreadsheet and the period it covers. When Data is set
// the file is read from memory and Name only supplies the extension.
type Source struct {
	Period model.Period
	Name   string
	Path   string
	Data   []byte
}

// name returns the display name used in batches and errors.
func (s Source) name() string {
	if s.Name != "" {
		return s.Name
	}
	return filepath.Base(s.Path)
}

// LoadError reports a file that could not be read. Other files in the same
// load are unaffected.
type LoadError struct {
	Period string `json:"period"`
	Source string `json:"source"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load: batch %q (%s): %v", e.Period, e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsLoadError returns true if err (or any error in its chain) is a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// Options configures batch loading.
type Options struct {
	XLSX        XLSXOptions
	CSV         CSVOptions
	Concurrency int // default 4
}

// ReadBatch parses a single source into a batch.
func ReadBatch(src Source, opts Options) (model.Batch, error) {
	var (
		rows    [][]string
		numbers model.NumberFormat
		err     error
	)

	ext := strings.ToLower(filepath.Ext(src.name()))
	switch ext {
	case ExtXLSX:
		numbers = model.NumberPlain
		if src.Data != nil {
			rows, err = ReadXLSXBytes(src.Data, opts.XLSX)
		} else {
			rows, err = ReadXLSX(src.Path, opts.XLSX)
		}
	case ExtCSV:
		if src.Data != nil {
			rows, numbers, err = readCSVBatch(bytes.NewReader(src.Data), opts.CSV)
		} else {
			var f *os.File
			f, err = os.Open(src.Path)
			if err != nil {
				return model.Batch{}, eris.Wrapf(err, "fetcher: open %s", src.Path)
			}
			defer f.Close() //nolint:errcheck
			rows, numbers, err = readCSVBatch(f, opts.CSV)
		}
	default:
		return model.Batch{}, eris.Errorf("fetcher: unsupported file type %q", ext)
	}
	if err != nil {
		return model.Batch{}, eris.Wrapf(err, "fetcher: read %s", src.name())
	}

	return model.Batch{
		Period:  src.Period,
		Source:  src.name(),
		Columns: rows[0],
		Rows:    rows[1:],
		Numbers: numbers,
	}, nil
}

// readCSVBatch reads a CSV source. ';'-delimited files come from pt-BR
// locales, where '.' groups thousands.
func readCSVBatch(r io.Reader, opts CSVOptions) ([][]string, model.NumberFormat, error) {
	rows, delim, err := readCSV(r, opts)
	if err != nil {
		return nil, model.NumberAuto, err
	}
	if delim == ';' {
		return rows, model.NumberBR, nil
	}
	return rows, model.NumberAuto, nil
}

// LoadBatches reads every source concurrently. The returned batches keep
// the order of sources; failed files are reported as LoadErrors and skipped.
// The error return is reserved for context cancellation.
func LoadBatches(ctx context.Context, sources []Source, opts Options) ([]model.Batch, []*LoadError, error) {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = 4
	}

	batches := make([]*model.Batch, len(sources))
	failures := make([]*LoadError, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return eris.Wrap(err, "fetcher: load cancelled")
			}

			b, err := ReadBatch(src, opts)
			if err != nil {
				failures[i] = &LoadError{
					Period: src.Period.Label,
					Source: src.name(),
					Reason: err.Error(),
					Err:    err,
				}
				zap.L().Warn("fetcher: batch unreadable",
					zap.String("period", src.Period.Label),
					zap.String("source", src.name()),
					zap.Error(err),
				)
				return nil
			}

			zap.L().Debug("fetcher: batch loaded",
				zap.String("period", src.Period.Label),
				zap.String("source", src.name()),
				zap.String("size", sourceSize(src)),
				zap.Int("rows", len(b.Rows)),
			)
			batches[i] = &b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	out := make([]model.Batch, 0, len(sources))
	errs := make([]*LoadError, 0)
	for i := range sources {
		if failures[i] != nil {
			errs = append(errs, failures[i])
			continue
		}
		out = append(out, *batches[i])
	}
	return out, errs, nil
}

func sourceSize(src Source) string {
	if src.Data != nil {
		return humanize.Bytes(uint64(len(src.Data)))
	}
	info, err := os.Stat(src.Path)
	if err != nil {
		return "unknown"
	}
	return humanize.Bytes(uint64(info.Size()))
}

// DiscoverSources lists the .xlsx and .csv files in dir whose base name is a
// period label ("October 2024.xlsx", "2024-10.csv"). Month names become the
// canonical "Month YYYY" label. When want is non-empty only its periods are
// returned. Sources come back in period order.
func DiscoverSources(dir string, want *model.PeriodSet) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read dir %s", dir)
	}

	var (
		sources []Source
		periods []model.Period
	)
	seen := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ExtXLSX && ext != ExtCSV {
			continue
		}

		p := model.ParsePeriod(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		if p.IsMonth() {
			p = model.MonthPeriod(p.Month.Year(), p.Month.Month())
		}
		if want != nil && want.Len() > 0 && !want.Contains(p.Label) {
			continue
		}
		if prev, ok := seen[p.Label]; ok {
			zap.L().Warn("fetcher: duplicate period file ignored",
				zap.String("period", p.Label),
				zap.String("kept", prev),
				zap.String("ignored", e.Name()),
			)
			continue
		}
		seen[p.Label] = e.Name()

		sources = append(sources, Source{
			Period: p,
			Name:   e.Name(),
			Path:   filepath.Join(dir, e.Name()),
		})
		periods = append(periods, p)
	}

	order := model.NewPeriodSet(periods...).Labels()
	rank := make(map[string]int, len(order))
	for i, l := range order {
		rank[l] = i
	}
	sort.SliceStable(sources, func(i, j int) bool {
		return rank[sources[i].Period.Label] < rank[sources[j].Period.Label]
	})
	return sources, nil
}
