// Package export serializes advisor and client revenue tables to .xlsx and
// .csv files.
package export

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/assessor-cli/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatXLSX, FormatCSV:
		return f, nil
	default:
		return "", eris.Errorf("export: unknown format %q (want xlsx or csv)", s)
	}
}

// Sheet names used in workbook exports.
const (
	AdvisorSheet = "Receita por Assessor"
	ClientSheet  = "Clientes"
)

// Column labels that are not category columns.
const (
	colAdvisorCode = "Código"
	colAdvisorName = "Assessor"
	colClient      = "Cliente"
)

// table is the format-neutral shape every export is rendered from: leading
// text columns followed by decimal amount columns.
type table struct {
	sheet   string
	header  []string
	text    [][]string
	amounts [][]decimal.Decimal
}

func advisorTable(rows []model.AggregateRow, cats model.Categories) table {
	t := table{
		sheet:  AdvisorSheet,
		header: append([]string{colAdvisorCode, colAdvisorName}, cats.Columns()...),
	}
	for _, r := range rows {
		r := r
		t.text = append(t.text, []string{r.AdvisorKey, r.AdvisorName})
		t.amounts = append(t.amounts, r.Totals[:])
	}
	return t
}

func clientTable(rows []model.ClientRevenue, revenueColumn string) table {
	t := table{
		sheet:  ClientSheet,
		header: []string{colClient, revenueColumn},
	}
	for _, r := range rows {
		t.text = append(t.text, []string{r.ClientKey})
		t.amounts = append(t.amounts, []decimal.Decimal{r.Revenue})
	}
	return t
}

// WriteAdvisors writes the per-advisor category totals in the given format.
func WriteAdvisors(w io.Writer, format Format, rows []model.AggregateRow, cats model.Categories) error {
	switch format {
	case FormatXLSX:
		return writeXLSX(w, advisorTable(rows, cats))
	case FormatCSV:
		return writeAdvisorCSV(w, rows, cats)
	default:
		return eris.Errorf("export: unknown format %q", format)
	}
}

// WriteClients writes one advisor's per-client revenue in the given format.
// revenueColumn labels the amount column.
func WriteClients(w io.Writer, format Format, rows []model.ClientRevenue, revenueColumn string) error {
	switch format {
	case FormatXLSX:
		return writeXLSX(w, clientTable(rows, revenueColumn))
	case FormatCSV:
		return writeClientCSV(w, rows, revenueColumn)
	default:
		return eris.Errorf("export: unknown format %q", format)
	}
}

// AdvisorsFileName returns the deterministic name of an advisor table export,
// e.g. "dados_filtrados_May_2024-June_2024.xlsx".
func AdvisorsFileName(periods []string, format Format) string {
	return "dados_filtrados_" + periodSlug(periods) + "." + string(format)
}

// ClientsFileName returns the deterministic name of a client table export,
// e.g. "clientes_Renato_Parentoni_October_2024.csv".
func ClientsFileName(advisor string, periods []string, format Format) string {
	return "clientes_" + slug(advisor) + "_" + periodSlug(periods) + "." + string(format)
}

func periodSlug(periods []string) string {
	if len(periods) == 0 {
		return "todos"
	}
	parts := make([]string, 0, len(periods))
	for _, p := range periods {
		if s := slug(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "-")
}

// slug keeps letters and digits and collapses everything else to a single
// underscore.
func slug(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

// SaveFile creates dir/name and fills it with write. It returns the path.
func SaveFile(dir, name string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "export: create dir %s", dir)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "export: create file %s", path)
	}

	if err := write(f); err != nil {
		f.Close() //nolint:errcheck
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", eris.Wrapf(err, "export: close file %s", path)
	}

	zap.L().Info("export: file written", zap.String("path", path))
	return path, nil
}
