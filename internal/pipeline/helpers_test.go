package pipeline

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/assessor-cli/internal/model"
)

var testHeader = []string{
	"Assessor", "Cliente",
	"Receita Bovespa", "Receita Futuros", "Receita RF Bancários",
	"Receita RF Privados", "Receita RF Públicos", "Receita no Mês",
	"Sexo", "Data de Nascimento",
}

var testToday = time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

// testRow builds a row whose Bovespa revenue and period revenue both equal total.
func testRow(advisor, client, total string) []string {
	return []string{advisor, client, total, "", "", "", "", total, "", ""}
}

func testBatch(period string, rows ...[]string) model.Batch {
	return model.Batch{
		Period:  model.ParsePeriod(period),
		Source:  period + ".xlsx",
		Columns: testHeader,
		Rows:    rows,
	}
}

func testDirectory() *model.AdvisorDirectory {
	return model.NewAdvisorDirectory("test", "", []model.Advisor{
		{Code: "100", Name: "Ana"},
		{Code: "200", Name: "Bruno"},
		{Code: "300", Name: "Carla"},
	})
}

func testOptions() Options {
	return Options{Schema: DefaultSchema(), Directory: testDirectory(), Today: testToday}
}

func mustRun(t *testing.T, batches ...model.Batch) *Analysis {
	t.Helper()
	a, err := Run(batches, testOptions())
	require.NoError(t, err)
	return a
}

func mustMerge(t *testing.T, batches ...model.Batch) MergeResult {
	t.Helper()
	var valid []ValidatedBatch
	for _, b := range batches {
		vb, err := Validate(b, DefaultSchema())
		require.NoError(t, err)
		valid = append(valid, vb)
	}
	return Merge(valid, testDirectory())
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	require.True(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual)
}
