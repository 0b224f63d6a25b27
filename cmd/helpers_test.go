package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/assessor-cli/internal/config"
)

const csvHeader = "Assessor;Cliente;Receita Bovespa;Receita Futuros;Receita RF Bancários;Receita RF Privados;Receita RF Públicos;Receita no Mês;Sexo;Data de Nascimento"

// testNow is a fixed clock; with the default window it selects May to
// October 2024.
var testNow = time.Date(2024, time.November, 5, 0, 0, 0, 0, time.UTC)

// testConfig returns the defaults Load would produce, without touching the
// environment.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.Log = config.LogConfig{Level: "info", Format: "json"}
	c.Periods = config.PeriodsConfig{Count: 6, Exclude: []string{"April"}}
	c.Directory.UnknownLabel = "Assessor Desconhecido"
	c.Input = config.InputConfig{Dir: t.TempDir(), Concurrency: 2}
	c.Export = config.ExportConfig{Dir: t.TempDir(), Format: "xlsx"}
	c.Server = config.ServerConfig{Port: 8080, CacheTTLMinutes: 30, MaxUploadMB: 1}
	return c
}

// csvData builds a semicolon CSV with the default headers. Each row is
// "advisor;client;total" and total fills Bovespa and the period revenue.
func csvData(rows ...string) []byte {
	lines := []string{csvHeader}
	for _, r := range rows {
		parts := strings.Split(r, ";")
		lines = append(lines, strings.Join([]string{parts[0], parts[1], parts[2], "", "", "", "", parts[2], "M", "15/06/2000"}, ";"))
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

func writeCSV(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
