package fetcher

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				cell := row.AddCell()
				cell.SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	err := f.Save(path)
	require.NoError(t, err)
	return path
}

func TestReadXLSX_Basic(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"Assessor", "Cliente", "Receita no Mês"},
			{"74930", "João", "1234.5"},
			{"31704", "Maria", "10"},
		},
	})

	rows, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Assessor", "Cliente", "Receita no Mês"}, rows[0])
	assert.Equal(t, []string{"74930", "João", "1234.5"}, rows[1])
	assert.Equal(t, []string{"31704", "Maria", "10"}, rows[2])
}

func TestReadXLSX_TrimsHeaderAndSkipsBlankRows(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{" Assessor ", "Cliente"},
			{"", " "},
			{"1", "A"},
		},
	})

	rows, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Assessor", "Cliente"}, rows[0])
	assert.Equal(t, []string{"1", "A"}, rows[1])
}

func TestReadXLSX_SheetName(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"First":  {{"a", "b"}},
		"Second": {{"x", "y"}, {"1", "2"}},
	})

	rows, err := ReadXLSX(path, XLSXOptions{SheetName: "Second"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"x", "y"}, rows[0])
}

func TestReadXLSX_SheetNameNotFound(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {{"a"}},
	})

	_, err := ReadXLSX(path, XLSXOptions{SheetName: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReadXLSX_SheetIndexOutOfRange(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {{"a"}},
	})

	_, err := ReadXLSX(path, XLSXOptions{SheetIndex: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestReadXLSX_EmptySheet(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {},
	})

	_, err := ReadXLSX(path, XLSXOptions{})
	require.Error(t, err)
}

func TestReadXLSX_FileNotFound(t *testing.T) {
	_, err := ReadXLSX(filepath.Join(t.TempDir(), "missing.xlsx"), XLSXOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xlsx: open file")
}

func TestReadXLSXBytes_DateColumns(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)

	header := sheet.AddRow()
	for _, h := range []string{"Cliente", "Data de Nascimento", "Receita no Mês"} {
		header.AddCell().SetString(h)
	}
	row := sheet.AddRow()
	row.AddCell().SetString("Ana")
	row.AddCell().SetFloat(36692)
	row.AddCell().SetFloat(1500.25)
	row = sheet.AddRow()
	row.AddCell().SetString("Bia")
	row.AddCell().SetString("15/06/2000")
	row.AddCell().SetFloat(10)

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	rows, err := ReadXLSXBytes(buf.Bytes(), XLSXOptions{DateColumns: []string{"Data de Nascimento"}})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Ana", "2000-06-15", "1500.25"}, rows[1])
	assert.Equal(t, "15/06/2000", rows[2][1], "text dates pass through")
}

func TestReadXLSXBytes_Invalid(t *testing.T) {
	_, err := ReadXLSXBytes([]byte("not a workbook"), XLSXOptions{})
	require.Error(t, err)
}
