package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// writeXLSX renders t as a single-sheet workbook. Amount cells are numeric
// so the spreadsheet can sum them, and hold the exact two-place decimal.
func writeXLSX(w io.Writer, t table) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(t.sheet)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range t.header {
		header.AddCell().SetString(h)
	}

	for i := range t.text {
		row := sheet.AddRow()
		for _, v := range t.text[i] {
			row.AddCell().SetString(v)
		}
		for _, a := range t.amounts[i] {
			row.AddCell().SetNumeric(a.StringFixed(2))
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}
