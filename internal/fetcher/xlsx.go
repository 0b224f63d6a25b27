package fetcher

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions configures the XLSX parser.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	// DateColumns lists header labels whose numeric cells hold Excel serial
	// dates. Those cells are rendered as YYYY-MM-DD.
	DateColumns []string
}

// ReadXLSX reads an XLSX file and returns the header row followed by the
// data rows. Cells carry their raw stored value, not the display format.
func ReadXLSX(path string, opts XLSXOptions) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	return sheetRows(f, opts)
}

// ReadXLSXBytes is ReadXLSX for an in-memory workbook, such as an upload.
func ReadXLSXBytes(data []byte, opts XLSXOptions) ([][]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open binary")
	}
	return sheetRows(f, opts)
}

func sheetRows(f *xlsx.File, opts XLSXOptions) ([][]string, error) {
	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	dateCols := make(map[int]bool)
	var rows [][]string
	for i, row := range sheet.Rows {
		if row == nil {
			continue
		}
		if i == 0 {
			header := rowToStrings(row, nil, false)
			for j, label := range header {
				header[j] = strings.TrimSpace(label)
				for _, dc := range opts.DateColumns {
					if header[j] == dc {
						dateCols[j] = true
					}
				}
			}
			rows = append(rows, header)
			continue
		}

		cells := rowToStrings(row, dateCols, f.Date1904)
		if blank(cells) {
			continue
		}
		rows = append(rows, cells)
	}

	if len(rows) == 0 {
		return nil, eris.New("xlsx: sheet has no header row")
	}
	return rows, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row, dateCols map[int]bool, date1904 bool) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		if cell == nil {
			continue
		}
		v := cell.Value
		if dateCols[j] {
			if serial, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				v = xlsx.TimeFromExcelTime(serial, date1904).Format("2006-01-02")
			}
		}
		cells[j] = v
	}
	return cells
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
