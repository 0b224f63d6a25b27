package fetcher

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVOptions configures the CSV parser.
type CSVOptions struct {
	Delimiter  rune // 0 = detect from the header line (';' or ',')
	LazyQuotes bool
}

// ReadCSV reads a delimited file and returns the header row followed by the
// data rows. A UTF-8 byte order mark is stripped and blank lines are skipped.
// Spreadsheet exports from pt-BR locales use ';', so the delimiter is
// detected from the header when not set.
func ReadCSV(r io.Reader, opts CSVOptions) ([][]string, error) {
	rows, _, err := readCSV(r, opts)
	return rows, err
}

// readCSV is ReadCSV that also returns the delimiter in use.
func readCSV(r io.Reader, opts CSVOptions) ([][]string, rune, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, 0, eris.Wrap(err, "csv: strip bom")
		}
	}

	delim := opts.Delimiter
	if delim == 0 {
		line, _ := br.Peek(peekSize(br))
		delim = detectDelimiter(line)
	}

	reader := csv.NewReader(br)
	reader.Comma = delim
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1 // allow variable fields

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, eris.Wrap(err, "csv: read row")
		}
		if len(rows) == 0 {
			for i, field := range record {
				record[i] = strings.TrimSpace(field)
			}
		} else if blank(record) {
			continue
		}
		rows = append(rows, record)
	}

	if len(rows) == 0 {
		return nil, 0, eris.New("csv: file has no header row")
	}
	return rows, delim, nil
}

// peekSize returns how many buffered bytes can be inspected without blocking
// past the first line.
func peekSize(br *bufio.Reader) int {
	if _, err := br.Peek(1); err != nil {
		return 0
	}
	n := br.Buffered()
	if n > 4096 {
		n = 4096
	}
	return n
}

// detectDelimiter picks ';' when the first line has more semicolons than
// commas, ',' otherwise.
func detectDelimiter(buf []byte) rune {
	if i := bytes.IndexByte(buf, '\n'); i >= 0 {
		buf = buf[:i]
	}
	if bytes.Count(buf, []byte{';'}) > bytes.Count(buf, []byte{','}) {
		return ';'
	}
	return ','
}
