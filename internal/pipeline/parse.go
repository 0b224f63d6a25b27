package pipeline

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/assessor-cli/internal/model"
)

// dateLayouts are the birth-date formats accepted, Brazilian day-first
// formats before month-first ones.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02/01/2006 15:04:05",
}

// nullMarkers are cell values treated as missing.
var nullMarkers = map[string]bool{
	"":     true,
	"-":    true,
	"NAN":  true,
	"NULL": true,
	"NONE": true,
	"N/A":  true,
}

// parseAmount parses a revenue cell. Missing values are zero. Both "1234.5"
// and Brazilian "1.234,50" forms are accepted, with an optional "R$" prefix.
// A lone dot followed by three digits ("1.234") groups thousands when the
// cell carries "R$" or the batch is pt-BR, is a decimal point in plain
// batches, and is rejected as ambiguous otherwise.
func parseAmount(raw string, format model.NumberFormat) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(s, "R$"); ok {
		s = strings.TrimSpace(rest)
		format = model.NumberBR
	}
	if nullMarkers[strings.ToUpper(s)] {
		return decimal.Zero, nil
	}

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	case thousandsOnly(s, dot):
		switch format {
		case model.NumberBR:
			s = strings.Replace(s, ".", "", 1)
		case model.NumberAuto:
			return decimal.Zero, eris.Errorf("parse amount: ambiguous separator in %q", s)
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, eris.Wrap(err, "parse amount")
	}
	return d, nil
}

// thousandsOnly reports whether s has the form [-]d.ddd with one to three
// leading digits, dot being the index of its only '.'.
func thousandsOnly(s string, dot int) bool {
	if dot < 0 {
		return false
	}
	whole := strings.TrimPrefix(s[:dot], "-")
	frac := s[dot+1:]
	return len(whole) >= 1 && len(whole) <= 3 && len(frac) == 3 && digits(whole) && digits(frac)
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// parseDate parses a birth-date cell. A missing value returns nil without
// error.
func parseDate(raw string) (*time.Time, error) {
	s := strings.TrimSpace(raw)
	if nullMarkers[strings.ToUpper(s)] {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d, nil
		}
	}
	return nil, eris.Errorf("parse date: unrecognized format %q", s)
}
