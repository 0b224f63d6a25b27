package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// NumberFormat tells how numeric text cells of a batch are written.
type NumberFormat string

const (
	// NumberAuto is used when the source gives no hint. A lone "d.ddd" cell
	// is ambiguous and rejected.
	NumberAuto NumberFormat = ""
	// NumberPlain is a machine number with '.' as decimal point, as stored
	// in xlsx numeric cells.
	NumberPlain NumberFormat = "plain"
	// NumberBR is pt-BR text: '.' groups thousands and ',' is the decimal
	// separator.
	NumberBR NumberFormat = "pt-BR"
)

// Batch is one parsed monthly spreadsheet: a header row plus string cells.
// Rows are addressed through a declared schema before they become records.
type Batch struct {
	Period  Period       `json:"period"`
	Source  string       `json:"source"`
	Columns []string     `json:"columns"`
	Rows    [][]string   `json:"rows"`
	Numbers NumberFormat `json:"numbers,omitempty"`
}

// UnifiedRecord is a validated, normalized row tagged with its period.
// ClientKey is never empty.
type UnifiedRecord struct {
	Period      string                         `json:"period"`
	AdvisorKey  string                         `json:"advisor_key"`
	AdvisorName string                         `json:"advisor_name"`
	ClientKey   string                         `json:"client_key"`
	ClientRaw   string                         `json:"client_raw"`
	Amounts     [NumCategories]decimal.Decimal `json:"amounts"`
	Sex         string                         `json:"sex,omitempty"`
	BirthDate   *time.Time                     `json:"birth_date,omitempty"`
	Age         *int                           `json:"age,omitempty"`
}

// GrandTotal returns the period revenue of the record.
func (r UnifiedRecord) GrandTotal() decimal.Decimal {
	return r.Amounts[GrandTotal]
}

// Selection restricts queries to a set of period labels. An empty selection
// includes every period.
type Selection map[string]struct{}

// NewSelection builds a selection from period labels.
func NewSelection(labels ...string) Selection {
	s := make(Selection, len(labels))
	for _, l := range labels {
		s[l] = struct{}{}
	}
	return s
}

// Includes reports whether the period label is selected.
func (s Selection) Includes(label string) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[label]
	return ok
}

// RecordSet is an immutable ordered collection of unified records.
type RecordSet struct {
	records []UnifiedRecord
}

// NewRecordSet copies records into a new set.
func NewRecordSet(records []UnifiedRecord) RecordSet {
	cp := make([]UnifiedRecord, len(records))
	copy(cp, records)
	return RecordSet{records: cp}
}

// Len returns the number of records.
func (s RecordSet) Len() int {
	return len(s.records)
}

// At returns the record at index i.
func (s RecordSet) At(i int) UnifiedRecord {
	return s.records[i]
}

// All returns a copy of the records.
func (s RecordSet) All() []UnifiedRecord {
	out := make([]UnifiedRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Filter returns the records whose period is selected.
func (s RecordSet) Filter(sel Selection) RecordSet {
	if len(sel) == 0 {
		return s
	}
	out := make([]UnifiedRecord, 0, len(s.records))
	for _, r := range s.records {
		if sel.Includes(r.Period) {
			out = append(out, r)
		}
	}
	return RecordSet{records: out}
}

// GrandTotal sums the period revenue of every record.
func (s RecordSet) GrandTotal() decimal.Decimal {
	total := decimal.Zero
	for _, r := range s.records {
		total = total.Add(r.GrandTotal())
	}
	return total
}
