package pipeline

import (
	"github.com/sells-group/assessor-cli/internal/model"
)

// Schema declares the spreadsheet columns a monthly batch is read through.
// Labels match headers exactly (case-sensitive).
type Schema struct {
	Advisor    string           `json:"advisor"`
	Client     string           `json:"client"`
	Sex        string           `json:"sex"`
	BirthDate  string           `json:"birth_date"`
	Categories model.Categories `json:"categories"`
}

// DefaultSchema returns the column labels used by the monthly exports.
func DefaultSchema() Schema {
	return Schema{
		Advisor:    "Assessor",
		Client:     "Cliente",
		Sex:        "Sexo",
		BirthDate:  "Data de Nascimento",
		Categories: model.DefaultCategories(),
	}
}

// WithLabels returns a copy of the schema with column labels overridden by
// field key: "advisor", "client", "sex", "birth_date" or a category key.
// Unknown keys and empty labels are ignored.
func (s Schema) WithLabels(labels map[string]string) Schema {
	out := s
	for key, label := range labels {
		if label == "" {
			continue
		}
		switch key {
		case "advisor":
			out.Advisor = label
		case "client":
			out.Client = label
		case "sex":
			out.Sex = label
		case "birth_date":
			out.BirthDate = label
		default:
			if i := out.Categories.Index(key); i >= 0 {
				out.Categories[i].Column = label
			}
		}
	}
	return out
}

// Required returns the labels every batch must carry.
func (s Schema) Required() []string {
	return append([]string{s.Advisor, s.Client}, s.Categories.Columns()...)
}

// ValidatedBatch is a batch whose header satisfied the schema, with the
// column positions resolved once.
type ValidatedBatch struct {
	Batch     model.Batch
	advisor   int
	client    int
	sex       int
	birthDate int
	amounts   [model.NumCategories]int
	columns   Schema
}

// Validate checks that the batch header is a superset of the schema's
// required columns. Optional columns are resolved when present.
func Validate(batch model.Batch, schema Schema) (ValidatedBatch, error) {
	index := make(map[string]int, len(batch.Columns))
	for i, c := range batch.Columns {
		if _, ok := index[c]; !ok {
			index[c] = i
		}
	}

	var missing []string
	for _, col := range schema.Required() {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return ValidatedBatch{}, &SchemaError{
			Period:  batch.Period.Label,
			Source:  batch.Source,
			Missing: missing,
		}
	}

	vb := ValidatedBatch{
		Batch:     batch,
		advisor:   index[schema.Advisor],
		client:    index[schema.Client],
		sex:       optionalIndex(index, schema.Sex),
		birthDate: optionalIndex(index, schema.BirthDate),
		columns:   schema,
	}
	for i, cat := range schema.Categories {
		vb.amounts[i] = index[cat.Column]
	}
	return vb, nil
}

func optionalIndex(index map[string]int, col string) int {
	if col == "" {
		return -1
	}
	if i, ok := index[col]; ok {
		return i
	}
	return -1
}

// cell returns the value at position i of row, or "" when the row is short
// or the column is absent.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
