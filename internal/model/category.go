package model

// NumCategories is the number of revenue categories tracked per record.
const NumCategories = 6

// GrandTotal is the index of the category holding revenue for the period.
// Rankings and attribution are decided on this category.
const GrandTotal = NumCategories - 1

// Category describes one revenue category and the spreadsheet column it is
// read from.
type Category struct {
	Key    string `json:"key" yaml:"key" mapstructure:"key"`
	Column string `json:"column" yaml:"column" mapstructure:"column"`
}

// Categories is the ordered, fixed-size set of revenue categories.
type Categories [NumCategories]Category

// DefaultCategories returns the categories used by the monthly revenue exports.
func DefaultCategories() Categories {
	return Categories{
		{Key: "bovespa", Column: "Receita Bovespa"},
		{Key: "futuros", Column: "Receita Futuros"},
		{Key: "rf_bancarios", Column: "Receita RF Bancários"},
		{Key: "rf_privados", Column: "Receita RF Privados"},
		{Key: "rf_publicos", Column: "Receita RF Públicos"},
		{Key: "receita_mes", Column: "Receita no Mês"},
	}
}

// Columns returns the column labels in category order.
func (c Categories) Columns() []string {
	out := make([]string, NumCategories)
	for i, cat := range c {
		out[i] = cat.Column
	}
	return out
}

// Index returns the position of the category with the given key, or -1.
func (c Categories) Index(key string) int {
	for i, cat := range c {
		if cat.Key == key {
			return i
		}
	}
	return -1
}
