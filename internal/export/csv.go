package export

import (
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/assessor-cli/internal/model"
)

// advisorRow is one CSV line of the advisor table. The header comes from
// the schema labels, so the encoder's auto header is disabled.
type advisorRow struct {
	Code    string `csv:"code"`
	Name    string `csv:"name"`
	Cat0    string `csv:"cat0"`
	Cat1    string `csv:"cat1"`
	Cat2    string `csv:"cat2"`
	Cat3    string `csv:"cat3"`
	Cat4    string `csv:"cat4"`
	Revenue string `csv:"revenue"`
}

type clientRow struct {
	Client  string `csv:"client"`
	Revenue string `csv:"revenue"`
}

func writeAdvisorCSV(w io.Writer, rows []model.AggregateRow, cats model.Categories) error {
	cw := csv.NewWriter(w)
	header := append([]string{colAdvisorCode, colAdvisorName}, cats.Columns()...)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "export: write header")
	}

	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false
	for _, r := range rows {
		t := r.Totals
		line := advisorRow{
			Code:    r.AdvisorKey,
			Name:    r.AdvisorName,
			Cat0:    t[0].StringFixed(2),
			Cat1:    t[1].StringFixed(2),
			Cat2:    t[2].StringFixed(2),
			Cat3:    t[3].StringFixed(2),
			Cat4:    t[4].StringFixed(2),
			Revenue: t[model.GrandTotal].StringFixed(2),
		}
		if err := enc.Encode(line); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

func writeClientCSV(w io.Writer, rows []model.ClientRevenue, revenueColumn string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{colClient, revenueColumn}); err != nil {
		return eris.Wrap(err, "export: write header")
	}

	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false
	for _, r := range rows {
		if err := enc.Encode(clientRow{Client: r.ClientKey, Revenue: r.Revenue.StringFixed(2)}); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}
