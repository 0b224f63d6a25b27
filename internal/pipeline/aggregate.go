package pipeline

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/sells-group/assessor-cli/internal/model"
)

// radarCategories is the number of leading categories shown in the
// per-advisor product breakdown; the grand total is excluded.
const radarCategories = model.NumCategories - 1

type groupKey struct {
	advisor string
	client  string
}

// Aggregate filters records to the selected periods, groups them by advisor
// (or advisor and client) and sums every category. Groups appear in the order
// their key was first seen. An empty selection result yields an empty
// aggregate.
func Aggregate(records model.RecordSet, sel model.Selection, groupBy model.GroupBy) model.RevenueAggregate {
	agg := model.RevenueAggregate{GroupBy: groupBy}
	filtered := records.Filter(sel)

	index := make(map[groupKey]int)
	for i := 0; i < filtered.Len(); i++ {
		r := filtered.At(i)
		k := groupKey{advisor: r.AdvisorKey}
		if groupBy == model.GroupByAdvisorClient {
			k.client = r.ClientKey
		}

		pos, ok := index[k]
		if !ok {
			pos = len(agg.Rows)
			index[k] = pos
			row := model.AggregateRow{
				AdvisorKey:  r.AdvisorKey,
				AdvisorName: r.AdvisorName,
				ClientKey:   k.client,
			}
			for c := range row.Totals {
				row.Totals[c] = decimal.Zero
			}
			agg.Rows = append(agg.Rows, row)
		}

		row := &agg.Rows[pos]
		for c, amount := range r.Amounts {
			row.Totals[c] = row.Totals[c].Add(amount)
		}
	}

	return agg
}

// RankAdvisors returns per-advisor totals sorted by grand total descending.
// Equal totals keep first-appearance order.
func RankAdvisors(records model.RecordSet, sel model.Selection) []model.AggregateRow {
	rows := Aggregate(records, sel, model.GroupByAdvisor).Rows
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].GrandTotal().GreaterThan(rows[j].GrandTotal())
	})
	return rows
}

// ClientBreakdown returns the grand total per client for one advisor, highest
// first, with a Brazilian currency rendering of each amount.
func ClientBreakdown(records model.RecordSet, sel model.Selection, advisorKey string) []model.ClientRevenue {
	agg := Aggregate(records, sel, model.GroupByAdvisorClient)

	out := make([]model.ClientRevenue, 0)
	for _, row := range agg.Rows {
		if row.AdvisorKey != advisorKey {
			continue
		}
		out = append(out, model.ClientRevenue{
			ClientKey: row.ClientKey,
			Revenue:   row.GrandTotal(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Revenue.GreaterThan(out[j].Revenue)
	})
	for i := range out {
		out[i].Formatted = FormatBRL(out[i].Revenue)
	}
	return out
}

// CategoryBreakdown returns one advisor's totals for each product category,
// leaving out the grand total.
func CategoryBreakdown(records model.RecordSet, sel model.Selection, advisorKey string, cats model.Categories) []model.CategoryTotal {
	var totals [model.NumCategories]decimal.Decimal
	for c := range totals {
		totals[c] = decimal.Zero
	}
	for _, row := range Aggregate(records, sel, model.GroupByAdvisor).Rows {
		if row.AdvisorKey == advisorKey {
			totals = row.Totals
			break
		}
	}

	out := make([]model.CategoryTotal, radarCategories)
	for c := 0; c < radarCategories; c++ {
		out[c] = model.CategoryTotal{
			Key:    cats[c].Key,
			Column: cats[c].Column,
			Total:  totals[c],
		}
	}
	return out
}
