package pipeline

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/sells-group/assessor-cli/internal/model"
)

// Attribution maps every client to its primary advisor and lists the clients
// seen under more than one advisor.
type Attribution struct {
	Primary   map[string]string           `json:"primary"`
	Conflicts []model.AttributionConflict `json:"conflicts"`
}

// ResolveAttribution sums the grand total per (client, advisor) over the
// selected periods and picks, per client, the advisor with the highest sum.
// Equal sums go to the lexicographically smallest advisor key. Every client
// with more than one distinct advisor is reported once as a conflict, in the
// order clients were first seen.
func ResolveAttribution(records model.RecordSet, sel model.Selection) Attribution {
	agg := Aggregate(records, sel, model.GroupByAdvisorClient)

	var clientOrder []string
	shares := make(map[string][]model.AdvisorShare)
	for _, row := range agg.Rows {
		if _, ok := shares[row.ClientKey]; !ok {
			clientOrder = append(clientOrder, row.ClientKey)
		}
		shares[row.ClientKey] = append(shares[row.ClientKey], model.AdvisorShare{
			AdvisorKey:  row.AdvisorKey,
			AdvisorName: row.AdvisorName,
			Revenue:     row.GrandTotal(),
		})
	}

	att := Attribution{
		Primary:   make(map[string]string, len(clientOrder)),
		Conflicts: make([]model.AttributionConflict, 0),
	}
	for _, client := range clientOrder {
		candidates := shares[client]
		sort.SliceStable(candidates, func(i, j int) bool {
			return shareBefore(candidates[i], candidates[j])
		})
		att.Primary[client] = candidates[0].AdvisorKey

		if len(candidates) > 1 {
			att.Conflicts = append(att.Conflicts, model.AttributionConflict{
				ClientKey:  client,
				Primary:    candidates[0].AdvisorKey,
				Candidates: candidates,
			})
		}
	}
	return att
}

// shareBefore orders shares by revenue descending, then advisor key ascending.
func shareBefore(a, b model.AdvisorShare) bool {
	if c := a.Revenue.Cmp(b.Revenue); c != 0 {
		return c > 0
	}
	return a.AdvisorKey < b.AdvisorKey
}

// ClientCounts counts distinct clients per primary advisor, so a client who
// dealt with several advisors is counted once. Advisors follow the revenue
// ranking; ranked advisors without primary clients report zero.
func ClientCounts(records model.RecordSet, sel model.Selection) []model.ClientCount {
	att := ResolveAttribution(records, sel)

	perAdvisor := make(map[string]int)
	for _, advisor := range att.Primary {
		perAdvisor[advisor]++
	}

	ranking := RankAdvisors(records, sel)
	out := make([]model.ClientCount, 0, len(ranking))
	for _, row := range ranking {
		out = append(out, model.ClientCount{
			AdvisorKey:  row.AdvisorKey,
			AdvisorName: row.AdvisorName,
			Clients:     perAdvisor[row.AdvisorKey],
		})
	}
	return out
}

// PrimaryRevenue returns the revenue a client generated with its primary advisor.
func PrimaryRevenue(c model.AttributionConflict) decimal.Decimal {
	for _, s := range c.Candidates {
		if s.AdvisorKey == c.Primary {
			return s.Revenue
		}
	}
	return decimal.Zero
}
