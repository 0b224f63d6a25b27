package model

import "github.com/shopspring/decimal"

// GroupBy selects the grouping key of a revenue aggregate.
type GroupBy string

const (
	GroupByAdvisor       GroupBy = "advisor"
	GroupByAdvisorClient GroupBy = "advisor_client"
)

// AggregateRow holds summed category totals for one group.
type AggregateRow struct {
	AdvisorKey  string                         `json:"advisor_key"`
	AdvisorName string                         `json:"advisor_name"`
	ClientKey   string                         `json:"client_key,omitempty"`
	Totals      [NumCategories]decimal.Decimal `json:"totals"`
}

// GrandTotal returns the summed period revenue of the group.
func (r AggregateRow) GrandTotal() decimal.Decimal {
	return r.Totals[GrandTotal]
}

// RevenueAggregate is the result of grouping records and summing categories.
// Rows keep first-appearance order of their group keys.
type RevenueAggregate struct {
	GroupBy GroupBy        `json:"group_by"`
	Rows    []AggregateRow `json:"rows"`
}

// Empty reports whether the aggregate has no groups.
func (a RevenueAggregate) Empty() bool {
	return len(a.Rows) == 0
}

// GrandTotal sums the period revenue across every group.
func (a RevenueAggregate) GrandTotal() decimal.Decimal {
	total := decimal.Zero
	for _, r := range a.Rows {
		total = total.Add(r.GrandTotal())
	}
	return total
}

// ClientRevenue is one row of the per-client breakdown of an advisor.
type ClientRevenue struct {
	ClientKey string          `json:"client_key"`
	Revenue   decimal.Decimal `json:"revenue"`
	Formatted string          `json:"formatted"`
}

// ClientCount is the number of clients attributed to an advisor.
type ClientCount struct {
	AdvisorKey  string `json:"advisor_key"`
	AdvisorName string `json:"advisor_name"`
	Clients     int    `json:"clients"`
}

// CategoryTotal is the summed revenue of one category for one advisor.
type CategoryTotal struct {
	Key    string          `json:"key"`
	Column string          `json:"column"`
	Total  decimal.Decimal `json:"total"`
}

// AdvisorShare is one candidate advisor's revenue for a client.
type AdvisorShare struct {
	AdvisorKey  string          `json:"advisor_key"`
	AdvisorName string          `json:"advisor_name"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// AttributionConflict is a client seen under more than one advisor.
// Candidates are ordered by revenue descending; Primary is the first.
type AttributionConflict struct {
	ClientKey  string         `json:"client_key"`
	Primary    string         `json:"primary_advisor"`
	Candidates []AdvisorShare `json:"candidates"`
}

// DuplicateFlag is a client key that occurs in more than one record.
type DuplicateFlag struct {
	ClientKey      string   `json:"client_key"`
	Count          int      `json:"count"`
	RawIdentifiers []string `json:"raw_identifiers"`
	Periods        []string `json:"periods"`
}

// CohortRow is one demographic cohort: distinct clients and their revenue.
type CohortRow struct {
	Cohort  string          `json:"cohort"`
	Clients int             `json:"clients"`
	Revenue decimal.Decimal `json:"revenue"`
}

// Demographics holds cohort breakdowns by sex and by age bucket.
type Demographics struct {
	BySex []CohortRow `json:"by_sex"`
	ByAge []CohortRow `json:"by_age"`
}
