package main

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/sells-group/assessor-cli/internal/fetcher"
	"github.com/sells-group/assessor-cli/internal/model"
	"github.com/sells-group/assessor-cli/internal/pipeline"
)

// rankRow is one line of the advisor ranking with its attributed clients.
type rankRow struct {
	Position    int             `json:"position"`
	AdvisorKey  string          `json:"advisor_key"`
	AdvisorName string          `json:"advisor_name"`
	Revenue     decimal.Decimal `json:"revenue"`
	Formatted   string          `json:"formatted"`
	Clients     int             `json:"clients"`
}

// advisorDetail is the drill-down for one advisor.
type advisorDetail struct {
	Key        string                `json:"key"`
	Name       string                `json:"name"`
	Clients    []model.ClientRevenue `json:"clients"`
	Categories []model.CategoryTotal `json:"categories"`
}

// issues lists everything that was skipped or coerced during a run.
type issues struct {
	Rejected      []*pipeline.SchemaError `json:"rejected"`
	ParseErrors   []*pipeline.ParseError  `json:"parse_errors"`
	LoadErrors    []*fetcher.LoadError    `json:"load_errors"`
	DroppedRows   int                     `json:"dropped_rows"`
	DuplicateRows int                     `json:"duplicate_rows"`
}

// report is the full output of an analysis for one selection.
type report struct {
	RunID            string                      `json:"run_id"`
	DirectoryVersion string                      `json:"directory_version"`
	Periods          []string                    `json:"periods"`
	Selection        []string                    `json:"selection"`
	Total            string                      `json:"total"`
	Ranking          []rankRow                   `json:"ranking"`
	Advisor          *advisorDetail              `json:"advisor,omitempty"`
	Demographics     model.Demographics          `json:"demographics"`
	Duplicates       []model.DuplicateFlag       `json:"duplicates"`
	Conflicts        []model.AttributionConflict `json:"conflicts"`
	Issues           issues                      `json:"issues"`
}

func newIssues(a *pipeline.Analysis, loadErrs []*fetcher.LoadError) issues {
	if loadErrs == nil {
		loadErrs = make([]*fetcher.LoadError, 0)
	}
	return issues{
		Rejected:      a.Rejected,
		ParseErrors:   a.ParseErrors,
		LoadErrors:    loadErrs,
		DroppedRows:   a.DroppedRows,
		DuplicateRows: a.DuplicateRows,
	}
}

// rankingRows joins the ranking with post-attribution client counts.
func rankingRows(a *pipeline.Analysis, sel model.Selection) []rankRow {
	counts := make(map[string]int)
	for _, c := range a.ClientCounts(sel) {
		counts[c.AdvisorKey] = c.Clients
	}

	ranking := a.Ranking(sel)
	out := make([]rankRow, 0, len(ranking))
	for i, r := range ranking {
		out = append(out, rankRow{
			Position:    i + 1,
			AdvisorKey:  r.AdvisorKey,
			AdvisorName: r.AdvisorName,
			Revenue:     r.GrandTotal(),
			Formatted:   pipeline.FormatBRL(r.GrandTotal()),
			Clients:     counts[r.AdvisorKey],
		})
	}
	return out
}

// buildReport assembles the report for sel. advisorKey, when set, adds the
// client and category drill-down for that advisor.
func buildReport(a *pipeline.Analysis, loadErrs []*fetcher.LoadError, sel model.Selection, advisorKey string) report {
	// Requested labels in period order; labels with no batch follow sorted.
	labels := make([]string, 0, len(sel))
	known := make(map[string]bool, len(a.Periods))
	for _, p := range a.Periods {
		known[p] = true
		if len(sel) > 0 && sel.Includes(p) {
			labels = append(labels, p)
		}
	}
	var missing []string
	for p := range sel {
		if !known[p] {
			missing = append(missing, p)
		}
	}
	sort.Strings(missing)
	labels = append(labels, missing...)

	r := report{
		RunID:            a.RunID,
		DirectoryVersion: a.DirectoryVersion,
		Periods:          a.Periods,
		Selection:        labels,
		Total:            pipeline.FormatBRL(a.Records.Filter(sel).GrandTotal()),
		Ranking:          rankingRows(a, sel),
		Demographics:     a.Demographics(sel),
		Duplicates:       a.DuplicatesFor(sel),
		Conflicts:        a.ConflictsFor(sel),
		Issues:           newIssues(a, loadErrs),
	}

	if advisorKey != "" {
		d := &advisorDetail{
			Key:        advisorKey,
			Clients:    a.Clients(advisorKey, sel),
			Categories: a.Categories(advisorKey, sel),
		}
		for _, row := range r.Ranking {
			if row.AdvisorKey == advisorKey {
				d.Name = row.AdvisorName
			}
		}
		r.Advisor = d
	}
	return r
}
