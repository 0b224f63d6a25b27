package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/sells-group/assessor-cli/internal/pipeline"
)

// writeJSON prints v as indented JSON.
func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "encode json")
	}
	return nil
}

// formatReport prints the report as aligned text tables.
func formatReport(out io.Writer, r report) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	selection := "all"
	if len(r.Selection) > 0 {
		selection = strings.Join(r.Selection, ", ")
	}
	_, _ = fmt.Fprintf(w, "Run %s (directory %s)\n", r.RunID, r.DirectoryVersion)
	_, _ = fmt.Fprintf(w, "Periods: %s\n", strings.Join(r.Periods, ", "))
	_, _ = fmt.Fprintf(w, "Selection: %s\tTotal: %s\n\n", selection, r.Total)

	_, _ = fmt.Fprintln(w, "#\tCODE\tADVISOR\tREVENUE\tCLIENTS")
	_, _ = fmt.Fprintln(w, "-\t----\t-------\t-------\t-------")
	if len(r.Ranking) == 0 {
		_, _ = fmt.Fprintln(w, "No data for the selected periods.")
	}
	for _, row := range r.Ranking {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n",
			row.Position, row.AdvisorKey, row.AdvisorName, row.Formatted, row.Clients)
	}

	if r.Advisor != nil {
		_, _ = fmt.Fprintf(w, "\nClients of %s (%s)\n", r.Advisor.Name, r.Advisor.Key)
		_, _ = fmt.Fprintln(w, "CLIENT\tREVENUE")
		for _, c := range r.Advisor.Clients {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", c.ClientKey, c.Formatted)
		}
		_, _ = fmt.Fprintln(w, "\nCATEGORY\tTOTAL")
		for _, c := range r.Advisor.Categories {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", c.Column, pipeline.FormatBRL(c.Total))
		}
	}

	if len(r.Duplicates) > 0 {
		_, _ = fmt.Fprintln(w, "\nDUPLICATE CLIENT\tCOUNT\tRAW IDENTIFIERS\tPERIODS")
		for _, d := range r.Duplicates {
			_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
				d.ClientKey, d.Count, strings.Join(d.RawIdentifiers, " | "), strings.Join(d.Periods, ", "))
		}
	}

	if len(r.Conflicts) > 0 {
		_, _ = fmt.Fprintln(w, "\nMULTI-ADVISOR CLIENT\tPRIMARY\tCANDIDATES")
		for _, c := range r.Conflicts {
			candidates := make([]string, 0, len(c.Candidates))
			for _, s := range c.Candidates {
				candidates = append(candidates, fmt.Sprintf("%s %s", s.AdvisorName, pipeline.FormatBRL(s.Revenue)))
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.ClientKey, c.Primary, strings.Join(candidates, "; "))
		}
	}

	_, _ = fmt.Fprintln(w, "\nSEX\tCLIENTS\tREVENUE")
	for _, c := range r.Demographics.BySex {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", c.Cohort, c.Clients, pipeline.FormatBRL(c.Revenue))
	}
	_, _ = fmt.Fprintln(w, "\nAGE\tCLIENTS\tREVENUE")
	for _, c := range r.Demographics.ByAge {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", c.Cohort, c.Clients, pipeline.FormatBRL(c.Revenue))
	}

	formatIssues(w, r.Issues)
	_ = w.Flush()
}

// formatIssues prints rejected batches, unreadable files and coerced cells.
func formatIssues(w io.Writer, is issues) {
	if len(is.Rejected)+len(is.LoadErrors)+len(is.ParseErrors) == 0 && is.DroppedRows+is.DuplicateRows == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, "\nISSUES")
	for _, e := range is.LoadErrors {
		_, _ = fmt.Fprintf(w, "unreadable\t%s\t%s\n", e.Period, e.Reason)
	}
	for _, e := range is.Rejected {
		_, _ = fmt.Fprintf(w, "rejected\t%s\t%s\n", e.Period, e.Error())
	}
	for _, e := range is.ParseErrors {
		_, _ = fmt.Fprintf(w, "coerced\t%s\trow %d %s %q\n", e.Period, e.Row, e.Column, e.Value)
	}
	if is.DroppedRows > 0 {
		_, _ = fmt.Fprintf(w, "dropped\t%d rows without a client identifier\n", is.DroppedRows)
	}
	if is.DuplicateRows > 0 {
		_, _ = fmt.Fprintf(w, "deduplicated\t%d identical rows\n", is.DuplicateRows)
	}
}
