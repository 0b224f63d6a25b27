package pipeline

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/assessor-cli/internal/model"
	"github.com/sells-group/assessor-cli/internal/resolve"
)

// MergeResult is the unified record set plus what was lost along the way.
type MergeResult struct {
	Records     model.RecordSet
	ParseErrors []*ParseError
	DroppedRows int // rows whose client identifier normalized to ""
	DupRows     int // exact duplicate rows removed
}

// Merge concatenates validated batches into one record set. Rows keep their
// batch order; batches keep their input order. Each row is tagged with its
// period, the client and advisor identifiers are normalized, the advisor name
// is resolved through dir, and missing amounts become zero. Rows with an
// empty client key are dropped and exact duplicates are removed after
// concatenation, keeping the first occurrence.
func Merge(batches []ValidatedBatch, dir *model.AdvisorDirectory) MergeResult {
	var (
		res     MergeResult
		records []model.UnifiedRecord
	)

	for _, vb := range batches {
		b := vb.Batch
		for i, row := range b.Rows {
			// Spreadsheet row number: header is row 1.
			rowNum := i + 2

			clientRaw := strings.TrimSpace(cell(row, vb.client))
			clientKey := resolve.NormalizeKey(clientRaw)
			if clientKey == "" {
				res.DroppedRows++
				continue
			}

			advisorKey := resolve.NormalizeCode(cell(row, vb.advisor))
			rec := model.UnifiedRecord{
				Period:      b.Period.Label,
				AdvisorKey:  advisorKey,
				AdvisorName: dir.Name(advisorKey),
				ClientKey:   clientKey,
				ClientRaw:   clientRaw,
				Sex:         strings.TrimSpace(cell(row, vb.sex)),
			}

			for c, idx := range vb.amounts {
				raw := cell(row, idx)
				amount, err := parseAmount(raw, b.Numbers)
				if err != nil {
					res.ParseErrors = append(res.ParseErrors, &ParseError{
						Period: b.Period.Label,
						Source: b.Source,
						Row:    rowNum,
						Column: vb.columns.Categories[c].Column,
						Value:  raw,
						Reason: err.Error(),
						Err:    err,
					})
				}
				rec.Amounts[c] = amount
			}

			if vb.birthDate >= 0 {
				raw := cell(row, vb.birthDate)
				birth, err := parseDate(raw)
				if err != nil {
					res.ParseErrors = append(res.ParseErrors, &ParseError{
						Period: b.Period.Label,
						Source: b.Source,
						Row:    rowNum,
						Column: vb.columns.BirthDate,
						Value:  raw,
						Reason: err.Error(),
						Err:    err,
					})
				}
				rec.BirthDate = birth
			}

			records = append(records, rec)
		}
	}

	deduped := make([]model.UnifiedRecord, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		k := recordIdentity(r)
		if _, ok := seen[k]; ok {
			res.DupRows++
			continue
		}
		seen[k] = struct{}{}
		deduped = append(deduped, r)
	}

	if res.DupRows > 0 {
		zap.L().Info("pipeline: removed exact duplicate rows", zap.Int("rows", res.DupRows))
	}

	res.Records = model.NewRecordSet(deduped)
	return res
}

// recordIdentity joins every record field into a comparison key.
func recordIdentity(r model.UnifiedRecord) string {
	parts := make([]string, 0, 6+model.NumCategories)
	parts = append(parts, r.Period, r.AdvisorKey, r.AdvisorName, r.ClientKey, r.ClientRaw, r.Sex)
	for _, a := range r.Amounts {
		parts = append(parts, a.String())
	}
	if r.BirthDate != nil {
		parts = append(parts, r.BirthDate.Format("2006-01-02"))
	} else {
		parts = append(parts, "")
	}
	return strings.Join(parts, "\x1f")
}
