// Package pipeline reconciles monthly advisor revenue batches into a unified
// record set and derives rankings, attribution and data-quality reports.
//
// Every stage is a pure function over immutable values: Validate admits a
// batch, Merge builds the record set, and Aggregate, ResolveAttribution,
// DetectDuplicates and Enrich derive new values from it.
package pipeline

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/assessor-cli/internal/model"
	"github.com/sells-group/assessor-cli/internal/resolve"
)

// Options configures a pipeline run.
type Options struct {
	Schema    Schema
	Directory *model.AdvisorDirectory
	// Today is the reference date for age derivation. Zero means time.Now.
	Today time.Time
}

// Analysis is the immutable outcome of one run. Query methods take a period
// selection; an empty selection covers every period.
type Analysis struct {
	RunID            string                      `json:"run_id"`
	DirectoryVersion string                      `json:"directory_version"`
	Periods          []string                    `json:"periods"`
	Rejected         []*SchemaError              `json:"rejected"`
	ParseErrors      []*ParseError               `json:"parse_errors"`
	DroppedRows      int                         `json:"dropped_rows"`
	DuplicateRows    int                         `json:"duplicate_rows"`
	Schema           Schema                      `json:"-"`
	Records          model.RecordSet             `json:"-"`
	Duplicates       []model.DuplicateFlag       `json:"duplicates"`
	Conflicts        []model.AttributionConflict `json:"conflicts"`
}

// Run validates every batch, merges the survivors and enriches the result.
// Rejected batches are listed on the analysis and never stop the run. When no
// batch survives, Run returns the partial analysis together with
// ErrEmptyInput and performs no aggregation.
func Run(batches []model.Batch, opts Options) (*Analysis, error) {
	if opts.Directory == nil {
		return nil, eris.New("pipeline: advisor directory is required")
	}
	today := opts.Today
	if today.IsZero() {
		today = time.Now()
	}

	a := &Analysis{
		RunID:            uuid.NewString(),
		DirectoryVersion: opts.Directory.Version(),
		Schema:           opts.Schema,
		Rejected:         make([]*SchemaError, 0),
		ParseErrors:      make([]*ParseError, 0),
		Duplicates:       make([]model.DuplicateFlag, 0),
		Conflicts:        make([]model.AttributionConflict, 0),
	}
	log := zap.L().With(zap.String("run_id", a.RunID))

	seen := make(map[string]bool, len(batches))
	valid := make([]ValidatedBatch, 0, len(batches))
	periods := make([]model.Period, 0, len(batches))
	for _, b := range batches {
		if seen[b.Period.Label] {
			se := &SchemaError{Period: b.Period.Label, Source: b.Source, Reason: "duplicate period"}
			log.Warn("pipeline: batch rejected", zap.Error(se))
			a.Rejected = append(a.Rejected, se)
			continue
		}

		vb, err := Validate(b, opts.Schema)
		if err != nil {
			var se *SchemaError
			if errors.As(err, &se) {
				log.Warn("pipeline: batch rejected",
					zap.String("period", se.Period),
					zap.String("source", se.Source),
					zap.Strings("missing", se.Missing),
				)
				a.Rejected = append(a.Rejected, se)
				continue
			}
			return nil, eris.Wrap(err, "pipeline: validate batch")
		}

		seen[b.Period.Label] = true
		valid = append(valid, vb)
		periods = append(periods, b.Period)
	}

	if len(valid) == 0 {
		log.Warn("pipeline: no data", zap.Int("rejected", len(a.Rejected)))
		return a, ErrEmptyInput
	}
	a.Periods = model.NewPeriodSet(periods...).Labels()

	merged := Merge(valid, opts.Directory)
	a.ParseErrors = append(a.ParseErrors, merged.ParseErrors...)
	a.DroppedRows = merged.DroppedRows
	a.DuplicateRows = merged.DupRows
	for _, pe := range merged.ParseErrors {
		log.Warn("pipeline: cell coerced", zap.Error(pe))
	}

	a.Records = Enrich(merged.Records, today)
	a.Duplicates = DetectDuplicates(a.Records)
	a.Conflicts = ResolveAttribution(a.Records, nil).Conflicts

	log.Info("pipeline: run complete",
		zap.Int("batches", len(valid)),
		zap.Int("rejected", len(a.Rejected)),
		zap.Int("records", a.Records.Len()),
		zap.Int("dropped_rows", a.DroppedRows),
		zap.Int("duplicate_rows", a.DuplicateRows),
		zap.Int("parse_errors", len(a.ParseErrors)),
		zap.Int("duplicate_clients", len(a.Duplicates)),
		zap.Int("conflicts", len(a.Conflicts)),
	)
	return a, nil
}

// Ranking returns advisors ordered by grand total for the selection.
func (a *Analysis) Ranking(sel model.Selection) []model.AggregateRow {
	rows := RankAdvisors(a.Records, sel)
	if len(rows) == 0 {
		zap.L().Warn("pipeline: no data for selection", zap.String("run_id", a.RunID), zap.Int("periods", len(sel)))
	}
	return rows
}

// ClientCounts returns clients per advisor after attribution.
func (a *Analysis) ClientCounts(sel model.Selection) []model.ClientCount {
	return ClientCounts(a.Records, sel)
}

// Clients returns the per-client breakdown of one advisor.
func (a *Analysis) Clients(advisorKey string, sel model.Selection) []model.ClientRevenue {
	return ClientBreakdown(a.Records, sel, advisorKey)
}

// Categories returns the product breakdown of one advisor.
func (a *Analysis) Categories(advisorKey string, sel model.Selection) []model.CategoryTotal {
	return CategoryBreakdown(a.Records, sel, advisorKey, a.Schema.Categories)
}

// DuplicatesFor returns duplicate client keys within the selection.
func (a *Analysis) DuplicatesFor(sel model.Selection) []model.DuplicateFlag {
	if len(sel) == 0 {
		return a.Duplicates
	}
	return DetectDuplicates(a.Records.Filter(sel))
}

// ConflictsFor returns multi-advisor clients within the selection.
func (a *Analysis) ConflictsFor(sel model.Selection) []model.AttributionConflict {
	if len(sel) == 0 {
		return a.Conflicts
	}
	return ResolveAttribution(a.Records, sel).Conflicts
}

// Demographics returns cohort breakdowns for the selection.
func (a *Analysis) Demographics(sel model.Selection) model.Demographics {
	return DemographicBreakdown(a.Records, sel)
}

// FindAdvisor resolves an advisor code or display name to an advisor key.
// A code match wins. A name shared by several codes returns an
// *AmbiguousAdvisorError listing them; no match returns ErrAdvisorNotFound.
func (a *Analysis) FindAdvisor(ref string) (string, error) {
	key := resolve.NormalizeCode(ref)
	var named []string
	seen := make(map[string]bool)
	for i := 0; i < a.Records.Len(); i++ {
		r := a.Records.At(i)
		if key != "" && r.AdvisorKey == key {
			return r.AdvisorKey, nil
		}
		if r.AdvisorName == ref && !seen[r.AdvisorKey] {
			seen[r.AdvisorKey] = true
			named = append(named, r.AdvisorKey)
		}
	}

	switch len(named) {
	case 0:
		return "", ErrAdvisorNotFound
	case 1:
		return named[0], nil
	default:
		sort.Strings(named)
		return "", &AmbiguousAdvisorError{Ref: ref, Keys: named}
	}
}
