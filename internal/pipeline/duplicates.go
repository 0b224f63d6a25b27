package pipeline

import (
	"sort"

	"github.com/sells-group/assessor-cli/internal/model"
)

// DetectDuplicates counts occurrences per client key and returns the keys
// seen more than once, most frequent first. Each flag lists the distinct raw
// identifiers that normalized to the key, which separates identical rows from
// distinct clients collapsed by normalization. The record set is not altered.
func DetectDuplicates(records model.RecordSet) []model.DuplicateFlag {
	var order []string
	flags := make(map[string]*model.DuplicateFlag)
	seenRaw := make(map[string]map[string]bool)
	seenPeriod := make(map[string]map[string]bool)

	for i := 0; i < records.Len(); i++ {
		r := records.At(i)
		f, ok := flags[r.ClientKey]
		if !ok {
			f = &model.DuplicateFlag{ClientKey: r.ClientKey}
			flags[r.ClientKey] = f
			seenRaw[r.ClientKey] = make(map[string]bool)
			seenPeriod[r.ClientKey] = make(map[string]bool)
			order = append(order, r.ClientKey)
		}
		f.Count++
		if !seenRaw[r.ClientKey][r.ClientRaw] {
			seenRaw[r.ClientKey][r.ClientRaw] = true
			f.RawIdentifiers = append(f.RawIdentifiers, r.ClientRaw)
		}
		if !seenPeriod[r.ClientKey][r.Period] {
			seenPeriod[r.ClientKey][r.Period] = true
			f.Periods = append(f.Periods, r.Period)
		}
	}

	out := make([]model.DuplicateFlag, 0)
	for _, key := range order {
		if f := flags[key]; f.Count > 1 {
			out = append(out, *f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ClientKey < out[j].ClientKey
	})
	return out
}
