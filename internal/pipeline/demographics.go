package pipeline

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/assessor-cli/internal/model"
)

// CohortUnknown labels records with no usable sex or age.
const CohortUnknown = "Unknown"

// sexLabels maps single-letter codes to language-neutral labels.
var sexLabels = map[string]string{
	"M": "Male",
	"F": "Female",
}

// ageBuckets are the age cohorts, lower bound inclusive.
var ageBuckets = []struct {
	label string
	min   int
}{
	{"65+", 65},
	{"55-64", 55},
	{"45-54", 45},
	{"35-44", 35},
	{"25-34", 25},
	{"0-24", 0},
}

// NormalizeSex trims and title-cases a sex value, then maps "M" and "F" to
// "Male" and "Female". Other values pass through title-cased.
func NormalizeSex(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = cases.Title(language.Und).String(s)
	if label, ok := sexLabels[s]; ok {
		return label
	}
	return s
}

// AgeAt returns the age in whole years on today. One year is subtracted when
// today's month and day come before the birthday.
func AgeAt(birth, today time.Time) int {
	age := today.Year() - birth.Year()
	if today.Month() < birth.Month() || (today.Month() == birth.Month() && today.Day() < birth.Day()) {
		age--
	}
	return age
}

// AgeBucket maps an age to its cohort label; nil maps to CohortUnknown.
func AgeBucket(age *int) string {
	if age == nil || *age < 0 {
		return CohortUnknown
	}
	for _, b := range ageBuckets {
		if *age >= b.min {
			return b.label
		}
	}
	return CohortUnknown
}

// Enrich returns a new record set with normalized sex and derived age.
// Records without a birth date keep a nil age.
func Enrich(records model.RecordSet, today time.Time) model.RecordSet {
	out := records.All()
	for i := range out {
		out[i].Sex = NormalizeSex(out[i].Sex)
		out[i].Age = nil
		if out[i].BirthDate != nil {
			age := AgeAt(*out[i].BirthDate, today)
			out[i].Age = &age
		}
	}
	return model.NewRecordSet(out)
}

// DemographicBreakdown groups the selected records by sex and by age bucket.
// A client counts once per cohort; revenue is the summed grand total.
func DemographicBreakdown(records model.RecordSet, sel model.Selection) model.Demographics {
	filtered := records.Filter(sel)

	bySex := newCohortTally()
	byAge := newCohortTally()
	for _, label := range ageBucketOrder() {
		byAge.ensure(label)
	}
	for i := 0; i < filtered.Len(); i++ {
		r := filtered.At(i)
		sex := r.Sex
		if sex == "" {
			sex = CohortUnknown
		}
		bySex.add(sex, r)
		byAge.add(AgeBucket(r.Age), r)
	}

	return model.Demographics{
		BySex: bySex.rows(),
		ByAge: byAge.rows(),
	}
}

// ageBucketOrder lists the age cohorts youngest first, then unknown.
func ageBucketOrder() []string {
	out := make([]string, 0, len(ageBuckets)+1)
	for i := len(ageBuckets) - 1; i >= 0; i-- {
		out = append(out, ageBuckets[i].label)
	}
	return append(out, CohortUnknown)
}

type cohortTally struct {
	order   []string
	revenue map[string]decimal.Decimal
	clients map[string]map[string]bool
}

func newCohortTally() *cohortTally {
	return &cohortTally{
		revenue: make(map[string]decimal.Decimal),
		clients: make(map[string]map[string]bool),
	}
}

func (t *cohortTally) ensure(cohort string) {
	if _, ok := t.clients[cohort]; ok {
		return
	}
	t.order = append(t.order, cohort)
	t.revenue[cohort] = decimal.Zero
	t.clients[cohort] = make(map[string]bool)
}

func (t *cohortTally) add(cohort string, r model.UnifiedRecord) {
	t.ensure(cohort)
	t.revenue[cohort] = t.revenue[cohort].Add(r.GrandTotal())
	t.clients[cohort][r.ClientKey] = true
}

func (t *cohortTally) rows() []model.CohortRow {
	out := make([]model.CohortRow, 0, len(t.order))
	for _, c := range t.order {
		out = append(out, model.CohortRow{
			Cohort:  c,
			Clients: len(t.clients[c]),
			Revenue: t.revenue[c],
		})
	}
	return out
}
