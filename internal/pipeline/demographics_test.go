package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/assessor-cli/internal/model"
)

func TestAgeAt(t *testing.T) {
	birth := time.Date(2000, time.June, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		today    time.Time
		expected int
	}{
		{name: "day before birthday", today: time.Date(2024, time.June, 14, 0, 0, 0, 0, time.UTC), expected: 23},
		{name: "birthday", today: time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC), expected: 24},
		{name: "after birthday", today: time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC), expected: 24},
		{name: "earlier month", today: time.Date(2024, time.May, 30, 0, 0, 0, 0, time.UTC), expected: 23},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AgeAt(birth, tt.today))
		})
	}
}

func TestNormalizeSex(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "M", expected: "Male"},
		{input: " m ", expected: "Male"},
		{input: "f", expected: "Female"},
		{input: "FEMININO", expected: "Feminino"},
		{input: "outro", expected: "Outro"},
		{input: "  ", expected: ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSex(tt.input))
		})
	}
}

func TestAgeBucket(t *testing.T) {
	age := func(n int) *int { return &n }
	assert.Equal(t, CohortUnknown, AgeBucket(nil))
	assert.Equal(t, CohortUnknown, AgeBucket(age(-1)))
	assert.Equal(t, "0-24", AgeBucket(age(0)))
	assert.Equal(t, "0-24", AgeBucket(age(24)))
	assert.Equal(t, "25-34", AgeBucket(age(25)))
	assert.Equal(t, "55-64", AgeBucket(age(64)))
	assert.Equal(t, "65+", AgeBucket(age(90)))
}

func TestEnrich(t *testing.T) {
	records := mustMerge(t, testBatch("May 2024",
		[]string{"100", "C1", "", "", "", "", "", "10", "m", "2000-06-15"},
		[]string{"100", "C2", "", "", "", "", "", "10", "", ""},
		[]string{"100", "C3", "", "", "", "", "", "10", "F", "garbage"},
	)).Records

	enriched := Enrich(records, time.Date(2024, time.June, 14, 0, 0, 0, 0, time.UTC))
	require.Equal(t, 3, enriched.Len())

	r0 := enriched.At(0)
	assert.Equal(t, "Male", r0.Sex)
	require.NotNil(t, r0.Age)
	assert.Equal(t, 23, *r0.Age)

	assert.Nil(t, enriched.At(1).Age)
	assert.Equal(t, "", enriched.At(1).Sex)
	assert.Nil(t, enriched.At(2).Age)
	assert.Equal(t, "Female", enriched.At(2).Sex)

	// The input set is untouched.
	assert.Equal(t, "m", records.At(0).Sex)
	assert.Nil(t, records.At(0).Age)
}

func TestDemographicBreakdown(t *testing.T) {
	records := Enrich(mustMerge(t,
		testBatch("May 2024",
			[]string{"100", "C1", "", "", "", "", "", "10", "M", "2000-06-15"},
			[]string{"200", "C1", "", "", "", "", "", "5", "M", "2000-06-15"},
			[]string{"100", "C2", "", "", "", "", "", "20", "F", "1950-01-01"},
			[]string{"100", "C3", "", "", "", "", "", "1", "", ""},
		),
	).Records, testToday)

	d := DemographicBreakdown(records, nil)

	require.Len(t, d.BySex, 3)
	assert.Equal(t, "Male", d.BySex[0].Cohort)
	assert.Equal(t, 1, d.BySex[0].Clients)
	assertDecimal(t, "15", d.BySex[0].Revenue)
	assert.Equal(t, "Female", d.BySex[1].Cohort)
	assert.Equal(t, CohortUnknown, d.BySex[2].Cohort)

	byAge := make(map[string]model.CohortRow)
	for _, row := range d.ByAge {
		byAge[row.Cohort] = row
	}
	require.Len(t, d.ByAge, 7)
	assert.Equal(t, "0-24", d.ByAge[0].Cohort)
	assert.Equal(t, CohortUnknown, d.ByAge[6].Cohort)
	assert.Equal(t, 1, byAge["0-24"].Clients)
	assert.Equal(t, 1, byAge["65+"].Clients)
	assert.Equal(t, 1, byAge[CohortUnknown].Clients)
	assert.Equal(t, 0, byAge["35-44"].Clients)
	assertDecimal(t, "20", byAge["65+"].Revenue)
}
