package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// periodLayouts are the label formats recognized as calendar months.
var periodLayouts = []string{"January 2006", "Jan 2006", "2006-01", "01/2006"}

// Period is one reporting interval. Labels are free-form; when a label names a
// calendar month, Month holds its first day and drives chronological order.
type Period struct {
	Label string    `json:"label"`
	Month time.Time `json:"month,omitzero"`
}

// ParsePeriod builds a Period from a label such as "October 2024".
func ParsePeriod(label string) Period {
	label = strings.TrimSpace(label)
	p := Period{Label: label}
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, label); err == nil {
			p.Month = t
			break
		}
	}
	return p
}

// MonthPeriod returns the canonical period for a calendar month.
func MonthPeriod(year int, month time.Month) Period {
	return Period{
		Label: fmt.Sprintf("%s %d", month.String(), year),
		Month: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC),
	}
}

// IsMonth reports whether the label was recognized as a calendar month.
func (p Period) IsMonth() bool {
	return !p.Month.IsZero()
}

func (p Period) String() string {
	return p.Label
}

// PeriodSet is an ordered collection of unique periods. Months come first in
// chronological order; unrecognized labels follow in insertion order.
type PeriodSet struct {
	periods []Period
	index   map[string]int
}

// NewPeriodSet deduplicates periods by label and orders them.
func NewPeriodSet(periods ...Period) *PeriodSet {
	s := &PeriodSet{index: make(map[string]int, len(periods))}
	for _, p := range periods {
		if _, ok := s.index[p.Label]; ok {
			continue
		}
		s.index[p.Label] = len(s.periods)
		s.periods = append(s.periods, p)
	}

	sort.SliceStable(s.periods, func(i, j int) bool {
		a, b := s.periods[i], s.periods[j]
		switch {
		case a.IsMonth() && b.IsMonth():
			return a.Month.Before(b.Month)
		case a.IsMonth():
			return true
		default:
			return false
		}
	})
	for i, p := range s.periods {
		s.index[p.Label] = i
	}
	return s
}

// Periods returns a copy of the ordered periods.
func (s *PeriodSet) Periods() []Period {
	out := make([]Period, len(s.periods))
	copy(out, s.periods)
	return out
}

// Labels returns the ordered period labels.
func (s *PeriodSet) Labels() []string {
	out := make([]string, len(s.periods))
	for i, p := range s.periods {
		out[i] = p.Label
	}
	return out
}

// Contains reports whether a period with the given label is in the set.
func (s *PeriodSet) Contains(label string) bool {
	_, ok := s.index[label]
	return ok
}

// Len returns the number of periods.
func (s *PeriodSet) Len() int {
	return len(s.periods)
}

// LastMonths returns the n calendar months preceding ref, skipping excluded
// months. Months are collected newest-first and presented oldest-first.
func LastMonths(ref time.Time, n int, exclude []time.Month) *PeriodSet {
	skip := make(map[time.Month]bool, len(exclude))
	for _, m := range exclude {
		skip[m] = true
	}
	if n <= 0 || len(skip) >= 12 {
		return NewPeriodSet()
	}

	base := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	collected := make([]Period, 0, n)
	for i := 1; len(collected) < n; i++ {
		d := base.AddDate(0, -i, 0)
		if skip[d.Month()] {
			continue
		}
		collected = append(collected, MonthPeriod(d.Year(), d.Month()))
	}
	return NewPeriodSet(collected...)
}

// ParseMonths converts English month names ("April", "apr") to time.Month.
func ParseMonths(names []string) ([]time.Month, error) {
	months := make([]time.Month, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		found := false
		for m := time.January; m <= time.December; m++ {
			full := m.String()
			if strings.EqualFold(name, full) || strings.EqualFold(name, full[:3]) {
				months = append(months, m)
				found = true
				break
			}
		}
		if !found {
			return nil, eris.Errorf("model: unknown month name %q", name)
		}
	}
	return months, nil
}
