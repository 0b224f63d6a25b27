package model

import (
	"sort"

	"github.com/sells-group/assessor-cli/internal/resolve"
)

// UnknownAdvisor is the label given to advisor codes missing from the directory.
const UnknownAdvisor = "Assessor Desconhecido"

// Advisor maps an advisor code to a display name.
type Advisor struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

// AdvisorDirectory is a versioned, read-only index of advisor codes.
// Codes are stored normalized so lookups tolerate formatting noise.
type AdvisorDirectory struct {
	version string
	unknown string
	byKey   map[string]Advisor
}

// NewAdvisorDirectory indexes advisors by normalized code. Later entries with
// the same code replace earlier ones. An empty unknown label falls back to
// UnknownAdvisor.
func NewAdvisorDirectory(version, unknown string, advisors []Advisor) *AdvisorDirectory {
	if unknown == "" {
		unknown = UnknownAdvisor
	}
	d := &AdvisorDirectory{
		version: version,
		unknown: unknown,
		byKey:   make(map[string]Advisor, len(advisors)),
	}
	for _, a := range advisors {
		key := resolve.NormalizeCode(a.Code)
		if key == "" {
			continue
		}
		d.byKey[key] = Advisor{Code: key, Name: a.Name}
	}
	return d
}

// Version returns the roster version the directory was built from.
func (d *AdvisorDirectory) Version() string {
	return d.version
}

// UnknownLabel returns the sentinel label for unmapped codes.
func (d *AdvisorDirectory) UnknownLabel() string {
	return d.unknown
}

// Lookup returns the advisor name for an already-normalized key.
func (d *AdvisorDirectory) Lookup(key string) (string, bool) {
	a, ok := d.byKey[key]
	return a.Name, ok
}

// Name returns the advisor name for a normalized key, or the sentinel label.
func (d *AdvisorDirectory) Name(key string) string {
	if name, ok := d.Lookup(key); ok {
		return name
	}
	return d.unknown
}

// Len returns the number of advisors in the directory.
func (d *AdvisorDirectory) Len() int {
	return len(d.byKey)
}

// Advisors returns every advisor sorted by code.
func (d *AdvisorDirectory) Advisors() []Advisor {
	out := make([]Advisor, 0, len(d.byKey))
	for _, a := range d.byKey {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// WithOverrides returns a new directory with the given advisors added or
// replaced. The receiver is left untouched.
func (d *AdvisorDirectory) WithOverrides(version string, overrides []Advisor) *AdvisorDirectory {
	merged := append(d.Advisors(), overrides...)
	if version == "" {
		version = d.version
	}
	return NewAdvisorDirectory(version, d.unknown, merged)
}
