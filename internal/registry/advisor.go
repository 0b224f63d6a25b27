// Package registry loads the advisor directory from a roster file or the
// built-in default roster.
package registry

import (
	"bytes"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/assessor-cli/internal/model"
)

// DefaultVersion identifies the built-in roster.
const DefaultVersion = "builtin-2024.10"

// rosterFile is the on-disk roster format.
//
//	version: "2025-01"
//	unknown_label: "Assessor Desconhecido"
//	advisors:
//	  - code: "74930"
//	    name: "Renato Parentoni"
type rosterFile struct {
	Version      string          `yaml:"version"`
	UnknownLabel string          `yaml:"unknown_label"`
	Advisors     []model.Advisor `yaml:"advisors"`
}

// defaultRoster is the advisor roster shipped with the CLI.
var defaultRoster = []model.Advisor{
	{Code: "74930", Name: "Renato Parentoni"},
	{Code: "67717", Name: "Marcos Moore"},
	{Code: "20257", Name: "Eduardo Campos"},
	{Code: "29187", Name: "Ronny Mikyo"},
	{Code: "24264", Name: "Geison Evangelista"},
	{Code: "67704", Name: "Augusto Cesar"},
	{Code: "29045", Name: "Paulo Ricardo"},
	{Code: "73453", Name: "Pedro Jeha"},
	{Code: "74036", Name: "Balby"},
	{Code: "72295", Name: "Luiz Santos"},
	{Code: "31610", Name: "Lucas Sampaio"},
	{Code: "74232", Name: "Paulo Ribeiro"},
	{Code: "31027", Name: "Lucas Coutinho"},
	{Code: "74339", Name: "Ronaldy Abdon"},
	{Code: "26553", Name: "Flavio PiGari"},
	{Code: "74780", Name: "Marcio Leça"},
	{Code: "32763", Name: "Eduardo Chemale"},
	{Code: "30313", Name: "Gabriel Gianini"},
	{Code: "32348", Name: "Victor Anfranzio"},
	{Code: "27277", Name: "Tuli"},
	{Code: "33115", Name: "Eduardo Carvalho"},
	{Code: "37303", Name: "Johan"},
	{Code: "71097", Name: "Vinicius"},
	{Code: "29428", Name: "Fred"},
	{Code: "31704", Name: "Ander"},
}

// DefaultDirectory returns the built-in roster. unknownLabel overrides the
// sentinel name when non-empty.
func DefaultDirectory(unknownLabel string) *model.AdvisorDirectory {
	return model.NewAdvisorDirectory(DefaultVersion, unknownLabel, defaultRoster)
}

// LoadAdvisorDirectory reads a YAML roster from path. An empty path returns
// the built-in roster. unknownLabel, when set, wins over the file's label.
func LoadAdvisorDirectory(path, unknownLabel string) (*model.AdvisorDirectory, error) {
	if path == "" {
		return DefaultDirectory(unknownLabel), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: read roster %s", path)
	}

	dir, err := ParseAdvisorDirectory(data, unknownLabel)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: roster %s", path)
	}

	zap.L().Info("registry: loaded advisor directory",
		zap.String("path", path),
		zap.String("version", dir.Version()),
		zap.Int("advisors", dir.Len()),
	)
	return dir, nil
}

// ParseAdvisorDirectory decodes a YAML roster. Entries without a code are
// skipped with a warning; a roster with no usable entries is an error.
func ParseAdvisorDirectory(data []byte, unknownLabel string) (*model.AdvisorDirectory, error) {
	var rf rosterFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rf); err != nil {
		return nil, eris.Wrap(err, "registry: decode roster")
	}

	advisors := make([]model.Advisor, 0, len(rf.Advisors))
	for i, a := range rf.Advisors {
		if a.Code == "" {
			zap.L().Warn("registry: skipping roster entry without code",
				zap.Int("index", i),
				zap.String("name", a.Name),
			)
			continue
		}
		advisors = append(advisors, a)
	}
	if len(advisors) == 0 {
		return nil, eris.New("registry: roster has no advisors")
	}

	label := rf.UnknownLabel
	if unknownLabel != "" {
		label = unknownLabel
	}
	return model.NewAdvisorDirectory(rf.Version, label, advisors), nil
}
