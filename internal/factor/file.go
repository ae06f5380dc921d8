package factor

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/tank-risk/internal/rules"
)

// File is the on-disk form of catalog additions and overrides.
type File struct {
	Factors []FileFactor      `yaml:"factors"`
	Aliases map[string]string `yaml:"aliases"`
}

// FileFactor describes one factor in a factors file.
type FileFactor struct {
	Name          string   `yaml:"name"`
	Kind          string   `yaml:"kind"`
	ValueField    string   `yaml:"value_field"`
	SeverityField string   `yaml:"severity_field"`
	Required      []string `yaml:"required"`
	Rule          FileRule `yaml:"rule"`
}

// FileRule selects and parameterizes a scoring rule.
type FileRule struct {
	Type       string         `yaml:"type"`
	Column     string         `yaml:"column"`
	Population string         `yaml:"population"`
	Area       string         `yaml:"area"`
	Categories map[string]int `yaml:"categories"`
}

// LoadFile reads a factors file and merges it over base.
func LoadFile(path string, base *Catalog) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "factor: read %s", path)
	}
	return Parse(data, base)
}

// Parse decodes a factors document and merges it over base.
func Parse(data []byte, base *Catalog) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "factor: decode factors file")
	}

	defs := make([]Definition, 0, len(f.Factors))
	for _, ff := range f.Factors {
		d, err := ff.definition()
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}

	c, err := base.Merge(defs, f.Aliases)
	if err != nil {
		return nil, eris.Wrap(err, "factor: merge factors file")
	}
	return c, nil
}

func (ff FileFactor) definition() (Definition, error) {
	kind, err := ParseKind(ff.Kind)
	if err != nil {
		return Definition{}, eris.Wrapf(err, "factor: %s", ff.Name)
	}

	column := ff.Rule.Column
	if column == "" && len(ff.Required) > 0 {
		column = ff.Required[0]
	}

	var score rules.Scorer
	switch ff.Rule.Type {
	case "polygon":
		score = rules.Polygon()
	case "distance":
		score = rules.Distance()
	case "category":
		score = rules.Category(column, ff.Rule.Categories)
	case "density":
		pop, area := ff.Rule.Population, ff.Rule.Area
		if pop == "" && area == "" && len(ff.Required) == 2 {
			pop, area = ff.Required[0], ff.Required[1]
		}
		score = rules.Density(pop, area)
	case "protection_zone":
		score = rules.ProtectionZone(column)
	case "unrated":
		score = rules.Unrated(column)
	case "":
		score = defaultRule(kind)
	default:
		return Definition{}, eris.Errorf("factor: %s: unknown rule type %q", ff.Name, ff.Rule.Type)
	}
	if score == nil {
		return Definition{}, eris.Errorf("factor: %s: %s factors need an explicit rule", ff.Name, kind)
	}

	return Definition{
		Name:          ff.Name,
		Kind:          kind,
		ValueField:    ff.ValueField,
		SeverityField: ff.SeverityField,
		Required:      ff.Required,
		Score:         score,
	}, nil
}

func defaultRule(k Kind) rules.Scorer {
	switch k {
	case InPolygon:
		return rules.Polygon()
	case Distance:
		return rules.Distance()
	default:
		return nil
	}
}
