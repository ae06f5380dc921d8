// Package factor defines risk factors and the catalog that resolves layer
// sources to their definitions.
package factor

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tank-risk/internal/rules"
)

// Kind classifies how a factor is measured.
type Kind int

const (
	// InPolygon factors score point-in-polygon membership.
	InPolygon Kind = iota + 1
	// Distance factors score the distance to the nearest feature.
	Distance
	// Attribute factors score attribute columns joined from the nearest feature.
	Attribute
)

func (k Kind) String() string {
	switch k {
	case InPolygon:
		return "inPolygon"
	case Distance:
		return "distance"
	case Attribute:
		return "attribute"
	default:
		return "unknown"
	}
}

// ParseKind parses the names produced by Kind.String, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inpolygon", "in_polygon", "polygon":
		return InPolygon, nil
	case "distance":
		return Distance, nil
	case "attribute":
		return Attribute, nil
	default:
		return 0, eris.Errorf("factor: unknown kind %q", s)
	}
}

// FieldPair identifies the output columns a factor writes to.
type FieldPair struct {
	Value    string
	Severity string
}

// Definition describes one risk factor. Definitions are immutable once
// registered in a Catalog.
type Definition struct {
	Name          string
	Kind          Kind
	ValueField    string
	SeverityField string
	// Required lists the source columns joined from the risk layer.
	// Only Attribute factors use them.
	Required []string
	// Shared is set by the catalog when another factor writes the same field
	// pair. Updates to a shared pair only overwrite a strictly lower severity.
	Shared bool
	Score  rules.Scorer
}

// Fields returns the output field pair of the definition.
func (d Definition) Fields() FieldPair {
	return FieldPair{Value: d.ValueField, Severity: d.SeverityField}
}

// UnknownFactorError is returned when a name is not in the catalog.
type UnknownFactorError struct {
	Name string
}

func (e *UnknownFactorError) Error() string {
	return fmt.Sprintf("factor: unknown risk factor %q", e.Name)
}
