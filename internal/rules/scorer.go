package rules

import (
	"math"
	"strings"

	"github.com/spf13/cast"
)

// Input is the raw material a Scorer sees for one asset: the near distance to
// the closest feature and any attribute columns joined from that feature.
type Input struct {
	Distance   any
	Attributes map[string]any
}

// Score is the scored (value, severity) pair for one asset and one factor.
type Score struct {
	Value    any
	Severity int
}

// Scorer scores one record. A *ScoringError fails only that record.
type Scorer func(in Input) (Score, error)

// Polygon scores point-in-polygon membership from the near distance.
func Polygon() Scorer {
	return func(in Input) (Score, error) {
		d, err := toFloat("polygon", "distance", in.Distance)
		if err != nil {
			return Score{}, err
		}
		v, sev := PolygonMembership(d)
		return Score{Value: v, Severity: sev}, nil
	}
}

// Distance scores the near distance against the distance ladder. The distance
// itself is the factor value.
func Distance() Scorer {
	return func(in Input) (Score, error) {
		d, err := toFloat("distance", "distance", in.Distance)
		if err != nil {
			return Score{}, err
		}
		sev, err := DistanceSeverity(d)
		if err != nil {
			return Score{}, err
		}
		return Score{Value: d, Severity: sev}, nil
	}
}

// Category scores a categorical attribute column through a lookup table.
func Category(column string, table map[string]int) Scorer {
	return func(in Input) (Score, error) {
		raw, ok := attribute(in.Attributes, column)
		if !ok || raw == nil {
			return Score{}, newScoringError("category", "missing category column %s", column)
		}
		s, err := cast.ToStringE(raw)
		if err != nil {
			return Score{}, newScoringError("category", "column %s: %v", column, err)
		}
		s = strings.TrimSpace(s)
		return Score{Value: s, Severity: CategoryLookup(s, table)}, nil
	}
}

// Density scores population per unit area from two numeric columns.
func Density(populationColumn, areaColumn string) Scorer {
	return func(in Input) (Score, error) {
		pop, err := attributeFloat("density", in.Attributes, populationColumn)
		if err != nil {
			return Score{}, err
		}
		area, err := attributeFloat("density", in.Attributes, areaColumn)
		if err != nil {
			return Score{}, err
		}
		ratio, sev, err := DensitySeverity(pop, area)
		if err != nil {
			return Score{}, err
		}
		return Score{Value: ratio, Severity: sev}, nil
	}
}

// ProtectionZone scores a protection zone code column, gated by the near
// distance: only assets inside the zone polygon score.
func ProtectionZone(column string) Scorer {
	return func(in Input) (Score, error) {
		gating, err := toFloat("protection_zone", "distance", in.Distance)
		if err != nil {
			return Score{}, err
		}
		// Outside the zone the zone code is not consulted.
		if gating != 0 {
			v, sev := ProtectionZoneSeverity(0, gating)
			return Score{Value: v, Severity: sev}, nil
		}
		z, err := attributeFloat("protection_zone", in.Attributes, column)
		if err != nil {
			return Score{}, err
		}
		if z != math.Trunc(z) {
			return Score{}, newScoringError("protection_zone", "zone %v is not an integer code", z)
		}
		v, sev := ProtectionZoneSeverity(int(z), gating)
		return Score{Value: v, Severity: sev}, nil
	}
}

// Unrated records the attribute value without assigning a severity. Used for
// factors whose business rule has not been decided yet.
func Unrated(column string) Scorer {
	return func(in Input) (Score, error) {
		raw, ok := attribute(in.Attributes, column)
		if !ok {
			return Score{}, newScoringError("unrated", "missing column %s", column)
		}
		return Score{Value: raw, Severity: SeverityNone}, nil
	}
}

// attribute looks a column up by exact name, falling back to a
// case-insensitive match since database adapters may fold column names.
func attribute(attrs map[string]any, column string) (any, bool) {
	if v, ok := attrs[column]; ok {
		return v, true
	}
	for k, v := range attrs {
		if strings.EqualFold(k, column) {
			return v, true
		}
	}
	return nil, false
}

func attributeFloat(rule string, attrs map[string]any, column string) (float64, error) {
	raw, ok := attribute(attrs, column)
	if !ok {
		return 0, newScoringError(rule, "missing column %s", column)
	}
	return toFloat(rule, column, raw)
}

func toFloat(rule, field string, raw any) (float64, error) {
	if raw == nil {
		return 0, newScoringError(rule, "%s is null", field)
	}
	if s, ok := raw.(string); ok {
		raw = strings.TrimSpace(s)
		if raw == "" {
			return 0, newScoringError(rule, "%s is empty", field)
		}
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, newScoringError(rule, "%s is not numeric: %v", field, raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, newScoringError(rule, "%s is not finite", field)
	}
	return f, nil
}
