// Package rules implements the scoring rules that turn raw proximity and
// attribute measurements into a (value, severity) pair.
package rules

import (
	"math"
)

// Severity bounds. Every rule returns a severity in [SeverityNone, SeverityMax].
const (
	SeverityNone = 0
	SeverityMax  = 5
)

// Distance ladder upper bounds in meters, inclusive. A distance beyond the
// last bound scores 1.
var distanceLadder = []struct {
	max      float64
	severity int
}{
	{56, 5},
	{114, 4},
	{192, 3},
	{332, 2},
}

// Population density thresholds (people per square meter), exclusive.
var densityLadder = []struct {
	min      float64
	severity int
}{
	{0.00181, 5},
	{0.00108, 4},
	{0.0000274, 3},
	{0.00000723, 2},
	{0, 1},
}

// protectionZones maps a drinking water source protection zone code to severity.
var protectionZones = map[int]int{
	1: 5,
	2: 4,
	3: 3,
	4: 2,
}

// PolygonMembership scores point-in-polygon membership, where a near distance
// of zero means the asset lies inside the polygon.
func PolygonMembership(distance float64) (value, severity int) {
	if distance == 0 {
		return 1, SeverityMax
	}
	return 0, SeverityNone
}

// DistanceSeverity scores a non-negative distance in meters. Negative or NaN
// distances return an error.
func DistanceSeverity(distance float64) (int, error) {
	if math.IsNaN(distance) || distance < 0 {
		return SeverityNone, newScoringError("distance", "invalid distance %v", distance)
	}
	for _, step := range distanceLadder {
		if distance <= step.max {
			return step.severity, nil
		}
	}
	return 1, nil
}

// CategoryLookup returns the severity mapped to value, or SeverityNone when the
// value is not in the table.
func CategoryLookup(value string, table map[string]int) int {
	if sev, ok := table[value]; ok {
		return sev
	}
	return SeverityNone
}

// DensitySeverity scores population density. The ratio is returned as the
// factor value. A zero area is a scoring error.
func DensitySeverity(population, area float64) (float64, int, error) {
	if area == 0 || math.IsNaN(area) || math.IsNaN(population) {
		return 0, SeverityNone, newScoringError("density", "cannot divide population %v by area %v", population, area)
	}
	ratio := population / area
	for _, step := range densityLadder {
		if ratio > step.min {
			return ratio, step.severity, nil
		}
	}
	return ratio, SeverityNone, nil
}

// ProtectionZoneSeverity scores a source protection zone. A non-zero gating
// distance means the asset lies outside the zone polygon and scores (0, 0).
func ProtectionZoneSeverity(zone int, gatingDistance float64) (value, severity int) {
	if gatingDistance != 0 {
		return 0, SeverityNone
	}
	return zone, protectionZones[zone]
}
