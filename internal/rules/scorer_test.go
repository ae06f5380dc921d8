package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceScorer(t *testing.T) {
	s, err := Distance()(Input{Distance: 40.0})
	require.NoError(t, err)
	assert.Equal(t, 40.0, s.Value)
	assert.Equal(t, 5, s.Severity)

	s, err = Distance()(Input{Distance: "400"})
	require.NoError(t, err)
	assert.Equal(t, 400.0, s.Value)
	assert.Equal(t, 1, s.Severity)
}

func TestDistanceScorer_Malformed(t *testing.T) {
	for _, raw := range []any{nil, "", "far", []int{1}} {
		_, err := Distance()(Input{Distance: raw})
		require.Error(t, err, "raw %v", raw)
		assert.True(t, IsScoringError(err))
	}
}

func TestPolygonScorer(t *testing.T) {
	s, err := Polygon()(Input{Distance: int64(0)})
	require.NoError(t, err)
	assert.Equal(t, Score{Value: 1, Severity: 5}, s)

	s, err = Polygon()(Input{Distance: 3.2})
	require.NoError(t, err)
	assert.Equal(t, Score{Value: 0, Severity: 0}, s)
}

func TestCategoryScorer(t *testing.T) {
	table := map[string]int{"Primary recharge": 5, "Discharge": 1}
	sc := Category("ZONE", table)

	s, err := sc(Input{Attributes: map[string]any{"ZONE": "Primary recharge "}})
	require.NoError(t, err)
	assert.Equal(t, "Primary recharge", s.Value)
	assert.Equal(t, 5, s.Severity)

	s, err = sc(Input{Attributes: map[string]any{"zone": "Bedrock recharge"}})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Severity)

	_, err = sc(Input{Attributes: map[string]any{}})
	assert.True(t, IsScoringError(err))

	_, err = sc(Input{Attributes: map[string]any{"ZONE": nil}})
	assert.True(t, IsScoringError(err))
}

func TestDensityScorer(t *testing.T) {
	sc := Density("POP100", "AREALAND")

	s, err := sc(Input{Attributes: map[string]any{"POP100": 100, "AREALAND": "50000"}})
	require.NoError(t, err)
	assert.InDelta(t, 0.002, s.Value, 1e-12)
	assert.Equal(t, 5, s.Severity)

	_, err = sc(Input{Attributes: map[string]any{"POP100": 100, "AREALAND": 0}})
	assert.True(t, IsScoringError(err))

	_, err = sc(Input{Attributes: map[string]any{"POP100": "many", "AREALAND": 10}})
	assert.True(t, IsScoringError(err))
}

func TestProtectionZoneScorer(t *testing.T) {
	sc := ProtectionZone("ProtZone")

	s, err := sc(Input{Distance: 0.0, Attributes: map[string]any{"ProtZone": 2.0}})
	require.NoError(t, err)
	assert.Equal(t, Score{Value: 2, Severity: 4}, s)

	s, err = sc(Input{Distance: 80.0, Attributes: map[string]any{"ProtZone": "1"}})
	require.NoError(t, err)
	assert.Equal(t, Score{Value: 0, Severity: 0}, s)

	_, err = sc(Input{Distance: 0.0, Attributes: map[string]any{"ProtZone": 1.5}})
	assert.True(t, IsScoringError(err))
}

func TestProtectionZoneScorer_OutsideZoneIgnoresZoneColumn(t *testing.T) {
	sc := ProtectionZone("ProtZone")

	tests := []struct {
		name  string
		attrs map[string]any
	}{
		{"null zone", map[string]any{"ProtZone": nil}},
		{"no attributes", nil},
		{"unparseable zone", map[string]any{"ProtZone": "n/a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := sc(Input{Distance: 120.0, Attributes: tt.attrs})
			require.NoError(t, err)
			assert.Equal(t, Score{Value: 0, Severity: 0}, s)
		})
	}

	_, err := sc(Input{Distance: 0.0, Attributes: map[string]any{"ProtZone": nil}})
	assert.True(t, IsScoringError(err), "inside the zone the code is required")
}

func TestUnratedScorer(t *testing.T) {
	s, err := Unrated("TEX_DEF")(Input{Attributes: map[string]any{"TEX_DEF": "loam"}})
	require.NoError(t, err)
	assert.Equal(t, "loam", s.Value)
	assert.Equal(t, 0, s.Severity)

	_, err = Unrated("DEPTH")(Input{Attributes: map[string]any{}})
	assert.True(t, IsScoringError(err))
}
