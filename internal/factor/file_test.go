package factor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tank-risk/internal/rules"
)

func TestParseFactorsFile(t *testing.T) {
	doc := `
factors:
  - name: Soils
    kind: attribute
    value_field: soilVal
    severity_field: soilSev
    required: [TEX_DEF]
    rule:
      type: category
      categories:
        gravel: 5
        sand: 4
        clay: 1
  - name: Wells
    kind: distance
    value_field: wellVal
    severity_field: wellSev
  - name: CensusTracts2020
    kind: attribute
    value_field: censusVal
    severity_field: censusSev
    required: [POP100, ALAND]
    rule:
      type: density
aliases:
  census_tracts_2020: CensusTracts2020
`
	c, err := Parse([]byte(doc), Default())
	require.NoError(t, err)

	soils, err := c.Lookup("Soils")
	require.NoError(t, err)
	s, err := soils.Score(rules.Input{Attributes: map[string]any{"TEX_DEF": "gravel"}})
	require.NoError(t, err)
	assert.Equal(t, 5, s.Severity)

	wells, err := c.Lookup("Wells")
	require.NoError(t, err)
	s, err = wells.Score(rules.Input{Distance: 100.0})
	require.NoError(t, err)
	assert.Equal(t, 4, s.Severity)

	census, err := c.Resolve("opensgid.demographic.census_tracts_2020")
	require.NoError(t, err)
	assert.Equal(t, "CensusTracts2020", census.Name)
	assert.True(t, census.Shared, "shares censusVal/censusSev with CensusTracts2010")
	s, err = census.Score(rules.Input{Attributes: map[string]any{"POP100": 5, "ALAND": 50000}})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Severity)
}

func TestParseFactorsFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"bad yaml", "factors: [", "decode factors file"},
		{"bad kind", "factors:\n  - name: X\n    kind: raster\n", "unknown kind"},
		{"bad rule", "factors:\n  - name: X\n    kind: distance\n    rule: {type: magic}\n", "unknown rule type"},
		{"attribute without rule", "factors:\n  - name: X\n    kind: attribute\n    value_field: a\n    severity_field: b\n    required: [C]\n", "need an explicit rule"},
		{"missing fields", "factors:\n  - name: X\n    kind: distance\n", "value and severity fields are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), Default())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "factors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aliases:\n  pods: wrpod\n"), 0o644))

	c, err := LoadFile(path, Default())
	require.NoError(t, err)
	d, err := c.Resolve("/x/pods.shp")
	require.NoError(t, err)
	assert.Equal(t, "wrpod", d.Name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), Default())
	assert.Error(t, err)
}
