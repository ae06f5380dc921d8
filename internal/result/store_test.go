package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tank-risk/internal/factor"
)

func TestUpdateCreatesAssetLazily(t *testing.T) {
	s := New(factor.Default(), "")
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.Update("e1", "LakesNHDHighRes", 40.0, 5))
	require.NoError(t, s.Update("e1", "Wetlands", 0, 0))
	require.NoError(t, s.Update("e2", "LakesNHDHighRes", 400.0, 1))
	assert.Equal(t, 2, s.Len())

	c, ok := s.Get("e1", "LakesNHDHighRes")
	require.True(t, ok)
	assert.Equal(t, Cell{Factor: "LakesNHDHighRes", Value: 40.0, Severity: 5}, c)

	_, ok = s.Get("e2", "Wetlands")
	assert.False(t, ok)
}

func TestUpdateUnknownFactor(t *testing.T) {
	s := New(factor.Default(), "")
	err := s.Update("e1", "Volcanoes", 1, 1)
	require.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestUpdateNonSharedOverwrites(t *testing.T) {
	s := New(factor.Default(), "")
	require.NoError(t, s.Update("e1", "StreamsNHDHighRes", 20.0, 5))
	require.NoError(t, s.Update("e1", "StreamsNHDHighRes", 500.0, 1))

	c, _ := s.Get("e1", "StreamsNHDHighRes")
	assert.Equal(t, 1, c.Severity)
	assert.Equal(t, 500.0, c.Value)
}

func TestSharedMergeOrderIndependent(t *testing.T) {
	type update struct {
		factor string
		value  int
		sev    int
	}
	updates := []update{
		{"GroundWaterZones", 3, 3},
		{"SurfaceWaterZones", 1, 5},
		{"GroundWaterZones", 4, 2},
	}
	orders := [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}

	for _, order := range orders {
		s := New(factor.Default(), "")
		for _, i := range order {
			u := updates[i]
			require.NoError(t, s.Update("e1", u.factor, u.value, u.sev))
		}
		c, ok := s.Get("e1", "GroundWaterZones")
		require.True(t, ok)
		assert.Equal(t, 5, c.Severity, "order %v", order)
		assert.Equal(t, 1, c.Value, "order %v", order)
		assert.Equal(t, "SurfaceWaterZones", c.Factor, "order %v", order)
	}
}

func TestSharedMergeKeepsFirstOnTie(t *testing.T) {
	s := New(factor.Default(), "")
	require.NoError(t, s.Update("e1", "GroundWaterZones", 0, 0))
	require.NoError(t, s.Update("e1", "SurfaceWaterZones", nil, 0))

	c, _ := s.Get("e1", "SurfaceWaterZones")
	assert.Equal(t, "GroundWaterZones", c.Factor)
	assert.Equal(t, 0, c.Value)
}

func TestHeaderDedup(t *testing.T) {
	s := New(factor.Default(), "")
	header, pairs, err := s.Header([]string{"LakesNHDHighRes", "GroundWaterZones", "Wetlands", "SurfaceWaterZones"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"FACILITYID",
		"lakesVal", "lakeSev",
		"udwspzVal", "udwspzSev",
		"wetLandsVal", "wetLandsSev",
	}, header)
	assert.Len(t, pairs, 3)
}

func TestHeaderUnknownFactor(t *testing.T) {
	s := New(factor.Default(), "")
	_, _, err := s.Header([]string{"Nope"})
	assert.Error(t, err)
}

func TestBuildRows(t *testing.T) {
	s := New(factor.Default(), "TANK_ID")
	require.NoError(t, s.Update("e2", "LakesNHDHighRes", 400.0, 1))
	require.NoError(t, s.Update("e1", "LakesNHDHighRes", 40.0, 5))
	require.NoError(t, s.Update("e1", "CensusTracts2010", 0.002, 5))

	header, rows, err := s.BuildRows([]string{"LakesNHDHighRes", "CensusTracts2010"})
	require.NoError(t, err)

	assert.Equal(t, []string{"TANK_ID", "lakesVal", "lakeSev", "censusVal", "censusSev"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, []any{"e2", 400.0, 1, nil, nil}, rows[0])
	assert.Equal(t, []any{"e1", 40.0, 5, 0.002, 5}, rows[1])
}

func TestBuildRowsEmpty(t *testing.T) {
	s := New(factor.Default(), "")
	header, rows, err := s.BuildRows(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"FACILITYID"}, header)
	assert.Empty(t, rows)
}
