package proximity

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePoints(t *testing.T, path string, fields []shp.Field, rows [][]any) {
	t.Helper()
	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields(fields))
	for i, row := range rows {
		n := w.Write(&shp.Point{X: float64(i), Y: float64(i)})
		for j, v := range row {
			require.NoError(t, w.WriteAttribute(int(n), j, v))
		}
	}
	w.Close()
}

func fixture(t *testing.T) (dir, assets, census string) {
	t.Helper()
	dir = t.TempDir()
	assets = filepath.Join(dir, "tanks.shp")
	census = filepath.Join(dir, "CensusTracts2010.shp")

	writePoints(t, assets, []shp.Field{shp.StringField("FACILITYID", 20)},
		[][]any{{"e1"}, {"e2"}, {"e3"}})
	writePoints(t, census, []shp.Field{shp.NumberField("POP100", 10), shp.FloatField("AREALAND", 16, 2)},
		[][]any{{10, 5000.0}, {200, 100000.0}})

	near := "IN_FID,NEAR_FID,NEAR_DIST\n0,1,0\n1,0,12.5\n2,-1,-1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "near_CensusTracts2010.csv"), []byte(near), 0o644))
	return dir, assets, census
}

func TestFiles_GenerateNearTable(t *testing.T) {
	dir, assets, census := fixture(t)
	f := NewFiles(dir, "")

	rows, err := f.GenerateNearTable(context.Background(), assets, census)
	require.NoError(t, err)
	assert.Equal(t, []NearRow{
		{AssetID: "e1", TargetID: 1, Distance: "0"},
		{AssetID: "e2", TargetID: 0, Distance: "12.5"},
		{AssetID: "e3", TargetID: NoTarget},
	}, rows)
}

func TestFiles_GenerateNearTable_Missing(t *testing.T) {
	dir, assets, _ := fixture(t)
	_, err := NewFiles(dir, "").GenerateNearTable(context.Background(), assets, "/x/Wetlands.shp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "near_Wetlands.csv")
}

func TestFiles_GenerateNearTable_BadAssetField(t *testing.T) {
	dir, assets, census := fixture(t)
	_, err := NewFiles(dir, "TANK_ID").GenerateNearTable(context.Background(), assets, census)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no column TANK_ID")
}

func TestFiles_JoinAttributes(t *testing.T) {
	dir, _, census := fixture(t)
	f := NewFiles(dir, "")

	got, err := f.JoinAttributes(context.Background(), census, []int64{1}, []string{"pop100", "AREALAND"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "200", got[1]["pop100"])
	assert.Equal(t, "100000.00", got[1]["AREALAND"])

	_, err = f.JoinAttributes(context.Background(), census, []int64{0}, []string{"DEPTH"})
	assert.Error(t, err)
}

func TestFiles_Fields(t *testing.T) {
	dir, _, census := fixture(t)
	fields, err := NewFiles(dir, "").Fields(context.Background(), census)
	require.NoError(t, err)
	assert.Equal(t, []string{"POP100", "AREALAND"}, fields)

	_, err = NewFiles(dir, "").Fields(context.Background(), filepath.Join(dir, "none"))
	assert.Error(t, err)
}
