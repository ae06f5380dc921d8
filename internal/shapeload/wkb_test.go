package shapeload

import (
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

func TestEncodeEWKB_Point(t *testing.T) {
	data, err := EncodeEWKB(&shp.Point{X: -111.89, Y: 40.76})
	require.NoError(t, err)

	g, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	p, ok := g.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, SRID, p.SRID())
	assert.InDelta(t, -111.89, p.X(), 1e-9)
}

func TestEncodeEWKB_PolyLine(t *testing.T) {
	pl := shp.NewPolyLine([][]shp.Point{
		{{X: 0, Y: 0}, {X: 1, Y: 1}},
		{{X: 2, Y: 2}, {X: 3, Y: 3}, {X: 4, Y: 3}},
	})
	data, err := EncodeEWKB(pl)
	require.NoError(t, err)

	g, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	mls, ok := g.(*geom.MultiLineString)
	require.True(t, ok)
	assert.Equal(t, 2, mls.NumLineStrings())
	assert.Equal(t, 3, mls.LineString(1).NumCoords())
}

func TestEncodeEWKB_NilAndUnsupported(t *testing.T) {
	data, err := EncodeEWKB(nil)
	assert.NoError(t, err)
	assert.Nil(t, data)

	data, err = EncodeEWKB(&shp.MultiPoint{})
	assert.NoError(t, err)
	assert.Nil(t, data)

	data, err = EncodeEWKB(&shp.Polygon{})
	assert.NoError(t, err)
	assert.Nil(t, data)
}
