package shapeload

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"
)

// SRID of every loaded geometry. Layers are expected in WGS 84.
const SRID = 4326

// EncodeEWKB converts a go-shp shape to EWKB bytes. Lines and polygons are
// always promoted to their multi forms so a layer has a single geometry
// type. Returns nil, nil for nil or unsupported shapes.
func EncodeEWKB(shape shp.Shape) ([]byte, error) {
	if shape == nil {
		return nil, nil
	}

	var g geom.T
	switch s := shape.(type) {
	case *shp.Point:
		g = geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}).SetSRID(SRID)
	case *shp.PolyLine:
		g = multiLineString(s.NumParts, s.Parts, s.Points)
	case *shp.Polygon:
		g = multiPolygon(s.NumParts, s.Parts, s.Points)
	default:
		return nil, nil
	}
	if g == nil {
		return nil, nil
	}

	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "shapeload: encode EWKB")
	}
	return data, nil
}

func parts(numParts int32, starts []int32, points []shp.Point) [][]float64 {
	out := make([][]float64, 0, numParts)
	for i := int32(0); i < numParts; i++ {
		start := starts[i]
		end := int32(len(points))
		if i+1 < numParts {
			end = starts[i+1]
		}
		flat := make([]float64, 0, (end-start)*2)
		for _, p := range points[start:end] {
			flat = append(flat, p.X, p.Y)
		}
		out = append(out, flat)
	}
	return out
}

func multiLineString(numParts int32, starts []int32, points []shp.Point) geom.T {
	if numParts == 0 || len(points) == 0 {
		return nil
	}
	mls := geom.NewMultiLineString(geom.XY).SetSRID(SRID)
	for i, flat := range parts(numParts, starts, points) {
		if err := mls.Push(geom.NewLineStringFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("shapeload: skipping malformed line part", zap.Int("part", i), zap.Error(err))
		}
	}
	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

// multiPolygon treats every ring as the shell of its own polygon. Holes are
// not reconstructed; distance queries only need the outer boundary.
func multiPolygon(numParts int32, starts []int32, points []shp.Point) geom.T {
	if numParts == 0 || len(points) == 0 {
		return nil
	}
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(SRID)
	for i, flat := range parts(numParts, starts, points) {
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("shapeload: skipping malformed ring", zap.Int("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("shapeload: skipping malformed polygon", zap.Int("part", i), zap.Error(err))
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
