// Package shapeload loads shapefile layers into PostGIS tables that the
// PostGIS proximity service can query.
package shapeload

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tank-risk/internal/db"
)

// Fixed columns added to every loaded table.
const (
	IDColumn   = "gid"
	GeomColumn = "geom"
)

// Column is one DBF attribute column and its Postgres type.
type Column struct {
	Name string
	Type string
}

// Layer is a parsed shapefile ready for COPY: each row holds the gid, the
// typed attributes in Columns order, and the EWKB geometry.
type Layer struct {
	Columns  []Column
	GeomType string
	Rows     [][]any
	Skipped  int
}

// ColumnNames returns the COPY column list.
func (l *Layer) ColumnNames() []string {
	names := make([]string, 0, len(l.Columns)+2)
	names = append(names, IDColumn)
	for _, c := range l.Columns {
		names = append(names, c.Name)
	}
	return append(names, GeomColumn)
}

// DDL returns the CREATE TABLE statement for table.
func (l *Layer) DDL(table string) string {
	defs := make([]string, 0, len(l.Columns)+2)
	defs = append(defs, db.QuoteColumn(IDColumn)+" integer PRIMARY KEY")
	for _, c := range l.Columns {
		defs = append(defs, db.QuoteColumn(c.Name)+" "+c.Type)
	}
	defs = append(defs, fmt.Sprintf("%s geometry(%s, %d)", db.QuoteColumn(GeomColumn), l.GeomType, SRID))
	return fmt.Sprintf("CREATE TABLE %s (%s)", db.SanitizeTable(table), strings.Join(defs, ", "))
}

var geomTypes = map[shp.ShapeType]string{
	shp.POINT:    "Point",
	shp.POLYLINE: "MultiLineString",
	shp.POLYGON:  "MultiPolygon",
}

// ParseShapefile reads every record of a shapefile. gid is the zero-based
// record number, matching the FID used by precomputed near tables. Records
// without a usable geometry are skipped.
func ParseShapefile(path string) (*Layer, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapeload: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	geomType, ok := geomTypes[reader.GeometryType]
	if !ok {
		return nil, eris.Errorf("shapeload: %s: unsupported shape type %d", path, reader.GeometryType)
	}

	fields := reader.Fields()
	layer := &Layer{GeomType: geomType, Columns: make([]Column, len(fields))}
	for i, f := range fields {
		layer.Columns[i] = Column{Name: f.String(), Type: pgType(f)}
	}

	for reader.Next() {
		n, shape := reader.Shape()
		wkb, err := EncodeEWKB(shape)
		if err != nil || wkb == nil {
			layer.Skipped++
			continue
		}

		row := make([]any, 0, len(fields)+2)
		row = append(row, int32(n))
		for i, f := range fields {
			row = append(row, parseValue(f, reader.Attribute(i)))
		}
		row = append(row, wkb)
		layer.Rows = append(layer.Rows, row)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "shapeload: read shapefile %s", path)
	}

	if layer.Skipped > 0 {
		zap.L().Debug("shapeload: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", layer.Skipped),
		)
	}
	return layer, nil
}

// Load parses the shapefile at path and replaces table with its contents,
// then indexes the geometry column as geography for geodesic KNN queries.
func Load(ctx context.Context, pool db.Pool, path, table string) (int64, error) {
	layer, err := ParseShapefile(path)
	if err != nil {
		return 0, err
	}

	n, err := db.ReplaceTable(ctx, pool, table, layer.DDL(table), layer.ColumnNames(), layer.Rows)
	if err != nil {
		return 0, eris.Wrapf(err, "shapeload: load %s", path)
	}

	idx := fmt.Sprintf("CREATE INDEX ON %s USING GIST ((%s::geography))", db.SanitizeTable(table), db.QuoteColumn(GeomColumn))
	if _, err := pool.Exec(ctx, idx); err != nil {
		return n, eris.Wrapf(err, "shapeload: index %s", table)
	}

	zap.L().Info("shapeload: layer loaded",
		zap.String("path", path),
		zap.String("table", table),
		zap.Int64("rows", n),
		zap.Int("skipped", layer.Skipped),
	)
	return n, nil
}

func pgType(f shp.Field) string {
	switch f.Fieldtype {
	case 'N':
		if f.Precision == 0 {
			return "bigint"
		}
		return "double precision"
	case 'F':
		return "double precision"
	case 'D':
		return "date"
	case 'L':
		return "boolean"
	default:
		return "text"
	}
}

// parseValue converts a raw DBF value to the Go type matching pgType.
// Blank or unparsable values become NULL.
func parseValue(f shp.Field, raw string) any {
	v := strings.TrimSpace(strings.TrimRight(raw, "\x00"))
	if v == "" {
		return nil
	}
	switch pgType(f) {
	case "bigint":
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil
		}
		return n
	case "double precision":
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil
		}
		return x
	case "date":
		d, err := time.Parse("20060102", v)
		if err != nil {
			return nil
		}
		return d
	case "boolean":
		switch strings.ToUpper(v) {
		case "T", "Y":
			return true
		case "F", "N":
			return false
		}
		return nil
	default:
		return v
	}
}
