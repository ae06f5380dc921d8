package proximity

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/tank-risk/internal/factor"
)

// Near table column names written by GIS near analysis tools.
const (
	ColumnInFID    = "IN_FID"
	ColumnNearFID  = "NEAR_FID"
	ColumnNearDist = "NEAR_DIST"
)

// Files serves proximity from near tables precomputed by a desktop GIS and
// exported as near_<factor>.csv into Dir. Layers are shapefiles; feature ids
// are zero-based record numbers, matching the FID of the export.
type Files struct {
	dir     string
	idField string

	mu     sync.Mutex
	assets map[string]map[int64]string
}

// NewFiles creates a file-backed service. idField is the asset id column of
// the asset shapefile.
func NewFiles(dir, idField string) *Files {
	if idField == "" {
		idField = "FACILITYID"
	}
	return &Files{dir: dir, idField: idField, assets: make(map[string]map[int64]string)}
}

// NearTablePath returns where the near table for risk is expected.
func (f *Files) NearTablePath(risk string) string {
	return filepath.Join(f.dir, "near_"+factor.ParseName(risk)+".csv")
}

// GenerateNearTable reads the near table for risk and maps each IN_FID to
// the asset id of that record in the asset shapefile.
func (f *Files) GenerateNearTable(ctx context.Context, assets, risk string) ([]NearRow, error) {
	ids, err := f.assetIDs(assets)
	if err != nil {
		return nil, err
	}

	path := f.NearTablePath(risk)
	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "proximity: open near table %s", path)
	}
	defer file.Close() //nolint:errcheck

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "proximity: read near table header %s", path)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, want := range []string{ColumnInFID, ColumnNearFID, ColumnNearDist} {
		if _, ok := col[want]; !ok {
			return nil, eris.Errorf("proximity: near table %s: missing column %s", path, want)
		}
	}

	var out []NearRow
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "proximity: read near table %s", path)
		}

		inFID, err := strconv.ParseInt(strings.TrimSpace(field(rec, col[ColumnInFID])), 10, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "proximity: near table %s line %d: IN_FID", path, line)
		}
		assetID, ok := ids[inFID]
		if !ok {
			return nil, eris.Errorf("proximity: near table %s line %d: no asset with FID %d", path, line, inFID)
		}

		row := NearRow{AssetID: assetID, TargetID: NoTarget}
		if v, err := strconv.ParseInt(strings.TrimSpace(field(rec, col[ColumnNearFID])), 10, 64); err == nil && v >= 0 {
			row.TargetID = v
		}
		if d := strings.TrimSpace(field(rec, col[ColumnNearDist])); d != "" && row.TargetID != NoTarget {
			row.Distance = d
		}
		out = append(out, row)
	}
	return out, nil
}

// JoinAttributes reads the requested DBF columns of the risk shapefile for
// the given record numbers. Column names match case-insensitively and are
// returned under the requested spelling.
func (f *Files) JoinAttributes(ctx context.Context, risk string, targetIDs []int64, columns []string) (map[int64]map[string]any, error) {
	out := make(map[int64]map[string]any, len(targetIDs))
	if len(targetIDs) == 0 {
		return out, nil
	}
	want := make(map[int64]bool, len(targetIDs))
	for _, id := range targetIDs {
		want[id] = true
	}

	reader, err := shp.Open(shapefilePath(risk))
	if err != nil {
		return nil, eris.Wrapf(err, "proximity: open shapefile %s", risk)
	}
	defer func() { _ = reader.Close() }()

	idx := fieldIndex(reader.Fields())
	colIdx := make([]int, len(columns))
	for i, c := range columns {
		j, ok := idx[strings.ToLower(c)]
		if !ok {
			return nil, eris.Errorf("proximity: %s has no column %s", risk, c)
		}
		colIdx[i] = j
	}

	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, _ := reader.Shape()
		if !want[int64(n)] {
			continue
		}
		attrs := make(map[string]any, len(columns))
		for i, c := range columns {
			attrs[c] = attributeValue(reader.Attribute(colIdx[i]))
		}
		out[int64(n)] = attrs
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "proximity: read shapefile %s", risk)
	}
	return out, nil
}

// Fields returns the DBF column names of layer.
func (f *Files) Fields(_ context.Context, layer string) ([]string, error) {
	reader, err := shp.Open(shapefilePath(layer))
	if err != nil {
		return nil, eris.Wrapf(err, "proximity: open shapefile %s", layer)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, fd := range fields {
		names[i] = fieldName(fd)
	}
	return names, nil
}

func (f *Files) assetIDs(assets string) (map[int64]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ids, ok := f.assets[assets]; ok {
		return ids, nil
	}

	reader, err := shp.Open(shapefilePath(assets))
	if err != nil {
		return nil, eris.Wrapf(err, "proximity: open asset layer %s", assets)
	}
	defer func() { _ = reader.Close() }()

	idCol, ok := fieldIndex(reader.Fields())[strings.ToLower(f.idField)]
	if !ok {
		return nil, eris.Errorf("proximity: asset layer %s has no column %s", assets, f.idField)
	}

	ids := make(map[int64]string)
	for reader.Next() {
		n, _ := reader.Shape()
		ids[int64(n)] = strings.TrimSpace(strings.TrimRight(reader.Attribute(idCol), "\x00"))
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "proximity: read asset layer %s", assets)
	}
	f.assets[assets] = ids
	return ids, nil
}

func shapefilePath(layer string) string {
	if strings.EqualFold(filepath.Ext(layer), ".shp") {
		return layer
	}
	return layer + ".shp"
}

func fieldName(f shp.Field) string {
	return strings.TrimRight(f.String(), "\x00")
}

func fieldIndex(fields []shp.Field) map[string]int {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[strings.ToLower(fieldName(f))] = i
	}
	return idx
}

func attributeValue(raw string) any {
	v := strings.TrimSpace(strings.TrimRight(raw, "\x00"))
	if v == "" {
		return nil
	}
	return v
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}
