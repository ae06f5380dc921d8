package proximity

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"

	"github.com/sells-group/tank-risk/internal/db"
)

// PostGISConfig names the columns the PostGIS service expects on every
// layer table. Tables loaded by shapeload use the defaults.
type PostGISConfig struct {
	AssetIDColumn   string
	FeatureIDColumn string
	GeomColumn      string
}

// PostGIS answers proximity queries with KNN lookups against layer tables.
// Layer identifiers are table names, optionally schema-qualified.
type PostGIS struct {
	pool db.Pool
	cfg  PostGISConfig
}

// NewPostGIS creates a PostGIS service. Empty config fields default to
// FACILITYID, gid and geom.
func NewPostGIS(pool db.Pool, cfg PostGISConfig) *PostGIS {
	if cfg.AssetIDColumn == "" {
		cfg.AssetIDColumn = "FACILITYID"
	}
	if cfg.FeatureIDColumn == "" {
		cfg.FeatureIDColumn = "gid"
	}
	if cfg.GeomColumn == "" {
		cfg.GeomColumn = "geom"
	}
	return &PostGIS{pool: pool, cfg: cfg}
}

// GenerateNearTable finds the nearest risk feature for every asset with an
// index-assisted KNN lateral join and measures geodesic distance in meters.
// Candidates are ranked on geography so the nearest feature is the one with
// the smallest reported distance, not the smallest distance in degrees.
// Assets with no feature get NoTarget and a nil distance.
func (p *PostGIS) GenerateNearTable(ctx context.Context, assets, risk string) ([]NearRow, error) {
	fid := db.QuoteColumn(p.cfg.FeatureIDColumn)
	geomCol := db.QuoteColumn(p.cfg.GeomColumn)

	sql := fmt.Sprintf(`
		SELECT a.%[1]s::text, n.fid, ST_Distance(a.%[2]s::geography, n.g::geography)
		FROM %[4]s a
		LEFT JOIN LATERAL (
			SELECT r.%[3]s AS fid, r.%[2]s AS g
			FROM %[5]s r
			ORDER BY r.%[2]s::geography <-> a.%[2]s::geography
			LIMIT 1
		) n ON true
		ORDER BY a.%[3]s`,
		db.QuoteColumn(p.cfg.AssetIDColumn), geomCol, fid,
		db.SanitizeTable(assets), db.SanitizeTable(risk),
	)

	rows, err := p.pool.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrapf(err, "proximity: near table %s", risk)
	}
	defer rows.Close()

	var out []NearRow
	for rows.Next() {
		var (
			assetID  string
			targetID *int64
			dist     *float64
		)
		if err := rows.Scan(&assetID, &targetID, &dist); err != nil {
			return nil, eris.Wrapf(err, "proximity: scan near row %s", risk)
		}
		row := NearRow{AssetID: assetID, TargetID: NoTarget}
		if targetID != nil {
			row.TargetID = *targetID
		}
		if dist != nil {
			row.Distance = *dist
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "proximity: iterate near rows %s", risk)
	}
	return out, nil
}

// JoinAttributes selects columns of risk for the given feature ids.
func (p *PostGIS) JoinAttributes(ctx context.Context, risk string, targetIDs []int64, columns []string) (map[int64]map[string]any, error) {
	out := make(map[int64]map[string]any, len(targetIDs))
	if len(targetIDs) == 0 {
		return out, nil
	}

	fid := db.QuoteColumn(p.cfg.FeatureIDColumn)
	sel := fid
	if len(columns) > 0 {
		sel += ", " + db.QuoteAndJoin(columns)
	}
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ANY($1)`, sel, db.SanitizeTable(risk), fid)

	rows, err := p.pool.Query(ctx, sql, targetIDs)
	if err != nil {
		return nil, eris.Wrapf(err, "proximity: join attributes %s", risk)
	}
	defer rows.Close()

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, eris.Wrapf(err, "proximity: scan attributes %s", risk)
		}
		id, err := cast.ToInt64E(vals[0])
		if err != nil {
			return nil, eris.Wrapf(err, "proximity: feature id %s", risk)
		}
		attrs := make(map[string]any, len(columns))
		for i, col := range columns {
			attrs[col] = vals[i+1]
		}
		out[id] = attrs
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "proximity: iterate attributes %s", risk)
	}
	return out, nil
}

// Fields lists the columns of layer from information_schema, excluding the
// feature id and geometry columns.
func (p *PostGIS) Fields(ctx context.Context, layer string) ([]string, error) {
	schema, table := "public", layer
	if i := strings.Index(layer, "."); i >= 0 {
		schema, table = layer[:i], layer[i+1:]
	}

	rows, err := p.pool.Query(ctx, `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, schema, table)
	if err != nil {
		return nil, eris.Wrapf(err, "proximity: fields %s", layer)
	}
	defer rows.Close()

	var fields []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrapf(err, "proximity: scan field %s", layer)
		}
		if name == p.cfg.FeatureIDColumn || name == p.cfg.GeomColumn {
			continue
		}
		fields = append(fields, name)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "proximity: iterate fields %s", layer)
	}
	if len(fields) == 0 {
		return nil, eris.Errorf("proximity: layer %s not found", layer)
	}
	return fields, nil
}
