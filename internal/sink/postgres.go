package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tank-risk/internal/db"
	"github.com/sells-group/tank-risk/internal/resilience"
)

// Postgres writes the result table into a schema with COPY.
type Postgres struct {
	pool  db.Pool
	table string
	retry resilience.RetryConfig
}

// NewPostgres creates a Postgres sink writing <schema>.tank_risk_results_<stamp>.
// The whole table replacement is retried on transient database errors.
func NewPostgres(pool db.Pool, schema, stamp string, retry resilience.RetryConfig) *Postgres {
	if schema == "" {
		schema = "public"
	}
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("sink_write", schema)
	}
	return &Postgres{pool: pool, table: schema + ".tank_risk_results_" + stamp, retry: retry}
}

// Name implements Sink.
func (p *Postgres) Name() string { return "postgres" }

// Table returns the schema-qualified table the sink writes.
func (p *Postgres) Table() string { return p.table }

// Write implements Sink.
func (p *Postgres) Write(ctx context.Context, header []string, rows [][]any) error {
	cols := make([]string, len(header))
	for i, h := range header {
		typ := "text"
		if isSeverity(i) {
			typ = "integer"
		}
		cols[i] = db.QuoteColumn(h) + " " + typ
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", db.SanitizeTable(p.table), strings.Join(cols, ", "))

	out := make([][]any, len(rows))
	for r, row := range rows {
		vals := make([]any, len(header))
		for i := range header {
			if i < len(row) {
				vals[i] = cellValue(i, row[i])
			}
		}
		out[r] = vals
	}

	err := resilience.Do(ctx, p.retry, func(ctx context.Context) error {
		_, err := db.ReplaceTable(ctx, p.pool, p.table, ddl, header, out)
		return err
	})
	if err != nil {
		return eris.Wrap(err, "sink: postgres write")
	}
	return nil
}
