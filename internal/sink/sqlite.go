package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"
	_ "modernc.org/sqlite"
)

// SQLite writes the result table into a SQLite database file.
type SQLite struct {
	dsn   string
	table string
}

// NewSQLite creates a SQLite sink writing table TankRiskResults_<stamp>.
func NewSQLite(dsn, stamp string) *SQLite {
	return &SQLite{dsn: dsn, table: TableName(stamp)}
}

// Name implements Sink.
func (s *SQLite) Name() string { return "sqlite" }

// Table returns the table the sink writes.
func (s *SQLite) Table() string { return s.table }

// Write implements Sink.
func (s *SQLite) Write(ctx context.Context, header []string, rows [][]any) error {
	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return eris.Wrap(err, "sink: sqlite open")
	}
	defer db.Close() //nolint:errcheck

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return eris.Wrapf(err, "sink: sqlite exec %s", pragma)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sink: sqlite begin")
	}
	defer tx.Rollback() //nolint:errcheck

	cols := make([]string, len(header))
	marks := make([]string, len(header))
	for i, h := range header {
		typ := "TEXT"
		if isSeverity(i) {
			typ = "INTEGER"
		}
		cols[i] = fmt.Sprintf("%s %s", quoteSQLite(h), typ)
		marks[i] = "?"
	}
	table := quoteSQLite(s.table)

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
		return eris.Wrapf(err, "sink: sqlite drop %s", s.table)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(cols, ", "))); err != nil {
		return eris.Wrapf(err, "sink: sqlite create %s", s.table)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, strings.Join(marks, ", ")))
	if err != nil {
		return eris.Wrap(err, "sink: sqlite prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, row := range rows {
		args := make([]any, len(header))
		for i := range header {
			if i < len(row) {
				args[i] = cellValue(i, row[i])
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrapf(err, "sink: sqlite insert %v", args[0])
		}
	}

	return eris.Wrap(tx.Commit(), "sink: sqlite commit")
}

func quoteSQLite(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// cellValue converts a row cell to the column type used by database sinks:
// text for ids and values, integer for severities. nil stays NULL.
func cellValue(i int, v any) any {
	if v == nil {
		return nil
	}
	if isSeverity(i) {
		n, err := cast.ToIntE(v)
		if err != nil {
			return nil
		}
		return n
	}
	return text(v)
}
