package db

import (
	"strings"

	"github.com/jackc/pgx/v5"
)

// Identifier splits an optionally schema-qualified name into a pgx.Identifier.
func Identifier(table string) pgx.Identifier {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}
	}
	return pgx.Identifier{table}
}

// SanitizeTable quotes a schema-qualified table name like "gis.wetlands".
func SanitizeTable(table string) string {
	return Identifier(table).Sanitize()
}

// QuoteColumn quotes a single column name.
func QuoteColumn(col string) string {
	return pgx.Identifier{col}.Sanitize()
}

// QuoteAndJoin quotes each column name and joins with commas.
func QuoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = QuoteColumn(c)
	}
	return strings.Join(quoted, ", ")
}
