// Package sink writes the assessment result table to its destinations.
package sink

import (
	"context"
	"time"

	"github.com/spf13/cast"
)

// TablePrefix names every output table and file.
const TablePrefix = "TankRiskResults"

// Sink receives the final header and rows of a run.
type Sink interface {
	Name() string
	Write(ctx context.Context, header []string, rows [][]any) error
}

// Stamp formats t as the suffix shared by all outputs of one run.
func Stamp(t time.Time) string {
	return t.Format("20060102150405")
}

// TableName returns the output table name for stamp.
func TableName(stamp string) string {
	return TablePrefix + "_" + stamp
}

// isSeverity reports whether column i of a result header holds a severity.
// Column 0 is the asset id; value and severity columns alternate after it.
func isSeverity(i int) bool {
	return i > 0 && i%2 == 0
}

// text formats a cell for text outputs. nil becomes the empty string.
func text(v any) string {
	return cast.ToString(v)
}
