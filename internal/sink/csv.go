package sink

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// CSV writes TankRiskResults_<stamp>.csv into a directory.
type CSV struct {
	path string
}

// NewCSV creates a CSV sink writing into dir.
func NewCSV(dir, stamp string) *CSV {
	return &CSV{path: filepath.Join(dir, TableName(stamp)+".csv")}
}

// Name implements Sink.
func (c *CSV) Name() string { return "csv" }

// Path returns the file the sink writes.
func (c *CSV) Path() string { return c.path }

// Write implements Sink.
func (c *CSV) Write(_ context.Context, header []string, rows [][]any) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return eris.Wrapf(err, "sink: create dir for %s", c.path)
	}
	f, err := os.Create(c.path)
	if err != nil {
		return eris.Wrapf(err, "sink: create %s", c.path)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return eris.Wrap(err, "sink: write csv header")
	}
	rec := make([]string, len(header))
	for _, row := range rows {
		for i := range rec {
			rec[i] = ""
			if i < len(row) {
				rec[i] = text(row[i])
			}
		}
		if err := w.Write(rec); err != nil {
			_ = f.Close()
			return eris.Wrap(err, "sink: write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return eris.Wrap(err, "sink: flush csv")
	}
	return eris.Wrapf(f.Close(), "sink: close %s", c.path)
}
