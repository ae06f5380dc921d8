package sink

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSX writes the result table as a workbook with a single sheet.
type XLSX struct {
	path string
}

// NewXLSX creates an XLSX sink writing TankRiskResults_<stamp>.xlsx into dir.
func NewXLSX(dir, stamp string) *XLSX {
	return &XLSX{path: filepath.Join(dir, TableName(stamp)+".xlsx")}
}

// Name implements Sink.
func (x *XLSX) Name() string { return "xlsx" }

// Path returns the file the sink writes.
func (x *XLSX) Path() string { return x.path }

// Write implements Sink.
func (x *XLSX) Write(_ context.Context, header []string, rows [][]any) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(TablePrefix)
	if err != nil {
		return eris.Wrap(err, "sink: xlsx add sheet")
	}

	hr := sheet.AddRow()
	for _, h := range header {
		hr.AddCell().SetString(h)
	}

	for _, row := range rows {
		r := sheet.AddRow()
		for i := range header {
			c := r.AddCell()
			if i >= len(row) || row[i] == nil {
				continue
			}
			switch v := row[i].(type) {
			case int:
				c.SetInt(v)
			case int64:
				c.SetInt64(v)
			case float64:
				c.SetFloat(v)
			default:
				c.SetString(text(v))
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(x.path), 0o755); err != nil {
		return eris.Wrapf(err, "sink: create dir for %s", x.path)
	}
	return eris.Wrapf(f.Save(x.path), "sink: xlsx save %s", x.path)
}
