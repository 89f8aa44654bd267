// Package export writes pipeline output tables to disk: multi-sheet XLSX
// workbooks via excelize and single-table CSV files. Both sinks render nil
// as an empty cell and localized timestamps as readable text, since the
// artifacts are consumed by biologists in spreadsheet tools.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pacificflyway/goose-resight-etl/internal/pipeline"
	"github.com/pacificflyway/goose-resight-etl/internal/table"
)

// timeLayout renders any timestamp value still unformatted at sink time.
const timeLayout = "01/02/2006 15:04"

// Workbooks writes XLSX artifacts into a directory.
type Workbooks struct {
	dir string
}

// NewWorkbooks creates a workbook sink rooted at dir, creating it if needed.
func NewWorkbooks(dir string) (*Workbooks, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Workbooks{dir: dir}, nil
}

// WriteWorkbook writes one file with one sheet per table.
func (w *Workbooks) WriteWorkbook(name string, sheets []pipeline.Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.Name); err != nil {
				return fmt.Errorf("sheet %q: %w", sh.Name, err)
			}
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			return fmt.Errorf("sheet %q: %w", sh.Name, err)
		}
		if err := writeSheet(f, sh.Name, sh.Table); err != nil {
			return fmt.Errorf("sheet %q: %w", sh.Name, err)
		}
	}

	path := filepath.Join(w.dir, name)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, t *table.Table) error {
	cols := t.Columns()
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range t.Rows() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		vals := make([]any, len(cols))
		for j, c := range cols {
			vals[j] = cellValue(r[c])
		}
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return err
		}
	}
	return nil
}

// CSVs writes CSV artifacts into a directory.
type CSVs struct {
	dir string
}

// NewCSVs creates a CSV sink rooted at dir, creating it if needed.
func NewCSVs(dir string) (*CSVs, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &CSVs{dir: dir}, nil
}

// WriteCSV writes a table with a header row. Column names are the contract
// downstream parsers key on, so they are written exactly as projected.
func (c *CSVs) WriteCSV(name string, t *table.Table) error {
	path := filepath.Join(c.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	cols := t.Columns()
	if err := w.Write(cols); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(cols))
	for _, r := range t.Rows() {
		for i, col := range cols {
			rec[i] = cellString(r[col])
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}

// cellValue renders a row value for excelize, which handles native Go types
// itself; only timestamps are pre-formatted so sheets show local wall time.
func cellValue(v any) any {
	if ts, ok := v.(time.Time); ok {
		return ts.Format(timeLayout)
	}
	return v
}

func cellString(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case bool:
		return strconv.FormatBool(n)
	case time.Time:
		return n.Format(timeLayout)
	default:
		return fmt.Sprint(n)
	}
}
