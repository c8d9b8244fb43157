package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// maxSheetName is the Excel limit on sheet name length.
const maxSheetName = 31

// TimestampedFilename returns base_YYYYMMDD_HHMMSS.ext.
func TimestampedFilename(base, ext string, t time.Time) string {
	return fmt.Sprintf("%s_%s.%s", base, t.Format("20060102_150405"), strings.TrimPrefix(ext, "."))
}

// WriteCSV writes t to path with a header row.
func WriteCSV(path string, t Table) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(t.Header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	record := make([]string, len(t.Header))
	for _, row := range t.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = cellString(row[i])
			}
		}
		if err := w.Write(record); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "export: flush %s", path)
	}
	return f.Close()
}

// WriteJSON writes t.Records as indented JSON. Tables without records are
// written as an array of header-keyed objects.
func WriteJSON(path string, t Table) error {
	payload := t.Records
	if payload == nil {
		objs := make([]map[string]any, 0, len(t.Rows))
		for _, row := range t.Rows {
			obj := make(map[string]any, len(t.Header))
			for i, h := range t.Header {
				if i < len(row) {
					obj[h] = row[i]
				}
			}
			objs = append(objs, obj)
		}
		payload = objs
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "export: marshal %s", t.Name)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

// WriteXLSX writes each table to its own sheet of one workbook.
func WriteXLSX(path string, tables ...Table) error {
	if len(tables) == 0 {
		return eris.New("export: no tables to write")
	}

	file := xlsx.NewFile()
	used := make(map[string]bool, len(tables))
	for _, t := range tables {
		name := sheetName(t.Name, used)
		sheet, err := file.AddSheet(name)
		if err != nil {
			return eris.Wrapf(err, "export: add sheet %s", name)
		}

		header := sheet.AddRow()
		for _, h := range t.Header {
			header.AddCell().SetString(h)
		}
		for _, row := range t.Rows {
			r := sheet.AddRow()
			for _, v := range row {
				setCell(r.AddCell(), v)
			}
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func setCell(c *xlsx.Cell, v any) {
	switch x := v.(type) {
	case nil:
	case int:
		c.SetInt(x)
	case float64:
		c.SetFloat(x)
	case *float64:
		if x != nil {
			c.SetFloat(*x)
		}
	default:
		c.SetString(cellString(v))
	}
}

// sheetName truncates name to the Excel limit and disambiguates repeats.
func sheetName(name string, used map[string]bool) string {
	if name == "" {
		name = "Sheet"
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	candidate := name
	for i := 2; used[candidate]; i++ {
		suffix := fmt.Sprintf("_%d", i)
		base := name
		if len(base)+len(suffix) > maxSheetName {
			base = base[:maxSheetName-len(suffix)]
		}
		candidate = base + suffix
	}
	used[candidate] = true
	return candidate
}

// Exporter writes result tables under Dir with timestamped names.
type Exporter struct {
	Dir    string
	Format string
	RunID  string

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewExporter validates format and returns an Exporter rooted at dir.
func NewExporter(dir, format, runID string) (*Exporter, error) {
	switch format {
	case FormatCSV, FormatJSON, FormatXLSX:
	default:
		return nil, eris.Errorf("export: unsupported format %q", format)
	}
	if dir == "" {
		dir = "."
	}
	return &Exporter{Dir: dir, Format: format, RunID: runID, Now: time.Now}, nil
}

// Write stores tables and returns the paths written. CSV and JSON produce
// one file per table; XLSX produces one workbook named after base with a
// sheet per table.
func (e *Exporter) Write(base string, tables ...Table) ([]string, error) {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create dir %s", e.Dir)
	}
	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}

	var paths []string
	switch e.Format {
	case FormatXLSX:
		path := filepath.Join(e.Dir, TimestampedFilename(base, FormatXLSX, now))
		if err := WriteXLSX(path, tables...); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	case FormatCSV, FormatJSON:
		for _, t := range tables {
			path := filepath.Join(e.Dir, TimestampedFilename(t.Name, e.Format, now))
			var err error
			if e.Format == FormatCSV {
				err = WriteCSV(path, t)
			} else {
				err = WriteJSON(path, t)
			}
			if err != nil {
				return nil, err
			}
			paths = append(paths, path)
		}
	default:
		return nil, eris.Errorf("export: unsupported format %q", e.Format)
	}

	zap.L().Info("export: wrote results",
		zap.String("run_id", e.RunID),
		zap.String("format", e.Format),
		zap.Strings("paths", paths),
	)
	return paths, nil
}
