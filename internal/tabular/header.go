// Package tabular streams header-mapped rows from CSV and XLSX files.
package tabular

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Header maps normalized column names to their index.
type Header map[string]int

// NewHeader normalizes names (trimmed, lower case, UTF-8 BOM removed).
// The first occurrence of a duplicate name wins.
func NewHeader(names []string) Header {
	h := make(Header, len(names))
	for i, n := range names {
		key := normalize(n)
		if _, ok := h[key]; !ok && key != "" {
			h[key] = i
		}
	}
	return h
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
}

// Require returns an error naming every missing column.
func (h Header) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := h[normalize(n)]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("tabular: missing columns %s", strings.Join(missing, ", "))
	}
	return nil
}

// Has reports whether the header contains name.
func (h Header) Has(name string) bool {
	_, ok := h[normalize(name)]
	return ok
}

// Row is one data row with its header. Line is 1-based and counts the header.
type Row struct {
	Header Header
	Fields []string
	Line   int
}

// Get returns the trimmed value of column name, or "" if the column is
// absent or the row is short.
func (r Row) Get(name string) string {
	i, ok := r.Header[normalize(name)]
	if !ok || i >= len(r.Fields) {
		return ""
	}
	return strings.TrimSpace(r.Fields[i])
}

// Format identifies a file format by extension.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatOf returns the format implied by path's extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", eris.Errorf("tabular: unsupported file type %q", filepath.Ext(path))
}
