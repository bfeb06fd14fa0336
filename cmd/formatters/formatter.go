// Package formatters renders result rows for terminal or file display.
package formatters

import (
	"errors"
	"fmt"
	"io"
	"sort"
)

// Format type constants
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSONL = "jsonl"
)

// ErrFormatUnsupported is returned for an unknown display format
var ErrFormatUnsupported = errors.New("display format must be one of: table, csv, jsonl")

// Formatter defines the interface for row display sinks
type Formatter interface {
	// Write renders rows to w, one output record per row, with columns in
	// the given order
	Write(w io.Writer, columns []string, rows []map[string]interface{}) error
}

// GetFormatter returns the formatter registered under format
func GetFormatter(format string) (Formatter, error) {
	switch format {
	case FormatTable, "":
		return NewTableFormatter(), nil
	case FormatCSV:
		return NewCSVFormatter(), nil
	case FormatJSONL:
		return NewJSONLFormatter(), nil
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrFormatUnsupported, format)
	}
}

// Columns returns the sorted union of the keys of rows
func Columns(rows []map[string]interface{}) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for col := range row {
			seen[col] = struct{}{}
		}
	}

	columns := make([]string, 0, len(seen))
	for col := range seen {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}

// cellString renders a single value; nulls become empty cells
func cellString(val interface{}) string {
	if val == nil {
		return ""
	}
	return fmt.Sprintf("%v", val)
}
