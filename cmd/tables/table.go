// Package tables opens parquet snapshots as lazily evaluated tables and
// exposes the handful of read operations the comparer needs.
package tables

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Engine names
const (
	EngineNative = "native"
	EngineDuckDB = "duckdb"
)

// Static errors for table access
var (
	ErrUnknownEngine   = errors.New("engine must be one of: native, duckdb")
	ErrColumnNotFound  = errors.New("column not found")
	ErrKeyColumnsEmpty = errors.New("key set has no columns")
)

// Column is a top-level column and its fully parametrized type
// (decimal precision/scale, timestamp unit, nested element types).
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (c Column) String() string {
	return fmt.Sprintf("(%s, %s)", c.Name, c.Type)
}

// Row is a single table row keyed by column name.
type Row map[string]any

// Filter restricts the rows SampleDistinct draws from.
type Filter struct {
	// NotEmpty columns must be non-null and not the empty string.
	NotEmpty []string
	// TimeColumn must be non-null and strictly before Before.
	// A zero Before disables the bound.
	TimeColumn string
	Before     time.Time
}

// Columns returns every column the filter reads.
func (f Filter) Columns() []string {
	cols := append([]string{}, f.NotEmpty...)
	if f.TimeColumn != "" && !f.Before.IsZero() {
		cols = append(cols, f.TimeColumn)
	}
	return cols
}

// Match evaluates the filter against a materialized row.
func (f Filter) Match(row Row) bool {
	for _, col := range f.NotEmpty {
		switch v := row[col].(type) {
		case nil:
			return false
		case string:
			if v == "" {
				return false
			}
		}
	}

	if f.TimeColumn == "" || f.Before.IsZero() {
		return true
	}

	switch v := row[f.TimeColumn].(type) {
	case time.Time:
		return v.Before(f.Before)
	case string:
		if ts, ok := parseTimestamp(v); ok {
			return ts.Before(f.Before)
		}
		return v < f.Before.UTC().Format("2006-01-02")
	default:
		return false
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// KeySet is a set of key tuples over Columns, as returned by SampleDistinct.
type KeySet struct {
	Columns []string `json:"columns"`
	Tuples  [][]any  `json:"tuples"`
}

// Len returns the number of tuples in the set.
func (k KeySet) Len() int {
	return len(k.Tuples)
}

// Source opens parquet files as tables.
type Source interface {
	// Name returns the engine name
	Name() string

	// Open opens the parquet file at path. Only metadata is read.
	Open(ctx context.Context, path string) (Table, error)

	// Close releases engine resources
	Close() error
}

// Table is a read-only view over one parquet file.
type Table interface {
	// Path returns the local file the table was opened from
	Path() string

	// Columns returns the top-level schema in file order
	Columns(ctx context.Context) ([]Column, error)

	// SampleDistinct returns up to limit distinct tuples over cols from the
	// rows matching filter, in random order. limit <= 0 means no limit.
	SampleDistinct(ctx context.Context, cols []string, filter Filter, limit int) (KeySet, error)

	// SelectByKeys returns every row whose key tuple is in keys.
	// Tuples containing a null never match.
	SelectByKeys(ctx context.Context, keys KeySet) ([]Row, error)

	// Close releases the file handle
	Close() error
}

// NewSource returns the table engine registered under name
func NewSource(ctx context.Context, name string) (Source, error) {
	switch strings.ToLower(name) {
	case EngineNative, "":
		return NewNativeSource(), nil
	case EngineDuckDB:
		return NewDuckDBSource(ctx)
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownEngine, name)
	}
}
