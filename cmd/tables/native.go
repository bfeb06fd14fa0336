package tables

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/parquet-go/parquet-go"
)

// rowBatchSize is the number of rows pulled from a row group per read
const rowBatchSize = 1000

// NativeSource reads parquet files in-process with parquet-go
type NativeSource struct{}

// NewNativeSource creates a new in-process parquet engine
func NewNativeSource() *NativeSource {
	return &NativeSource{}
}

// Name returns the engine name
func (s *NativeSource) Name() string {
	return EngineNative
}

// Close is a no-op; each table owns its file handle
func (s *NativeSource) Close() error {
	return nil
}

// nativeTable is a parquet file opened with parquet-go.
// Only the footer is read on open; rows are decoded on each scan.
type nativeTable struct {
	path   string
	file   *os.File
	pf     *parquet.File
	fields []*fieldNode
	names  map[string]bool
}

// Open opens the parquet file and reads its footer
func (s *NativeSource) Open(_ context.Context, path string) (Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat parquet file: %w", err)
	}

	pf, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to open parquet file %s: %w", path, err)
	}

	fields := schemaFields(pf.Schema())
	names := make(map[string]bool, len(fields))
	for _, field := range fields {
		names[field.name] = true
	}

	return &nativeTable{
		path:   path,
		file:   file,
		pf:     pf,
		fields: fields,
		names:  names,
	}, nil
}

func (t *nativeTable) Path() string {
	return t.path
}

// Columns returns the top-level fields of the file schema
func (t *nativeTable) Columns(_ context.Context) ([]Column, error) {
	fields := t.pf.Schema().Fields()
	columns := make([]Column, 0, len(fields))
	for _, field := range fields {
		columns = append(columns, Column{
			Name: field.Name(),
			Type: nodeType(field),
		})
	}
	return columns, nil
}

// SampleDistinct collects the distinct projected tuples of matching rows,
// shuffles them and keeps the first limit.
func (t *nativeTable) SampleDistinct(ctx context.Context, cols []string, filter Filter, limit int) (KeySet, error) {
	if err := t.requireColumns(cols); err != nil {
		return KeySet{}, err
	}
	if err := t.requireColumns(filter.Columns()); err != nil {
		return KeySet{}, err
	}

	seen := make(map[string]struct{})
	var tuples [][]any
	err := t.scan(ctx, func(row Row) {
		if !filter.Match(row) {
			return
		}
		tuple := Project(row, cols)
		key := distinctKey(tuple)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		tuples = append(tuples, tuple)
	})
	if err != nil {
		return KeySet{}, err
	}

	rand.Shuffle(len(tuples), func(i, j int) {
		tuples[i], tuples[j] = tuples[j], tuples[i]
	})
	if limit > 0 && len(tuples) > limit {
		tuples = tuples[:limit]
	}

	return KeySet{Columns: cols, Tuples: tuples}, nil
}

// SelectByKeys scans the file and keeps rows whose key tuple is in keys
func (t *nativeTable) SelectByKeys(ctx context.Context, keys KeySet) ([]Row, error) {
	if len(keys.Columns) == 0 {
		return nil, ErrKeyColumnsEmpty
	}
	if err := t.requireColumns(keys.Columns); err != nil {
		return nil, err
	}

	wanted := make(map[string]struct{}, len(keys.Tuples))
	for _, tuple := range keys.Tuples {
		if key, ok := TupleKey(tuple); ok {
			wanted[key] = struct{}{}
		}
	}
	if len(wanted) == 0 {
		return nil, nil
	}

	var matches []Row
	err := t.scan(ctx, func(row Row) {
		key, ok := TupleKey(Project(row, keys.Columns))
		if !ok {
			return
		}
		if _, found := wanted[key]; found {
			matches = append(matches, row)
		}
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// Close closes the underlying file
func (t *nativeTable) Close() error {
	return t.file.Close()
}

func (t *nativeTable) requireColumns(cols []string) error {
	for _, col := range cols {
		if !t.names[col] {
			return fmt.Errorf("%w: %s in %s", ErrColumnNotFound, col, t.path)
		}
	}
	return nil
}

// scan decodes every row of every row group and hands it to fn
func (t *nativeTable) scan(ctx context.Context, fn func(Row)) error {
	batch := make([]parquet.Row, rowBatchSize)
	for _, rowGroup := range t.pf.RowGroups() {
		if err := t.scanRowGroup(ctx, rowGroup, batch, fn); err != nil {
			return err
		}
	}
	return nil
}

func (t *nativeTable) scanRowGroup(ctx context.Context, rowGroup parquet.RowGroup, batch []parquet.Row, fn func(Row)) error {
	rows := rowGroup.Rows()
	defer rows.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := rows.ReadRows(batch)
		for i := 0; i < n; i++ {
			fn(t.decodeRow(batch[i]))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read parquet rows: %w", err)
		}
		if n == 0 {
			return nil
		}
	}
}

// decodeRow rebuilds the top-level fields of a parquet row
func (t *nativeTable) decodeRow(values parquet.Row) Row {
	return assembleRow(t.fields, values)
}
