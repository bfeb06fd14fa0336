package tables

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "github.com/marcboeker/go-duckdb/v2" // duckdb driver
)

// DuckDBSource queries parquet files through an in-memory DuckDB instance
type DuckDBSource struct {
	db *sql.DB
}

// NewDuckDBSource opens an in-memory DuckDB database
func NewDuckDBSource(ctx context.Context) (*DuckDBSource, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	return NewDuckDBSourceWithDB(db), nil
}

// NewDuckDBSourceWithDB wraps an existing DuckDB connection
func NewDuckDBSourceWithDB(db *sql.DB) *DuckDBSource {
	return &DuckDBSource{db: db}
}

// Name returns the engine name
func (s *DuckDBSource) Name() string {
	return EngineDuckDB
}

// Close closes the database
func (s *DuckDBSource) Close() error {
	return s.db.Close()
}

// duckTable is a parquet file addressed through read_parquet().
// Nothing is read until a query runs.
type duckTable struct {
	db   *sql.DB
	path string
	from string
}

// Open checks the file exists and returns a lazy table over it
func (s *DuckDBSource) Open(_ context.Context, path string) (Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	return &duckTable{
		db:   s.db,
		path: path,
		from: fmt.Sprintf("read_parquet(%s)", pq.QuoteLiteral(path)),
	}, nil
}

func (t *duckTable) Path() string {
	return t.path
}

// Columns describes the parquet schema with DuckDB's type names,
// which carry decimal precision/scale and nested element types.
func (t *duckTable) Columns(ctx context.Context) ([]Column, error) {
	query := "DESCRIBE SELECT * FROM " + t.from

	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", t.path, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var columns []Column
	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}
		if len(values) < 2 {
			return nil, fmt.Errorf("unexpected DESCRIBE output for %s", t.path)
		}
		columns = append(columns, Column{
			Name: asString(values[0]),
			Type: asString(values[1]),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schema rows: %w", err)
	}

	return columns, nil
}

// SampleDistinct draws a random sample of distinct key tuples
func (t *duckTable) SampleDistinct(ctx context.Context, cols []string, filter Filter, limit int) (KeySet, error) {
	where, args := filterClause(filter)

	query := fmt.Sprintf("SELECT * FROM (SELECT DISTINCT %s FROM %s%s) ORDER BY random()",
		quoteColumns(cols), t.from, where)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return KeySet{}, fmt.Errorf("sample query failed on %s: %w", t.path, err)
	}
	defer rows.Close()

	results, err := scanRows(rows)
	if err != nil {
		return KeySet{}, err
	}

	tuples := make([][]any, len(results))
	for i, row := range results {
		tuples[i] = Project(row, cols)
	}

	return KeySet{Columns: cols, Tuples: tuples}, nil
}

// SelectByKeys semi-joins the file against the key tuples.
// EXISTS with equality keeps SQL null semantics: a null never matches.
func (t *duckTable) SelectByKeys(ctx context.Context, keys KeySet) ([]Row, error) {
	if len(keys.Columns) == 0 {
		return nil, ErrKeyColumnsEmpty
	}

	var tuples []string
	var args []any
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(keys.Columns)), ", ") + ")"
	for _, tuple := range keys.Tuples {
		if _, ok := TupleKey(tuple); !ok {
			continue
		}
		tuples = append(tuples, placeholder)
		args = append(args, tuple...)
	}
	if len(tuples) == 0 {
		return nil, nil
	}

	conditions := make([]string, len(keys.Columns))
	for i, col := range keys.Columns {
		quoted := pq.QuoteIdentifier(col)
		conditions[i] = fmt.Sprintf("t.%s = k.%s", quoted, quoted)
	}

	query := fmt.Sprintf("SELECT t.* FROM %s AS t WHERE EXISTS (SELECT 1 FROM (VALUES %s) AS k(%s) WHERE %s)",
		t.from,
		strings.Join(tuples, ", "),
		quoteColumns(keys.Columns),
		strings.Join(conditions, " AND "),
	)

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("key lookup failed on %s: %w", t.path, err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// Close is a no-op; the connection belongs to the source
func (t *duckTable) Close() error {
	return nil
}

// filterClause renders a Filter as a WHERE clause with positional args
func filterClause(filter Filter) (string, []any) {
	var conditions []string
	var args []any

	for _, col := range filter.NotEmpty {
		quoted := pq.QuoteIdentifier(col)
		conditions = append(conditions, fmt.Sprintf("%s IS NOT NULL AND %s <> ''", quoted, quoted))
	}

	if filter.TimeColumn != "" && !filter.Before.IsZero() {
		conditions = append(conditions, fmt.Sprintf("%s < CAST(? AS TIMESTAMP)", pq.QuoteIdentifier(filter.TimeColumn)))
		args = append(args, filter.Before.UTC().Format("2006-01-02 15:04:05"))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func quoteColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = pq.QuoteIdentifier(col)
	}
	return strings.Join(quoted, ", ")
}

// scanRows materializes a result set, converting []byte to string
func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			val := values[i]
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			row[col] = val
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return results, nil
}

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}
