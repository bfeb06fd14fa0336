package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/airframesio/parquet-compare/cmd/tables"
)

// SchemaDiff holds the columns present in only one of the two snapshots.
// A column matches only when both its name and its full type are equal.
type SchemaDiff struct {
	// NewOnly columns are in the newest snapshot but not the previous one
	NewOnly []tables.Column `json:"new_only"`
	// OldOnly columns are in the previous snapshot but not the newest one
	OldOnly []tables.Column `json:"old_only"`
}

// Identical reports whether both snapshots have the same columns
func (d *SchemaDiff) Identical() bool {
	return len(d.NewOnly) == 0 && len(d.OldOnly) == 0
}

// DiffSchemas computes the symmetric difference of two column sets.
// Column order does not matter; the output is sorted by name then type.
func DiffSchemas(newest, previous []tables.Column) *SchemaDiff {
	return &SchemaDiff{
		NewOnly: columnsMissingFrom(newest, previous),
		OldOnly: columnsMissingFrom(previous, newest),
	}
}

// CompareSchemas reads the schema of both tables and diffs them
func CompareSchemas(ctx context.Context, newest, previous tables.Table) (*SchemaDiff, error) {
	newColumns, err := newest.Columns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema of %s: %w", newest.Path(), err)
	}

	oldColumns, err := previous.Columns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema of %s: %w", previous.Path(), err)
	}

	return DiffSchemas(newColumns, oldColumns), nil
}

func columnsMissingFrom(columns, other []tables.Column) []tables.Column {
	present := make(map[tables.Column]struct{}, len(other))
	for _, col := range other {
		present[col] = struct{}{}
	}

	missing := make([]tables.Column, 0)
	seen := make(map[tables.Column]struct{}, len(columns))
	for _, col := range columns {
		if _, ok := present[col]; ok {
			continue
		}
		if _, dup := seen[col]; dup {
			continue
		}
		seen[col] = struct{}{}
		missing = append(missing, col)
	}

	sort.Slice(missing, func(i, j int) bool {
		if missing[i].Name != missing[j].Name {
			return missing[i].Name < missing[j].Name
		}
		return missing[i].Type < missing[j].Type
	})
	return missing
}
