package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/airframesio/parquet-compare/cmd/tables"
)

// Columns read by the data sampler
const (
	timestampColumn      = "timestamp"
	resourceColumn       = "resource_uid"
	billingAccountColumn = "billing_account"
)

// sampleKeyColumns identify a billing line item across snapshots
var sampleKeyColumns = []string{
	timestampColumn,
	resourceColumn,
	"usage_amount",
	"au_list_price",
	"au_effective_cost",
	"au_net_effective_cost",
}

// Sides of a sample difference
const (
	SideNew = "new"
	SideOld = "old"
)

// DiffRow is a row found in only one of the two samples
type DiffRow struct {
	Side string     `json:"side"`
	Row  tables.Row `json:"row"`
}

// SampleDiff is the outcome of comparing the same sampled keys in both
// snapshots
type SampleDiff struct {
	Cutoff      string    `json:"cutoff"`
	SampledKeys int       `json:"sampled_keys"`
	NewRows     int       `json:"new_rows"`
	OldRows     int       `json:"old_rows"`
	Rows        []DiffRow `json:"rows"`
}

// Identical reports whether no sampled row differs
func (d *SampleDiff) Identical() bool {
	return len(d.Rows) == 0
}

// Cutoff returns the UTC date lookbackDays before now. Recent rows are
// excluded from sampling because they are still being restated.
func Cutoff(now time.Time, lookbackDays int) time.Time {
	t := now.UTC().Add(-time.Duration(lookbackDays) * 24 * time.Hour)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// sampleFilter restricts sampling to settled rows with a resource and an
// account
func sampleFilter(cutoff time.Time) tables.Filter {
	return tables.Filter{
		NotEmpty:   []string{resourceColumn, billingAccountColumn},
		TimeColumn: timestampColumn,
		Before:     cutoff,
	}
}

// CompareSamples draws up to size distinct keys from the previous snapshot,
// fetches every row carrying one of those keys from both snapshots and
// returns the rows present on one side only
func CompareSamples(ctx context.Context, newest, previous tables.Table, cutoff time.Time, size int) (*SampleDiff, error) {
	keys, err := previous.SampleDistinct(ctx, sampleKeyColumns, sampleFilter(cutoff), size)
	if err != nil {
		return nil, fmt.Errorf("failed to sample keys from %s: %w", previous.Path(), err)
	}

	diff := &SampleDiff{
		Cutoff:      cutoff.Format("2006-01-02"),
		SampledKeys: keys.Len(),
		Rows:        []DiffRow{},
	}
	if keys.Len() == 0 {
		return diff, nil
	}

	newRows, err := newest.SelectByKeys(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to select sampled rows from %s: %w", newest.Path(), err)
	}

	oldRows, err := previous.SelectByKeys(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to select sampled rows from %s: %w", previous.Path(), err)
	}

	diff.NewRows = len(newRows)
	diff.OldRows = len(oldRows)
	diff.Rows = SymmetricDifference(newRows, oldRows)
	return diff, nil
}

// SymmetricDifference returns the distinct rows of newRows missing from
// oldRows followed by the distinct rows of oldRows missing from newRows.
// Rows are compared on their full content.
func SymmetricDifference(newRows, oldRows []tables.Row) []DiffRow {
	diff := exceptRows(newRows, oldRows, SideNew)
	return append(diff, exceptRows(oldRows, newRows, SideOld)...)
}

func exceptRows(rows, other []tables.Row, side string) []DiffRow {
	exclude := make(map[string]struct{}, len(other))
	for _, row := range other {
		exclude[tables.RowKey(row)] = struct{}{}
	}

	out := make([]DiffRow, 0)
	seen := make(map[string]struct{})
	for _, row := range rows {
		key := tables.RowKey(row)
		if _, ok := exclude[key]; ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, DiffRow{Side: side, Row: row})
	}
	return out
}
