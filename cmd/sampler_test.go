package cmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/airframesio/parquet-compare/cmd/tables"
	"github.com/google/go-cmp/cmp"
)

// fakeTable records sampler calls and serves canned results
type fakeTable struct {
	path       string
	keys       tables.KeySet
	rows       []tables.Row
	sampleErr  error
	sampleCols []string
	filter     tables.Filter
	limit      int
	lookups    int
}

func (f *fakeTable) Path() string { return f.path }

func (f *fakeTable) Columns(context.Context) ([]tables.Column, error) { return nil, nil }

func (f *fakeTable) SampleDistinct(_ context.Context, cols []string, filter tables.Filter, limit int) (tables.KeySet, error) {
	f.sampleCols = cols
	f.filter = filter
	f.limit = limit
	return f.keys, f.sampleErr
}

func (f *fakeTable) SelectByKeys(context.Context, tables.KeySet) ([]tables.Row, error) {
	f.lookups++
	return f.rows, nil
}

func (f *fakeTable) Close() error { return nil }

func TestCutoff(t *testing.T) {
	tests := []struct {
		now  time.Time
		days int
		want string
	}{
		{time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC), 31, "2024-02-13"},
		{time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 31, "2024-02-13"},
		{time.Date(2024, 3, 2, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600)), 1, "2024-02-29"},
		{time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC), 0, "2024-01-10"},
	}

	for _, tt := range tests {
		got := Cutoff(tt.now, tt.days)
		if got.Format("2006-01-02") != tt.want {
			t.Errorf("Cutoff(%v, %d) = %s, want %s", tt.now, tt.days, got.Format("2006-01-02"), tt.want)
		}
		if got.Hour() != 0 || got.Location() != time.UTC {
			t.Errorf("cutoff must be midnight UTC, got %v", got)
		}
	}
}

func TestSymmetricDifference(t *testing.T) {
	r1 := tables.Row{"resource_uid": "i-a", "usage_amount": 1.0, "region": "us-east-1"}
	r2 := tables.Row{"resource_uid": "i-b", "usage_amount": 2.0, "region": "us-east-1"}
	r2Moved := tables.Row{"resource_uid": "i-b", "usage_amount": 2.0, "region": "eu-west-1"}

	t.Run("unchanged rows", func(t *testing.T) {
		got := SymmetricDifference([]tables.Row{r1, r2}, []tables.Row{r2, r1})
		if len(got) != 0 {
			t.Errorf("expected no differences, got %v", got)
		}
	})

	t.Run("one modified row shows both versions", func(t *testing.T) {
		got := SymmetricDifference([]tables.Row{r1, r2Moved}, []tables.Row{r1, r2})
		want := []DiffRow{
			{Side: SideNew, Row: r2Moved},
			{Side: SideOld, Row: r2},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("SymmetricDifference mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		got := SymmetricDifference([]tables.Row{r2Moved, r2Moved}, nil)
		if len(got) != 1 {
			t.Errorf("expected 1 distinct row, got %d", len(got))
		}
	})

	t.Run("integer widths compare equal", func(t *testing.T) {
		got := SymmetricDifference(
			[]tables.Row{{"id": int32(5)}},
			[]tables.Row{{"id": int64(5)}},
		)
		if len(got) != 0 {
			t.Errorf("expected no differences, got %v", got)
		}
	})
}

func TestCompareSamples(t *testing.T) {
	ctx := context.Background()
	cutoff := time.Date(2024, 2, 13, 0, 0, 0, 0, time.UTC)

	t.Run("samples previous snapshot with settled filter", func(t *testing.T) {
		row := tables.Row{"resource_uid": "i-a"}
		previous := &fakeTable{
			path: "old.parquet",
			keys: tables.KeySet{Columns: sampleKeyColumns, Tuples: [][]any{{"2024-01-01", "i-a", 1.0, 1.0, 1.0, 1.0}}},
			rows: []tables.Row{row},
		}
		newest := &fakeTable{path: "new.parquet", rows: []tables.Row{row}}

		diff, err := CompareSamples(ctx, newest, previous, cutoff, 1000)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if diff.Cutoff != "2024-02-13" || diff.SampledKeys != 1 || diff.NewRows != 1 || diff.OldRows != 1 {
			t.Errorf("unexpected summary: %+v", diff)
		}
		if !diff.Identical() {
			t.Errorf("expected identical samples, got %v", diff.Rows)
		}
		if newest.sampleCols != nil {
			t.Error("keys must be sampled from the previous snapshot only")
		}
		if diff := cmp.Diff(sampleKeyColumns, previous.sampleCols); diff != "" {
			t.Errorf("key columns mismatch (-want +got):\n%s", diff)
		}
		if previous.limit != 1000 {
			t.Errorf("expected limit 1000, got %d", previous.limit)
		}
		wantFilter := tables.Filter{
			NotEmpty:   []string{"resource_uid", "billing_account"},
			TimeColumn: "timestamp",
			Before:     cutoff,
		}
		if diff := cmp.Diff(wantFilter, previous.filter); diff != "" {
			t.Errorf("filter mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("no keys skips lookups", func(t *testing.T) {
		previous := &fakeTable{path: "old.parquet"}
		newest := &fakeTable{path: "new.parquet"}

		diff, err := CompareSamples(ctx, newest, previous, cutoff, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !diff.Identical() || newest.lookups != 0 || previous.lookups != 0 {
			t.Errorf("expected empty result without lookups, got %+v", diff)
		}
	})

	t.Run("sample error propagates", func(t *testing.T) {
		boom := errors.New("boom")
		previous := &fakeTable{path: "old.parquet", sampleErr: boom}

		_, err := CompareSamples(ctx, &fakeTable{}, previous, cutoff, 10)
		if !errors.Is(err, boom) {
			t.Fatalf("expected wrapped sample error, got %v", err)
		}
	})
}
