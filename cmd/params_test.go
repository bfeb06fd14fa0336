package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseObjectURI(t *testing.T) {
	tests := []struct {
		raw     string
		want    ObjectURI
		wantErr error
	}{
		{raw: "s3://bucket/path/to/params.json", want: ObjectURI{Bucket: "bucket", Key: "path/to/params.json"}},
		{raw: "s3a://bucket/params.json", want: ObjectURI{Bucket: "bucket", Key: "params.json"}},
		{raw: "file:///tmp/params.json", want: ObjectURI{Path: "/tmp/params.json"}},
		{raw: "params.json", want: ObjectURI{Path: "params.json"}},
		{raw: "", wantErr: ErrParamsURIRequired},
		{raw: "s3://bucket/", wantErr: ErrParamsURIInvalid},
		{raw: "https://example.com/params.json", wantErr: ErrParamsURIInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseObjectURI(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseObjectURI mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeParams(t *testing.T) {
	full := `{"org_id": 42, "s3_files": ["a", "b"], "full_table_name": "cat.billing.items",
		"dimensions": ["region"], "metrics": ["cost"], "save_convergence_file": true, "extra": 1}`

	t.Run("SingleObject", func(t *testing.T) {
		got, err := DecodeParams(strings.NewReader(full))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := &Params{
			OrgID:               42,
			S3Files:             []string{"a", "b"},
			FullTableName:       "cat.billing.items",
			Dimensions:          []string{"region"},
			Metrics:             []string{"cost"},
			SaveConvergenceFile: true,
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("DecodeParams mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("JSONLinesUsesFirstRecord", func(t *testing.T) {
		input := `{"full_table_name": "a.first.t"}` + "\n" + `{"full_table_name": "a.second.t"}` + "\n"
		got, err := DecodeParams(strings.NewReader(input))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.FullTableName != "a.first.t" {
			t.Errorf("expected first record, got %s", got.FullTableName)
		}
	})

	t.Run("TopLevelArray", func(t *testing.T) {
		input := `  [{"save_convergence_file": true}, {"save_convergence_file": false}]`
		got, err := DecodeParams(strings.NewReader(input))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.SaveConvergenceFile {
			t.Error("expected first array element")
		}
	})

	failures := map[string]string{
		"Empty":              "",
		"WhitespaceOnly":     " \n\t",
		"Malformed":          `{"org_id": `,
		"WrongType":          `{"save_convergence_file": "true"}`,
		"BadSecondRecord":    `{"org_id": 1}` + "\n" + `{"org_id": "x"}`,
		"ScalarRecord":       `42`,
		"TrailingAfterArray": `[{"org_id": 1}] {"org_id": 2}`,
	}
	for name, input := range failures {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeParams(strings.NewReader(input))
			if !errors.Is(err, ErrParse) {
				t.Fatalf("expected ErrParse, got %v", err)
			}
		})
	}
}

func TestLoadParams(t *testing.T) {
	ctx := context.Background()

	t.Run("FromObjectStore", func(t *testing.T) {
		store := newMemoryStore()
		store.put("params", "run.json", []byte(`{"full_table_name": "cat.billing.items", "save_convergence_file": true}`))

		params, err := LoadParams(ctx, store, "s3://params/run.json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if params.FullTableName != "cat.billing.items" {
			t.Errorf("unexpected table name: %s", params.FullTableName)
		}
	})

	t.Run("FromLocalFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "params.json")
		if err := os.WriteFile(path, []byte(`{"org_id": 7}`), 0o644); err != nil {
			t.Fatal(err)
		}

		for _, uri := range []string{path, "file://" + path} {
			params, err := LoadParams(ctx, newMemoryStore(), uri)
			if err != nil {
				t.Fatalf("unexpected error for %s: %v", uri, err)
			}
			if params.OrgID != 7 {
				t.Errorf("expected org 7, got %d", params.OrgID)
			}
		}
	})

	t.Run("MissingObject", func(t *testing.T) {
		_, err := LoadParams(ctx, newMemoryStore(), "s3://params/missing.json")
		if err == nil {
			t.Fatal("expected error for missing object")
		}
	})
}
