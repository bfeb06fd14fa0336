package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/airframesio/parquet-compare/cmd/tables"
)

func TestExecuteCompareExitCodes(t *testing.T) {
	logger = newTestLogger()

	tests := []struct {
		name       string
		params     string
		snapshots  int
		cancel     bool
		paramsURI  string
		wantCode   int
		wantOutput string
	}{
		{
			name:       "skipped",
			params:     `{"full_table_name": "cur.billing.line_items", "save_convergence_file": false}`,
			wantCode:   exitOK,
			wantOutput: "{\"convergence_s3_uri\": \"\"}\n",
		},
		{
			name:       "insufficient data",
			params:     enabledParams,
			wantCode:   exitOK,
			wantOutput: "Only 0 files found in the bucket for billing. Expected at least 2 files.\n",
		},
		{
			name:     "completed",
			params:   enabledParams,
			wantCode: exitOK,
		},
		{
			name:      "missing parameter record",
			params:    enabledParams,
			paramsURI: "s3://params/missing.json",
			wantCode:  exitFailure,
		},
		{
			name:     "cancelled",
			params:   enabledParams,
			cancel:   true,
			wantCode: exitCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storeWithParams(tt.params)
			if tt.name == "completed" {
				store.addSnapshot(testBucket, "billing/t2.parquet", snapshotT2, encodeParquet(t, oldBillingRows()))
				store.addSnapshot(testBucket, "billing/t3.parquet", snapshotT3, encodeParquet(t, oldBillingRows()))
			}

			config := testCompareConfig("false")
			config.TempDir = t.TempDir()
			if tt.paramsURI != "" {
				config.ParamsURI = tt.paramsURI
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				cancel()
			}

			var out bytes.Buffer
			code := executeCompare(ctx, config, store, tables.NewNativeSource(), &out)
			if code != tt.wantCode {
				t.Fatalf("expected exit code %d, got %d", tt.wantCode, code)
			}
			if tt.wantOutput != "" && out.String() != tt.wantOutput {
				t.Errorf("unexpected output: %q", out.String())
			}
			if tt.wantCode != exitOK && out.Len() != 0 {
				t.Errorf("failed runs must not write a report, got %q", out.String())
			}
			if tt.name == "completed" && !bytes.Contains(out.Bytes(), []byte("SCHEMA COMPARISON")) {
				t.Errorf("expected a schema report, got %q", out.String())
			}
		})
	}
}

func TestExecuteCompareInvalidSampleFormat(t *testing.T) {
	logger = newTestLogger()

	config := testCompareConfig("false")
	config.SampleFormat = "xml"

	var out bytes.Buffer
	code := executeCompare(context.Background(), config, newMemoryStore(), tables.NewNativeSource(), &out)
	if code != exitFailure {
		t.Errorf("expected exit code %d, got %d", exitFailure, code)
	}
}
