package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/airframesio/parquet-compare/cmd/formatters"
)

// sideColumn labels which snapshot a differing row came from in the
// rendered sample table
const sideColumn = "_snapshot"

// Reporter renders a comparison Result
type Reporter struct {
	format string
	sink   formatters.Formatter
}

// NewReporter creates a reporter for the given output and sample formats
func NewReporter(outputFormat, sampleFormat string) (*Reporter, error) {
	sink, err := formatters.GetFormatter(sampleFormat)
	if err != nil {
		return nil, err
	}
	return &Reporter{format: outputFormat, sink: sink}, nil
}

// Write renders result to w. A skipped run always produces the bare skip
// payload regardless of the output format.
func (r *Reporter) Write(w io.Writer, result *Result) error {
	if result.Kind == ResultSkipped {
		return writeSkipPayload(w, result.Skip)
	}

	if r.format == outputFormatJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	if result.Kind == ResultInsufficientData {
		_, err := fmt.Fprintln(w, result.Message)
		return err
	}

	return r.writeText(w, result)
}

func writeSkipPayload(w io.Writer, payload *SkipPayload) error {
	if payload == nil {
		payload = &SkipPayload{}
	}
	uri, err := json.Marshal(payload.ConvergenceS3URI)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "{\"convergence_s3_uri\": %s}\n", uri)
	return err
}

func (r *Reporter) writeText(w io.Writer, result *Result) error {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(w, "SNAPSHOT COMPARISON\n")
	fmt.Fprintf(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(w, "Newest:   %s (%s)\n", result.Newest.Key, result.Newest.LastModified.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "Previous: %s (%s)\n", result.Previous.Key, result.Previous.LastModified.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "\n")

	if result.Schema != nil {
		fmt.Fprintf(w, "SCHEMA COMPARISON\n")
		fmt.Fprintf(w, "─────────────────────────────────\n")
		writeSchemaDiff(w, result.Schema)
		fmt.Fprintf(w, "\n")
	}

	if result.SampleData != nil {
		fmt.Fprintf(w, "DATA COMPARISON\n")
		fmt.Fprintf(w, "─────────────────────────────────\n")
		if err := r.writeSampleDiff(w, result.SampleData); err != nil {
			return err
		}
		fmt.Fprintf(w, "\n")
	}

	_, err := fmt.Fprintf(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	return err
}

func writeSchemaDiff(w io.Writer, diff *SchemaDiff) {
	if diff.Identical() {
		fmt.Fprintf(w, "The column names and data types are identical in both files.\n")
		return
	}

	fmt.Fprintf(w, "Columns in the new file but not in the old file:\n")
	if len(diff.NewOnly) == 0 {
		fmt.Fprintf(w, "  (none)\n")
	}
	for _, col := range diff.NewOnly {
		fmt.Fprintf(w, "  • %s\n", col)
	}

	fmt.Fprintf(w, "Columns in the old file but not in the new file:\n")
	if len(diff.OldOnly) == 0 {
		fmt.Fprintf(w, "  (none)\n")
	}
	for _, col := range diff.OldOnly {
		fmt.Fprintf(w, "  • %s\n", col)
	}
}

func (r *Reporter) writeSampleDiff(w io.Writer, diff *SampleDiff) error {
	fmt.Fprintf(w, "Rows compared up to %s\n", diff.Cutoff)
	fmt.Fprintf(w, "Sampled keys: %d (new file rows: %d, old file rows: %d)\n",
		diff.SampledKeys, diff.NewRows, diff.OldRows)

	if diff.Identical() {
		fmt.Fprintf(w, "✅ No differences found in sampled rows\n")
		return nil
	}

	fmt.Fprintf(w, "⚠️  %d rows differ between the sampled snapshots:\n", len(diff.Rows))
	rows := make([]map[string]interface{}, len(diff.Rows))
	for i, d := range diff.Rows {
		row := make(map[string]interface{}, len(d.Row)+1)
		for col, val := range d.Row {
			row[col] = val
		}
		row[sideColumn] = d.Side
		rows[i] = row
	}

	columns := append([]string{sideColumn}, withoutColumn(formatters.Columns(rows), sideColumn)...)
	return r.sink.Write(w, columns, rows)
}

func withoutColumn(columns []string, name string) []string {
	out := make([]string, 0, len(columns))
	for _, col := range columns {
		if col != name {
			out = append(out, col)
		}
	}
	return out
}
