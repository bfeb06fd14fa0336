package formatters

import (
	"encoding/json"
	"io"
)

// JSONLFormatter handles JSONL (JSON Lines) format output
type JSONLFormatter struct{}

// NewJSONLFormatter creates a new JSONL formatter
func NewJSONLFormatter() *JSONLFormatter {
	return &JSONLFormatter{}
}

// Write encodes each row as one JSON object per line. Keys are emitted in
// sorted order by encoding/json, so columns only selects which keys appear.
func (f *JSONLFormatter) Write(w io.Writer, columns []string, rows []map[string]interface{}) error {
	encoder := json.NewEncoder(w)
	for _, row := range rows {
		record := make(map[string]interface{}, len(columns))
		for _, col := range columns {
			record[col] = row[col]
		}
		if err := encoder.Encode(record); err != nil {
			return err
		}
	}
	return nil
}
