package formatters

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// TableFormatter renders rows as a boxed terminal table
type TableFormatter struct {
	style table.Style
}

// NewTableFormatter creates a table formatter with the light box style
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{style: table.StyleLight}
}

// Write renders a header and one line per row
func (f *TableFormatter) Write(w io.Writer, columns []string, rows []map[string]interface{}) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(f.style)

	header := make(table.Row, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		line := make(table.Row, len(columns))
		for i, col := range columns {
			line[i] = cellString(row[col])
		}
		tw.AppendRow(line)
	}

	tw.Render()
	return nil
}
