package tables

import (
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
)

// fieldNode is a schema node with the definition and repetition levels at
// which it is present, and the leaf columns beneath it.
type fieldNode struct {
	name     string
	def      int
	rep      int
	repeated bool
	leaf     bool
	list     bool
	mapped   bool
	logical  *format.LogicalType
	columns  []int
	children []*fieldNode
}

// schemaFields annotates the top-level fields of schema. Leaf columns are
// numbered depth first, matching the column index of parquet values.
func schemaFields(schema *parquet.Schema) []*fieldNode {
	next := 0
	fields := make([]*fieldNode, 0, len(schema.Fields()))
	for _, field := range schema.Fields() {
		fields = append(fields, buildField(field, 0, 0, &next))
	}
	return fields
}

func buildField(node parquet.Field, parentDef, parentRep int, next *int) *fieldNode {
	f := &fieldNode{name: node.Name(), def: parentDef, rep: parentRep}
	switch {
	case node.Optional():
		f.def++
	case node.Repeated():
		f.def++
		f.rep++
		f.repeated = true
	}
	if t := node.Type(); t != nil {
		f.logical = t.LogicalType()
	}

	if node.Leaf() {
		f.leaf = true
		f.columns = []int{*next}
		*next++
		return f
	}

	for _, field := range node.Fields() {
		child := buildField(field, f.def, f.rep, next)
		f.children = append(f.children, child)
		f.columns = append(f.columns, child.columns...)
	}
	if f.logical != nil && len(f.children) == 1 && f.children[0].repeated {
		f.list = f.logical.List != nil
		f.mapped = f.logical.Map != nil
	}
	return f
}

// columnValues holds the values of each leaf column for one instance of a
// node, keyed by column index
type columnValues map[int][]parquet.Value

// assembleRow rebuilds top-level values from the levels of a flat parquet
// row. A null list stays nil and an empty list is []any{}; null list
// elements are kept. Groups become map[string]any and maps become a list
// of key/value groups.
func assembleRow(fields []*fieldNode, values parquet.Row) Row {
	vals := make(columnValues)
	for _, v := range values {
		vals[v.Column()] = append(vals[v.Column()], v)
	}

	row := make(Row, len(fields))
	for _, f := range fields {
		row[f.name] = f.value(vals)
	}
	return row
}

func (f *fieldNode) value(vals columnValues) any {
	if f.repeated {
		chunks := f.split(vals)
		items := make([]any, len(chunks))
		for i, chunk := range chunks {
			items[i] = f.instance(chunk)
		}
		return items
	}
	return f.instance(vals)
}

// present reports whether the node is defined in vals
func (f *fieldNode) present(vals columnValues) bool {
	if len(f.columns) == 0 {
		return false
	}
	first := vals[f.columns[0]]
	return len(first) > 0 && first[0].DefinitionLevel() >= f.def
}

// instance builds one occurrence of the node
func (f *fieldNode) instance(vals columnValues) any {
	if !f.present(vals) {
		return nil
	}
	if f.leaf {
		return convertValue(vals[f.columns[0]][0], f.logical)
	}

	if f.list {
		repeated := f.children[0]
		if repeated.leaf || len(repeated.children) != 1 {
			return repeated.value(vals)
		}
		element := repeated.children[0]
		chunks := repeated.split(vals)
		items := make([]any, len(chunks))
		for i, chunk := range chunks {
			items[i] = element.value(chunk)
		}
		return items
	}

	if f.mapped {
		return f.children[0].value(vals)
	}

	group := make(map[string]any, len(f.children))
	for _, child := range f.children {
		group[child.name] = child.value(vals)
	}
	return group
}

// split cuts the values of a repeated node into one set per occurrence.
// An occurrence starts at every value repeated at the node's own level.
func (f *fieldNode) split(vals columnValues) []columnValues {
	if !f.present(vals) {
		return nil
	}

	var chunks []columnValues
	for _, col := range f.columns {
		values := vals[col]
		for i, start := 0, 0; start < len(values); i++ {
			end := start + 1
			for end < len(values) && values[end].RepetitionLevel() > f.rep {
				end++
			}
			if i == len(chunks) {
				chunks = append(chunks, columnValues{})
			}
			chunks[i][col] = values[start:end]
			start = end
		}
	}
	return chunks
}
