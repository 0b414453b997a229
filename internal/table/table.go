package table

import "fmt"

// Table is an immutable batch of rows conforming to a schema. Row values are
// stored positionally, aligned with the schema's field order; nil represents
// SQL NULL. Transformations never mutate a table in place — they construct a
// new one.
type Table struct {
	schema Schema
	rows   [][]any
}

// New builds a table from a schema and positional rows. Every row must have
// exactly one value per schema field.
func New(schema Schema, rows [][]any) (*Table, error) {
	for i, row := range rows {
		if len(row) != len(schema) {
			return nil, fmt.Errorf("row %d has %d values, schema has %d fields", i, len(row), len(schema))
		}
	}
	return &Table{schema: schema, rows: rows}, nil
}

// Empty returns a table with the given schema and no rows.
func Empty(schema Schema) *Table {
	return &Table{schema: schema}
}

// Schema returns the table's schema.
func (t *Table) Schema() Schema { return t.schema }

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.rows) }

// Row returns the i-th row. The returned slice is shared — callers must not
// modify it.
func (t *Table) Row(i int) []any { return t.rows[i] }

// Value returns the value at row i for the named column. The second return
// is false when the column does not exist.
func (t *Table) Value(i int, name string) (any, bool) {
	idx := t.schema.Index(name)
	if idx < 0 {
		return nil, false
	}
	return t.rows[i][idx], true
}

// HasColumn reports whether the table carries the named column (exact match).
func (t *Table) HasColumn(name string) bool {
	return t.schema.Index(name) >= 0
}

// AppendColumn returns a new table with one extra column holding the given
// values. len(values) must equal NumRows.
func (t *Table) AppendColumn(field Field, values []any) (*Table, error) {
	if len(values) != len(t.rows) {
		return nil, fmt.Errorf("column %q has %d values for %d rows", field.Name, len(values), len(t.rows))
	}
	schema, err := NewSchema(append(append(Schema{}, t.schema...), field)...)
	if err != nil {
		return nil, err
	}
	rows := make([][]any, len(t.rows))
	for i, row := range t.rows {
		out := make([]any, len(row)+1)
		copy(out, row)
		out[len(row)] = values[i]
		rows[i] = out
	}
	return &Table{schema: schema, rows: rows}, nil
}

// DropColumn returns a new table without the named column. Dropping an
// absent column is a no-op returning the receiver.
func (t *Table) DropColumn(name string) *Table {
	idx := t.schema.Index(name)
	if idx < 0 {
		return t
	}
	schema := make(Schema, 0, len(t.schema)-1)
	schema = append(schema, t.schema[:idx]...)
	schema = append(schema, t.schema[idx+1:]...)
	rows := make([][]any, len(t.rows))
	for i, row := range t.rows {
		out := make([]any, 0, len(row)-1)
		out = append(out, row[:idx]...)
		out = append(out, row[idx+1:]...)
		rows[i] = out
	}
	return &Table{schema: schema, rows: rows}
}

// Filter returns a new table containing only the rows for which keep returns
// true, preserving order.
func (t *Table) Filter(keep func(row []any) bool) *Table {
	var rows [][]any
	for _, row := range t.rows {
		if keep(row) {
			rows = append(rows, row)
		}
	}
	return &Table{schema: t.schema, rows: rows}
}
