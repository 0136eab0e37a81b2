package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Table is the tabular working representation passed between pipeline stages.
// Rows are positional: Rows[i][j] is the value of Columns[j]. Stages never
// mutate a table they receive; they build a new one.
type Table struct {
	Columns []string
	Rows    [][]Value

	index map[string]int
}

// NewTable creates an empty table with the given column order
func NewTable(columns []string) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", name)
		}
		index[name] = i
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols, index: index}, nil
}

// NewTableFromStrings builds a table from string records; empty strings are missing.
// It is mainly a convenience for tests and fixtures.
func NewTableFromStrings(columns []string, records [][]string) (*Table, error) {
	t, err := NewTable(columns)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		row := make([]Value, len(rec))
		for i, s := range rec {
			row[i] = NewStringValue(s)
		}
		if err := t.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// AppendRow adds a row; it must have one value per column
func (t *Table) AppendRow(row []Value) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// NumRows returns the row count
func (t *Table) NumRows() int { return len(t.Rows) }

// NumColumns returns the column count
func (t *Table) NumColumns() int { return len(t.Columns) }

// IsEmpty reports whether the table has no rows or no columns
func (t *Table) IsEmpty() bool {
	return t == nil || len(t.Rows) == 0 || len(t.Columns) == 0
}

// ColumnIndex returns the position of a column
func (t *Table) ColumnIndex(name string) (int, bool) {
	if t.index != nil {
		i, ok := t.index[name]
		return i, ok
	}
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// HasColumn reports whether the column exists
func (t *Table) HasColumn(name string) bool {
	_, ok := t.ColumnIndex(name)
	return ok
}

// Get returns the value at row i for the named column, or missing if the column is absent
func (t *Table) Get(i int, column string) Value {
	j, ok := t.ColumnIndex(column)
	if !ok || i < 0 || i >= len(t.Rows) {
		return NewMissingValue()
	}
	return t.Rows[i][j]
}

// Column returns a copy of all values of one column
func (t *Table) Column(name string) []Value {
	j, ok := t.ColumnIndex(name)
	if !ok {
		return nil
	}
	out := make([]Value, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[j]
	}
	return out
}

// RowMap returns row i keyed by column name
func (t *Table) RowMap(i int) map[string]Value {
	m := make(map[string]Value, len(t.Columns))
	for j, c := range t.Columns {
		m[c] = t.Rows[i][j]
	}
	return m
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	out, _ := NewTable(t.Columns)
	out.Rows = make([][]Value, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]Value, len(row))
		copy(r, row)
		out.Rows[i] = r
	}
	return out
}

// SelectRows returns a new table holding copies of the given rows in the given order
func (t *Table) SelectRows(indices []int) *Table {
	out, _ := NewTable(t.Columns)
	out.Rows = make([][]Value, 0, len(indices))
	for _, i := range indices {
		r := make([]Value, len(t.Rows[i]))
		copy(r, t.Rows[i])
		out.Rows = append(out.Rows, r)
	}
	return out
}

// WithColumn returns a copy of the table with an extra column appended
func (t *Table) WithColumn(name string, values []Value) (*Table, error) {
	if t.HasColumn(name) {
		return nil, fmt.Errorf("column %q already exists", name)
	}
	if len(values) != len(t.Rows) {
		return nil, fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), len(t.Rows))
	}
	out, err := NewTable(append(append([]string{}, t.Columns...), name))
	if err != nil {
		return nil, err
	}
	out.Rows = make([][]Value, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]Value, len(row)+1)
		copy(r, row)
		r[len(row)] = values[i]
		out.Rows[i] = r
	}
	return out, nil
}

// CellCount returns rows x columns
func (t *Table) CellCount() int {
	return len(t.Rows) * len(t.Columns)
}

// NullCount returns the number of missing cells
func (t *Table) NullCount() int {
	n := 0
	for _, row := range t.Rows {
		n += RowNullCount(row)
	}
	return n
}

// RowNullCount returns the number of missing cells in a row
func RowNullCount(row []Value) int {
	n := 0
	for _, v := range row {
		if v.IsMissing() {
			n++
		}
	}
	return n
}

// RowKey encodes a full row for exact-equality comparisons
func RowKey(row []Value) string {
	var b strings.Builder
	for _, v := range row {
		b.WriteString(v.Key())
		b.WriteByte('|')
	}
	return b.String()
}

// MarshalJSON renders the table as an array of row objects with keys in column order
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range t.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, c := range t.Columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(c)
			if err != nil {
				return nil, err
			}
			val, err := row[j].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
