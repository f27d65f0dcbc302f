// pkg/model/table.go
package model

import (
	"math"
	"strings"
)

// ColumnKind is the loose semantic type of a column
type ColumnKind string

const (
	KindString   ColumnKind = "string"
	KindNumber   ColumnKind = "number"
	KindCategory ColumnKind = "category"
	KindDate     ColumnKind = "date"
)

// Row maps column name to a scalar value. nil and NaN are treated as missing.
type Row map[string]interface{}

// Table is an ordered set of rows sharing a named, ordered column set
type Table struct {
	Name    string                // Logical name, usually the source table
	Columns []string              // Column order
	Kinds   map[string]ColumnKind // Kind annotations; absent means unannotated
	Rows    []Row                 // Rows in original relative order
	Index   []int                 // Original row positions, parallel to Rows
}

// NewTable creates a table and assigns a contiguous index to its rows
func NewTable(name string, columns []string, rows []Row) *Table {
	t := &Table{
		Name:    name,
		Columns: append([]string(nil), columns...),
		Kinds:   make(map[string]ColumnKind),
		Rows:    rows,
	}
	if t.Rows == nil {
		t.Rows = make([]Row, 0)
	}
	t.ResetIndex()
	return t
}

// IsMissing reports whether a value counts as missing
func IsMissing(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(val)
	case float32:
		return math.IsNaN(float64(val))
	case *float64:
		return val == nil || math.IsNaN(*val)
	case *string:
		return val == nil
	default:
		return false
	}
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the column exists (case-sensitive)
func (t *Table) HasColumn(name string) bool {
	return t.columnPos(name) >= 0
}

func (t *Table) columnPos(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Kind returns the annotated kind of a column, KindString when unannotated
func (t *Table) Kind(name string) ColumnKind {
	if k, ok := t.Kinds[name]; ok {
		return k
	}
	return KindString
}

// SetKind annotates a column
func (t *Table) SetKind(name string, kind ColumnKind) {
	if t.Kinds == nil {
		t.Kinds = make(map[string]ColumnKind)
	}
	t.Kinds[name] = kind
}

// Clone returns a deep copy of the table structure and rows
func (t *Table) Clone() *Table {
	out := &Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Kinds:   make(map[string]ColumnKind, len(t.Kinds)),
		Rows:    make([]Row, len(t.Rows)),
		Index:   append([]int(nil), t.Index...),
	}
	for k, v := range t.Kinds {
		out.Kinds[k] = v
	}
	for i, row := range t.Rows {
		cp := make(Row, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	if len(out.Index) != len(out.Rows) {
		out.ResetIndex()
	}
	return out
}

// Filter returns a copy holding only rows for which keep returns true
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := t.Clone()
	rows := out.Rows[:0]
	index := out.Index[:0]
	for i, row := range out.Rows {
		if keep(row) {
			rows = append(rows, row)
			index = append(index, out.Index[i])
		}
	}
	out.Rows = rows
	out.Index = index
	return out
}

// DropColumns returns a copy without the named columns
func (t *Table) DropColumns(names ...string) *Table {
	out := t.Clone()
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}

	cols := out.Columns[:0]
	for _, c := range out.Columns {
		if !drop[c] {
			cols = append(cols, c)
		}
	}
	out.Columns = cols

	for n := range drop {
		delete(out.Kinds, n)
		for _, row := range out.Rows {
			delete(row, n)
		}
	}
	return out
}

// ResetIndex re-sequences the row index to 0..n-1
func (t *Table) ResetIndex() {
	t.Index = make([]int, len(t.Rows))
	for i := range t.Rows {
		t.Index[i] = i
	}
}

// Column returns the values of a column in row order
func (t *Table) Column(name string) []interface{} {
	values := make([]interface{}, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[name]
	}
	return values
}

// ColumnAllMissing reports whether every row is missing a value for the column.
// An empty table has no all-missing columns.
func (t *Table) ColumnAllMissing(name string) bool {
	if len(t.Rows) == 0 {
		return false
	}
	for _, row := range t.Rows {
		if !IsMissing(row[name]) {
			return false
		}
	}
	return true
}

// String returns a short description for logging
func (t *Table) String() string {
	return t.Name + "[" + strings.Join(t.Columns, ",") + "]"
}
