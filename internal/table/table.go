// Package table holds the in-memory rectangular dataset the transform engine
// operates on: ordered, uniquely named columns of a single scalar kind each.
//
// Tables are values. Every derivation returns a new Table that shares the
// columns it did not touch with its source, so a Table is never modified
// after construction.
package table

import (
	"fmt"
)

// Table is an ordered set of equal-length named columns.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New validates the rectangular invariant and column-name uniqueness.
func New(cols ...*Column) (*Table, error) {
	rows := 0
	if len(cols) > 0 {
		rows = cols[0].Len()
	}
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("nil column")
		}
		if c.Len() != rows {
			return nil, fmt.Errorf("column '%s' has %d rows, want %d", c.Name, c.Len(), rows)
		}
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column name '%s'", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return build(cols, rows), nil
}

// MustNew is New for fixtures; it panics on invalid input.
func MustNew(cols ...*Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Empty returns a table with no rows and no columns.
func Empty() *Table {
	return build(nil, 0)
}

func build(cols []*Column, rows int) *Table {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		index[c.Name] = i
	}
	return &Table{cols: cols, index: index, rows: rows}
}

func (t *Table) NumRows() int { return t.rows }
func (t *Table) NumCols() int { return len(t.cols) }

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in table order. The slice is a copy; the
// columns themselves are shared.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.cols))
	copy(out, t.cols)
	return out
}

// Column looks up a column by exact name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

func (t *Table) ColumnAt(i int) *Column { return t.cols[i] }

func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Missing returns every name not present in the table, in argument order,
// without repeats.
func (t *Table) Missing(names ...string) []string {
	var missing []string
	seen := make(map[string]struct{})
	for _, n := range names {
		if t.HasColumn(n) {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		missing = append(missing, n)
	}
	return missing
}

// Row returns the cells of row i in column order.
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.cols))
	for j, c := range t.cols {
		row[j] = c.Values[i]
	}
	return row
}

// NullMask returns the null flags of the named column, or nil if absent.
func (t *Table) NullMask(name string) []bool {
	c, ok := t.Column(name)
	if !ok {
		return nil
	}
	return c.NullMask()
}

// SelectRows returns a table holding the given rows, in the given order.
func (t *Table) SelectRows(idx []int) *Table {
	cols := make([]*Column, len(t.cols))
	for j, c := range t.cols {
		values := make([]any, len(idx))
		for k, i := range idx {
			values[k] = c.Values[i]
		}
		cols[j] = &Column{Name: c.Name, Kind: c.Kind, Values: values}
	}
	return build(cols, len(idx))
}

// WithColumn returns a table where col replaces the column of the same name,
// or is appended when no such column exists.
func (t *Table) WithColumn(col *Column) (*Table, error) {
	if len(t.cols) > 0 && col.Len() != t.rows {
		return nil, fmt.Errorf("column '%s' has %d rows, want %d", col.Name, col.Len(), t.rows)
	}
	cols := make([]*Column, len(t.cols), len(t.cols)+1)
	copy(cols, t.cols)
	if i, ok := t.index[col.Name]; ok {
		cols[i] = col
	} else {
		cols = append(cols, col)
	}
	return build(cols, col.Len()), nil
}

// WithColumns applies WithColumn for each column in order.
func (t *Table) WithColumns(cols ...*Column) (*Table, error) {
	out := t
	for _, c := range cols {
		next, err := out.WithColumn(c)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

// Rename applies mapping simultaneously, so swaps are allowed. Names absent
// from the table are ignored; the result must still have unique names.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	cols := make([]*Column, len(t.cols))
	seen := make(map[string]struct{}, len(t.cols))
	for i, c := range t.cols {
		name := c.Name
		if to, ok := mapping[name]; ok {
			name = to
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate column name '%s'", name)
		}
		seen[name] = struct{}{}
		if name == c.Name {
			cols[i] = c
			continue
		}
		cols[i] = &Column{Name: name, Kind: c.Kind, Values: c.Values}
	}
	return build(cols, t.rows), nil
}

// Drop returns a table without the named columns.
func (t *Table) Drop(names ...string) *Table {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	cols := make([]*Column, 0, len(t.cols))
	for _, c := range t.cols {
		if _, ok := drop[c.Name]; !ok {
			cols = append(cols, c)
		}
	}
	return build(cols, t.rows)
}
