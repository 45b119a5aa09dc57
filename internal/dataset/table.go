package dataset

import (
	"fmt"
)

// Kind discriminates column storage.
type Kind uint8

const (
	// KindText columns hold raw strings; empty string marks an empty cell.
	KindText Kind = iota
	// KindFloat columns hold optional floats.
	KindFloat
)

// Column is a single named column. Exactly one of the backing slices
// is populated, matching the kind.
type Column struct {
	name   string
	kind   Kind
	texts  []string
	floats []Float
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Kind returns the storage kind.
func (c *Column) Kind() Kind { return c.kind }

// Len returns the number of cells.
func (c *Column) Len() int {
	if c.kind == KindFloat {
		return len(c.floats)
	}
	return len(c.texts)
}

// Float returns the cell at i for numeric columns; text columns
// always report missing.
func (c *Column) Float(i int) Float {
	if c.kind != KindFloat {
		return Float{}
	}
	return c.floats[i]
}

// Text returns the cell at i for text columns; numeric columns report
// the minimally formatted value or "" when missing.
func (c *Column) Text(i int) string {
	if c.kind == KindText {
		return c.texts[i]
	}
	return c.floats[i].String()
}

// Floats exposes the backing slice of a numeric column. Callers must
// treat it as read-only. Returns nil for text columns.
func (c *Column) Floats() []Float { return c.floats }

// Texts exposes the backing slice of a text column. Callers must
// treat it as read-only. Returns nil for numeric columns.
func (c *Column) Texts() []string { return c.texts }

// MissingCount reports how many cells are missing: invalid floats for
// numeric columns, empty strings for text columns.
func (c *Column) MissingCount() int {
	n := 0
	if c.kind == KindFloat {
		for _, f := range c.floats {
			if !f.Valid {
				n++
			}
		}
		return n
	}
	for _, s := range c.texts {
		if s == "" {
			n++
		}
	}
	return n
}

func (c *Column) clone() *Column {
	out := &Column{name: c.name, kind: c.kind}
	if c.kind == KindFloat {
		out.floats = make([]Float, len(c.floats))
		copy(out.floats, c.floats)
	} else {
		out.texts = make([]string, len(c.texts))
		copy(out.texts, c.texts)
	}
	return out
}

// Table is a column-oriented in-memory table. Column order is
// preserved from insertion; names are unique.
type Table struct {
	nRows int
	cols  []*Column
	index map[string]int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.nRows }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.cols) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.name
	}
	return names
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// ColumnAt returns the column at position i.
func (t *Table) ColumnAt(i int) *Column { return t.cols[i] }

func (t *Table) checkLen(name string, n int) error {
	if len(t.cols) > 0 && n != t.nRows {
		return fmt.Errorf("column %q has %d cells, table has %d rows", name, n, t.nRows)
	}
	return nil
}

func (t *Table) add(c *Column) error {
	if _, exists := t.index[c.name]; exists {
		return fmt.Errorf("column %q already exists", c.name)
	}
	if err := t.checkLen(c.name, c.Len()); err != nil {
		return err
	}
	if len(t.cols) == 0 {
		t.nRows = c.Len()
	}
	t.index[c.name] = len(t.cols)
	t.cols = append(t.cols, c)
	return nil
}

// AddTextColumn appends a text column.
func (t *Table) AddTextColumn(name string, values []string) error {
	return t.add(&Column{name: name, kind: KindText, texts: values})
}

// AddFloatColumn appends a numeric column.
func (t *Table) AddFloatColumn(name string, values []Float) error {
	return t.add(&Column{name: name, kind: KindFloat, floats: values})
}

// ReplaceFloats converts the named column to numeric storage with the
// given cells, keeping its position. Used by the coercion stage.
func (t *Table) ReplaceFloats(name string, values []Float) error {
	i, ok := t.index[name]
	if !ok {
		return fmt.Errorf("column %q not found", name)
	}
	if err := t.checkLen(name, len(values)); err != nil {
		return err
	}
	t.cols[i] = &Column{name: name, kind: KindFloat, floats: values}
	return nil
}

// ReplaceTexts converts the named column to text storage with the
// given cells, keeping its position.
func (t *Table) ReplaceTexts(name string, values []string) error {
	i, ok := t.index[name]
	if !ok {
		return fmt.Errorf("column %q not found", name)
	}
	if err := t.checkLen(name, len(values)); err != nil {
		return err
	}
	t.cols[i] = &Column{name: name, kind: KindText, texts: values}
	return nil
}

// Rename changes a column's name. The new name must be free.
func (t *Table) Rename(old, new string) error {
	if old == new {
		return nil
	}
	i, ok := t.index[old]
	if !ok {
		return fmt.Errorf("column %q not found", old)
	}
	if _, taken := t.index[new]; taken {
		return fmt.Errorf("column %q already exists", new)
	}
	t.cols[i].name = new
	delete(t.index, old)
	t.index[new] = i
	return nil
}

// SetNames renames every column at once. Names must be unique and
// match the column count.
func (t *Table) SetNames(names []string) error {
	if len(names) != len(t.cols) {
		return fmt.Errorf("got %d names for %d columns", len(names), len(t.cols))
	}
	index := make(map[string]int, len(names))
	for i, name := range names {
		if _, dup := index[name]; dup {
			return fmt.Errorf("duplicate column name %q", name)
		}
		index[name] = i
	}
	for i, name := range names {
		t.cols[i].name = name
	}
	t.index = index
	return nil
}

// Clone returns a deep copy. Stages operate on clones so the caller's
// table is never mutated.
func (t *Table) Clone() *Table {
	out := &Table{nRows: t.nRows, index: make(map[string]int, len(t.index))}
	out.cols = make([]*Column, len(t.cols))
	for i, c := range t.cols {
		out.cols[i] = c.clone()
		out.index[c.name] = i
	}
	return out
}

// FilterRows returns a new table containing only rows for which keep
// returns true. Column order and kinds are preserved.
func (t *Table) FilterRows(keep func(row int) bool) *Table {
	rows := make([]int, 0, t.nRows)
	for i := 0; i < t.nRows; i++ {
		if keep(i) {
			rows = append(rows, i)
		}
	}
	return t.pickRows(rows)
}

func (t *Table) pickRows(rows []int) *Table {
	out := &Table{nRows: len(rows), index: make(map[string]int, len(t.index))}
	out.cols = make([]*Column, len(t.cols))
	for ci, c := range t.cols {
		nc := &Column{name: c.name, kind: c.kind}
		if c.kind == KindFloat {
			nc.floats = make([]Float, len(rows))
			for ri, r := range rows {
				nc.floats[ri] = c.floats[r]
			}
		} else {
			nc.texts = make([]string, len(rows))
			for ri, r := range rows {
				nc.texts[ri] = c.texts[r]
			}
		}
		out.cols[ci] = nc
		out.index[c.name] = ci
	}
	return out
}

// Select returns a new table restricted to the named columns, in the
// given order. Unknown names are an error.
func (t *Table) Select(names ...string) (*Table, error) {
	out := &Table{nRows: t.nRows, index: make(map[string]int, len(names))}
	for _, name := range names {
		i, ok := t.index[name]
		if !ok {
			return nil, fmt.Errorf("column %q not found", name)
		}
		out.index[name] = len(out.cols)
		out.cols = append(out.cols, t.cols[i].clone())
	}
	return out, nil
}

// Float is a convenience accessor; missing columns report missing.
func (t *Table) Float(name string, row int) Float {
	c, ok := t.Column(name)
	if !ok {
		return Float{}
	}
	return c.Float(row)
}

// Text is a convenience accessor; missing columns report "".
func (t *Table) Text(name string, row int) string {
	c, ok := t.Column(name)
	if !ok {
		return ""
	}
	return c.Text(row)
}

// Record materializes row i as a name → value map for JSON output.
// Missing numeric cells become nil.
func (t *Table) Record(i int) map[string]interface{} {
	rec := make(map[string]interface{}, len(t.cols))
	for _, c := range t.cols {
		if c.kind == KindFloat {
			if f := c.floats[i]; f.Valid {
				rec[c.name] = f.Value
			} else {
				rec[c.name] = nil
			}
			continue
		}
		rec[c.name] = c.texts[i]
	}
	return rec
}
