// Package table holds a small, column-oriented, in-memory representation of a
// delimited file. Columns are either numeric (float64, NaN for empty cells) or
// string valued. Tables are treated as immutable: every operation that
// reshapes a table returns a new one.
package table

import (
	"errors"
	"fmt"
	"math"
)

// ErrMissingColumn is returned (wrapped) whenever a column is requested by a
// name that the table does not carry.
var ErrMissingColumn = errors.New("column not found")

type Column struct {
	Name string

	// Exactly one of Float or String is non-nil
	Float  []float64
	String []string
}

func (c *Column) Numeric() bool {
	return c.Float != nil
}

func (c *Column) Len() int {
	if c.Numeric() {
		return len(c.Float)
	}
	return len(c.String)
}

// Sum adds up every value of a numeric column. NaN values propagate.
func (c *Column) Sum() float64 {
	out := 0.0
	for _, v := range c.Float {
		out += v
	}
	return out
}

func (c *Column) subset(rows []int) *Column {
	out := &Column{Name: c.Name}
	if c.Numeric() {
		out.Float = make([]float64, len(rows))
		for i, r := range rows {
			out.Float[i] = c.Float[r]
		}
		return out
	}

	out.String = make([]string, len(rows))
	for i, r := range rows {
		out.String[i] = c.String[r]
	}
	return out
}

type Table struct {
	columns []*Column
	index   map[string]int
	nrow    int
}

// New assembles a table from columns, which must all have the same length and
// distinct names.
func New(columns ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int)}
	for _, c := range columns {
		if err := t.add(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) add(c *Column) error {
	if c.Float != nil && c.String != nil {
		return fmt.Errorf("column %q is both numeric and string valued", c.Name)
	}
	if c.Float == nil && c.String == nil {
		c.Float = []float64{}
	}
	if _, exists := t.index[c.Name]; exists {
		return fmt.Errorf("duplicate column %q", c.Name)
	}
	if len(t.columns) == 0 {
		t.nrow = c.Len()
	} else if c.Len() != t.nrow {
		return fmt.Errorf("column %q has %d rows but the table has %d", c.Name, c.Len(), t.nrow)
	}
	t.index[c.Name] = len(t.columns)
	t.columns = append(t.columns, c)
	return nil
}

func (t *Table) NRow() int { return t.nrow }

func (t *Table) NCol() int { return len(t.columns) }

// Names returns the column names in table order.
func (t *Table) Names() []string {
	out := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		out = append(out, c.Name)
	}
	return out
}

func (t *Table) Has(name string) bool {
	_, exists := t.index[name]
	return exists
}

func (t *Table) Column(name string) (*Column, error) {
	i, exists := t.index[name]
	if !exists {
		return nil, fmt.Errorf("%q: %w", name, ErrMissingColumn)
	}
	return t.columns[i], nil
}

// Float returns the values of a numeric column. The slice is shared with the
// table and must not be modified.
func (t *Table) Float(name string) ([]float64, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if !c.Numeric() {
		return nil, fmt.Errorf("column %q is not numeric", name)
	}
	return c.Float, nil
}

// Strings returns the values of a string column. The slice is shared with the
// table and must not be modified.
func (t *Table) Strings(name string) ([]string, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Numeric() {
		return nil, fmt.Errorf("column %q is not a string column", name)
	}
	return c.String, nil
}

// With returns a new table with the given columns appended (or replaced, when
// a column of the same name already exists).
func (t *Table) With(columns ...*Column) (*Table, error) {
	replace := make(map[string]*Column)
	for _, c := range columns {
		replace[c.Name] = c
	}

	out := make([]*Column, 0, len(t.columns)+len(columns))
	for _, c := range t.columns {
		if r, exists := replace[c.Name]; exists {
			out = append(out, r)
			delete(replace, c.Name)
			continue
		}
		out = append(out, c)
	}
	for _, c := range columns {
		if _, pending := replace[c.Name]; pending {
			out = append(out, c)
		}
	}

	return New(out...)
}

// Drop returns a new table without the named columns. Naming a column that
// does not exist is an error.
func (t *Table) Drop(names ...string) (*Table, error) {
	drop := make(map[string]struct{}, len(names))
	for _, name := range names {
		if !t.Has(name) {
			return nil, fmt.Errorf("cannot drop %q: %w", name, ErrMissingColumn)
		}
		drop[name] = struct{}{}
	}

	out := make([]*Column, 0, len(t.columns))
	for _, c := range t.columns {
		if _, dropped := drop[c.Name]; dropped {
			continue
		}
		out = append(out, c)
	}

	nt, err := New(out...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		nt.nrow = t.nrow
	}
	return nt, nil
}

// Select returns a new table with only the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	out := make([]*Column, 0, len(names))
	for _, name := range names {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return New(out...)
}

// Subset returns a new table holding the given rows, in the given order.
func (t *Table) Subset(rows []int) (*Table, error) {
	for _, r := range rows {
		if r < 0 || r >= t.nrow {
			return nil, fmt.Errorf("row %d is out of range for a table with %d rows", r, t.nrow)
		}
	}

	out := make([]*Column, 0, len(t.columns))
	for _, c := range t.columns {
		out = append(out, c.subset(rows))
	}

	nt, err := New(out...)
	if err != nil {
		return nil, err
	}
	nt.nrow = len(rows)
	return nt, nil
}

// DropRows returns a new table without the first n rows.
func (t *Table) DropRows(n int) (*Table, error) {
	if n > t.nrow {
		n = t.nrow
	}
	rows := make([]int, 0, t.nrow-n)
	for i := n; i < t.nrow; i++ {
		rows = append(rows, i)
	}
	return t.Subset(rows)
}

// NumericNames returns the names of the numeric columns, in table order.
func (t *Table) NumericNames() []string {
	out := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		if c.Numeric() {
			out = append(out, c.Name)
		}
	}
	return out
}

// HasNaN reports whether any numeric column contains a NaN, which is how empty
// cells are represented.
func (t *Table) HasNaN(name string) bool {
	c, err := t.Column(name)
	if err != nil || !c.Numeric() {
		return false
	}
	for _, v := range c.Float {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
