// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package types

import "math"

// ColumnKind distinguishes how a column's values are interpreted.
type ColumnKind string

const (
	// KindNumeric marks a column of IEEE-754 doubles, null-aware via NaN.
	KindNumeric ColumnKind = "numeric"
	// KindCategorical marks a column of strings, null-aware via a null mask.
	KindCategorical ColumnKind = "categorical"
)

// Column is one typed, null-aware column of a Table. Exactly one of Numeric
// or Categorical is populated, selected by Kind. A column always has the
// same length as every other column in its Table.
type Column struct {
	Kind        ColumnKind
	Numeric     []float64 // valid when Kind == KindNumeric; NaN marks a null
	Categorical []string  // valid when Kind == KindCategorical
	CatNull     []bool    // parallel to Categorical; true marks a null row
}

// Len returns the number of rows in the column.
func (c Column) Len() int {
	if c.Kind == KindNumeric {
		return len(c.Numeric)
	}
	return len(c.Categorical)
}

// IsNull reports whether row i of the column is missing.
func (c Column) IsNull(i int) bool {
	if c.Kind == KindNumeric {
		return math.IsNaN(c.Numeric[i])
	}
	return c.CatNull != nil && c.CatNull[i]
}

// NewNumericColumn builds a numeric Column from raw values; NaN entries are
// the null marker and need no further treatment by the caller.
func NewNumericColumn(values []float64) Column {
	return Column{Kind: KindNumeric, Numeric: values}
}

// NewCategoricalColumn builds a categorical Column. nullMask may be nil, in
// which case no row is considered null.
func NewCategoricalColumn(values []string, nullMask []bool) Column {
	return Column{Kind: KindCategorical, Categorical: values, CatNull: nullMask}
}

// Table is an immutable, column-oriented mapping from column name to typed
// column data. All columns share the same row count. Row order is arbitrary
// but stable for the lifetime of an analysis; the core never mutates a
// Table it is given.
type Table struct {
	order   []string
	columns map[string]Column
	rows    int
}

// NewTable builds a Table from a name-ordered list of columns. All columns
// must have the same length, and names must be unique; callers (the
// external collaborators that parse CSV/Parquet/SAS7BDAT files) are
// responsible for enforcing this before handing the Table to the core.
func NewTable(names []string, columns []Column) *Table {
	t := &Table{
		order:   append([]string(nil), names...),
		columns: make(map[string]Column, len(columns)),
	}
	if len(columns) > 0 {
		t.rows = columns[0].Len()
	}
	for i, name := range names {
		t.columns[name] = columns[i]
	}
	return t
}

// Rows returns the number of rows n shared by every column.
func (t *Table) Rows() int { return t.rows }

// Columns returns column names in their original, stable order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.order...)
}

// Column returns the named column and whether it exists.
func (t *Table) Column(name string) (Column, bool) {
	c, ok := t.columns[name]
	return c, ok
}

// Has reports whether a column with the given name exists.
func (t *Table) Has(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Without returns a new Table with the named columns removed, the rest
// kept in their original order. Used by the orchestrator to remove
// DropColumns before any stage runs, without mutating the original Table.
func (t *Table) Without(drop map[string]bool) *Table {
	names := make([]string, 0, len(t.order))
	cols := make([]Column, 0, len(t.order))
	for _, name := range t.order {
		if drop[name] {
			continue
		}
		names = append(names, name)
		cols = append(cols, t.columns[name])
	}
	return NewTable(names, cols)
}

// NumericColumns returns the names of all numeric columns, in Table order.
func (t *Table) NumericColumns() []string {
	out := make([]string, 0, len(t.order))
	for _, name := range t.order {
		if t.columns[name].Kind == KindNumeric {
			out = append(out, name)
		}
	}
	return out
}
