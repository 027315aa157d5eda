// Package dataset implements the tabular data model of the pipeline: a
// column-typed observation table plus the loading, cleaning and splitting
// stages that produce the modeling inputs. Every stage returns a new Table;
// nothing is mutated in place.
package dataset

import (
	"math"

	"github.com/beanlab/cupping/pkg/errors"
)

// ColumnKind distinguishes the two column types the pipeline understands.
type ColumnKind int

const (
	// Numeric columns hold float64 values with NaN marking a missing entry.
	Numeric ColumnKind = iota
	// Categorical columns hold integer level codes into a frozen label set,
	// with -1 marking a missing entry.
	Categorical
)

// String returns the kind name used in error messages.
func (k ColumnKind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// Column is a single named, typed column of an observation table.
//
// For Numeric columns only Floats is populated. For Categorical columns,
// Codes holds per-row indices into Levels; the level set is frozen when the
// column is built and is never extended afterwards.
type Column struct {
	Name   string
	Kind   ColumnKind
	Floats []float64
	Codes  []int
	Levels []string
}

// NewNumericColumn builds a numeric column. The caller keeps ownership of
// nothing: values are copied.
func NewNumericColumn(name string, values []float64) Column {
	vals := make([]float64, len(values))
	copy(vals, values)
	return Column{Name: name, Kind: Numeric, Floats: vals}
}

// NewCategoricalColumn builds a categorical column from raw labels, freezing
// the level set in first-appearance order. Empty labels are stored as
// missing.
func NewCategoricalColumn(name string, labels []string) Column {
	codes := make([]int, len(labels))
	var levels []string
	index := make(map[string]int)
	for i, lab := range labels {
		if lab == "" {
			codes[i] = -1
			continue
		}
		code, ok := index[lab]
		if !ok {
			code = len(levels)
			index[lab] = code
			levels = append(levels, lab)
		}
		codes[i] = code
	}
	return Column{Name: name, Kind: Categorical, Codes: codes, Levels: levels}
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	if c.Kind == Categorical {
		return len(c.Codes)
	}
	return len(c.Floats)
}

// IsMissing reports whether the value at row i is missing.
func (c *Column) IsMissing(i int) bool {
	if c.Kind == Categorical {
		return c.Codes[i] < 0
	}
	return math.IsNaN(c.Floats[i])
}

// Label returns the label at row i for a categorical column, or "" when the
// entry is missing.
func (c *Column) Label(i int) string {
	if c.Kind != Categorical || c.Codes[i] < 0 {
		return ""
	}
	return c.Levels[c.Codes[i]]
}

// CodeOf returns the frozen code for a label, or -1 when the label is not
// part of the level set.
func (c *Column) CodeOf(label string) int {
	for code, lev := range c.Levels {
		if lev == label {
			return code
		}
	}
	return -1
}

// Table is an immutable-by-convention observation table: rows are coffee
// samples, columns are a mixture of numeric and categorical fields.
type Table struct {
	cols  []Column
	index map[string]int
}

// NewTable builds a table from columns, validating that all columns have the
// same length and unique names.
func NewTable(cols ...Column) (*Table, error) {
	if len(cols) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "NewTable")
	}
	n := cols[0].Len()
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if c.Len() != n {
			return nil, errors.NewDimensionError("NewTable", n, c.Len(), 0)
		}
		if _, dup := index[c.Name]; dup {
			return nil, errors.Newf("NewTable: duplicate column %q", c.Name)
		}
		index[c.Name] = i
	}
	return &Table{cols: cols, index: index}, nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	return len(t.cols)
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether a column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column or a SchemaError.
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, errors.NewSchemaError("Table.Column", name)
	}
	return &t.cols[i], nil
}

// Select returns a new table restricted to the named columns, in the given
// order. A name absent from the table is a SchemaError.
func (t *Table) Select(names []string) (*Table, error) {
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		i, ok := t.index[name]
		if !ok {
			return nil, errors.NewSchemaError("Table.Select", name)
		}
		cols = append(cols, t.cols[i])
	}
	return NewTable(cols...)
}

// FilterRows returns a new table containing only rows where keep is true.
// Categorical level sets are carried over unchanged; use Refreeze to drop
// levels that no longer occur.
func (t *Table) FilterRows(keep []bool) (*Table, error) {
	if len(keep) != t.NumRows() {
		return nil, errors.NewDimensionError("Table.FilterRows", t.NumRows(), len(keep), 0)
	}
	count := 0
	for _, k := range keep {
		if k {
			count++
		}
	}
	cols := make([]Column, len(t.cols))
	for ci, c := range t.cols {
		nc := Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == Categorical {
			nc.Codes = make([]int, 0, count)
			nc.Levels = append([]string(nil), c.Levels...)
			for i, k := range keep {
				if k {
					nc.Codes = append(nc.Codes, c.Codes[i])
				}
			}
		} else {
			nc.Floats = make([]float64, 0, count)
			for i, k := range keep {
				if k {
					nc.Floats = append(nc.Floats, c.Floats[i])
				}
			}
		}
		cols[ci] = nc
	}
	return NewTable(cols...)
}

// Rows returns a new table containing the given rows, in order.
func (t *Table) Rows(indices []int) (*Table, error) {
	n := t.NumRows()
	cols := make([]Column, len(t.cols))
	for ci, c := range t.cols {
		nc := Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == Categorical {
			nc.Codes = make([]int, len(indices))
			nc.Levels = append([]string(nil), c.Levels...)
			for i, idx := range indices {
				if idx < 0 || idx >= n {
					return nil, errors.Newf("Table.Rows: index %d out of range [0,%d)", idx, n)
				}
				nc.Codes[i] = c.Codes[idx]
			}
		} else {
			nc.Floats = make([]float64, len(indices))
			for i, idx := range indices {
				if idx < 0 || idx >= n {
					return nil, errors.Newf("Table.Rows: index %d out of range [0,%d)", idx, n)
				}
				nc.Floats[i] = c.Floats[idx]
			}
		}
		cols[ci] = nc
	}
	return NewTable(cols...)
}

// WithColumn returns a new table with col appended. The column length must
// match and the name must be new.
func (t *Table) WithColumn(col Column) (*Table, error) {
	cols := make([]Column, 0, len(t.cols)+1)
	cols = append(cols, t.cols...)
	cols = append(cols, col)
	return NewTable(cols...)
}

// Refreeze rebuilds every categorical level set from the labels actually
// present, dropping unused levels. Cleaning calls this after row filtering
// so downstream fits see a closed enumeration of observed labels only.
func (t *Table) Refreeze() (*Table, error) {
	cols := make([]Column, len(t.cols))
	for ci, c := range t.cols {
		if c.Kind != Categorical {
			cols[ci] = c
			continue
		}
		labels := make([]string, c.Len())
		for i := range c.Codes {
			labels[i] = c.Label(i)
		}
		cols[ci] = NewCategoricalColumn(c.Name, labels)
	}
	return NewTable(cols...)
}
