// Package table holds a loaded spreadsheet as a grid of nullable scalar cells.
//
// A Table is produced once by a loader (ReadCSV, ReadXLSX) and is then owned by
// a single validation run. Every row keeps the stable 0-based Index it was given
// at load time; filtering blank rows never renumbers the remaining ones, so a
// row's Index always maps back to the same line of the source document.
//
// Cells are nil (null) or one of string, float64, int64, bool, time.Time.
//
// A Table is not safe for concurrent use, with one exception: distinct cells
// may be written from different goroutines while no column is being added,
// renamed or removed.
package table

import (
	"fmt"
	"slices"
)

// Row is a single data row.
type Row struct {
	Index int   // Stable 0-based position among the data rows of the source
	Cells []any // One cell per column, in column order
}

// Table is a row-indexed, column-named grid.
type Table struct {
	columns []string
	colIdx  map[string]int
	rows    []Row
}

// New builds a table from column names and row values. Row indices are
// assigned 0..n-1. Rows shorter than columns are padded with nil; extra cells
// are dropped. Column names must be unique.
func New(columns []string, rows [][]any) (*Table, error) {
	t := &Table{colIdx: make(map[string]int, len(columns))}
	for _, c := range columns {
		if _, dup := t.colIdx[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		t.colIdx[c] = len(t.columns)
		t.columns = append(t.columns, c)
	}

	t.rows = make([]Row, 0, len(rows))
	for i, vals := range rows {
		cells := make([]any, len(columns))
		copy(cells, vals)
		t.rows = append(t.rows, Row{Index: i, Cells: cells})
	}
	return t, nil
}

// MustNew is like New but panics on error. Intended for tests and fixtures.
func MustNew(columns []string, rows [][]any) *Table {
	t, err := New(columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Columns returns the column names in left-to-right order.
func (t *Table) Columns() []string { return slices.Clone(t.columns) }

// HasColumn reports whether a column with the given name exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.colIdx[name]
	return ok
}

// Index returns the stable row index of the row at position pos.
func (t *Table) Index(pos int) int { return t.rows[pos].Index }

// Get returns the cell at (pos, column). ok is false when the column does not exist.
func (t *Table) Get(pos int, column string) (v any, ok bool) {
	ci, ok := t.colIdx[column]
	if !ok {
		return nil, false
	}
	return t.rows[pos].Cells[ci], true
}

// Set overwrites the cell at (pos, column).
func (t *Table) Set(pos int, column string, v any) error {
	ci, ok := t.colIdx[column]
	if !ok {
		return fmt.Errorf("column %q not found", column)
	}
	t.rows[pos].Cells[ci] = v
	return nil
}

// AddColumn appends a column filled with fill for every row. If the column
// already exists its values are replaced in place.
func (t *Table) AddColumn(name string, fill any) {
	if ci, ok := t.colIdx[name]; ok {
		for i := range t.rows {
			t.rows[i].Cells[ci] = fill
		}
		return
	}

	t.colIdx[name] = len(t.columns)
	t.columns = append(t.columns, name)
	for i := range t.rows {
		t.rows[i].Cells = append(t.rows[i].Cells, fill)
	}
}

// Rename changes a column's name, keeping its position and values.
func (t *Table) Rename(from, to string) error {
	ci, ok := t.colIdx[from]
	if !ok {
		return fmt.Errorf("column %q not found", from)
	}
	if from == to {
		return nil
	}
	if _, exists := t.colIdx[to]; exists {
		return fmt.Errorf("cannot rename %q: column %q already exists", from, to)
	}

	delete(t.colIdx, from)
	t.colIdx[to] = ci
	t.columns[ci] = to
	return nil
}

// FreeName returns name if no column uses it, otherwise the first of
// name.1, name.2, ... that is unused.
func (t *Table) FreeName(name string) string {
	return uniqueName(name, func(n string) bool {
		_, taken := t.colIdx[n]
		return taken
	})
}

func uniqueName(name string, taken func(string) bool) string {
	if !taken(name) {
		return name
	}
	for i := 1; ; i++ {
		if n := fmt.Sprintf("%s.%d", name, i); !taken(n) {
			return n
		}
	}
}

// Project returns the row at pos restricted to the given columns. Columns that
// do not exist are omitted.
func (t *Table) Project(pos int, columns []string) map[string]any {
	out := make(map[string]any, len(columns))
	for _, c := range columns {
		if ci, ok := t.colIdx[c]; ok {
			out[c] = t.rows[pos].Cells[ci]
		}
	}
	return out
}
