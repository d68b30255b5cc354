// Package table provides the in-memory Record Table: an ordered set of
// columns keyed by a subject identifier column, one row per subject.
//
// A Table is owned by a single dataset build and mutated in place by each
// stage. It is not safe for concurrent use.
package table

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mendelsonD/CognitiveSubtypes/internal/errhandling"
)

// Common errors
var (
	// ErrAbsentIdentifier is returned when a row has no identifier value
	ErrAbsentIdentifier = errors.New("absent identifier")

	// ErrDuplicateIdentifier is returned when an identifier appears on more than one row
	ErrDuplicateIdentifier = errors.New("duplicate identifier")

	// ErrIdentifierMismatch is returned when a join's identifier sets differ
	ErrIdentifierMismatch = errors.New("identifier sets differ")

	// ErrColumnExists is returned when adding a column whose name is taken
	ErrColumnExists = errors.New("column already exists")

	// ErrLengthMismatch is returned when a column's length differs from the row count
	ErrLengthMismatch = errors.New("column length does not match row count")
)

// Table is a columnar record table. data[c][r] is the cell of column c in row r.
type Table struct {
	idColumn string
	columns  []string
	index    map[string]int
	data     [][]Value
}

// New creates a table holding only the identifier column.
// Identifiers must be present and unique.
func New(idColumn string, ids []string) (*Table, error) {
	if idColumn == "" {
		return nil, errhandling.NewInvalidArgumentError("identifier column name is empty", nil)
	}

	seen := make(map[string]int, len(ids))
	idValues := make([]Value, len(ids))
	for row, id := range ids {
		if id == "" {
			return nil, errhandling.NewDataError(
				fmt.Sprintf("row %d has no %s value", row, idColumn), ErrAbsentIdentifier)
		}
		if first, exists := seen[id]; exists {
			return nil, errhandling.NewDataError(
				fmt.Sprintf("%s %q on rows %d and %d", idColumn, id, first, row), ErrDuplicateIdentifier)
		}
		seen[id] = row
		idValues[row] = Text(id)
	}

	return &Table{
		idColumn: idColumn,
		columns:  []string{idColumn},
		index:    map[string]int{idColumn: 0},
		data:     [][]Value{idValues},
	}, nil
}

// IDColumn returns the identifier column name.
func (t *Table) IDColumn() string { return t.idColumn }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.data[0]) }

// Columns returns a copy of the column names in table order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// HasColumn reports whether the column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the cells of a column. The slice must not be modified.
func (t *Table) Column(name string) ([]Value, bool) {
	c, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.data[c], true
}

// Value returns a single cell; absent when the column does not exist.
func (t *Table) Value(row int, column string) Value {
	c, ok := t.index[column]
	if !ok {
		return Absent()
	}
	return t.data[c][row]
}

// Row returns the cells of one row in column order.
func (t *Table) Row(row int) []Value {
	out := make([]Value, len(t.columns))
	for c := range t.columns {
		out[c] = t.data[c][row]
	}
	return out
}

// IDs returns the identifier of every row in row order.
func (t *Table) IDs() []string {
	ids := make([]string, t.Len())
	for row, v := range t.data[0] {
		ids[row], _ = v.AsText()
	}
	return ids
}

// ColumnsWithPrefix returns the live columns whose names start with prefix,
// in table order. The identifier column is never returned.
func (t *Table) ColumnsWithPrefix(prefix string) []string {
	var out []string
	for _, name := range t.columns[1:] {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	return out
}

// Live filters names down to the columns currently in the table, keeping
// the given order.
func (t *Table) Live(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if t.HasColumn(name) {
			out = append(out, name)
		}
	}
	return out
}

// AddColumn appends a column.
func (t *Table) AddColumn(name string, values []Value) error {
	if t.HasColumn(name) {
		return errhandling.NewInvalidArgumentError(fmt.Sprintf("column %q", name), ErrColumnExists)
	}
	if len(values) != t.Len() {
		return errhandling.NewIntegrityError(
			fmt.Sprintf("column %q has %d values for %d rows", name, len(values), t.Len()), ErrLengthMismatch)
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, name)
	t.data = append(t.data, values)
	return nil
}

// Replace rewrites every cell of a column through fn and returns the number
// of cells that changed kind or content.
func (t *Table) Replace(column string, fn func(Value) Value) int {
	c, ok := t.index[column]
	if !ok || c == 0 {
		return 0
	}
	changed := 0
	for row, v := range t.data[c] {
		nv := fn(v)
		if nv != v {
			t.data[c][row] = nv
			changed++
		}
	}
	return changed
}

// DropColumns removes the named columns and returns how many were removed.
// Unknown names and the identifier column are ignored.
func (t *Table) DropColumns(names ...string) int {
	drop := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name != t.idColumn && t.HasColumn(name) {
			drop[name] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return 0
	}

	columns := make([]string, 0, len(t.columns)-len(drop))
	data := make([][]Value, 0, len(t.columns)-len(drop))
	for c, name := range t.columns {
		if _, ok := drop[name]; ok {
			continue
		}
		columns = append(columns, name)
		data = append(data, t.data[c])
	}
	t.setColumns(columns, data)
	return len(drop)
}

// DropEmptyColumns removes every column that is absent in all rows and
// returns the removed names in table order.
func (t *Table) DropEmptyColumns() []string {
	var empty []string
	for c, name := range t.columns[1:] {
		if allAbsent(t.data[c+1]) {
			empty = append(empty, name)
		}
	}
	t.DropColumns(empty...)
	return empty
}

func allAbsent(values []Value) bool {
	for _, v := range values {
		if !v.IsAbsent() {
			return false
		}
	}
	return true
}

// KeepRows keeps the rows whose mask entry is true, preserving order, and
// returns the number of rows removed.
func (t *Table) KeepRows(keep []bool) (int, error) {
	if len(keep) != t.Len() {
		return 0, errhandling.NewIntegrityError(
			fmt.Sprintf("row mask has %d entries for %d rows", len(keep), t.Len()), ErrLengthMismatch)
	}

	kept := 0
	for _, k := range keep {
		if k {
			kept++
		}
	}
	removed := t.Len() - kept
	if removed == 0 {
		return 0, nil
	}

	for c, values := range t.data {
		next := make([]Value, 0, kept)
		for row, v := range values {
			if keep[row] {
				next = append(next, v)
			}
		}
		t.data[c] = next
	}
	return removed, nil
}

func (t *Table) setColumns(columns []string, data [][]Value) {
	t.columns = columns
	t.data = data
	t.index = make(map[string]int, len(columns))
	for c, name := range columns {
		t.index[name] = c
	}
}
