package table

import (
	"fmt"

	"github.com/mendelsonD/CognitiveSubtypes/internal/errhandling"
)

// Flags is a derived-flags table: one identifier per row plus one boolean
// column per flag. Values[f] holds the values of Names[f] in row order.
type Flags struct {
	IDs    []string
	Names  []string
	Values [][]bool
}

// NewFlags creates an empty derived-flags table for the given flag names.
func NewFlags(names []string, rows int) *Flags {
	f := &Flags{
		IDs:    make([]string, 0, rows),
		Names:  names,
		Values: make([][]bool, len(names)),
	}
	for i := range f.Values {
		f.Values[i] = make([]bool, 0, rows)
	}
	return f
}

// Count returns the total number of derived values, counting the
// identifier column as one slot.
func (f *Flags) Count() int {
	n := len(f.IDs)
	for _, v := range f.Values {
		n += len(v)
	}
	return n
}

// Verify checks that exactly one value exists per (row, column) pair.
func (f *Flags) Verify() error {
	want := len(f.IDs) * (1 + len(f.Names))
	if got := f.Count(); got != want {
		return errhandling.NewIntegrityError(fmt.Sprintf("%d != %d", got, want), nil)
	}
	return nil
}

// JoinFlags joins derived flags into the table by identifier.
//
// The join is an inner join on identifier equality. Duplicate identifiers
// on either side, or identifier sets that differ, would silently change the
// row count, so both are rejected.
func (t *Table) JoinFlags(f *Flags) error {
	if err := f.Verify(); err != nil {
		return err
	}
	if len(f.IDs) != t.Len() {
		return errhandling.NewIntegrityError(
			fmt.Sprintf("derived flags cover %d rows, table has %d", len(f.IDs), t.Len()), ErrIdentifierMismatch)
	}
	for _, name := range f.Names {
		if t.HasColumn(name) {
			return errhandling.NewInvalidArgumentError(fmt.Sprintf("flag column %q", name), ErrColumnExists)
		}
	}

	position := make(map[string]int, len(f.IDs))
	for i, id := range f.IDs {
		if _, exists := position[id]; exists {
			return errhandling.NewIntegrityError(
				fmt.Sprintf("derived flags repeat %s %q", t.idColumn, id), ErrDuplicateIdentifier)
		}
		position[id] = i
	}

	order := make([]int, t.Len())
	for row, id := range t.IDs() {
		i, ok := position[id]
		if !ok {
			return errhandling.NewIntegrityError(
				fmt.Sprintf("%s %q has no derived flags", t.idColumn, id), ErrIdentifierMismatch)
		}
		order[row] = i
	}

	for n, name := range f.Names {
		values := make([]Value, len(order))
		for row, i := range order {
			values[row] = Bool(f.Values[n][i])
		}
		if err := t.AddColumn(name, values); err != nil {
			return err
		}
	}
	return nil
}
