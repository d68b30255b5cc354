package catalog

import (
	"errors"
	"fmt"

	"github.com/mendelsonD/CognitiveSubtypes/internal/errhandling"
	"github.com/mendelsonD/CognitiveSubtypes/pkg/cohort"
)

// Mapping errors
var (
	// ErrLengthMismatch is returned when raw and recoded name lists differ in length
	ErrLengthMismatch = errors.New("raw and recoded column lists differ in length")

	// ErrDuplicateColumn is returned when a column name appears twice in either list
	ErrDuplicateColumn = errors.New("duplicate column name")

	// ErrEmptyArrayRange is returned when an included variable lists no array indices
	ErrEmptyArrayRange = errors.New("empty array range")
)

// ColumnMapping pairs raw extract column names with their recoded names.
// Raw[i] and Recoded[i] name the same logical column. Both lists start with
// the identifier column mapped to itself.
type ColumnMapping struct {
	Raw     []string
	Recoded []string
}

// RawColumnName returns the raw extract name of one array slot of a field,
// e.g. "20003-0.4".
func RawColumnName(dataField, instance, arrayIndex int) string {
	return fmt.Sprintf("%d-%d.%d", dataField, instance, arrayIndex)
}

// RecodedColumnNames returns the recoded names a variable contributes: one
// "{name}_t{instance}" column for a single array index, otherwise one
// "{name}_t{instance}_{index}" column per index.
func RecodedColumnNames(v cohort.Variable) []string {
	if len(v.ArrayRange) == 1 {
		return []string{fmt.Sprintf("%s_t%d", v.Name, v.InstanceNum)}
	}
	names := make([]string, 0, len(v.ArrayRange))
	for _, i := range v.ArrayRange {
		names = append(names, fmt.Sprintf("%s_t%d_%d", v.Name, v.InstanceNum, i))
	}
	return names
}

// BuildColumnMapping derives the column mapping from the included variables
// in catalog order and validates it before any data is read.
func BuildColumnMapping(identifier string, variables []cohort.Variable) (ColumnMapping, error) {
	m := ColumnMapping{
		Raw:     []string{identifier},
		Recoded: []string{identifier},
	}

	for _, v := range variables {
		if !v.Included {
			continue
		}
		if len(v.ArrayRange) == 0 {
			return ColumnMapping{}, errhandling.NewConfigurationError(
				fmt.Sprintf("variable %q", v.Name), ErrEmptyArrayRange)
		}
		for _, i := range v.ArrayRange {
			m.Raw = append(m.Raw, RawColumnName(v.DataField, v.InstanceNum, i))
		}
		m.Recoded = append(m.Recoded, RecodedColumnNames(v)...)
	}

	if err := m.Validate(); err != nil {
		return ColumnMapping{}, err
	}
	return m, nil
}

// Validate checks that the mapping is a bijection: both lists have the same
// length and neither repeats a name.
func (m ColumnMapping) Validate() error {
	if len(m.Raw) != len(m.Recoded) {
		return errhandling.NewConfigurationError(
			fmt.Sprintf("%d raw names, %d recoded names", len(m.Raw), len(m.Recoded)), ErrLengthMismatch)
	}
	if err := checkUnique("raw", m.Raw); err != nil {
		return err
	}
	return checkUnique("recoded", m.Recoded)
}

func checkUnique(kind string, names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, exists := seen[name]; exists {
			return errhandling.NewConfigurationError(fmt.Sprintf("%s column %q", kind, name), ErrDuplicateColumn)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Rename returns the raw -> recoded lookup.
func (m ColumnMapping) Rename() map[string]string {
	out := make(map[string]string, len(m.Raw))
	for i, raw := range m.Raw {
		out[raw] = m.Recoded[i]
	}
	return out
}

// Len returns the number of mapped columns, identifier included.
func (m ColumnMapping) Len() int { return len(m.Raw) }
