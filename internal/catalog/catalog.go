// Package catalog compiles a dataset's field catalog into the lookups the
// transformation stages need: the column name mapping, the column-group
// registry and the compiled diagnosis patterns.
//
// A Catalog is built once per dataset and passed to every stage by
// reference. It is immutable after New returns.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mendelsonD/CognitiveSubtypes/internal/errhandling"
	"github.com/mendelsonD/CognitiveSubtypes/internal/logger"
	"github.com/mendelsonD/CognitiveSubtypes/pkg/cohort"
)

// Catalog errors
var (
	// ErrDuplicateVariable is returned when two catalog entries share a name
	ErrDuplicateVariable = errors.New("duplicate variable")

	// ErrUnknownFlag is returned when an included or excluded flag is not selected
	ErrUnknownFlag = errors.New("flag is not a selected diagnosis")
)

// Collision records that one variable name is a string prefix of another.
// Selecting columns by name prefix would mix the two groups.
type Collision struct {
	Prefix   string
	Variable string
}

// Catalog is the compiled field catalog.
type Catalog struct {
	identifier string
	variables  []cohort.Variable
	mapping    ColumnMapping
	groups     map[string][]string
	collisions []Collision

	diagnosisPrefix string
	selected        Patterns
	included        Patterns
	excluded        Patterns
}

// New compiles the catalog of a dataset.
func New(ds *cohort.Dataset) (*Catalog, error) {
	if ds == nil {
		return nil, errhandling.NewConfigurationError("dataset is nil", nil)
	}

	c := &Catalog{
		identifier:      ds.Identifier,
		variables:       ds.Variables,
		groups:          make(map[string][]string),
		diagnosisPrefix: ds.Diagnoses.Prefix,
	}
	if c.identifier == "" {
		c.identifier = cohort.DefaultIdentifier
	}
	if c.diagnosisPrefix == "" {
		c.diagnosisPrefix = cohort.DefaultDiagnosisPrefix
	}

	seen := make(map[string]struct{}, len(ds.Variables))
	for _, v := range ds.Variables {
		if v.Name == "" {
			return nil, errhandling.NewConfigurationError("variable name is empty", nil)
		}
		if _, exists := seen[v.Name]; exists {
			return nil, errhandling.NewConfigurationError(fmt.Sprintf("variable %q", v.Name), ErrDuplicateVariable)
		}
		seen[v.Name] = struct{}{}
	}

	mapping, err := BuildColumnMapping(c.identifier, ds.Variables)
	if err != nil {
		return nil, err
	}
	c.mapping = mapping

	for _, v := range c.IncludedVariables() {
		c.groups[v.Name] = RecodedColumnNames(v)
	}
	c.collisions = findCollisions(c.IncludedVariables())
	for _, col := range c.collisions {
		logger.Warn("variable name is a prefix of another variable",
			slog.String("prefix", col.Prefix),
			slog.String("variable", col.Variable),
		)
	}

	if c.selected, err = CompilePatterns(ds.Diagnoses.Selected); err != nil {
		return nil, err
	}
	if c.included, err = CompilePatterns(ds.Diagnoses.Included); err != nil {
		return nil, err
	}
	if c.excluded, err = CompilePatterns(ds.Diagnoses.Excluded); err != nil {
		return nil, err
	}
	if err := requireSelected("included", c.included, ds.Diagnoses.Selected); err != nil {
		return nil, err
	}
	if err := requireSelected("excluded", c.excluded, ds.Diagnoses.Selected); err != nil {
		return nil, err
	}

	logger.Debug("catalog compiled",
		slog.Int("variables", len(c.variables)),
		slog.Int("included_variables", len(c.groups)),
		slog.Int("columns", c.mapping.Len()),
		slog.Int("selected_diagnoses", len(c.selected)),
	)

	return c, nil
}

func requireSelected(kind string, ps Patterns, selected map[string]string) error {
	for _, p := range ps {
		if _, ok := selected[p.Name]; !ok {
			return errhandling.NewConfigurationError(fmt.Sprintf("%s flag %q", kind, p.Name), ErrUnknownFlag)
		}
	}
	return nil
}

func findCollisions(vars []cohort.Variable) []Collision {
	var out []Collision
	for _, a := range vars {
		for _, b := range vars {
			if a.Name != b.Name && strings.HasPrefix(b.Name, a.Name) {
				out = append(out, Collision{Prefix: a.Name, Variable: b.Name})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Prefix != out[j].Prefix {
			return out[i].Prefix < out[j].Prefix
		}
		return out[i].Variable < out[j].Variable
	})
	return out
}

// Identifier returns the subject identifier column name.
func (c *Catalog) Identifier() string { return c.identifier }

// Mapping returns the column name mapping.
func (c *Catalog) Mapping() ColumnMapping { return c.mapping }

// Variables returns every catalog entry in catalog order.
func (c *Catalog) Variables() []cohort.Variable { return c.variables }

// IncludedVariables returns the included entries in catalog order.
func (c *Catalog) IncludedVariables() []cohort.Variable {
	out := make([]cohort.Variable, 0, len(c.variables))
	for _, v := range c.variables {
		if v.Included {
			out = append(out, v)
		}
	}
	return out
}

// Variable looks up a catalog entry by name.
func (c *Catalog) Variable(name string) (cohort.Variable, bool) {
	for _, v := range c.variables {
		if v.Name == name {
			return v, true
		}
	}
	return cohort.Variable{}, false
}

// Group returns the recoded columns an included variable contributes, in
// mapping order. Columns dropped from a table since load are still listed;
// use table.Live to restrict to live columns.
func (c *Catalog) Group(name string) ([]string, bool) {
	cols, ok := c.groups[name]
	return cols, ok
}

// GroupsWithPrefix returns the recoded columns of every included variable
// whose name starts with prefix, in catalog order, and the names of those
// variables.
func (c *Catalog) GroupsWithPrefix(prefix string) (columns []string, variables []string) {
	for _, v := range c.IncludedVariables() {
		if !strings.HasPrefix(v.Name, prefix) {
			continue
		}
		variables = append(variables, v.Name)
		columns = append(columns, c.groups[v.Name]...)
	}
	return columns, variables
}

// PrefixCollisions lists included variables whose names are prefixes of
// other included variables.
func (c *Catalog) PrefixCollisions() []Collision { return c.collisions }

// DiagnosisPrefix returns the name prefix of the variables scanned for
// diagnosis codes.
func (c *Catalog) DiagnosisPrefix() string { return c.diagnosisPrefix }

// SelectedDiagnoses returns every diagnosis flag to derive.
func (c *Catalog) SelectedDiagnoses() Patterns { return c.selected }

// IncludedDiagnoses returns the flags used by the inclusion criteria.
func (c *Catalog) IncludedDiagnoses() Patterns { return c.included }

// ExcludedDiagnoses returns the flags used by the exclusion criteria.
func (c *Catalog) ExcludedDiagnoses() Patterns { return c.excluded }
