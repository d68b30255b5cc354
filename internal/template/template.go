// Package template expands variables in configured strings such as output
// paths. Variables use {{name}} syntax with an optional default value:
// {{dataset.version | default: "dev"}}.
package template

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mendelsonD/CognitiveSubtypes/pkg/cohort"
)

// Template syntax constants
const (
	// TemplatePrefix is the opening delimiter for template variables
	TemplatePrefix = "{{"
	// TemplateSuffix is the closing delimiter for template variables
	TemplateSuffix = "}}"
)

// Template errors
var (
	// ErrInvalidSyntax is returned for unbalanced or empty {{ }} pairs
	ErrInvalidSyntax = errors.New("invalid template syntax")

	// ErrUnknownVariable is returned when a variable has no value and no default
	ErrUnknownVariable = errors.New("unknown template variable")
)

// templateVarRegex matches {{name}} or {{name | default: "value"}}.
// Group 1: variable name
// Group 2: optional default clause
// Group 3: the default value itself (may be empty)
var templateVarRegex = regexp.MustCompile(`\{\{\s*([^|}]+?)(\s*\|\s*default:\s*"([^"]*)")?\s*\}\}`)

// Variable represents a parsed template variable
type Variable struct {
	FullMatch    string // The full matched string including {{ }}
	Name         string // The variable name (e.g., "dataset.version")
	DefaultValue string // Default value if specified
	HasDefault   bool   // Whether a default value was specified
}

// HasVariables checks if a string contains template variables.
func HasVariables(s string) bool {
	return strings.Contains(s, TemplatePrefix) && strings.Contains(s, TemplateSuffix)
}

// ParseVariables extracts all template variables from a template string.
func ParseVariables(template string) []Variable {
	matches := templateVarRegex.FindAllStringSubmatch(template, -1)
	variables := make([]Variable, 0, len(matches))
	for _, match := range matches {
		v := Variable{
			FullMatch: match[0],
			Name:      strings.TrimSpace(match[1]),
		}
		if match[2] != "" {
			v.DefaultValue = match[3]
			v.HasDefault = true
		}
		variables = append(variables, v)
	}
	return variables
}

// ValidateSyntax checks that every {{ has a matching }} and names a variable.
func ValidateSyntax(template string) error {
	rest := template
	for {
		open := strings.Index(rest, TemplatePrefix)
		closing := strings.Index(rest, TemplateSuffix)
		switch {
		case open < 0 && closing < 0:
			return nil
		case open < 0 || closing < 0 || closing < open:
			return fmt.Errorf("%w: unbalanced braces in %q", ErrInvalidSyntax, template)
		}
		inner := rest[open+len(TemplatePrefix) : closing]
		if strings.Contains(inner, TemplatePrefix) {
			return fmt.Errorf("%w: nested braces in %q", ErrInvalidSyntax, template)
		}
		if name, _, _ := strings.Cut(inner, "|"); strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty variable in %q", ErrInvalidSyntax, template)
		}
		rest = rest[closing+len(TemplateSuffix):]
	}
}

// Expand replaces every variable in template with its value from vars.
// A variable missing from vars takes its default, or fails with
// ErrUnknownVariable when it has none.
func Expand(template string, vars map[string]string) (string, error) {
	if !HasVariables(template) {
		return template, nil
	}
	if err := ValidateSyntax(template); err != nil {
		return "", err
	}

	result := template
	for _, v := range ParseVariables(template) {
		value, ok := vars[v.Name]
		if !ok || value == "" {
			if !v.HasDefault {
				return "", fmt.Errorf("%w: %q", ErrUnknownVariable, v.Name)
			}
			value = v.DefaultValue
		}
		result = strings.Replace(result, v.FullMatch, value, 1)
	}
	return result, nil
}

// DatasetVariables returns the variables available to dataset templates:
// dataset.id, dataset.name, dataset.version, date (YYYYMMDD) and
// timestamp (YYYYMMDDTHHMMSS), both taken from now in UTC.
func DatasetVariables(ds *cohort.Dataset, now time.Time) map[string]string {
	now = now.UTC()
	return map[string]string{
		"dataset.id":      ds.ID,
		"dataset.name":    ds.Name,
		"dataset.version": ds.Version,
		"date":            now.Format("20060102"),
		"timestamp":       now.Format("20060102T150405"),
	}
}
