package catalog

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/mendelsonD/CognitiveSubtypes/internal/errhandling"
)

// Pattern is a named flag pattern.
//
// Matching is anchored at the start of the value only: a value matches when
// it begins with a match of the expression. "F32" therefore matches
// "F320 depressive episode" but "32" does not. Trailing text such as dosage
// or units is tolerated.
type Pattern struct {
	Name string
	Expr string
	re   *regexp.Regexp
}

// CompilePattern compiles one flag pattern.
func CompilePattern(name, expr string) (Pattern, error) {
	re, err := regexp.Compile(`^(?:` + expr + `)`)
	if err != nil {
		return Pattern{}, errhandling.NewConfigurationError(fmt.Sprintf("invalid pattern for flag %q", name), err)
	}
	return Pattern{Name: name, Expr: expr, re: re}, nil
}

// MatchPrefix reports whether s starts with a match of the pattern.
func (p Pattern) MatchPrefix(s string) bool {
	return p.re.MatchString(s)
}

// Patterns is an ordered list of flag patterns.
type Patterns []Pattern

// CompilePatterns compiles a flag -> expression dictionary. Flags are
// ordered by name so derived columns come out in a stable order.
func CompilePatterns(dict map[string]string) (Patterns, error) {
	names := make([]string, 0, len(dict))
	for name := range dict {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(Patterns, 0, len(names))
	for _, name := range names {
		if name == "" {
			return nil, errhandling.NewConfigurationError("flag name is empty", nil)
		}
		p, err := CompilePattern(name, dict[name])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Names returns the flag names in order.
func (ps Patterns) Names() []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
	}
	return names
}
