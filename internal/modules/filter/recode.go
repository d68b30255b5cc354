package filter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mendelsonD/CognitiveSubtypes/internal/catalog"
	"github.com/mendelsonD/CognitiveSubtypes/internal/errhandling"
	"github.com/mendelsonD/CognitiveSubtypes/internal/logger"
	"github.com/mendelsonD/CognitiveSubtypes/internal/table"
)

// RecodeConfig represents the configuration for a recode stage.
type RecodeConfig struct {
	// Variables limits recoding to the named variables; empty means all
	Variables []string `json:"variables"`
}

// RecodeModule replaces raw values with their coded labels, per variable.
// Only text cells whose whole value is a coding key change.
type RecodeModule struct {
	targets []recodeTarget
}

type recodeTarget struct {
	variable string
	columns  []string
	coding   map[string]string
}

// ParseRecodeConfig parses a raw configuration map into RecodeConfig.
func ParseRecodeConfig(config map[string]interface{}) (RecodeConfig, error) {
	var cfg RecodeConfig
	raw, ok := config["variables"]
	if !ok || raw == nil {
		return cfg, nil
	}

	switch v := raw.(type) {
	case []interface{}:
		cfg.Variables = make([]string, 0, len(v))
		for i, item := range v {
			s, isString := item.(string)
			if !isString || s == "" {
				return cfg, fmt.Errorf("variables[%d] must be a non-empty string", i)
			}
			cfg.Variables = append(cfg.Variables, s)
		}
	case []string:
		cfg.Variables = v
	default:
		return cfg, fmt.Errorf("'variables' must be a list of strings, got %T", raw)
	}
	return cfg, nil
}

// NewRecodeFromConfig creates a recode stage over the included catalog
// variables that carry a coding, in catalog order.
func NewRecodeFromConfig(config RecodeConfig, cat *catalog.Catalog) (*RecodeModule, error) {
	var only map[string]struct{}
	if len(config.Variables) > 0 {
		only = make(map[string]struct{}, len(config.Variables))
		for _, name := range config.Variables {
			if _, ok := cat.Group(name); !ok {
				return nil, errhandling.NewConfigurationError(fmt.Sprintf("recode variable %q", name), ErrUnknownVariable)
			}
			only[name] = struct{}{}
		}
	}

	m := &RecodeModule{}
	for _, v := range cat.IncludedVariables() {
		if len(v.Coding) == 0 {
			continue
		}
		if only != nil {
			if _, ok := only[v.Name]; !ok {
				continue
			}
		}
		columns, _ := cat.Group(v.Name)
		m.targets = append(m.targets, recodeTarget{variable: v.Name, columns: columns, coding: v.Coding})
	}

	logger.Debug("recode stage initialized", slog.Int("variables", len(m.targets)))
	return m, nil
}

// Process implements the filter.Module interface.
func (m *RecodeModule) Process(ctx context.Context, t *table.Table) error {
	for _, target := range m.targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		changed := 0
		for _, column := range t.Live(target.columns) {
			changed += t.Replace(column, target.recode)
		}
		logger.Debug("variable recoded",
			slog.String("variable", target.variable),
			slog.Int("changed", changed),
		)
	}
	return nil
}

func (r recodeTarget) recode(v table.Value) table.Value {
	s, ok := v.AsText()
	if !ok {
		return v
	}
	if coded, found := r.coding[s]; found {
		return table.Text(coded)
	}
	return v
}

// Verify interface compliance at compile time
var _ Module = (*RecodeModule)(nil)
