package filter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mendelsonD/CognitiveSubtypes/internal/catalog"
	"github.com/mendelsonD/CognitiveSubtypes/internal/errhandling"
	"github.com/mendelsonD/CognitiveSubtypes/internal/logger"
	"github.com/mendelsonD/CognitiveSubtypes/internal/table"
)

// BinaryFlagsConfig represents the configuration for a binaryFlags stage.
type BinaryFlagsConfig struct {
	// Variable is the catalog variable whose columns are scanned
	Variable string `json:"variable"`
	// Patterns maps each flag name to its pattern
	Patterns map[string]string `json:"patterns"`
}

// BinaryFlagsModule derives one boolean column per pattern from the columns
// of a single variable and joins them into the table by identifier.
type BinaryFlagsModule struct {
	variable string
	columns  []string
	patterns catalog.Patterns
}

// ParseBinaryFlagsConfig parses a raw configuration map into BinaryFlagsConfig.
func ParseBinaryFlagsConfig(config map[string]interface{}) (BinaryFlagsConfig, error) {
	var cfg BinaryFlagsConfig

	variable, ok := config["variable"].(string)
	if !ok || variable == "" {
		return cfg, errors.New("required field 'variable' is missing or empty")
	}
	cfg.Variable = variable

	raw, ok := config["patterns"].(map[string]interface{})
	if !ok || len(raw) == 0 {
		return cfg, errors.New("required field 'patterns' is missing or empty")
	}
	cfg.Patterns = make(map[string]string, len(raw))
	for name, expr := range raw {
		s, isString := expr.(string)
		if !isString {
			return cfg, fmt.Errorf("pattern for flag %q must be a string, got %T", name, expr)
		}
		cfg.Patterns[name] = s
	}

	return cfg, nil
}

// NewBinaryFlagsFromConfig creates a binaryFlags stage for the catalog.
func NewBinaryFlagsFromConfig(config BinaryFlagsConfig, cat *catalog.Catalog) (*BinaryFlagsModule, error) {
	columns, ok := cat.Group(config.Variable)
	if !ok {
		return nil, errhandling.NewConfigurationError(fmt.Sprintf("binaryFlags variable %q", config.Variable), ErrUnknownVariable)
	}
	patterns, err := catalog.CompilePatterns(config.Patterns)
	if err != nil {
		return nil, err
	}

	logger.Debug("binaryFlags stage initialized",
		slog.String("variable", config.Variable),
		slog.Any("flags", patterns.Names()),
	)

	return &BinaryFlagsModule{variable: config.Variable, columns: columns, patterns: patterns}, nil
}

// Process implements the filter.Module interface.
func (m *BinaryFlagsModule) Process(ctx context.Context, t *table.Table) error {
	columns := t.Live(m.columns)
	flags, err := deriveFlags(ctx, t, columns, m.patterns, skipAbsent)
	if err != nil {
		return err
	}
	if err := t.JoinFlags(flags); err != nil {
		return err
	}

	for i, name := range flags.Names {
		logger.Debug("binary flag derived",
			slog.String("variable", m.variable),
			slog.String("flag", name),
			slog.Int("scanned_columns", len(columns)),
			slog.Int("true_count", countTrue(flags.Values[i])),
		)
	}
	return nil
}

// Verify interface compliance at compile time
var _ Module = (*BinaryFlagsModule)(nil)
