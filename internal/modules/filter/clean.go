package filter

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mendelsonD/CognitiveSubtypes/internal/errhandling"
	"github.com/mendelsonD/CognitiveSubtypes/internal/logger"
	"github.com/mendelsonD/CognitiveSubtypes/internal/table"
)

// CleanConfig represents the configuration for a clean stage.
type CleanConfig struct {
	// Prefix selects the columns to drop by name
	Prefix string `json:"prefix"`
}

// CleanModule drops every column whose name starts with a prefix.
// The identifier column is never dropped.
type CleanModule struct {
	prefix string
}

// ParseCleanConfig parses a raw configuration map into CleanConfig.
func ParseCleanConfig(config map[string]interface{}) (CleanConfig, error) {
	var cfg CleanConfig
	prefix, ok := config["prefix"].(string)
	if !ok || prefix == "" {
		return cfg, errors.New("required field 'prefix' is missing or empty")
	}
	cfg.Prefix = prefix
	return cfg, nil
}

// NewCleanFromConfig creates a clean stage.
func NewCleanFromConfig(config CleanConfig) (*CleanModule, error) {
	if config.Prefix == "" {
		return nil, errhandling.NewConfigurationError("clean prefix is empty", nil)
	}
	return &CleanModule{prefix: config.Prefix}, nil
}

// Process implements the filter.Module interface.
func (m *CleanModule) Process(ctx context.Context, t *table.Table) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	columns := t.ColumnsWithPrefix(m.prefix)
	dropped := t.DropColumns(columns...)
	logger.Debug("columns dropped by prefix",
		slog.String("prefix", m.prefix),
		slog.Int("column_count", dropped),
	)
	return nil
}

// Verify interface compliance at compile time
var _ Module = (*CleanModule)(nil)
