package filter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mendelsonD/CognitiveSubtypes/internal/catalog"
	"github.com/mendelsonD/CognitiveSubtypes/internal/errhandling"
	"github.com/mendelsonD/CognitiveSubtypes/internal/logger"
	"github.com/mendelsonD/CognitiveSubtypes/internal/table"
)

// Inclusion methods.
const (
	MethodAnd = "AND"
	MethodOr  = "OR"
)

// InclusionConfig represents the configuration for an inclusion stage.
type InclusionConfig struct {
	// Method combines the included flags: AND (default) or OR
	Method string `json:"method"`
}

// InclusionModule keeps the subjects that satisfy the inclusion criteria.
type InclusionModule struct {
	method string
	flags  []string
}

// ExclusionModule removes the subjects that carry any excluded flag.
type ExclusionModule struct {
	flags []string
}

// ParseInclusionConfig parses a raw configuration map into InclusionConfig.
func ParseInclusionConfig(config map[string]interface{}) (InclusionConfig, error) {
	cfg := InclusionConfig{Method: MethodAnd}
	if raw, ok := config["method"]; ok {
		method, isString := raw.(string)
		if !isString {
			return cfg, errhandling.NewInvalidArgumentError(fmt.Sprintf("method %v", raw), ErrUnknownMethod)
		}
		cfg.Method = method
	}
	return cfg, nil
}

// NewInclusionFromConfig creates an inclusion stage over the catalog's
// included diagnosis flags.
func NewInclusionFromConfig(config InclusionConfig, cat *catalog.Catalog) (*InclusionModule, error) {
	if err := checkMethod(config.Method); err != nil {
		return nil, err
	}
	return &InclusionModule{method: config.Method, flags: cat.IncludedDiagnoses().Names()}, nil
}

// NewExclusionFromConfig creates an exclusion stage over the catalog's
// excluded diagnosis flags.
func NewExclusionFromConfig(cat *catalog.Catalog) (*ExclusionModule, error) {
	return &ExclusionModule{flags: cat.ExcludedDiagnoses().Names()}, nil
}

func checkMethod(method string) error {
	if method != MethodAnd && method != MethodOr {
		return errhandling.NewInvalidArgumentError(fmt.Sprintf("inclusion method %q", method), ErrUnknownMethod)
	}
	return nil
}

// Process implements the filter.Module interface.
func (m *InclusionModule) Process(ctx context.Context, t *table.Table) error {
	_, err := Include(ctx, t, m.flags, m.method)
	return err
}

// Process implements the filter.Module interface.
func (m *ExclusionModule) Process(ctx context.Context, t *table.Table) error {
	_, err := Exclude(ctx, t, m.flags)
	return err
}

// Include keeps the rows that satisfy the flags under method and returns the
// number of rows removed.
//
// AND intersects one flag at a time, so a row survives only when every flag
// is true; with no flags every row survives. OR keeps a row when any flag is
// true; with no flags no row survives. Only boolean true counts as set.
func Include(ctx context.Context, t *table.Table, flags []string, method string) (int, error) {
	if err := checkMethod(method); err != nil {
		return 0, err
	}
	columns, err := flagColumns(t, flags)
	if err != nil {
		return 0, err
	}

	before := t.Len()
	switch method {
	case MethodAnd:
		for _, flag := range flags {
			column, _ := t.Column(flag)
			removed, err := keepWhere(ctx, t, func(row int) bool { return isTrue(column[row]) })
			if err != nil {
				return 0, err
			}
			logger.Debug("inclusion criterion applied",
				slog.String("flag", flag),
				slog.Int("removed", removed),
				slog.Int("row_count", t.Len()),
			)
		}
	case MethodOr:
		removed, err := keepWhere(ctx, t, func(row int) bool {
			for _, column := range columns {
				if isTrue(column[row]) {
					return true
				}
			}
			return false
		})
		if err != nil {
			return 0, err
		}
		logger.Debug("inclusion criteria applied",
			slog.String("flags", strings.Join(flags, ",")),
			slog.Int("removed", removed),
			slog.Int("row_count", t.Len()),
		)
	}

	return before - t.Len(), nil
}

// Exclude removes every row on which any of the flags is true and returns
// the number of rows removed.
func Exclude(ctx context.Context, t *table.Table, flags []string) (int, error) {
	if _, err := flagColumns(t, flags); err != nil {
		return 0, err
	}

	before := t.Len()
	for _, flag := range flags {
		column, _ := t.Column(flag)
		removed, err := keepWhere(ctx, t, func(row int) bool { return !isTrue(column[row]) })
		if err != nil {
			return 0, err
		}
		logger.Debug("exclusion criterion applied",
			slog.String("flag", flag),
			slog.Int("removed", removed),
			slog.Int("row_count", t.Len()),
		)
	}
	return before - t.Len(), nil
}

func flagColumns(t *table.Table, flags []string) ([][]table.Value, error) {
	columns := make([][]table.Value, len(flags))
	for i, flag := range flags {
		column, ok := t.Column(flag)
		if !ok {
			return nil, errhandling.NewInvalidArgumentError(fmt.Sprintf("flag %q", flag), ErrMissingFlag)
		}
		columns[i] = column
	}
	return columns, nil
}

func keepWhere(ctx context.Context, t *table.Table, keep func(row int) bool) (int, error) {
	mask := make([]bool, t.Len())
	for row := range mask {
		if err := checkCancel(ctx, row); err != nil {
			return 0, err
		}
		mask[row] = keep(row)
	}
	return t.KeepRows(mask)
}

func isTrue(v table.Value) bool {
	b, ok := v.AsBool()
	return ok && b
}

// Verify interface compliance at compile time
var (
	_ Module = (*InclusionModule)(nil)
	_ Module = (*ExclusionModule)(nil)
)
