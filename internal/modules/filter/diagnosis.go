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

// DiagnosisFlagsModule derives one boolean column per selected diagnosis
// pattern from the diagnosis columns, then drops those columns.
//
// Diagnosis codes are packed from the first array slot onward, so the scan
// of a row ends at its first absent diagnosis cell. Flags already true stay
// true; every other flag for that row becomes false.
type DiagnosisFlagsModule struct {
	prefix   string
	columns  []string
	patterns catalog.Patterns
}

// NewDiagnosisFlagsFromConfig creates a diagnosisFlags stage for the catalog.
// It scans the columns of every included variable whose name starts with the
// diagnosis prefix. No such variable is a configuration error.
func NewDiagnosisFlagsFromConfig(cat *catalog.Catalog) (*DiagnosisFlagsModule, error) {
	columns, variables := cat.GroupsWithPrefix(cat.DiagnosisPrefix())
	if len(columns) == 0 {
		return nil, errhandling.NewConfigurationError(
			fmt.Sprintf("diagnosis prefix %q", cat.DiagnosisPrefix()), ErrNoDiagnosisColumns)
	}

	logger.Debug("diagnosisFlags stage initialized",
		slog.String("prefix", cat.DiagnosisPrefix()),
		slog.Any("variables", variables),
		slog.Int("column_count", len(columns)),
		slog.Any("flags", cat.SelectedDiagnoses().Names()),
	)

	return &DiagnosisFlagsModule{
		prefix:   cat.DiagnosisPrefix(),
		columns:  columns,
		patterns: cat.SelectedDiagnoses(),
	}, nil
}

// Process implements the filter.Module interface.
func (m *DiagnosisFlagsModule) Process(ctx context.Context, t *table.Table) error {
	columns := t.Live(m.columns)
	flags, err := deriveFlags(ctx, t, columns, m.patterns, stopAtAbsent)
	if err != nil {
		return err
	}
	if err := t.JoinFlags(flags); err != nil {
		return err
	}
	dropped := t.DropColumns(columns...)

	for i, name := range flags.Names {
		logger.Debug("diagnosis flag derived",
			slog.String("flag", name),
			slog.Int("true_count", countTrue(flags.Values[i])),
		)
	}
	logger.Debug("diagnosis columns dropped",
		slog.String("prefix", m.prefix),
		slog.Int("column_count", dropped),
	)
	return nil
}

// Verify interface compliance at compile time
var _ Module = (*DiagnosisFlagsModule)(nil)
