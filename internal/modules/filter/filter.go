// Package filter provides implementations for stage modules.
// Stage modules derive flag columns, filter subjects, prune columns and
// recode values on the record table, in place.
package filter

import (
	"context"
	"errors"

	"github.com/mendelsonD/CognitiveSubtypes/internal/table"
)

// Stage errors
var (
	// ErrUnknownVariable is returned when a stage names a variable that is not an included catalog entry
	ErrUnknownVariable = errors.New("not an included catalog variable")

	// ErrMissingFlag is returned when a criteria flag column is not in the table
	ErrMissingFlag = errors.New("flag column not found")

	// ErrNoDiagnosisColumns is returned when no included variable carries the diagnosis prefix
	ErrNoDiagnosisColumns = errors.New("no included variable starts with the diagnosis prefix")

	// ErrUnknownMethod is returned for an unrecognized inclusion method
	ErrUnknownMethod = errors.New("available methods: 'AND', 'OR'")
)

// Module represents a stage module that transforms the record table.
type Module interface {
	// Process mutates the table in place. On error the table must be
	// treated as unusable; stages do not roll back.
	Process(ctx context.Context, t *table.Table) error
}

// cancelCheckInterval is how many rows are scanned between context checks.
const cancelCheckInterval = 1000

func checkCancel(ctx context.Context, row int) error {
	if row%cancelCheckInterval != 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
