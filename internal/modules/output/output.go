// Package output provides implementations for output modules.
// Output modules write the finished record table to its destination.
package output

import (
	"context"

	"github.com/mendelsonD/CognitiveSubtypes/internal/table"
)

// Module represents an output module that writes the record table.
type Module interface {
	// Write persists the table.
	// Returns the number of rows written and any error.
	Write(ctx context.Context, t *table.Table) (int, error)

	// Close releases any resources held by the module.
	Close() error
}
