// Package input provides implementations for input modules.
// Input modules read a raw extract and return it as a record table with
// recoded column names.
package input

import (
	"context"
	"errors"

	"github.com/mendelsonD/CognitiveSubtypes/internal/table"
)

// Input errors
var (
	// ErrMissingColumns is returned when the extract lacks mapped raw columns
	ErrMissingColumns = errors.New("raw extract is missing mapped columns")

	// ErrEmptyExtract is returned when the extract has no header line
	ErrEmptyExtract = errors.New("raw extract is empty")
)

// Module represents an input module that loads the record table.
type Module interface {
	// Load reads the source and returns the record table.
	// The context can be used to cancel long-running reads.
	Load(ctx context.Context) (*table.Table, error)
	// Close releases any resources held by the module.
	Close() error
}
