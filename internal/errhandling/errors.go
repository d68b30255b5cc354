// Package errhandling provides error types and classification helpers.
// This file defines error categories, classification functions, and helper utilities
// shared by the catalog, table, module and runtime packages.
//
// Every category is fatal: a dataset build either completes over the whole
// table or stops. Nothing is retried or downgraded.
package errhandling

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrorCategory represents the type/category of an error.
type ErrorCategory string

// Error categories for classification.
const (
	// CategoryConfiguration represents field catalog authoring errors
	// (name mapping length mismatch, duplicate column names, bad patterns).
	// Raised before any data is loaded.
	CategoryConfiguration ErrorCategory = "configuration"

	// CategoryIntegrity represents derivation integrity failures: a derived
	// value count that does not match rows * columns, or a join whose
	// identifier sets disagree.
	CategoryIntegrity ErrorCategory = "integrity"

	// CategoryInvalidArgument represents caller mistakes such as an
	// unrecognized inclusion method or a missing flag column.
	CategoryInvalidArgument ErrorCategory = "invalid_argument"

	// CategoryData represents raw extract shape errors: missing columns,
	// absent or duplicate identifiers.
	CategoryData ErrorCategory = "data"

	// CategoryIO represents file read/write failures.
	CategoryIO ErrorCategory = "io"

	// CategoryUnknown represents unclassified errors.
	CategoryUnknown ErrorCategory = "unknown"
)

// ClassifiedError wraps an error with classification metadata.
type ClassifiedError struct {
	// Category is the error classification category.
	Category ErrorCategory

	// Message is a human-readable error message.
	Message string

	// OriginalErr is the underlying error that was classified.
	OriginalErr error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.OriginalErr != nil && e.OriginalErr.Error() != e.Message {
		return fmt.Sprintf("%s error: %s: %v", e.Category, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("%s error: %s", e.Category, e.Message)
}

// Unwrap returns the original error for use with errors.Is and errors.As.
func (e *ClassifiedError) Unwrap() error {
	return e.OriginalErr
}

// ClassifyError classifies any error into a ClassifiedError.
// Already classified errors are returned as is; filesystem errors become
// CategoryIO; everything else is CategoryUnknown.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return &ClassifiedError{
			Category: CategoryUnknown,
			Message:  "nil error",
		}
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return &ClassifiedError{
			Category:    CategoryIO,
			Message:     fmt.Sprintf("%s %s", pathErr.Op, pathErr.Path),
			OriginalErr: err,
		}
	}

	return &ClassifiedError{
		Category:    CategoryUnknown,
		Message:     err.Error(),
		OriginalErr: err,
	}
}

// GetErrorCategory returns the error category for a given error.
// Returns CategoryUnknown for nil or unclassified errors.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Category
	}

	return CategoryUnknown
}

// NewConfigurationError creates a ClassifiedError for catalog integrity errors.
func NewConfigurationError(message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryConfiguration,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// NewIntegrityError creates a ClassifiedError for derivation integrity errors.
func NewIntegrityError(message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryIntegrity,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// NewInvalidArgumentError creates a ClassifiedError for caller mistakes.
func NewInvalidArgumentError(message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryInvalidArgument,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// NewDataError creates a ClassifiedError for raw extract shape errors.
func NewDataError(message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryData,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// NewIOError creates a ClassifiedError for file read/write failures.
func NewIOError(message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryIO,
		Message:     message,
		OriginalErr: originalErr,
	}
}
