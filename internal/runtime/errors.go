// Package runtime provides error types and classification for dataset builds.
// This file re-exports error handling utilities from the errhandling package.
package runtime

import (
	"github.com/mendelsonD/CognitiveSubtypes/internal/errhandling"
)

// ErrorCategory represents the category of an error (re-exported from errhandling).
type ErrorCategory = errhandling.ErrorCategory

// ClassifiedError represents a classified error with its category (re-exported from errhandling).
type ClassifiedError = errhandling.ClassifiedError

// Re-export error category constants
const (
	CategoryConfiguration   = errhandling.CategoryConfiguration
	CategoryIntegrity       = errhandling.CategoryIntegrity
	CategoryInvalidArgument = errhandling.CategoryInvalidArgument
	CategoryData            = errhandling.CategoryData
	CategoryIO              = errhandling.CategoryIO
	CategoryUnknown         = errhandling.CategoryUnknown
)

// Re-export functions
var (
	ClassifyError    = errhandling.ClassifyError
	GetErrorCategory = errhandling.GetErrorCategory
)
