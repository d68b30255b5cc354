// Package config provides functionality for parsing and validating
// dataset configuration files (JSON/YAML).
package config

import (
	"fmt"
	"strings"
)

// Format names.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ParseError types.
const (
	ErrorTypeIO     = "io"
	ErrorTypeSyntax = "syntax"
	ErrorTypeFormat = "format"
)

// ParseResult contains the result of parsing a configuration document.
type ParseResult struct {
	// Data contains the parsed configuration as a map
	Data map[string]interface{}
	// Errors contains any parsing errors encountered
	Errors []ParseError
	// FilePath is the path to the parsed file (empty if parsed from string)
	FilePath string
	// Format is the detected format (json, yaml)
	Format string
}

// IsValid returns true if no parsing errors occurred.
func (r *ParseResult) IsValid() bool {
	return len(r.Errors) == 0
}

// ParseError represents a parsing error with location information.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Offset  int64
	Message string
	Type    string
}

// Error implements the error interface.
func (e ParseError) Error() string {
	var sb strings.Builder
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d", e.Line))
		if e.Column > 0 {
			sb.WriteString(fmt.Sprintf(", column %d", e.Column))
		}
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// ValidationResult contains the result of validating a configuration.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// ValidationError represents a schema validation error.
type ValidationError struct {
	// Path is the JSON pointer where the error occurred (e.g., "/dataset/variables/0/name")
	Path string
	// Type is the error type (required, type, pattern, enum, ...)
	Type string
	// Message is the error message
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Result contains the combined result of parsing and validation.
type Result struct {
	Data             map[string]interface{}
	ParseErrors      []ParseError
	ValidationErrors []ValidationError
	FilePath         string
	Format           string
}

// IsValid returns true if no errors occurred.
func (r *Result) IsValid() bool {
	return len(r.ParseErrors) == 0 && len(r.ValidationErrors) == 0
}

// AllErrors returns all errors (parsing and validation) as a single slice.
func (r *Result) AllErrors() []error {
	errs := make([]error, 0, len(r.ParseErrors)+len(r.ValidationErrors))
	for _, e := range r.ParseErrors {
		errs = append(errs, e)
	}
	for _, e := range r.ValidationErrors {
		errs = append(errs, e)
	}
	return errs
}
