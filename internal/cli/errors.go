// Package cli provides CLI output formatting and display functions.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/mendelsonD/CognitiveSubtypes/internal/config"
)

// Output destinations, replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// PrintParseErrors prints parse errors to stderr.
func PrintParseErrors(errors []config.ParseError, verbose bool) {
	fmt.Fprintln(stderr, "✗ Parse errors:")
	for _, err := range errors {
		printSingleParseError(err, verbose)
	}
}

// printSingleParseError prints a single parse error with location information.
func printSingleParseError(err config.ParseError, verbose bool) {
	location := formatErrorLocation(err.Path, err.Line, err.Column)

	if location != "" {
		fmt.Fprintf(stderr, "  %s: %s\n", location, err.Message)
	} else {
		fmt.Fprintf(stderr, "  %s\n", err.Message)
	}

	if verbose && err.Type != "" {
		fmt.Fprintf(stderr, "    Type: %s\n", err.Type)
	}
}

// formatErrorLocation formats the error location string (path:line:column).
func formatErrorLocation(path string, line, column int) string {
	if path == "" {
		return ""
	}

	location := path
	if line > 0 {
		location += fmt.Sprintf(":%d", line)
		if column > 0 {
			location += fmt.Sprintf(":%d", column)
		}
	}
	return location
}

// PrintValidationErrors prints validation errors to stderr.
func PrintValidationErrors(errors []config.ValidationError, verbose, quiet bool) {
	fmt.Fprintln(stderr, "✗ Validation errors:")
	for _, err := range errors {
		printSingleValidationError(err, verbose)
	}
	if !verbose {
		printValidationHint(quiet)
	}
}

func printSingleValidationError(err config.ValidationError, verbose bool) {
	path := err.Path
	if path == "" {
		path = "/"
	}

	if verbose {
		fmt.Fprintf(stderr, "  %s:\n", path)
		fmt.Fprintf(stderr, "    Message: %s\n", err.Message)
		if err.Type != "" {
			fmt.Fprintf(stderr, "    Type: %s\n", err.Type)
		}
		return
	}
	printCompactValidationError(path, err.Message)
}

// printCompactValidationError prints a compact validation error message.
func printCompactValidationError(path, message string) {
	shortMsg := message
	if len(shortMsg) > 80 {
		shortMsg = shortMsg[:77] + "..."
	}
	fmt.Fprintf(stderr, "  %s: %s\n", path, shortMsg)
}

// printValidationHint prints a hint about verbose mode.
func printValidationHint(quiet bool) {
	if !quiet {
		fmt.Fprintln(stderr, "")
		fmt.Fprintln(stderr, "Hint: Use --verbose for detailed error information")
	}
}

// PrintLoadError prints a configuration error raised after the file
// parsed and validated, such as a catalog integrity failure.
func PrintLoadError(err error) {
	fmt.Fprintln(stderr, "✗ Invalid dataset configuration")
	fmt.Fprintf(stderr, "  %v\n", err)
}
