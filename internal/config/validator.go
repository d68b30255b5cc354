package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/dataset-schema.json
var embeddedSchema []byte

// schemaOnce ensures thread-safe initialization of the compiled schema.
var schemaOnce sync.Once

// compiledSchema is the cached compiled schema.
var compiledSchema *jsonschema.Schema

// schemaInitErr stores any error from schema initialization.
var schemaInitErr error

// GetEmbeddedSchema returns the embedded dataset schema.
func GetEmbeddedSchema() []byte {
	return embeddedSchema
}

// getCompiledSchema returns the compiled JSON schema, compiling it if necessary.
// Thread-safe via sync.Once.
func getCompiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var schemaDoc interface{}
		if err := json.Unmarshal(embeddedSchema, &schemaDoc); err != nil {
			schemaInitErr = fmt.Errorf("failed to parse embedded schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()

		schemaURL := "https://cognitivesubtypes.org/schemas/dataset/v1.0.0/dataset-schema.json"
		if err := compiler.AddResource(schemaURL, schemaDoc); err != nil {
			schemaInitErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}

		var err error
		compiledSchema, err = compiler.Compile(schemaURL)
		if err != nil {
			schemaInitErr = fmt.Errorf("failed to compile schema: %w", err)
			return
		}
	})

	if schemaInitErr != nil {
		return nil, schemaInitErr
	}
	return compiledSchema, nil
}

// ValidateConfig validates a parsed configuration against the dataset schema.
// Returns a ValidationResult with validation status and any errors.
func ValidateConfig(data map[string]interface{}) *ValidationResult {
	result := &ValidationResult{
		Valid: true,
	}

	if data == nil {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{
			Path:    "/",
			Type:    "required",
			Message: "configuration data is nil",
		})
		return result
	}

	if len(data) == 0 {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{
			Path:    "/",
			Type:    "required",
			Message: "configuration data is empty",
		})
		return result
	}

	schema, err := getCompiledSchema()
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{
			Path:    "/",
			Type:    "schema",
			Message: fmt.Sprintf("failed to load schema: %v", err),
		})
		return result
	}

	validationErr := schema.Validate(data)
	if validationErr != nil {
		result.Valid = false

		if detailedErr, ok := validationErr.(*jsonschema.ValidationError); ok {
			result.Errors = convertValidationErrors(detailedErr)
		} else {
			result.Errors = append(result.Errors, ValidationError{
				Path:    "/",
				Type:    "validation",
				Message: validationErr.Error(),
			})
		}
	}

	return result
}

// convertValidationErrors converts jsonschema validation errors to our format.
// Only leaf errors are reported; the intermediate "doesn't validate with"
// wrappers carry no location-specific information.
func convertValidationErrors(err *jsonschema.ValidationError) []ValidationError {
	if len(err.Causes) == 0 {
		return []ValidationError{{
			Path:    formatInstanceLocation(err.InstanceLocation),
			Type:    extractErrorType(err),
			Message: localizedMessage(err),
		}}
	}

	var errs []ValidationError
	for _, cause := range err.Causes {
		errs = append(errs, convertValidationErrors(cause)...)
	}
	return errs
}

// formatInstanceLocation formats the instance location as a JSON path.
func formatInstanceLocation(loc []string) string {
	if len(loc) == 0 {
		return "/"
	}
	return "/" + strings.Join(loc, "/")
}

// extractErrorType maps the jsonschema error kind to a short error type.
func extractErrorType(err *jsonschema.ValidationError) string {
	switch err.ErrorKind.(type) {
	case *kind.Required, *kind.DependentRequired:
		return "required"
	case *kind.Type:
		return "type"
	case *kind.Pattern:
		return "pattern"
	case *kind.Enum, *kind.Const:
		return "enum"
	case *kind.Minimum, *kind.Maximum, *kind.ExclusiveMinimum, *kind.ExclusiveMaximum:
		return "range"
	case *kind.MinItems, *kind.MaxItems, *kind.MinLength, *kind.MaxLength, *kind.MinProperties:
		return "size"
	case *kind.UniqueItems:
		return "uniqueItems"
	case *kind.AdditionalProperties:
		return "additionalProperties"
	case *kind.Format:
		return "format"
	default:
		return "validation"
	}
}

// localizedMessage renders the error kind without the wrapper header.
func localizedMessage(err *jsonschema.ValidationError) string {
	if err.ErrorKind == nil {
		return err.Error()
	}
	return err.ErrorKind.LocalizedString(messagePrinter)
}

var messagePrinter = message.NewPrinter(language.English)
