package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseConfig reads, parses and validates a dataset configuration file.
// The format is taken from the file extension, or sniffed from the content
// when the extension is not .json, .yaml or .yml.
func ParseConfig(path string) *Result {
	result := &Result{FilePath: path}

	content, err := os.ReadFile(path)
	if err != nil {
		result.ParseErrors = append(result.ParseErrors, ParseError{
			Path:    path,
			Message: fmt.Sprintf("failed to read file: %v", err),
			Type:    ErrorTypeIO,
		})
		return result
	}

	parsed := ParseConfigString(string(content), DetectFormat(path))
	parsed.FilePath = path
	for i := range parsed.ParseErrors {
		if parsed.ParseErrors[i].Path == "" {
			parsed.ParseErrors[i].Path = path
		}
	}
	return parsed
}

// ParseConfigString parses and validates configuration content.
// If format is empty, it is detected from the content.
func ParseConfigString(content, format string) *Result {
	result := &Result{Format: format}

	if format == "" {
		switch {
		case IsJSON(content):
			format = FormatJSON
		case IsYAML(content):
			format = FormatYAML
		default:
			result.ParseErrors = append(result.ParseErrors, ParseError{
				Message: "unable to detect configuration format: not valid JSON or YAML",
				Type:    ErrorTypeFormat,
			})
			return result
		}
		result.Format = format
	}

	var parsed *ParseResult
	switch format {
	case FormatJSON:
		parsed = ParseJSONString(content)
	case FormatYAML:
		parsed = ParseYAMLString(content)
	default:
		result.ParseErrors = append(result.ParseErrors, ParseError{
			Message: fmt.Sprintf("unsupported format: %s", format),
			Type:    ErrorTypeFormat,
		})
		return result
	}

	result.Data = parsed.Data
	result.ParseErrors = parsed.Errors
	if !parsed.IsValid() {
		return result
	}

	result.ValidationErrors = ValidateConfig(parsed.Data).Errors
	return result
}

// DetectFormat detects the configuration format from file extension.
// Returns "json", "yaml", or empty string if format cannot be detected.
func DetectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// IsJSON checks if the content appears to be JSON format.
func IsJSON(content string) bool {
	content = strings.TrimSpace(content)
	return strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[")
}

// IsYAML checks if the content parses as a non-empty YAML document.
// JSON is also valid YAML, so this may return true for JSON content.
func IsYAML(content string) bool {
	if strings.TrimSpace(content) == "" {
		return false
	}
	var data interface{}
	err := yaml.Unmarshal([]byte(content), &data)
	return err == nil && data != nil
}

// ParseJSONString parses JSON content from a string.
func ParseJSONString(content string) *ParseResult {
	result := &ParseResult{Format: FormatJSON}

	content = strings.TrimSpace(content)
	if content == "" {
		result.Errors = append(result.Errors, ParseError{
			Message: "empty content: expected JSON object",
			Type:    ErrorTypeSyntax,
		})
		return result
	}

	var data interface{}
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		result.Errors = append(result.Errors, parseJSONError(err, content))
		return result
	}

	return toObject(result, data, "JSON object")
}

// ParseYAMLString parses YAML content from a string.
// Values are normalized to the shapes encoding/json produces (string keys,
// float64 numbers) so that validation and conversion see one representation.
func ParseYAMLString(content string) *ParseResult {
	result := &ParseResult{Format: FormatYAML}

	if strings.TrimSpace(content) == "" {
		result.Errors = append(result.Errors, ParseError{
			Message: "empty content: expected YAML document",
			Type:    ErrorTypeSyntax,
		})
		return result
	}

	var data interface{}
	if err := yaml.Unmarshal([]byte(content), &data); err != nil {
		result.Errors = append(result.Errors, parseYAMLError(err))
		return result
	}

	return toObject(result, normalizeYAML(data), "YAML mapping")
}

func toObject(result *ParseResult, data interface{}, want string) *ParseResult {
	if data == nil {
		return result
	}
	dataMap, ok := data.(map[string]interface{})
	if !ok {
		result.Errors = append(result.Errors, ParseError{
			Message: fmt.Sprintf("invalid configuration: expected %s, got %T", want, data),
			Type:    ErrorTypeFormat,
		})
		return result
	}
	result.Data = dataMap
	return result
}

// normalizeYAML converts yaml.v3 output to encoding/json shapes.
// Coding tables often use bare numeric keys ({1: "Yes"}), which yaml.v3
// decodes into map[interface{}]interface{}.
func normalizeYAML(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, item := range t {
			t[k] = normalizeYAML(item)
		}
		return t
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[scalarString(k)] = normalizeYAML(item)
		}
		return out
	case []interface{}:
		for i, item := range t {
			t[i] = normalizeYAML(item)
		}
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	default:
		return v
	}
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// parseJSONError extracts detailed error information from a JSON unmarshaling error.
func parseJSONError(err error, content string) ParseError {
	parseErr := ParseError{
		Message: err.Error(),
		Type:    ErrorTypeSyntax,
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		parseErr.Offset = syntaxErr.Offset
		parseErr.Line, parseErr.Column = offsetToLineColumn(content, syntaxErr.Offset)
		parseErr.Message = fmt.Sprintf("JSON syntax error at offset %d: %s", syntaxErr.Offset, syntaxErr.Error())
	}

	return parseErr
}

// offsetToLineColumn converts a byte offset to 1-based line and column numbers.
func offsetToLineColumn(content string, offset int64) (line, column int) {
	line, column = 1, 1
	for i := int64(0); i < offset && i < int64(len(content)); i++ {
		if content[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}

// parseYAMLError extracts detailed error information from a YAML unmarshaling error.
func parseYAMLError(err error) ParseError {
	parseErr := ParseError{
		Message: err.Error(),
		Type:    ErrorTypeSyntax,
	}

	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		parseErr.Message = fmt.Sprintf("YAML type error: %s", strings.Join(typeErr.Errors, "; "))
	}

	// yaml.v3 messages look like "yaml: line X: ..."
	var line int
	if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
		parseErr.Line = line
	}

	return parseErr
}
