package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"dataset.json", FormatJSON},
		{"dataset.JSON", FormatJSON},
		{"dataset.yaml", FormatYAML},
		{"dataset.yml", FormatYAML},
		{"dataset.txt", ""},
		{"dataset", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := DetectFormat(tt.path); got != tt.want {
				t.Errorf("DetectFormat(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestIsJSONAndIsYAML(t *testing.T) {
	if !IsJSON(`  {"a": 1}`) {
		t.Error("IsJSON should accept an object")
	}
	if IsJSON("a: 1") {
		t.Error("IsJSON should reject YAML")
	}
	if !IsYAML("a: 1") {
		t.Error("IsYAML should accept a mapping")
	}
	if IsYAML("   ") {
		t.Error("IsYAML should reject blank content")
	}
}

func TestParseJSONString_SyntaxErrorHasLocation(t *testing.T) {
	result := ParseJSONString("{\n  \"a\": 1,\n}")
	if result.IsValid() {
		t.Fatal("expected a syntax error")
	}
	err := result.Errors[0]
	if err.Type != ErrorTypeSyntax {
		t.Errorf("Type = %q, want %q", err.Type, ErrorTypeSyntax)
	}
	if err.Line != 3 {
		t.Errorf("Line = %d, want 3", err.Line)
	}
}

func TestParseJSONString_NotAnObject(t *testing.T) {
	result := ParseJSONString(`[1, 2]`)
	if result.IsValid() {
		t.Fatal("expected a format error")
	}
	if result.Errors[0].Type != ErrorTypeFormat {
		t.Errorf("Type = %q, want %q", result.Errors[0].Type, ErrorTypeFormat)
	}
}

func TestParseYAMLString_SyntaxErrorHasLine(t *testing.T) {
	result := ParseYAMLString("a: 1\nb: [1, 2\nc: 3\n")
	if result.IsValid() {
		t.Fatal("expected a syntax error")
	}
	if result.Errors[0].Line == 0 {
		t.Errorf("expected a line number, got %+v", result.Errors[0])
	}
}

func TestParseYAMLString_NormalizesNumericKeys(t *testing.T) {
	result := ParseYAMLString("coding:\n  1: Yes\n  2.5: Maybe\ncount: 3\n")
	if !result.IsValid() {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	coding, ok := result.Data["coding"].(map[string]interface{})
	if !ok {
		t.Fatalf("coding = %T, want map[string]interface{}", result.Data["coding"])
	}
	if coding["1"] != "Yes" || coding["2.5"] != "Maybe" {
		t.Errorf("coding = %v", coding)
	}
	if n, ok := result.Data["count"].(float64); !ok || n != 3 {
		t.Errorf("count = %#v, want float64(3)", result.Data["count"])
	}
}

func TestParseConfig_ValidFiles(t *testing.T) {
	for _, name := range []string{"valid-dataset.yaml", "valid-dataset.json"} {
		t.Run(name, func(t *testing.T) {
			result := ParseConfig(filepath.Join("testdata", name))
			if !result.IsValid() {
				t.Fatalf("unexpected errors: %v", result.AllErrors())
			}
			if result.Data["dataset"] == nil {
				t.Error("missing dataset section")
			}
		})
	}
}

func TestParseConfig_SyntaxError(t *testing.T) {
	path := filepath.Join("testdata", "invalid-syntax.json")
	result := ParseConfig(path)
	if len(result.ParseErrors) == 0 {
		t.Fatal("expected parse errors")
	}
	if result.ParseErrors[0].Path != path {
		t.Errorf("Path = %q, want %q", result.ParseErrors[0].Path, path)
	}
	if len(result.ValidationErrors) != 0 {
		t.Error("validation should not run after a parse failure")
	}
}

func TestParseConfig_MissingFile(t *testing.T) {
	result := ParseConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if len(result.ParseErrors) != 1 {
		t.Fatalf("expected one parse error, got %d", len(result.ParseErrors))
	}
	if result.ParseErrors[0].Type != ErrorTypeIO {
		t.Errorf("Type = %q, want %q", result.ParseErrors[0].Type, ErrorTypeIO)
	}
}

func TestParseConfig_SniffsUnknownExtension(t *testing.T) {
	src, err := os.ReadFile(filepath.Join("testdata", "valid-dataset.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "dataset.conf")
	if err := os.WriteFile(path, src, 0o600); err != nil {
		t.Fatal(err)
	}

	result := ParseConfig(path)
	if !result.IsValid() {
		t.Fatalf("unexpected errors: %v", result.AllErrors())
	}
	if result.Format != FormatYAML {
		t.Errorf("Format = %q, want %q", result.Format, FormatYAML)
	}
}

func TestParseError_Error(t *testing.T) {
	err := ParseError{Path: "d.json", Line: 2, Column: 5, Message: "boom"}
	if got := err.Error(); !strings.Contains(got, "d.json: line 2, column 5: boom") {
		t.Errorf("Error() = %q", got)
	}
}
