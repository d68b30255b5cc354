package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mendelsonD/CognitiveSubtypes/internal/catalog"
	"github.com/mendelsonD/CognitiveSubtypes/internal/config"
	"github.com/mendelsonD/CognitiveSubtypes/pkg/cohort"
)

// captureOutput redirects stdout and stderr into buffers for one test.
func captureOutput(t *testing.T) (out, errOut *bytes.Buffer) {
	t.Helper()
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}
	prevOut, prevErr := stdout, stderr
	stdout, stderr = out, errOut
	t.Cleanup(func() { stdout, stderr = prevOut, prevErr })
	return out, errOut
}

func TestFormatErrorLocation(t *testing.T) {
	tests := []struct {
		path         string
		line, column int
		want         string
	}{
		{"", 3, 4, ""},
		{"dataset.yaml", 0, 0, "dataset.yaml"},
		{"dataset.yaml", 3, 0, "dataset.yaml:3"},
		{"dataset.json", 3, 7, "dataset.json:3:7"},
	}
	for _, tt := range tests {
		if got := formatErrorLocation(tt.path, tt.line, tt.column); got != tt.want {
			t.Errorf("formatErrorLocation(%q, %d, %d) = %q, want %q", tt.path, tt.line, tt.column, got, tt.want)
		}
	}
}

func TestPrintParseErrors(t *testing.T) {
	_, errOut := captureOutput(t)
	PrintParseErrors([]config.ParseError{
		{Path: "dataset.json", Line: 2, Column: 5, Message: "invalid character", Type: config.ErrorTypeSyntax},
	}, true)

	got := errOut.String()
	for _, want := range []string{"Parse errors", "dataset.json:2:5: invalid character", "Type: syntax"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestPrintValidationErrors(t *testing.T) {
	errs := []config.ValidationError{
		{Path: "", Type: "required", Message: "missing property 'dataset'"},
		{Path: "/dataset/variables/0/dataField", Type: "type", Message: strings.Repeat("x", 100)},
	}

	t.Run("compact", func(t *testing.T) {
		_, errOut := captureOutput(t)
		PrintValidationErrors(errs, false, false)
		got := errOut.String()
		if !strings.Contains(got, "  /: missing property 'dataset'") {
			t.Errorf("root path not rendered as '/':\n%s", got)
		}
		if !strings.Contains(got, strings.Repeat("x", 77)+"...") {
			t.Errorf("long message not truncated:\n%s", got)
		}
		if !strings.Contains(got, "Hint: Use --verbose") {
			t.Errorf("hint missing:\n%s", got)
		}
	})

	t.Run("verbose", func(t *testing.T) {
		_, errOut := captureOutput(t)
		PrintValidationErrors(errs, true, false)
		got := errOut.String()
		if !strings.Contains(got, "Type: required") || !strings.Contains(got, strings.Repeat("x", 100)) {
			t.Errorf("verbose output incomplete:\n%s", got)
		}
		if strings.Contains(got, "Hint") {
			t.Errorf("hint should not be printed in verbose mode:\n%s", got)
		}
	})

	t.Run("quiet", func(t *testing.T) {
		_, errOut := captureOutput(t)
		PrintValidationErrors(errs, false, true)
		if strings.Contains(errOut.String(), "Hint") {
			t.Error("hint should not be printed in quiet mode")
		}
	})
}

func testResult() *cohort.ExecutionResult {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &cohort.ExecutionResult{
		RunID:       "run-1",
		Status:      "success",
		StartedAt:   start,
		CompletedAt: start.Add(1500 * time.Millisecond),
		RowsLoaded:  10,
		RowsWritten: 4,
		Columns:     []string{"eid", "sex_t0", "depression"},
		Stages: []cohort.StageResult{
			{Index: 0, Type: "inclusion", RowsBefore: 10, RowsAfter: 4, ColumnsBefore: 3, ColumnsAfter: 3},
		},
	}
}

func TestPrintExecutionResult_Success(t *testing.T) {
	out, _ := captureOutput(t)
	PrintExecutionResult(testResult(), nil, OutputOptions{Verbose: true, Path: "/tmp/out.csv"})

	got := out.String()
	for _, want := range []string{
		"Dataset built successfully",
		"Run: run-1",
		"Wrote 4 of 10 subjects (3 columns) in 1.50s",
		"Output: /tmp/out.csv",
		"inclusion",
		"Columns: eid, sex_t0, depression",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestPrintExecutionResult_DryRunAndQuiet(t *testing.T) {
	out, _ := captureOutput(t)
	PrintExecutionResult(testResult(), nil, OutputOptions{DryRun: true})
	if !strings.Contains(out.String(), "no file was written") {
		t.Errorf("dry-run note missing:\n%s", out.String())
	}

	out.Reset()
	PrintExecutionResult(testResult(), nil, OutputOptions{Quiet: true})
	if out.Len() != 0 {
		t.Errorf("quiet mode printed %q", out.String())
	}
}

func TestPrintExecutionResult_Failure(t *testing.T) {
	out, errOut := captureOutput(t)
	result := testResult()
	result.Status = "error"
	result.Error = &cohort.ExecutionError{
		Code:          "STAGE_FAILED",
		Message:       "stage 2 (inclusion) failed: unknown method",
		Module:        "inclusion",
		ErrorCategory: "invalid_argument",
	}

	PrintExecutionResult(result, errors.New("boom"), OutputOptions{Verbose: true})

	if out.Len() != 0 {
		t.Errorf("failure printed to stdout: %q", out.String())
	}
	got := errOut.String()
	for _, want := range []string{"Dataset build failed", "Module: inclusion", "unknown method", "Category: invalid_argument"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestPrintExecutionResult_Nil(t *testing.T) {
	_, errOut := captureOutput(t)
	PrintExecutionResult(nil, nil, OutputOptions{})
	if !strings.Contains(errOut.String(), "No execution result") {
		t.Errorf("got %q", errOut.String())
	}
}

func TestPrintColumnMapping(t *testing.T) {
	out, errOut := captureOutput(t)
	cat, err := catalog.New(&cohort.Dataset{
		Identifier: cohort.DefaultIdentifier,
		Variables: []cohort.Variable{
			{Name: "med", Included: true, DataField: 20003, InstanceNum: 0, ArrayRange: []int{0}},
			{Name: "medication", Included: true, DataField: 20003, InstanceNum: 2, ArrayRange: []int{0, 1}},
		},
	})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}

	PrintColumnMapping(cat)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5:\n%s", len(lines), out.String())
	}
	for i, want := range [][]string{
		{"RAW", "RECODED"},
		{"eid", "eid"},
		{"20003-0.0", "med_t0"},
		{"20003-2.0", "medication_t2_0"},
		{"20003-2.1", "medication_t2_1"},
	} {
		if got := strings.Fields(lines[i]); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("line %d = %q, want %v", i, lines[i], want)
		}
	}
	if !strings.Contains(errOut.String(), `"med" is a name prefix of "medication"`) {
		t.Errorf("collision warning missing: %q", errOut.String())
	}
}
