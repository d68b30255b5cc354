// Package logger provides structured logging functionality.
// It wraps the standard log/slog package for consistent logging across the
// dataset builder.
//
// Execution helpers log build start/end, stage start/end and metrics with
// consistent snake_case field names (run_id, dataset, stage_index, ...).
//
// The package supports two console formats:
//   - JSON (default): Machine-readable structured logging
//   - Human: Human-readable console output with colors and prefixes
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger is the default logger instance.
var Logger *slog.Logger

// output is where console logs are written. Logs go to stderr so that
// command output on stdout stays clean.
var output io.Writer = os.Stderr

func init() {
	Logger = slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// WithRun returns a logger with run context.
func WithRun(runID string) *slog.Logger {
	return Logger.With("run_id", runID)
}

// =============================================================================
// Execution Context Types
// =============================================================================

// ExecutionContext contains the context fields attached to build logs.
type ExecutionContext struct {
	// RunID is the unique identifier of this execution
	RunID string
	// Dataset is the human-readable dataset name
	Dataset string
	// Stage is the current execution phase (input, stage, output)
	Stage string
	// StageType is the type of stage being executed (binaryFlags, recode, etc.)
	StageType string
	// StageIndex is the index of the current stage; negative when not in a stage
	StageIndex int
	// DryRun indicates that the output module is skipped
	DryRun bool
}

// ExecutionError contains structured error information for logging.
type ExecutionError struct {
	// Code is the error code (e.g., STAGE_FAILED, INPUT_FAILED)
	Code string
	// Message is the human-readable error message
	Message string
}

// ErrorContext contains structured context for error logging.
// Use this with LogError() for consistent, actionable error logs.
type ErrorContext struct {
	RunID     string
	Dataset   string
	Stage     string
	StageType string

	ErrorCode    string
	ErrorMessage string
	Err          error

	// StageIndex is the failing stage index; negative when not applicable
	StageIndex int
	RowCount   int
	Path       string
	Duration   time.Duration

	Extra map[string]interface{}
}

// ExecutionMetrics contains performance metrics for execution logging.
type ExecutionMetrics struct {
	TotalDuration  time.Duration
	InputDuration  time.Duration
	StageDuration  time.Duration
	OutputDuration time.Duration
	RowsLoaded     int
	RowsWritten    int
	ColumnsWritten int
	RowsPerSecond  float64
}

// =============================================================================
// Execution Context Helpers
// =============================================================================

// WithExecution returns a logger with execution context attached.
// Only non-empty fields are included in the log output.
func WithExecution(ctx ExecutionContext) *slog.Logger {
	return Logger.With(buildContextAttrs(ctx)...)
}

// LogExecutionStart logs the start of a dataset build.
func LogExecutionStart(ctx ExecutionContext) {
	Logger.Info("execution started", buildContextAttrs(ctx)...)
}

// LogExecutionEnd logs the completion of a dataset build.
func LogExecutionEnd(ctx ExecutionContext, status string, rowCount int, duration time.Duration) {
	attrs := buildContextAttrs(ctx)
	attrs = append(attrs,
		slog.String("status", status),
		slog.Int("row_count", rowCount),
		slog.Duration("duration", duration),
	)
	Logger.Info("execution completed", attrs...)
}

// LogStageStart logs the start of a build phase or stage.
func LogStageStart(ctx ExecutionContext) {
	Logger.Info("stage started", buildContextAttrs(ctx)...)
}

// LogStageEnd logs the completion of a build phase or stage.
// If err is non-nil, logs as an error with error details.
func LogStageEnd(ctx ExecutionContext, rowCount, columnCount int, duration time.Duration, err *ExecutionError) {
	attrs := buildContextAttrs(ctx)
	attrs = append(attrs,
		slog.Int("row_count", rowCount),
		slog.Int("column_count", columnCount),
		slog.Duration("duration", duration),
	)

	if err != nil {
		attrs = append(attrs,
			slog.String("error_code", err.Code),
			slog.String("error", err.Message),
		)
		Logger.Error("stage failed", attrs...)
		return
	}
	Logger.Info("stage completed", attrs...)
}

// LogMetrics logs execution performance metrics.
func LogMetrics(ctx ExecutionContext, metrics ExecutionMetrics) {
	attrs := buildContextAttrs(ctx)
	attrs = append(attrs,
		slog.Duration("total_duration", metrics.TotalDuration),
		slog.Duration("input_duration", metrics.InputDuration),
		slog.Duration("stage_duration", metrics.StageDuration),
		slog.Duration("output_duration", metrics.OutputDuration),
		slog.Int("rows_loaded", metrics.RowsLoaded),
		slog.Int("rows_written", metrics.RowsWritten),
		slog.Int("columns_written", metrics.ColumnsWritten),
		slog.Float64("rows_per_second", metrics.RowsPerSecond),
	)
	Logger.Info("execution metrics", attrs...)
}

// LogError logs an error with full execution context.
func LogError(message string, errCtx ErrorContext) {
	attrs := make([]any, 0, 16)

	if errCtx.RunID != "" {
		attrs = append(attrs, slog.String("run_id", errCtx.RunID))
	}
	if errCtx.Dataset != "" {
		attrs = append(attrs, slog.String("dataset", errCtx.Dataset))
	}
	if errCtx.Stage != "" {
		attrs = append(attrs, slog.String("stage", errCtx.Stage))
	}
	if errCtx.StageType != "" {
		attrs = append(attrs, slog.String("stage_type", errCtx.StageType))
	}
	if errCtx.StageIndex >= 0 {
		attrs = append(attrs, slog.Int("stage_index", errCtx.StageIndex))
	}
	if errCtx.ErrorCode != "" {
		attrs = append(attrs, slog.String("error_code", errCtx.ErrorCode))
	}
	if errCtx.ErrorMessage != "" {
		attrs = append(attrs, slog.String("error", errCtx.ErrorMessage))
	}
	if errCtx.Err != nil {
		attrs = append(attrs, slog.String("error_type", fmt.Sprintf("%T", errCtx.Err)))

		errorChain := []string{errCtx.Err.Error()}
		for current := errors.Unwrap(errCtx.Err); current != nil; current = errors.Unwrap(current) {
			errorChain = append(errorChain, current.Error())
		}
		if len(errorChain) > 1 {
			attrs = append(attrs, slog.String("error_chain", strings.Join(errorChain, " -> ")))
		}
	}
	if errCtx.RowCount > 0 {
		attrs = append(attrs, slog.Int("row_count", errCtx.RowCount))
	}
	if errCtx.Path != "" {
		attrs = append(attrs, slog.String("path", errCtx.Path))
	}
	if errCtx.Duration > 0 {
		attrs = append(attrs, slog.Duration("duration", errCtx.Duration))
	}
	for k, v := range errCtx.Extra {
		attrs = append(attrs, slog.Any(k, v))
	}

	Logger.Error(message, attrs...)
}

// buildContextAttrs builds a slice of slog attributes from an ExecutionContext.
// Only non-empty fields are included.
func buildContextAttrs(ctx ExecutionContext) []any {
	attrs := make([]any, 0, 12)

	attrs = append(attrs, slog.String("run_id", ctx.RunID))

	if ctx.Dataset != "" {
		attrs = append(attrs, slog.String("dataset", ctx.Dataset))
	}
	if ctx.Stage != "" {
		attrs = append(attrs, slog.String("stage", ctx.Stage))
	}
	if ctx.StageType != "" {
		attrs = append(attrs, slog.String("stage_type", ctx.StageType))
	}
	if ctx.StageIndex >= 0 {
		attrs = append(attrs, slog.Int("stage_index", ctx.StageIndex))
	}
	if ctx.DryRun {
		attrs = append(attrs, slog.Bool("dry_run", true))
	}

	return attrs
}
