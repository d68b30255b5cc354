// Package runtime provides the dataset build engine.
// It orchestrates the execution of Input, Stage, and Output modules.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mendelsonD/CognitiveSubtypes/internal/errhandling"
	"github.com/mendelsonD/CognitiveSubtypes/internal/logger"
	"github.com/mendelsonD/CognitiveSubtypes/internal/modules/filter"
	"github.com/mendelsonD/CognitiveSubtypes/internal/modules/input"
	"github.com/mendelsonD/CognitiveSubtypes/internal/modules/output"
	"github.com/mendelsonD/CognitiveSubtypes/internal/table"
	"github.com/mendelsonD/CognitiveSubtypes/pkg/cohort"
)

// Error codes for build execution errors
const (
	ErrCodeInputFailed  = "INPUT_FAILED"
	ErrCodeStageFailed  = "STAGE_FAILED"
	ErrCodeOutputFailed = "OUTPUT_FAILED"
	ErrCodeInvalidInput = "INVALID_INPUT"
)

// Execution status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Common errors
var (
	// ErrNilDataset is returned when the dataset configuration is nil
	ErrNilDataset = errors.New("dataset configuration is nil")

	// ErrNilInputModule is returned when input module is nil
	ErrNilInputModule = errors.New("input module is nil")

	// ErrNilOutputModule is returned when output module is nil
	ErrNilOutputModule = errors.New("output module is nil")

	// ErrStageMismatch is returned when the stage modules do not match the configured stages
	ErrStageMismatch = errors.New("stage modules do not match configured stages")
)

// Executor is responsible for executing dataset builds.
// It orchestrates the execution flow: Input → Stages → Output.
//
// The Executor only interacts with modules through their public interfaces.
// Stages run strictly one after another on a single table; an Executor must
// not run two builds at once.
type Executor struct {
	inputModule  input.Module
	stageModules []filter.Module
	outputModule output.Module
	dryRun       bool
}

// NewExecutorWithModules creates a new executor with all modules configured.
//
// Parameters:
//   - inputModule: The input module that loads the record table
//   - stageModules: Stage modules, one per configured stage, in order (can be nil)
//   - outputModule: The output module that writes the table
//   - dryRun: If true, skips output module execution
func NewExecutorWithModules(
	inputModule input.Module,
	stageModules []filter.Module,
	outputModule output.Module,
	dryRun bool,
) *Executor {
	return &Executor{
		inputModule:  inputModule,
		stageModules: stageModules,
		outputModule: outputModule,
		dryRun:       dryRun,
	}
}

// stageTimings holds timing measurements for each execution phase
type stageTimings struct {
	inputDuration  time.Duration
	stageDuration  time.Duration
	outputDuration time.Duration
}

// Execute runs a dataset build with the given context.
//
// Execution flow:
//  1. Validate the dataset and modules
//  2. Execute the Input module to load the record table
//  3. Execute the Stage modules in sequence
//  4. Execute the Output module (unless dry-run mode)
//  5. Return ExecutionResult with status, counts and per-stage results
//
// Any failure aborts the build; there is no partial success. The input
// module is closed as soon as the table is loaded, the output module when
// the build ends.
func (e *Executor) Execute(ctx context.Context, ds *cohort.Dataset) (*cohort.ExecutionResult, error) {
	startedAt := time.Now()
	result := &cohort.ExecutionResult{
		RunID:     uuid.NewString(),
		StartedAt: startedAt,
		Status:    StatusError,
	}

	if err := e.validateExecution(ds, result); err != nil {
		return result, err
	}
	result.DatasetID = ds.ID

	execCtx := logger.ExecutionContext{
		RunID:      result.RunID,
		Dataset:    ds.Name,
		StageIndex: -1,
		DryRun:     e.dryRun,
	}
	logger.LogExecutionStart(execCtx)
	var timings stageTimings

	if e.outputModule != nil {
		defer e.closeModule(execCtx, "output", e.outputModule)
	}

	t, inputDuration, err := e.executeInput(ctx, execCtx, result)
	timings.inputDuration = inputDuration
	e.closeModule(execCtx, "input", e.inputModule)
	if err != nil {
		logger.LogExecutionEnd(execCtx, StatusError, 0, time.Since(startedAt))
		return result, err
	}
	result.RowsLoaded = t.Len()

	stageStart := time.Now()
	if err := e.executeStages(ctx, execCtx, ds, t, result); err != nil {
		logger.LogExecutionEnd(execCtx, StatusError, t.Len(), time.Since(startedAt))
		return result, err
	}
	timings.stageDuration = time.Since(stageStart)

	outputDuration, err := e.executeOutput(ctx, execCtx, t, result)
	timings.outputDuration = outputDuration
	if err != nil {
		logger.LogExecutionEnd(execCtx, StatusError, t.Len(), time.Since(startedAt))
		return result, err
	}

	result.Columns = t.Columns()
	e.finalizeSuccessWithMetrics(result, startedAt, execCtx, timings)
	return result, nil
}

// validateExecution validates the dataset and modules before execution.
func (e *Executor) validateExecution(ds *cohort.Dataset, result *cohort.ExecutionResult) error {
	fail := func(module string, err error) error {
		logger.WithRun(result.RunID).Error("dataset build failed", slog.String("error", err.Error()))
		result.CompletedAt = time.Now()
		result.Error = buildExecutionError(ErrCodeInvalidInput, module, err)
		return err
	}

	switch {
	case ds == nil:
		return fail("", ErrNilDataset)
	case e.inputModule == nil:
		return fail("input", ErrNilInputModule)
	case e.outputModule == nil && !e.dryRun:
		return fail("output", ErrNilOutputModule)
	case len(e.stageModules) != len(ds.Stages):
		return fail("stage", errhandling.NewInvalidArgumentError(
			fmt.Sprintf("%d modules for %d stages", len(e.stageModules), len(ds.Stages)), ErrStageMismatch))
	}
	return nil
}

// buildExecutionError creates an ExecutionError with classified category.
func buildExecutionError(code, module string, err error) *cohort.ExecutionError {
	return &cohort.ExecutionError{
		Code:          code,
		Message:       err.Error(),
		Module:        module,
		ErrorCategory: string(ClassifyError(err).Category),
	}
}

// moduleCloser interface for modules that can be closed.
type moduleCloser interface {
	Close() error
}

// closeModule closes a module and logs any error.
func (e *Executor) closeModule(execCtx logger.ExecutionContext, moduleName string, m moduleCloser) {
	if err := m.Close(); err != nil {
		logger.WithExecution(execCtx).Warn("failed to close module",
			slog.String("module", moduleName),
			slog.String("error", err.Error()),
		)
	}
}

// executeInput executes the input module and returns the table and duration.
func (e *Executor) executeInput(ctx context.Context, execCtx logger.ExecutionContext, result *cohort.ExecutionResult) (*table.Table, time.Duration, error) {
	stageCtx := execCtx
	stageCtx.Stage = "input"
	logger.LogStageStart(stageCtx)

	start := time.Now()
	t, err := e.inputModule.Load(ctx)
	duration := time.Since(start)

	if err != nil {
		result.CompletedAt = time.Now()
		result.Error = buildExecutionError(ErrCodeInputFailed, "input", err)
		logger.LogStageEnd(stageCtx, 0, 0, duration, &logger.ExecutionError{
			Code:    ErrCodeInputFailed,
			Message: err.Error(),
		})
		return nil, duration, fmt.Errorf("executing input module: %w", err)
	}

	logger.LogStageEnd(stageCtx, t.Len(), len(t.Columns()), duration, nil)
	return t, duration, nil
}

// executeStages runs every stage module in order on the table.
func (e *Executor) executeStages(ctx context.Context, execCtx logger.ExecutionContext, ds *cohort.Dataset, t *table.Table, result *cohort.ExecutionResult) error {
	for i, stage := range e.stageModules {
		stageType := ds.Stages[i].Type
		stageCtx := execCtx
		stageCtx.Stage = "stage"
		stageCtx.StageType = stageType
		stageCtx.StageIndex = i
		logger.LogStageStart(stageCtx)

		sr := cohort.StageResult{
			Index:         i,
			Type:          stageType,
			RowsBefore:    t.Len(),
			ColumnsBefore: len(t.Columns()),
		}

		start := time.Now()
		err := stage.Process(ctx, t)
		sr.Duration = time.Since(start)
		sr.RowsAfter = t.Len()
		sr.ColumnsAfter = len(t.Columns())

		if err != nil {
			msg := fmt.Sprintf("stage %d (%s) failed: %v", i, stageType, err)
			result.CompletedAt = time.Now()
			result.Error = buildExecutionError(ErrCodeStageFailed, stageType, err)
			result.Error.Message = msg
			result.Error.Details = map[string]interface{}{"stageIndex": i, "stageType": stageType}
			logger.LogStageEnd(stageCtx, sr.RowsBefore, sr.ColumnsBefore, sr.Duration, &logger.ExecutionError{
				Code:    ErrCodeStageFailed,
				Message: msg,
			})
			return fmt.Errorf("executing stage %d (%s): %w", i, stageType, err)
		}

		result.Stages = append(result.Stages, sr)
		if removed := sr.RowsBefore - sr.RowsAfter; removed > 0 {
			logger.WithExecution(stageCtx).Info("subjects removed",
				slog.Int("rows_removed", removed),
				slog.Int("rows_remaining", sr.RowsAfter),
			)
		}
		logger.LogStageEnd(stageCtx, sr.RowsAfter, sr.ColumnsAfter, sr.Duration, nil)
	}
	return nil
}

// executeOutput runs the output module on the table.
// In dry-run mode the table is not written and every row counts as written.
func (e *Executor) executeOutput(ctx context.Context, execCtx logger.ExecutionContext, t *table.Table, result *cohort.ExecutionResult) (time.Duration, error) {
	if e.dryRun {
		logger.WithExecution(execCtx).Debug("dry-run mode: skipping output module",
			slog.Int("rows_would_write", t.Len()),
		)
		result.RowsWritten = t.Len()
		return 0, nil
	}

	stageCtx := execCtx
	stageCtx.Stage = "output"
	logger.LogStageStart(stageCtx)

	start := time.Now()
	written, err := e.outputModule.Write(ctx, t)
	duration := time.Since(start)

	if err != nil {
		result.CompletedAt = time.Now()
		result.Error = buildExecutionError(ErrCodeOutputFailed, "output", err)
		logger.LogStageEnd(stageCtx, t.Len(), len(t.Columns()), duration, &logger.ExecutionError{
			Code:    ErrCodeOutputFailed,
			Message: err.Error(),
		})
		return duration, fmt.Errorf("executing output module: %w", err)
	}

	logger.LogStageEnd(stageCtx, written, len(t.Columns()), duration, nil)
	result.RowsWritten = written
	return duration, nil
}

// finalizeSuccessWithMetrics marks the execution as successful and logs completion with detailed metrics.
func (e *Executor) finalizeSuccessWithMetrics(result *cohort.ExecutionResult, startedAt time.Time, execCtx logger.ExecutionContext, timings stageTimings) {
	result.Status = StatusSuccess
	result.CompletedAt = time.Now()
	result.Error = nil

	totalDuration := time.Since(startedAt)
	var rowsPerSecond float64
	if result.RowsLoaded > 0 && totalDuration > 0 {
		rowsPerSecond = float64(result.RowsLoaded) / totalDuration.Seconds()
	}

	metrics := logger.ExecutionMetrics{
		TotalDuration:  totalDuration,
		InputDuration:  timings.inputDuration,
		StageDuration:  timings.stageDuration,
		OutputDuration: timings.outputDuration,
		RowsLoaded:     result.RowsLoaded,
		RowsWritten:    result.RowsWritten,
		ColumnsWritten: len(result.Columns),
		RowsPerSecond:  rowsPerSecond,
	}

	logger.LogExecutionEnd(execCtx, StatusSuccess, result.RowsWritten, totalDuration)
	logger.LogMetrics(execCtx, metrics)
}
