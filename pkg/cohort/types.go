// Package cohort provides public types for dataset build configurations.
// This package is intended to be importable by external projects that need
// to describe or inspect a cohort dataset build.
package cohort

import "time"

// DefaultIdentifier is the subject identifier column used when a dataset
// does not name one.
const DefaultIdentifier = "eid"

// DefaultDiagnosisPrefix is the variable name whose columns hold raw
// diagnosis codes.
const DefaultDiagnosisPrefix = "diagnoses"

// Dataset represents a complete dataset build configuration.
// It contains the field catalog, the diagnosis pattern dictionaries and the
// modules (Input, Stages, Output) that turn a raw extract into an
// analysis-ready table.
type Dataset struct {
	// ID is the unique identifier for this dataset build
	ID string `json:"id"`

	// Name is the human-readable name of the dataset
	Name string `json:"name"`

	// Description provides additional context about the dataset
	Description string `json:"description,omitempty"`

	// Version is the dataset configuration version
	Version string `json:"version"`

	// Identifier is the subject identifier column name
	Identifier string `json:"identifier"`

	// Variables is the field catalog in iteration order
	Variables []Variable `json:"variables"`

	// Diagnoses holds the diagnosis pattern dictionaries
	Diagnoses DiagnosisPatterns `json:"diagnoses"`

	// Input defines the raw extract reader
	Input *ModuleConfig `json:"input"`

	// Stages is the ordered list of transformation stages
	Stages []ModuleConfig `json:"stages,omitempty"`

	// Output defines the table writer
	Output *ModuleConfig `json:"output"`

	// BaseDir is the directory relative input and output paths resolve against
	BaseDir string `json:"-"`

	// LoadedAt is when the configuration was converted
	LoadedAt time.Time `json:"loadedAt,omitempty"`
}

// Variable is one field catalog entry.
type Variable struct {
	// Name is the logical variable name, also the recoded column stem
	Name string `json:"name"`

	// Included reports whether the variable is read from the raw extract
	Included bool `json:"included"`

	// DataField is the raw field id
	DataField int `json:"dataField"`

	// InstanceNum is the raw instance (assessment visit) number
	InstanceNum int `json:"instanceNum"`

	// ArrayRange lists the raw array indices, in order
	ArrayRange []int `json:"arrayRange"`

	// Coding maps raw values to recoded values
	Coding map[string]string `json:"coding,omitempty"`
}

// DiagnosisPatterns holds the three diagnosis pattern dictionaries.
// Each dictionary maps a flag name to a regular expression.
type DiagnosisPatterns struct {
	// Prefix is the variable whose columns are scanned for diagnosis codes
	Prefix string `json:"prefix"`

	// Selected lists every diagnosis flag to derive
	Selected map[string]string `json:"selected"`

	// Included lists the flags used by the inclusion criteria
	Included map[string]string `json:"included,omitempty"`

	// Excluded lists the flags that disqualify a subject
	Excluded map[string]string `json:"excluded,omitempty"`
}

// ModuleConfig represents the configuration for a dataset module.
// Modules can be Input, Stage, or Output types.
type ModuleConfig struct {
	// Type identifies the module type (e.g., "csv", "binaryFlags", "recode")
	Type string `json:"type"`

	// Config contains the module-specific configuration
	Config map[string]interface{} `json:"config"`
}

// ExecutionResult represents the result of a dataset build.
type ExecutionResult struct {
	// RunID uniquely identifies this execution
	RunID string `json:"runId"`

	// DatasetID is the ID of the built dataset
	DatasetID string `json:"datasetId"`

	// Status is the execution status ("success", "error")
	Status string `json:"status"`

	// StartedAt is when execution started
	StartedAt time.Time `json:"startedAt"`

	// CompletedAt is when execution completed
	CompletedAt time.Time `json:"completedAt"`

	// RowsLoaded is the number of subjects read from the raw extract
	RowsLoaded int `json:"rowsLoaded"`

	// RowsWritten is the number of subjects in the final table
	RowsWritten int `json:"rowsWritten"`

	// Columns is the final column list
	Columns []string `json:"columns,omitempty"`

	// Stages holds one entry per executed stage
	Stages []StageResult `json:"stages,omitempty"`

	// Error contains error details if execution failed
	Error *ExecutionError `json:"error,omitempty"`
}

// StageResult summarizes the effect of one stage on the table.
type StageResult struct {
	Index         int           `json:"index"`
	Type          string        `json:"type"`
	RowsBefore    int           `json:"rowsBefore"`
	RowsAfter     int           `json:"rowsAfter"`
	ColumnsBefore int           `json:"columnsBefore"`
	ColumnsAfter  int           `json:"columnsAfter"`
	Duration      time.Duration `json:"duration"`
}

// ExecutionError contains details about an execution failure.
type ExecutionError struct {
	// Code is the error code
	Code string `json:"code"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Module is the module where the error occurred
	Module string `json:"module,omitempty"`

	// ErrorCategory is the classified category (configuration, integrity, ...)
	ErrorCategory string `json:"errorCategory,omitempty"`

	// Details contains additional error context
	Details map[string]interface{} `json:"details,omitempty"`
}
