// Package registry provides module registries for input, stage, and output modules.
//
// # Overview
//
// Modules register their constructors by type string instead of being
// selected by hard-coded switch statements. The dataset configuration names
// module types; the factory looks them up here.
//
// # Adding a New Module
//
// To add a new module type (e.g., a "parquet" input module):
//
//  1. Implement the appropriate interface (input.Module, filter.Module, or output.Module)
//  2. Create a constructor function matching the registry signature
//  3. Register the constructor in an init() function
//
// Example for a new input module:
//
//	func init() {
//	    registry.RegisterInput("parquet", func(cfg *cohort.ModuleConfig, cat *catalog.Catalog) (input.Module, error) {
//	        return parquet.NewFromConfig(cfg, cat)
//	    })
//	}
//
// # Built-in Modules
//
// The csv input, the six transformation stages (binaryFlags,
// diagnosisFlags, inclusion, exclusion, clean, recode) and the csv output
// are registered at startup by RegisterBuiltins.
//
// Unknown types are not resolved to anything; the factory reports them as
// invalid arguments.
package registry

import (
	"sort"
	"sync"

	"github.com/mendelsonD/CognitiveSubtypes/internal/catalog"
	"github.com/mendelsonD/CognitiveSubtypes/internal/modules/filter"
	"github.com/mendelsonD/CognitiveSubtypes/internal/modules/input"
	"github.com/mendelsonD/CognitiveSubtypes/internal/modules/output"
	"github.com/mendelsonD/CognitiveSubtypes/pkg/cohort"
)

// InputConstructor is a function that creates an input module from configuration.
// The constructor receives the full ModuleConfig and the compiled catalog,
// whose column mapping decides which raw columns are read.
type InputConstructor func(cfg *cohort.ModuleConfig, cat *catalog.Catalog) (input.Module, error)

// FilterConstructor is a function that creates a stage module from configuration.
// The constructor receives the ModuleConfig, the stage's index in the dataset
// and the compiled catalog.
// Returns an error if the configuration is invalid.
type FilterConstructor func(cfg cohort.ModuleConfig, index int, cat *catalog.Catalog) (filter.Module, error)

// OutputConstructor is a function that creates an output module from configuration.
// The constructor receives the full ModuleConfig and returns an output.Module.
// Returns an error if the configuration is invalid.
type OutputConstructor func(cfg *cohort.ModuleConfig) (output.Module, error)

// inputRegistry holds registered input module constructors.
var (
	inputMu       sync.RWMutex
	inputRegistry = make(map[string]InputConstructor)
)

// filterRegistry holds registered stage module constructors.
var (
	filterMu       sync.RWMutex
	filterRegistry = make(map[string]FilterConstructor)
)

// outputRegistry holds registered output module constructors.
var (
	outputMu       sync.RWMutex
	outputRegistry = make(map[string]OutputConstructor)
)

// RegisterInput registers an input module constructor by type string.
// Calling RegisterInput with an already registered type will overwrite
// the previous constructor.
//
// This function is safe for concurrent use and is typically called from
// init() functions in module packages.
//
// Example:
//
//	func init() {
//	    registry.RegisterInput("csv", newCSVInput)
//	}
func RegisterInput(moduleType string, constructor InputConstructor) {
	inputMu.Lock()
	defer inputMu.Unlock()
	inputRegistry[moduleType] = constructor
}

// RegisterFilter registers a stage module constructor by type string.
// Calling RegisterFilter with an already registered type will overwrite
// the previous constructor.
//
// This function is safe for concurrent use and is typically called from
// init() functions in module packages.
//
// Example:
//
//	func init() {
//	    registry.RegisterFilter("recode", newRecode)
//	}
func RegisterFilter(moduleType string, constructor FilterConstructor) {
	filterMu.Lock()
	defer filterMu.Unlock()
	filterRegistry[moduleType] = constructor
}

// RegisterOutput registers an output module constructor by type string.
// Calling RegisterOutput with an already registered type will overwrite
// the previous constructor.
//
// This function is safe for concurrent use and is typically called from
// init() functions in module packages.
//
// Example:
//
//	func init() {
//	    registry.RegisterOutput("csv", newCSVOutput)
//	}
func RegisterOutput(moduleType string, constructor OutputConstructor) {
	outputMu.Lock()
	defer outputMu.Unlock()
	outputRegistry[moduleType] = constructor
}

// GetInputConstructor returns the registered constructor for an input module type.
// Returns nil if no constructor is registered for the given type.
func GetInputConstructor(moduleType string) InputConstructor {
	inputMu.RLock()
	defer inputMu.RUnlock()
	return inputRegistry[moduleType]
}

// GetFilterConstructor returns the registered constructor for a stage module type.
// Returns nil if no constructor is registered for the given type.
func GetFilterConstructor(moduleType string) FilterConstructor {
	filterMu.RLock()
	defer filterMu.RUnlock()
	return filterRegistry[moduleType]
}

// GetOutputConstructor returns the registered constructor for an output module type.
// Returns nil if no constructor is registered for the given type.
func GetOutputConstructor(moduleType string) OutputConstructor {
	outputMu.RLock()
	defer outputMu.RUnlock()
	return outputRegistry[moduleType]
}

// ListInputTypes returns all registered input module type names in ascending order.
func ListInputTypes() []string {
	inputMu.RLock()
	defer inputMu.RUnlock()
	types := make([]string, 0, len(inputRegistry))
	for t := range inputRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ListFilterTypes returns all registered stage module type names in ascending order.
func ListFilterTypes() []string {
	filterMu.RLock()
	defer filterMu.RUnlock()
	types := make([]string, 0, len(filterRegistry))
	for t := range filterRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ListOutputTypes returns all registered output module type names in ascending order.
func ListOutputTypes() []string {
	outputMu.RLock()
	defer outputMu.RUnlock()
	types := make([]string, 0, len(outputRegistry))
	for t := range outputRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ClearRegistries removes all registered constructors.
// This is intended for testing purposes only.
func ClearRegistries() {
	inputMu.Lock()
	inputRegistry = make(map[string]InputConstructor)
	inputMu.Unlock()

	filterMu.Lock()
	filterRegistry = make(map[string]FilterConstructor)
	filterMu.Unlock()

	outputMu.Lock()
	outputRegistry = make(map[string]OutputConstructor)
	outputMu.Unlock()
}
