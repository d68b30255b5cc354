// Package factory provides module creation functions for the dataset runtime.
// It centralizes the logic for instantiating input, stage, and output modules
// from their configuration using the module registry.
//
// # Module Creation
//
// The factory uses the registry package to look up module constructors by
// type. Unknown types are invalid arguments: a dataset build never runs with
// a stage it cannot honor.
//
// # Adding New Module Types
//
// To add a new module type, see the documentation in internal/registry.
// You do NOT need to modify this factory; just register your constructor.
package factory

import (
	"errors"
	"fmt"
	"time"

	"github.com/mendelsonD/CognitiveSubtypes/internal/catalog"
	"github.com/mendelsonD/CognitiveSubtypes/internal/errhandling"
	"github.com/mendelsonD/CognitiveSubtypes/internal/modules/filter"
	"github.com/mendelsonD/CognitiveSubtypes/internal/modules/input"
	"github.com/mendelsonD/CognitiveSubtypes/internal/modules/output"
	"github.com/mendelsonD/CognitiveSubtypes/internal/registry"
	"github.com/mendelsonD/CognitiveSubtypes/internal/template"
	"github.com/mendelsonD/CognitiveSubtypes/pkg/cohort"
)

// ErrUnknownModuleType is returned for a module type with no registered constructor.
var ErrUnknownModuleType = errors.New("unknown module type")

// Modules holds every module of one dataset build, in execution order.
type Modules struct {
	Input  input.Module
	Stages []filter.Module
	Output output.Module
}

// Build compiles the dataset's catalog and creates all of its modules.
// Template variables in the output path are expanded in place first.
func Build(ds *cohort.Dataset) (*catalog.Catalog, *Modules, error) {
	cat, err := catalog.New(ds)
	if err != nil {
		return nil, nil, err
	}
	if err := ExpandOutputPath(ds, time.Now()); err != nil {
		return nil, nil, err
	}

	in, err := CreateInputModule(ds.Input, cat)
	if err != nil {
		return nil, nil, err
	}
	stages, err := CreateFilterModules(ds.Stages, cat)
	if err != nil {
		return nil, nil, err
	}
	out, err := CreateOutputModule(ds.Output)
	if err != nil {
		return nil, nil, err
	}

	return cat, &Modules{Input: in, Stages: stages, Output: out}, nil
}

// CreateInputModule creates an input module instance from configuration.
// Uses the registry to look up the constructor by type.
func CreateInputModule(cfg *cohort.ModuleConfig, cat *catalog.Catalog) (input.Module, error) {
	if cfg == nil {
		return nil, errhandling.NewConfigurationError("input module is not configured", nil)
	}

	constructor := registry.GetInputConstructor(cfg.Type)
	if constructor == nil {
		return nil, errhandling.NewInvalidArgumentError(fmt.Sprintf("input type %q", cfg.Type), ErrUnknownModuleType)
	}
	return constructor(cfg, cat)
}

// CreateFilterModules creates stage module instances from configuration, in order.
func CreateFilterModules(cfgs []cohort.ModuleConfig, cat *catalog.Catalog) ([]filter.Module, error) {
	if len(cfgs) == 0 {
		return nil, nil
	}

	modules := make([]filter.Module, 0, len(cfgs))
	for i, cfg := range cfgs {
		constructor := registry.GetFilterConstructor(cfg.Type)
		if constructor == nil {
			return nil, errhandling.NewInvalidArgumentError(
				fmt.Sprintf("stage type %q at index %d", cfg.Type, i), ErrUnknownModuleType)
		}
		module, err := constructor(cfg, i, cat)
		if err != nil {
			return nil, err
		}
		modules = append(modules, module)
	}
	return modules, nil
}

// CreateOutputModule creates an output module instance from configuration.
// Uses the registry to look up the constructor by type.
func CreateOutputModule(cfg *cohort.ModuleConfig) (output.Module, error) {
	if cfg == nil {
		return nil, errhandling.NewConfigurationError("output module is not configured", nil)
	}

	constructor := registry.GetOutputConstructor(cfg.Type)
	if constructor == nil {
		return nil, errhandling.NewInvalidArgumentError(fmt.Sprintf("output type %q", cfg.Type), ErrUnknownModuleType)
	}
	return constructor(cfg)
}

// ExpandOutputPath expands template variables such as {{dataset.version}}
// and {{date}} in the output module's path.
func ExpandOutputPath(ds *cohort.Dataset, now time.Time) error {
	if ds.Output == nil {
		return nil
	}
	path, ok := ds.Output.Config["path"].(string)
	if !ok || !template.HasVariables(path) {
		return nil
	}
	expanded, err := template.Expand(path, template.DatasetVariables(ds, now))
	if err != nil {
		return errhandling.NewConfigurationError("output path", err)
	}
	ds.Output.Config["path"] = expanded
	return nil
}
