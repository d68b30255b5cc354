package registry

import (
	"fmt"

	"github.com/mendelsonD/CognitiveSubtypes/internal/catalog"
	"github.com/mendelsonD/CognitiveSubtypes/internal/errhandling"
	"github.com/mendelsonD/CognitiveSubtypes/internal/modules/filter"
	"github.com/mendelsonD/CognitiveSubtypes/internal/modules/input"
	"github.com/mendelsonD/CognitiveSubtypes/internal/modules/output"
	"github.com/mendelsonD/CognitiveSubtypes/pkg/cohort"
)

func init() {
	RegisterBuiltins()
}

// RegisterBuiltins registers every built-in module type. It is called at
// startup and may be called again after ClearRegistries.
func RegisterBuiltins() {
	registerBuiltinInputModules()
	registerBuiltinFilterModules()
	registerBuiltinOutputModules()
}

// registerBuiltinInputModules registers all built-in input module types.
func registerBuiltinInputModules() {
	// csv - delimited raw extract
	RegisterInput("csv", func(cfg *cohort.ModuleConfig, cat *catalog.Catalog) (input.Module, error) {
		return input.NewCSVFromConfig(cfg, cat)
	})
}

// invalidStage wraps a stage configuration error with its position.
func invalidStage(stageType string, index int, err error) error {
	return errhandling.NewConfigurationError(fmt.Sprintf("invalid %s config at index %d", stageType, index), err)
}

// registerBuiltinFilterModules registers all built-in stage module types.
func registerBuiltinFilterModules() {
	// binaryFlags - pattern flags over one variable's columns
	RegisterFilter("binaryFlags", func(cfg cohort.ModuleConfig, index int, cat *catalog.Catalog) (filter.Module, error) {
		parsed, err := filter.ParseBinaryFlagsConfig(cfg.Config)
		if err != nil {
			return nil, invalidStage(cfg.Type, index, err)
		}
		return filter.NewBinaryFlagsFromConfig(parsed, cat)
	})

	// diagnosisFlags - selected diagnosis flags with the first-absent stop rule
	RegisterFilter("diagnosisFlags", func(_ cohort.ModuleConfig, _ int, cat *catalog.Catalog) (filter.Module, error) {
		return filter.NewDiagnosisFlagsFromConfig(cat)
	})

	// inclusion - keep subjects matching the included flags (AND / OR)
	RegisterFilter("inclusion", func(cfg cohort.ModuleConfig, _ int, cat *catalog.Catalog) (filter.Module, error) {
		parsed, err := filter.ParseInclusionConfig(cfg.Config)
		if err != nil {
			return nil, err
		}
		return filter.NewInclusionFromConfig(parsed, cat)
	})

	// exclusion - drop subjects carrying any excluded flag
	RegisterFilter("exclusion", func(_ cohort.ModuleConfig, _ int, cat *catalog.Catalog) (filter.Module, error) {
		return filter.NewExclusionFromConfig(cat)
	})

	// clean - drop columns by name prefix
	RegisterFilter("clean", func(cfg cohort.ModuleConfig, index int, _ *catalog.Catalog) (filter.Module, error) {
		parsed, err := filter.ParseCleanConfig(cfg.Config)
		if err != nil {
			return nil, invalidStage(cfg.Type, index, err)
		}
		return filter.NewCleanFromConfig(parsed)
	})

	// recode - replace raw values with coded labels
	RegisterFilter("recode", func(cfg cohort.ModuleConfig, index int, cat *catalog.Catalog) (filter.Module, error) {
		parsed, err := filter.ParseRecodeConfig(cfg.Config)
		if err != nil {
			return nil, invalidStage(cfg.Type, index, err)
		}
		return filter.NewRecodeFromConfig(parsed, cat)
	})
}

// registerBuiltinOutputModules registers all built-in output module types.
func registerBuiltinOutputModules() {
	// csv - delimited dataset file
	RegisterOutput("csv", func(cfg *cohort.ModuleConfig) (output.Module, error) {
		return output.NewCSVFromConfig(cfg)
	})

	// database - one SQL table (sqlite, postgres, mysql)
	RegisterOutput("database", func(cfg *cohort.ModuleConfig) (output.Module, error) {
		return output.NewDatabaseFromConfig(cfg)
	})
}
