package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mendelsonD/CognitiveSubtypes/internal/errhandling"
	"github.com/mendelsonD/CognitiveSubtypes/pkg/cohort"
)

// ErrInvalidConfig is returned by Load when the file fails to parse or validate.
var ErrInvalidConfig = errors.New("invalid dataset configuration")

// Load parses, validates and converts a dataset configuration file.
// On parse or validation failure the returned Result carries the details and
// the error wraps ErrInvalidConfig.
func Load(path string) (*cohort.Dataset, *Result, error) {
	result := ParseConfig(path)
	if !result.IsValid() {
		return nil, result, errhandling.NewConfigurationError(
			fmt.Sprintf("%s: %d error(s)", path, len(result.AllErrors())),
			ErrInvalidConfig,
		)
	}

	baseDir := filepath.Dir(path)
	if abs, err := filepath.Abs(baseDir); err == nil {
		baseDir = abs
	}

	ds, err := ConvertToDataset(result.Data, baseDir)
	if err != nil {
		return nil, result, errhandling.NewConfigurationError("converting dataset configuration", err)
	}
	return ds, result, nil
}
