package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/carbocation/genomisc"

	"github.com/mendelsonD/CognitiveSubtypes/pkg/cohort"
)

// ConvertToDataset converts parsed configuration data to a Dataset struct.
// The input data should have been validated against the schema before calling
// this function. Relative input and output paths are resolved against baseDir.
//
// The configuration is expected to have this structure:
//
//	{
//	  "schemaVersion": "1.0.0",
//	  "dataset": {
//	    "name": "...",
//	    "version": "...",
//	    "input": {...},
//	    "variables": [...],
//	    "diagnoses": {...},
//	    "stages": [...],
//	    "output": {...}
//	  }
//	}
func ConvertToDataset(data map[string]interface{}, baseDir string) (*cohort.Dataset, error) {
	if data == nil {
		return nil, fmt.Errorf("configuration data is nil")
	}

	datasetData, ok := data["dataset"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'dataset' section")
	}

	ds := &cohort.Dataset{
		Identifier: cohort.DefaultIdentifier,
		BaseDir:    baseDir,
		LoadedAt:   time.Now(),
	}

	var name string
	if name, ok = datasetData["name"].(string); !ok {
		return nil, fmt.Errorf("missing required field 'dataset.name'")
	}
	ds.Name = name
	ds.ID = name

	var version string
	if version, ok = datasetData["version"].(string); !ok {
		return nil, fmt.Errorf("missing required field 'dataset.version'")
	}
	ds.Version = version

	if description, okDesc := datasetData["description"].(string); okDesc {
		ds.Description = description
	}
	if id, okID := datasetData["id"].(string); okID {
		ds.ID = id
	}
	if identifier, okIdent := datasetData["identifier"].(string); okIdent {
		ds.Identifier = identifier
	}

	inputData, ok := datasetData["input"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'dataset.input' section")
	}
	input, err := convertModuleConfig(inputData, baseDir)
	if err != nil {
		return nil, fmt.Errorf("invalid input config: %w", err)
	}
	ds.Input = input

	outputData, ok := datasetData["output"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'dataset.output' section")
	}
	output, err := convertModuleConfig(outputData, baseDir)
	if err != nil {
		return nil, fmt.Errorf("invalid output config: %w", err)
	}
	ds.Output = output

	variablesData, ok := datasetData["variables"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'dataset.variables' section")
	}
	for i, item := range variablesData {
		varMap, isMap := item.(map[string]interface{})
		if !isMap {
			return nil, fmt.Errorf("invalid variable at index %d", i)
		}
		v, convertErr := convertVariable(varMap)
		if convertErr != nil {
			return nil, fmt.Errorf("invalid variable at index %d: %w", i, convertErr)
		}
		ds.Variables = append(ds.Variables, v)
	}

	ds.Diagnoses = cohort.DiagnosisPatterns{Prefix: cohort.DefaultDiagnosisPrefix}
	if diagData, okDiag := datasetData["diagnoses"].(map[string]interface{}); okDiag {
		if err := convertDiagnoses(diagData, &ds.Diagnoses); err != nil {
			return nil, fmt.Errorf("invalid diagnoses config: %w", err)
		}
	}

	if stagesData, okStages := datasetData["stages"].([]interface{}); okStages {
		for i, item := range stagesData {
			stageMap, isMap := item.(map[string]interface{})
			if !isMap {
				return nil, fmt.Errorf("invalid stage at index %d", i)
			}
			stage, convertErr := convertModuleConfig(stageMap, "")
			if convertErr != nil {
				return nil, fmt.Errorf("invalid stage at index %d: %w", i, convertErr)
			}
			ds.Stages = append(ds.Stages, *stage)
		}
	}

	return ds, nil
}

// convertModuleConfig converts a raw module configuration map to ModuleConfig.
// A "path" entry is resolved against baseDir when baseDir is not empty.
func convertModuleConfig(data map[string]interface{}, baseDir string) (*cohort.ModuleConfig, error) {
	moduleConfig := &cohort.ModuleConfig{
		Config: make(map[string]interface{}),
	}

	moduleType, ok := data["type"].(string)
	if !ok {
		return nil, fmt.Errorf("missing required field 'type'")
	}
	moduleConfig.Type = moduleType

	for key, value := range data {
		if key != "type" {
			moduleConfig.Config[key] = value
		}
	}

	if path, ok := moduleConfig.Config["path"].(string); ok && baseDir != "" {
		moduleConfig.Config["path"] = ResolvePath(path, baseDir)
	}

	return moduleConfig, nil
}

func convertVariable(data map[string]interface{}) (cohort.Variable, error) {
	var v cohort.Variable

	name, ok := data["name"].(string)
	if !ok || name == "" {
		return v, fmt.Errorf("missing required field 'name'")
	}
	v.Name = name

	if included, ok := data["included"].(bool); ok {
		v.Included = included
	}

	field, err := intField(data, "dataField")
	if err != nil {
		return v, fmt.Errorf("variable %q: %w", name, err)
	}
	v.DataField = field

	instance, err := intField(data, "instanceNum")
	if err != nil {
		return v, fmt.Errorf("variable %q: %w", name, err)
	}
	v.InstanceNum = instance

	rangeData, ok := data["arrayRange"].([]interface{})
	if !ok {
		return v, fmt.Errorf("variable %q: missing required field 'arrayRange'", name)
	}
	v.ArrayRange = make([]int, 0, len(rangeData))
	for i, item := range rangeData {
		n, isNum := item.(float64)
		if !isNum || n != float64(int(n)) {
			return v, fmt.Errorf("variable %q: arrayRange[%d] is not an integer", name, i)
		}
		v.ArrayRange = append(v.ArrayRange, int(n))
	}

	if codingData, ok := data["coding"].(map[string]interface{}); ok {
		v.Coding = make(map[string]string, len(codingData))
		for raw, value := range codingData {
			v.Coding[raw] = codingValue(value)
		}
	}

	return v, nil
}

func convertDiagnoses(data map[string]interface{}, out *cohort.DiagnosisPatterns) error {
	if prefix, ok := data["prefix"].(string); ok {
		out.Prefix = prefix
	}

	var err error
	if out.Selected, err = stringMap(data, "selected"); err != nil {
		return err
	}
	if out.Included, err = stringMap(data, "included"); err != nil {
		return err
	}
	if out.Excluded, err = stringMap(data, "excluded"); err != nil {
		return err
	}
	return nil
}

func intField(data map[string]interface{}, key string) (int, error) {
	n, ok := data[key].(float64)
	if !ok {
		return 0, fmt.Errorf("missing or invalid field '%s'", key)
	}
	if n != float64(int(n)) {
		return 0, fmt.Errorf("field '%s' is not an integer: %v", key, n)
	}
	return int(n), nil
}

func stringMap(data map[string]interface{}, key string) (map[string]string, error) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return map[string]string{}, nil
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("'%s' must be a mapping, got %T", key, raw)
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		s, isString := v.(string)
		if !isString {
			return nil, fmt.Errorf("'%s.%s' must be a string, got %T", key, k, v)
		}
		out[k] = s
	}
	return out, nil
}

// codingValue renders a coding target the way it appears in a raw extract.
func codingValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(t)
	}
}

// ResolvePath expands a leading "~" and makes a relative path absolute
// against baseDir.
func ResolvePath(path, baseDir string) string {
	path = genomisc.ExpandHome(path)
	if filepath.IsAbs(path) || baseDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(baseDir, path)
}
