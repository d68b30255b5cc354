package registry

import (
	"reflect"
	"testing"

	"github.com/mendelsonD/CognitiveSubtypes/internal/catalog"
	"github.com/mendelsonD/CognitiveSubtypes/internal/modules/filter"
	"github.com/mendelsonD/CognitiveSubtypes/internal/modules/input"
	"github.com/mendelsonD/CognitiveSubtypes/internal/modules/output"
	"github.com/mendelsonD/CognitiveSubtypes/pkg/cohort"
)

// resetRegistries restores the built-in registrations after a test that
// clears them.
func resetRegistries() {
	ClearRegistries()
	RegisterBuiltins()
}

func TestRegisterInput(t *testing.T) {
	ClearRegistries()
	defer resetRegistries()

	called := false
	RegisterInput("testInput", func(cfg *cohort.ModuleConfig, cat *catalog.Catalog) (input.Module, error) {
		called = true
		return nil, nil
	})

	got := GetInputConstructor("testInput")
	if got == nil {
		t.Fatal("expected constructor, got nil")
	}
	_, _ = got(nil, nil)
	if !called {
		t.Error("constructor was not called")
	}
}

func TestRegisterFilter(t *testing.T) {
	ClearRegistries()
	defer resetRegistries()

	gotIndex := -1
	RegisterFilter("testStage", func(cfg cohort.ModuleConfig, index int, cat *catalog.Catalog) (filter.Module, error) {
		gotIndex = index
		return nil, nil
	})

	got := GetFilterConstructor("testStage")
	if got == nil {
		t.Fatal("expected constructor, got nil")
	}
	_, _ = got(cohort.ModuleConfig{}, 3, nil)
	if gotIndex != 3 {
		t.Errorf("index = %d, want 3", gotIndex)
	}
}

func TestRegisterOutput(t *testing.T) {
	ClearRegistries()
	defer resetRegistries()

	called := false
	RegisterOutput("testOutput", func(cfg *cohort.ModuleConfig) (output.Module, error) {
		called = true
		return nil, nil
	})

	got := GetOutputConstructor("testOutput")
	if got == nil {
		t.Fatal("expected constructor, got nil")
	}
	_, _ = got(nil)
	if !called {
		t.Error("constructor was not called")
	}
}

func TestGetUnregisteredConstructor(t *testing.T) {
	if got := GetInputConstructor("unknown"); got != nil {
		t.Error("expected nil for unregistered input type")
	}
	if got := GetFilterConstructor("unknown"); got != nil {
		t.Error("expected nil for unregistered stage type")
	}
	if got := GetOutputConstructor("unknown"); got != nil {
		t.Error("expected nil for unregistered output type")
	}
}

func TestOverwriteRegistration(t *testing.T) {
	ClearRegistries()
	defer resetRegistries()

	callCount := 0
	RegisterInput("test", func(*cohort.ModuleConfig, *catalog.Catalog) (input.Module, error) {
		callCount = 1
		return nil, nil
	})
	RegisterInput("test", func(*cohort.ModuleConfig, *catalog.Catalog) (input.Module, error) {
		callCount = 2
		return nil, nil
	})

	_, _ = GetInputConstructor("test")(nil, nil)
	if callCount != 2 {
		t.Error("expected second constructor to be called after overwrite")
	}
}

func TestClearRegistries(t *testing.T) {
	defer resetRegistries()
	ClearRegistries()

	if len(ListInputTypes()) != 0 {
		t.Error("expected input registry to be empty after clear")
	}
	if len(ListFilterTypes()) != 0 {
		t.Error("expected stage registry to be empty after clear")
	}
	if len(ListOutputTypes()) != 0 {
		t.Error("expected output registry to be empty after clear")
	}
}

func TestBuiltins(t *testing.T) {
	resetRegistries()

	if got := ListInputTypes(); !reflect.DeepEqual(got, []string{"csv"}) {
		t.Errorf("input types = %v", got)
	}
	want := []string{"binaryFlags", "clean", "diagnosisFlags", "exclusion", "inclusion", "recode"}
	if got := ListFilterTypes(); !reflect.DeepEqual(got, want) {
		t.Errorf("stage types = %v, want %v", got, want)
	}
	if got := ListOutputTypes(); !reflect.DeepEqual(got, []string{"csv", "database"}) {
		t.Errorf("output types = %v", got)
	}
}

func TestBuiltinStageConstructors(t *testing.T) {
	resetRegistries()

	cat, err := catalog.New(&cohort.Dataset{
		Variables: []cohort.Variable{
			{Name: "medication", Included: true, DataField: 20003, ArrayRange: []int{0, 1}},
			{Name: "diagnoses", Included: true, DataField: 41270, ArrayRange: []int{0}},
		},
		Diagnoses: cohort.DiagnosisPatterns{Selected: map[string]string{"A": "a"}, Included: map[string]string{"A": "a"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		stage   cohort.ModuleConfig
		wantErr bool
	}{
		{cohort.ModuleConfig{Type: "binaryFlags", Config: map[string]interface{}{
			"variable": "medication", "patterns": map[string]interface{}{"p": "aspirin"},
		}}, false},
		{cohort.ModuleConfig{Type: "binaryFlags", Config: map[string]interface{}{}}, true},
		{cohort.ModuleConfig{Type: "diagnosisFlags", Config: map[string]interface{}{}}, false},
		{cohort.ModuleConfig{Type: "inclusion", Config: map[string]interface{}{"method": "OR"}}, false},
		{cohort.ModuleConfig{Type: "inclusion", Config: map[string]interface{}{"method": "XOR"}}, true},
		{cohort.ModuleConfig{Type: "exclusion", Config: map[string]interface{}{}}, false},
		{cohort.ModuleConfig{Type: "clean", Config: map[string]interface{}{"prefix": "medication"}}, false},
		{cohort.ModuleConfig{Type: "clean", Config: map[string]interface{}{}}, true},
		{cohort.ModuleConfig{Type: "recode", Config: map[string]interface{}{}}, false},
	}
	for i, tt := range tests {
		constructor := GetFilterConstructor(tt.stage.Type)
		if constructor == nil {
			t.Fatalf("no constructor for %s", tt.stage.Type)
		}
		_, err := constructor(tt.stage, i, cat)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s %v: err = %v, wantErr %v", tt.stage.Type, tt.stage.Config, err, tt.wantErr)
		}
	}
}
