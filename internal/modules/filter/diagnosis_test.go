package filter

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/mendelsonD/CognitiveSubtypes/internal/errhandling"
	"github.com/mendelsonD/CognitiveSubtypes/pkg/cohort"
)

func diagnosisDataset() *cohort.Dataset {
	return &cohort.Dataset{
		Variables: []cohort.Variable{
			{Name: "age", Included: true, DataField: 21003, ArrayRange: []int{0}},
			{Name: "diagnoses", Included: true, DataField: 41270, ArrayRange: []int{0, 1, 2}},
		},
		Diagnoses: cohort.DiagnosisPatterns{
			Selected: map[string]string{"A": "X1", "B": "Y9"},
		},
	}
}

func TestDiagnosisFlags_StopsAtFirstAbsent(t *testing.T) {
	m, err := NewDiagnosisFlagsFromConfig(newCatalog(t, diagnosisDataset()))
	if err != nil {
		t.Fatal(err)
	}

	tbl := buildTable(t,
		[]string{"1", "2", "3", "4"},
		[]string{"age_t0", "diagnoses_t0_0", "diagnoses_t0_1", "diagnoses_t0_2"},
		[]string{"60", "X123", absent, "Y999"},
		[]string{"61", "X123", "Y999", absent},
		[]string{"62", absent, "X123", "Y999"},
		[]string{"63", "Z000", "Z001", "Z002"},
	)

	if err := m.Process(context.Background(), tbl); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if got := boolColumn(t, tbl, "A"); !reflect.DeepEqual(got, []bool{true, true, false, false}) {
		t.Errorf("A = %v", got)
	}
	if got := boolColumn(t, tbl, "B"); !reflect.DeepEqual(got, []bool{false, true, false, false}) {
		t.Errorf("B = %v", got)
	}
	if got := tbl.Columns(); !reflect.DeepEqual(got, []string{"eid", "age_t0", "A", "B"}) {
		t.Errorf("diagnosis columns should be dropped, got %v", got)
	}
}

func TestDiagnosisFlags_SelectsVariablesByPrefix(t *testing.T) {
	ds := &cohort.Dataset{
		Variables: []cohort.Variable{
			{Name: "age", Included: true, DataField: 21003, ArrayRange: []int{0}},
			{Name: "diagnoses_icd10", Included: true, DataField: 41270, ArrayRange: []int{0, 1}},
			{Name: "diagnoses_icd9", Included: true, DataField: 41271, ArrayRange: []int{0}},
			{Name: "diagnoses_old", Included: false, DataField: 41203, ArrayRange: []int{0}},
		},
		Diagnoses: cohort.DiagnosisPatterns{
			Selected: map[string]string{"A": "X1", "B": "Y9"},
		},
	}
	m, err := NewDiagnosisFlagsFromConfig(newCatalog(t, ds))
	if err != nil {
		t.Fatal(err)
	}

	tbl := buildTable(t,
		[]string{"1", "2", "3"},
		[]string{"age_t0", "diagnoses_icd10_t0_0", "diagnoses_icd10_t0_1", "diagnoses_icd9_t0"},
		[]string{"60", "X123", absent, "Y999"},
		[]string{"61", "Z000", "Z001", "Y999"},
		[]string{"62", "Z000", "X123", absent},
	)

	if err := m.Process(context.Background(), tbl); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if got := boolColumn(t, tbl, "A"); !reflect.DeepEqual(got, []bool{true, false, true}) {
		t.Errorf("A = %v", got)
	}
	if got := boolColumn(t, tbl, "B"); !reflect.DeepEqual(got, []bool{false, true, false}) {
		t.Errorf("B = %v", got)
	}
	if got := tbl.Columns(); !reflect.DeepEqual(got, []string{"eid", "age_t0", "A", "B"}) {
		t.Errorf("diagnosis columns should be dropped, got %v", got)
	}
}

func TestDiagnosisFlags_NoDiagnosisVariable(t *testing.T) {
	tests := []struct {
		name string
		vars []cohort.Variable
	}{
		{"absent from catalog", []cohort.Variable{
			{Name: "age", Included: true, DataField: 21003, ArrayRange: []int{0}},
		}},
		{"not included", []cohort.Variable{
			{Name: "age", Included: true, DataField: 21003, ArrayRange: []int{0}},
			{Name: "diagnoses", Included: false, DataField: 41270, ArrayRange: []int{0, 1}},
		}},
		{"prefix only inside the name", []cohort.Variable{
			{Name: "icd10_diagnoses", Included: true, DataField: 41270, ArrayRange: []int{0}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := diagnosisDataset()
			ds.Variables = tt.vars
			m, err := NewDiagnosisFlagsFromConfig(newCatalog(t, ds))
			if err == nil {
				t.Fatalf("expected an error, got module %+v", m)
			}
			if !errors.Is(err, ErrNoDiagnosisColumns) {
				t.Errorf("err = %v, want ErrNoDiagnosisColumns", err)
			}
			if errhandling.GetErrorCategory(err) != errhandling.CategoryConfiguration {
				t.Errorf("category = %v, want configuration", errhandling.GetErrorCategory(err))
			}
		})
	}
}

func TestDiagnosisFlags_Cancelled(t *testing.T) {
	m, err := NewDiagnosisFlagsFromConfig(newCatalog(t, diagnosisDataset()))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tbl := buildTable(t, []string{"1"}, []string{"diagnoses_t0_0"}, []string{"X1"})
	if err := m.Process(ctx, tbl); err == nil {
		t.Fatal("expected cancellation error")
	}
	if tbl.HasColumn("A") {
		t.Error("cancelled stage must not join flags")
	}
}
