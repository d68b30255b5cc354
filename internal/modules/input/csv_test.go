package input

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/mendelsonD/CognitiveSubtypes/internal/catalog"
	"github.com/mendelsonD/CognitiveSubtypes/internal/errhandling"
	"github.com/mendelsonD/CognitiveSubtypes/internal/table"
	"github.com/mendelsonD/CognitiveSubtypes/pkg/cohort"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(&cohort.Dataset{
		Variables: []cohort.Variable{
			{Name: "sex", Included: true, DataField: 31, InstanceNum: 0, ArrayRange: []int{0}},
			{Name: "medication", Included: true, DataField: 20003, InstanceNum: 0, ArrayRange: []int{0, 1}},
			{Name: "handedness", Included: false, DataField: 1707, InstanceNum: 0, ArrayRange: []int{0}},
		},
	})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return cat
}

func writeExtract(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raw.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func loadExtract(t *testing.T, content string, extra map[string]interface{}) (*table.Table, error) {
	t.Helper()
	config := map[string]interface{}{"path": writeExtract(t, content)}
	for k, v := range extra {
		config[k] = v
	}
	m, err := NewCSVFromConfig(&cohort.ModuleConfig{Type: "csv", Config: config}, testCatalog(t))
	if err != nil {
		t.Fatalf("NewCSVFromConfig: %v", err)
	}
	defer func() { _ = m.Close() }()
	return m.Load(context.Background())
}

func TestCSVModule_Load(t *testing.T) {
	extract := strings.Join([]string{
		"eid,1707-0.0,20003-0.1,31-0.0,20003-0.0,99-0.0",
		"1,1,,0,aspirin,x",
		"2,2,,1,ibuprofen,y",
		"3,,,NA,,z",
	}, "\n") + "\n"

	tbl, err := loadExtract(t, extract, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	wantColumns := []string{"eid", "sex_t0", "medication_t0_0"}
	if got := tbl.Columns(); !reflect.DeepEqual(got, wantColumns) {
		t.Errorf("Columns() = %v, want %v", got, wantColumns)
	}
	if got := tbl.IDs(); !reflect.DeepEqual(got, []string{"1", "2", "3"}) {
		t.Errorf("IDs() = %v", got)
	}
	if got := tbl.Value(1, "medication_t0_0"); got != table.Text("ibuprofen") {
		t.Errorf("medication_t0_0[1] = %v", got)
	}
	if !tbl.Value(2, "sex_t0").IsAbsent() {
		t.Error("NA token should load as absent")
	}
	if got := tbl.Value(0, "sex_t0"); got != table.Text("0") {
		t.Errorf("values must stay text, got %v", got)
	}
}

func TestCSVModule_Load_Delimiters(t *testing.T) {
	tests := []struct {
		name   string
		sep    string
		config map[string]interface{}
	}{
		{"determined comma", ",", nil},
		{"determined tab", "\t", nil},
		{"configured semicolon", ";", map[string]interface{}{"delimiter": ";"}},
		{"configured pipe", "|", map[string]interface{}{"delimiter": "|"}},
		{"configured tab escape", "\t", map[string]interface{}{"delimiter": `\t`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := strings.Join([]string{"eid", "31-0.0", "20003-0.0", "20003-0.1"}, tt.sep)
			row := strings.Join([]string{"7", "1", "tylenol", "aspirin"}, tt.sep)
			tbl, err := loadExtract(t, header+"\n"+row+"\n", tt.config)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := tbl.Value(0, "medication_t0_1"); got != table.Text("aspirin") {
				t.Errorf("medication_t0_1 = %v", got)
			}
		})
	}
}

func TestCSVModule_Load_CustomNAValues(t *testing.T) {
	extract := "eid,31-0.0,20003-0.0,20003-0.1\n1,-1,NA,x\n"
	tbl, err := loadExtract(t, extract, map[string]interface{}{"naValues": []interface{}{"-1"}})
	if err != nil {
		t.Fatal(err)
	}
	if tbl.HasColumn("sex_t0") {
		t.Error("sex_t0 holds only the custom NA token and should be dropped")
	}
	if got := tbl.Value(0, "medication_t0_0"); got != table.Text("NA") {
		t.Errorf("NA is not a token here, got %v", got)
	}
}

func TestCSVModule_Load_Errors(t *testing.T) {
	tests := []struct {
		name     string
		extract  string
		wantErr  error
		category errhandling.ErrorCategory
	}{
		{
			name:     "missing raw column",
			extract:  "eid,31-0.0,20003-0.0\n1,0,a\n",
			wantErr:  ErrMissingColumns,
			category: errhandling.CategoryData,
		},
		{
			name:     "duplicate identifier",
			extract:  "eid,31-0.0,20003-0.0,20003-0.1\n1,0,a,b\n1,1,c,d\n",
			wantErr:  table.ErrDuplicateIdentifier,
			category: errhandling.CategoryData,
		},
		{
			name:     "absent identifier",
			extract:  "eid,31-0.0,20003-0.0,20003-0.1\n,0,a,b\n",
			wantErr:  table.ErrAbsentIdentifier,
			category: errhandling.CategoryData,
		},
		{
			name:     "empty file",
			extract:  "",
			wantErr:  ErrEmptyExtract,
			category: errhandling.CategoryData,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadExtract(t, tt.extract, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got := errhandling.GetErrorCategory(err); got != tt.category {
				t.Errorf("category = %s, want %s", got, tt.category)
			}
		})
	}
}

func TestCSVModule_Load_MissingFile(t *testing.T) {
	m, err := NewCSVFromConfig(&cohort.ModuleConfig{
		Type:   "csv",
		Config: map[string]interface{}{"path": filepath.Join(t.TempDir(), "absent.csv")},
	}, testCatalog(t))
	if err != nil {
		t.Fatal(err)
	}
	_, err = m.Load(context.Background())
	if errhandling.GetErrorCategory(err) != errhandling.CategoryIO {
		t.Errorf("err = %v, want an io error", err)
	}
}

func TestCSVModule_Load_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, err := NewCSVFromConfig(&cohort.ModuleConfig{
		Type:   "csv",
		Config: map[string]interface{}{"path": writeExtract(t, "eid\n1\n")},
	}, testCatalog(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Load(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestParseCSVConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]interface{}
		wantErr bool
	}{
		{"path only", map[string]interface{}{"path": "raw.csv"}, false},
		{"missing path", map[string]interface{}{}, true},
		{"long delimiter", map[string]interface{}{"path": "raw.csv", "delimiter": ";;"}, true},
		{"quote delimiter", map[string]interface{}{"path": "raw.csv", "delimiter": `"`}, true},
		{"bad naValues", map[string]interface{}{"path": "raw.csv", "naValues": "NA"}, true},
		{"bad naValues item", map[string]interface{}{"path": "raw.csv", "naValues": []interface{}{1.0}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSVConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewCSVFromConfig_RejectsTraversal(t *testing.T) {
	_, err := NewCSVFromConfig(&cohort.ModuleConfig{
		Type:   "csv",
		Config: map[string]interface{}{"path": "data/../../etc/passwd"},
	}, testCatalog(t))
	if errhandling.GetErrorCategory(err) != errhandling.CategoryConfiguration {
		t.Errorf("err = %v, want a configuration error", err)
	}
}
