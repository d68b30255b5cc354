package pathutil

import (
	"path/filepath"
	"testing"
)

func TestValidateFilePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"empty", "", true},
		{"null byte", "raw\x00.csv", true},
		{"parent only", "..", true},
		{"leading parent", "../raw.csv", true},
		{"middle parent", "extracts/../raw.csv", true},
		{"relative", "extracts/raw.csv", false},
		{"absolute", "/data/ukb/raw.csv", false},
		{"dots in name", "raw..v2.csv", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFilePath(%q) err = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidateOutputPath(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"new file", filepath.Join(dir, "cohort.csv"), false},
		{"new nested file", filepath.Join(dir, "out", "cohort.csv"), false},
		{"existing directory", dir, true},
		{"trailing separator", "out/", true},
		{"traversal", "out/../../cohort.csv", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputPath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOutputPath(%q) err = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}
