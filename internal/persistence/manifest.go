// Package persistence records what each dataset build produced.
// A manifest is written as JSON beside the output table so a cohort file can
// be traced back to the run, dataset version and stage sequence that made it.
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mendelsonD/CognitiveSubtypes/internal/logger"
	"github.com/mendelsonD/CognitiveSubtypes/pkg/cohort"
)

// manifestSuffix is appended to a dataset ID to name its manifest file.
const manifestSuffix = ".manifest.json"

// Common errors
var (
	// ErrInvalidDatasetID is returned when the dataset ID is empty.
	ErrInvalidDatasetID = errors.New("dataset ID is required")

	// ErrNilManifest is returned when the manifest is nil.
	ErrNilManifest = errors.New("manifest is nil")
)

// Manifest describes one successful dataset build.
type Manifest struct {
	DatasetID      string               `json:"datasetId"`
	DatasetName    string               `json:"datasetName"`
	DatasetVersion string               `json:"datasetVersion"`
	RunID          string               `json:"runId"`
	OutputPath     string               `json:"outputPath"`
	StartedAt      time.Time            `json:"startedAt"`
	CompletedAt    time.Time            `json:"completedAt"`
	RowsLoaded     int                  `json:"rowsLoaded"`
	RowsWritten    int                  `json:"rowsWritten"`
	Columns        []string             `json:"columns"`
	Stages         []cohort.StageResult `json:"stages"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

// NewManifest builds a manifest from a dataset and its execution result.
func NewManifest(ds *cohort.Dataset, result *cohort.ExecutionResult, outputPath string) *Manifest {
	return &Manifest{
		DatasetID:      ds.ID,
		DatasetName:    ds.Name,
		DatasetVersion: ds.Version,
		RunID:          result.RunID,
		OutputPath:     outputPath,
		StartedAt:      result.StartedAt,
		CompletedAt:    result.CompletedAt,
		RowsLoaded:     result.RowsLoaded,
		RowsWritten:    result.RowsWritten,
		Columns:        result.Columns,
		Stages:         result.Stages,
	}
}

// ManifestStore provides thread-safe persistence of build manifests.
// Manifests are stored as JSON files in the base path, one per dataset;
// a later build of the same dataset replaces the earlier manifest.
type ManifestStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewManifestStore creates a store rooted at basePath.
func NewManifestStore(basePath string) *ManifestStore {
	return &ManifestStore{basePath: basePath}
}

// FilePath returns the manifest file for a dataset.
func (s *ManifestStore) FilePath(datasetID string) string {
	safeName := filepath.Base(datasetID)
	return filepath.Join(s.basePath, safeName+manifestSuffix)
}

// Save persists the manifest for a dataset.
// Uses atomic write (temp file + rename) to prevent corruption.
func (s *ManifestStore) Save(datasetID string, m *Manifest) error {
	if datasetID == "" {
		return ErrInvalidDatasetID
	}
	if m == nil {
		return ErrNilManifest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.basePath, 0o755); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}

	m.DatasetID = datasetID
	m.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	filePath := s.FilePath(datasetID)
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("writing temp manifest file: %w", err)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming manifest file: %w", err)
	}

	logger.Debug("manifest saved",
		"dataset", datasetID,
		"run_id", m.RunID,
		"path", filePath,
	)
	return nil
}

// Load retrieves the manifest for a dataset.
// Returns nil, nil if the dataset has never been built into this directory.
func (s *ManifestStore) Load(datasetID string) (*Manifest, error) {
	if datasetID == "" {
		return nil, ErrInvalidDatasetID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.FilePath(datasetID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading manifest file: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshaling manifest: %w", err)
	}
	return &m, nil
}
