package output

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mendelsonD/CognitiveSubtypes/internal/errhandling"
	"github.com/mendelsonD/CognitiveSubtypes/internal/logger"
	"github.com/mendelsonD/CognitiveSubtypes/internal/pathutil"
	"github.com/mendelsonD/CognitiveSubtypes/internal/table"
	"github.com/mendelsonD/CognitiveSubtypes/pkg/cohort"
)

// cancelCheckInterval is how many rows are written between context checks.
const cancelCheckInterval = 1000

// outputFileMode is the mode of a written dataset file.
const outputFileMode os.FileMode = 0o644

// CSVConfig represents the configuration for the csv output module.
type CSVConfig struct {
	// Path is the destination file
	Path string `json:"path"`
	// Delimiter is the field separator (default comma)
	Delimiter rune `json:"delimiter"`
}

// CSVModule writes the table as a delimited file: a header line, then one
// line per row in table order. Absent cells are written as empty fields and
// flags as True or False. No row index column is written.
//
// The file is written next to its destination and renamed into place, so a
// failed run never leaves a truncated dataset behind.
type CSVModule struct {
	path      string
	delimiter rune
}

// ParseCSVConfig parses a raw configuration map into CSVConfig.
func ParseCSVConfig(config map[string]interface{}) (CSVConfig, error) {
	cfg := CSVConfig{Delimiter: ','}

	path, ok := config["path"].(string)
	if !ok || path == "" {
		return cfg, errors.New("required field 'path' is missing or empty")
	}
	cfg.Path = path

	if d, ok := config["delimiter"].(string); ok && d != "" {
		if d == `\t` || d == "tab" {
			cfg.Delimiter = '\t'
			return cfg, nil
		}
		runes := []rune(d)
		if len(runes) != 1 || runes[0] == '"' || runes[0] == '\n' || runes[0] == '\r' {
			return cfg, fmt.Errorf("invalid delimiter %q: must be a single character", d)
		}
		cfg.Delimiter = runes[0]
	}

	return cfg, nil
}

// NewCSVFromConfig creates a csv output module from configuration.
func NewCSVFromConfig(cfg *cohort.ModuleConfig) (*CSVModule, error) {
	if cfg == nil {
		return nil, errhandling.NewConfigurationError("csv output config is nil", nil)
	}
	parsed, err := ParseCSVConfig(cfg.Config)
	if err != nil {
		return nil, errhandling.NewConfigurationError("invalid csv output config", err)
	}
	if err := pathutil.ValidateOutputPath(parsed.Path); err != nil {
		return nil, errhandling.NewConfigurationError("invalid csv output path", err)
	}

	logger.Debug("csv output module initialized", slog.String("path", parsed.Path))
	return &CSVModule{path: parsed.Path, delimiter: parsed.Delimiter}, nil
}

// Path returns the destination file.
func (m *CSVModule) Path() string { return m.path }

// Write implements the output.Module interface.
func (m *CSVModule) Write(ctx context.Context, t *table.Table) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, errhandling.NewIOError("creating output directory", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(m.path)+".*")
	if err != nil {
		return 0, errhandling.NewIOError("creating output file", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	n, err := m.encode(ctx, tmp, t)
	if err != nil {
		return 0, err
	}
	if err := tmp.Chmod(outputFileMode); err != nil {
		return 0, errhandling.NewIOError("setting output file mode", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, errhandling.NewIOError("closing output file", err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		_ = os.Remove(tmp.Name())
		committed = true
		return 0, errhandling.NewIOError("moving output file into place", err)
	}
	committed = true

	logger.Debug("dataset written",
		slog.String("path", m.path),
		slog.Int("row_count", n),
		slog.Int("column_count", len(t.Columns())),
	)
	return n, nil
}

func (m *CSVModule) encode(ctx context.Context, f *os.File, t *table.Table) (int, error) {
	w := csv.NewWriter(f)
	w.Comma = m.delimiter

	if err := w.Write(t.Columns()); err != nil {
		return 0, errhandling.NewIOError("writing header", err)
	}

	record := make([]string, len(t.Columns()))
	for row := 0; row < t.Len(); row++ {
		if row > 0 && row%cancelCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			default:
			}
		}
		for c, v := range t.Row(row) {
			record[c] = v.String()
		}
		if err := w.Write(record); err != nil {
			return 0, errhandling.NewIOError(fmt.Sprintf("writing row %d", row), err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, errhandling.NewIOError("flushing output", err)
	}
	return t.Len(), nil
}

// Close releases resources (no-op for csv).
func (m *CSVModule) Close() error {
	return nil
}

// Verify interface compliance at compile time
var _ Module = (*CSVModule)(nil)
