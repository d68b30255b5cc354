package input

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/carbocation/genomisc"

	"github.com/mendelsonD/CognitiveSubtypes/internal/catalog"
	"github.com/mendelsonD/CognitiveSubtypes/internal/errhandling"
	"github.com/mendelsonD/CognitiveSubtypes/internal/logger"
	"github.com/mendelsonD/CognitiveSubtypes/internal/pathutil"
	"github.com/mendelsonD/CognitiveSubtypes/internal/table"
	"github.com/mendelsonD/CognitiveSubtypes/pkg/cohort"
)

// DefaultNAValues are the tokens read as absent when a module does not set
// naValues. The set matches what the extract tooling writes for missing
// cells, the empty string included.
var DefaultNAValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// readBufferSize is the buffer in front of the csv reader.
const readBufferSize = 1 << 20

// cancelCheckInterval is how many rows are read between context checks.
const cancelCheckInterval = 1000

// CSVConfig represents the configuration for the csv input module.
type CSVConfig struct {
	// Path is the extract file
	Path string `json:"path"`
	// Delimiter is the field separator; determined from the file when zero
	Delimiter rune `json:"delimiter"`
	// NAValues lists the tokens read as absent
	NAValues []string `json:"naValues"`
}

// CSVModule loads a delimited raw extract.
//
// Only the raw columns named by the column mapping are kept. They are
// renamed to their recoded names, ordered as in the mapping, and columns
// with no value in any row are dropped.
type CSVModule struct {
	path      string
	delimiter rune
	na        map[string]struct{}
	mapping   catalog.ColumnMapping
}

// ParseCSVConfig parses a raw configuration map into CSVConfig.
func ParseCSVConfig(config map[string]interface{}) (CSVConfig, error) {
	var cfg CSVConfig

	path, ok := config["path"].(string)
	if !ok || path == "" {
		return cfg, errors.New("required field 'path' is missing or empty")
	}
	cfg.Path = path

	if d, ok := config["delimiter"].(string); ok && d != "" {
		r, err := parseDelimiter(d)
		if err != nil {
			return cfg, err
		}
		cfg.Delimiter = r
	}

	if raw, ok := config["naValues"]; ok {
		switch v := raw.(type) {
		case []interface{}:
			cfg.NAValues = make([]string, 0, len(v))
			for i, item := range v {
				s, isString := item.(string)
				if !isString {
					return cfg, fmt.Errorf("naValues[%d] must be a string, got %T", i, item)
				}
				cfg.NAValues = append(cfg.NAValues, s)
			}
		case []string:
			cfg.NAValues = v
		default:
			return cfg, fmt.Errorf("'naValues' must be a list of strings, got %T", raw)
		}
	}

	return cfg, nil
}

func parseDelimiter(d string) (rune, error) {
	if d == `\t` || d == "tab" {
		return '\t', nil
	}
	runes := []rune(d)
	if len(runes) != 1 || runes[0] == '"' || runes[0] == '\n' || runes[0] == '\r' {
		return 0, fmt.Errorf("invalid delimiter %q: must be a single character", d)
	}
	return runes[0], nil
}

// NewCSVFromConfig creates a csv input module from configuration.
func NewCSVFromConfig(cfg *cohort.ModuleConfig, cat *catalog.Catalog) (*CSVModule, error) {
	if cfg == nil {
		return nil, errhandling.NewConfigurationError("csv input config is nil", nil)
	}
	if cat == nil {
		return nil, errhandling.NewConfigurationError("csv input requires a catalog", nil)
	}

	parsed, err := ParseCSVConfig(cfg.Config)
	if err != nil {
		return nil, errhandling.NewConfigurationError("invalid csv input config", err)
	}
	if err := pathutil.ValidateFilePath(parsed.Path); err != nil {
		return nil, errhandling.NewConfigurationError("invalid csv input path", err)
	}

	naValues := parsed.NAValues
	if naValues == nil {
		naValues = DefaultNAValues
	}
	na := make(map[string]struct{}, len(naValues))
	for _, token := range naValues {
		na[token] = struct{}{}
	}

	logger.Debug("csv input module initialized",
		slog.String("path", parsed.Path),
		slog.Int("columns", cat.Mapping().Len()),
	)

	return &CSVModule{
		path:      parsed.Path,
		delimiter: parsed.Delimiter,
		na:        na,
		mapping:   cat.Mapping(),
	}, nil
}

// Load implements the input.Module interface.
func (m *CSVModule) Load(ctx context.Context) (*table.Table, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	f, err := os.Open(m.path)
	if err != nil {
		return nil, errhandling.NewIOError("opening raw extract", err)
	}
	defer func() { _ = f.Close() }()

	delimiter := m.delimiter
	if delimiter == 0 {
		if delimiter, err = determineDelimiter(f); err != nil {
			return nil, err
		}
	}

	return m.read(ctx, f, delimiter)
}

// determineDelimiter reads the start of the extract to pick its delimiter,
// then rewinds the file.
func determineDelimiter(f *os.File) (rune, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, errhandling.NewIOError("reading raw extract", err)
	}
	if info.Size() == 0 {
		return ',', nil
	}

	delimiter := genomisc.DetermineDelimiter(f)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, errhandling.NewIOError("rewinding raw extract", err)
	}
	return delimiter, nil
}

func (m *CSVModule) read(ctx context.Context, r io.Reader, delimiter rune) (*table.Table, error) {
	start := time.Now()
	br := bufio.NewReaderSize(r, readBufferSize)

	reader := csv.NewReader(br)
	reader.Comma = delimiter
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errhandling.NewDataError(m.path, ErrEmptyExtract)
	}
	if err != nil {
		return nil, errhandling.NewDataError("reading raw extract header", err)
	}
	positions, err := m.resolveColumns(header)
	if err != nil {
		return nil, err
	}

	columns := make([][]table.Value, len(positions))
	var ids []string
	for row := 0; ; row++ {
		if row > 0 && row%cancelCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, errhandling.NewDataError("reading raw extract", readErr)
		}

		for c, pos := range positions {
			columns[c] = append(columns[c], m.cell(record[pos]))
		}
		id, _ := columns[0][row].AsText()
		ids = append(ids, id)
	}

	t, err := table.New(m.mapping.Recoded[0], ids)
	if err != nil {
		return nil, err
	}
	for c := 1; c < len(positions); c++ {
		if err := t.AddColumn(m.mapping.Recoded[c], columns[c]); err != nil {
			return nil, err
		}
	}

	dropped := t.DropEmptyColumns()
	if len(dropped) > 0 {
		logger.Info("dropped columns with no values",
			slog.Int("count", len(dropped)),
			slog.Any("columns", dropped),
		)
	}

	logger.Debug("raw extract loaded",
		slog.String("path", m.path),
		slog.String("delimiter", string(delimiter)),
		slog.Int("row_count", t.Len()),
		slog.Int("column_count", len(t.Columns())),
		slog.Duration("duration", time.Since(start)),
	)
	return t, nil
}

// resolveColumns returns, for each mapped raw column, its position in the header.
func (m *CSVModule) resolveColumns(header []string) ([]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if _, exists := index[name]; !exists {
			index[name] = i
		}
	}

	positions := make([]int, len(m.mapping.Raw))
	var missing []string
	for i, raw := range m.mapping.Raw {
		pos, ok := index[raw]
		if !ok {
			missing = append(missing, raw)
			continue
		}
		positions[i] = pos
	}
	if len(missing) > 0 {
		return nil, errhandling.NewDataError(
			fmt.Sprintf("%s: %s", m.path, strings.Join(missing, ", ")), ErrMissingColumns)
	}
	return positions, nil
}

func (m *CSVModule) cell(raw string) table.Value {
	if _, isNA := m.na[raw]; isNA {
		return table.Absent()
	}
	return table.Text(raw)
}

// Close releases resources (no-op for csv).
func (m *CSVModule) Close() error {
	return nil
}

// Verify interface compliance at compile time
var _ Module = (*CSVModule)(nil)
