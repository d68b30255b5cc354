package output

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	// SQL drivers registered for the database output
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/mendelsonD/CognitiveSubtypes/internal/errhandling"
	"github.com/mendelsonD/CognitiveSubtypes/internal/logger"
	"github.com/mendelsonD/CognitiveSubtypes/internal/pathutil"
	"github.com/mendelsonD/CognitiveSubtypes/internal/table"
	"github.com/mendelsonD/CognitiveSubtypes/pkg/cohort"
)

// Default configuration values for database output
const (
	defaultDatabaseTimeout = 5 * time.Minute
	defaultDatabaseDriver  = "sqlite"
)

// Error types for database output module
var (
	ErrDatabaseMissingDSN   = errors.New("'dsn' is required for this driver")
	ErrDatabaseMissingPath  = errors.New("'path' is required for the sqlite driver")
	ErrDatabaseMissingTable = errors.New("'table' is required for database output")
	ErrDatabaseInvalidTable = errors.New("table name must match [A-Za-z_][A-Za-z0-9_]*")
	ErrDatabaseUnknownDrv   = errors.New("unknown database driver: available drivers: 'sqlite', 'postgres', 'mysql'")
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// dialect holds the SQL differences between supported drivers.
type dialect struct {
	driverName  string
	quote       func(string) string
	placeholder func(int) string
}

func quoteDouble(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func questionMark(int) string { return "?" }

func dollar(i int) string { return fmt.Sprintf("$%d", i) }

var dialects = map[string]dialect{
	"sqlite":   {driverName: "sqlite", quote: quoteDouble, placeholder: questionMark},
	"postgres": {driverName: "postgres", quote: quoteDouble, placeholder: dollar},
	"mysql":    {driverName: "mysql", quote: quoteBacktick, placeholder: questionMark},
}

// DatabaseConfig holds configuration for the database output module.
type DatabaseConfig struct {
	// Driver is sqlite (default), postgres or mysql
	Driver string `json:"driver"`
	// Path is the sqlite database file
	Path string `json:"path"`
	// DSN is the connection string for postgres and mysql
	DSN string `json:"dsn"`
	// Table receives the dataset
	Table string `json:"table"`
	// Replace drops an existing table first (default true); when false an
	// existing table fails the write
	Replace bool `json:"replace"`
	// TimeoutMs bounds the whole write
	TimeoutMs int `json:"timeoutMs"`
}

// DatabaseModule writes the table into one flat SQL table inside a single
// transaction. No index or key is created. The identifier column is
// TEXT NOT NULL, flag columns are BOOLEAN and every other column is TEXT.
// Absent cells are NULL.
type DatabaseModule struct {
	db      *sql.DB
	dialect dialect
	config  DatabaseConfig
	timeout time.Duration
}

// ParseDatabaseConfig parses a raw configuration map into DatabaseConfig.
func ParseDatabaseConfig(config map[string]interface{}) (DatabaseConfig, error) {
	cfg := DatabaseConfig{Driver: defaultDatabaseDriver, Replace: true}

	if d, ok := config["driver"].(string); ok && d != "" {
		cfg.Driver = strings.ToLower(d)
	}
	if _, ok := dialects[cfg.Driver]; !ok {
		return cfg, fmt.Errorf("%w (got %q)", ErrDatabaseUnknownDrv, cfg.Driver)
	}
	cfg.Path, _ = config["path"].(string)
	cfg.DSN, _ = config["dsn"].(string)
	cfg.Table, _ = config["table"].(string)
	if r, ok := config["replace"].(bool); ok {
		cfg.Replace = r
	}
	if ms, ok := config["timeoutMs"].(float64); ok && ms > 0 {
		cfg.TimeoutMs = int(ms)
	}

	switch {
	case cfg.Table == "":
		return cfg, ErrDatabaseMissingTable
	case !tableNamePattern.MatchString(cfg.Table):
		return cfg, fmt.Errorf("%w (got %q)", ErrDatabaseInvalidTable, cfg.Table)
	case cfg.Driver == "sqlite" && cfg.Path == "":
		return cfg, ErrDatabaseMissingPath
	case cfg.Driver != "sqlite" && cfg.DSN == "":
		return cfg, ErrDatabaseMissingDSN
	}
	return cfg, nil
}

// NewDatabaseFromConfig creates a database output module from configuration.
// The connection is opened lazily on the first write.
func NewDatabaseFromConfig(cfg *cohort.ModuleConfig) (*DatabaseModule, error) {
	if cfg == nil {
		return nil, errhandling.NewConfigurationError("database output config is nil", nil)
	}
	parsed, err := ParseDatabaseConfig(cfg.Config)
	if err != nil {
		return nil, errhandling.NewConfigurationError("invalid database output config", err)
	}

	d := dialects[parsed.Driver]
	dsn := parsed.DSN
	if parsed.Driver == "sqlite" {
		if err := pathutil.ValidateOutputPath(parsed.Path); err != nil {
			return nil, errhandling.NewConfigurationError("invalid sqlite database path", err)
		}
		dsn = parsed.Path
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, errhandling.NewConfigurationError("opening database", err)
	}

	timeout := defaultDatabaseTimeout
	if parsed.TimeoutMs > 0 {
		timeout = time.Duration(parsed.TimeoutMs) * time.Millisecond
	}

	logger.Debug("database output module initialized",
		slog.String("driver", parsed.Driver),
		slog.String("table", parsed.Table),
	)
	return &DatabaseModule{db: db, dialect: d, config: parsed, timeout: timeout}, nil
}

// Write implements the output.Module interface.
func (m *DatabaseModule) Write(ctx context.Context, t *table.Table) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if m.config.Driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(m.config.Path), 0o755); err != nil {
			return 0, errhandling.NewIOError("creating database directory", err)
		}
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errhandling.NewIOError("beginning transaction", err)
	}

	written, err := m.writeTx(ctx, tx, t)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, errhandling.NewIOError("committing transaction", err)
	}

	logger.Info("dataset written",
		slog.String("driver", m.config.Driver),
		slog.String("table", m.config.Table),
		slog.Int("row_count", written),
		slog.Int("column_count", len(t.Columns())),
	)
	return written, nil
}

func (m *DatabaseModule) writeTx(ctx context.Context, tx *sql.Tx, t *table.Table) (int, error) {
	tableName := m.dialect.quote(m.config.Table)

	if m.config.Replace {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+tableName); err != nil {
			return 0, errhandling.NewIOError("dropping table "+m.config.Table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, m.createStatement(t)); err != nil {
		return 0, errhandling.NewIOError("creating table "+m.config.Table, err)
	}

	stmt, err := tx.PrepareContext(ctx, m.insertStatement(t))
	if err != nil {
		return 0, errhandling.NewIOError("preparing insert", err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(t.Columns()))
	for row := 0; row < t.Len(); row++ {
		if row%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		for i, v := range t.Row(row) {
			args[i] = sqlValue(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, errhandling.NewIOError(fmt.Sprintf("inserting subject %q", t.IDs()[row]), err)
		}
	}
	return t.Len(), nil
}

// createStatement builds the CREATE TABLE statement for the table's columns.
func (m *DatabaseModule) createStatement(t *table.Table) string {
	columns := t.Columns()
	defs := make([]string, len(columns))
	for i, name := range columns {
		switch {
		case name == t.IDColumn():
			defs[i] = m.dialect.quote(name) + " TEXT NOT NULL"
		case isFlagColumn(t, name):
			defs[i] = m.dialect.quote(name) + " BOOLEAN"
		default:
			defs[i] = m.dialect.quote(name) + " TEXT"
		}
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", m.dialect.quote(m.config.Table), strings.Join(defs, ", "))
}

func (m *DatabaseModule) insertStatement(t *table.Table) string {
	columns := t.Columns()
	names := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, name := range columns {
		names[i] = m.dialect.quote(name)
		marks[i] = m.dialect.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		m.dialect.quote(m.config.Table), strings.Join(names, ", "), strings.Join(marks, ", "))
}

// isFlagColumn reports whether every present cell of a column is a flag
// and at least one is present.
func isFlagColumn(t *table.Table, name string) bool {
	values, _ := t.Column(name)
	seen := false
	for _, v := range values {
		switch v.Kind() {
		case table.KindBool:
			seen = true
		case table.KindAbsent:
		default:
			return false
		}
	}
	return seen
}

func sqlValue(v table.Value) interface{} {
	if b, ok := v.AsBool(); ok {
		return b
	}
	if s, ok := v.AsText(); ok {
		return s
	}
	return nil
}

// Close implements the output.Module interface.
func (m *DatabaseModule) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

// Verify interface compliance at compile time
var _ Module = (*DatabaseModule)(nil)
