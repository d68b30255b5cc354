package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// OutputFormat represents the log output format
type OutputFormat int

const (
	// FormatJSON is the default machine-readable JSON format
	FormatJSON OutputFormat = iota
	// FormatHuman is a human-readable console format with colors and prefixes
	FormatHuman
)

// ParseFormat converts a format name ("json", "human") to an OutputFormat.
func ParseFormat(name string) (OutputFormat, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return FormatJSON, nil
	case "human", "text":
		return FormatHuman, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format %q: available formats: json, human", name)
	}
}

// SetLevelAndFormat sets both the log level and format.
func SetLevelAndFormat(level slog.Level, format OutputFormat) {
	Logger = slog.New(consoleHandler(level, format))
}

func consoleHandler(level slog.Level, format OutputFormat) slog.Handler {
	if format == FormatHuman {
		return NewHumanHandler(output, &HumanHandlerOptions{
			Level:     level,
			UseColors: isTerminal(output),
		})
	}
	return slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level})
}

// isTerminal returns true if the writer is a terminal (supports colors)
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		fi, err := f.Stat()
		if err != nil {
			return false
		}
		return (fi.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// HumanHandlerOptions configures the human-readable log handler.
type HumanHandlerOptions struct {
	// Level is the minimum log level to output
	Level slog.Level
	// UseColors enables ANSI color codes
	UseColors bool
}

// HumanHandler is a slog handler that outputs human-readable log messages.
type HumanHandler struct {
	opts   HumanHandlerOptions
	writer io.Writer
	attrs  []slog.Attr
	groups []string
}

// NewHumanHandler creates a new human-readable log handler.
func NewHumanHandler(w io.Writer, opts *HumanHandlerOptions) *HumanHandler {
	if opts == nil {
		opts = &HumanHandlerOptions{Level: slog.LevelInfo}
	}
	return &HumanHandler{
		opts:   *opts,
		writer: w,
	}
}

// Enabled returns true if the handler is enabled for the given level.
func (h *HumanHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level
}

// Handle outputs a log record in human-readable format.
func (h *HumanHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder

	sb.WriteString(r.Time.Format("15:04:05"))
	sb.WriteString(" ")
	sb.WriteString(h.levelPrefix(r.Level, r.Message))
	sb.WriteString(" ")
	sb.WriteString(r.Message)

	var keyAttrs []string
	r.Attrs(func(a slog.Attr) bool {
		keyAttrs = append(keyAttrs, formatAttr(a))
		return true
	})
	for _, a := range h.attrs {
		keyAttrs = append(keyAttrs, formatAttr(a))
	}

	// Up to 6 attributes inline.
	const maxInline = 6
	if len(keyAttrs) > 0 {
		sb.WriteString(" ")
		n := min(len(keyAttrs), maxInline)
		sb.WriteString(strings.Join(keyAttrs[:n], " "))
		if len(keyAttrs) > maxInline {
			sb.WriteString(fmt.Sprintf(" (+%d more)", len(keyAttrs)-maxInline))
		}
	}

	sb.WriteString("\n")
	_, err := io.WriteString(h.writer, sb.String())
	return err
}

// WithAttrs returns a new handler with the given attributes added.
func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &HumanHandler{
		opts:   h.opts,
		writer: h.writer,
		attrs:  merged,
		groups: h.groups,
	}
}

// WithGroup returns a new handler with the given group name.
func (h *HumanHandler) WithGroup(name string) slog.Handler {
	groups := make([]string, 0, len(h.groups)+1)
	groups = append(groups, h.groups...)
	return &HumanHandler{
		opts:   h.opts,
		writer: h.writer,
		attrs:  h.attrs,
		groups: append(groups, name),
	}
}

// levelPrefix returns a prefix for the log level, using ✓ for completion messages.
func (h *HumanHandler) levelPrefix(level slog.Level, message string) string {
	const (
		colorReset  = "\033[0m"
		colorRed    = "\033[31m"
		colorYellow = "\033[33m"
		colorGreen  = "\033[32m"
		colorCyan   = "\033[36m"
	)

	var prefix, color string
	switch {
	case level >= slog.LevelError:
		prefix, color = "✗", colorRed
	case level >= slog.LevelWarn:
		prefix, color = "⚠", colorYellow
	case level >= slog.LevelInfo:
		if strings.Contains(strings.ToLower(message), "completed") {
			prefix, color = "✓", colorGreen
		} else {
			prefix, color = "ℹ", colorCyan
		}
	default:
		prefix, color = "·", colorReset
	}

	if h.opts.UseColors {
		return color + prefix + colorReset
	}
	return prefix
}

// formatAttr formats a single attribute for display.
func formatAttr(a slog.Attr) string {
	switch v := a.Value.Any().(type) {
	case time.Duration:
		return fmt.Sprintf("%s=%s", a.Key, formatDuration(v))
	case float64:
		return fmt.Sprintf("%s=%.2f", a.Key, v)
	default:
		return fmt.Sprintf("%s=%v", a.Key, v)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	default:
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
}

// FormatMetricsHuman formats execution metrics in a human-readable way.
func FormatMetricsHuman(metrics ExecutionMetrics) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Wrote %d of %d subjects (%d columns) in %s",
		metrics.RowsWritten,
		metrics.RowsLoaded,
		metrics.ColumnsWritten,
		formatDuration(metrics.TotalDuration)))

	if metrics.RowsPerSecond > 0 {
		sb.WriteString(fmt.Sprintf(" (%.1f rows/sec)", metrics.RowsPerSecond))
	}

	return sb.String()
}
