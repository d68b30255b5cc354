package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/mendelsonD/CognitiveSubtypes/internal/catalog"
	"github.com/mendelsonD/CognitiveSubtypes/internal/logger"
	"github.com/mendelsonD/CognitiveSubtypes/pkg/cohort"
)

// OutputOptions configures CLI output behavior.
type OutputOptions struct {
	Verbose bool
	Quiet   bool
	DryRun  bool
	// Path is where the table was written; empty in dry-run mode
	Path string
}

// PrintExecutionResult displays the build execution result.
func PrintExecutionResult(result *cohort.ExecutionResult, err error, opts OutputOptions) {
	if result == nil {
		fmt.Fprintln(stderr, "✗ No execution result available")
		return
	}

	if err != nil {
		fmt.Fprintln(stderr, "✗ Dataset build failed")
		if result.Error != nil {
			if result.Error.Module != "" {
				fmt.Fprintf(stderr, "  Module: %s\n", result.Error.Module)
			}
			fmt.Fprintf(stderr, "  Error: %s\n", result.Error.Message)
			if opts.Verbose && result.Error.ErrorCategory != "" {
				fmt.Fprintf(stderr, "  Category: %s\n", result.Error.ErrorCategory)
			}
		}
		return
	}

	if opts.Quiet {
		return
	}

	fmt.Fprintln(stdout, "✓ Dataset built successfully")
	fmt.Fprintf(stdout, "  Run: %s\n", result.RunID)
	fmt.Fprintf(stdout, "  %s\n", logger.FormatMetricsHuman(logger.ExecutionMetrics{
		TotalDuration:  result.CompletedAt.Sub(result.StartedAt),
		RowsLoaded:     result.RowsLoaded,
		RowsWritten:    result.RowsWritten,
		ColumnsWritten: len(result.Columns),
	}))
	if opts.DryRun {
		fmt.Fprintln(stdout, "  Dry-run: no file was written")
	} else if opts.Path != "" {
		fmt.Fprintf(stdout, "  Output: %s\n", opts.Path)
	}

	if opts.Verbose {
		printStageResults(result.Stages)
		fmt.Fprintf(stdout, "  Columns: %s\n", strings.Join(result.Columns, ", "))
	}
}

// printStageResults prints one line per stage with its row and column deltas.
func printStageResults(stages []cohort.StageResult) {
	if len(stages) == 0 {
		return
	}
	fmt.Fprintln(stdout, "  Stages:")
	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	for _, s := range stages {
		fmt.Fprintf(tw, "    %d\t%s\trows %d → %d\tcolumns %d → %d\t%v\n",
			s.Index, s.Type, s.RowsBefore, s.RowsAfter, s.ColumnsBefore, s.ColumnsAfter, s.Duration)
	}
	_ = tw.Flush()
}

// PrintColumnMapping prints the raw to recoded column name mapping, one
// pair per line, followed by any prefix collisions between variables.
func PrintColumnMapping(cat *catalog.Catalog) {
	m := cat.Mapping()
	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RAW\tRECODED")
	for i := range m.Raw {
		fmt.Fprintf(tw, "%s\t%s\n", m.Raw[i], m.Recoded[i])
	}
	_ = tw.Flush()

	for _, c := range cat.PrefixCollisions() {
		fmt.Fprintf(stderr, "⚠ variable %q is a name prefix of %q\n", c.Prefix, c.Variable)
	}
}
