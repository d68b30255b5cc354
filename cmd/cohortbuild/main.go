// Package main provides the CLI entry point for the cohort dataset builder.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mendelsonD/CognitiveSubtypes/internal/catalog"
	"github.com/mendelsonD/CognitiveSubtypes/internal/cli"
	"github.com/mendelsonD/CognitiveSubtypes/internal/config"
	"github.com/mendelsonD/CognitiveSubtypes/internal/factory"
	"github.com/mendelsonD/CognitiveSubtypes/internal/logger"
	"github.com/mendelsonD/CognitiveSubtypes/internal/persistence"
	"github.com/mendelsonD/CognitiveSubtypes/internal/runtime"
	"github.com/mendelsonD/CognitiveSubtypes/pkg/cohort"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitParseError      = 2
	ExitRuntimeError    = 3
)

var (
	// Global flags
	verbose   bool
	quiet     bool
	logFormat string
	logFile   string

	// Run command flags
	dryRun     bool
	outputPath string
	noManifest bool

	// Build information (set via ldflags during build)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	defer logger.CloseLogFile()
	if err := rootCmd.Execute(); err != nil {
		logger.CloseLogFile()
		os.Exit(ExitRuntimeError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cohortbuild",
	Short: "cohortbuild - cohort dataset builder for biobank extracts",
	Long: `cohortbuild turns a raw biobank extract into an analysis-ready cohort table.

A dataset file (JSON/YAML) declares the variables to keep, the diagnosis
patterns to flag, and an ordered list of stages: binaryFlags,
diagnosisFlags, inclusion, exclusion, clean and recode.

Examples:
  # Validate a dataset file
  cohortbuild validate dataset.yaml

  # Print the raw to recoded column names
  cohortbuild columns dataset.yaml

  # Build the dataset
  cohortbuild run dataset.yaml

  # Build without writing, with human-readable logs
  cohortbuild run --dry-run --log-format human dataset.yaml`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return configureLogging()
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <dataset-file>",
	Short: "Validate a dataset file",
	Long: `Validate a dataset file against the schema and check its catalog.

Supports both JSON and YAML formats. The format is auto-detected
based on file extension (.json, .yaml, .yml) or content.

Exit codes:
  0 - Dataset file is valid
  1 - Validation errors (schema violations or catalog integrity)
  2 - Parse errors (invalid JSON/YAML syntax)`,
	Args: cobra.ExactArgs(1),
	Run:  runValidate,
}

var runCmd = &cobra.Command{
	Use:   "run <dataset-file>",
	Short: "Build a dataset",
	Long: `Build the dataset declared in the file.

The file is first validated. If validation fails nothing is read.

Flags:
  --dry-run   Run every stage without writing the output file
  --output    Write the table to this path instead of the configured one

After a successful build a <dataset-id>.manifest.json file is written
next to the output table, unless --no-manifest is given.

Exit codes:
  0 - Dataset built successfully
  1 - Validation errors
  2 - Parse errors
  3 - Runtime errors`,
	Args: cobra.ExactArgs(1),
	Run:  runBuild,
}

var columnsCmd = &cobra.Command{
	Use:   "columns <dataset-file>",
	Short: "Print the raw to recoded column name mapping",
	Args:  cobra.ExactArgs(1),
	Run:   runColumns,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version, commit hash, and build date information.",
	Run:   runVersion,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Console log format: json or human")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this file")

	// Run command flags
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run all stages without writing the output")
	runCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Override the output path")
	runCmd.Flags().BoolVar(&noManifest, "no-manifest", false, "Do not write the build manifest beside the output")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(columnsCmd)
	rootCmd.AddCommand(versionCmd)
}

// configureLogging applies the global logging flags.
func configureLogging() error {
	format, err := logger.ParseFormat(logFormat)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	} else if quiet {
		level = slog.LevelError
	}

	if logFile != "" {
		return logger.SetLogFile(logFile, level, format)
	}
	logger.SetLevelAndFormat(level, format)
	return nil
}

// exit closes the log file before leaving, since os.Exit skips deferred calls.
func exit(code int) {
	logger.CloseLogFile()
	os.Exit(code)
}

// loadDataset parses, validates and converts a dataset file, printing
// errors and exiting with the matching code on failure.
func loadDataset(path string) (*cohort.Dataset, *config.Result) {
	ds, result, err := config.Load(path)
	if len(result.ParseErrors) > 0 {
		cli.PrintParseErrors(result.ParseErrors, verbose)
		exit(ExitParseError)
	}
	if len(result.ValidationErrors) > 0 {
		cli.PrintValidationErrors(result.ValidationErrors, verbose, quiet)
		exit(ExitValidationError)
	}
	if err != nil {
		cli.PrintLoadError(err)
		exit(ExitValidationError)
	}
	return ds, result
}

// loadCatalog compiles the dataset's field catalog, exiting on an
// integrity failure.
func loadCatalog(ds *cohort.Dataset) *catalog.Catalog {
	cat, err := catalog.New(ds)
	if err != nil {
		cli.PrintLoadError(err)
		exit(ExitValidationError)
	}
	return cat
}

func runValidate(_ *cobra.Command, args []string) {
	configPath := args[0]

	if !quiet {
		fmt.Printf("Validating dataset file: %s\n", configPath)
	}

	ds, result := loadDataset(configPath)
	cat := loadCatalog(ds)

	if !quiet {
		fmt.Printf("✓ Dataset file is valid (format: %s)\n", result.Format)
		if verbose {
			fmt.Printf("  Dataset: %s (v%s)\n", ds.Name, ds.Version)
			fmt.Printf("  Variables: %d included of %d\n", len(cat.IncludedVariables()), len(ds.Variables))
			fmt.Printf("  Columns: %d\n", len(cat.Mapping().Raw))
			fmt.Printf("  Stages: %d\n", len(ds.Stages))
		}
	}

	exit(ExitSuccess)
}

func runColumns(_ *cobra.Command, args []string) {
	ds, _ := loadDataset(args[0])
	cli.PrintColumnMapping(loadCatalog(ds))
	exit(ExitSuccess)
}

func runBuild(_ *cobra.Command, args []string) {
	configPath := args[0]

	if !quiet {
		fmt.Printf("Loading dataset file: %s\n", configPath)
	}

	ds, result := loadDataset(configPath)

	if !quiet {
		fmt.Printf("✓ Dataset file loaded (format: %s)\n", result.Format)
	}
	if verbose {
		fmt.Printf("  Dataset: %s (v%s)\n", ds.Name, ds.Version)
		if ds.Description != "" {
			fmt.Printf("  Description: %s\n", ds.Description)
		}
	}

	if outputPath != "" && ds.Output != nil {
		cwd, _ := os.Getwd()
		ds.Output.Config["path"] = config.ResolvePath(outputPath, cwd)
	}

	_, modules, err := factory.Build(ds)
	if err != nil {
		cli.PrintLoadError(err)
		exit(ExitValidationError)
	}

	executor := runtime.NewExecutorWithModules(modules.Input, modules.Stages, modules.Output, dryRun)

	if !quiet {
		if dryRun {
			fmt.Println("Building dataset (dry-run mode - output will not be written)...")
		} else {
			fmt.Println("Building dataset...")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	execResult, err := executor.Execute(ctx, ds)
	stop()

	opts := cli.OutputOptions{Verbose: verbose, Quiet: quiet, DryRun: dryRun}
	if !dryRun && ds.Output != nil {
		opts.Path, _ = ds.Output.Config["path"].(string)
	}
	cli.PrintExecutionResult(execResult, err, opts)

	if err != nil {
		exit(ExitRuntimeError)
	}
	if opts.Path != "" && !noManifest {
		saveManifest(ds, execResult, opts.Path)
	}
	exit(ExitSuccess)
}

// saveManifest records the build beside the output table. A failure is
// logged but does not fail the build, since the table is already written.
func saveManifest(ds *cohort.Dataset, result *cohort.ExecutionResult, path string) {
	store := persistence.NewManifestStore(filepath.Dir(path))
	if err := store.Save(ds.ID, persistence.NewManifest(ds, result, path)); err != nil {
		logger.Warn("failed to save build manifest",
			slog.String("run_id", result.RunID),
			slog.String("error", err.Error()),
		)
		return
	}
	if verbose {
		fmt.Printf("  Manifest: %s\n", store.FilePath(ds.ID))
	}
}

func runVersion(_ *cobra.Command, _ []string) {
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Commit: %s\n", commit)
	fmt.Printf("Build Date: %s\n", buildDate)
}
