package commands

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"rtp/internal/config"
	"rtp/internal/discovery"
	"rtp/internal/domain"
	"rtp/internal/execution"
	"rtp/internal/migration"
	"rtp/internal/parser"
	"rtp/internal/storage"
	"rtp/internal/ui"
)

// RunCommand handles the run command
type RunCommand struct {
	config    *config.Config
	scanner   *discovery.Scanner
	filter    *discovery.Filter
	executor  execution.Executor
	parser    parser.Parser
	storage   storage.Storage
	formatter *ui.Formatter
	migrator  migration.Migrator
	viewer    ui.Viewer
}

// NewRunCommand creates a new RunCommand
func NewRunCommand(
	cfg *config.Config,
	scanner *discovery.Scanner,
	filter *discovery.Filter,
	executor execution.Executor,
	parser parser.Parser,
	st storage.Storage,
	formatter *ui.Formatter,
	migrator migration.Migrator,
	viewer ui.Viewer,
) *RunCommand {
	return &RunCommand{
		config:    cfg,
		scanner:   scanner,
		filter:    filter,
		executor:  executor,
		parser:    parser,
		storage:   st,
		formatter: formatter,
		migrator:  migrator,
		viewer:    viewer,
	}
}

// Execute runs the command
func (rc *RunCommand) Execute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flags := rc.config.Flags

	if flags.Migrate {
		if err := rc.migrator.Run(ctx, rc.config.Processors, flags.NoFresh); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		fmt.Println()
	}

	tests, err := rc.discover()
	if err != nil {
		return err
	}
	if len(tests) == 0 {
		color.Yellow("No tests to execute")
		return nil
	}

	results, failures, duration, err := rc.execute(cmd, tests)
	if err != nil {
		return err
	}

	if flags.RerunFailures && len(failures) > 0 {
		failed := failedFiles(results)
		color.Yellow("Rerunning %d failed test file(s)", len(failed))
		results, failures, duration, err = rc.execute(cmd, failed)
		if err != nil {
			return err
		}
	}

	if err := rc.storage.Save(results, failures, duration, rc.config.Processors); err != nil {
		return fmt.Errorf("failed to save test results: %w", err)
	}

	output, err := rc.storage.Load()
	if err != nil {
		return err
	}
	rc.formatter.PrintMetaStats(output)

	if output.Meta.FailedTestFiles == 0 {
		return nil
	}
	if flags.OpenFaills && len(output.Details) > 0 {
		if err := rc.viewer.View(output); err != nil {
			return err
		}
	}
	return ErrTestsFailed
}

// discover scans and filters the test files to run
func (rc *RunCommand) discover() ([]string, error) {
	rc.scanner.SetRules(rc.config.PathsToIgnore, rc.config.TestFilePatterns)
	if err := rc.scanner.UseGitignore(rc.config.ProjectPath); err != nil {
		log.Warn().Err(err).Msg("Ignoring .gitignore")
	}
	tests, err := rc.scanner.Scan(rc.config.GetTestPath())
	if err != nil {
		return nil, err
	}
	tests = rc.filter.FilterByName(tests, rc.config.Flags.NameFilter)

	if rc.config.Flags.OnlyFailed {
		last, err := rc.storage.Load()
		if err != nil {
			return nil, fmt.Errorf("no previous run to take failed tests from: %w", err)
		}
		projectPath := rc.config.ProjectPath
		tests = rc.filter.FilterByKeys(tests, storage.FailedPaths(projectPath, last), func(path string) string {
			return storage.PathKey(projectPath, path)
		})
	}
	return tests, nil
}

func (rc *RunCommand) execute(cmd *cobra.Command, tests []string) ([]domain.TestResult, []domain.TestFailure, time.Duration, error) {
	rc.executor.SetProgress(ui.NewProgressBar(len(tests)))

	results, duration, err := rc.executor.ExecuteWithOptions(cmd.Context(), tests, rc.config.Flags.FailFast)
	if err != nil {
		return nil, nil, 0, err
	}

	var failures []domain.TestFailure
	for _, result := range results {
		if !result.Success {
			failures = append(failures, rc.parser.ParseFailure(result)...)
		}
	}
	return results, failures, duration, nil
}

func failedFiles(results []domain.TestResult) []string {
	var files []string
	for _, r := range results {
		if !r.Success {
			files = append(files, r.TestPath)
		}
	}
	return files
}
