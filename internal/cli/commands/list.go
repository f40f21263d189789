package commands

import (
	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"rtp/internal/config"
	"rtp/internal/discovery"
	"rtp/internal/storage"
	"rtp/internal/ui"
)

// ListCommand handles the list command
type ListCommand struct {
	config    *config.Config
	scanner   *discovery.Scanner
	filter    *discovery.Filter
	formatter *ui.Formatter
	storage   storage.Storage
}

// NewListCommand creates a new ListCommand
func NewListCommand(
	cfg *config.Config,
	scanner *discovery.Scanner,
	filter *discovery.Filter,
	formatter *ui.Formatter,
	st storage.Storage,
) *ListCommand {
	return &ListCommand{
		config:    cfg,
		scanner:   scanner,
		filter:    filter,
		formatter: formatter,
		storage:   st,
	}
}

// Execute runs the command
func (lc *ListCommand) Execute(cmd *cobra.Command, args []string) error {
	lc.scanner.SetRules(lc.config.PathsToIgnore, lc.config.TestFilePatterns)
	if err := lc.scanner.UseGitignore(lc.config.ProjectPath); err != nil {
		log.Warn().Err(err).Msg("Ignoring .gitignore")
	}
	tests, err := lc.scanner.Scan(lc.config.GetTestPath())
	if err != nil {
		return err
	}

	tests = lc.filter.FilterByName(tests, lc.config.Flags.NameFilter)

	if len(tests) == 0 {
		color.Yellow("No tests found")
		return nil
	}

	// Mark files that failed in the last run, when there is one.
	var failedPaths map[string]struct{}
	if last, err := lc.storage.Load(); err == nil {
		failedPaths = storage.FailedPaths(lc.config.ProjectPath, last)
	}

	lc.formatter.PrintTestList(tests, lc.config.Flags.TestCases, failedPaths)
	return nil
}
