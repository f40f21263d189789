package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"rtp/internal/command"
	"rtp/internal/config"
	"rtp/internal/domain"
	"rtp/internal/execution"
	"rtp/internal/parser"
	"rtp/internal/source"
	"rtp/internal/storage"
	"rtp/internal/target"
	"rtp/internal/ui"
)

// LocateCommand runs the test method, class or file at a position
type LocateCommand struct {
	config    *config.Config
	scope     domain.Scope
	resolver  *target.Resolver
	builder   *command.Builder
	runner    *execution.Runner
	parser    parser.Parser
	storage   storage.Storage
	formatter *ui.Formatter
	out       io.Writer
}

// NewLocateCommand creates a new LocateCommand for scope
func NewLocateCommand(
	cfg *config.Config,
	scope domain.Scope,
	resolver *target.Resolver,
	builder *command.Builder,
	runner *execution.Runner,
	parser parser.Parser,
	st storage.Storage,
	formatter *ui.Formatter,
) *LocateCommand {
	return &LocateCommand{
		config:    cfg,
		scope:     scope,
		resolver:  resolver,
		builder:   builder,
		runner:    runner,
		parser:    parser,
		storage:   st,
		formatter: formatter,
		out:       os.Stdout,
	}
}

// Execute runs the command
func (lc *LocateCommand) Execute(cmd *cobra.Command, args []string) error {
	pos, err := lc.position(args[0])
	if err != nil {
		return err
	}
	return lc.RunAt(cmd.Context(), pos, lc.scope)
}

func (lc *LocateCommand) position(arg string) (source.Position, error) {
	pos, err := source.ParsePosition(arg)
	if err != nil {
		return source.Position{}, err
	}
	if lc.config.Flags.Offset >= 0 {
		pos.Offset = lc.config.Flags.Offset
	}
	return pos, nil
}

// Resolve loads the file at pos and returns the target of scope with the
// command that runs it.
func (lc *LocateCommand) Resolve(ctx context.Context, pos source.Position, scope domain.Scope) (domain.Target, command.Command, error) {
	buf, err := source.Load(pos.Path)
	if err != nil {
		return domain.Target{}, command.Command{}, err
	}
	buf.Path = lc.projectRelative(pos.Path)

	tgt, err := lc.resolver.Resolve(ctx, buf, pos.Cursor(buf), scope)
	if err != nil {
		return domain.Target{}, command.Command{}, err
	}
	c, err := lc.builder.Build(tgt)
	if err != nil {
		return domain.Target{}, command.Command{}, err
	}
	return tgt, c, nil
}

// RunAt resolves the target at pos, runs it and reports failure locations.
// With --dry-run only the command is printed.
func (lc *LocateCommand) RunAt(ctx context.Context, pos source.Position, scope domain.Scope) error {
	tgt, c, err := lc.Resolve(ctx, pos, scope)
	if err != nil {
		return err
	}
	lc.formatter.PrintTarget(tgt, c.String())
	if lc.config.Flags.DryRun {
		return nil
	}

	c.Env = append(c.Env, lc.runner.WorkerEnv(0)...)
	result := lc.runner.Run(ctx, c, tgt.File, lc.out)
	if result.Error != nil && result.Output == "" {
		return fmt.Errorf("failed to run %s: %w", tgt.Name(), result.Error)
	}

	var failures []domain.TestFailure
	if !result.Success {
		failures = lc.parser.ParseFailure(result)
	}
	if err := lc.storage.Save([]domain.TestResult{result}, failures, result.Duration, 1); err != nil {
		return fmt.Errorf("failed to save test results: %w", err)
	}

	passed, failed := lc.parser.ParseTestCounts(result)
	lc.formatter.PrintResult(result, passed, failed)
	lc.formatter.PrintLocations(failures)
	if !result.Success && !hasLocation(failures) {
		lc.formatter.PrintReferences(parser.Locations(result.Output))
	}

	if !result.Success {
		return ErrTestsFailed
	}
	return nil
}

func hasLocation(failures []domain.TestFailure) bool {
	for _, f := range failures {
		if f.File != "" {
			return true
		}
	}
	return false
}

// projectRelative returns path relative to the project root, where test
// commands run, or the absolute path when it lies outside the project.
func (lc *LocateCommand) projectRelative(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	root, err := filepath.Abs(lc.config.ProjectPath)
	if err != nil {
		return abs
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return abs
	}
	return rel
}
