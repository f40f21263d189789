package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"rtp/internal/config"
	"rtp/internal/target"
	"rtp/internal/watch"
)

// WatchCommand reruns the test at a position whenever Ruby files change
type WatchCommand struct {
	config *config.Config
	locate *LocateCommand
}

// NewWatchCommand creates a new WatchCommand
func NewWatchCommand(cfg *config.Config, locate *LocateCommand) *WatchCommand {
	return &WatchCommand{config: cfg, locate: locate}
}

// Execute runs the command until interrupted
func (wc *WatchCommand) Execute(cmd *cobra.Command, args []string) error {
	scope, err := target.ParseScope(wc.config.Flags.Scope)
	if err != nil {
		return err
	}
	pos, err := wc.locate.position(args[0])
	if err != nil {
		return err
	}

	// The target is resolved again on every run so edits that move it are followed.
	run := func(ctx context.Context) {
		if err := wc.locate.RunAt(ctx, pos, scope); err != nil && !errors.Is(err, ErrTestsFailed) {
			color.Red("✗ %v", err)
		}
		color.Cyan("\nWatching for changes... (Ctrl+C to stop)")
	}

	ctx := cmd.Context()
	run(ctx)

	w := watch.New(wc.config, wc.roots(pos.Path)...)
	return w.Run(ctx, func(ctx context.Context, path string) {
		log.Debug().Str("file", path).Msg("Rerunning after change")
		fmt.Print("\033[2J\033[H")
		run(ctx)
	})
}

// roots returns the watched file plus the project's existing load paths
func (wc *WatchCommand) roots(file string) []string {
	roots := []string{file}
	for _, dir := range wc.config.LoadPaths {
		path := filepath.Join(wc.config.ProjectPath, dir)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			roots = append(roots, path)
		}
	}
	return roots
}
