package migration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"

	"rtp/internal/command"
	"rtp/internal/config"
	"rtp/internal/domain"
	"rtp/internal/execution"
)

// Rails tasks that bring a worker database up to date.
const (
	TaskPrepare = "db:test:prepare"
	TaskMigrate = "db:migrate"
)

// Progress receives per-worker completion
type Progress interface {
	Update(completed, passed, failed int)
	Finish()
}

// RailsMigrator prepares every worker database with the project's rails binstub
type RailsMigrator struct {
	config    *config.Config
	databases DatabaseEnsurer
	runner    *execution.Runner
	progress  func(total int) Progress
}

// NewRailsMigrator creates a new RailsMigrator
func NewRailsMigrator(cfg *config.Config, databases DatabaseEnsurer, runner *execution.Runner) *RailsMigrator {
	return &RailsMigrator{config: cfg, databases: databases, runner: runner}
}

// SetProgress installs a factory for the progress reporter of each run
func (rm *RailsMigrator) SetProgress(progress func(total int) Progress) {
	rm.progress = progress
}

// Command returns the command preparing the database of one worker.
// Without noFresh the schema is reloaded; with it only pending migrations run.
func (rm *RailsMigrator) Command(workerID int, noFresh bool) command.Command {
	task := TaskPrepare
	if noFresh {
		task = TaskMigrate
	}

	var args []string
	if rm.config.UseBundler() {
		args = append(args, "bundle", "exec")
	}
	args = append(args, rm.config.GetRailsPath(), task)

	env := append([]string{"RAILS_ENV=test"}, rm.runner.WorkerEnv(workerID)...)
	return command.Command{Dir: rm.config.ProjectPath, Args: args, Env: env}
}

// Run prepares the databases of workerCount workers in parallel
func (rm *RailsMigrator) Run(ctx context.Context, workerCount int, noFresh bool) error {
	workers, err := rm.databases.EnsureDatabases(ctx, workerCount)
	if err != nil {
		return fmt.Errorf("failed to check databases: %w", err)
	}
	if len(workers) == 0 {
		return fmt.Errorf("no test databases available")
	}

	var progress Progress
	if rm.progress != nil {
		progress = rm.progress(len(workers))
	}

	results := make(chan domain.PrepareResult, len(workers))
	var wg sync.WaitGroup
	start := time.Now()

	for _, id := range workers {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			results <- rm.prepare(ctx, workerID, noFresh)
		}(id)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var failed []domain.PrepareResult
	var completed, ok int
	for result := range results {
		completed++
		if result.Success {
			ok++
		} else {
			failed = append(failed, result)
		}
		if progress != nil {
			progress.Update(completed, ok, len(failed))
		}
	}
	if progress != nil {
		progress.Finish()
	}

	if len(failed) > 0 {
		sort.Slice(failed, func(i, j int) bool { return failed[i].WorkerID < failed[j].WorkerID })
		color.Red("✗ Database preparation failed for %d worker(s)", len(failed))
		for _, result := range failed {
			color.Red("  Worker %d (DB: %s): %v", result.WorkerID, result.Database, result.Error)
			log.Debug().Int("worker", result.WorkerID).Str("output", result.Output).Msg("Preparation output")
		}
		return fmt.Errorf("database preparation failed for %d worker(s)", len(failed))
	}

	color.Green("✓ Prepared %d test database(s) in %s", len(workers), time.Since(start).Round(time.Millisecond))
	return nil
}

func (rm *RailsMigrator) prepare(ctx context.Context, workerID int, noFresh bool) domain.PrepareResult {
	cmd := rm.Command(workerID, noFresh)
	result := rm.runner.Run(ctx, cmd, "", nil)
	return domain.PrepareResult{
		WorkerID: workerID,
		Database: rm.config.GetDatabaseName(workerID),
		Success:  result.Success,
		Output:   result.Output,
		Error:    result.Error,
		Duration: result.Duration,
	}
}
