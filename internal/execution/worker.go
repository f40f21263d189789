package execution

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"rtp/internal/config"
	"rtp/internal/domain"
)

// FileRunner runs one test file on a worker
type FileRunner interface {
	RunFile(ctx context.Context, testPath string, workerID int) domain.TestResult
}

// Counter extracts passed and failed test counts from a result
type Counter interface {
	ParseTestCounts(result domain.TestResult) (passed, failed int)
}

// Progress receives run progress
type Progress interface {
	Update(completed, passed, failed int)
	Finish()
}

// WorkerPool runs test files in parallel, one process per file
type WorkerPool struct {
	config    *config.Config
	runner    FileRunner
	scheduler Scheduler
	counter   Counter
	progress  Progress
}

// NewWorkerPool creates a new WorkerPool
func NewWorkerPool(cfg *config.Config, runner FileRunner, scheduler Scheduler, counter Counter) *WorkerPool {
	return &WorkerPool{
		config:    cfg,
		runner:    runner,
		scheduler: scheduler,
		counter:   counter,
	}
}

// SetProgress sets the progress reporter for the worker pool
func (wp *WorkerPool) SetProgress(progress Progress) {
	wp.progress = progress
}

// Execute runs all test files (no fail-fast).
func (wp *WorkerPool) Execute(ctx context.Context, tests []string) ([]domain.TestResult, time.Duration, error) {
	return wp.ExecuteWithOptions(ctx, tests, false)
}

// ExecuteWithOptions runs test files; with failFast, no new file is started
// after the first failure.
func (wp *WorkerPool) ExecuteWithOptions(ctx context.Context, tests []string, failFast bool) ([]domain.TestResult, time.Duration, error) {
	if len(tests) == 0 {
		return nil, 0, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workerCount := wp.config.Processors
	if workerCount <= 0 {
		workerCount = 1
	}
	if workerCount > len(tests) {
		workerCount = len(tests)
	}
	buckets := wp.scheduler.Schedule(tests, workerCount)

	results := make(chan domain.TestResult, len(tests))
	var mu sync.Mutex
	var completed, passedCases, failedCases int
	startTime := time.Now()

	var wg sync.WaitGroup
	for i, bucket := range buckets {
		wg.Add(1)
		go func(workerID int, files []string) {
			defer wg.Done()
			for _, testPath := range files {
				if ctx.Err() != nil {
					return
				}
				result := wp.runner.RunFile(ctx, testPath, workerID)
				if ctx.Err() != nil && !result.Success {
					// Killed by fail-fast cancellation, not a real failure.
					return
				}
				results <- result

				mu.Lock()
				completed++
				p, f := wp.count(result)
				passedCases += p
				failedCases += f
				if wp.progress != nil {
					wp.progress.Update(completed, passedCases, failedCases)
				}
				mu.Unlock()

				if failFast && !result.Success {
					log.Debug().Str("file", testPath).Int("worker", workerID).Msg("Stopping after first failure")
					cancel()
				}
			}
		}(i+1, bucket)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var allResults []domain.TestResult
	for result := range results {
		allResults = append(allResults, result)
	}
	if wp.progress != nil {
		wp.progress.Finish()
	}
	return allResults, time.Since(startTime), nil
}

func (wp *WorkerPool) count(result domain.TestResult) (passed, failed int) {
	if wp.counter != nil {
		return wp.counter.ParseTestCounts(result)
	}
	if result.Success {
		return 1, 0
	}
	return 0, 1
}
