package execution

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"rtp/internal/command"
	"rtp/internal/config"
	"rtp/internal/domain"
)

func TestRoundRobinScheduler_Schedule(t *testing.T) {
	s := NewRoundRobinScheduler()

	got := s.Schedule([]string{"a", "b", "c", "d", "e"}, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(got))
	}
	if strings.Join(got[0], ",") != "a,c,e" || strings.Join(got[1], ",") != "b,d" {
		t.Errorf("unexpected distribution %v", got)
	}

	if got := s.Schedule([]string{"a"}, 0); len(got) != 1 || got[0][0] != "a" {
		t.Errorf("zero workers should fall back to one, got %v", got)
	}
}

type fakeRunner struct {
	mu      sync.Mutex
	failing map[string]bool
	ran     []string
	workers map[string]int
}

func (f *fakeRunner) RunFile(ctx context.Context, testPath string, workerID int) domain.TestResult {
	f.mu.Lock()
	f.ran = append(f.ran, testPath)
	if f.workers == nil {
		f.workers = make(map[string]int)
	}
	f.workers[testPath] = workerID
	f.mu.Unlock()
	return domain.TestResult{TestPath: testPath, Success: !f.failing[testPath]}
}

type recordingProgress struct {
	mu       sync.Mutex
	updates  int
	last     [3]int
	finished bool
}

func (p *recordingProgress) Update(completed, passed, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates++
	p.last = [3]int{completed, passed, failed}
}

func (p *recordingProgress) Finish() {
	p.finished = true
}

func TestWorkerPool_Execute(t *testing.T) {
	cfg := config.New()
	cfg.Processors = 2
	runner := &fakeRunner{failing: map[string]bool{"b_test.rb": true}}
	pool := NewWorkerPool(cfg, runner, NewRoundRobinScheduler(), nil)
	progress := &recordingProgress{}
	pool.SetProgress(progress)

	tests := []string{"a_test.rb", "b_test.rb", "c_test.rb"}
	results, _, err := pool.Execute(context.Background(), tests)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	if !progress.finished {
		t.Error("expected progress to be finished")
	}
	if progress.last != [3]int{3, 2, 1} {
		t.Errorf("expected final progress 3/2/1, got %v", progress.last)
	}

	if runner.workers["a_test.rb"] != 1 || runner.workers["b_test.rb"] != 2 || runner.workers["c_test.rb"] != 1 {
		t.Errorf("files not assigned round-robin: %v", runner.workers)
	}
}

func TestWorkerPool_ExecuteFailFast(t *testing.T) {
	cfg := config.New()
	cfg.Processors = 1
	runner := &fakeRunner{failing: map[string]bool{"b_test.rb": true}}
	pool := NewWorkerPool(cfg, runner, NewRoundRobinScheduler(), nil)

	results, _, err := pool.ExecuteWithOptions(context.Background(), []string{"a_test.rb", "b_test.rb", "c_test.rb"}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected to stop after the failure, got %d results", len(results))
	}
	if slices.Contains(runner.ran, "c_test.rb") {
		t.Error("c_test.rb should not run after a failure")
	}
}

func TestWorkerPool_ExecuteEmpty(t *testing.T) {
	pool := NewWorkerPool(config.New(), &fakeRunner{}, NewRoundRobinScheduler(), nil)
	results, duration, err := pool.Execute(context.Background(), nil)
	if err != nil || results != nil || duration != 0 {
		t.Errorf("expected empty run, got %v %v %v", results, duration, err)
	}
}

func TestRunner_Run(t *testing.T) {
	cfg := config.New()
	cfg.ProjectPath = t.TempDir()
	runner := NewRunner(cfg, command.NewBuilder(cfg))

	t.Run("captures output and success", func(t *testing.T) {
		var streamed strings.Builder
		cmd := command.Command{Dir: cfg.ProjectPath, Args: []string{"sh", "-c", "echo out; echo err >&2"}}
		result := runner.Run(context.Background(), cmd, "a_test.rb", &streamed)
		if !result.Success {
			t.Fatalf("expected success, got %v", result.Error)
		}
		if !strings.Contains(result.Output, "out") || !strings.Contains(result.Output, "err") {
			t.Errorf("expected combined output, got %q", result.Output)
		}
		if streamed.String() != result.Output {
			t.Errorf("streamed output %q differs from captured %q", streamed.String(), result.Output)
		}
	})

	t.Run("reports failure", func(t *testing.T) {
		cmd := command.Command{Dir: cfg.ProjectPath, Args: []string{"sh", "-c", "exit 1"}}
		result := runner.Run(context.Background(), cmd, "a_test.rb", nil)
		if result.Success || result.Error == nil {
			t.Error("expected failure")
		}
	})

	t.Run("passes extra environment", func(t *testing.T) {
		cmd := command.Command{Dir: cfg.ProjectPath, Args: []string{"sh", "-c", "echo $TEST_ENV_NUMBER"}, Env: []string{"TEST_ENV_NUMBER=7"}}
		result := runner.Run(context.Background(), cmd, "a_test.rb", nil)
		if strings.TrimSpace(result.Output) != "7" {
			t.Errorf("expected 7, got %q", result.Output)
		}
	})

	t.Run("empty command", func(t *testing.T) {
		result := runner.Run(context.Background(), command.Command{}, "a_test.rb", nil)
		if result.Success || result.Error == nil {
			t.Error("expected error for empty command")
		}
	})
}

func TestRunner_WorkerEnv(t *testing.T) {
	cfg := config.New()
	cfg.ProjectPath = t.TempDir()
	runner := NewRunner(cfg, command.NewBuilder(cfg))

	if env := runner.WorkerEnv(0); len(env) != 0 {
		t.Errorf("expected no extra env without .env and worker, got %v", env)
	}

	if err := os.WriteFile(filepath.Join(cfg.ProjectPath, ".env"), []byte("RAILS_ENV=test\nB=2\n"), 0644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	env := runner.WorkerEnv(3)
	expected := []string{"B=2", "RAILS_ENV=test", "DB_DATABASE=testing_3", "TEST_ENV_NUMBER=3"}
	if strings.Join(env, " ") != strings.Join(expected, " ") {
		t.Errorf("expected %v, got %v", expected, env)
	}
}
