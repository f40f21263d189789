package migration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"rtp/internal/command"
	"rtp/internal/config"
	"rtp/internal/execution"
)

type fakeDatabases struct {
	workers []int
	err     error
}

func (f fakeDatabases) EnsureDatabases(ctx context.Context, workerCount int) ([]int, error) {
	return f.workers, f.err
}

type countingProgress struct {
	mu       sync.Mutex
	last     [3]int
	finished bool
}

func (p *countingProgress) Update(completed, passed, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = [3]int{completed, passed, failed}
}

func (p *countingProgress) Finish() { p.finished = true }

func newTestProject(t *testing.T, script string) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.ProjectPath = t.TempDir()
	cfg.BundleExec = config.BundleNever

	rails := filepath.Join(cfg.ProjectPath, "bin", "rails")
	if err := os.MkdirAll(filepath.Dir(rails), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(rails, []byte("#!/bin/sh\n"+script+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func newTestMigrator(cfg *config.Config, databases DatabaseEnsurer) *RailsMigrator {
	return NewRailsMigrator(cfg, databases, execution.NewRunner(cfg, command.NewBuilder(cfg)))
}

func TestRailsMigrator_Command(t *testing.T) {
	cfg := newTestProject(t, "exit 0")
	m := newTestMigrator(cfg, nil)

	tests := []struct {
		name    string
		noFresh bool
		task    string
	}{
		{"prepare", false, TaskPrepare},
		{"migrate", true, TaskMigrate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := m.Command(2, tt.noFresh)
			if strings.Join(cmd.Args, " ") != "bin/rails "+tt.task {
				t.Errorf("unexpected args %v", cmd.Args)
			}
			for _, want := range []string{"RAILS_ENV=test", "DB_DATABASE=testing_2", "TEST_ENV_NUMBER=2"} {
				if !slices.Contains(cmd.Env, want) {
					t.Errorf("expected %s in env %v", want, cmd.Env)
				}
			}
			if cmd.Dir != cfg.ProjectPath {
				t.Errorf("expected dir %s, got %s", cfg.ProjectPath, cmd.Dir)
			}
		})
	}

	t.Run("bundle exec", func(t *testing.T) {
		cfg.BundleExec = config.BundleAlways
		defer func() { cfg.BundleExec = config.BundleNever }()
		cmd := m.Command(1, false)
		if strings.Join(cmd.Args, " ") != "bundle exec bin/rails "+TaskPrepare {
			t.Errorf("unexpected args %v", cmd.Args)
		}
	})
}

func TestRailsMigrator_Run(t *testing.T) {
	t.Run("prepares every worker", func(t *testing.T) {
		cfg := newTestProject(t, `echo "$DB_DATABASE $1" >> prepared.log`)
		m := newTestMigrator(cfg, fakeDatabases{workers: []int{1, 2, 3}})
		progress := &countingProgress{}
		m.SetProgress(func(total int) Progress { return progress })

		if err := m.Run(context.Background(), 3, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(filepath.Join(cfg.ProjectPath, "prepared.log"))
		if err != nil {
			t.Fatalf("expected prepared.log: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		slices.Sort(lines)
		expected := []string{"testing_1 db:test:prepare", "testing_2 db:test:prepare", "testing_3 db:test:prepare"}
		if !slices.Equal(lines, expected) {
			t.Errorf("expected %v, got %v", expected, lines)
		}
		if progress.last != [3]int{3, 3, 0} || !progress.finished {
			t.Errorf("unexpected progress %v finished=%v", progress.last, progress.finished)
		}
	})

	t.Run("reports failed workers", func(t *testing.T) {
		cfg := newTestProject(t, `[ "$TEST_ENV_NUMBER" = "2" ] && exit 1; exit 0`)
		m := newTestMigrator(cfg, fakeDatabases{workers: []int{1, 2}})

		err := m.Run(context.Background(), 2, true)
		if err == nil || !strings.Contains(err.Error(), "1 worker(s)") {
			t.Errorf("expected failure for one worker, got %v", err)
		}
	})

	t.Run("database error", func(t *testing.T) {
		cfg := newTestProject(t, "exit 0")
		m := newTestMigrator(cfg, fakeDatabases{err: errors.New("connection refused")})
		if err := m.Run(context.Background(), 2, false); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("no databases", func(t *testing.T) {
		cfg := newTestProject(t, "exit 0")
		m := newTestMigrator(cfg, fakeDatabases{})
		if err := m.Run(context.Background(), 2, false); err == nil {
			t.Error("expected error")
		}
	})
}
