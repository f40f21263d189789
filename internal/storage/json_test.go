package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rtp/internal/config"
	"rtp/internal/domain"
)

func newTestStorage(t *testing.T) *JSONStorage {
	t.Helper()
	cfg := config.New()
	cfg.ProjectPath = t.TempDir()
	return NewJSONStorage(cfg)
}

func TestJSONStorage_SaveAndLoad(t *testing.T) {
	s := newTestStorage(t)

	results := []domain.TestResult{
		{TestPath: "test/a_test.rb", Success: true},
		{TestPath: "test/b_test.rb", Success: false},
		{TestPath: "test/c_test.rb", Success: true},
	}
	failures := []domain.TestFailure{
		{TestName: "test_one", Class: "BTest", Kind: domain.KindFailure, FilePath: "test/b_test.rb", File: "test/b_test.rb", Line: 4},
		{TestName: "test_two", Class: "BTest", Kind: domain.KindError, FilePath: "test/b_test.rb"},
	}

	if err := s.Save(results, failures, 1500*time.Millisecond, 2); err != nil {
		t.Fatalf("Save: %v", err)
	}

	output, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	meta := output.Meta
	if meta.TotalTestFiles != 3 || meta.PassedTestFiles != 2 || meta.FailedTestFiles != 1 {
		t.Errorf("unexpected file counts %+v", meta)
	}
	if meta.FailedTestCases != 2 || meta.Workers != 2 || meta.DurationSeconds != 1.5 {
		t.Errorf("unexpected meta %+v", meta)
	}
	if len(output.Details) != 2 || output.Details[1].Class != "BTest" || output.Details[1].Line != 4 {
		t.Errorf("expected failures ordered by line, got %+v", output.Details)
	}
	if failures[0].TestName != "test_one" {
		t.Error("Save must not reorder the caller's slice")
	}
}

func TestJSONStorage_SaveOutput(t *testing.T) {
	s := newTestStorage(t)

	output := &domain.TestResultsOutput{
		Details: []domain.TestFailure{{TestName: "test_one", Resolved: true}},
	}
	if err := s.SaveOutput(output); err != nil {
		t.Fatalf("SaveOutput: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.Details[0].Resolved {
		t.Error("expected resolved flag to round trip")
	}

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(s.cfg.GetOutputPath()), ".results-*"))
	if err != nil || len(leftovers) != 0 {
		t.Errorf("expected no temp files, got %v (%v)", leftovers, err)
	}
}

func TestJSONStorage_LoadMissing(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Load()
	if err == nil {
		t.Fatal("expected error for missing results file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestFailedPaths(t *testing.T) {
	output := &domain.TestResultsOutput{
		Details: []domain.TestFailure{
			{FilePath: "/app/test/a_test.rb"},
			{FilePath: "/app/test/a_test.rb"},
			{FilePath: "/app/test/b_test.rb", Resolved: true},
			{FilePath: "test/c_test.rb"},
			{FilePath: ""},
		},
	}

	got := FailedPaths("/app", output)
	if len(got) != 2 {
		t.Fatalf("expected 2 paths, got %v", got)
	}
	for _, want := range []string{"test/a_test.rb", "test/c_test.rb"} {
		if _, ok := got[want]; !ok {
			t.Errorf("expected %q in %v", want, got)
		}
	}

	if got := FailedPaths("/app", nil); len(got) != 0 {
		t.Errorf("expected no paths for nil output, got %v", got)
	}
}

func TestPathKey(t *testing.T) {
	tests := []struct {
		project, path, expected string
	}{
		{"/app", "/app/test/user_test.rb", "test/user_test.rb"},
		{".", "test/user_test.rb", "test/user_test.rb"},
		{".", "./test/user_test.rb", "test/user_test.rb"},
		{"/app", "/other/user_test.rb", "/other/user_test.rb"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := PathKey(tt.project, tt.path); got != tt.expected {
				t.Errorf("PathKey(%q, %q) = %q, want %q", tt.project, tt.path, got, tt.expected)
			}
		})
	}
}
