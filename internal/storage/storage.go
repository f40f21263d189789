package storage

import (
	"path/filepath"
	"strings"
	"time"

	"rtp/internal/config"
	"rtp/internal/domain"
)

// Storage persists and loads test run results for the faills viewer and --failed reruns.
type Storage interface {
	Save(results []domain.TestResult, failures []domain.TestFailure, duration time.Duration, workers int) error
	Load() (*domain.TestResultsOutput, error)
	// SaveOutput writes the full output (e.g. after partial re-run updates).
	SaveOutput(output *domain.TestResultsOutput) error
}

// JSONStorage stores results in a JSON file under the configured output path.
type JSONStorage struct {
	cfg *config.Config
}

// NewJSONStorage returns a Storage that reads/writes the config's output JSON path.
func NewJSONStorage(cfg *config.Config) *JSONStorage {
	return &JSONStorage{cfg: cfg}
}

// FailedPaths returns the PathKey of every test file with an unresolved
// failure in output.
func FailedPaths(projectPath string, output *domain.TestResultsOutput) map[string]struct{} {
	paths := make(map[string]struct{})
	if output == nil {
		return paths
	}
	for _, failure := range output.Details {
		if failure.Resolved || failure.FilePath == "" {
			continue
		}
		paths[PathKey(projectPath, failure.FilePath)] = struct{}{}
	}
	return paths
}

// PathKey returns a project relative, slash separated key used to match test
// files from discovery against file paths saved with failures.
func PathKey(projectPath, path string) string {
	p := path
	if projectPath != "" {
		base := projectPath
		if filepath.IsAbs(path) {
			if abs, err := filepath.Abs(projectPath); err == nil {
				base = abs
			}
		}
		if rel, err := filepath.Rel(base, path); err == nil && !strings.HasPrefix(rel, "..") {
			p = rel
		}
	}
	return filepath.ToSlash(filepath.Clean(p))
}
