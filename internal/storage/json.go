package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"rtp/internal/domain"
)

// Save records a run: meta computed from results, failures ordered by file
// and line.
func (s *JSONStorage) Save(results []domain.TestResult, failures []domain.TestFailure, duration time.Duration, workers int) error {
	details := make([]domain.TestFailure, len(failures))
	copy(details, failures)
	sort.SliceStable(details, func(i, j int) bool {
		if details[i].FilePath != details[j].FilePath {
			return details[i].FilePath < details[j].FilePath
		}
		return details[i].Line < details[j].Line
	})

	return s.SaveOutput(&domain.TestResultsOutput{
		Meta:    newMeta(results, len(failures), duration, workers),
		Details: details,
	})
}

func newMeta(results []domain.TestResult, failedCases int, duration time.Duration, workers int) domain.TestResultsMeta {
	meta := domain.TestResultsMeta{
		TotalTestFiles:  len(results),
		FailedTestCases: failedCases,
		Duration:        duration.Round(time.Millisecond).String(),
		DurationSeconds: duration.Seconds(),
		Workers:         workers,
		Timestamp:       time.Now().Format(time.RFC3339),
	}
	for _, r := range results {
		if r.Success {
			meta.PassedTestFiles++
		} else {
			meta.FailedTestFiles++
		}
	}
	return meta
}

// Load reads the last saved run. A missing file wraps os.ErrNotExist.
func (s *JSONStorage) Load() (*domain.TestResultsOutput, error) {
	path := s.cfg.GetOutputPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("no saved results at %s: %w", path, err)
	}
	var output domain.TestResultsOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &output, nil
}

// SaveOutput replaces the saved run with output. The file is written to a
// temp file and renamed into place, so readers never see a partial write.
func (s *JSONStorage) SaveOutput(output *domain.TestResultsOutput) error {
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	path := s.cfg.GetOutputPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".results-*.json")
	if err != nil {
		return fmt.Errorf("create temp results file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
