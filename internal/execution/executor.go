package execution

import (
	"context"
	"time"

	"rtp/internal/domain"
)

// Executor executes test files and returns results
type Executor interface {
	SetProgress(progress Progress)
	ExecuteWithOptions(ctx context.Context, tests []string, failFast bool) ([]domain.TestResult, time.Duration, error)
}
