package domain

import "time"

// PrepareResult is the outcome of preparing one worker's test database
type PrepareResult struct {
	WorkerID int
	Database string
	Success  bool
	Output   string
	Error    error
	Duration time.Duration
}
