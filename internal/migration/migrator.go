package migration

import "context"

// Migrator prepares the per-worker test databases
type Migrator interface {
	Run(ctx context.Context, workerCount int, noFresh bool) error
}

// DatabaseEnsurer makes sure every worker has a database to run against
type DatabaseEnsurer interface {
	EnsureDatabases(ctx context.Context, workerCount int) ([]int, error)
}
