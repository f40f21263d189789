package execution

// Scheduler distributes test files across workers
type Scheduler interface {
	Schedule(tests []string, workerCount int) [][]string
}

// RoundRobinScheduler distributes test files evenly across workers
type RoundRobinScheduler struct{}

// NewRoundRobinScheduler creates a new RoundRobinScheduler
func NewRoundRobinScheduler() *RoundRobinScheduler {
	return &RoundRobinScheduler{}
}

// Schedule assigns file i to worker i mod workerCount.
func (s *RoundRobinScheduler) Schedule(tests []string, workerCount int) [][]string {
	if workerCount <= 0 {
		workerCount = 1
	}

	distribution := make([][]string, workerCount)
	for i, test := range tests {
		w := i % workerCount
		distribution[w] = append(distribution[w], test)
	}
	return distribution
}
