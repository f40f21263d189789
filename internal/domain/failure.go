package domain

// Failure kinds reported by the Ruby test frameworks
const (
	KindFailure = "failure"
	KindError   = "error"
)

// TestFailure represents a failed test case
type TestFailure struct {
	TestName     string   `json:"test_name"`
	Class        string   `json:"class"`
	Kind         string   `json:"kind"`
	FilePath     string   `json:"file_path"`
	ErrorDetails string   `json:"error_details,omitempty"`
	StackTrace   []string `json:"stack_trace"`
	File         string   `json:"file"`
	Line         int      `json:"line"`
	Message      string   `json:"message"`
	Resolved     bool     `json:"resolved,omitempty"` // Track if test case is marked as resolved
}

// Location is a file:line reference found in test output
type Location struct {
	File string `json:"file"`
	Line int    `json:"line"`
}
