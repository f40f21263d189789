package domain

// Scope selects how much of a test file to run
type Scope string

const (
	ScopeMethod Scope = "method"
	ScopeClass  Scope = "class"
	ScopeFile   Scope = "file"
)

// Target is the test construct resolved from a cursor position
type Target struct {
	Scope  Scope
	File   string // Path to the test file
	Class  string // Test class, empty for ScopeFile
	Method string // Test method, set only for ScopeMethod
	Line   int    // Line of the resolved declaration, 0 for ScopeFile
}

// Name returns a human readable name for the target.
func (t Target) Name() string {
	switch t.Scope {
	case ScopeMethod:
		return t.Class + "#" + t.Method
	case ScopeClass:
		return t.Class
	default:
		return t.File
	}
}

// TestCase represents a single test method within a test file
type TestCase struct {
	Name     string // Test method name
	Class    string // Enclosing test class
	Line     int    // Line of the declaration
	FilePath string // Path to the test file containing this case
}
