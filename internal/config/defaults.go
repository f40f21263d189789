package config

const (
	// DefaultProjectPath is the default project path
	DefaultProjectPath = "."
	// DefaultTestPath is the default test path
	DefaultTestPath = "test"
	// DefaultOutputJSONFile is the default output JSON file name
	DefaultOutputJSONFile = "test-results.json"
	// DefaultOutputJSONDir is the default output directory
	DefaultOutputJSONDir = "tmp/rtp"
	// DefaultProcessors is the default number of processors
	DefaultProcessors = 4
	// DefaultConfigFile is the project configuration file name
	DefaultConfigFile = ".rtp.toml"
	// DefaultRubyBin is the ruby interpreter used to run test files
	DefaultRubyBin = "ruby"
	// DefaultDatabasePrefix prefixes per-worker test database names
	DefaultDatabasePrefix = "testing"
	// DefaultWatchDebounceMs is the delay before a watched change reruns tests
	DefaultWatchDebounceMs = 300
)

// Test frameworks understood by the command builder.
const (
	FrameworkTestUnit = "testunit"
	FrameworkMinitest = "minitest"
	FrameworkRails    = "rails"
)

// Values for BundleExec.
const (
	BundleAuto   = "auto"
	BundleAlways = "always"
	BundleNever  = "never"
)

// DefaultLoadPaths are passed to ruby with -I
var DefaultLoadPaths = []string{"lib", "test"}

// DefaultTestFilePatterns match test file names during discovery
var DefaultTestFilePatterns = []string{"*_test.rb", "test_*.rb"}

// DefaultPathsToIgnore are the default directories to ignore when scanning for tests
var DefaultPathsToIgnore = []string{
	"vendor",
	"node_modules",
	"public",
	"tmp",
	"log",
	"coverage",
	"storage",
	"db",
}
