package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds all configuration for the application
type Config struct {
	// Project settings
	ProjectPath string `toml:"-"`
	TestPath    string `toml:"test_path"`

	// Output settings
	OutputJSONFile string `toml:"output_file"`
	OutputJSONDir  string `toml:"output_dir"`

	// Execution settings
	Processors int `toml:"processors"`

	// Ruby settings
	Framework  string   `toml:"framework"`
	RubyBin    string   `toml:"ruby"`
	LoadPaths  []string `toml:"load_paths"`
	BundleExec string   `toml:"bundle_exec"`

	// Discovery settings
	TestFilePatterns []string `toml:"test_file_patterns"`
	PathsToIgnore    []string `toml:"ignore"`

	// Per-worker test databases
	DatabasePrefix string `toml:"database_prefix"`

	WatchDebounceMs int    `toml:"watch_debounce_ms"`
	LogLevel        string `toml:"log_level"`

	// Command flags
	Flags Flags `toml:"-"`
}

// Flags holds command-line flags
type Flags struct {
	Processors    int
	Migrate       bool
	NoFresh       bool
	TestPath      string
	NameFilter    string
	TestCases     bool
	FailFast      bool
	OnlyFailed    bool
	RerunFailures bool
	OpenFaills    bool
	DryRun        bool
	Offset        int
	Scope         string
	Framework     string
	Verbose       bool
}

// New creates a new Config with defaults
func New() *Config {
	cfg := &Config{
		ProjectPath:     DefaultProjectPath,
		TestPath:        DefaultTestPath,
		OutputJSONFile:  DefaultOutputJSONFile,
		OutputJSONDir:   DefaultOutputJSONDir,
		Processors:      DefaultProcessors,
		Framework:       FrameworkMinitest,
		RubyBin:         DefaultRubyBin,
		BundleExec:      BundleAuto,
		DatabasePrefix:  DefaultDatabasePrefix,
		WatchDebounceMs: DefaultWatchDebounceMs,
		LogLevel:        "warn",
		Flags:           Flags{Processors: DefaultProcessors, Offset: -1},
	}
	cfg.LoadPaths = slices.Clone(DefaultLoadPaths)
	cfg.TestFilePatterns = slices.Clone(DefaultTestFilePatterns)
	cfg.PathsToIgnore = slices.Clone(DefaultPathsToIgnore)
	return cfg
}

// Load creates a config for projectPath, overlaying the project's .rtp.toml
// (when present) and RTP_* environment variables on top of the defaults.
func Load(projectPath string) (*Config, error) {
	cfg := New()
	if projectPath != "" {
		cfg.ProjectPath = projectPath
	}

	path := filepath.Join(cfg.ProjectPath, DefaultConfigFile)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RTP_FRAMEWORK"); v != "" {
		cfg.Framework = strings.ToLower(v)
	}
	if v := os.Getenv("RTP_RUBY"); v != "" {
		cfg.RubyBin = v
	}
	if v := os.Getenv("RTP_BUNDLE_EXEC"); v != "" {
		cfg.BundleExec = strings.ToLower(v)
	}
	if v := os.Getenv("RTP_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("DB_DATABASE_PREFIX"); v != "" {
		cfg.DatabasePrefix = v
	}
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	var errs []error

	switch c.Framework {
	case FrameworkTestUnit, FrameworkMinitest, FrameworkRails:
	default:
		errs = append(errs, fmt.Errorf("framework=%q must be one of testunit, minitest, rails", c.Framework))
	}

	switch c.BundleExec {
	case BundleAuto, BundleAlways, BundleNever:
	default:
		errs = append(errs, fmt.Errorf("bundle_exec=%q must be one of auto, always, never", c.BundleExec))
	}

	if c.RubyBin == "" {
		errs = append(errs, errors.New("ruby: interpreter must not be empty"))
	}
	if c.Processors < 1 {
		errs = append(errs, fmt.Errorf("processors=%d must be at least 1", c.Processors))
	}
	if len(c.TestFilePatterns) == 0 {
		errs = append(errs, errors.New("test_file_patterns: at least one pattern is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ApplyFlags copies parsed command-line flags into the config.
func (c *Config) ApplyFlags(flags Flags) {
	c.Flags = flags
	if flags.Processors > 0 {
		c.Processors = flags.Processors
	}
	if flags.Framework != "" {
		c.Framework = strings.ToLower(flags.Framework)
	}
	if flags.Verbose {
		c.LogLevel = "debug"
	}
}

// GetTestPath returns the test path, using flag if provided
func (c *Config) GetTestPath() string {
	if c.Flags.TestPath != "" {
		if filepath.IsAbs(c.Flags.TestPath) {
			return c.Flags.TestPath
		}
		return filepath.Join(c.ProjectPath, c.Flags.TestPath)
	}

	return filepath.Join(c.ProjectPath, c.TestPath)
}

// GetOutputPath returns the absolute path to the results JSON file so every
// command reads and writes the same file regardless of cwd.
func (c *Config) GetOutputPath() string {
	p := filepath.Join(c.ProjectPath, c.OutputJSONDir, c.OutputJSONFile)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// GetRailsPath returns the path to the rails binstub
func (c *Config) GetRailsPath() string {
	return filepath.Join("bin", "rails")
}

// GetEnvPath returns the path to the project .env file
func (c *Config) GetEnvPath() string {
	return filepath.Join(c.ProjectPath, ".env")
}

// UseBundler reports whether commands are prefixed with `bundle exec`.
func (c *Config) UseBundler() bool {
	switch c.BundleExec {
	case BundleAlways:
		return true
	case BundleNever:
		return false
	}
	_, err := os.Stat(filepath.Join(c.ProjectPath, "Gemfile"))
	return err == nil
}

// GetDatabaseName returns the database name for a worker
func (c *Config) GetDatabaseName(workerID int) string {
	return fmt.Sprintf("%s_%d", c.DatabasePrefix, workerID)
}
