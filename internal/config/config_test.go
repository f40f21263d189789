package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfig_GetTestPath(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected string
	}{
		{
			name: "default path",
			config: &Config{
				ProjectPath: ".",
				TestPath:    "test",
				Flags:       Flags{},
			},
			expected: "test",
		},
		{
			name: "with test path flag",
			config: &Config{
				ProjectPath: "/project",
				TestPath:    "test",
				Flags: Flags{
					TestPath: "test/models",
				},
			},
			expected: "/project/test/models",
		},
		{
			name: "absolute test path",
			config: &Config{
				ProjectPath: "/project",
				TestPath:    "test",
				Flags: Flags{
					TestPath: "/absolute/path",
				},
			},
			expected: "/absolute/path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.config.GetTestPath()
			if result != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestConfig_GetDatabaseName(t *testing.T) {
	cfg := New()

	t.Run("default database name", func(t *testing.T) {
		name := cfg.GetDatabaseName(1)
		expected := "testing_1"
		if name != expected {
			t.Errorf("expected %s, got %s", expected, name)
		}
	})

	t.Run("custom prefix", func(t *testing.T) {
		cfg := New()
		cfg.DatabasePrefix = "shop_test"
		if name := cfg.GetDatabaseName(3); name != "shop_test_3" {
			t.Errorf("expected shop_test_3, got %s", name)
		}
	})
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.ProjectPath != DefaultProjectPath {
		t.Errorf("expected ProjectPath %s, got %s", DefaultProjectPath, cfg.ProjectPath)
	}

	if cfg.Processors != DefaultProcessors {
		t.Errorf("expected Processors %d, got %d", DefaultProcessors, cfg.Processors)
	}

	if len(cfg.PathsToIgnore) != len(DefaultPathsToIgnore) {
		t.Errorf("expected %d paths to ignore, got %d", len(DefaultPathsToIgnore), len(cfg.PathsToIgnore))
	}

	cfg.LoadPaths[0] = "changed"
	if DefaultLoadPaths[0] == "changed" {
		t.Error("New must not share the default load paths slice")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Run("without config file", func(t *testing.T) {
		dir := t.TempDir()
		cfg, err := Load(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.ProjectPath != dir {
			t.Errorf("expected ProjectPath %s, got %s", dir, cfg.ProjectPath)
		}
		if cfg.Framework != FrameworkMinitest {
			t.Errorf("expected default framework, got %s", cfg.Framework)
		}
	})

	t.Run("with config file", func(t *testing.T) {
		dir := t.TempDir()
		content := `
framework = "rails"
processors = 8
load_paths = ["lib", "spec/support"]
bundle_exec = "never"
`
		if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cfg, err := Load(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Framework != FrameworkRails {
			t.Errorf("expected rails, got %s", cfg.Framework)
		}
		if cfg.Processors != 8 {
			t.Errorf("expected 8 processors, got %d", cfg.Processors)
		}
		if strings.Join(cfg.LoadPaths, ":") != "lib:spec/support" {
			t.Errorf("unexpected load paths %v", cfg.LoadPaths)
		}
		if cfg.RubyBin != DefaultRubyBin {
			t.Errorf("unset keys should keep defaults, got ruby=%s", cfg.RubyBin)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(`framework = "rails"`), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		t.Setenv("RTP_FRAMEWORK", "TestUnit")

		cfg, err := Load(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Framework != FrameworkTestUnit {
			t.Errorf("expected testunit, got %s", cfg.Framework)
		}
	})

	t.Run("invalid values are reported together", func(t *testing.T) {
		dir := t.TempDir()
		content := `
framework = "rspec"
bundle_exec = "sometimes"
`
		if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		_, err := Load(dir)
		if err == nil {
			t.Fatal("expected validation error")
		}
		if !strings.Contains(err.Error(), "framework") || !strings.Contains(err.Error(), "bundle_exec") {
			t.Errorf("expected both problems in %q", err)
		}
	})

	t.Run("malformed file", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(`framework = `), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		if _, err := Load(dir); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestConfig_ApplyFlags(t *testing.T) {
	cfg := New()
	cfg.ApplyFlags(Flags{Processors: 2, Framework: "Rails", Verbose: true})

	if cfg.Processors != 2 {
		t.Errorf("expected 2 processors, got %d", cfg.Processors)
	}
	if cfg.Framework != FrameworkRails {
		t.Errorf("expected rails, got %s", cfg.Framework)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug log level, got %s", cfg.LogLevel)
	}
}

func TestConfig_UseBundler(t *testing.T) {
	dir := t.TempDir()
	cfg := New()
	cfg.ProjectPath = dir

	if cfg.UseBundler() {
		t.Error("auto without Gemfile should not use bundler")
	}
	if err := os.WriteFile(filepath.Join(dir, "Gemfile"), []byte("source 'https://rubygems.org'\n"), 0644); err != nil {
		t.Fatalf("failed to write Gemfile: %v", err)
	}
	if !cfg.UseBundler() {
		t.Error("auto with Gemfile should use bundler")
	}

	cfg.BundleExec = BundleNever
	if cfg.UseBundler() {
		t.Error("never should not use bundler")
	}
	cfg.BundleExec = BundleAlways
	cfg.ProjectPath = t.TempDir()
	if !cfg.UseBundler() {
		t.Error("always should use bundler")
	}
}
