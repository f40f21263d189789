package cli

import "rtp/internal/config"

// Flags holds command-line flags
type Flags struct {
	ProjectPath   string
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

// ToConfigFlags converts CLI flags to config flags
func (f *Flags) ToConfigFlags() config.Flags {
	return config.Flags{
		Processors:    f.Processors,
		Migrate:       f.Migrate,
		NoFresh:       f.NoFresh,
		TestPath:      f.TestPath,
		NameFilter:    f.NameFilter,
		TestCases:     f.TestCases,
		FailFast:      f.FailFast,
		OnlyFailed:    f.OnlyFailed,
		RerunFailures: f.RerunFailures,
		OpenFaills:    f.OpenFaills,
		DryRun:        f.DryRun,
		Offset:        f.Offset,
		Scope:         f.Scope,
		Framework:     f.Framework,
		Verbose:       f.Verbose,
	}
}
