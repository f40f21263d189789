package cli

import (
	"testing"

	"rtp/internal/config"
)

func TestFlags_ToConfigFlags(t *testing.T) {
	flags := Flags{
		ProjectPath: "/app",
		Processors:  3,
		NameFilter:  "*user*",
		FailFast:    true,
		DryRun:      true,
		Offset:      42,
		Scope:       "class",
		Framework:   "rails",
		Verbose:     true,
	}

	got := flags.ToConfigFlags()
	expected := config.Flags{
		Processors: 3,
		NameFilter: "*user*",
		FailFast:   true,
		DryRun:     true,
		Offset:     42,
		Scope:      "class",
		Framework:  "rails",
		Verbose:    true,
	}
	if got != expected {
		t.Errorf("expected %+v, got %+v", expected, got)
	}
}
