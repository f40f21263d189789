// Package command renders a resolved test target into the command line that
// runs it.
package command

import (
	"fmt"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"rtp/internal/config"
	"rtp/internal/domain"
)

// Command is a process to execute.
type Command struct {
	Dir  string
	Args []string
	Env  []string // extra KEY=VALUE pairs on top of the process environment
}

// String returns the command as a shell-quoted line.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Env)+len(c.Args))
	for _, kv := range c.Env {
		key, value, _ := strings.Cut(kv, "=")
		parts = append(parts, key+"="+quote(value))
	}
	for _, arg := range c.Args {
		parts = append(parts, quote(arg))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	q, err := syntax.Quote(s, syntax.LangBash)
	if err != nil {
		// Only strings with NUL bytes cannot be quoted.
		return fmt.Sprintf("%q", s)
	}
	return q
}

// Builder builds test commands for the configured framework.
type Builder struct {
	config *config.Config
}

// NewBuilder creates a new Builder
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{config: cfg}
}

// Build returns the command running target.
func (b *Builder) Build(target domain.Target) (Command, error) {
	if target.File == "" {
		return Command{}, fmt.Errorf("target has no file")
	}

	args := b.base(target.File)

	switch target.Scope {
	case domain.ScopeFile:
	case domain.ScopeMethod:
		if target.Method == "" {
			return Command{}, fmt.Errorf("method target in %s has no method name", target.File)
		}
		args = append(args, "-n", target.Method)
	case domain.ScopeClass:
		if target.Class == "" {
			return Command{}, fmt.Errorf("class target in %s has no class name", target.File)
		}
		args = append(args, b.classFilter(target.Class)...)
	default:
		return Command{}, fmt.Errorf("unknown scope %q", target.Scope)
	}

	return Command{Dir: b.config.ProjectPath, Args: args}, nil
}

// File returns the command running a whole test file.
func (b *Builder) File(path string) Command {
	return Command{Dir: b.config.ProjectPath, Args: b.base(path)}
}

func (b *Builder) base(file string) []string {
	var args []string
	if b.config.UseBundler() {
		args = append(args, "bundle", "exec")
	}

	if b.config.Framework == config.FrameworkRails {
		return append(args, b.config.GetRailsPath(), "test", file)
	}

	args = append(args, b.config.RubyBin)
	if len(b.config.LoadPaths) > 0 {
		args = append(args, "-I"+strings.Join(b.config.LoadPaths, ":"))
	}
	return append(args, file)
}

func (b *Builder) classFilter(class string) []string {
	if b.config.Framework == config.FrameworkTestUnit {
		return []string{"-t", class}
	}
	return []string{"-n", "/^" + regexp.QuoteMeta(class) + "#/"}
}
