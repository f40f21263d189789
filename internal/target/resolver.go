// Package target turns a cursor position in a Ruby test file into the test
// construct to run.
package target

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"rtp/internal/domain"
	"rtp/internal/index"
	"rtp/internal/locator"
	"rtp/internal/source"
)

var (
	// ErrNoTestMarker means the buffer does not look like test code.
	ErrNoTestMarker = errors.New("no test code found in buffer")
	// ErrNoTestMethod means no test method precedes the cursor.
	ErrNoTestMethod = errors.New("no test method found before cursor")
	// ErrNoTestClass means no test class precedes the cursor.
	ErrNoTestClass = errors.New("no test class found before cursor")
)

// Indexer builds the symbol index of a Ruby buffer.
type Indexer interface {
	Build(ctx context.Context, src []byte) ([]locator.Entry, error)
}

// Resolver finds the test construct to run for a cursor position.
type Resolver struct {
	indexer Indexer
}

// NewResolver creates a new Resolver
func NewResolver(indexer Indexer) *Resolver {
	return &Resolver{indexer: indexer}
}

// Resolve returns the target of the given scope nearest to cursor.
//
// A buffer without test markers, or a cursor with nothing suitable before
// it, yields an error and no target.
func (r *Resolver) Resolve(ctx context.Context, buf *source.Buffer, cursor int, scope domain.Scope) (domain.Target, error) {
	if !locator.HasTestMarker(buf.Content) {
		return domain.Target{}, fmt.Errorf("%s: %w", buf.Path, ErrNoTestMarker)
	}

	if scope == domain.ScopeFile {
		return domain.Target{Scope: domain.ScopeFile, File: buf.Path}, nil
	}

	entries, err := r.indexer.Build(ctx, buf.Content)
	if err != nil {
		return domain.Target{}, fmt.Errorf("index %s: %w", buf.Path, err)
	}
	log.Debug().Str("file", buf.Path).Int("entries", len(entries)).Int("cursor", cursor).Msg("Built symbol index")

	switch scope {
	case domain.ScopeMethod:
		m, ok := locator.NearestTestMethod(cursor, entries)
		if !ok {
			return domain.Target{}, fmt.Errorf("%s:%d: %w", buf.Path, buf.LineOfOffset(cursor), ErrNoTestMethod)
		}
		return domain.Target{
			Scope:  domain.ScopeMethod,
			File:   buf.Path,
			Class:  m.Class,
			Method: m.Method,
			Line:   buf.LineOfOffset(m.Offset),
		}, nil

	case domain.ScopeClass:
		e, ok := locator.NearestTestClass(cursor, entries, buf.LineTextAt)
		if !ok {
			return domain.Target{}, fmt.Errorf("%s:%d: %w", buf.Path, buf.LineOfOffset(cursor), ErrNoTestClass)
		}
		return domain.Target{
			Scope: domain.ScopeClass,
			File:  buf.Path,
			Class: e.Name,
			Line:  buf.LineOfOffset(e.Offset),
		}, nil
	}

	return domain.Target{}, fmt.Errorf("unknown scope %q", scope)
}

// Cases lists every test method in the buffer, in index order.
func (r *Resolver) Cases(ctx context.Context, buf *source.Buffer) ([]domain.TestCase, error) {
	entries, err := r.indexer.Build(ctx, buf.Content)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", buf.Path, err)
	}

	var cases []domain.TestCase
	for _, e := range locator.ClassifyMethods(entries) {
		ref, ok := locator.SplitMethodName(e.Name)
		if !ok {
			continue
		}
		cases = append(cases, domain.TestCase{
			Name:     ref.Method,
			Class:    ref.Class,
			Line:     buf.LineOfOffset(e.Offset),
			FilePath: buf.Path,
		})
	}
	return cases, nil
}

// ParseScope converts a CLI scope name into a Scope.
func ParseScope(s string) (domain.Scope, error) {
	switch domain.Scope(s) {
	case domain.ScopeMethod, domain.ScopeClass, domain.ScopeFile:
		return domain.Scope(s), nil
	case "":
		return domain.ScopeMethod, nil
	}
	return "", fmt.Errorf("unknown scope %q (want method, class or file)", s)
}

// NewDefaultResolver returns a Resolver backed by the tree-sitter indexer.
func NewDefaultResolver() *Resolver {
	return NewResolver(index.NewIndexer())
}
