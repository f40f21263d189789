package discovery

import (
	"context"

	"rtp/internal/domain"
	"rtp/internal/source"
)

// CaseResolver lists the test methods of a loaded buffer
type CaseResolver interface {
	Cases(ctx context.Context, buf *source.Buffer) ([]domain.TestCase, error)
}

// CaseFinder lists the test cases of test files on disk
type CaseFinder struct {
	resolver CaseResolver
}

// NewCaseFinder creates a new CaseFinder
func NewCaseFinder(resolver CaseResolver) *CaseFinder {
	return &CaseFinder{resolver: resolver}
}

// FindTestCases finds all test cases in a test file, in declaration order
func (c *CaseFinder) FindTestCases(filePath string) ([]domain.TestCase, error) {
	buf, err := source.Load(filePath)
	if err != nil {
		return nil, err
	}
	return c.resolver.Cases(context.Background(), buf)
}
