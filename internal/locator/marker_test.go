package locator

import (
	"regexp"
	"testing"
)

type recordingScanner struct {
	matches map[string]bool
	seen    []string
}

func (r *recordingScanner) Find(pattern *regexp.Regexp) bool {
	r.seen = append(r.seen, pattern.String())
	return r.matches[pattern.String()]
}

func TestHasTestMarker(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		expected bool
	}{
		{
			name:     "test method definition",
			src:      "class Foo\n  def test_something\n  end\nend\n",
			expected: true,
		},
		{
			name:     "plain method only",
			src:      "class Foo\n  def something_else\n  end\nend\n",
			expected: false,
		},
		{
			name:     "block style test",
			src:      "class FooTest < Base\n  test \"it works\" do\n  end\nend\n",
			expected: true,
		},
		{
			name:     "TestCase subclass",
			src:      "class FooTest < ActiveSupport::TestCase\nend\n",
			expected: true,
		},
		{
			name:     "look-alike TestCase base",
			src:      "class FooTest < FakeTestCase\nend\n",
			expected: false,
		},
		{
			name:     "framework require",
			src:      "require 'minitest/autorun'\n",
			expected: true,
		},
		{
			name:     "test_helper require",
			src:      "require \"test_helper\"\n",
			expected: true,
		},
		{
			name:     "empty buffer",
			src:      "",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasTestMarker([]byte(tt.src)); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestHasMarker_ShortCircuits(t *testing.T) {
	first := regexp.MustCompile(`first`)
	second := regexp.MustCompile(`second`)
	third := regexp.MustCompile(`third`)

	scanner := &recordingScanner{matches: map[string]bool{"second": true}}
	if !HasMarker([]*regexp.Regexp{first, second, third}, scanner) {
		t.Fatal("expected a marker")
	}
	if len(scanner.seen) != 2 {
		t.Errorf("expected scanning to stop after the second pattern, saw %v", scanner.seen)
	}

	scanner = &recordingScanner{}
	if HasMarker([]*regexp.Regexp{first, second, third}, scanner) {
		t.Error("expected no marker")
	}
	if len(scanner.seen) != 3 {
		t.Errorf("expected all patterns to be tried, saw %v", scanner.seen)
	}
}
