package locator

import "regexp"

// Scanner reports whether pattern matches anywhere in a buffer, searching
// from its start.
type Scanner interface {
	Find(pattern *regexp.Regexp) bool
}

// MarkerPatterns are the test markers, checked in this order:
// test method definition, block-style test declaration, TestCase subclass
// declaration, test framework require.
var MarkerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*def\s+test_`),
	regexp.MustCompile(`(?m)^\s*test\s*\(?\s*['"]`),
	regexp.MustCompile(`(?m)^\s*class\s+\S+\s*<\s*` + TestCaseBase),
	regexp.MustCompile(`(?m)^\s*require\s*\(?\s*['"](?:test/unit|minitest/autorun|minitest|test_helper|rails_helper)['"]`),
}

// HasMarker returns true on the first pattern that matches the buffer.
func HasMarker(patterns []*regexp.Regexp, buf Scanner) bool {
	for _, p := range patterns {
		if buf.Find(p) {
			return true
		}
	}
	return false
}

// HasTestMarker reports whether src contains any of the MarkerPatterns.
func HasTestMarker(src []byte) bool {
	return HasMarker(MarkerPatterns, bytesScanner(src))
}

type bytesScanner []byte

func (b bytesScanner) Find(pattern *regexp.Regexp) bool {
	return pattern.Match(b)
}
