package discovery

import (
	"path/filepath"
	"strings"
)

// Filter filters test files by name pattern
type Filter struct{}

// NewFilter creates a new Filter
func NewFilter() *Filter {
	return &Filter{}
}

// FilterByName filters test files by their base name. Patterns with * or ?
// are globs, falling back to matching every *-separated part as a substring
// ("*payment*" matches "payment_gateway_test.rb"); other patterns are
// substrings.
func (f *Filter) FilterByName(tests []string, pattern string) []string {
	if pattern == "" {
		return tests
	}

	var filtered []string
	for _, test := range tests {
		if matchName(filepath.Base(test), pattern) {
			filtered = append(filtered, test)
		}
	}
	return filtered
}

// FilterByKeys keeps the test files whose key is in keys, preserving order
func (f *Filter) FilterByKeys(tests []string, keys map[string]struct{}, key func(string) string) []string {
	var filtered []string
	for _, test := range tests {
		if _, ok := keys[key(test)]; ok {
			filtered = append(filtered, test)
		}
	}
	return filtered
}

func matchName(name, pattern string) bool {
	if !strings.ContainsAny(pattern, "*?") {
		return strings.Contains(name, pattern)
	}
	if ok, err := filepath.Match(pattern, name); err == nil && ok {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return false
	}

	matchedAny := false
	for _, part := range strings.Split(pattern, "*") {
		if part == "" {
			continue
		}
		if !strings.Contains(name, part) {
			return false
		}
		matchedAny = true
	}
	return matchedAny
}
