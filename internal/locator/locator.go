// Package locator finds the test method or test class nearest to a cursor
// position, given the symbol index of a Ruby buffer.
//
// Every function here is a pure query over a snapshot of the index. Absent
// results are reported as (zero, false); nothing in this package logs.
package locator

import "regexp"

// Entry is a single symbol reported by the indexer.
type Entry struct {
	Name   string // qualified name, e.g. "UserTest" or "UserTest#test_login"
	Offset int    // byte offset of the symbol in the buffer
}

// MethodRef is a qualified test method name split into its parts.
type MethodRef struct {
	Class  string
	Method string
}

// String joins the reference back into its qualified form.
func (m MethodRef) String() string {
	return m.Class + "#" + m.Method
}

// TestMethod is a test method entry with its name split.
type TestMethod struct {
	MethodRef
	Offset int
}

// LineText returns the text of the buffer line containing offset.
type LineText func(offset int) string

// TestCaseBase matches a TestCase base class token. It is case-sensitive.
const TestCaseBase = `(?:::)?(?:[A-Z]\w*::)*TestCase\b`

var (
	methodPattern = regexp.MustCompile(`(.+)#(test_.+)`)

	// The base must be TestCase itself, optionally namespaced:
	// Test::Unit::TestCase, ActiveSupport::TestCase, ::TestCase.
	classDeclPattern = regexp.MustCompile(`^\s*class\s+\S+\s*<\s*` + TestCaseBase)
)

// SplitMethodName splits "Class#test_method" into its class and method parts.
func SplitMethodName(name string) (MethodRef, bool) {
	m := methodPattern.FindStringSubmatch(name)
	if m == nil {
		return MethodRef{}, false
	}
	return MethodRef{Class: m[1], Method: m[2]}, true
}

// IsClassDeclaration reports whether line declares a class derived from a TestCase base.
func IsClassDeclaration(line string) bool {
	return classDeclPattern.MatchString(line)
}

// ClassifyMethods returns the entries naming test methods, in index order.
func ClassifyMethods(entries []Entry) []Entry {
	var methods []Entry
	for _, e := range entries {
		if methodPattern.MatchString(e.Name) {
			methods = append(methods, e)
		}
	}
	return methods
}

// ClassifyClasses returns the entries naming test classes, in index order.
//
// An entry is a test class when some test method belongs to it, or when it
// is a plain class name whose declaration line derives from TestCase.
// Entries sharing a name at different offsets are all kept.
func ClassifyClasses(entries []Entry, lineText LineText) []Entry {
	owners := methodOwners(entries)

	var classes []Entry
	for _, e := range entries {
		if _, ok := owners[e.Name]; ok {
			classes = append(classes, e)
			continue
		}
		if lineText == nil || !isPlainName(e.Name) {
			continue
		}
		if IsClassDeclaration(lineText(e.Offset)) {
			classes = append(classes, e)
		}
	}
	return classes
}

// FindNearest returns the last entry, in index order, whose offset does not
// exceed cursor.
//
// The result depends on index order when the indexer emits entries out of
// offset order: it is the last qualifying entry, not the one with the
// greatest offset.
func FindNearest(cursor int, entries []Entry) (Entry, bool) {
	var (
		nearest Entry
		found   bool
	)
	for _, e := range entries {
		if e.Offset <= cursor {
			nearest = e
			found = true
		}
	}
	return nearest, found
}

// NearestTestMethod returns the test method preceding cursor.
func NearestTestMethod(cursor int, entries []Entry) (TestMethod, bool) {
	e, ok := FindNearest(cursor, ClassifyMethods(entries))
	if !ok {
		return TestMethod{}, false
	}
	ref, ok := SplitMethodName(e.Name)
	if !ok {
		return TestMethod{}, false
	}
	return TestMethod{MethodRef: ref, Offset: e.Offset}, true
}

// NearestTestClass returns the test class entry preceding cursor.
func NearestTestClass(cursor int, entries []Entry, lineText LineText) (Entry, bool) {
	return FindNearest(cursor, ClassifyClasses(entries, lineText))
}

// methodOwners collects the distinct class parts of all test method entries.
func methodOwners(entries []Entry) map[string]struct{} {
	owners := make(map[string]struct{})
	for _, e := range ClassifyMethods(entries) {
		if ref, ok := SplitMethodName(e.Name); ok {
			owners[ref.Class] = struct{}{}
		}
	}
	return owners
}

func isPlainName(name string) bool {
	for _, r := range name {
		if r == '#' || r == '.' {
			return false
		}
	}
	return true
}
