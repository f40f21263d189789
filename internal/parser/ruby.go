package parser

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"rtp/internal/domain"
)

var (
	// "3 runs, 5 assertions, 1 failures, 1 errors, 0 skips" (minitest)
	// "3 tests, 5 assertions, 1 failures, 1 errors, 0 pendings, ..." (test-unit)
	summaryPattern = regexp.MustCompile(`(\d+) (?:runs|tests), \d+ assertions, (\d+) failures, (\d+) errors`)

	// "  1) Failure:" or "Error:" on its own line (minitest, rails runner)
	minitestHeader = regexp.MustCompile(`^\s*(?:\d+\)\s+)?(Failure|Error):\s*$`)
	// "UserTest#test_create [test/user_test.rb:5]:" or "UserTest#test_update:"
	minitestName = regexp.MustCompile(`^(\S+)#(\S+?)(?:\s+\[(.+):(\d+)\])?:\s*$`)

	// "Failure: test_create(UserTest)" or "Error: test_update(UserTest): RuntimeError: boom"
	testUnitHeader = regexp.MustCompile(`^(Failure|Error):\s+(\S+)\((.+?)\)(?::\s*(.*))?$`)

	// "[test/user_test.rb:5]" anywhere, or a backtrace line "test/user_test.rb:9:in ..."
	bracketLocation   = regexp.MustCompile(`\[([^\[\]\s]+\.rb):(\d+)\]`)
	backtraceLocation = regexp.MustCompile(`^\s*(?:from\s+)?([^\s:]+\.rb):(\d+)(?::in\b|:?\s*$)`)
	// "test/user_test.rb:12: syntax error, unexpected end-of-input"
	diagnosticLocation = regexp.MustCompile(`^([^\s:\[]+\.rb):(\d+):\s+\S`)

	separator = regexp.MustCompile(`^(?:={10,}|-{10,})\s*$`)
	rerunLine = regexp.MustCompile(`^(?:bin/)?rails test \S+`)
)

const maxMessageLines = 20

// RubyParser parses minitest, test-unit and rails test runner output
type RubyParser struct{}

// NewRubyParser creates a new RubyParser
func NewRubyParser() *RubyParser {
	return &RubyParser{}
}

// ParseTestCounts extracts passed and failed test counts from the run summary.
// Without a summary it counts the whole file as one passed or failed test.
func (p *RubyParser) ParseTestCounts(result domain.TestResult) (passed, failed int) {
	var total int
	for _, m := range summaryPattern.FindAllStringSubmatch(result.Output, -1) {
		total += atoi(m[1])
		failed += atoi(m[2]) + atoi(m[3])
	}
	if total >= failed {
		passed = total - failed
	}
	if passed > 0 || failed > 0 {
		return passed, failed
	}

	if result.Success {
		return 1, 0
	}
	return 0, 1
}

// ParseFailure returns one TestFailure per failed or errored test in the output.
// A failed run without any test failure block, such as a file that does not
// load, yields a single error for the whole file.
func (p *RubyParser) ParseFailure(result domain.TestResult) []domain.TestFailure {
	lines := strings.Split(strings.ReplaceAll(result.Output, "\r\n", "\n"), "\n")

	var failures []domain.TestFailure
	for i := 0; i < len(lines); i++ {
		failure, next, ok := p.parseBlock(lines, i, result.TestPath)
		if !ok {
			continue
		}
		failures = append(failures, failure)
		i = next - 1
	}

	if len(failures) == 0 && !result.Success {
		failures = append(failures, p.fileFailure(result, lines))
	}
	return failures
}

func (p *RubyParser) fileFailure(result domain.TestResult, lines []string) domain.TestFailure {
	failure := domain.TestFailure{
		Kind:       domain.KindError,
		FilePath:   result.TestPath,
		StackTrace: []string{},
	}

	var message []string
	for _, line := range lines {
		if loc, ok := backtraceLocationOf(line); ok {
			failure.StackTrace = append(failure.StackTrace, strings.TrimSpace(line))
			if failure.File == "" {
				failure.File, failure.Line = loc.File, loc.Line
			}
			continue
		}
		if strings.TrimSpace(line) != "" {
			message = append(message, line)
		}
	}
	if len(message) > maxMessageLines {
		message = message[len(message)-maxMessageLines:]
	}
	failure.Message = strings.Join(message, "\n")
	if failure.Message == "" && len(failure.StackTrace) > 0 {
		failure.Message = failure.StackTrace[0]
	}
	if failure.Message == "" && result.Error != nil {
		failure.Message = result.Error.Error()
	}
	return failure
}

// parseBlock parses a failure block starting at lines[i] and returns the
// index of the first line after it.
func (p *RubyParser) parseBlock(lines []string, i int, testPath string) (domain.TestFailure, int, bool) {
	failure := domain.TestFailure{FilePath: testPath, StackTrace: []string{}}
	var message []string
	start := i + 1

	if m := testUnitHeader.FindStringSubmatch(lines[i]); m != nil {
		failure.Kind = kindOf(m[1])
		failure.TestName = m[2]
		failure.Class = m[3]
		if m[4] != "" {
			message = append(message, m[4])
		}
	} else if m := minitestHeader.FindStringSubmatch(lines[i]); m != nil {
		j := i + 1
		for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
			j++
		}
		if j >= len(lines) {
			return domain.TestFailure{}, 0, false
		}
		n := minitestName.FindStringSubmatch(strings.TrimSpace(lines[j]))
		if n == nil {
			return domain.TestFailure{}, 0, false
		}
		failure.Kind = kindOf(m[1])
		failure.Class = n[1]
		failure.TestName = n[2]
		if n[3] != "" {
			failure.File = n[3]
			failure.Line = atoi(n[4])
		}
		start = j + 1
	} else {
		return domain.TestFailure{}, 0, false
	}

	end := start
	for ; end < len(lines); end++ {
		line := lines[end]
		if isBlockEnd(line) {
			break
		}
		if loc, ok := backtraceLocationOf(line); ok {
			failure.StackTrace = append(failure.StackTrace, strings.TrimSpace(line))
			if failure.File == "" && p.isTestLocation(loc, testPath) {
				failure.File = loc.File
				failure.Line = loc.Line
			}
			continue
		}
		if len(message) == 0 && strings.TrimSpace(line) == "" {
			continue
		}
		message = append(message, line)
	}

	if failure.File == "" && len(failure.StackTrace) > 0 {
		loc, _ := backtraceLocationOf(failure.StackTrace[0])
		failure.File = loc.File
		failure.Line = loc.Line
	}
	if failure.FilePath == "" {
		failure.FilePath = failure.File
	}

	for len(message) > 0 && strings.TrimSpace(message[len(message)-1]) == "" {
		message = message[:len(message)-1]
	}
	failure.Message = strings.Join(message, "\n")

	return failure, end, true
}

// isTestLocation reports whether loc points into the test file that was run,
// or into the test directory when the file is unknown.
func (p *RubyParser) isTestLocation(loc domain.Location, testPath string) bool {
	file := filepath.ToSlash(loc.File)
	if testPath != "" {
		return strings.HasSuffix(file, filepath.ToSlash(filepath.Clean(testPath))) ||
			filepath.Base(file) == filepath.Base(testPath)
	}
	return strings.HasPrefix(file, "test/") || strings.Contains(file, "/test/")
}

// Locations returns every distinct file:line reference in output, in order
// of appearance: bracketed assertion locations, backtrace frames and
// interpreter diagnostics.
func Locations(output string) []domain.Location {
	seen := make(map[domain.Location]bool)
	var locations []domain.Location
	add := func(loc domain.Location) {
		if !seen[loc] {
			seen[loc] = true
			locations = append(locations, loc)
		}
	}

	for _, line := range strings.Split(output, "\n") {
		for _, m := range bracketLocation.FindAllStringSubmatch(line, -1) {
			add(domain.Location{File: m[1], Line: atoi(m[2])})
		}
		if loc, ok := backtraceLocationOf(line); ok {
			add(loc)
		} else if m := diagnosticLocation.FindStringSubmatch(line); m != nil {
			add(domain.Location{File: m[1], Line: atoi(m[2])})
		}
	}
	return locations
}

func backtraceLocationOf(line string) (domain.Location, bool) {
	m := backtraceLocation.FindStringSubmatch(line)
	if m == nil {
		return domain.Location{}, false
	}
	return domain.Location{File: m[1], Line: atoi(m[2])}, true
}

func isBlockEnd(line string) bool {
	return minitestHeader.MatchString(line) ||
		testUnitHeader.MatchString(line) ||
		separator.MatchString(line) ||
		summaryPattern.MatchString(line) ||
		rerunLine.MatchString(line)
}

func kindOf(header string) string {
	if header == "Error" {
		return domain.KindError
	}
	return domain.KindFailure
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
