package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"

	"rtp/internal/config"
	"rtp/internal/domain"
	"rtp/internal/storage"
)

var (
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	white  = color.New(color.FgWhite)
	faint  = color.New(color.Faint)
)

// CaseLister lists the test cases of a test file
type CaseLister interface {
	FindTestCases(filePath string) ([]domain.TestCase, error)
}

// Formatter formats and displays output
type Formatter struct {
	config *config.Config
	cases  CaseLister
	out    io.Writer
}

// NewFormatter creates a new Formatter writing to the colored stdout
func NewFormatter(cfg *config.Config, cases CaseLister) *Formatter {
	return &Formatter{
		config: cfg,
		cases:  cases,
		out:    color.Output,
	}
}

// SetOutput redirects the formatter
func (f *Formatter) SetOutput(w io.Writer) {
	f.out = w
}

// PrintTarget prints the resolved test target and the command that runs it
func (f *Formatter) PrintTarget(target domain.Target, command string) {
	location := f.relPath(target.File)
	if target.Line > 0 {
		location = fmt.Sprintf("%s:%d", location, target.Line)
	}
	cyan.Fprintf(f.out, "▶ %s ", target.Scope)
	yellow.Fprintf(f.out, "%s", target.Name())
	faint.Fprintf(f.out, " (%s)\n", location)
	white.Fprintf(f.out, "$ %s\n", command)
}

// PrintResult prints a one line summary of a single command run
func (f *Formatter) PrintResult(result domain.TestResult, passed, failed int) {
	fmt.Fprintln(f.out)
	if result.Success {
		green.Fprintf(f.out, "✓ %d passed", passed)
	} else {
		red.Fprintf(f.out, "✗ %d passed, %d failed", passed, failed)
	}
	faint.Fprintf(f.out, " in %.2fs\n", result.Duration.Seconds())
}

// PrintLocations prints one "file:line: message" line per failure, the
// format editors and terminals use to jump to a location.
func (f *Formatter) PrintLocations(failures []domain.TestFailure) {
	for _, failure := range failures {
		if failure.File == "" {
			continue
		}
		message := failure.Message
		if i := strings.IndexByte(message, '\n'); i >= 0 {
			message = message[:i]
		}
		if message == "" {
			message = failure.Kind
		}
		if failure.TestName == "" {
			fmt.Fprintf(f.out, "%s:%d: %s\n", failure.File, failure.Line, message)
			continue
		}
		fmt.Fprintf(f.out, "%s:%d: %s#%s: %s\n", failure.File, failure.Line, failure.Class, failure.TestName, message)
	}
}

// PrintReferences prints the file:line references of a failed run whose
// failures carry no location of their own.
func (f *Formatter) PrintReferences(locations []domain.Location) {
	for _, loc := range locations {
		fmt.Fprintf(f.out, "%s:%d\n", loc.File, loc.Line)
	}
}

// PrintMetaStats displays the statistics of a saved test run
func (f *Formatter) PrintMetaStats(output *domain.TestResultsOutput) {
	meta := output.Meta

	fmt.Fprintln(f.out)
	cyan.Fprintln(f.out, "╔═══════════════════════════════════════════════════════════════╗")
	cyan.Fprintln(f.out, "║                    Test Execution Statistics                  ║")
	cyan.Fprintln(f.out, "╚═══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(f.out)

	const sep = "├─────────────────────────────────┼─────────────────────────────┤"
	row := func(name string, c *color.Color, value any) {
		fmt.Fprintf(f.out, "│ %-31s │ ", name)
		c.Fprintf(f.out, "%-27v", value)
		fmt.Fprintln(f.out, " │")
	}

	fmt.Fprintln(f.out, "┌─────────────────────────────────┬─────────────────────────────┐")
	row("Total Test Files", white, meta.TotalTestFiles)
	fmt.Fprintln(f.out, sep)
	row("Passed Test Files", green, meta.PassedTestFiles)
	fmt.Fprintln(f.out, sep)
	row("Failed Test Files", red, meta.FailedTestFiles)
	fmt.Fprintln(f.out, sep)
	row("Failed Test Cases", red, meta.FailedTestCases)
	fmt.Fprintln(f.out, sep)
	row("Duration", white, fmt.Sprintf("%.2fs", meta.DurationSeconds))
	fmt.Fprintln(f.out, sep)
	row("Workers", white, meta.Workers)
	fmt.Fprintln(f.out, sep)
	row("Timestamp", white, meta.Timestamp)
	fmt.Fprintln(f.out, "└─────────────────────────────────┴─────────────────────────────┘")

	fmt.Fprintln(f.out)
	if meta.FailedTestFiles == 0 {
		green.Fprintln(f.out, "✓ All tests passed!")
		return
	}
	red.Fprintf(f.out, "✗ %d test file(s) failed with %d test case failure(s)\n", meta.FailedTestFiles, meta.FailedTestCases)
	fmt.Fprintln(f.out)
	f.printFailedTestsTree(output.Details)
}

// printFailedTestsTree prints failures grouped by test file, one branch per file
func (f *Formatter) printFailedTestsTree(failures []domain.TestFailure) {
	byFile := make(map[string][]domain.TestFailure)
	for _, failure := range failures {
		key := f.relPath(failure.FilePath)
		byFile[key] = append(byFile[key], failure)
	}

	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	for i, file := range files {
		lastFile := i == len(files)-1
		yellow.Fprintf(f.out, "%s%s\n", branch(lastFile), file)

		cases := byFile[file]
		for j, failure := range cases {
			prefix := indent(lastFile) + branch(j == len(cases)-1)
			name := failure.TestName
			switch {
			case name == "":
				name = "(" + failure.Kind + " outside a test)"
			case failure.Class != "":
				name = failure.Class + "#" + name
			}
			red.Fprintf(f.out, "%s%s", prefix, name)
			if failure.Line > 0 {
				faint.Fprintf(f.out, " :%d", failure.Line)
			}
			fmt.Fprintln(f.out)
		}
	}
}

// CountTestCases returns the total number of test cases across the given test files.
func (f *Formatter) CountTestCases(tests []string) (int, error) {
	var total int
	for _, test := range tests {
		cases, err := f.cases.FindTestCases(test)
		if err != nil {
			return 0, err
		}
		total += len(cases)
	}
	return total, nil
}

// PrintTestList prints a list of test files, optionally with test cases.
// Files whose key is in failedPaths are marked with [F] from the last run.
func (f *Formatter) PrintTestList(tests []string, showTestCases bool, failedPaths map[string]struct{}) {
	if showTestCases {
		green.Fprintf(f.out, "Found %d test file(s) with test cases:\n\n", len(tests))
	} else {
		green.Fprintf(f.out, "Found %d test file(s):\n\n", len(tests))
	}

	for i, test := range tests {
		lastFile := i == len(tests)-1
		cyan.Fprintf(f.out, "%s%s%s\n", branch(lastFile), f.relPath(test), f.failMarker(test, failedPaths))

		if !showTestCases {
			continue
		}

		cases, err := f.cases.FindTestCases(test)
		if err != nil {
			red.Fprintf(f.out, "%s%s\n", indent(lastFile)+branch(true), fmt.Sprintf("error reading test file: %v", err))
			continue
		}
		if len(cases) == 0 {
			red.Fprintf(f.out, "%s(no test cases found)\n", indent(lastFile)+branch(true))
		}
		for j, tc := range cases {
			fmt.Fprint(f.out, indent(lastFile)+branch(j == len(cases)-1))
			yellow.Fprintf(f.out, "%s#%s", tc.Class, tc.Name)
			faint.Fprintf(f.out, " :%d\n", tc.Line)
		}
		if !lastFile {
			fmt.Fprintln(f.out)
		}
	}
}

func (f *Formatter) failMarker(test string, failedPaths map[string]struct{}) string {
	if len(failedPaths) == 0 {
		return ""
	}
	if _, ok := failedPaths[storage.PathKey(f.config.ProjectPath, test)]; ok {
		return " " + color.RedString("[F]")
	}
	return ""
}

func (f *Formatter) relPath(path string) string {
	if rel, err := filepath.Rel(f.config.ProjectPath, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

func branch(last bool) string {
	if last {
		return "└── "
	}
	return "├── "
}

func indent(last bool) string {
	if last {
		return "    "
	}
	return "│   "
}
