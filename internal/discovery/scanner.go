package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	ignore "github.com/sabhiram/go-gitignore"
)

// Scanner scans for Ruby test files in a directory
type Scanner struct {
	skipDirs  map[string]bool
	patterns  []string
	gitignore *ignore.GitIgnore
	ignoreDir string
}

// NewScanner creates a new Scanner matching file names against patterns and
// skipping the given directory names
func NewScanner(skipDirs, patterns []string) *Scanner {
	s := &Scanner{}
	s.SetRules(skipDirs, patterns)
	return s
}

// SetRules replaces the skipped directory names and file name patterns
func (s *Scanner) SetRules(skipDirs, patterns []string) {
	skipMap := make(map[string]bool)
	for _, dir := range skipDirs {
		skipMap[dir] = true
	}
	s.skipDirs = skipMap
	s.patterns = patterns
}

// UseGitignore makes the scanner skip paths matched by projectPath/.gitignore.
// A missing .gitignore is not an error.
func (s *Scanner) UseGitignore(projectPath string) error {
	path := filepath.Join(projectPath, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	s.gitignore = gi
	s.ignoreDir = projectPath
	return nil
}

// IsTestFile reports whether a file name matches one of the test file
// patterns. Helpers such as test_helper.rb never do.
func (s *Scanner) IsTestFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasSuffix(base, "_helper.rb") {
		return false
	}
	for _, pattern := range s.patterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// Scan finds all test files under root, sorted by path
func (s *Scanner) Scan(root string) ([]string, error) {
	var testFiles []string

	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("test path does not exist: %s", root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("test path is not a directory: %s", root)
	}

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || s.skipDirs[name] || s.ignored(path, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.IsTestFile(d.Name()) && !s.ignored(path, false) {
			testFiles = append(testFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(testFiles)
	log.Debug().Str("root", root).Int("files", len(testFiles)).Msg("Scanned for test files")
	return testFiles, nil
}

func (s *Scanner) ignored(path string, dir bool) bool {
	if s.gitignore == nil {
		return false
	}
	rel, err := filepath.Rel(s.ignoreDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)
	if dir {
		rel += "/"
	}
	return s.gitignore.MatchesPath(rel)
}
