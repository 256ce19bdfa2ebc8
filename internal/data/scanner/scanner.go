// Package scanner discovers coordinate tables for batch rendering.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/penwyp/tracevis/internal/util"
)

// DefaultExtensions are the table file extensions picked up by a scan.
var DefaultExtensions = []string{".tsv", ".csv", ".txt"}

// FileScanner finds table files under a directory
type FileScanner struct {
	baseDir    string
	extensions []string
}

// NewFileScanner creates a scanner for baseDir using DefaultExtensions.
func NewFileScanner(baseDir string) *FileScanner {
	return &FileScanner{baseDir: baseDir, extensions: DefaultExtensions}
}

// WithExtensions restricts the scan to the given extensions.
func (s *FileScanner) WithExtensions(exts ...string) *FileScanner {
	normalized := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	s.extensions = normalized
	return s
}

// Matches reports whether path has one of the scanned extensions.
func (s *FileScanner) Matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range s.extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// Scan walks the directory and returns matching files in lexical order.
// Hidden files and directories are skipped; unreadable entries are logged and
// skipped.
func (s *FileScanner) Scan() ([]string, error) {
	start := time.Now()
	info, err := os.Stat(s.baseDir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", s.baseDir)
	}

	var files []string
	dirCount, totalCount := 0, 0
	util.LogDebugf("Start scanning directory: %s", s.baseDir)

	err = filepath.WalkDir(s.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			util.LogDebugf("Skip entry (error): %s - %v", path, err)
			return nil
		}
		hidden := path != s.baseDir && strings.HasPrefix(d.Name(), ".")
		if d.IsDir() {
			if hidden {
				return filepath.SkipDir
			}
			dirCount++
			return nil
		}
		totalCount++
		if !hidden && d.Type().IsRegular() && s.Matches(path) {
			files = append(files, path)
		}
		return nil
	})

	sort.Strings(files)
	util.LogDebugf("File scan completed: duration %v, scanned %d directories, %d files, found %d tables",
		time.Since(start), dirCount, totalCount, len(files))
	return files, err
}

// OutputName maps an input table to its artifact name inside an output
// directory. Subdirectories relative to the scanned root become name
// prefixes.
func (s *FileScanner) OutputName(input, ext string) string {
	return s.stem(input, false) + ext
}

// OutputNames assigns every input a distinct artifact name. Inputs whose
// plain names clash keep their source extension (a.tsv -> a_tsv.gif); any
// clash left after that gets a numeric suffix in input order.
func (s *FileScanner) OutputNames(inputs []string, ext string) map[string]string {
	stems := make(map[string]string, len(inputs))
	counts := make(map[string]int, len(inputs))
	for _, input := range inputs {
		stem := s.stem(input, false)
		stems[input] = stem
		counts[stem]++
	}
	for _, input := range inputs {
		if counts[stems[input]] > 1 {
			stems[input] = s.stem(input, true)
		}
	}

	names := make(map[string]string, len(inputs))
	used := make(map[string]bool, len(inputs))
	for _, input := range inputs {
		name := stems[input]
		for i := 2; used[name]; i++ {
			name = fmt.Sprintf("%s_%d", stems[input], i)
		}
		used[name] = true
		names[input] = name + ext
		if name != s.stem(input, false) {
			util.LogDebugf("Output name for %s disambiguated to %s", input, name+ext)
		}
	}
	return names
}

func (s *FileScanner) stem(input string, keepExt bool) string {
	rel, err := filepath.Rel(s.baseDir, input)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(input)
	}
	srcExt := filepath.Ext(rel)
	rel = strings.TrimSuffix(rel, srcExt)
	name := strings.ReplaceAll(filepath.ToSlash(rel), "/", "_")
	if keepExt && srcExt != "" {
		name += "_" + strings.ToLower(strings.TrimPrefix(srcExt, "."))
	}
	return name
}
