// Package vfs resolves a virtual path under the mount point to its
// backing store — a real host path or a file inside a RAR archive — by
// applying the filter, flatten, and RAR-rewrite rules and caching the
// result so repeated lookups of the same path are cheap.
package vfs

import (
	"bufio"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/spf13/afero"
)

// PatternList is a set of compiled regular expressions read from a
// pattern file: one pattern per line, blank lines and lines starting with
// '#' ignored, a trailing newline stripped.
type PatternList []*regexp.Regexp

// MatchAny reports whether any pattern in the list matches s.
func (p PatternList) MatchAny(s string) bool {
	for _, re := range p {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// LoadPatternFile reads path from fs and compiles each non-blank,
// non-comment line as a regular expression. A compile error is logged
// with the offending file and line number and that line is skipped
// rather than aborting the whole load. An empty path yields an empty
// list.
func LoadPatternFile(fs afero.Fs, path string, logger *slog.Logger) (PatternList, error) {
	if path == "" {
		return nil, nil
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vfs: open pattern file %s: %w", path, err)
	}
	defer f.Close()

	var list PatternList
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" || text[0] == '#' {
			continue
		}

		re, err := regexp.Compile(text)
		if err != nil {
			if logger != nil {
				logger.Warn("failed to compile pattern", "file", path, "line", line, "error", err)
			}
			continue
		}
		list = append(list, re)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vfs: read pattern file %s: %w", path, err)
	}

	return list, nil
}
