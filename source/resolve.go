package source

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ResolveFiles expands paths and glob patterns to a sorted, de-duplicated
// list of regular files. Patterns support ** for recursive matching. A
// directory expands to every file beneath it. When extensions is non-empty
// only files with one of those extensions (compared case-insensitively,
// with the leading dot) are kept; explicitly named files are always kept.
//
// Examples:
//   - "docs/requirements.md" → ["docs/requirements.md"]
//   - "docs/**/*.md" → every markdown file under docs
//   - "docs" → every file under docs matching extensions
func ResolveFiles(patterns []string, extensions []string) ([]string, error) {
	seen := make(map[string]bool)
	var resolved []string

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			resolved = append(resolved, p)
		}
	}

	for _, pattern := range patterns {
		if !containsGlob(pattern) {
			info, err := os.Stat(pattern)
			if err != nil {
				return nil, fmt.Errorf("resolve %q: %w", pattern, err)
			}
			if !info.IsDir() {
				add(filepath.Clean(pattern))
				continue
			}
			pattern = filepath.Join(pattern, "**", "*")
		}

		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("resolve pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if HasExtension(m, extensions) {
				add(m)
			}
		}
	}

	slices.Sort(resolved)
	return resolved, nil
}

// HasExtension reports whether path ends in one of extensions. An empty
// list matches everything.
func HasExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range extensions {
		if strings.ToLower(want) == ext {
			return true
		}
	}
	return false
}

// MatchAny reports whether path matches any of the glob patterns. Patterns
// use forward slashes regardless of platform.
func MatchAny(patterns []string, path string) bool {
	slashed := filepath.ToSlash(path)
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, slashed); err == nil && ok {
			return true
		}
	}
	return false
}

// ValidatePatterns returns an error naming the first malformed pattern.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return nil
}

func containsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
