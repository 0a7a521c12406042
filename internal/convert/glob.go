// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Expand returns the regular files matched by pattern in directory-traversal
// (lexical) order. Besides the usual glob syntax, "**" matches any number of
// directories.
//
// Wildcards never match names that start with a dot: "*.pdf" skips
// ".hidden.pdf" and "._report.pdf", and "**" does not descend into hidden
// directories. A pattern segment that itself starts with a dot matches them.
func Expand(pattern string) ([]string, error) {
	if !doublestar.ValidatePathPattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}
	paths, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("expanding %q: %w", pattern, err)
	}

	base, rest := doublestar.SplitPattern(filepath.ToSlash(filepath.Clean(pattern)))
	patSegs := strings.Split(rest, "/")

	visible := paths[:0]
	for _, p := range paths {
		rel := strings.TrimPrefix(filepath.ToSlash(p), "./")
		if base != "." {
			rel = strings.TrimPrefix(strings.TrimPrefix(rel, base), "/")
		}
		if matchVisible(patSegs, strings.Split(rel, "/")) {
			visible = append(visible, p)
		}
	}
	return visible, nil
}

// matchVisible reports whether path matches pat segment by segment without
// a wildcard standing in for a dot-prefixed name.
func matchVisible(pat, path []string) bool {
	if len(pat) == 0 {
		return len(path) == 0
	}
	if pat[0] == "**" {
		for i := 0; i <= len(path); i++ {
			if matchVisible(pat[1:], path[i:]) {
				return true
			}
			if i < len(path) && hidden(path[i]) {
				return false
			}
		}
		return false
	}
	if len(path) == 0 {
		return false
	}
	if hidden(path[0]) && !hidden(pat[0]) {
		return false
	}
	if ok, _ := doublestar.Match(pat[0], path[0]); !ok {
		return false
	}
	return matchVisible(pat[1:], path[1:])
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
