// Package walker traverses a registered directory tree, applying
// gitignore-style skip rules so the ingest pipeline never touches VCS
// metadata, build artifacts, or editor scratch files.
package walker

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dsearch/dsearchd/internal/security"
	"github.com/dsearch/dsearchd/internal/validation"
)

// Walker traverses a directory tree and reports each regular file that
// passes the configured skip rules.
type Walker struct {
	maxFileSize int64 // skip files larger than this; 0 means no limit
}

// New creates a Walker with an optional per-file size cap.
func New(maxFileSize int64) *Walker {
	return &Walker{maxFileSize: maxFileSize}
}

// Walk traverses root, invoking fn for every file that is not skipped by
// ignorePatterns. Walking stops early if ctx is cancelled or fn returns an
// error other than fs.SkipDir/fs.SkipAll.
func (w *Walker) Walk(ctx context.Context, root string, ignorePatterns []string, fn func(path string, info fs.FileInfo) error) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("walker: resolve root path: %w", err)
	}

	matcher := newPatternMatcher(ignorePatterns)

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("walker: relative path: %w", err)
		}
		relPath = filepath.ToSlash(relPath)

		if relPath != "." {
			if err := validation.IsPathSafe(relPath); err != nil {
				return fmt.Errorf("walker: unsafe path %s: %w", relPath, err)
			}
		}

		if matcher.match(relPath, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("walker: file info for %s: %w", path, err)
		}

		if w.maxFileSize > 0 && info.Size() > w.maxFileSize {
			return nil
		}

		return fn(path, info)
	})
}

// DefaultSkipPatterns returns the daemon's built-in skip rules: hidden
// files, version control metadata, dependency/build output directories,
// editor directories, and common temp/log file suffixes.
func DefaultSkipPatterns() []string {
	return []string{
		".git/",
		".svn/",
		".hg/",
		".vscode/",
		".idea/",
		"node_modules/",
		"__pycache__/",
		"dist/",
		"build/",
		"*.tmp",
		"*.log",
		".DS_Store",
		"Thumbs.db",
	}
}

// LoadGitignore reads a .gitignore file under base and returns its patterns.
// A missing file yields no patterns rather than an error.
func LoadGitignore(path, base string) ([]string, error) {
	if _, err := security.ValidatePathWithinBase(path, base); err != nil {
		return nil, fmt.Errorf("walker: invalid gitignore path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("walker: read .gitignore: %w", err)
	}

	var patterns []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, nil
}

// patternMatcher applies gitignore-style patterns against relative paths.
type patternMatcher struct {
	patterns []pattern
}

type pattern struct {
	negate   bool
	dirOnly  bool
	anchored bool
	glob     string
}

func newPatternMatcher(patterns []string) *patternMatcher {
	m := &patternMatcher{patterns: make([]pattern, 0, len(patterns))}

	for _, p := range patterns {
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}

		pat := pattern{}
		if strings.HasPrefix(p, "!") {
			pat.negate = true
			p = p[1:]
		}
		if strings.HasSuffix(p, "/") {
			pat.dirOnly = true
			p = strings.TrimSuffix(p, "/")
		}
		if strings.HasPrefix(p, "/") {
			pat.anchored = true
			p = strings.TrimPrefix(p, "/")
		}
		pat.glob = p
		m.patterns = append(m.patterns, pat)
	}

	return m
}

// match reports whether relPath should be skipped, with the last matching
// pattern winning (so later negations can override earlier ignores).
func (m *patternMatcher) match(relPath string, isDir bool) bool {
	ignored := false
	base := filepath.Base(relPath)

	for _, pat := range m.patterns {
		if pat.dirOnly {
			if (relPath == pat.glob && isDir) || strings.HasPrefix(relPath, pat.glob+"/") {
				ignored = !pat.negate
			}
			continue
		}

		var matched bool
		if pat.anchored {
			matched, _ = filepath.Match(pat.glob, relPath)
		} else {
			matched, _ = filepath.Match(pat.glob, base)
			if !matched {
				matched, _ = filepath.Match(pat.glob, relPath)
			}
		}
		if matched {
			ignored = !pat.negate
		}
	}

	if !ignored && strings.HasPrefix(base, ".") && base != "." {
		ignored = true
	}

	return ignored
}
