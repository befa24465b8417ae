// Package walker enumerates candidate files under a root directory using
// include/exclude glob rules. Dependency directories, VCS metadata, build
// output, lockfiles, and binary artifacts are excluded by policy.
package walker

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileInfo describes a discovered file. RelPath is POSIX-style and relative
// to the walk root; it is the unique key used throughout the index.
type FileInfo struct {
	Path    string // absolute
	RelPath string
	Size    int64
}

// maxFileSize is the largest file considered for indexing (1 MB).
const maxFileSize = 1 << 20

// defaultExcludeDirs are skipped wherever they appear in the tree.
var defaultExcludeDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".idea":        true,
	".vscode":      true,
	".kodex":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	".next":        true,
}

// defaultExcludeFiles are exact-name excludes, mostly lockfiles.
var defaultExcludeFiles = map[string]bool{
	"package-lock.json": true,
	"yarn.lock":         true,
	"pnpm-lock.yaml":    true,
	"go.sum":            true,
	"Cargo.lock":        true,
	"poetry.lock":       true,
	"Gemfile.lock":      true,
	"composer.lock":     true,
}

// binaryExtensions are never indexed.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".pdf": true, ".zip": true, ".gz": true, ".tar": true, ".bz2": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".a": true,
	".o": true, ".bin": true, ".wasm": true, ".woff": true, ".woff2": true,
	".ttf": true, ".eot": true, ".mp3": true, ".mp4": true, ".mov": true,
	".db": true, ".sqlite": true, ".jar": true, ".class": true, ".pyc": true,
}

// ExcludedDir reports whether a directory name is skipped by the built-in
// policy. Shared with the watcher so both sides ignore the same trees.
func ExcludedDir(name string) bool {
	return defaultExcludeDirs[name] || strings.HasPrefix(name, ".")
}

// Walker discovers files under a root with optional extra glob rules.
type Walker struct {
	include []string // glob patterns matched against the relative path
	exclude []string
}

// New creates a Walker. Include patterns narrow the set (empty means every
// non-excluded text file); exclude patterns extend the built-in policy.
func New(include, exclude []string) *Walker {
	return &Walker{include: include, exclude: exclude}
}

// Walk traverses root and returns discovered files in walk order. Per-entry
// errors are skipped so one unreadable directory does not abort discovery.
func (w *Walker) Walk(root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		return nil, os.ErrNotExist
	}

	var files []FileInfo
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // keep walking
		}

		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if defaultExcludeDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			rel, _ := filepath.Rel(absRoot, path)
			if w.matchesAny(w.exclude, filepath.ToSlash(rel)) {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip symlinks.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		name := d.Name()
		if defaultExcludeFiles[name] || strings.HasPrefix(name, ".") {
			return nil
		}
		if binaryExtensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		relPath := filepath.ToSlash(rel)

		if w.matchesAny(w.exclude, relPath) {
			return nil
		}
		if len(w.include) > 0 && !w.matchesAny(w.include, relPath) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() == 0 || info.Size() > maxFileSize {
			return nil
		}

		files = append(files, FileInfo{
			Path:    path,
			RelPath: relPath,
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// matchesAny matches rel against each pattern, both as a full-path glob and
// against the basename, so "*.md" and "docs/*" both behave as expected.
func (w *Walker) matchesAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(p, filepath.Base(rel)); ok {
			return true
		}
		// Directory prefix patterns like "docs/" match everything under them.
		if strings.HasSuffix(p, "/") && strings.HasPrefix(rel, p) {
			return true
		}
	}
	return false
}
