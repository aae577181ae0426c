package fsutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExcludes are never embedded unless a caller replaces them.
var DefaultExcludes = []string{
	"**/.git",
	"**/.git/**",
	"**/.DS_Store",
	"**/Thumbs.db",
	"**/desktop.ini",
}

// Filter selects files by doublestar globs matched against normalized
// slash-separated relative paths. An empty Include admits everything.
type Filter struct {
	Include []string
	Exclude []string
}

// Match reports whether rel passes the filter.
func (f Filter) Match(rel string) bool {
	normalized := NormalizePath(rel)
	if matchesAny(f.Exclude, normalized) {
		return false
	}
	if len(f.Include) == 0 {
		return true
	}
	return matchesAny(f.Include, normalized)
}

// Validate reports the first malformed pattern.
func (f Filter) Validate() error {
	for _, g := range append(append([]string{}, f.Include...), f.Exclude...) {
		if !doublestar.ValidatePattern(g) {
			return fmt.Errorf("invalid glob %q", g)
		}
	}
	return nil
}

func matchesAny(globs []string, normalized string) bool {
	for _, g := range globs {
		if g == "" {
			continue
		}
		ok, err := doublestar.Match(g, normalized)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// NormalizePath converts a relative path to the canonical lookup form:
// forward slashes only, no leading "./" or "/".
func NormalizePath(p string) string {
	p = filepath.ToSlash(p)
	p = strings.ReplaceAll(p, `\`, "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return strings.TrimLeft(p, "/")
}

// RelBelow returns path relative to root when path lies at or below root.
// A first element that merely starts with "..", such as "..assets", is
// still below root.
func RelBelow(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// File is one regular file found under a root.
type File struct {
	// Rel is the OS-specific path relative to the root, used for reading.
	Rel string
	// Path is the normalized lookup key.
	Path string
}

// ListFiles walks root and returns every regular file accepted by filter,
// sorted by normalized path. Symlinked files are followed, symlinked
// directories are skipped. Unlike a best-effort walk, any access error is
// returned: an omitted file would silently vanish from the build.
func ListFiles(root string, filter Filter) ([]File, error) {
	var files []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		normalized := NormalizePath(rel)

		if d.IsDir() {
			if matchesAny(filter.Exclude, normalized) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			target, err := os.Stat(path)
			if err != nil {
				return &fs.PathError{Op: "stat", Path: path, Err: err}
			}
			if target.IsDir() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}

		if !filter.Match(normalized) {
			return nil
		}
		files = append(files, File{Rel: rel, Path: normalized})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// HashBytes returns the hex SHA-256 of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum[:])
}

// HashFile returns the hex SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// WriteFileIfChanged writes data to path unless the file already holds
// exactly those bytes. It reports whether a write happened, which keeps
// file mtimes stable across no-op regenerations.
func WriteFileIfChanged(path string, data []byte) (bool, error) {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, data) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return false, fmt.Errorf("rename %s: %w", tmp, err)
	}
	return true, nil
}
