// Package scan reads an asset directory into normalized, content-typed
// assets ready for table building.
package scan

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/contenttype"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/fsutil"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/logger"
)

var (
	// ErrDirectoryUnavailable matches every *DirectoryUnavailableError.
	ErrDirectoryUnavailable = errors.New("directory unavailable")
	// ErrFileUnreadable matches every *FileUnreadableError.
	ErrFileUnreadable = errors.New("file unreadable")
)

// DirectoryUnavailableError means the scan root is missing, not a
// directory, or cannot be listed.
type DirectoryUnavailableError struct {
	Dir string
	Err error
}

func (e *DirectoryUnavailableError) Error() string {
	return fmt.Sprintf("directory unavailable: %s: %v", e.Dir, e.Err)
}

func (e *DirectoryUnavailableError) Unwrap() error { return e.Err }

func (e *DirectoryUnavailableError) Is(target error) bool {
	return target == ErrDirectoryUnavailable
}

// FileUnreadableError means one asset below the root could not be read.
type FileUnreadableError struct {
	Path string
	Err  error
}

func (e *FileUnreadableError) Error() string {
	return fmt.Sprintf("file unreadable: %s: %v", e.Path, e.Err)
}

func (e *FileUnreadableError) Unwrap() error { return e.Err }

func (e *FileUnreadableError) Is(target error) bool {
	return target == ErrFileUnreadable
}

// Transform rewrites an asset's bytes before embedding. It must be pure.
type Transform func(path string, data []byte) ([]byte, error)

// Options tunes a scan. The zero value scans everything except
// fsutil.DefaultExcludes.
type Options struct {
	// Prefix is prepended to every logical path, e.g. "static".
	Prefix  string
	Include []string
	Exclude []string
	// NoDefaultExcludes disables fsutil.DefaultExcludes.
	NoDefaultExcludes bool
	Transform         Transform
	ContentType       contenttype.Func
}

// Asset is one file read from disk.
type Asset struct {
	// Path is the lookup key: slash-separated, relative, prefix applied.
	Path string
	// Source is the absolute file the bytes came from.
	Source      string
	Data        []byte
	ContentType string
}

// resolveRoot converts root to an absolute, symlink-free directory path.
func resolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", &DirectoryUnavailableError{Dir: root, Err: err}
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", &DirectoryUnavailableError{Dir: abs, Err: err}
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", &DirectoryUnavailableError{Dir: abs, Err: err}
	}
	if !info.IsDir() {
		return "", &DirectoryUnavailableError{Dir: abs, Err: errors.New("not a directory")}
	}
	f, err := os.Open(resolved)
	if err != nil {
		return "", &DirectoryUnavailableError{Dir: abs, Err: err}
	}
	defer f.Close()
	if _, err := f.ReadDir(1); err != nil && !errors.Is(err, io.EOF) {
		return "", &DirectoryUnavailableError{Dir: abs, Err: err}
	}
	return resolved, nil
}

// NormalizePrefix turns a user supplied mount prefix into the form joined
// in front of asset paths. An empty result means no prefix.
func NormalizePrefix(prefix string) string {
	return strings.Trim(fsutil.NormalizePath(prefix), "/")
}

// Dir reads every regular file under root that passes the filters and
// returns the assets sorted by Path. The first unreadable file aborts the
// scan; no partial result is returned.
func Dir(root string, opts Options) ([]Asset, error) {
	rootPath, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}

	filter := fsutil.Filter{Include: opts.Include, Exclude: opts.Exclude}
	if !opts.NoDefaultExcludes {
		filter.Exclude = append(append([]string{}, opts.Exclude...), fsutil.DefaultExcludes...)
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	files, err := fsutil.ListFiles(rootPath, filter)
	if err != nil {
		return nil, classify(rootPath, err)
	}

	ctFunc := opts.ContentType
	if ctFunc == nil {
		ctFunc = contenttype.Default
	}
	prefix := NormalizePrefix(opts.Prefix)

	assets := make([]Asset, 0, len(files))
	for _, f := range files {
		source := filepath.Join(rootPath, f.Rel)
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, &FileUnreadableError{Path: source, Err: err}
		}

		logical := f.Path
		if prefix != "" {
			logical = prefix + "/" + logical
		}

		if opts.Transform != nil {
			data, err = opts.Transform(logical, data)
			if err != nil {
				return nil, fmt.Errorf("transform %s: %w", source, err)
			}
		}

		assets = append(assets, Asset{
			Path:        logical,
			Source:      source,
			Data:        data,
			ContentType: contenttype.Of(ctFunc, logical, data),
		})
		logger.Debug("scanned %s (%d bytes)", logical, len(data))
	}

	sort.SliceStable(assets, func(i, j int) bool { return assets[i].Path < assets[j].Path })
	logger.Info("scanned %d assets in %s", len(assets), rootPath)
	return assets, nil
}

// classify maps a walk failure onto the scan error types.
func classify(rootPath string, err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		if filepath.Clean(pe.Path) == rootPath {
			return &DirectoryUnavailableError{Dir: rootPath, Err: pe.Err}
		}
		return &FileUnreadableError{Path: pe.Path, Err: pe.Err}
	}
	return &DirectoryUnavailableError{Dir: rootPath, Err: err}
}
