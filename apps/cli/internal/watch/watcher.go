// Package watch regenerates bundles when their source directories change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/fsutil"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/logger"
)

// FileChange represents a detected file change.
type FileChange struct {
	Root   string // Watched root the path belongs to
	Path   string // Slash-separated path relative to Root
	Action string // "create", "modify", "delete", "rename"
}

// OnChangeFunc is the callback type for handling batched file changes.
type OnChangeFunc func(changes []FileChange) error

// WatcherConfig contains configuration for the file watcher.
type WatcherConfig struct {
	// Debounce is the delay before processing accumulated changes.
	// Default: 300ms
	Debounce time.Duration

	// IgnorePatterns are doublestar globs matched against paths relative
	// to each root.
	IgnorePatterns []string

	// IgnorePaths are absolute files or directories never reported, such
	// as the generated output.
	IgnorePaths []string
}

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() WatcherConfig {
	return WatcherConfig{
		Debounce: 300 * time.Millisecond,
		IgnorePatterns: append([]string{
			"**/*.swp",
			"**/*~",
			"**/.#*",
		}, fsutil.DefaultExcludes...),
	}
}

// Watcher watches directory trees for file changes with debouncing.
type Watcher struct {
	roots    []string
	config   WatcherConfig
	ignore   fsutil.Filter
	onChange OnChangeFunc
	watcher  *fsnotify.Watcher

	mu            sync.Mutex
	pending       map[string]FileChange
	debounceTimer *time.Timer

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher for the given root directories.
func New(roots []string, onChange OnChangeFunc, cfg WatcherConfig) (*Watcher, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("no directories to watch")
	}
	abs := make([]string, 0, len(roots))
	for _, r := range roots {
		a, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("resolve root path: %w", err)
		}
		abs = append(abs, a)
	}
	ignore := fsutil.Filter{Exclude: cfg.IgnorePatterns}
	if err := ignore.Validate(); err != nil {
		return nil, err
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultConfig().Debounce
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &Watcher{
		roots:    abs,
		config:   cfg,
		ignore:   ignore,
		onChange: onChange,
		watcher:  fsWatcher,
		pending:  make(map[string]FileChange),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching for file changes. It blocks until Stop is called or
// ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	for _, root := range w.roots {
		if err := w.addWatchRecursive(root, root); err != nil {
			return fmt.Errorf("add watch paths: %w", err)
		}
	}

	w.wg.Add(1)
	go w.processEvents(ctx)

	select {
	case <-ctx.Done():
		w.Stop()
		return ctx.Err()
	case <-w.done:
		return nil
	}
}

// Stop gracefully stops the watcher.
func (w *Watcher) Stop() {
	select {
	case <-w.done:
		return
	default:
		close(w.done)
	}

	w.wg.Wait()
	w.watcher.Close()

	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.mu.Unlock()
}

// addWatchRecursive adds dir and all its subdirectories to the watcher.
func (w *Watcher) addWatchRecursive(root, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && w.shouldIgnore(root, path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			logger.Debug("watch %s: %v", path, err)
		}
		return nil
	})
}

// shouldIgnore reports whether the absolute path below root is excluded.
func (w *Watcher) shouldIgnore(root, path string) bool {
	for _, p := range w.config.IgnorePaths {
		if path == p || strings.HasPrefix(path, p+string(filepath.Separator)) {
			return true
		}
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return true
	}
	return !w.ignore.Match(rel)
}

// rootOf returns the watched root containing path, preferring the deepest.
func (w *Watcher) rootOf(path string) (string, bool) {
	best := ""
	for _, r := range w.roots {
		if (path == r || strings.HasPrefix(path, r+string(filepath.Separator))) && len(r) > len(best) {
			best = r
		}
	}
	return best, best != ""
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watch error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	root, ok := w.rootOf(event.Name)
	if !ok || w.shouldIgnore(root, event.Name) {
		return
	}
	rel, err := filepath.Rel(root, event.Name)
	if err != nil {
		return
	}
	rel = fsutil.NormalizePath(rel)

	var action string
	switch {
	case event.Op&fsnotify.Create != 0:
		action = "create"
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addWatchRecursive(root, event.Name)
		}
	case event.Op&fsnotify.Write != 0:
		action = "modify"
	case event.Op&fsnotify.Remove != 0:
		action = "delete"
	case event.Op&fsnotify.Rename != 0:
		action = "rename"
	default:
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	key := filepath.Join(root, rel)
	// A file deleted and then recreated within one window was modified.
	if existing, exists := w.pending[key]; exists && existing.Action == "delete" && action == "create" {
		action = "modify"
	}
	w.pending[key] = FileChange{Root: root, Path: rel, Action: action}

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.config.Debounce, w.flushPending)
}

// flushPending hands the accumulated changes, sorted, to the callback.
func (w *Watcher) flushPending() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	changes := make([]FileChange, 0, len(w.pending))
	for _, change := range w.pending {
		changes = append(changes, change)
	}
	w.pending = make(map[string]FileChange)
	w.mu.Unlock()

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Root != changes[j].Root {
			return changes[i].Root < changes[j].Root
		}
		return changes[i].Path < changes[j].Path
	})

	if w.onChange != nil {
		if err := w.onChange(changes); err != nil {
			logger.Error("regenerate: %v", err)
		}
	}
}

// Stats returns current watcher statistics.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return WatcherStats{
		WatchedDirs:    len(w.watcher.WatchList()),
		PendingChanges: len(w.pending),
	}
}

// WatcherStats contains watcher statistics.
type WatcherStats struct {
	WatchedDirs    int
	PendingChanges int
}
