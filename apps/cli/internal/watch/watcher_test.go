package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// collector records batches delivered to an OnChangeFunc.
type collector struct {
	mu       sync.Mutex
	changes  []FileChange
	received chan struct{}
}

func newCollector() *collector {
	return &collector{received: make(chan struct{}, 10)}
}

func (c *collector) onChange(changes []FileChange) error {
	c.mu.Lock()
	c.changes = append(c.changes, changes...)
	c.mu.Unlock()
	select {
	case c.received <- struct{}{}:
	default:
	}
	return nil
}

func (c *collector) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.received:
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for file change notification")
	}
}

func (c *collector) has(path, action string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.changes {
		if ch.Path == path && (action == "" || ch.Action == action) {
			return true
		}
	}
	return false
}

func startWatcher(t *testing.T, roots []string, fn OnChangeFunc, cfg WatcherConfig) *Watcher {
	t.Helper()
	watcher, err := New(roots, fn, cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	go func() {
		_ = watcher.Start(ctx)
	}()
	// Give watcher time to initialize
	time.Sleep(200 * time.Millisecond)
	return watcher
}

func fastConfig() WatcherConfig {
	cfg := DefaultConfig()
	cfg.Debounce = 100 * time.Millisecond
	return cfg
}

func TestNewWatcher(t *testing.T) {
	root := t.TempDir()

	watcher, err := New([]string{root}, nil, DefaultConfig())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer watcher.Stop()

	if len(watcher.roots) != 1 || watcher.roots[0] != root {
		t.Errorf("expected root %s, got %v", root, watcher.roots)
	}
}

func TestNewWatcherValidation(t *testing.T) {
	if _, err := New(nil, nil, DefaultConfig()); err == nil {
		t.Error("expected error without roots")
	}
	cfg := DefaultConfig()
	cfg.IgnorePatterns = []string{"[broken"}
	if _, err := New([]string{t.TempDir()}, nil, cfg); err == nil {
		t.Error("expected error for malformed ignore pattern")
	}
}

func TestWatcherDetectsFileCreation(t *testing.T) {
	root := t.TempDir()
	c := newCollector()
	startWatcher(t, []string{root}, c.onChange, fastConfig())

	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte("<html></html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	c.wait(t)

	if !c.has("index.html", "") {
		t.Errorf("expected change for index.html, got: %+v", c.changes)
	}
}

func TestWatcherDetectsFileModification(t *testing.T) {
	root := t.TempDir()
	testFile := filepath.Join(root, "app.css")
	if err := os.WriteFile(testFile, []byte("body{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := newCollector()
	startWatcher(t, []string{root}, c.onChange, fastConfig())

	if err := os.WriteFile(testFile, []byte("body{color:red}"), 0o644); err != nil {
		t.Fatal(err)
	}
	c.wait(t)

	if !c.has("app.css", "modify") {
		t.Errorf("expected modify change for app.css, got: %+v", c.changes)
	}
}

func TestWatcherIgnoresPatternsAndPaths(t *testing.T) {
	root := t.TempDir()
	gitDir := filepath.Join(root, ".git")
	if err := os.MkdirAll(gitDir, 0o755); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(root, "webapp_gen.go")

	var changeCount int32
	cfg := DefaultConfig()
	cfg.Debounce = 50 * time.Millisecond
	cfg.IgnorePatterns = append(cfg.IgnorePatterns, "**/*.map")
	cfg.IgnorePaths = []string{output}

	startWatcher(t, []string{root}, func(c []FileChange) error {
		atomic.AddInt32(&changeCount, int32(len(c)))
		return nil
	}, cfg)

	_ = os.WriteFile(filepath.Join(gitDir, "config"), []byte("test"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "app.js.map"), []byte("{}"), 0o644)
	_ = os.WriteFile(output, []byte("package ui"), 0o644)

	time.Sleep(300 * time.Millisecond)

	if n := atomic.LoadInt32(&changeCount); n > 0 {
		t.Errorf("expected no changes for ignored paths, got %d", n)
	}
}

func TestWatcherMultipleRoots(t *testing.T) {
	dist := t.TempDir()
	vendor := t.TempDir()
	c := newCollector()
	startWatcher(t, []string{dist, vendor}, c.onChange, fastConfig())

	if err := os.WriteFile(filepath.Join(vendor, "lib.js"), []byte("lib()"), 0o644); err != nil {
		t.Fatal(err)
	}
	c.wait(t)

	c.mu.Lock()
	defer c.mu.Unlock()
	found := false
	for _, ch := range c.changes {
		if ch.Path == "lib.js" && ch.Root == vendor {
			found = true
		}
	}
	if !found {
		t.Errorf("expected lib.js under %s, got: %+v", vendor, c.changes)
	}
}

func TestWatcherDebouncing(t *testing.T) {
	root := t.TempDir()

	var batchCount int32
	var totalChanges int32
	batchReceived := make(chan struct{}, 10)

	cfg := DefaultConfig()
	cfg.Debounce = 200 * time.Millisecond

	startWatcher(t, []string{root}, func(c []FileChange) error {
		atomic.AddInt32(&batchCount, 1)
		atomic.AddInt32(&totalChanges, int32(len(c)))
		batchReceived <- struct{}{}
		return nil
	}, cfg)

	// Faster than the debounce window, so one batch is expected
	for i := 0; i < 5; i++ {
		testFile := filepath.Join(root, "chunk-"+string(rune('a'+i))+".js")
		_ = os.WriteFile(testFile, []byte("content"), 0o644)
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case <-batchReceived:
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for debounced notification")
	}
	time.Sleep(500 * time.Millisecond)

	if batches := atomic.LoadInt32(&batchCount); batches > 2 {
		t.Errorf("expected 1-2 batches due to debouncing, got %d", batches)
	}
	if changes := atomic.LoadInt32(&totalChanges); changes < 5 {
		t.Errorf("expected at least 5 changes, got %d", changes)
	}
}

func TestWatcherStats(t *testing.T) {
	root := t.TempDir()
	_ = os.MkdirAll(filepath.Join(root, "css"), 0o755)
	_ = os.MkdirAll(filepath.Join(root, "js"), 0o755)
	_ = os.MkdirAll(filepath.Join(root, ".git", "objects"), 0o755)
	_ = os.MkdirAll(filepath.Join(root, "js", "vendor", ".git", "objects"), 0o755)

	watcher, err := New([]string{root}, nil, DefaultConfig())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer watcher.Stop()

	if err := watcher.addWatchRecursive(root, root); err != nil {
		t.Fatalf("addWatchRecursive() error: %v", err)
	}

	// root, css, js and js/vendor; both .git trees are skipped
	if stats := watcher.Stats(); stats.WatchedDirs != 4 {
		t.Errorf("expected 4 watched dirs, got %d", stats.WatchedDirs)
	}
}

func TestWatcherMissingRoot(t *testing.T) {
	watcher, err := New([]string{filepath.Join(t.TempDir(), "nope")}, nil, DefaultConfig())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer watcher.Stop()
	if err := watcher.Start(context.Background()); err == nil {
		t.Error("Start() expected error for missing root")
	}
}

func TestWatcherGracefulStop(t *testing.T) {
	root := t.TempDir()

	watcher, err := New([]string{root}, nil, DefaultConfig())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = watcher.Start(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop within timeout")
	}
}

func TestWatcherHandlesNewDirectories(t *testing.T) {
	root := t.TempDir()
	c := newCollector()
	startWatcher(t, []string{root}, c.onChange, fastConfig())

	newDir := filepath.Join(root, "img")
	_ = os.MkdirAll(newDir, 0o755)
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(newDir, "logo.svg"), []byte("<svg/>"), 0o644)

	c.wait(t)
	time.Sleep(300 * time.Millisecond)

	if !c.has("img", "") && !c.has("img/logo.svg", "") {
		t.Errorf("expected changes for the new directory, got: %+v", c.changes)
	}
}
