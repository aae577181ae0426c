package fsutil_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/fsutil"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

func TestFilterMatch(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		filter fsutil.Filter
		want   bool
	}{
		{name: "empty filter admits all", path: "index.html", filter: fsutil.Filter{}, want: true},
		{name: "default excludes .DS_Store", path: "img/.DS_Store", filter: fsutil.Filter{Exclude: fsutil.DefaultExcludes}, want: false},
		{name: "default excludes .git", path: ".git/config", filter: fsutil.Filter{Exclude: fsutil.DefaultExcludes}, want: false},
		{name: "default excludes nested .git", path: "vendor/lib/.git/config", filter: fsutil.Filter{Exclude: fsutil.DefaultExcludes}, want: false},
		{name: "default excludes nested .git dir", path: "vendor/lib/.git", filter: fsutil.Filter{Exclude: fsutil.DefaultExcludes}, want: false},
		{name: "default keeps .gitignore", path: "vendor/lib/.gitignore", filter: fsutil.Filter{Exclude: fsutil.DefaultExcludes}, want: true},
		{name: "exclude source maps", path: "js/app.js.map", filter: fsutil.Filter{Exclude: []string{"**/*.map"}}, want: false},
		{name: "include restricts", path: "docs/readme.md", filter: fsutil.Filter{Include: []string{"**/*.{html,css,js}"}}, want: false},
		{name: "include admits", path: "css/app.css", filter: fsutil.Filter{Include: []string{"**/*.{html,css,js}"}}, want: true},
		{name: "exclude wins over include", path: "js/vendor.js", filter: fsutil.Filter{Include: []string{"**"}, Exclude: []string{"js/vendor.js"}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(tt.path); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestFilterValidate(t *testing.T) {
	if err := (fsutil.Filter{Include: []string{"**/*.js"}}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := (fsutil.Filter{Exclude: []string{"[unclosed"}}).Validate(); err == nil {
		t.Error("expected error for malformed glob")
	}
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"index.html":         "index.html",
		"./css/app.css":      "css/app.css",
		"/js/main.js":        "js/main.js",
		`img\logo.png`:       "img/logo.png",
		"a//b":               "a//b",
		"Mixed/Case.HTML":    "Mixed/Case.HTML",
		"dir/trailing/":      "dir/trailing/",
		"././nested/file.js": "nested/file.js",
	}
	for in, want := range cases {
		if got := fsutil.NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRelBelow(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "proj", "web")
	cases := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{path: root, want: ".", wantOK: true},
		{path: filepath.Join(root, "css", "app.css"), want: filepath.Join("css", "app.css"), wantOK: true},
		{path: filepath.Join(root, "..assets", "app.js"), want: filepath.Join("..assets", "app.js"), wantOK: true},
		{path: filepath.Join(root, "..."), want: "...", wantOK: true},
		{path: filepath.Dir(root), wantOK: false},
		{path: filepath.Join(filepath.Dir(root), "ui", "webapp_gen.go"), wantOK: false},
		{path: filepath.Join(filepath.Dir(root), "web..", "x"), wantOK: false},
	}
	for _, tc := range cases {
		got, ok := fsutil.RelBelow(root, tc.path)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("RelBelow(%q, %q) = %q, %v; want %q, %v", root, tc.path, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestListFilesSortedAndFiltered(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"index.html":       "<html></html>",
		"css/app.css":      "body{}",
		"js/z.js":          "z",
		"js/a.js":          "a",
		"js/a.js.map":      "{}",
		"node_modules/x":   "x",
		"img/.DS_Store":    "",
		"css/print/p.css":  "p",
		".git/HEAD":        "ref",
		"js/lib/.git/HEAD": "ref",
	})

	files, err := fsutil.ListFiles(root, fsutil.Filter{
		Exclude: append([]string{"**/*.map", "node_modules/**"}, fsutil.DefaultExcludes...),
	})
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}

	want := []string{"css/app.css", "css/print/p.css", "index.html", "js/a.js", "js/z.js"}
	if len(files) != len(want) {
		t.Fatalf("ListFiles() returned %d files, want %d: %+v", len(files), len(want), files)
	}
	for i, f := range files {
		if f.Path != want[i] {
			t.Errorf("files[%d].Path = %q, want %q", i, f.Path, want[i])
		}
		if filepath.ToSlash(f.Rel) != f.Path {
			t.Errorf("files[%d].Rel = %q does not correspond to %q", i, f.Rel, f.Path)
		}
	}
}

func TestListFilesFollowsFileSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	outside := t.TempDir()
	writeTree(t, outside, map[string]string{"shared.css": "x", "dir/inner.js": "y"})
	writeTree(t, root, map[string]string{"index.html": "i"})

	if err := os.Symlink(filepath.Join(outside, "shared.css"), filepath.Join(root, "shared.css")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if err := os.Symlink(filepath.Join(outside, "dir"), filepath.Join(root, "linked")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	files, err := fsutil.ListFiles(root, fsutil.Filter{})
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if len(files) != 2 || files[0].Path != "index.html" || files[1].Path != "shared.css" {
		t.Errorf("ListFiles() = %+v, want index.html and shared.css", files)
	}
}

func TestListFilesBrokenSymlinkFails(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	if err := os.Symlink(filepath.Join(root, "gone.js"), filepath.Join(root, "dangling.js")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if _, err := fsutil.ListFiles(root, fsutil.Filter{}); err == nil {
		t.Error("expected error for dangling symlink")
	}
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	if err := os.WriteFile(path, []byte("Hello, World!"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	hash, err := fsutil.HashFile(path)
	if err != nil {
		t.Fatalf("HashFile() error = %v", err)
	}
	if hash != fsutil.HashBytes([]byte("Hello, World!")) {
		t.Errorf("HashFile() = %s, disagrees with HashBytes", hash)
	}
	if len(hash) != 64 {
		t.Errorf("hash length = %d, want 64", len(hash))
	}

	if _, err := fsutil.HashFile(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteFileIfChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "webapp_gen.go")

	wrote, err := fsutil.WriteFileIfChanged(path, []byte("package ui\n"))
	if err != nil || !wrote {
		t.Fatalf("first write = (%v, %v), want (true, nil)", wrote, err)
	}
	wrote, err = fsutil.WriteFileIfChanged(path, []byte("package ui\n"))
	if err != nil || wrote {
		t.Fatalf("identical write = (%v, %v), want (false, nil)", wrote, err)
	}
	wrote, err = fsutil.WriteFileIfChanged(path, []byte("package web\n"))
	if err != nil || !wrote {
		t.Fatalf("changed write = (%v, %v), want (true, nil)", wrote, err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "package web\n" {
		t.Errorf("content = %q", data)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}
