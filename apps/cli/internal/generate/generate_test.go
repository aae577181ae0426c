package generate

import (
	"bytes"
	"errors"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/config"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/index"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/metadata"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/scan"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/synth"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/table"
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

func exampleConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	writeTree(t, filepath.Join(base, "dist"), map[string]string{
		"index.html":  "<html></html>",
		"css/app.css": "body{}",
	})
	cfg := config.New(base)
	cfg.Sources = []config.Source{{Dir: "dist"}}
	cfg.Output = config.Output{File: "ui/webapp_gen.go", Package: "ui", Type: "App", Strategy: "auto"}
	cfg.Metadata = config.Metadata{Name: "Demo", Version: "1.0", Author: "T", Description: "d", IconURL: "icon.png"}
	return cfg
}

func TestRunExampleScenario(t *testing.T) {
	cfg := exampleConfig(t)

	res, err := Run(cfg, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Written {
		t.Error("first Run() should write the output")
	}
	if res.Bundle.Table.Len() != 2 || res.Bundle.Strategy != synth.Ladder {
		t.Errorf("bundle = %d assets, %s", res.Bundle.Table.Len(), res.Bundle.Strategy)
	}

	src, err := os.ReadFile(cfg.OutputPath())
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Equal(src, res.Bundle.Source) {
		t.Error("file on disk differs from the bundle")
	}
	if _, err := parser.ParseFile(token.NewFileSet(), "", src, 0); err != nil {
		t.Fatalf("output does not parse: %v", err)
	}
	for _, want := range []string{`"<html></html>"`, `"body{}"`, `"text/html"`, `"text/css"`, `"Demo"`} {
		if !bytes.Contains(src, []byte(want)) {
			t.Errorf("output missing %s", want)
		}
	}

	again, err := Run(cfg, Options{})
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if again.Written {
		t.Error("identical inputs should not rewrite the output")
	}
}

func TestRunEmptySource(t *testing.T) {
	cfg := exampleConfig(t)
	empty := filepath.Join(cfg.BaseDir, "empty")
	if err := os.MkdirAll(empty, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg.Sources = []config.Source{{Dir: "empty"}}

	res, err := Run(cfg, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Bundle.Table.Len() != 0 {
		t.Errorf("Len() = %d, want 0", res.Bundle.Table.Len())
	}
	if !bytes.Contains(res.Bundle.Source, []byte(`Name:        "Demo"`)) {
		t.Error("empty bundle lost its metadata")
	}
}

func TestBuildMultipleSourcesWithPrefix(t *testing.T) {
	cfg := exampleConfig(t)
	writeTree(t, filepath.Join(cfg.BaseDir, "vendor"), map[string]string{"lib.js": "lib()"})
	cfg.Sources = append(cfg.Sources, config.Source{Dir: "vendor", Prefix: "vendor"})

	bundle, err := Build(cfg, Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	e, ok := bundle.Table.Lookup("vendor/lib.js")
	if !ok || e.ContentType != "text/javascript" {
		t.Errorf("Lookup(vendor/lib.js) = (%+v, %v)", e, ok)
	}
}

func TestBuildDuplicateAcrossSources(t *testing.T) {
	cfg := exampleConfig(t)
	writeTree(t, filepath.Join(cfg.BaseDir, "extra"), map[string]string{"index.html": "<p>other</p>"})
	cfg.Sources = append(cfg.Sources, config.Source{Dir: "extra"})

	_, err := Build(cfg, Options{})
	var dup *table.DuplicatePathError
	if !errors.As(err, &dup) {
		t.Fatalf("Build() error = %v, want *table.DuplicatePathError", err)
	}
	if dup.Path != "index.html" || dup.SourceA == dup.SourceB {
		t.Errorf("DuplicatePathError = %+v", dup)
	}
}

func TestBuildMissingSource(t *testing.T) {
	cfg := exampleConfig(t)
	cfg.Sources = []config.Source{{Dir: "nope"}}
	if _, err := Build(cfg, Options{}); !errors.Is(err, scan.ErrDirectoryUnavailable) {
		t.Errorf("Build() error = %v, want ErrDirectoryUnavailable", err)
	}
}

func TestBuildInvalidMetadata(t *testing.T) {
	cfg := exampleConfig(t)
	cfg.Metadata.IconURL = "bad icon.png"

	_, err := Build(cfg, Options{})
	var fe *metadata.InvalidFieldError
	if !errors.As(err, &fe) || fe.Field != "iconUrl" {
		t.Errorf("Build() error = %v, want invalid iconUrl", err)
	}
}

func TestBuildSkipsOwnOutput(t *testing.T) {
	cfg := exampleConfig(t)
	cfg.Output.File = "dist/webapp_gen.go"
	cfg.Manifest = true
	cfg.Sources = []config.Source{{Dir: "."}}

	if _, err := Run(cfg, Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	bundle, err := Build(cfg, Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for _, p := range bundle.Table.Paths() {
		if p == "dist/webapp_gen.go" || filepath.Dir(p) == config.LayoutDir {
			t.Errorf("bundle embeds generated artifact %q", p)
		}
	}
}

func TestBuildSkipsOwnOutputBelowDotDotNamedDir(t *testing.T) {
	cfg := exampleConfig(t)
	cfg.Output.File = "..gen/webapp_gen.go"
	cfg.Sources = []config.Source{{Dir: "."}}

	if _, err := Run(cfg, Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	bundle, err := Build(cfg, Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for _, p := range bundle.Table.Paths() {
		if p == "..gen/webapp_gen.go" {
			t.Errorf("bundle embeds generated artifact %q", p)
		}
	}
	if _, ok := bundle.Table.Lookup("dist/index.html"); !ok {
		t.Error("bundle lost dist/index.html")
	}
}

func TestBuildTransform(t *testing.T) {
	cfg := exampleConfig(t)
	bundle, err := Build(cfg, Options{Transform: func(path string, data []byte) ([]byte, error) {
		return bytes.ToUpper(data), nil
	}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	e, _ := bundle.Table.Lookup("css/app.css")
	if string(e.Data) != "BODY{}" {
		t.Errorf("Data = %q, want transformed bytes", e.Data)
	}
}

func TestRunRecordsManifestAndCheckReportsChanges(t *testing.T) {
	cfg := exampleConfig(t)
	cfg.Manifest = true

	first, err := Run(cfg, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if first.BuildID == 0 {
		t.Fatal("first build was not recorded")
	}

	same, err := Run(cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if same.BuildID != 0 || len(same.Changes) != 0 {
		t.Errorf("unchanged rebuild = build %d, changes %v", same.BuildID, same.Changes)
	}

	check, err := Check(cfg, Options{})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if check.Stale {
		t.Error("fresh output reported stale")
	}

	dist := filepath.Join(cfg.BaseDir, "dist")
	writeTree(t, dist, map[string]string{"css/app.css": "body{color:red}", "js/main.js": "main()"})
	if err := os.Remove(filepath.Join(dist, "index.html")); err != nil {
		t.Fatal(err)
	}

	check, err = Check(cfg, Options{})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !check.Stale {
		t.Error("changed sources not reported stale")
	}
	want := []index.Change{
		{Path: "css/app.css", Kind: index.Modified},
		{Path: "index.html", Kind: index.Removed},
		{Path: "js/main.js", Kind: index.Added},
	}
	if len(check.Changes) != len(want) {
		t.Fatalf("Changes = %v, want %v", check.Changes, want)
	}
	for i := range want {
		if check.Changes[i] != want[i] {
			t.Errorf("Changes[%d] = %v, want %v", i, check.Changes[i], want[i])
		}
	}

	second, err := Run(cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if second.BuildID == 0 || len(second.Changes) != 3 {
		t.Errorf("second build = id %d, changes %v", second.BuildID, second.Changes)
	}
}

func TestCheckMissingOutputDoesNotWrite(t *testing.T) {
	cfg := exampleConfig(t)
	cfg.Manifest = true

	res, err := Check(cfg, Options{})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !res.Stale || !res.Missing {
		t.Errorf("Check() = stale %v, missing %v; want both", res.Stale, res.Missing)
	}
	if _, err := os.Stat(cfg.OutputPath()); !os.IsNotExist(err) {
		t.Error("Check() wrote the output")
	}
	if _, err := os.Stat(cfg.ManifestPath()); !os.IsNotExist(err) {
		t.Error("Check() created a manifest")
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	cfg := exampleConfig(t)
	a, err := Build(cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build(cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Source, b.Source) || a.BundleID != b.BundleID {
		t.Error("identical inputs produced different bundles")
	}
}

func TestSourceDirs(t *testing.T) {
	root := t.TempDir()
	cfg := config.New(root)
	cfg.Sources = []config.Source{{Dir: "web"}, {Dir: filepath.Join(root, "abs")}}

	dirs := SourceDirs(cfg)
	if len(dirs) != 2 || dirs[0] != filepath.Join(root, "web") || dirs[1] != filepath.Join(root, "abs") {
		t.Errorf("SourceDirs() = %v", dirs)
	}
}
