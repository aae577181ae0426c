// Package generate runs the whole pipeline: scan the configured sources,
// build the asset table, plan the lookup, render the Go file and record
// the build.
package generate

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/config"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/contenttype"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/fsutil"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/gitutil"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/index"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/logger"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/metadata"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/scan"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/synth"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/table"
)

// keepBuilds is how many manifest entries are retained per output file.
const keepBuilds = 20

// Options are programmatic hooks that have no configuration file form.
type Options struct {
	Transform scan.Transform
}

// Bundle is a generated file held in memory.
type Bundle struct {
	Output   string
	Source   []byte
	BundleID string
	Strategy synth.Strategy
	Table    *table.Table
}

// Files returns the manifest records of the bundle's assets.
func (b *Bundle) Files() []index.FileRecord {
	entries := b.Table.Entries()
	out := make([]index.FileRecord, len(entries))
	for i, e := range entries {
		out[i] = index.FileRecord{
			Path:        e.Path,
			Source:      e.Source,
			Hash:        e.Digest,
			Size:        int64(len(e.Data)),
			ContentType: e.ContentType,
		}
	}
	return out
}

// Result summarizes a Run.
type Result struct {
	Bundle *Bundle
	// Written is false when the output already held identical bytes.
	Written bool
	// Changes lists asset differences against the previous manifest entry.
	Changes []index.Change
	// BuildID is the manifest row, zero when no build was recorded.
	BuildID int64
}

// Build produces the bundle for cfg without touching the output file.
func Build(cfg *config.Config, opts Options) (*Bundle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	strategy, err := synth.ParseStrategy(cfg.Output.Strategy)
	if err != nil {
		return nil, err
	}
	meta := cfg.Metadata.WebApp()
	if err := metadata.Validate(meta); err != nil {
		return nil, err
	}

	output := cfg.OutputPath()
	ctFunc := contenttype.WithOverrides(cfg.ContentTypes, contenttype.Default)

	var assets []scan.Asset
	for _, src := range cfg.Sources {
		root := cfg.Resolve(src.Dir)
		found, err := scan.Dir(root, scan.Options{
			Prefix:      src.Prefix,
			Include:     cfg.Include,
			Exclude:     append(append([]string{}, cfg.Exclude...), selfExcludes(root, output, cfg.BaseDir)...),
			Transform:   opts.Transform,
			ContentType: ctFunc,
		})
		if err != nil {
			return nil, err
		}
		assets = append(assets, found...)
	}

	tbl, err := table.Build(assets)
	if err != nil {
		return nil, err
	}
	layout, err := synth.Plan(tbl, strategy)
	if err != nil {
		return nil, err
	}
	src, err := synth.Render(layout, meta, synth.Options{Package: cfg.Output.Package, Type: cfg.Output.Type})
	if err != nil {
		return nil, err
	}

	logger.Info("planned %d assets (%d bytes) with %s lookup", tbl.Len(), tbl.Size(), layout.Strategy)
	return &Bundle{
		Output:   output,
		Source:   src,
		BundleID: synth.BundleID(tbl.Digest(), meta).String(),
		Strategy: layout.Strategy,
		Table:    tbl,
	}, nil
}

// selfExcludes keeps the generated file and the manifest directory out of
// a source that contains them, so a rebuild never embeds its own output.
func selfExcludes(root, output, baseDir string) []string {
	var out []string
	for _, p := range []string{output, filepath.Join(baseDir, config.LayoutDir)} {
		rel, ok := fsutil.RelBelow(root, p)
		if !ok || rel == "." {
			continue
		}
		norm := escapeGlob(fsutil.NormalizePath(rel))
		out = append(out, norm, norm+"/**")
	}
	return out
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`*?[]{}\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Run builds the bundle, writes it when its bytes changed and records the
// build in the manifest when enabled.
func Run(cfg *config.Config, opts Options) (*Result, error) {
	bundle, err := Build(cfg, opts)
	if err != nil {
		return nil, err
	}
	written, err := fsutil.WriteFileIfChanged(bundle.Output, bundle.Source)
	if err != nil {
		return nil, err
	}
	if written {
		logger.Info("wrote %s", bundle.Output)
	} else {
		logger.Info("%s is up to date", bundle.Output)
	}

	res := &Result{Bundle: bundle, Written: written}
	if !cfg.Manifest {
		return res, nil
	}
	if err := record(cfg, res); err != nil {
		return nil, fmt.Errorf("record build: %w", err)
	}
	return res, nil
}

func record(cfg *config.Config, res *Result) error {
	db, err := index.Open(cfg.ManifestPath())
	if err != nil {
		return err
	}
	defer db.Close()

	b := res.Bundle
	files := b.Files()
	current := toMap(files)

	prev, err := index.LatestBuild(db, b.Output)
	if err != nil {
		return err
	}
	if prev.ID != 0 {
		previous, err := index.LoadFiles(db, prev.ID)
		if err != nil {
			return err
		}
		res.Changes = index.Diff(previous, current)
		if prev.Digest == b.Table.Digest() && prev.BundleID == b.BundleID && prev.Strategy == string(b.Strategy) {
			logger.Debug("build %d already recorded", prev.ID)
			return nil
		}
	}

	id, err := index.RecordBuild(db, index.Build{
		BundleID:   b.BundleID,
		Output:     b.Output,
		Digest:     b.Table.Digest(),
		Strategy:   string(b.Strategy),
		Commit:     gitutil.Describe(cfg.BaseDir, SourceDirs(cfg)...),
		AssetCount: b.Table.Len(),
		Size:       b.Table.Size(),
	}, files)
	if err != nil {
		return err
	}
	res.BuildID = id
	if n, err := index.Prune(db, b.Output, keepBuilds); err != nil {
		logger.Warn("prune manifest: %v", err)
	} else if n > 0 {
		logger.Debug("pruned %d old builds", n)
	}
	return nil
}

// SourceDirs returns the absolute source directories of cfg.
func SourceDirs(cfg *config.Config) []string {
	dirs := make([]string, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		dirs = append(dirs, cfg.Resolve(src.Dir))
	}
	return dirs
}

func toMap(files []index.FileRecord) map[string]index.FileRecord {
	out := make(map[string]index.FileRecord, len(files))
	for _, f := range files {
		out[f.Path] = f
	}
	return out
}

// CheckResult describes how the output on disk relates to a fresh build.
type CheckResult struct {
	Bundle *Bundle
	// Stale is true when the output is missing or differs from the build.
	Stale   bool
	Missing bool
	// Changes lists assets changed since the last recorded build. It is
	// nil when no manifest exists.
	Changes []index.Change
}

// Check regenerates in memory and compares with the file on disk. It never
// writes the output and never creates a manifest.
func Check(cfg *config.Config, opts Options) (*CheckResult, error) {
	bundle, err := Build(cfg, opts)
	if err != nil {
		return nil, err
	}
	res := &CheckResult{Bundle: bundle}

	existing, err := os.ReadFile(bundle.Output)
	switch {
	case errors.Is(err, os.ErrNotExist):
		res.Stale, res.Missing = true, true
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", bundle.Output, err)
	default:
		res.Stale = !bytes.Equal(existing, bundle.Source)
	}

	if !cfg.Manifest {
		return res, nil
	}
	if _, err := os.Stat(cfg.ManifestPath()); err != nil {
		return res, nil
	}
	db, err := index.Open(cfg.ManifestPath())
	if err != nil {
		return nil, err
	}
	defer db.Close()
	prev, err := index.LatestBuild(db, bundle.Output)
	if err != nil || prev.ID == 0 {
		return res, err
	}
	previous, err := index.LoadFiles(db, prev.ID)
	if err != nil {
		return nil, err
	}
	res.Changes = index.Diff(previous, toMap(bundle.Files()))
	return res, nil
}
