package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/cli/flags"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/cli/util"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/config"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/fsutil"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/generate"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/logger"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/scan"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/watch"
)

func init() {
	Register(&Command{
		Name:        "generate",
		Aliases:     []string{"gen"},
		Description: "Compile the asset directories into a Go source file",
		Usage: `webappgen generate [--config FILE] [--dir DIR] [--prefix P] [--out FILE]
                   [--pkg NAME] [--type NAME] [--strategy auto|ladder|hash]
                   [--include GLOB] [--exclude GLOB] [--manifest[=false]]
                   [--name N --version V --author A --description D --icon URL]
                   [--watch] [--debounce D] [--verbose] [--debug] [--quiet]

With --watch, webapp.jsonc is reloaded before every rebuild. When a
rebuild reads from different source directories, the watcher switches
to them. Editing webapp.jsonc outside the sources takes effect on the
next source change.`,
		Run: RunGenerate,
	})
}

// changePreview caps how many asset changes a command prints.
const changePreview = 20

// GenerateOptions contains the configuration for the generate command.
// Non-empty fields override the configuration file.
type GenerateOptions struct {
	Root       string
	ConfigPath string

	Dir      string
	Prefix   string
	Out      string
	Package  string
	Type     string
	Strategy string
	Include  []string
	Exclude  []string
	Manifest flags.BoolFlag

	Name        string
	Version     string
	Author      string
	Description string
	Icon        string

	Watch    bool
	Debounce time.Duration
	Verbose  bool
	Debug    bool
	Quiet    bool

	// Transform is applied to every asset before embedding. It has no
	// flag form and exists for programmatic callers.
	Transform scan.Transform
}

// RunGenerate parses flags and runs the generator.
func RunGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	opts := GenerateOptions{}
	root := flags.AddRootFlag(fs)
	cfgPath := flags.AddConfigFlag(fs)
	fs.StringVar(&opts.Dir, "dir", "", "asset directory (replaces the configured sources)")
	fs.StringVar(&opts.Prefix, "prefix", "", "path prefix for embedded assets")
	fs.StringVar(&opts.Out, "out", "", "generated Go file")
	fs.StringVar(&opts.Package, "pkg", "", "package of the generated file")
	fs.StringVar(&opts.Type, "type", "", "exported type implementing webapp.WebApp")
	fs.StringVar(&opts.Strategy, "strategy", "", "lookup strategy: auto, ladder or hash")
	var include, exclude flags.StringList
	fs.Var(&include, "include", "glob of files to embed (repeatable)")
	fs.Var(&exclude, "exclude", "glob of files to skip (repeatable)")
	fs.Var(&opts.Manifest, "manifest", "record builds in .webappgen/manifest.db")
	fs.StringVar(&opts.Name, "name", "", "application name")
	fs.StringVar(&opts.Version, "version", "", "application version")
	fs.StringVar(&opts.Author, "author", "", "application author")
	fs.StringVar(&opts.Description, "description", "", "application description")
	fs.StringVar(&opts.Icon, "icon", "", "application icon URL")
	fs.BoolVar(&opts.Watch, "watch", false, "regenerate whenever a source file changes")
	debounce := flags.AddDebounceFlag(fs, watch.DefaultConfig().Debounce)
	verbose := flags.AddVerboseFlag(fs)
	debug := flags.AddDebugFlag(fs)
	quiet := flags.AddQuietFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	opts.Root = *root
	opts.ConfigPath = *cfgPath
	opts.Include = include
	opts.Exclude = exclude
	opts.Debounce = *debounce
	opts.Verbose = *verbose
	opts.Debug = *debug
	opts.Quiet = *quiet

	return ExecuteGenerate(opts)
}

// ExecuteGenerate performs generation with the given options.
func ExecuteGenerate(opts GenerateOptions) error {
	configureLogging(opts.Verbose, opts.Debug)
	if err := flags.ValidateStrategy(opts.Strategy); err != nil {
		return err
	}
	if opts.Package != "" {
		if err := flags.ValidatePackageName(opts.Package); err != nil {
			return err
		}
	}
	if opts.Type != "" {
		if err := flags.ValidateTypeName(opts.Type); err != nil {
			return err
		}
	}
	if opts.Watch {
		if err := flags.ValidateDebounce(opts.Debounce); err != nil {
			return err
		}
	}

	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	res, err := generate.Run(cfg, generate.Options{Transform: opts.Transform})
	if err != nil {
		if !opts.Watch {
			return err
		}
		fmt.Fprintf(os.Stderr, "webappgen: %v\n", err)
	} else if !opts.Quiet {
		printResult(os.Stdout, res)
	}

	if !opts.Watch {
		return nil
	}
	return watchAndRegenerate(opts, cfg)
}

// LoadConfig reads the configuration named by opts, or the webapp.jsonc in
// the root when present, and applies the flag overrides. Without a
// configuration file the flags alone must describe the build.
func LoadConfig(opts GenerateOptions) (*config.Config, error) {
	root := util.MustAbs(opts.Root)
	path := opts.ConfigPath
	if path == "" {
		path = config.Find(root)
	}

	var cfg *config.Config
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		if opts.Dir == "" {
			return nil, fmt.Errorf("no %s in %s; pass --config, or --dir, --out, --pkg, --name and --version", config.FileName, root)
		}
		cfg = config.New(root)
		cfg.Output.Type = "App"
		cfg.Output.Strategy = "auto"
	}

	applyOverrides(cfg, opts)
	return cfg, nil
}

func applyOverrides(cfg *config.Config, opts GenerateOptions) {
	if opts.Dir != "" {
		cfg.Sources = []config.Source{{Dir: util.MustAbs(opts.Dir)}}
	}
	if opts.Prefix != "" {
		for i := range cfg.Sources {
			cfg.Sources[i].Prefix = opts.Prefix
		}
	}
	cfg.Include = append(cfg.Include, opts.Include...)
	cfg.Exclude = append(cfg.Exclude, opts.Exclude...)
	if opts.Manifest.WasSet {
		cfg.Manifest = opts.Manifest.Value
	}

	out := &cfg.Output
	override(&out.File, util.AbsOrEmpty(opts.Out))
	override(&out.Package, opts.Package)
	override(&out.Type, opts.Type)
	override(&out.Strategy, opts.Strategy)

	meta := &cfg.Metadata
	override(&meta.Name, opts.Name)
	override(&meta.Version, opts.Version)
	override(&meta.Author, opts.Author)
	override(&meta.Description, opts.Description)
	override(&meta.IconURL, opts.Icon)
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func configureLogging(verbose, debug bool) {
	switch {
	case debug:
		logger.SetLevel(logger.LevelDebug)
	case verbose:
		logger.SetLevel(logger.LevelInfo)
	default:
		logger.SetLevel(logger.LevelOff)
	}
}

func printResult(w io.Writer, res *generate.Result) {
	b := res.Bundle
	state := "wrote"
	if !res.Written {
		state = "unchanged"
	}
	fmt.Fprintf(w, "%s %s: %d assets, %d bytes, %s lookup, bundle %s\n",
		state, displayPath(b.Output), b.Table.Len(), b.Table.Size(), b.Strategy, b.BundleID)
	util.PrintChanges(w, res.Changes, changePreview)
}

// displayPath shortens path relative to the working directory when it
// lies below it.
func displayPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	if rel, ok := fsutil.RelBelow(wd, path); ok {
		return rel
	}
	return path
}

// watchConfig ignores the generated file, the manifest directory and the
// configured excludes so a regeneration never triggers another one.
func watchConfig(cfg *config.Config, debounce time.Duration) watch.WatcherConfig {
	wc := watch.DefaultConfig()
	wc.Debounce = debounce
	wc.IgnorePatterns = append(wc.IgnorePatterns, cfg.Exclude...)
	wc.IgnorePaths = []string{
		cfg.OutputPath(),
		filepath.Join(cfg.BaseDir, config.LayoutDir),
	}
	return wc
}

func watchAndRegenerate(opts GenerateOptions, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		roots := generate.SourceDirs(cfg)
		restart := make(chan *config.Config, 1)
		w, err := watch.New(roots, regenerateOnChange(opts, roots, restart), watchConfig(cfg, opts.Debounce))
		if err != nil {
			return err
		}
		if !opts.Quiet {
			fmt.Printf("watching %d source directories; press Ctrl+C to stop\n", len(roots))
		}

		done := make(chan error, 1)
		go func() { done <- w.Start(ctx) }()

		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		case next := <-restart:
			w.Stop()
			<-done
			logger.Info("source directories changed, restarting watcher")
			cfg = next
		}
	}
}

// regenerateOnChange rebuilds from a freshly loaded configuration. When a
// successful build reads from directories other than roots, the new
// configuration is sent on restart so the watcher can follow it.
func regenerateOnChange(opts GenerateOptions, roots []string, restart chan<- *config.Config) watch.OnChangeFunc {
	return func(changes []watch.FileChange) error {
		logger.Info("%d file change(s), regenerating", len(changes))
		for _, c := range changes {
			logger.Debug("%s %s", c.Action, filepath.Join(c.Root, filepath.FromSlash(c.Path)))
		}
		next, err := LoadConfig(opts)
		if err == nil {
			var res *generate.Result
			if res, err = generate.Run(next, generate.Options{Transform: opts.Transform}); err == nil {
				if !opts.Quiet {
					printResult(os.Stdout, res)
				}
				if !sameDirs(roots, generate.SourceDirs(next)) {
					select {
					case restart <- next:
					default:
					}
				}
			}
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "webappgen: %v\n", err)
		}
		return nil
	}
}

func sameDirs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, d := range a {
		seen[d]++
	}
	for _, d := range b {
		if seen[d] == 0 {
			return false
		}
		seen[d]--
	}
	return true
}
