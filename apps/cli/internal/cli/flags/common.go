package flags

import (
	"flag"
	"time"
)

// AddRootFlag adds --root and -r flags for the project root.
func AddRootFlag(fs *flag.FlagSet) *string {
	root := fs.String("root", ".", "project root")
	fs.StringVar(root, "r", ".", "project root (shorthand)")
	return root
}

// AddConfigFlag adds --config and -c flags for the configuration file.
func AddConfigFlag(fs *flag.FlagSet) *string {
	path := fs.String("config", "", "configuration file (default: ./webapp.jsonc when present)")
	fs.StringVar(path, "c", "", "configuration file (shorthand)")
	return path
}

// AddVerboseFlag adds --verbose and -v flags for progress logging.
func AddVerboseFlag(fs *flag.FlagSet) *bool {
	verbose := fs.Bool("verbose", false, "log progress to stderr")
	fs.BoolVar(verbose, "v", false, "log progress to stderr (shorthand)")
	return verbose
}

// AddDebugFlag adds --debug for per-file logging.
func AddDebugFlag(fs *flag.FlagSet) *bool {
	return fs.Bool("debug", false, "log every asset and lookup decision")
}

// AddForceFlag adds --force and -f flags for overwrite operations.
func AddForceFlag(fs *flag.FlagSet) *bool {
	force := fs.Bool("force", false, "overwrite existing files")
	fs.BoolVar(force, "f", false, "overwrite existing files (shorthand)")
	return force
}

// AddQuietFlag adds --quiet and -q flags for quiet mode.
func AddQuietFlag(fs *flag.FlagSet) *bool {
	quiet := fs.Bool("quiet", false, "suppress non-essential output")
	fs.BoolVar(quiet, "q", false, "suppress non-essential output (shorthand)")
	return quiet
}

// AddDebounceFlag adds --debounce for watch mode.
func AddDebounceFlag(fs *flag.FlagSet, defaultValue time.Duration) *time.Duration {
	return fs.Duration("debounce", defaultValue, "delay before regenerating after a change")
}
