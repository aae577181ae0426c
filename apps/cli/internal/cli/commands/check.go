package commands

import (
	"flag"
	"fmt"
	"os"

	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/cli/flags"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/cli/util"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/generate"
)

func init() {
	Register(&Command{
		Name:        "check",
		Description: "Fail when the generated file is missing or out of date",
		Usage:       "webappgen check [--root DIR] [--config FILE] [--verbose]",
		Run:         RunCheck,
	})
}

// CheckOptions contains the configuration for the check command.
type CheckOptions struct {
	Root       string
	ConfigPath string
	Verbose    bool
}

// RunCheck executes the check command with parsed arguments.
func RunCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	root := flags.AddRootFlag(fs)
	cfgPath := flags.AddConfigFlag(fs)
	verbose := flags.AddVerboseFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	return ExecuteCheck(CheckOptions{
		Root:       *root,
		ConfigPath: *cfgPath,
		Verbose:    *verbose,
	})
}

// ExecuteCheck regenerates in memory and compares with the file on disk.
// It never writes. A stale or missing output is reported as an error.
func ExecuteCheck(opts CheckOptions) error {
	configureLogging(opts.Verbose, false)
	cfg, err := LoadConfig(GenerateOptions{Root: opts.Root, ConfigPath: opts.ConfigPath})
	if err != nil {
		return err
	}

	res, err := generate.Check(cfg, generate.Options{})
	if err != nil {
		return err
	}

	output := displayPath(res.Bundle.Output)
	if len(res.Changes) > 0 {
		fmt.Printf("assets changed since the last recorded build:\n")
		util.PrintChanges(os.Stdout, res.Changes, changePreview)
	}
	switch {
	case res.Missing:
		return fmt.Errorf("%s does not exist; run 'webappgen generate'", output)
	case res.Stale:
		return fmt.Errorf("%s is stale; run 'webappgen generate'", output)
	}

	fmt.Printf("check ok; %s is up to date (%d assets, bundle %s)\n", output, res.Bundle.Table.Len(), res.Bundle.BundleID)
	return nil
}
