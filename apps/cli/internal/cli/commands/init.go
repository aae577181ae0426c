package commands

import (
	"flag"
	"fmt"
	"path"
	"path/filepath"

	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/cli/flags"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/config"
	"github.com/mehmetkoksal-w/webappgen/apps/cli/starter"
)

func init() {
	Register(&Command{
		Name:        "init",
		Description: "Write a starter webapp.jsonc in the project root",
		Usage:       "webappgen init [--root DIR] [--dir DIR] [--pkg NAME] [--force]",
		Run:         RunInit,
	})
}

// InitOptions contains the configuration for the init command.
type InitOptions struct {
	Root    string
	Dir     string
	Package string
	Force   bool
}

// RunInit writes a starter configuration into the specified directory.
func RunInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	root := flags.AddRootFlag(fs)
	dir := fs.String("dir", "web", "asset directory, relative to the root")
	pkg := fs.String("pkg", "ui", "package of the generated file")
	force := flags.AddForceFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := InitOptions{
		Root:    *root,
		Dir:     *dir,
		Package: *pkg,
		Force:   *force,
	}

	return ExecuteInit(opts)
}

// ExecuteInit performs the initialization with the given options.
// This is separated for easier testing.
func ExecuteInit(opts InitOptions) error {
	if opts.Dir == "" {
		opts.Dir = "web"
	}
	if opts.Package == "" {
		opts.Package = "ui"
	}
	if err := flags.ValidatePackageName(opts.Package); err != nil {
		return err
	}

	rootPath, err := filepath.Abs(opts.Root)
	if err != nil {
		return err
	}
	if _, err := config.EnsureLayout(rootPath); err != nil {
		return err
	}
	if err := config.CopySchemas(rootPath); err != nil {
		return err
	}

	replacements := map[string]string{
		"dir":     filepath.ToSlash(opts.Dir),
		"file":    path.Join(opts.Package, "webapp_gen.go"),
		"package": opts.Package,
		"name":    filepath.Base(rootPath),
		"version": "0.1.0",
	}
	dest := filepath.Join(rootPath, config.FileName)
	wrote, err := config.WriteTemplate(dest, starter.ConfigTemplate, replacements, opts.Force)
	if err != nil {
		return err
	}
	if !wrote {
		fmt.Printf("%s already exists; use --force to overwrite\n", dest)
		return nil
	}

	fmt.Printf("wrote %s\n", dest)
	return nil
}
