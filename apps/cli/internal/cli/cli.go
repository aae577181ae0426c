// Package cli dispatches webappgen subcommands.
package cli

import (
	"fmt"

	"github.com/mehmetkoksal-w/webappgen/apps/cli/internal/cli/commands"
)

// Run executes the command named by args[0].
func Run(args []string) error {
	if len(args) == 0 {
		return usage()
	}

	switch args[0] {
	case "version", "--version", "-v":
		return cmdVersion(args[1:])
	}
	if cmd, ok := commands.Get(args[0]); ok {
		return cmd.Run(args[1:])
	}
	return fmt.Errorf("unknown command: %s\nRun 'webappgen help' for usage", args[0])
}

func usage() error {
	return commands.ShowUsage()
}
