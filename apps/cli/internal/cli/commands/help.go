package commands

import (
	"fmt"
	"strings"
)

func init() {
	Register(&Command{
		Name:        "help",
		Aliases:     []string{"-h", "--help"},
		Description: "Show help for a command or topic",
		Usage:       "webappgen help [command|config]",
		Run:         RunHelp,
	})
}

// RunHelp executes the help command with parsed arguments.
func RunHelp(args []string) error {
	if len(args) == 0 {
		return ShowUsage()
	}

	topic := strings.ToLower(strings.TrimSpace(args[0]))
	return ShowHelpTopic(topic)
}

// ShowUsage displays the main usage message.
func ShowUsage() error {
	fmt.Print(`webappgen - compile a directory of web assets into Go source

COMMANDS
`)
	for _, cmd := range List() {
		fmt.Printf("  %-9s %s\n", cmd.Name, cmd.Description)
	}
	fmt.Print(`  version   Show version information

EXAMPLES
  webappgen init                              # Write webapp.jsonc
  webappgen generate                          # Build from webapp.jsonc
  webappgen generate --watch                  # Rebuild on every change
  webappgen generate --dir web --out ui/webapp_gen.go --pkg ui \
                     --name Demo --version 1.0  # Build without a config file
  webappgen check                             # Fail in CI when stale

GO GENERATE
  //go:generate go run github.com/mehmetkoksal-w/webappgen/apps/cli/cmd/webappgen generate --quiet

Run 'webappgen help <command>' for detailed help on a command.
Run 'webappgen help config' for the configuration file format.
`)
	return nil
}

// ShowHelpTopic displays help for a specific command or topic.
func ShowHelpTopic(topic string) error {
	if topic == "config" {
		fmt.Print(configHelp)
		return nil
	}
	cmd, ok := Get(topic)
	if !ok {
		return fmt.Errorf("unknown help topic: %s\nRun 'webappgen help' for available commands", topic)
	}
	fmt.Printf("%s - %s\n\nUSAGE\n  %s\n", cmd.Name, cmd.Description, cmd.Usage)
	if len(cmd.Aliases) > 0 {
		fmt.Printf("\nALIASES\n  %s\n", strings.Join(cmd.Aliases, ", "))
	}
	return nil
}

const configHelp = `webapp.jsonc - generator configuration

Paths are relative to the configuration file. Comments are allowed.

  schemaVersion   "1.0.0"
  kind            "webappgen/config"
  sources         [{"dir": "web", "prefix": "static"}]
  include         doublestar globs to embed (default: everything)
  exclude         doublestar globs to skip
  contentTypes    {".wasm": "application/wasm"} extension overrides
  output.file     generated Go file
  output.package  package clause of the generated file
  output.type     exported type implementing webapp.WebApp (default App)
  output.strategy auto, ladder or hash (default auto)
  manifest        record builds in .webappgen/manifest.db
  metadata        name and version are required; author, description
                  and iconUrl are optional

The JSON schemas are written to .webappgen/schemas by 'webappgen init'.
`
