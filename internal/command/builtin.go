package command

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/joeycumines/jrbench/internal/config"
)

// HelpCommand displays help information for commands.
type HelpCommand struct {
	*BaseCommand
	registry *Registry
}

// NewHelpCommand creates a new help command.
func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{
		BaseCommand: NewBaseCommand(
			"help",
			"Display help information for commands",
			"help [command]",
		),
		registry: registry,
	}
}

// Execute displays general help, or help for the command named in args.
func (c *HelpCommand) Execute(_ context.Context, args []string, stdio IO) error {
	stdout := stdio.Stdout
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stdout, "jrbench - a terminal workbench for JSON transformation engines")
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Usage: jrbench <command> [options] [args...]")
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Available commands:")

		w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
		for _, name := range c.registry.List() {
			if cmd, err := c.registry.Get(name); err == nil {
				_, _ = fmt.Fprintf(w, "  %s\t%s\n", name, cmd.Description())
			}
		}
		_ = w.Flush()

		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Use 'jrbench help <command>' for more information about a specific command (includes flags).")
		return nil
	}

	cmd, err := c.registry.Get(args[0])
	if err != nil {
		_, _ = fmt.Fprintf(stdio.Stderr, "Unknown command: %s\n", args[0])
		return err
	}

	_, _ = fmt.Fprintf(stdout, "Command: %s\n", cmd.Name())
	_, _ = fmt.Fprintf(stdout, "Description: %s\n", cmd.Description())
	_, _ = fmt.Fprintf(stdout, "Usage: %s\n", cmd.Usage())

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	var buf bytes.Buffer
	fs.SetOutput(&buf)
	cmd.SetupFlags(fs)
	fs.PrintDefaults()
	if buf.Len() > 0 {
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Flags:")
		_, _ = fmt.Fprint(stdout, buf.String())
	}
	return nil
}

// VersionCommand displays version information.
type VersionCommand struct {
	*BaseCommand
	version string
}

// NewVersionCommand creates a new version command.
func NewVersionCommand(version string) *VersionCommand {
	return &VersionCommand{
		BaseCommand: NewBaseCommand(
			"version",
			"Display version information",
			"version",
		),
		version: version,
	}
}

// Execute displays version information.
func (c *VersionCommand) Execute(_ context.Context, args []string, stdio IO) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stdio.Stderr, "unexpected arguments: %v\n", args)
		return errors.New("unexpected arguments")
	}
	_, _ = fmt.Fprintf(stdio.Stdout, "jrbench version %s\n", c.version)
	return nil
}

// ConfigCommand reads, writes and validates configuration.
type ConfigCommand struct {
	*BaseCommand
	config     *config.Config
	configPath string
	showAll    bool
}

// NewConfigCommand creates a new config command. An empty configPath skips
// persisting values set through the command.
func NewConfigCommand(cfg *config.Config, configPath string) *ConfigCommand {
	return &ConfigCommand{
		BaseCommand: NewBaseCommand(
			"config",
			"Manage configuration settings",
			"config [options] [key [value] | validate | schema]",
		),
		config:     cfg,
		configPath: configPath,
	}
}

// SetupFlags configures the flags for the config command.
func (c *ConfigCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.showAll, "all", false, "Show all configuration (global and command-specific)")
}

// Execute manages configuration.
func (c *ConfigCommand) Execute(_ context.Context, args []string, stdio IO) error {
	stdout := stdio.Stdout
	schema := config.DefaultSchema()

	if len(args) == 0 {
		if c.showAll {
			c.printAll(stdio)
			return nil
		}
		_, _ = fmt.Fprintln(stdout, "Configuration management:")
		_, _ = fmt.Fprintln(stdout, "  config <key>          - Get configuration value")
		_, _ = fmt.Fprintln(stdout, "  config <key> <value>  - Set configuration value")
		_, _ = fmt.Fprintln(stdout, "  config -all           - Show all configuration")
		_, _ = fmt.Fprintln(stdout, "  config validate       - Validate configuration")
		_, _ = fmt.Fprintln(stdout, "  config schema         - Show configuration schema")
		return nil
	}

	switch args[0] {
	case "validate":
		return c.executeValidate(stdio)
	case "schema":
		_, _ = fmt.Fprint(stdout, schema.FormatHelp())
		return nil
	}

	switch len(args) {
	case 1:
		key := args[0]
		if schema.Lookup("", key) == nil {
			if _, exists := c.config.GetGlobalOption(key); !exists {
				_, _ = fmt.Fprintf(stdout, "Configuration key '%s' not found\n", key)
				return nil
			}
		}
		_, _ = fmt.Fprintf(stdout, "%s: %s\n", key, schema.Resolve(c.config, key))
		return nil

	case 2:
		key, value := args[0], args[1]
		if err := schema.ValidateValue(key, value); err != nil {
			_, _ = fmt.Fprintf(stdio.Stderr, "Invalid value for %s: %v\n", key, err)
			return err
		}
		c.config.SetGlobalOption(key, value)
		if c.configPath != "" {
			if err := config.SetKeyInFile(c.configPath, key, value); err != nil {
				_, _ = fmt.Fprintf(stdio.Stderr, "Warning: failed to persist config to disk: %v\n", err)
			}
		}
		_, _ = fmt.Fprintf(stdout, "Set configuration: %s = %s\n", key, value)
		return nil
	}

	_, _ = fmt.Fprintln(stdio.Stderr, "Invalid number of arguments")
	return errors.New("invalid arguments")
}

func (c *ConfigCommand) printAll(stdio IO) {
	_, _ = fmt.Fprintln(stdio.Stdout, "Global configuration:")
	for _, key := range sortedKeys(c.config.Global) {
		_, _ = fmt.Fprintf(stdio.Stdout, "  %s: %s\n", key, c.config.Global[key])
	}
	sections := make([]string, 0, len(c.config.Commands))
	for name := range c.config.Commands {
		sections = append(sections, name)
	}
	sort.Strings(sections)
	for _, name := range sections {
		_, _ = fmt.Fprintf(stdio.Stdout, "[%s]\n", name)
		for _, key := range sortedKeys(c.config.Commands[name]) {
			_, _ = fmt.Fprintf(stdio.Stdout, "  %s: %s\n", key, c.config.Commands[name][key])
		}
	}
}

// executeValidate validates the current config against the schema.
func (c *ConfigCommand) executeValidate(stdio IO) error {
	issues := config.ValidateConfig(c.config, config.DefaultSchema())
	if len(issues) == 0 {
		_, _ = fmt.Fprintln(stdio.Stdout, "Configuration is valid.")
		return nil
	}
	_, _ = fmt.Fprintf(stdio.Stdout, "Configuration has %d issue(s):\n", len(issues))
	for _, issue := range issues {
		_, _ = fmt.Fprintf(stdio.Stdout, "  - %s\n", issue)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
