package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage dumpkeep configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/dumpkeep/config.yaml (if set)
  2. ~/.config/dumpkeep/config.yaml

Environment variables can override config file settings using the DUMPKEEP_ prefix:
  DUMPKEEP_JOBS=4
  DUMPKEEP_CATALOG_MATCH=exact
  DUMPKEEP_TOOLS_TIMEOUT=30m`,
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show current configuration",
			Long:  `Display the current configuration settings from all sources.`,
			Args:  cobra.NoArgs,
			RunE:  a.runConfigShow,
		},
		&cobra.Command{
			Use:   "edit",
			Short: "Edit configuration file",
			Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
			Args: cobra.NoArgs,
			RunE: a.runConfigEdit,
		},
		&cobra.Command{
			Use:   "init",
			Short: "Create default configuration file",
			Long:  `Create a default configuration file if one doesn't exist.`,
			Args:  cobra.NoArgs,
			RunE:  a.runConfigInit,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Show configuration file path",
			Long:  `Display the path to the configuration file.`,
			Args:  cobra.NoArgs,
			RunE:  a.runConfigPath,
		},
	)

	return configCmd
}

// runConfigShow displays the current configuration.
func (a *app) runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := a.cfg
	out := cmd.OutOrStdout()

	if configFile := a.v.ConfigFileUsed(); configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fmt.Fprintf(out, "Config file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(out, "Config file: (using defaults, no file found)\n\n")
		}
	} else {
		fmt.Fprintf(out, "Config file: (using defaults, no file found)\n\n")
	}

	fmt.Fprintln(out, "Current Configuration:")
	fmt.Fprintln(out, "----------------------")
	fmt.Fprintf(out, "registry.path:          %s\n", cfg.Registry.Path)
	fmt.Fprintf(out, "catalog.match:          %s\n", cfg.Catalog.Match)
	fmt.Fprintf(out, "jobs:                   %d\n", cfg.Jobs)
	fmt.Fprintf(out, "output:                 %s\n", cfg.Output)
	fmt.Fprintf(out, "tools.dump:             %s %s\n", cfg.Tools.Dump.Binary, strings.Join(cfg.Tools.Dump.Args, " "))
	fmt.Fprintf(out, "tools.restore:          %s %s\n", cfg.Tools.Restore.Binary, strings.Join(cfg.Tools.Restore.Args, " "))
	fmt.Fprintf(out, "tools.timeout:          %s\n", timeoutLabel(cfg))
	fmt.Fprintf(out, "history.enabled:        %t\n", cfg.History.Enabled)
	fmt.Fprintf(out, "history.path:           %s\n", cfg.History.Path)
	fmt.Fprintf(out, "history.retention:      %d days\n", cfg.History.RetentionDays)
	fmt.Fprintf(out, "watch.debounce:         %s\n", cfg.Watch.Debounce)
	fmt.Fprintf(out, "logging.level:          %s\n", cfg.Logging.Level)

	// Show any environment overrides
	fmt.Fprintln(out, "\nEnvironment Overrides:")
	fmt.Fprintln(out, "----------------------")
	keys := []string{
		"registry.path",
		"catalog.match",
		"jobs",
		"output",
		"tools.timeout",
		"history.enabled",
		"history.path",
		"history.retention_days",
		"watch.debounce",
		"logging.level",
		"logging.path",
	}

	anyOverrides := false
	for _, key := range keys {
		name := config.EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if val := os.Getenv(name); val != "" {
			fmt.Fprintf(out, "%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Fprintln(out, "(none)")
	}

	return nil
}

func timeoutLabel(cfg *config.Config) string {
	if cfg.Tools.Timeout == 0 {
		return "none"
	}
	return cfg.Tools.Timeout.String()
}

// runConfigEdit opens the config file in an editor.
func (a *app) runConfigEdit(cmd *cobra.Command, args []string) error {
	configPath, _, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	a.printVerbose(cmd, "Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

// runConfigInit creates a default config file.
func (a *app) runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, created, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	if !created {
		a.printInfo(cmd, "Config file already exists: %s", configPath)
		a.printInfo(cmd, "Use 'dumpkeep config edit' to modify it.")
		return nil
	}

	a.printInfo(cmd, "Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func (a *app) runConfigPath(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigFile()
	if err != nil {
		return fmt.Errorf("failed to get config file path: %w", err)
	}
	if a.cfgFile != "" {
		configPath = a.cfgFile
	}

	fmt.Fprintln(cmd.OutOrStdout(), configPath)

	if _, err := os.Stat(configPath); err == nil {
		a.printVerbose(cmd, "File exists")
	} else if os.IsNotExist(err) {
		a.printVerbose(cmd, "File does not exist (will use defaults)")
	}

	return nil
}
