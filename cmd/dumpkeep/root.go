package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/config"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/logging"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/tool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// errOperationsFailed is returned when at least one dump or restore in a run
// did not succeed. The individual failures have already been printed.
var errOperationsFailed = errors.New("operations failed")

// app carries the per-invocation state shared by every command. Each
// invocation gets its own viper instance so repeated runs in one process
// (tests) do not leak flags or config into each other.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config

	// newRunner builds the external tool runner from the loaded config.
	newRunner func(cfg *config.Config) tool.Runner
}

func newApp() *app {
	return &app{
		v: viper.New(),
		newRunner: func(cfg *config.Config) tool.Runner {
			return tool.NewExec(cfg.Tools.Dump.Command(), cfg.Tools.Restore.Command(), cfg.Tools.Timeout)
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dumpkeep",
		Short: "Dump, list and restore database archives",
		Long: `Dumpkeep keeps dated database dumps in one backup directory.

Archives are named <YYYY-MM-DD>@<database>.gz. The registry remembers which
databases to handle and where the archives live.

Examples:
  dumpkeep add --db=shop          # Track a database
  dumpkeep dump                   # Dump every tracked database
  dumpkeep list                   # Latest archive per database
  dumpkeep restore --db=shop      # Restore the latest shop archive
  dumpkeep example                # More examples`,
		SilenceUsage:      true,
		PersistentPreRunE: a.initializeLogging,
	}

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ~/.config/dumpkeep/config.yaml)")
	rootCmd.PersistentFlags().String("registry", "", "registry file (default: ~/.config/dumpkeep/registry.json)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	// Bind flags to viper
	_ = a.v.BindPFlag("registry.path", rootCmd.PersistentFlags().Lookup("registry"))
	_ = a.v.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = a.v.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(
		newPathCmd(a),
		newListCmd(a),
		newDBsCmd(a),
		newAddCmd(a),
		newRemoveCmd(a),
		newDumpCmd(a),
		newRestoreCmd(a),
		newExampleCmd(),
		newHistoryCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logging.Close() }()
	return newRootCmd(newApp()).ExecuteContext(context.Background())
}

// getVerbose returns true if verbose mode is enabled.
func (a *app) getVerbose() bool {
	return a.v.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func (a *app) getQuiet() bool {
	return a.v.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func (a *app) printVerbose(cmd *cobra.Command, format string, args ...interface{}) {
	if a.getVerbose() && !a.getQuiet() {
		fmt.Fprintf(cmd.ErrOrStderr(), "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func (a *app) printInfo(cmd *cobra.Command, format string, args ...interface{}) {
	if !a.getQuiet() {
		fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func (a *app) printError(cmd *cobra.Command, format string, args ...interface{}) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: "+format+"\n", args...)
}
