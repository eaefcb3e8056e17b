package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path [abspath]",
		Short: "Show or set the backup directory",
		Long: `Without an argument, print the directory holding the archives.
With an absolute path, store it in the registry. A leading ~ is expanded.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPath(cmd, args)
		},
	}
}

func (a *app) runPath(cmd *cobra.Command, args []string) error {
	reg, err := a.openRegistry(cmd)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), reg.BackupPath())
		return nil
	}

	if err := reg.SetBackupPath(args[0]); err != nil {
		return fmt.Errorf("failed to update path: %w", err)
	}

	a.printInfo(cmd, "Path to files: %s", reg.BackupPath())
	return nil
}
