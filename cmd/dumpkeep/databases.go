package main

import (
	"fmt"
	"strings"

	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/naming"
	"github.com/spf13/cobra"
)

const missParam = `[ERROR] Miss param: "--db=<database_name>" type "-h" to show the help.`

func newDBsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dbs",
		Short: "List the tracked databases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.openRegistry(cmd)
			if err != nil {
				return err
			}

			dbs := reg.TrackedDatabases()
			rule := strings.Repeat("=", 21)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, rule)
			fmt.Fprintf(out, "Databases: %d\n", len(dbs))
			fmt.Fprintln(out, rule)
			for _, db := range dbs {
				fmt.Fprintln(out, db)
			}
			return nil
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add --db=<name>",
		Short: "Track a database",
		Long: `Add a database to the registry so that "dump" and "restore" with
--db=all include it. Adding a tracked name does nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _ := cmd.Flags().GetString("db")
			if db == "" || db == naming.AllDatabases {
				fmt.Fprintln(cmd.ErrOrStderr(), missParam)
				return nil
			}

			reg, err := a.openRegistry(cmd)
			if err != nil {
				return err
			}

			added, err := reg.AddDatabase(db)
			if err != nil {
				return fmt.Errorf("failed to add database: %w", err)
			}
			if !added {
				a.printVerbose(cmd, "%s is already tracked", db)
				return nil
			}

			a.printInfo(cmd, "Tracking %s", db)
			return nil
		},
	}
	cmd.Flags().String("db", "", "database name")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove --db=<name>",
		Short: "Stop tracking a database",
		Long:  `Remove a database from the registry. Existing archives are kept.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _ := cmd.Flags().GetString("db")
			if db == "" || db == naming.AllDatabases {
				fmt.Fprintln(cmd.ErrOrStderr(), missParam)
				return nil
			}

			reg, err := a.openRegistry(cmd)
			if err != nil {
				return err
			}

			removed, err := reg.RemoveDatabase(db)
			if err != nil {
				return fmt.Errorf("failed to remove database: %w", err)
			}
			if !removed {
				a.printVerbose(cmd, "%s is not tracked", db)
				return nil
			}

			a.printInfo(cmd, "Stopped tracking %s", db)
			return nil
		},
	}
	cmd.Flags().String("db", "", "database name")
	return cmd
}
