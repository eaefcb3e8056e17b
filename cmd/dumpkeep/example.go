package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const examples = `
  =======================================
  Usage Examples
  =======================================

  1) Change path: $ dumpkeep path /tmp/backups
  2) Add a database: $ dumpkeep add --db=my_database
  3) Remove a database: $ dumpkeep remove --db=my_database
  4) Show all databases: $ dumpkeep dbs
  5) Dump all databases: $ dumpkeep dump
  6) Dump a specific database: $ dumpkeep dump --db=my_database
  7) List all existing backups: $ dumpkeep list
  8) List all backups from a specific db: $ dumpkeep list --db=my_database
  9) Restore all databases using the last backup file: $ dumpkeep restore
  10) Restore a specific database using the last backup file: $ dumpkeep restore --db=my_database
  11) Restore a specific database using a specific backup file: $ dumpkeep restore --db=my_database --date=2018-01-01
  12) Restore all databases using a specific date: $ dumpkeep restore --date=2018-01-01
  13) Follow the backup directory as JSON: $ dumpkeep list --watch -o json
`

func newExampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "example",
		Short: "Show some usage examples",
		Args:  cobra.NoArgs,
		// Needs no config or registry.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), examples)
		},
	}
}
