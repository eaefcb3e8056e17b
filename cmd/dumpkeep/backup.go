package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/backup"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/catalog"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/naming"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/registry"
	"github.com/spf13/cobra"
)

type backupOptions struct {
	db    string
	date  string
	exact bool
}

func newDumpCmd(a *app) *cobra.Command {
	opts := &backupOptions{}

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump one or every tracked database",
		Long: `Run the dump tool for a database, writing <today>@<db>.gz into the backup
directory. With --db=all (the default) every tracked database is dumped; one
failure does not stop the others.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBackup(cmd, func(ctx context.Context, o *backup.Orchestrator) []backup.Outcome {
				if opts.db == naming.AllDatabases {
					return o.DumpAll(ctx)
				}
				return []backup.Outcome{o.Dump(ctx, opts.db)}
			}, false)
		},
	}

	cmd.Flags().StringVar(&opts.db, "db", naming.AllDatabases, `database name or "all"`)
	cmd.Flags().IntP("jobs", "j", 0, "databases to dump in parallel (default from config)")

	return cmd
}

func newRestoreCmd(a *app) *cobra.Command {
	opts := &backupOptions{}

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore one or every tracked database",
		Long: `Run the restore tool against an archive from the backup directory.

--date=last (the default) picks the most recent archive. Any other value
picks the first archive whose name contains it, e.g. --date=2024-05-17.
With --db=all (the default) every tracked database is restored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.date != catalog.LastSelector {
				if _, err := naming.ParseDate(opts.date); err != nil {
					a.printVerbose(cmd, "--date=%s is not a full date, matching it as part of the file name", opts.date)
				}
			}
			return a.runBackup(cmd, func(ctx context.Context, o *backup.Orchestrator) []backup.Outcome {
				if opts.db == naming.AllDatabases {
					return o.RestoreAll(ctx, opts.date)
				}
				return []backup.Outcome{o.Restore(ctx, opts.db, opts.date)}
			}, opts.exact)
		},
	}

	cmd.Flags().StringVar(&opts.db, "db", naming.AllDatabases, `database name or "all"`)
	cmd.Flags().StringVar(&opts.date, "date", catalog.LastSelector, `archive date (YYYY-MM-DD) or "last"`)
	cmd.Flags().BoolVar(&opts.exact, "exact", false, "match database names exactly")
	cmd.Flags().IntP("jobs", "j", 0, "databases to restore in parallel (default from config)")

	return cmd
}

// runBackup runs fn against a freshly wired orchestrator and reports every
// outcome. Ctrl-C cancels in-flight tools.
func (a *app) runBackup(cmd *cobra.Command, fn func(context.Context, *backup.Orchestrator) []backup.Outcome, exact bool) error {
	// --jobs is per command, not bound to the jobs key.
	if cmd.Flags().Changed("jobs") {
		jobs, _ := cmd.Flags().GetInt("jobs")
		a.cfg.Jobs = max(jobs, 1)
	}

	reg, err := a.openRegistry(cmd)
	if err != nil {
		return err
	}

	orch, cleanup, err := a.newOrchestrator(cmd, reg, exact)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcomes := fn(ctx, orch)
	if len(outcomes) == 0 {
		a.printInfo(cmd, "No databases tracked. Add one with: dumpkeep add --db=<name>")
		return nil
	}

	return a.report(cmd, reg, outcomes)
}

// report prints one line per outcome and fails the command when any
// operation failed.
func (a *app) report(cmd *cobra.Command, reg *registry.Registry, outcomes []backup.Outcome) error {
	for _, o := range outcomes {
		if o.OK() {
			a.printInfo(cmd, "%s", o.Message())
			a.printVerbose(cmd, "%s %s: %s in %s", o.Operation, o.Database, humanize.IBytes(uint64(max(o.SizeBytes, 0))), o.Duration.Round(time.Millisecond))
			continue
		}

		a.printError(cmd, "%s", o.Message())
		if stderr := strings.TrimSpace(o.Stderr); stderr != "" {
			a.printVerbose(cmd, "%s output:\n%s", o.Database, stderr)
		}
	}

	failed := backup.Failed(outcomes)
	if failed == 0 {
		return nil
	}
	a.printVerbose(cmd, "Backup directory: %s", reg.BackupPath())
	return fmt.Errorf("%w: %d of %d", errOperationsFailed, failed, len(outcomes))
}
