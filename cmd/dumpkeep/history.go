package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/config"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/history"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/types"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "View dump and restore history",
		Long: `View the history of dump and restore operations.

Every dump and restore is recorded with its outcome, archive and duration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHistory(cmd, limit)
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(
		&cobra.Command{
			Use:   "show [id]",
			Short: "Show details of a specific operation",
			Long:  `Display detailed information about a specific operation by its ID.`,
			Args:  cobra.ExactArgs(1),
			RunE:  a.runHistoryShow,
		},
		&cobra.Command{
			Use:   "clean",
			Short: "Clean up old history entries",
			Long:  `Remove history entries older than the retention period.`,
			Args:  cobra.NoArgs,
			RunE:  a.runHistoryClean,
		},
	)

	return historyCmd
}

// withHistory opens the store for the duration of fn.
func (a *app) withHistory(cmd *cobra.Command, fn func(*history.Store) error) error {
	store, err := a.openHistory()
	if err != nil {
		return err
	}
	if store == nil {
		a.printInfo(cmd, "History is disabled (history.enabled: false).")
		return nil
	}
	defer store.Close()
	return fn(store)
}

// runHistory lists recent operations.
func (a *app) runHistory(cmd *cobra.Command, limit int) error {
	return a.withHistory(cmd, func(store *history.Store) error {
		entries, err := store.List(limit)
		if err != nil {
			return fmt.Errorf("failed to list history: %w", err)
		}

		if len(entries) == 0 {
			a.printInfo(cmd, "No history entries found.")
			a.printInfo(cmd, "Run 'dumpkeep dump' to create an archive.")
			return nil
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\n%-36s  %-7s  %-16s  %-15s  %-10s  %s\n", "ID", "OP", "DATABASE", "STATUS", "SIZE", "WHEN")
		fmt.Fprintln(out, strings.Repeat("-", 110))

		for _, entry := range entries {
			fmt.Fprintf(out, "%-36s  %-7s  %-16s  %-15s  %-10s  %s\n",
				entry.ID,
				entry.Operation,
				truncateString(entry.Database, 16),
				entry.Status,
				types.FormatSize(entry.SizeBytes),
				humanize.Time(entry.Timestamp),
			)
		}

		fmt.Fprintln(out, strings.Repeat("-", 110))
		fmt.Fprintf(out, "\nShowing %d entries. Use --limit to see more.\n", len(entries))
		fmt.Fprintln(out, "Use 'dumpkeep history show <id>' for details on a specific entry.")
		return nil
	})
}

// runHistoryShow displays details of a specific operation.
func (a *app) runHistoryShow(cmd *cobra.Command, args []string) error {
	id := args[0]

	return a.withHistory(cmd, func(store *history.Store) error {
		entry, err := store.Get(id)
		if errors.Is(err, history.ErrNotFound) {
			return fmt.Errorf("no history entry %q", id)
		}
		if err != nil {
			return fmt.Errorf("failed to get entry: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "\nOperation Details")
		fmt.Fprintln(out, strings.Repeat("=", 60))
		fmt.Fprintf(out, "ID:         %s\n", entry.ID)
		fmt.Fprintf(out, "Timestamp:  %s\n", entry.Timestamp.Local().Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(out, "Operation:  %s\n", entry.Operation)
		fmt.Fprintf(out, "Database:   %s\n", entry.Database)
		fmt.Fprintf(out, "Status:     %s\n", entry.Status)
		if entry.File != "" {
			fmt.Fprintf(out, "File:       %s\n", entry.File)
			fmt.Fprintf(out, "Size:       %s\n", types.FormatSize(entry.SizeBytes))
		}
		fmt.Fprintf(out, "Duration:   %s\n", entry.Duration.Round(time.Millisecond))
		if entry.Message != "" {
			fmt.Fprintf(out, "Message:    %s\n", entry.Message)
		}
		return nil
	})
}

// runHistoryClean removes old history entries.
func (a *app) runHistoryClean(cmd *cobra.Command, args []string) error {
	return a.withHistory(cmd, func(store *history.Store) error {
		retentionDays := a.cfg.History.RetentionDays
		if retentionDays <= 0 {
			retentionDays = config.DefaultRetentionDays
		}

		a.printInfo(cmd, "Cleaning history entries older than %d days...", retentionDays)

		removed, err := store.Cleanup(time.Duration(retentionDays) * 24 * time.Hour)
		if err != nil {
			return fmt.Errorf("failed to clean history: %w", err)
		}

		a.printInfo(cmd, "History cleanup complete (%d removed).", removed)
		return nil
	})
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
