package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/catalog"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/naming"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/output"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/watcher"
	"github.com/spf13/cobra"
)

type listOptions struct {
	db       string
	exact    bool
	watch    bool
	template string
}

func newListCmd(a *app) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the latest archive of each database",
		Long: `List the most recent archive of every database found in the backup
directory, or of the databases matching --db.

By default --db matches any archive whose name contains it, so --db=shop
also lists shop_eu. Use --exact to match the database name exactly.

Output formats: ` + strings.Join(output.Available(), ", "),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runList(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.db, "db", naming.AllDatabases, `database name or "all"`)
	cmd.Flags().BoolVar(&opts.exact, "exact", false, "match database names exactly")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "re-list whenever archives change")
	cmd.Flags().StringP("output", "o", "", "output format (default: pretty)")
	cmd.Flags().StringVar(&opts.template, "template", "", "Go template for each listing, implies -o template")

	_ = a.v.BindPFlag("output", cmd.Flags().Lookup("output"))

	return cmd
}

func (a *app) runList(cmd *cobra.Command, opts *listOptions) error {
	reg, err := a.openRegistry(cmd)
	if err != nil {
		return err
	}

	mode, err := a.matchMode(opts.exact)
	if err != nil {
		return err
	}

	formatter, err := a.formatter(opts)
	if err != nil {
		return err
	}

	dir := reg.BackupPath()
	render := func() error {
		c, err := catalog.Build(dir, opts.db, mode)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := formatter.Format(&buf, output.FromCatalog(c, opts.db)); err != nil {
			return fmt.Errorf("formatting output: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}

	if err := render(); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watcher.New(dir, a.cfg.Watch.Debounce)
	if err != nil {
		return err
	}
	defer w.Close()

	if !a.getQuiet() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl-C to stop)\n", dir)
	}

	err = w.Run(ctx, func(names []string) {
		a.printVerbose(cmd, "Changed: %s", strings.Join(names, ", "))
		if err := render(); err != nil {
			a.printError(cmd, "%v", err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *app) formatter(opts *listOptions) (output.Formatter, error) {
	if opts.template != "" {
		return output.NewTemplateFormatter(opts.template), nil
	}
	return output.Get(a.cfg.Output)
}
