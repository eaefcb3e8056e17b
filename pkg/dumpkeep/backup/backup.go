// Package backup runs dumps and restores for tracked databases and reports
// one Outcome per database.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/catalog"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/history"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/logging"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/naming"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/tool"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/types"
)

// Errors carried by failed outcomes.
var (
	// ErrInvocation means the external tool could not be started.
	ErrInvocation = errors.New("cannot invoke tool")

	// ErrTool means the external tool ran and reported failure.
	ErrTool = errors.New("tool reported an error")

	// ErrNoBackupFound means no archive matched the restore request.
	ErrNoBackupFound = errors.New("no backup found")
)

// Source supplies the backup directory and the tracked databases.
// *registry.Registry satisfies it.
type Source interface {
	BackupPath() string
	TrackedDatabases() []string
}

// Recorder receives every outcome. *history.Store satisfies it.
type Recorder interface {
	Record(e history.Entry) (history.Entry, error)
}

// Outcome is the result of one dump or restore of one database.
type Outcome struct {
	Operation types.Operation
	Database  string
	File      string
	Status    types.Status
	Err       error
	Stderr    string
	Duration  time.Duration
	SizeBytes int64
}

// OK reports whether the operation succeeded.
func (o Outcome) OK() bool {
	return o.Status.OK()
}

// Message is the one-line user-facing description of the outcome.
func (o Outcome) Message() string {
	switch {
	case o.OK() && o.Operation == types.OpDump:
		return fmt.Sprintf("File %s created successfully!", o.File)
	case o.OK():
		return fmt.Sprintf("Dump %s restored successfully!", o.File)
	case o.Err != nil:
		return o.Err.Error()
	default:
		return string(o.Status)
	}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithJobs sets how many databases DumpAll and RestoreAll process at once.
func WithJobs(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.jobs = n
		}
	}
}

// WithClock overrides the time source used for archive names.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithRecorder records every outcome.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithMatchMode sets how restore selectors match database names.
func WithMatchMode(m catalog.MatchMode) Option {
	return func(o *Orchestrator) {
		o.mode = m
	}
}

// Orchestrator drives the dump and restore tools.
type Orchestrator struct {
	src      Source
	runner   tool.Runner
	jobs     int
	now      func() time.Time
	recorder Recorder
	mode     catalog.MatchMode
}

// New creates an Orchestrator.
func New(src Source, runner tool.Runner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		src:    src,
		runner: runner,
		jobs:   1,
		now:    time.Now,
		mode:   catalog.MatchSubstring,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Dump writes <today>@<db>.gz into the backup directory. An archive of the
// same name from earlier in the day is overwritten by the tool.
func (o *Orchestrator) Dump(ctx context.Context, db string) Outcome {
	start := o.now()
	out := Outcome{Operation: types.OpDump, Database: db}

	if err := naming.ValidateDatabaseName(db); err != nil {
		out.Status, out.Err = types.StatusInvalidName, err
		return o.finish(out, start)
	}

	dir := o.src.BackupPath()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		out.Status = types.StatusDirectoryError
		out.Err = fmt.Errorf("%w %s: %w", catalog.ErrDirectoryRead, dir, err)
		return o.finish(out, start)
	}

	out.File = naming.Filename(start, db)
	archive := filepath.Join(dir, out.File)

	res := o.runner.Dump(ctx, db, archive)
	o.apply(&out, res)
	if out.OK() {
		if info, err := os.Stat(archive); err == nil {
			out.SizeBytes = info.Size()
		}
	}
	return o.finish(out, start)
}

// DumpAll dumps every tracked database. A failure never stops the others.
func (o *Orchestrator) DumpAll(ctx context.Context) []Outcome {
	return o.fanOut(ctx, func(ctx context.Context, db string) Outcome {
		return o.Dump(ctx, db)
	})
}

// Restore loads the archive chosen by selector ("last" or a date fragment)
// for db. An empty db or "all" considers every archive.
func (o *Orchestrator) Restore(ctx context.Context, db, selector string) Outcome {
	start := o.now()
	out := Outcome{Operation: types.OpRestore, Database: db}

	dir := o.src.BackupPath()
	file, found, err := catalog.SelectRestoreCandidate(dir, db, selector, o.mode)
	if err != nil {
		out.Status, out.Err = types.StatusDirectoryError, err
		return o.finish(out, start)
	}
	if !found {
		out.Status = types.StatusNoBackup
		if db == "" || db == naming.AllDatabases {
			out.Err = fmt.Errorf("%w.", ErrNoBackupFound)
		} else {
			out.Err = fmt.Errorf("%w to %q database", ErrNoBackupFound, db)
		}
		return o.finish(out, start)
	}

	out.File = file
	archive := filepath.Join(dir, file)
	if info, err := os.Stat(archive); err == nil {
		out.SizeBytes = info.Size()
	}

	o.apply(&out, o.runner.Restore(ctx, archive))
	return o.finish(out, start)
}

// RestoreAll restores every tracked database with the same selector.
func (o *Orchestrator) RestoreAll(ctx context.Context, selector string) []Outcome {
	return o.fanOut(ctx, func(ctx context.Context, db string) Outcome {
		return o.Restore(ctx, db, selector)
	})
}

// fanOut runs fn for every tracked database, at most o.jobs at a time.
// Outcomes keep registry order.
func (o *Orchestrator) fanOut(ctx context.Context, fn func(context.Context, string) Outcome) []Outcome {
	dbs := o.src.TrackedDatabases()
	outcomes := make([]Outcome, len(dbs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.jobs)
	for i, db := range dbs {
		g.Go(func() error {
			outcomes[i] = fn(gctx, db)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (o *Orchestrator) apply(out *Outcome, res tool.Result) {
	out.Stderr = res.Stderr
	switch res.Kind {
	case tool.KindOK:
		out.Status = types.StatusSuccess
	case tool.KindInvocation:
		out.Status = types.StatusInvocationError
		out.Err = fmt.Errorf("%w: %w", ErrInvocation, res.Err)
	default:
		out.Status = types.StatusToolError
		out.Err = fmt.Errorf("%w: %w", ErrTool, res.Err)
	}
}

func (o *Orchestrator) finish(out Outcome, start time.Time) Outcome {
	out.Duration = o.now().Sub(start)

	logger := logging.Get("backup").With("op", out.Operation, "db", out.Database)
	if out.OK() {
		logger.Info("finished", "file", out.File, "duration", out.Duration)
	} else {
		logger.Error("failed", "status", out.Status, "file", out.File, "error", out.Err)
	}

	if o.recorder != nil {
		entry := history.Entry{
			Operation: out.Operation,
			Database:  out.Database,
			File:      out.File,
			Status:    out.Status,
			SizeBytes: out.SizeBytes,
			Duration:  out.Duration,
		}
		if out.Err != nil {
			entry.Message = out.Err.Error()
		}
		if _, err := o.recorder.Record(entry); err != nil {
			logger.Warn("could not record history", "error", err)
		}
	}
	return out
}

// Failed counts unsuccessful outcomes.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if !o.OK() {
			n++
		}
	}
	return n
}
