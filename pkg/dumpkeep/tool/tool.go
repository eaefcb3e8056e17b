// Package tool invokes the external dump and restore programs.
package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/logging"
)

// waitDelay bounds how long a cancelled tool may hold its output pipes open.
const waitDelay = 2 * time.Second

// Placeholders substituted into argument templates.
const (
	PlaceholderDB      = "{db}"
	PlaceholderArchive = "{archive}"
)

// Kind classifies how an invocation ended.
type Kind int

const (
	// KindOK means the tool exited zero with nothing on stderr.
	KindOK Kind = iota

	// KindInvocation means the tool could not be started at all.
	KindInvocation

	// KindTool means the tool ran but exited non-zero or wrote to stderr.
	KindTool
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindInvocation:
		return "invocation"
	case KindTool:
		return "tool"
	default:
		return "unknown"
	}
}

// Result is the captured outcome of one invocation.
type Result struct {
	Stdout string
	Stderr string
	Err    error
	Kind   Kind
}

// OK reports whether the invocation succeeded.
func (r Result) OK() bool {
	return r.Kind == KindOK
}

// Runner runs the dump and restore tools.
type Runner interface {
	Dump(ctx context.Context, db, archivePath string) Result
	Restore(ctx context.Context, archivePath string) Result
}

// Command is a binary plus its argument template.
type Command struct {
	Binary string
	Args   []string
}

// DefaultDumpCommand writes a gzip archive of one database. --quiet keeps
// progress messages off stderr, where they would read as a failure.
func DefaultDumpCommand() Command {
	return Command{
		Binary: "mongodump",
		Args:   []string{"--quiet", "--db", PlaceholderDB, "--gzip", "--archive=" + PlaceholderArchive},
	}
}

// DefaultRestoreCommand restores a gzip archive.
func DefaultRestoreCommand() Command {
	return Command{
		Binary: "mongorestore",
		Args:   []string{"--quiet", "--gzip", "--archive=" + PlaceholderArchive},
	}
}

// Exec runs tools as child processes. Arguments are passed as an array,
// never through a shell, so database names cannot inject commands.
type Exec struct {
	DumpCmd    Command
	RestoreCmd Command

	// Timeout bounds each invocation. Zero waits indefinitely.
	Timeout time.Duration
}

// NewExec returns an Exec runner. Zero-value commands fall back to the
// mongodump/mongorestore defaults.
func NewExec(dump, restore Command, timeout time.Duration) *Exec {
	if dump.Binary == "" {
		dump = DefaultDumpCommand()
	}
	if restore.Binary == "" {
		restore = DefaultRestoreCommand()
	}
	return &Exec{DumpCmd: dump, RestoreCmd: restore, Timeout: timeout}
}

// Dump implements Runner.
func (e *Exec) Dump(ctx context.Context, db, archivePath string) Result {
	return e.run(ctx, e.DumpCmd, expand(e.DumpCmd.Args, db, archivePath))
}

// Restore implements Runner.
func (e *Exec) Restore(ctx context.Context, archivePath string) Result {
	return e.run(ctx, e.RestoreCmd, expand(e.RestoreCmd.Args, "", archivePath))
}

func (e *Exec) run(ctx context.Context, cmd Command, args []string) Result {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	logger := logging.Get("tool")
	logger.Debug("running tool", "binary", cmd.Binary, "args", strings.Join(args, " "))

	stdout, stderr, err := runCommand(ctx, cmd.Binary, args)
	res := classify(stdout, stderr, err)
	if ctxErr := ctx.Err(); ctxErr != nil && res.Kind != KindOK {
		res.Err = fmt.Errorf("%s interrupted: %w", cmd.Binary, ctxErr)
	}

	if res.OK() {
		logger.Debug("tool finished", "binary", cmd.Binary)
	} else {
		logger.Warn("tool failed", "binary", cmd.Binary, "kind", res.Kind, "error", res.Err)
	}
	return res
}

func runCommand(ctx context.Context, binary string, args []string) (string, string, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.WaitDelay = waitDelay
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	err := cmd.Run()
	return stdoutBuf.String(), stderrBuf.String(), err
}

// classify maps a finished command to a Result. A process that never
// started is an invocation error; a non-zero exit or any stderr output is a
// tool error.
func classify(stdout, stderr string, err error) Result {
	res := Result{Stdout: stdout, Stderr: stderr}

	var exitErr *exec.ExitError
	switch {
	case err == nil && stderr == "":
		res.Kind = KindOK
	case err == nil:
		res.Kind = KindTool
		res.Err = fmt.Errorf("tool reported: %s", firstLine(stderr))
	case errors.As(err, &exitErr):
		res.Kind = KindTool
		res.Err = fmt.Errorf("exit status %d: %s", exitErr.ExitCode(), firstLine(stderr))
	default:
		res.Kind = KindInvocation
		res.Err = err
	}
	return res
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if line, _, ok := strings.Cut(s, "\n"); ok {
		return line
	}
	return s
}

func expand(template []string, db, archive string) []string {
	r := strings.NewReplacer(PlaceholderDB, db, PlaceholderArchive, archive)
	out := make([]string, len(template))
	for i, arg := range template {
		out[i] = r.Replace(arg)
	}
	return out
}
