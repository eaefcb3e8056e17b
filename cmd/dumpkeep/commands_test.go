package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/config"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/logging"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/naming"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every dumpkeep path at a fresh temp home.
func isolate(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("DUMPKEEP_HISTORY_PATH", filepath.Join(home, "history"))
	t.Setenv("DUMPKEEP_LOGGING_PATH", filepath.Join(home, "state", "dumpkeep.log"))
	return home
}

// fakeRunner writes a small archive for every dump and remembers restores.
type fakeRunner struct {
	mu       sync.Mutex
	fail     map[string]bool
	restored []string
}

func (f *fakeRunner) Dump(_ context.Context, db, archivePath string) tool.Result {
	if f.fail[db] {
		return tool.Result{Stderr: "connection refused", Err: errors.New("tool reported: connection refused"), Kind: tool.KindTool}
	}
	if err := os.WriteFile(archivePath, []byte("archive of "+db), 0o644); err != nil {
		return tool.Result{Err: err, Kind: tool.KindInvocation}
	}
	return tool.Result{}
}

func (f *fakeRunner) Restore(_ context.Context, archivePath string) tool.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restored = append(f.restored, filepath.Base(archivePath))
	return tool.Result{}
}

type cliResult struct {
	stdout string
	stderr string
	err    error
}

func runCLI(t *testing.T, runner tool.Runner, args ...string) cliResult {
	t.Helper()

	a := newApp()
	if runner != nil {
		a.newRunner = func(*config.Config) tool.Runner { return runner }
	}

	cmd := newRootCmd(a)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	require.NoError(t, logging.Close())

	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// setup isolates the environment and points the registry at a new backup dir.
func setup(t *testing.T) string {
	t.Helper()

	home := isolate(t)
	dumps := filepath.Join(home, "dumps")
	require.NoError(t, os.MkdirAll(dumps, 0o755))

	res := runCLI(t, nil, "path", dumps)
	require.NoError(t, res.err)
	return dumps
}

func touch(t *testing.T, dir, name string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), bytes.Repeat([]byte("x"), size), 0o644))
}

func TestPathCommand(t *testing.T) {
	dumps := setup(t)

	res := runCLI(t, nil, "path")
	require.NoError(t, res.err)
	assert.Equal(t, dumps+"\n", res.stdout)

	res = runCLI(t, nil, "path", "relative/dir")
	assert.Error(t, res.err)

	res = runCLI(t, nil, "path")
	require.NoError(t, res.err)
	assert.Equal(t, dumps+"\n", res.stdout)
}

func TestAddRemoveAndDBs(t *testing.T) {
	setup(t)

	require.NoError(t, runCLI(t, nil, "add", "--db=shop").err)
	require.NoError(t, runCLI(t, nil, "add", "--db=crm").err)
	require.NoError(t, runCLI(t, nil, "add", "--db=shop").err)

	res := runCLI(t, nil, "dbs")
	require.NoError(t, res.err)
	assert.Equal(t, strings.Join([]string{
		"=====================",
		"Databases: 2",
		"=====================",
		"shop",
		"crm",
		"",
	}, "\n"), res.stdout)

	require.NoError(t, runCLI(t, nil, "remove", "--db=shop").err)
	require.NoError(t, runCLI(t, nil, "remove", "--db=ghost").err)

	res = runCLI(t, nil, "dbs")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Databases: 1")
	assert.NotContains(t, res.stdout, "shop")
}

func TestAddRemoveMissingParam(t *testing.T) {
	setup(t)

	for _, args := range [][]string{
		{"add"},
		{"add", "--db=all"},
		{"remove"},
		{"remove", "--db=all"},
	} {
		res := runCLI(t, nil, args...)
		require.NoError(t, res.err, args)
		assert.Contains(t, res.stderr, "[ERROR] Miss param", args)
	}

	res := runCLI(t, nil, "dbs")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Databases: 0")
}

func TestAddRejectsUnsafeName(t *testing.T) {
	setup(t)

	res := runCLI(t, nil, "add", "--db=shop; rm -rf /")
	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, naming.ErrInvalidName)
}

func TestListPlain(t *testing.T) {
	dumps := setup(t)
	touch(t, dumps, "2020-01-01@shop.gz", 10)
	touch(t, dumps, "2020-02-01@shop.gz", 2048)
	touch(t, dumps, "2020-01-15@crm.gz", 512)
	touch(t, dumps, "notes.txt", 1)

	res := runCLI(t, nil, "list", "-o", "plain")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Databases: 2")
	assert.Contains(t, res.stdout, "Path to files: "+dumps)
	assert.Contains(t, res.stdout, "name: shop date: 2020-02-01")
	assert.Contains(t, res.stdout, "name: crm date: 2020-01-15")
	assert.NotContains(t, res.stdout, "2020-01-01")
}

func TestListFilterAndExact(t *testing.T) {
	dumps := setup(t)
	touch(t, dumps, "2020-01-01@shop.gz", 1)
	touch(t, dumps, "2020-01-02@shop_eu.gz", 1)

	var doc struct {
		Databases []struct {
			Database string `json:"database"`
		} `json:"databases"`
	}

	res := runCLI(t, nil, "list", "--db=shop", "-o", "json")
	require.NoError(t, res.err)
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &doc))
	assert.Len(t, doc.Databases, 2)

	res = runCLI(t, nil, "list", "--db=shop", "--exact", "-o", "json")
	require.NoError(t, res.err)
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &doc))
	require.Len(t, doc.Databases, 1)
	assert.Equal(t, "shop", doc.Databases[0].Database)
}

func TestListOutputFromEnv(t *testing.T) {
	dumps := setup(t)
	touch(t, dumps, "2020-01-01@shop.gz", 1)
	t.Setenv("DUMPKEEP_OUTPUT", "tsv")

	res := runCLI(t, nil, "list")
	require.NoError(t, res.err)
	assert.True(t, strings.HasPrefix(res.stdout, "DATABASE\tDATE\tSIZE_BYTES\tFILE\n"), res.stdout)
}

func TestListUnknownFormat(t *testing.T) {
	setup(t)

	res := runCLI(t, nil, "list", "-o", "xml")
	assert.Error(t, res.err)
}

func TestListMissingDirectory(t *testing.T) {
	dumps := setup(t)
	require.NoError(t, os.Remove(dumps))

	res := runCLI(t, nil, "list")
	assert.Error(t, res.err)
}

func TestDumpAllContinuesAfterFailure(t *testing.T) {
	dumps := setup(t)
	require.NoError(t, runCLI(t, nil, "add", "--db=a").err)
	require.NoError(t, runCLI(t, nil, "add", "--db=b").err)

	runner := &fakeRunner{fail: map[string]bool{"a": true}}
	res := runCLI(t, runner, "dump", "--jobs=2")

	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, errOperationsFailed)
	assert.Contains(t, res.stderr, "connection refused")

	today := naming.EncodeTimestamp(time.Now())
	assert.Contains(t, res.stdout, "File "+today+"@b.gz created successfully!")
	assert.FileExists(t, filepath.Join(dumps, today+"@b.gz"))
	assert.NoFileExists(t, filepath.Join(dumps, today+"@a.gz"))
}

func TestDumpNothingTracked(t *testing.T) {
	setup(t)

	res := runCLI(t, &fakeRunner{}, "dump")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "No databases tracked")
}

func TestRestore(t *testing.T) {
	dumps := setup(t)
	touch(t, dumps, "2020-01-01@shop.gz", 1)
	touch(t, dumps, "2020-02-01@shop.gz", 1)

	runner := &fakeRunner{}
	res := runCLI(t, runner, "restore", "--db=shop")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Dump 2020-02-01@shop.gz restored successfully!")

	res = runCLI(t, runner, "restore", "--db=shop", "--date=2020-01-01")
	require.NoError(t, res.err)

	assert.Equal(t, []string{"2020-02-01@shop.gz", "2020-01-01@shop.gz"}, runner.restored)
}

func TestRestoreNoBackup(t *testing.T) {
	setup(t)

	res := runCLI(t, &fakeRunner{}, "restore", "--db=shop")
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, `no backup found to "shop" database`)
}

func TestHistoryRecordsOperations(t *testing.T) {
	setup(t)
	require.NoError(t, runCLI(t, nil, "add", "--db=shop").err)
	require.NoError(t, runCLI(t, &fakeRunner{}, "dump").err)

	res := runCLI(t, nil, "history")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "shop")
	assert.Contains(t, res.stdout, "success")

	// The first column of the first data row is the entry id.
	var id string
	for _, line := range strings.Split(res.stdout, "\n") {
		if strings.Contains(line, "shop") {
			id = strings.Fields(line)[0]
			break
		}
	}
	require.NotEmpty(t, id)

	res = runCLI(t, nil, "history", "show", id)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Database:   shop")
	assert.Contains(t, res.stdout, "Status:     success")

	res = runCLI(t, nil, "history", "show", "missing-id")
	assert.Error(t, res.err)

	res = runCLI(t, nil, "history", "clean")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "0 removed")
}

func TestHistoryDisabled(t *testing.T) {
	setup(t)
	t.Setenv("DUMPKEEP_HISTORY_ENABLED", "false")

	res := runCLI(t, nil, "history")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "History is disabled")
}

func TestConfigInitAndShow(t *testing.T) {
	home := isolate(t)

	res := runCLI(t, nil, "config", "init")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Created default config file")
	assert.FileExists(t, filepath.Join(home, "config", "dumpkeep", "config.yaml"))

	res = runCLI(t, nil, "config", "init")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "already exists")

	t.Setenv("DUMPKEEP_JOBS", "3")
	res = runCLI(t, nil, "config", "show")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "jobs:                   3")
	assert.Contains(t, res.stdout, "DUMPKEEP_JOBS=3")

	res = runCLI(t, nil, "config", "path")
	require.NoError(t, res.err)
	assert.Equal(t, filepath.Join(home, "config", "dumpkeep", "config.yaml")+"\n", res.stdout)
}

func TestExampleAndVersion(t *testing.T) {
	isolate(t)

	res := runCLI(t, nil, "example")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Usage Examples")

	res = runCLI(t, nil, "version")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "dumpkeep dev")
}

func TestQuietSuppressesInfo(t *testing.T) {
	setup(t)

	res := runCLI(t, nil, "add", "--db=shop", "--quiet")
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", truncateString("abcdef", 2))
}

func TestListTemplate(t *testing.T) {
	dumps := setup(t)
	touch(t, dumps, "2020-01-01@shop.gz", 2048)

	res := runCLI(t, nil, "list", "--template", "{{range .Rows}}{{.Database}}={{.File}};{{end}}")
	require.NoError(t, res.err)
	assert.Equal(t, "shop=2020-01-01@shop.gz;", res.stdout)
}
