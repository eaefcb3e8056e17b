// Package registry persists the set of tracked databases and the backup
// directory path as a small JSON document.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/config"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/logging"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/naming"
)

// ErrPersist is returned when the registry document cannot be written.
// The in-memory change is kept for the rest of the process.
var ErrPersist = errors.New("cannot persist registry")

// ErrRelativePath is returned by SetBackupPath for non-absolute paths.
var ErrRelativePath = errors.New("backup path must be absolute")

// document is the on-disk form.
type document struct {
	Path string   `json:"path"`
	DBs  []string `json:"dbs"`
}

// Registry is the tracked database list plus the backup path. It is safe
// for concurrent use.
type Registry struct {
	mu   sync.Mutex
	file string
	doc  document
}

// Open loads the registry at file. Missing keys (or a missing file) are
// filled from defaultPath and an empty database list, and the completed
// document is written back.
func Open(file, defaultPath string) (*Registry, error) {
	logger := logging.Get("registry")

	r := &Registry{file: file}

	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if len(data) > 0 {
			if err := json.Unmarshal(data, &r.doc); err != nil {
				return nil, fmt.Errorf("parsing registry %s: %w", file, err)
			}
		}
	case errors.Is(err, os.ErrNotExist):
		logger.Info("creating registry", "file", file)
	default:
		return nil, fmt.Errorf("reading registry %s: %w", file, err)
	}

	changed := len(data) == 0
	if r.doc.Path == "" {
		r.doc.Path = defaultPath
		changed = true
	}
	if r.doc.DBs == nil {
		r.doc.DBs = []string{}
		changed = true
	}
	if deduped := dedupe(r.doc.DBs); len(deduped) != len(r.doc.DBs) {
		logger.Warn("collapsing duplicate database names", "file", file)
		r.doc.DBs = deduped
		changed = true
	}

	if changed {
		if err := r.persist(); err != nil {
			return r, err
		}
	}
	return r, nil
}

// File returns the path of the registry document.
func (r *Registry) File() string {
	return r.file
}

// TrackedDatabases returns a copy of the tracked names in insertion order.
func (r *Registry) TrackedDatabases() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.doc.DBs)
}

// BackupPath returns the directory archives are written to.
func (r *Registry) BackupPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc.Path
}

// SetBackupPath changes the backup directory. "~" is expanded; the result
// must be absolute.
func (r *Registry) SetBackupPath(path string) error {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return err
	}
	if !filepath.IsAbs(expanded) {
		return fmt.Errorf("%w: %q", ErrRelativePath, path)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.doc.Path = filepath.Clean(expanded)
	logging.Get("registry").Info("backup path changed", "path", r.doc.Path)
	return r.persist()
}

// AddDatabase tracks name. It reports false without writing when name is
// already tracked.
func (r *Registry) AddDatabase(name string) (bool, error) {
	if err := naming.ValidateDatabaseName(name); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if slices.Contains(r.doc.DBs, name) {
		return false, nil
	}
	r.doc.DBs = append(r.doc.DBs, name)
	logging.Get("registry").Info("database added", "db", name)
	return true, r.persist()
}

// RemoveDatabase stops tracking name. It reports false without writing when
// name is not tracked.
func (r *Registry) RemoveDatabase(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.Index(r.doc.DBs, name)
	if i < 0 {
		return false, nil
	}
	r.doc.DBs = slices.Delete(r.doc.DBs, i, i+1)
	logging.Get("registry").Info("database removed", "db", name)
	return true, r.persist()
}

// persist must be called with r.mu held (or before r is shared).
func (r *Registry) persist() error {
	data, err := json.MarshalIndent(r.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %w", ErrPersist, err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(r.file), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	tmpPath := r.file + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("%w: write temp file: %w", ErrPersist, err)
	}
	if err := os.Rename(tmpPath, r.file); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: rename temp file: %w", ErrPersist, err)
	}
	return nil
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
