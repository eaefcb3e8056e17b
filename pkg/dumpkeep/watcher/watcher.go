// Package watcher reports archive changes in the backup directory.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/logging"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/naming"
)

// DefaultDebounce is used when New is given a non-positive debounce.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches one backup directory (not recursively).
type Watcher struct {
	fsw      *fsnotify.Watcher
	dir      string
	debounce time.Duration

	mu     sync.Mutex
	closed bool
}

// New starts watching dir.
func New(dir string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		logging.Get("watcher").Warn("failed to add watch", "path", dir, "error", err)
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	return &Watcher{fsw: fsw, dir: dir, debounce: debounce}, nil
}

// Relevant reports whether an event concerns an archive. Chmod-only events
// are ignored.
func Relevant(event fsnotify.Event) bool {
	if !strings.Contains(filepath.Base(event.Name), naming.Extension) {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

// Run delivers batches of changed archive names to onChange, at most once
// per debounce interval. It blocks until ctx is done or the watcher closes.
func (w *Watcher) Run(ctx context.Context, onChange func(names []string)) error {
	logger := logging.Get("watcher")

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = make(map[string]struct{})
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !Relevant(event) {
				continue
			}
			logger.Debug("archive changed", "file", event.Name, "op", event.Op.String())
			pending[filepath.Base(event.Name)] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			names := make([]string, 0, len(pending))
			for n := range pending {
				names = append(names, n)
			}
			sort.Strings(names)
			clear(pending)
			onChange(names)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.fsw.Close(); err != nil && !errors.Is(err, fsnotify.ErrClosed) {
		return err
	}
	return nil
}
