// Package history records dump and restore outcomes in a local badger
// store so past runs can be listed and inspected.
package history

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/logging"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/types"
)

// ErrNotFound is returned when no entry has the requested ID.
var ErrNotFound = errors.New("history entry not found")

var (
	entryPrefix = []byte("entry/")
	idPrefix    = []byte("id/")
)

// Entry is one recorded operation.
type Entry struct {
	ID        string          `json:"id" yaml:"id"`
	Timestamp time.Time       `json:"timestamp" yaml:"timestamp"`
	Operation types.Operation `json:"operation" yaml:"operation"`
	Database  string          `json:"database" yaml:"database"`
	File      string          `json:"file,omitempty" yaml:"file,omitempty"`
	Status    types.Status    `json:"status" yaml:"status"`
	Message   string          `json:"message,omitempty" yaml:"message,omitempty"`
	SizeBytes int64           `json:"size_bytes,omitempty" yaml:"size_bytes,omitempty"`
	Duration  time.Duration   `json:"duration" yaml:"duration"`
}

func (e *Entry) encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Entry) decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(e)
}

// entryKey orders entries chronologically: entry/<zero-padded nanos>-<id>.
func entryKey(e *Entry) []byte {
	return []byte(fmt.Sprintf("%s%020d-%s", entryPrefix, e.Timestamp.UnixNano(), e.ID))
}

func idKey(id string) []byte {
	return append(append([]byte{}, idPrefix...), id...)
}

// Store wraps badger for history operations.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

// Open opens or creates a history store in dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening history store %s: %w", dir, err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores e, assigning an ID and timestamp when they are empty, and
// returns the stored entry.
func (s *Store) Record(e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	e.Timestamp = e.Timestamp.UTC()

	value, err := e.encode()
	if err != nil {
		return Entry{}, fmt.Errorf("encoding history entry: %w", err)
	}
	key := entryKey(&e)

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, value); err != nil {
			return err
		}
		return txn.Set(idKey(e.ID), key)
	})
	if err != nil {
		return Entry{}, fmt.Errorf("writing history entry: %w", err)
	}

	logging.Get("history").Debug("recorded", "id", e.ID, "op", e.Operation, "db", e.Database, "status", e.Status)
	return e, nil
}

// List returns entries newest first. A limit of zero or less returns all.
func (s *Store) List(limit int) ([]Entry, error) {
	entries := []Entry{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = entryPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, entryPrefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(entryPrefix); it.Next() {
			var e Entry
			if err := it.Item().Value(e.decode); err != nil {
				logging.Get("history").Warn("skipping unreadable entry", "key", string(it.Item().Key()), "error", err)
				continue
			}
			entries = append(entries, e)
			if limit > 0 && len(entries) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	return entries, nil
}

// Get returns the entry with the given ID.
func (s *Store) Get(id string) (*Entry, error) {
	var e Entry

	err := s.db.View(func(txn *badger.Txn) error {
		ref, err := txn.Get(idKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		key, err := ref.ValueCopy(nil)
		if err != nil {
			return err
		}

		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(e.decode)
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Cleanup removes entries older than retention and returns how many were
// deleted. A non-positive retention keeps everything.
func (s *Store) Cleanup(retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-retention).UnixNano()

	var stale []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = entryPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(entryPrefix); it.ValidForPrefix(entryPrefix); it.Next() {
			var e Entry
			if err := it.Item().Value(e.decode); err != nil {
				continue
			}
			if e.Timestamp.UnixNano() >= cutoff {
				break
			}
			stale = append(stale, e)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scanning history: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for i := range stale {
		if err := wb.Delete(entryKey(&stale[i])); err != nil {
			return 0, err
		}
		if err := wb.Delete(idKey(stale[i].ID)); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("deleting history: %w", err)
	}

	logging.Get("history").Info("cleaned history", "removed", len(stale))
	return len(stale), nil
}
