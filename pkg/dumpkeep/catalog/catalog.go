// Package catalog scans a backup directory for dump archives, groups them by
// database and picks the most recent archive per database or per date.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/logging"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/naming"
)

// LastSelector asks SelectRestoreCandidate for the newest matching archive.
const LastSelector = "last"

// ErrDirectoryRead is returned when the backup directory cannot be listed
// or an archive in it cannot be inspected.
var ErrDirectoryRead = errors.New("cannot read backup directory")

// MatchMode controls how a database selector is matched against file names.
type MatchMode int

const (
	// MatchSubstring keeps every file whose name contains the selector.
	// A selector "foo" therefore also matches archives of "foobar".
	MatchSubstring MatchMode = iota

	// MatchExact keeps files whose parsed database name equals the selector.
	MatchExact
)

// String returns the config spelling of the mode.
func (m MatchMode) String() string {
	if m == MatchExact {
		return "exact"
	}
	return "substring"
}

// ParseMatchMode parses "substring" or "exact". Empty means substring.
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "substring":
		return MatchSubstring, nil
	case "exact":
		return MatchExact, nil
	default:
		return MatchSubstring, fmt.Errorf("unknown match mode %q (want substring or exact)", s)
	}
}

// BackupFile is one archive found in the backup directory.
type BackupFile struct {
	Filename string
	Database string

	// DateKey is the numeric YYYYMMDD form of the embedded date. It is only
	// meaningful when DateKeyValid is true.
	DateKey      int64
	DateKeyValid bool
	DateText     string

	SizeBytes int64
	ModTime   time.Time
}

// DatabaseSummary describes the newest archive of one database.
type DatabaseSummary struct {
	Database     string
	Filename     string
	SizeBytes    int64
	DateKey      int64
	DateKeyValid bool
	DateText     string
}

// Catalog is the grouped view of a backup directory.
type Catalog struct {
	Dir       string
	Databases []DatabaseSummary

	// FilesSeen counts archives that passed filtering, before grouping.
	FilesSeen int
}

// Lookup returns the summary for db, if present.
func (c *Catalog) Lookup(db string) (DatabaseSummary, bool) {
	for _, s := range c.Databases {
		if s.Database == db {
			return s, true
		}
	}
	return DatabaseSummary{}, false
}

// ListFiles returns the names of archive files in dir, in directory listing
// order. Directories are skipped.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDirectoryRead, dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.Contains(entry.Name(), naming.Extension) {
			continue
		}
		files = append(files, entry.Name())
	}
	return files, nil
}

// FilterByDatabase narrows files to those belonging to db. The selector
// "all" (or empty) returns files unchanged.
func FilterByDatabase(files []string, db string, mode MatchMode) []string {
	if db == "" || db == naming.AllDatabases {
		return files
	}

	filtered := make([]string, 0, len(files))
	for _, f := range files {
		if matches(f, db, mode) {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

func matches(filename, db string, mode MatchMode) bool {
	if mode == MatchExact {
		return strings.Contains(filename, naming.Separator) && naming.ParseDatabaseName(filename) == db
	}
	return strings.Contains(filename, db)
}

// ParseFile builds a BackupFile from a name and its filesystem metadata.
func ParseFile(filename string, info os.FileInfo) BackupFile {
	key, ok := naming.ParseDateKey(filename)
	text, _ := naming.ParseDateText(filename)

	bf := BackupFile{
		Filename:     filename,
		Database:     naming.ParseDatabaseName(filename),
		DateKey:      key,
		DateKeyValid: ok,
		DateText:     text,
	}
	if info != nil {
		bf.SizeBytes = info.Size()
		bf.ModTime = info.ModTime()
	}
	return bf
}

// Scan lists dir, filters by db and returns every well-formed archive.
// Archives removed between listing and stat are skipped.
func Scan(dir, db string, mode MatchMode) ([]BackupFile, error) {
	files, err := ListFiles(dir)
	if err != nil {
		return nil, err
	}

	var out []BackupFile
	for _, name := range FilterByDatabase(files, db, mode) {
		if !naming.HasArchiveShape(name) {
			continue
		}

		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logging.Get("catalog").Debug("archive vanished during scan", "file", name)
				continue
			}
			return nil, fmt.Errorf("%w: stat %s: %w", ErrDirectoryRead, name, err)
		}
		out = append(out, ParseFile(name, info))
	}
	return out, nil
}

// Build groups the archives in dir by database and keeps the most recent
// one for each. When two archives of a database share a date the one seen
// first in listing order is kept. Summaries are sorted by database name.
func Build(dir, db string, mode MatchMode) (*Catalog, error) {
	files, err := Scan(dir, db, mode)
	if err != nil {
		return nil, err
	}

	newest := make(map[string]BackupFile)
	for _, bf := range files {
		current, seen := newest[bf.Database]
		if !seen || naming.MostRecent(current.Filename, bf.Filename) != current.Filename {
			newest[bf.Database] = bf
		}
	}

	summaries := make([]DatabaseSummary, 0, len(newest))
	for name, bf := range newest {
		summaries = append(summaries, DatabaseSummary{
			Database:     name,
			Filename:     bf.Filename,
			SizeBytes:    bf.SizeBytes,
			DateKey:      bf.DateKey,
			DateKeyValid: bf.DateKeyValid,
			DateText:     bf.DateText,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Database < summaries[j].Database
	})

	logging.Get("catalog").Debug("catalog built",
		"dir", dir, "filter", db, "files", len(files), "databases", len(summaries))

	return &Catalog{Dir: dir, Databases: summaries, FilesSeen: len(files)}, nil
}

// SelectRestoreCandidate picks the archive to restore for db.
//
// With selector "last" the newest match wins (ties go to the earlier file in
// listing order). Any other selector picks the first match whose name
// contains it. The boolean is false when nothing qualifies.
func SelectRestoreCandidate(dir, db, selector string, mode MatchMode) (string, bool, error) {
	files, err := ListFiles(dir)
	if err != nil {
		return "", false, err
	}
	files = FilterByDatabase(files, db, mode)

	if selector == "" || selector == LastSelector {
		chosen := ""
		for _, f := range files {
			if chosen == "" {
				chosen = f
				continue
			}
			chosen = naming.MostRecent(chosen, f)
		}
		return chosen, chosen != "", nil
	}

	for _, f := range files {
		if strings.Contains(f, selector) {
			return f, true, nil
		}
	}
	return "", false, nil
}

// SizeLabel scales a byte count for the listing: MiB with label "mb" from
// one mebibyte upwards, KiB with label "kb" below that.
func SizeLabel(bytes int64) (float64, string) {
	const kib = 1024.0
	mb := float64(bytes) / (kib * kib)
	if mb >= 1 {
		return mb, "mb"
	}
	return float64(bytes) / kib, "kb"
}
