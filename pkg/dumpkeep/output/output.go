// Package output renders the backup catalog in the formats selected with
// --output (pretty, plain, json, jsonl, yaml, csv, tsv, markdown).
//
// Formatters are looked up by name in a registry:
//
//	formatter, err := output.Get("plain")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, output.FromCatalog(cat, "all")); err != nil {
//	    return err
//	}
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/catalog"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/types"
)

// Row is the newest archive of one database.
type Row struct {
	Database  string
	File      string
	Date      string
	SizeBytes int64

	// SizeValue and SizeUnit are the list's scaled size: MiB labelled "mb"
	// from one mebibyte upwards, KiB labelled "kb" below.
	SizeValue float64
	SizeUnit  string

	// SizeHuman is the IEC rendering, e.g. "1.5 MiB".
	SizeHuman string
}

// Result is everything a formatter needs to render one listing.
type Result struct {
	Dir       string
	Filter    string
	Rows      []Row
	FilesSeen int
}

// TotalSize returns the sum of all row sizes.
func (r *Result) TotalSize() int64 {
	var total int64
	for _, row := range r.Rows {
		total += row.SizeBytes
	}
	return total
}

// FromCatalog converts a built catalog into a Result.
func FromCatalog(c *catalog.Catalog, filter string) *Result {
	r := &Result{Dir: c.Dir, Filter: filter, FilesSeen: c.FilesSeen, Rows: make([]Row, 0, len(c.Databases))}
	for _, s := range c.Databases {
		value, unit := catalog.SizeLabel(s.SizeBytes)
		r.Rows = append(r.Rows, Row{
			Database:  s.Database,
			File:      s.Filename,
			Date:      s.DateText,
			SizeBytes: s.SizeBytes,
			SizeValue: value,
			SizeUnit:  unit,
			SizeHuman: types.FormatSize(s.SizeBytes),
		})
	}
	return r
}

// Formatter renders a Result.
type Formatter interface {
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory creates a Formatter.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty formatter registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]FormatterFactory)}
}

// Register adds a formatter factory, replacing any with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (available: %v)", name, r.availableLocked())
	}
	return factory(), nil
}

// Available returns the registered names, sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.availableLocked()
}

func (r *Registry) availableLocked() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the built-in formatters.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
