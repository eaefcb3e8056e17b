package output

import (
	"bytes"
	"fmt"
	"strings"
)

var (
	plainBanner = strings.Repeat("=", 37)
	plainRule   = strings.Repeat("-", 37)
)

// PlainFormatter writes the classic uncolored listing:
//
//	name: shop date: 2020-02-01 size: 1.500 mb
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	fmt.Fprintln(w, plainBanner)
	fmt.Fprintf(w, "Databases: %d\n", len(r.Rows))
	fmt.Fprintln(w, plainBanner)
	fmt.Fprintf(w, "Path to files: %s\n\n", r.Dir)

	fmt.Fprintln(w, plainRule)
	if len(r.Rows) == 0 {
		fmt.Fprintln(w, "No backup files")
	}
	for _, row := range r.Rows {
		fmt.Fprintf(w, "name: %s date: %s size: %.3f %s\n", row.Database, row.Date, row.SizeValue, row.SizeUnit)
	}
	fmt.Fprintln(w, plainRule)
	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

var _ Formatter = (*PlainFormatter)(nil)
