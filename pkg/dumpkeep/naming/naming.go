// Package naming encodes and decodes backup archive file names.
//
// Archives are named <YYYY-MM-DD>@<database>.gz. The date part is compared
// numerically (hyphens stripped) to decide which of two archives is newer.
package naming

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// Separator divides the date from the database name.
	Separator = "@"

	// Extension is the archive suffix written by the dump tool.
	Extension = ".gz"

	// dateLayout is the Go reference layout for the date part.
	dateLayout = "2006-01-02"

	// minNameLen is the shortest file name that can carry a date key.
	minNameLen = 10
)

// EncodeTimestamp formats t as a zero-padded YYYY-MM-DD string.
func EncodeTimestamp(t time.Time) string {
	return t.Format(dateLayout)
}

// Filename builds the archive name for db dumped at t.
func Filename(t time.Time, db string) string {
	return EncodeTimestamp(t) + Separator + db + Extension
}

// ParseDateKey extracts the comparable numeric date from a file name.
// "2020-01-31@shop.gz" yields 20200131. The second return value is false
// when the name is shorter than 10 characters, lacks the separator, or the
// date part is not purely numeric once hyphens are removed.
func ParseDateKey(filename string) (int64, bool) {
	if len(filename) < minNameLen {
		return 0, false
	}
	datePart, _, found := strings.Cut(filename, Separator)
	if !found {
		return 0, false
	}

	digits := strings.ReplaceAll(datePart, "-", "")
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}

	key, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return key, true
}

// ParseDateText returns the raw date text before the first separator.
func ParseDateText(filename string) (string, bool) {
	datePart, _, found := strings.Cut(filename, Separator)
	if !found {
		return "", false
	}
	return datePart, true
}

// ParseDatabaseName returns the database part of an archive name: the text
// after the first separator with the archive extension removed. Callers must
// check that the separator is present.
func ParseDatabaseName(filename string) string {
	_, rest, _ := strings.Cut(filename, Separator)
	return strings.TrimSuffix(rest, Extension)
}

// HasArchiveShape reports whether a name carries both the extension marker
// and the separator.
func HasArchiveShape(filename string) bool {
	return strings.Contains(filename, Extension) && strings.Contains(filename, Separator)
}

// MostRecent returns whichever of a and b carries the later date key.
//
// Ties go to a. A name without a valid key ranks below every valid one, so
// it only wins when both keys are invalid, and then only as the left
// argument.
func MostRecent(a, b string) string {
	ka, okA := ParseDateKey(a)
	kb, okB := ParseDateKey(b)

	switch {
	case !okA && !okB:
		return a
	case !okA:
		return b
	case !okB:
		return a
	case ka >= kb:
		return a
	default:
		return b
	}
}

// ParseDate converts an archive date such as "2020-01-31" into a time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}
