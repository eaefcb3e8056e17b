package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArchives(t *testing.T, dir string, files map[string]int) {
	t.Helper()
	for name, size := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0o644))
	}
}

func TestListFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeArchives(t, dir, map[string]int{
		"2020-01-01@shop.gz": 10,
		"2020-02-01@shop.gz": 10,
		"notes.txt":          1,
		"stray.gz":           1,
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "old.gz"), 0o755))

	files, err := ListFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"2020-01-01@shop.gz", "2020-02-01@shop.gz", "stray.gz"}, files)
}

func TestListFilesMissingDir(t *testing.T) {
	t.Parallel()

	_, err := ListFiles(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDirectoryRead)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFilterByDatabase(t *testing.T) {
	t.Parallel()

	files := []string{
		"2020-01-01@shop.gz",
		"2020-01-01@shopping.gz",
		"2020-01-02@crm.gz",
	}

	tests := []struct {
		name string
		db   string
		mode MatchMode
		want []string
	}{
		{"all keeps order", "all", MatchSubstring, files},
		{"empty keeps everything", "", MatchExact, files},
		{"substring overmatches", "shop", MatchSubstring, []string{"2020-01-01@shop.gz", "2020-01-01@shopping.gz"}},
		{"exact narrows", "shop", MatchExact, []string{"2020-01-01@shop.gz"}},
		{"no match", "other", MatchSubstring, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FilterByDatabase(files, tt.db, tt.mode))
		})
	}
}

func TestParseMatchMode(t *testing.T) {
	t.Parallel()

	m, err := ParseMatchMode("")
	require.NoError(t, err)
	assert.Equal(t, MatchSubstring, m)

	m, err = ParseMatchMode("Exact")
	require.NoError(t, err)
	assert.Equal(t, MatchExact, m)
	assert.Equal(t, "exact", m.String())

	_, err = ParseMatchMode("fuzzy")
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeArchives(t, dir, map[string]int{
		"2020-01-01@shop.gz": 100,
		"2020-02-01@shop.gz": 2 * 1024 * 1024,
		"2019-12-31@crm.gz":  2048,
		"nodate.gz":          5,
	})

	cat, err := Build(dir, "all", MatchSubstring)
	require.NoError(t, err)

	require.Len(t, cat.Databases, 2)
	assert.Equal(t, 3, cat.FilesSeen)

	assert.Equal(t, "crm", cat.Databases[0].Database)
	assert.Equal(t, "2019-12-31@crm.gz", cat.Databases[0].Filename)
	assert.Equal(t, int64(2048), cat.Databases[0].SizeBytes)

	shop, ok := cat.Lookup("shop")
	require.True(t, ok)
	assert.Equal(t, "2020-02-01@shop.gz", shop.Filename)
	assert.Equal(t, int64(20200201), shop.DateKey)
	assert.True(t, shop.DateKeyValid)
	assert.Equal(t, "2020-02-01", shop.DateText)
	assert.Equal(t, int64(2*1024*1024), shop.SizeBytes)

	_, ok = cat.Lookup("missing")
	assert.False(t, ok)
}

func TestBuildIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeArchives(t, dir, map[string]int{
		"2020-01-01@a.gz": 1,
		"2020-03-01@b.gz": 2,
		"2020-02-01@a.gz": 3,
	})

	first, err := Build(dir, "all", MatchSubstring)
	require.NoError(t, err)
	second, err := Build(dir, "all", MatchSubstring)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildFiltered(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeArchives(t, dir, map[string]int{
		"2020-01-01@shop.gz":     1,
		"2020-01-05@shopping.gz": 1,
	})

	cat, err := Build(dir, "shop", MatchSubstring)
	require.NoError(t, err)
	assert.Len(t, cat.Databases, 2)

	cat, err = Build(dir, "shop", MatchExact)
	require.NoError(t, err)
	require.Len(t, cat.Databases, 1)
	assert.Equal(t, "shop", cat.Databases[0].Database)
}

func TestBuildEmptyDir(t *testing.T) {
	t.Parallel()

	cat, err := Build(t.TempDir(), "all", MatchSubstring)
	require.NoError(t, err)
	assert.Empty(t, cat.Databases)
	assert.Zero(t, cat.FilesSeen)
}

func TestBuildMissingDir(t *testing.T) {
	t.Parallel()

	_, err := Build(filepath.Join(t.TempDir(), "nope"), "all", MatchSubstring)
	assert.ErrorIs(t, err, ErrDirectoryRead)
}

func TestSelectRestoreCandidate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeArchives(t, dir, map[string]int{
		"2020-01-01@shop.gz": 1,
		"2020-02-01@shop.gz": 1,
		"2020-01-15@crm.gz":  1,
	})

	tests := []struct {
		name     string
		db       string
		selector string
		want     string
		found    bool
	}{
		{"last picks newest", "shop", "last", "2020-02-01@shop.gz", true},
		{"empty selector means last", "shop", "", "2020-02-01@shop.gz", true},
		{"date substring", "shop", "2020-01-01", "2020-01-01@shop.gz", true},
		{"month prefix takes first listed", "shop", "2020-0", "2020-01-01@shop.gz", true},
		{"unknown db", "other", "last", "", false},
		{"unknown date", "shop", "1999-01-01", "", false},
		{"all databases newest", "all", "last", "2020-02-01@shop.gz", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, found, err := SelectRestoreCandidate(dir, tt.db, tt.selector, MatchSubstring)
			require.NoError(t, err)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectRestoreCandidateMissingDir(t *testing.T) {
	t.Parallel()

	_, _, err := SelectRestoreCandidate(filepath.Join(t.TempDir(), "x"), "shop", "last", MatchSubstring)
	assert.ErrorIs(t, err, ErrDirectoryRead)
}

func TestSizeLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		bytes     int64
		wantValue float64
		wantLabel string
	}{
		{"zero", 0, 0, "kb"},
		{"half kib", 512, 0.5, "kb"},
		{"just under a mib", 1024*1024 - 1024, 1023, "kb"},
		{"one mib", 1024 * 1024, 1, "mb"},
		{"many mib", 5 * 1024 * 1024, 5, "mb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, label := SizeLabel(tt.bytes)
			assert.InDelta(t, tt.wantValue, v, 1e-9)
			assert.Equal(t, tt.wantLabel, label)
		})
	}
}
