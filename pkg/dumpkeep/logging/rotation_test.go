package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/logging"
)

func countLogFiles(t *testing.T, dir, prefix string) int {
	t.Helper()

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	n := 0
	for _, f := range files {
		if strings.HasPrefix(f.Name(), prefix) && strings.HasSuffix(f.Name(), ".log") {
			n++
		}
	}
	return n
}

func TestRotationBySize(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "size_rotate.log")

	writer, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{
		MaxSize:    512,
		MaxAge:     7,
		MaxBackups: 3,
	})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}

	for i := 0; i < 20; i++ {
		if _, err := writer.Write([]byte(strings.Repeat("x", 50) + "\n")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if n := countLogFiles(t, tempDir, "size_rotate"); n < 2 {
		t.Errorf("expected at least 2 log files after rotation, got %d", n)
	}
}

func TestRotationCleanupOldFiles(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "aged.log")

	old := filepath.Join(tempDir, "aged.2000-01-01-000000.log")
	if err := os.WriteFile(old, []byte("old\n"), 0o644); err != nil {
		t.Fatalf("failed to write old log: %v", err)
	}
	past := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatalf("failed to age old log: %v", err)
	}

	writer, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{MaxAge: 7})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer writer.Close()

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Errorf("expected %s to be removed, stat error = %v", old, err)
	}
}

func TestRotationDirCreation(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "nested", "deeper", "app.log")

	writer, err := logging.NewRotatingWriter(logPath, logging.DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}

func TestRotationCloseTwice(t *testing.T) {
	t.Parallel()

	writer, err := logging.NewRotatingWriter(filepath.Join(t.TempDir(), "twice.log"), logging.RotationConfig{})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestRotationConcurrentWrites(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "concurrent_rotate.log")
	writer, err := logging.NewRotatingWriter(logPath, logging.DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = writer.Write([]byte("line\n"))
			}
		}()
	}
	wg.Wait()

	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if got := strings.Count(string(content), "line\n"); got != 400 {
		t.Errorf("expected 400 lines, got %d", got)
	}
}
