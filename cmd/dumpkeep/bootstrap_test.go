package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/config"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/logging"
)

func TestParseRotationConfig(t *testing.T) {
	tests := []struct {
		name     string
		input    config.RotationConfig
		expected logging.RotationConfig
	}{
		{
			name: "default values",
			input: config.RotationConfig{
				MaxSize:    "10MB",
				MaxAge:     30,
				MaxBackups: 5,
				Daily:      true,
			},
			expected: logging.RotationConfig{
				MaxSize:    10 * 1024 * 1024,
				MaxAge:     30,
				MaxBackups: 5,
				Daily:      true,
			},
		},
		{
			name: "custom size in gigabytes",
			input: config.RotationConfig{
				MaxSize:    "1G",
				MaxAge:     7,
				MaxBackups: 3,
			},
			expected: logging.RotationConfig{
				MaxSize:    1024 * 1024 * 1024,
				MaxAge:     7,
				MaxBackups: 3,
			},
		},
		{
			name: "empty max_size uses default",
			input: config.RotationConfig{
				MaxAge:     14,
				MaxBackups: 2,
				Daily:      true,
			},
			expected: logging.RotationConfig{
				MaxSize:    10 * 1024 * 1024,
				MaxAge:     14,
				MaxBackups: 2,
				Daily:      true,
			},
		},
		{
			name: "invalid max_size uses default",
			input: config.RotationConfig{
				MaxSize:    "invalid",
				MaxAge:     21,
				MaxBackups: 4,
			},
			expected: logging.RotationConfig{
				MaxSize:    10 * 1024 * 1024,
				MaxAge:     21,
				MaxBackups: 4,
			},
		},
		{
			name:     "zero max_size uses default",
			input:    config.RotationConfig{MaxSize: "0"},
			expected: logging.RotationConfig{MaxSize: 10 * 1024 * 1024},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseRotationConfig(tt.input)

			if result.MaxSize != tt.expected.MaxSize {
				t.Errorf("MaxSize = %d, want %d", result.MaxSize, tt.expected.MaxSize)
			}
			if result.MaxAge != tt.expected.MaxAge {
				t.Errorf("MaxAge = %d, want %d", result.MaxAge, tt.expected.MaxAge)
			}
			if result.MaxBackups != tt.expected.MaxBackups {
				t.Errorf("MaxBackups = %d, want %d", result.MaxBackups, tt.expected.MaxBackups)
			}
			if result.Daily != tt.expected.Daily {
				t.Errorf("Daily = %v, want %v", result.Daily, tt.expected.Daily)
			}
		})
	}
}

func TestInitializeLoggingEnsuresDirectories(t *testing.T) {
	home := isolate(t)

	a := newApp()
	if err := a.initializeLogging(nil, nil); err != nil {
		t.Fatalf("initializeLogging() returned error: %v", err)
	}
	defer func() { _ = logging.Close() }()

	for _, dir := range []string{
		filepath.Join(home, "config", "dumpkeep"),
		filepath.Join(home, "history"),
		filepath.Join(home, "state"),
	} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Errorf("directory was not created: %s", dir)
		}
	}

	if a.cfg == nil {
		t.Fatal("config was not loaded")
	}
	if want := filepath.Join(home, "config", "dumpkeep", "registry.json"); a.cfg.Registry.Path != want {
		t.Errorf("Registry.Path = %s, want %s", a.cfg.Registry.Path, want)
	}
}

func TestInitializeLoggingRejectsBadConfig(t *testing.T) {
	home := isolate(t)

	cfgFile := filepath.Join(home, "bad.yaml")
	if err := os.WriteFile(cfgFile, []byte("jobs: [not, a, number\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	a := newApp()
	a.cfgFile = cfgFile
	if err := a.initializeLogging(nil, nil); err == nil {
		t.Error("expected an error for a malformed config file")
	}
}
