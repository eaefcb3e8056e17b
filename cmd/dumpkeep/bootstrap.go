package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/backup"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/catalog"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/config"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/history"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/logging"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/registry"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/types"
	"github.com/spf13/cobra"
)

const defaultMaxLogSize = 10 * types.MiB

// initializeLogging is the root PersistentPreRunE hook. It reads the
// configuration, creates the directories the run needs, and starts the
// file logger. A logger that cannot start is reported but never fatal.
func (a *app) initializeLogging(cmd *cobra.Command, args []string) error {
	config.Configure(a.v, a.cfgFile)

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := ensureDirectories(cfg); err != nil {
		return err
	}

	logCfg := logging.Config{
		Level:      cfg.Logging.Level,
		Path:       cfg.Logging.Path,
		Rotation:   parseRotationConfig(cfg.Logging.Rotation),
		Components: cfg.Logging.Components,
	}
	if a.getVerbose() {
		logCfg.ConsoleLevel = "debug"
	}

	if err := logging.Init(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
		return nil
	}

	logging.Get("cli").Debug("configuration loaded",
		"config", a.v.ConfigFileUsed(),
		"registry", cfg.Registry.Path,
		"jobs", cfg.Jobs)

	return nil
}

// ensureDirectories creates the parent directories of every file the
// configuration points at.
func ensureDirectories(cfg *config.Config) error {
	logPath := cfg.Logging.Path
	if logPath == "" {
		logPath = config.DefaultLogPath()
	}

	dirs := []string{
		filepath.Dir(cfg.Registry.Path),
		filepath.Dir(logPath),
	}
	if cfg.History.Enabled {
		dirs = append(dirs, cfg.History.Path)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// parseRotationConfig converts the config file form into the logger's.
// An unparseable max_size falls back to 10MB.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	maxSize := int64(defaultMaxLogSize)
	if rc.MaxSize != "" {
		if parsed, err := types.ParseSize(rc.MaxSize); err == nil && parsed > 0 {
			maxSize = parsed
		}
	}

	return logging.RotationConfig{
		MaxSize:    maxSize,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Daily:      rc.Daily,
	}
}

// openRegistry loads the registry document. A registry that loaded but could
// not be written back is still usable for this run.
func (a *app) openRegistry(cmd *cobra.Command) (*registry.Registry, error) {
	reg, err := registry.Open(a.cfg.Registry.Path, config.DefaultBackupPath())
	if err != nil {
		if reg == nil {
			return nil, fmt.Errorf("failed to open registry: %w", err)
		}
		a.printError(cmd, "%v", err)
	}
	a.printVerbose(cmd, "Registry: %s", reg.File())
	return reg, nil
}

// openHistory returns the history store, or nil when history is disabled.
func (a *app) openHistory() (*history.Store, error) {
	if !a.cfg.History.Enabled {
		return nil, nil
	}
	store, err := history.Open(a.cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, nil
}

// matchMode resolves the --exact flag against catalog.match.
func (a *app) matchMode(exact bool) (catalog.MatchMode, error) {
	if exact {
		return catalog.MatchExact, nil
	}
	return catalog.ParseMatchMode(a.cfg.Catalog.Match)
}

// newOrchestrator wires the registry, the tool runner and, when enabled, the
// history store. The returned cleanup closes the history store.
func (a *app) newOrchestrator(cmd *cobra.Command, reg *registry.Registry, exact bool) (*backup.Orchestrator, func(), error) {
	mode, err := a.matchMode(exact)
	if err != nil {
		return nil, nil, err
	}

	opts := []backup.Option{
		backup.WithJobs(a.cfg.Jobs),
		backup.WithMatchMode(mode),
	}

	cleanup := func() {}
	store, err := a.openHistory()
	if err != nil {
		// Losing history never blocks a dump or restore.
		a.printError(cmd, "%v", err)
		logging.Get("cli").Warn("history unavailable", "error", err)
	} else if store != nil {
		opts = append(opts, backup.WithRecorder(store))
		cleanup = func() { _ = store.Close() }
	}

	return backup.New(reg, a.newRunner(a.cfg), opts...), cleanup, nil
}
