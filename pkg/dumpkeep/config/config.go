package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/jamesainslie/dumpkeep/pkg/dumpkeep/tool"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size" yaml:"max_size" json:"max_size"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age" json:"max_age"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" json:"max_backups"`
	Daily      bool   `mapstructure:"daily" yaml:"daily" json:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level" yaml:"level" json:"level"`
	Path       string            `mapstructure:"path" yaml:"path" json:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation" yaml:"rotation" json:"rotation"`
	Components map[string]string `mapstructure:"components" yaml:"components" json:"components"`
}

// CommandConfig is one external tool: a binary and its argument template.
// {db} and {archive} are substituted per invocation.
type CommandConfig struct {
	Binary string   `mapstructure:"binary" yaml:"binary" json:"binary"`
	Args   []string `mapstructure:"args" yaml:"args" json:"args"`
}

// Command converts to the runner's representation.
func (c CommandConfig) Command() tool.Command {
	return tool.Command{Binary: c.Binary, Args: c.Args}
}

// ToolsConfig configures the dump and restore programs.
type ToolsConfig struct {
	Dump    CommandConfig `mapstructure:"dump" yaml:"dump" json:"dump"`
	Restore CommandConfig `mapstructure:"restore" yaml:"restore" json:"restore"`

	// Timeout bounds each tool invocation. Zero waits indefinitely.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// HistoryConfig configures the operation history store.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Path          string `mapstructure:"path" yaml:"path" json:"path"`
	RetentionDays int    `mapstructure:"retention_days" yaml:"retention_days" json:"retention_days"`
}

// Config represents the application configuration.
type Config struct {
	Registry struct {
		Path string `mapstructure:"path" yaml:"path" json:"path"`
	} `mapstructure:"registry" yaml:"registry" json:"registry"`
	Catalog struct {
		Match string `mapstructure:"match" yaml:"match" json:"match"`
	} `mapstructure:"catalog" yaml:"catalog" json:"catalog"`
	Watch struct {
		Debounce time.Duration `mapstructure:"debounce" yaml:"debounce" json:"debounce"`
	} `mapstructure:"watch" yaml:"watch" json:"watch"`

	Jobs    int           `mapstructure:"jobs" yaml:"jobs" json:"jobs"`
	Output  string        `mapstructure:"output" yaml:"output" json:"output"`
	Tools   ToolsConfig   `mapstructure:"tools" yaml:"tools" json:"tools"`
	History HistoryConfig `mapstructure:"history" yaml:"history" json:"history"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`
}

// SetDefaults installs every default on v.
func SetDefaults(v *viper.Viper) {
	dump := tool.DefaultDumpCommand()
	restore := tool.DefaultRestoreCommand()

	v.SetDefault("registry.path", DefaultRegistryPath())
	v.SetDefault("catalog.match", DefaultMatch)
	v.SetDefault("watch.debounce", DefaultWatchDebounce)
	v.SetDefault("jobs", DefaultJobs)
	v.SetDefault("output", DefaultOutput)

	v.SetDefault("tools.dump.binary", dump.Binary)
	v.SetDefault("tools.dump.args", dump.Args)
	v.SetDefault("tools.restore.binary", restore.Binary)
	v.SetDefault("tools.restore.args", restore.Args)
	v.SetDefault("tools.timeout", "0s")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", DefaultHistoryPath())
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"backup":   "info",
		"catalog":  "info",
		"registry": "info",
		"tool":     "info",
		"history":  "warn",
		"watcher":  "warn",
	})
}

// Configure points v at the config file and environment. An explicit
// cfgFile wins over the search path:
//   - $XDG_CONFIG_HOME/dumpkeep/config.yaml
//   - $HOME/.config/dumpkeep/config.yaml
//
// Environment variables are prefixed with DUMPKEEP_ (e.g. DUMPKEEP_JOBS,
// DUMPKEEP_TOOLS_TIMEOUT).
func Configure(v *viper.Viper, cfgFile string) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, AppName))
		}
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", AppName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
}

// Load reads configuration into a Config. v must already be configured;
// a missing config file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.Registry.Path, &cfg.History.Path, &cfg.Logging.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	if cfg.Jobs < 1 {
		cfg.Jobs = 1
	}
	if cfg.Tools.Timeout < 0 {
		return nil, fmt.Errorf("tools.timeout must not be negative, got %s", cfg.Tools.Timeout)
	}

	return &cfg, nil
}

// LoadDefault configures a fresh viper instance and loads from it.
func LoadDefault() (*Config, error) {
	v := viper.New()
	Configure(v, "")
	return Load(v)
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, AppName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", AppName), nil
}

// ConfigFile returns the default config file path.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a commented default config file and returns its path.
// An existing file is left untouched and ok is false.
func WriteDefault() (path string, ok bool, err error) {
	if err := EnsureConfigDir(); err != nil {
		return "", false, err
	}

	configPath, err := ConfigFile()
	if err != nil {
		return "", false, err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, false, nil
	} else if !os.IsNotExist(err) {
		return "", false, fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfigYAML()), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, true, nil
}

func defaultConfigYAML() string {
	return fmt.Sprintf(`# dumpkeep configuration

# Registry document holding the tracked databases and the backup directory
registry:
  path: %s

# How --db selects archives: substring (default) or exact
catalog:
  match: %s

# Databases dumped or restored in parallel by --db=all
jobs: %d

# Default list format: pretty, plain, json, yaml, csv, tsv, markdown
output: %s

# External tools. {db} and {archive} are replaced per run.
tools:
  dump:
    binary: mongodump
    args: ["--quiet", "--db", "{db}", "--gzip", "--archive={archive}"]
  restore:
    binary: mongorestore
    args: ["--quiet", "--gzip", "--archive={archive}"]
  # Per-invocation limit, e.g. 30m. 0 waits indefinitely.
  timeout: 0s

# Operation history
history:
  enabled: true
  path: %s
  retention_days: %d

# list --watch
watch:
  debounce: %s

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/dumpkeep/dumpkeep.log)
  path: ""
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  components:
    backup: info
    catalog: info
    registry: info
    tool: info
    history: warn
    watcher: warn
`, DefaultRegistryPath(), DefaultMatch, DefaultJobs, DefaultOutput,
		DefaultHistoryPath(), DefaultRetentionDays, DefaultWatchDebounce)
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/dumpkeep/ for archives and history.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// StateDir returns $XDG_STATE_HOME/dumpkeep/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// DefaultRegistryPath returns registry.json next to config.yaml.
func DefaultRegistryPath() string {
	dir, err := ConfigDir()
	if err != nil {
		dir = filepath.Join(xdg.ConfigHome, AppName)
	}
	return filepath.Join(dir, "registry.json")
}

// DefaultBackupPath is where archives go until `dumpkeep path` changes it.
func DefaultBackupPath() string {
	return filepath.Join(DataDir(), "dumps")
}

// DefaultHistoryPath returns the badger directory for operation history.
func DefaultHistoryPath() string {
	return filepath.Join(DataDir(), "history")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), AppName+".log")
}
