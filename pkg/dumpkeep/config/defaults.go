// Package config provides configuration management for dumpkeep.
package config

// Default configuration values for dumpkeep.
const (
	// AppName names the XDG subdirectories and the env prefix.
	AppName = "dumpkeep"

	// EnvPrefix prefixes environment overrides, e.g. DUMPKEEP_JOBS.
	EnvPrefix = "DUMPKEEP"

	// DefaultJobs runs dump-all and restore-all one database at a time.
	DefaultJobs = 1

	// DefaultMatch is the database selector matching mode.
	DefaultMatch = "substring"

	// DefaultOutput is the list formatter.
	DefaultOutput = "pretty"

	// DefaultRetentionDays is how long history entries are kept.
	DefaultRetentionDays = 90

	// DefaultWatchDebounce coalesces bursts of directory events.
	DefaultWatchDebounce = "500ms"
)
