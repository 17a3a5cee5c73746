// Package constants provides centralized constant values used throughout loom.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// File names used by loom for state persistence.
const (
	// StateFileName is the name of the YAML file that stores the persisted StateTree.
	StateFileName = "state.yaml"

	// JournalFileName is the name of the JSONL file that records committed actions.
	JournalFileName = "journal.jsonl"

	// McpConfigFileName is the discovery config file written next to a worktree
	// when its MCP server starts.
	McpConfigFileName = ".loom-mcp.json"

	// StateLockTimeout is how long a save or load waits for the exclusive
	// state-file lock before giving up.
	StateLockTimeout = 5 * time.Second
)

// Directory names and paths used by loom for organizing data.
const (
	// LoomHome is the hidden directory name where loom stores all its data.
	// This directory is created in the user's home directory.
	LoomHome = ".loom"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"

	// CLILogFileName is the rotating log file for the loom process.
	CLILogFileName = "loom.log"
)

// Bounded-collection caps. Each is a default; the configured value wins.
const (
	// DefaultNotificationCap is the maximum number of retained notifications.
	// Oldest entries are evicted FIFO once the cap is exceeded.
	DefaultNotificationCap = 100

	// DefaultMcpLogCap is the maximum number of retained MCP log entries per
	// server record (bounded ring, oldest entries drop silently).
	DefaultMcpLogCap = 200

	// DefaultMcpPayloadMaxBytes is the size threshold above which an MCP log
	// payload is replaced with a placeholder annotation instead of stored.
	DefaultMcpPayloadMaxBytes = 4096

	// DefaultRecentProjectsCap is the maximum number of remembered recent
	// project paths.
	DefaultRecentProjectsCap = 20
)

// Effect execution defaults.
const (
	// DefaultEffectParallelism is the maximum number of effects executing at
	// once. Additional effects wait for a slot; they are never dropped.
	DefaultEffectParallelism = 4

	// DefaultEffectTimeout is the maximum duration for a single effect
	// (container operation, worktree creation, server spawn).
	DefaultEffectTimeout = 60 * time.Second

	// DefaultPortProbeLimit is how many ports above the default are probed
	// before a port conflict is reported as an effect failure.
	DefaultPortProbeLimit = 100

	// DefaultMcpCommand is the MCP server binary spawned per worktree.
	DefaultMcpCommand = "loom-mcp-server"

	// DefaultMcpBasePort is the first port probed for a new MCP server.
	DefaultMcpBasePort = 7800

	// McpShutdownGrace is how long a server gets to exit after SIGTERM
	// before it is killed.
	McpShutdownGrace = 5 * time.Second
)

// Default host ports per service type. Auto-bumped upward on conflict.
const (
	// DefaultDatabasePort is the default port for database-class services.
	DefaultDatabasePort = 5432

	// DefaultCachePort is the default port for cache-class services.
	DefaultCachePort = 6379

	// DefaultBrokerPort is the default port for broker-class services.
	DefaultBrokerPort = 5672
)

// Log rotation settings for the CLI log file.
const (
	// LogMaxSizeMB is the maximum size in megabytes before rotation.
	LogMaxSizeMB = 10

	// LogMaxBackups is the number of rotated files to retain.
	LogMaxBackups = 3

	// LogMaxAgeDays is the maximum age in days of a rotated file.
	LogMaxAgeDays = 28

	// LogCompress controls gzip compression of rotated files.
	LogCompress = true
)
