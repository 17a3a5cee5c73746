// Package config provides configuration management for loom with layered precedence.
//
// Configuration sources are loaded in the following order (highest precedence first):
//  1. CLI flags (passed via LoadWithOverrides)
//  2. Environment variables (LOOM_* prefix)
//  3. Project config (.loom/config.yaml)
//  4. Global config (~/.loom/config.yaml)
//  5. Built-in defaults
//
// Each higher level completely overrides the lower level for the same key.
//
// IMPORTANT: This package may import internal/constants and internal/errors,
// but MUST NOT import internal/domain or other internal packages.
package config

import "time"

// Config is the root configuration structure for loom.
type Config struct {
	// Engine contains settings for the action dispatcher.
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`

	// Effects contains settings for effect execution.
	Effects EffectsConfig `yaml:"effects" mapstructure:"effects"`

	// Caps bounds the retained collections in the state tree.
	Caps CapsConfig `yaml:"caps" mapstructure:"caps"`

	// Services contains default ports for docker-backed dev services.
	Services ServicesConfig `yaml:"services" mapstructure:"services"`

	// Mcp contains settings for per-worktree MCP server processes.
	Mcp McpConfig `yaml:"mcp" mapstructure:"mcp"`

	// State contains snapshot and journal locations.
	State StateConfig `yaml:"state" mapstructure:"state"`
}

// EngineConfig contains dispatcher settings.
type EngineConfig struct {
	// QueueSize is the dispatcher's pending-action queue capacity.
	QueueSize int `yaml:"queue_size" mapstructure:"queue_size"`

	// HubBuffer is the per-subscriber snapshot channel capacity.
	HubBuffer int `yaml:"hub_buffer" mapstructure:"hub_buffer"`
}

// EffectsConfig contains effect runner settings.
type EffectsConfig struct {
	// Parallelism is the maximum number of effects executing at once.
	Parallelism int `yaml:"parallelism" mapstructure:"parallelism"`

	// Timeout is the maximum duration for a single effect.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// CapsConfig bounds the retained collections in the state tree.
type CapsConfig struct {
	// Notifications is the maximum retained notification count.
	Notifications int `yaml:"notifications" mapstructure:"notifications"`

	// McpLog is the maximum retained MCP log entries per server.
	McpLog int `yaml:"mcp_log" mapstructure:"mcp_log"`

	// McpPayloadMaxBytes is the MCP log payload size cutoff.
	McpPayloadMaxBytes int `yaml:"mcp_payload_max_bytes" mapstructure:"mcp_payload_max_bytes"`

	// RecentProjects is the maximum remembered recent project count.
	RecentProjects int `yaml:"recent_projects" mapstructure:"recent_projects"`
}

// ServicesConfig contains default ports for dev services. Ports are starting
// points; a busy port is auto-bumped upward at container start.
type ServicesConfig struct {
	// DatabasePort is the default host port for database-class services.
	DatabasePort int `yaml:"database_port" mapstructure:"database_port"`

	// CachePort is the default host port for cache-class services.
	CachePort int `yaml:"cache_port" mapstructure:"cache_port"`

	// BrokerPort is the default host port for broker-class services.
	BrokerPort int `yaml:"broker_port" mapstructure:"broker_port"`

	// PortProbeLimit is how many ports above the default are probed before
	// giving up on a conflict.
	PortProbeLimit int `yaml:"port_probe_limit" mapstructure:"port_probe_limit"`
}

// McpConfig contains MCP server process settings.
type McpConfig struct {
	// Command is the server binary spawned per worktree.
	Command string `yaml:"command" mapstructure:"command"`

	// BasePort is the first port probed for a new server.
	BasePort int `yaml:"base_port" mapstructure:"base_port"`
}

// StateConfig contains snapshot and journal locations. Empty paths resolve
// to the defaults under ~/.loom.
type StateConfig struct {
	// Path is the snapshot file location.
	Path string `yaml:"path" mapstructure:"path"`

	// JournalPath is the action journal location.
	JournalPath string `yaml:"journal_path" mapstructure:"journal_path"`
}
