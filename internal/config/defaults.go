package config

import (
	"github.com/loomctl/loom/internal/constants"
)

// DefaultConfig returns the built-in defaults. These must stay in sync with
// setDefaults in load.go.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			QueueSize: 64,
			HubBuffer: 16,
		},
		Effects: EffectsConfig{
			Parallelism: constants.DefaultEffectParallelism,
			Timeout:     constants.DefaultEffectTimeout,
		},
		Caps: CapsConfig{
			Notifications:      constants.DefaultNotificationCap,
			McpLog:             constants.DefaultMcpLogCap,
			McpPayloadMaxBytes: constants.DefaultMcpPayloadMaxBytes,
			RecentProjects:     constants.DefaultRecentProjectsCap,
		},
		Services: ServicesConfig{
			DatabasePort:   constants.DefaultDatabasePort,
			CachePort:      constants.DefaultCachePort,
			BrokerPort:     constants.DefaultBrokerPort,
			PortProbeLimit: constants.DefaultPortProbeLimit,
		},
		Mcp: McpConfig{
			Command:  constants.DefaultMcpCommand,
			BasePort: constants.DefaultMcpBasePort,
		},
		State: StateConfig{},
	}
}
