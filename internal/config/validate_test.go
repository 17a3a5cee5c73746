package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loomerrors "github.com/loomctl/loom/internal/errors"
)

func TestValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		require.NoError(t, Validate(DefaultConfig()))
	})

	t.Run("nil config", func(t *testing.T) {
		require.ErrorIs(t, Validate(nil), loomerrors.ErrConfigInvalid)
	})

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero queue size", mutate: func(c *Config) { c.Engine.QueueSize = 0 }},
		{name: "zero hub buffer", mutate: func(c *Config) { c.Engine.HubBuffer = 0 }},
		{name: "negative parallelism", mutate: func(c *Config) { c.Effects.Parallelism = -1 }},
		{name: "parallelism over cap", mutate: func(c *Config) { c.Effects.Parallelism = 65 }},
		{name: "zero effect timeout", mutate: func(c *Config) { c.Effects.Timeout = 0 }},
		{name: "zero mcp log cap", mutate: func(c *Config) { c.Caps.McpLog = 0 }},
		{name: "zero payload cutoff", mutate: func(c *Config) { c.Caps.McpPayloadMaxBytes = 0 }},
		{name: "zero recent cap", mutate: func(c *Config) { c.Caps.RecentProjects = 0 }},
		{name: "cache port out of range", mutate: func(c *Config) { c.Services.CachePort = 0 }},
		{name: "broker port out of range", mutate: func(c *Config) { c.Services.BrokerPort = 100000 }},
		{name: "probe limit too high", mutate: func(c *Config) { c.Services.PortProbeLimit = 5000 }},
		{name: "mcp base port invalid", mutate: func(c *Config) { c.Mcp.BasePort = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, loomerrors.ErrConfigInvalid)
		})
	}
}
