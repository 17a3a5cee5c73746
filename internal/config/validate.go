package config

import (
	"github.com/loomctl/loom/internal/errors"
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.Wrap(errors.ErrConfigInvalid, "configuration is nil")
	}

	if cfg.Engine.QueueSize < 1 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"engine.queue_size must be positive, got %d", cfg.Engine.QueueSize)
	}
	if cfg.Engine.HubBuffer < 1 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"engine.hub_buffer must be positive, got %d", cfg.Engine.HubBuffer)
	}

	if cfg.Effects.Parallelism < 1 || cfg.Effects.Parallelism > 64 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"effects.parallelism must be between 1 and 64, got %d", cfg.Effects.Parallelism)
	}
	if cfg.Effects.Timeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"effects.timeout must be positive, got %s", cfg.Effects.Timeout)
	}

	if err := validateCaps(&cfg.Caps); err != nil {
		return err
	}
	if err := validateServices(&cfg.Services); err != nil {
		return err
	}

	if cfg.Mcp.Command == "" {
		return errors.Wrap(errors.ErrConfigInvalid, "mcp.command must not be empty")
	}
	if !validPort(cfg.Mcp.BasePort) {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"mcp.base_port must be a valid port, got %d", cfg.Mcp.BasePort)
	}

	return nil
}

func validateCaps(caps *CapsConfig) error {
	if caps.Notifications < 1 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"caps.notifications must be positive, got %d", caps.Notifications)
	}
	if caps.McpLog < 1 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"caps.mcp_log must be positive, got %d", caps.McpLog)
	}
	if caps.McpPayloadMaxBytes < 1 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"caps.mcp_payload_max_bytes must be positive, got %d", caps.McpPayloadMaxBytes)
	}
	if caps.RecentProjects < 1 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"caps.recent_projects must be positive, got %d", caps.RecentProjects)
	}
	return nil
}

func validateServices(svc *ServicesConfig) error {
	ports := map[string]int{
		"services.database_port": svc.DatabasePort,
		"services.cache_port":    svc.CachePort,
		"services.broker_port":   svc.BrokerPort,
	}
	for name, port := range ports {
		if !validPort(port) {
			return errors.Wrapf(errors.ErrConfigInvalid,
				"%s must be a valid port, got %d", name, port)
		}
	}
	if svc.PortProbeLimit < 1 || svc.PortProbeLimit > 1000 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"services.port_probe_limit must be between 1 and 1000, got %d", svc.PortProbeLimit)
	}
	return nil
}

func validPort(port int) bool {
	return port >= 1 && port <= 65535
}
