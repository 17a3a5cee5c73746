package config

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/loomctl/loom/internal/constants"
	"github.com/loomctl/loom/internal/errors"
)

// newViperInstance creates a new Viper instance with standard loom
// configuration: environment variable prefix (LOOM_), key replacer, and
// defaults.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("LOOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// isConfigNotFoundError returns true if the error is a viper config file not
// found error.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// unmarshalAndValidate unmarshals viper config into Config struct and validates it.
func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads configuration from all available sources with proper precedence.
// Configuration is loaded in the following order (highest precedence first):
//  1. Environment variables (LOOM_* prefix)
//  2. Project config (.loom/config.yaml)
//  3. Global config (~/.loom/config.yaml)
//  4. Built-in defaults
//
// Missing config files are not errors; many setups run on defaults alone.
func Load(ctx context.Context) (*Config, error) {
	v := newViperInstance()

	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}
	if err := loadProjectConfig(v); err != nil {
		return nil, err
	}

	cfg, err := unmarshalAndValidate(v)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx).With().Str("component", "config").Logger()
	logger.Debug().
		Int("effects.parallelism", cfg.Effects.Parallelism).
		Dur("effects.timeout", cfg.Effects.Timeout).
		Int("caps.notifications", cfg.Caps.Notifications).
		Msg("configuration loaded")
	return cfg, nil
}

// LoadFromPaths loads configuration from specific file paths for testing.
// Either path can be empty to skip that level; projectConfigPath has the
// higher precedence.
func LoadFromPaths(_ context.Context, projectConfigPath, globalConfigPath string) (*Config, error) {
	v := newViperInstance()

	if globalConfigPath != "" {
		v.SetConfigFile(globalConfigPath)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read global config: %s", globalConfigPath)
		}
	}
	if projectConfigPath != "" {
		v.SetConfigFile(projectConfigPath)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read project config: %s", projectConfigPath)
		}
	}

	return unmarshalAndValidate(v)
}

// loadGlobalConfig attempts to load ~/.loom/config.yaml. Returns nil if the
// file doesn't exist or the home directory cannot be determined.
func loadGlobalConfig(v *viper.Viper) error {
	globalConfigPath, err := GlobalConfigPath()
	if err != nil || !fileExists(globalConfigPath) {
		return nil
	}

	v.SetConfigFile(globalConfigPath)
	if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read global config file")
	}
	return nil
}

// loadProjectConfig attempts to load .loom/config.yaml relative to the
// working directory. Returns nil if the file doesn't exist.
func loadProjectConfig(v *viper.Viper) error {
	projectConfigPath := ProjectConfigPath()
	if !fileExists(projectConfigPath) {
		return nil
	}

	v.SetConfigFile(projectConfigPath)
	if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read project config file")
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// setDefaults configures all default values on the Viper instance.
// These defaults match the values from DefaultConfig().
// IMPORTANT: Keys must match the YAML tag names exactly for proper mapping.
func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()

	v.SetDefault("engine.queue_size", defaults.Engine.QueueSize)
	v.SetDefault("engine.hub_buffer", defaults.Engine.HubBuffer)

	v.SetDefault("effects.parallelism", defaults.Effects.Parallelism)
	v.SetDefault("effects.timeout", defaults.Effects.Timeout.String())

	v.SetDefault("caps.notifications", defaults.Caps.Notifications)
	v.SetDefault("caps.mcp_log", defaults.Caps.McpLog)
	v.SetDefault("caps.mcp_payload_max_bytes", defaults.Caps.McpPayloadMaxBytes)
	v.SetDefault("caps.recent_projects", defaults.Caps.RecentProjects)

	v.SetDefault("services.database_port", defaults.Services.DatabasePort)
	v.SetDefault("services.cache_port", defaults.Services.CachePort)
	v.SetDefault("services.broker_port", defaults.Services.BrokerPort)
	v.SetDefault("services.port_probe_limit", defaults.Services.PortProbeLimit)

	v.SetDefault("mcp.command", defaults.Mcp.Command)
	v.SetDefault("mcp.base_port", defaults.Mcp.BasePort)

	v.SetDefault("state.path", "")
	v.SetDefault("state.journal_path", "")
}

// StatePath resolves the snapshot location, falling back to the default
// under ~/.loom when unset.
func (c *Config) StatePath() (string, error) {
	if c.State.Path != "" {
		return c.State.Path, nil
	}
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.StateFileName), nil
}

// JournalPath resolves the journal location, falling back to the default
// under ~/.loom when unset.
func (c *Config) JournalPath() (string, error) {
	if c.State.JournalPath != "" {
		return c.State.JournalPath, nil
	}
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.JournalFileName), nil
}

// viperDecoderOption returns the decoder options for Viper unmarshal.
// This configures mapstructure to handle time.Duration conversion from strings.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}
