package config

import (
	"os"
	"path/filepath"

	"github.com/loomctl/loom/internal/constants"
	"github.com/loomctl/loom/internal/errors"
)

// GlobalConfigDir returns the path to the global loom configuration
// directory, typically ~/.loom on Unix systems.
func GlobalConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, constants.LoomHome), nil
}

// GlobalConfigPath returns the full path to the global configuration file,
// typically ~/.loom/config.yaml.
func GlobalConfigPath() (string, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// ProjectConfigPath returns the relative path to the project configuration
// file, always .loom/config.yaml relative to the working directory.
func ProjectConfigPath() string {
	return filepath.Join(constants.LoomHome, "config.yaml")
}
