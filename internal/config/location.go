package config

import (
	"os"
	"path/filepath"
)

// GetConfigPath returns the configuration file path: $JRBENCH_CONFIG when
// set, otherwise ~/.jrbench/config.
func GetConfigPath() (string, error) {
	if configPath := os.Getenv("JRBENCH_CONFIG"); configPath != "" {
		return configPath, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".jrbench", "config"), nil
}
