// Package config loads the settings and secrets files of the manager.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/blogdesk/mdxmanager/internal/constants"
)

// Dir returns the configuration directory.
//
// Locations:
//   - Windows: %APPDATA%\mdxmanager
//   - Unix: ~/.config/mdxmanager
func Dir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), constants.ConfigDirName)
		}
		return filepath.Join(homeDir, ".config", constants.ConfigDirName)
	}
	return filepath.Join(configDir, constants.ConfigDirName)
}

// DefaultSettingsPath returns the default location of settings.ini.
func DefaultSettingsPath() string {
	return filepath.Join(Dir(), "settings.ini")
}

// DefaultSecretsPath returns the default location of secrets.json.
// A config/secrets.json next to the working directory takes precedence,
// matching where the tool has always looked for it.
func DefaultSecretsPath() string {
	local := filepath.Join("config", "secrets.json")
	if _, err := os.Stat(local); err == nil {
		return local
	}
	return filepath.Join(Dir(), "secrets.json")
}

// LogDirectory returns the directory for rotating log files.
//
// Locations:
//   - Windows: %LOCALAPPDATA%\mdxmanager\logs
//   - Unix: ~/.config/mdxmanager/logs
func LogDirectory() string {
	if runtime.GOOS == "windows" {
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, constants.ConfigDirName, "logs")
		}
	}
	return filepath.Join(Dir(), "logs")
}

// EnsureLogDirectory creates the log directory with owner-only permissions.
func EnsureLogDirectory() error {
	return os.MkdirAll(LogDirectory(), 0700)
}
