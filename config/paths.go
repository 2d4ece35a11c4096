package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const appDirName = "thoughtprint"

// GetConfigDir returns the configuration directory
// $THOUGHTPRINT_CONFIG_DIR when set, otherwise
// Linux/Mac: ~/.config/thoughtprint
// Windows: C:\Users\username\.config\thoughtprint
func GetConfigDir() string {
	if dir := os.Getenv("THOUGHTPRINT_CONFIG_DIR"); dir != "" {
		return ExpandPath(dir)
	}
	return filepath.Join(GetHomeDir(), ".config", appDirName)
}

// GetDefaultDataDir returns the data directory (history ledger, logs)
// $THOUGHTPRINT_DATA_DIR when set, otherwise
// Linux/Mac: ~/.local/share/thoughtprint
// Windows: C:\Users\username\AppData\Local\thoughtprint
func GetDefaultDataDir() string {
	if dir := os.Getenv("THOUGHTPRINT_DATA_DIR"); dir != "" {
		return ExpandPath(dir)
	}

	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			localAppData = filepath.Join(GetHomeDir(), "AppData", "Local")
		}
		return filepath.Join(localAppData, appDirName)
	}

	return filepath.Join(GetHomeDir(), ".local", "share", appDirName)
}

// GetConfigFilePath returns the path to config.toml
func GetConfigFilePath(configDir string) string {
	return filepath.Join(configDir, "config.toml")
}

// GetSettingsFilePath returns the path to settings.json
func GetSettingsFilePath(configDir string) string {
	return filepath.Join(configDir, "settings.json")
}

// GetHomeDir returns the user's home directory across platforms
// Windows: %USERPROFILE% (C:\Users\username)
// Linux/Mac: $HOME (/home/username)
func GetHomeDir() string {
	if runtime.GOOS == "windows" {
		home := os.Getenv("USERPROFILE")
		if home == "" {
			home = os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
		}
		if home == "" {
			home = "C:\\"
		}
		return home
	}
	home := os.Getenv("HOME")
	if home == "" {
		home = "/"
	}
	return home
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" {
		return GetHomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		path = filepath.Join(GetHomeDir(), path[2:])
	}

	path = os.ExpandEnv(path)

	return filepath.Clean(path)
}

// EnsureDir creates a directory if it doesn't exist (0700 - user-only access)
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0700)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
