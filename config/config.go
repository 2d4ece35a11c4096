package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

type OutputConfig struct {
	Directory string `toml:"directory"`
}

type ConverterConfig struct {
	Pandoc         string `toml:"pandoc"`
	XeLaTeX        string `toml:"xelatex"`
	PDFEngine      string `toml:"pdf_engine"`
	LuaFilter      string `toml:"lua_filter"`
	CJKFont        string `toml:"cjk_font"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type NetworkConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

type UIConfig struct {
	// SurfaceErrors shows job failures in the window; they are always logged.
	SurfaceErrors bool `toml:"surface_errors"`
}

type LogConfig struct {
	Directory string `toml:"directory"`
	Console   bool   `toml:"console"`
}

// Config is the application configuration read from config.toml.
type Config struct {
	Output    OutputConfig    `toml:"output"`
	Converter ConverterConfig `toml:"converter"`
	Network   NetworkConfig   `toml:"network"`
	UI        UIConfig        `toml:"ui"`
	Log       LogConfig       `toml:"log"`

	dataDir     string
	unknownKeys []string
}

func CheckDebug() bool {
	debug := os.Getenv("THOUGHTPRINT_DEBUG")
	return debug == "true" || debug == "1"
}

// Load reads <configDir>/config.toml, writing the commented template first
// when the file does not exist. Missing keys keep their defaults.
func Load(configDir, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.dataDir = dataDir

	configPath := GetConfigFilePath(configDir)
	if !FileExists(configPath) {
		if err := CreateDefaultConfig(configDir); err != nil {
			return nil, fmt.Errorf("failed to create config: %w", err)
		}
		return cfg, nil
	}

	md, err := toml.DecodeFile(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	for _, key := range md.Undecoded() {
		cfg.unknownKeys = append(cfg.unknownKeys, key.String())
	}

	return cfg, nil
}

// UnknownKeys lists keys in config.toml that matched no setting.
func (c *Config) UnknownKeys() []string {
	return c.unknownKeys
}

func (c *Config) DataDir() string {
	return c.dataDir
}

// OutputDir is the expanded output directory, or "" for the documents search.
func (c *Config) OutputDir() string {
	return ExpandPath(c.Output.Directory)
}

// LogDir is the expanded log directory, defaulting to <data dir>/logs.
func (c *Config) LogDir() string {
	if c.Log.Directory != "" {
		return ExpandPath(c.Log.Directory)
	}
	return filepath.Join(c.dataDir, "logs")
}

func (c *Config) ConvertTimeout() time.Duration {
	return seconds(c.Converter.TimeoutSeconds, DefaultConvertTimeoutSeconds)
}

func (c *Config) NetworkTimeout() time.Duration {
	return seconds(c.Network.TimeoutSeconds, DefaultNetworkTimeoutSeconds)
}

func seconds(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}

func CreateDefaultConfig(configDir string) error {
	if err := EnsureDir(configDir); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := GetConfigFilePath(configDir)
	if FileExists(configPath) {
		return nil
	}

	if err := os.WriteFile(configPath, []byte(GenerateConfigTemplate()), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
