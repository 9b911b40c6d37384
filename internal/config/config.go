// Package config handles reading and writing the client configuration file
// and layering environment overrides on top of it.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level structure for config.yaml in the state directory.
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Storage  StorageConfig `yaml:"storage"`
	Audio    AudioConfig   `yaml:"audio"`
	LogLevel string        `yaml:"log_level"` // "debug" | "info" | "warn" | "error"
}

// ServerConfig holds the central server connection settings.
type ServerConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"` // bearer token from the last login
}

// StorageConfig selects and configures the local store backend.
type StorageConfig struct {
	Driver string `yaml:"driver"` // "sqlite" | "postgres"
	DSN    string `yaml:"dsn"`    // empty means the default SQLite path
}

// AudioConfig controls where captured recordings are written.
type AudioConfig struct {
	RecordingsDir string `yaml:"recordings_dir"`
}

const configFile = "config.yaml"

// DefaultStateDirName is the state directory created under the user's home.
const DefaultStateDirName = ".formcourier"

// DefaultStateDir returns the per-user state directory, honoring the
// FORMCOURIER_STATE_DIR override.
func DefaultStateDir() string {
	if dir := os.Getenv("FORMCOURIER_STATE_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultStateDirName
	}
	return filepath.Join(home, DefaultStateDirName)
}

// ReadConfig reads config.yaml from the given state directory. A missing file
// is not an error; defaults are returned instead.
func ReadConfig(stateDir string) (*Config, error) {
	path := filepath.Join(stateDir, configFile)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(stateDir), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig(stateDir)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// WriteConfig writes cfg to config.yaml in the given state directory,
// creating the directory if it does not exist.
func WriteConfig(stateDir string, cfg *Config) error {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	path := filepath.Join(stateDir, configFile)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// DefaultConfig returns a Config populated with sensible defaults for the
// given state directory.
func DefaultConfig(stateDir string) *Config {
	return &Config{
		Storage: StorageConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(stateDir, "formcourier.db"),
		},
		Audio: AudioConfig{
			RecordingsDir: filepath.Join(stateDir, "recordings"),
		},
		LogLevel: "info",
	}
}

// ApplyEnv layers environment variable overrides onto cfg. Environment wins
// over the file so deployments can inject settings without editing it.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("FORMCOURIER_SERVER_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("FORMCOURIER_TOKEN"); v != "" {
		c.Server.Token = v
	}
	if v := os.Getenv("FORMCOURIER_DB_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("FORMCOURIER_DB_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv("FORMCOURIER_RECORDINGS_DIR"); v != "" {
		c.Audio.RecordingsDir = v
	}
	if v := os.Getenv("FORMCOURIER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}
