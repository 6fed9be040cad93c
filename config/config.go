// Package config defines the docket daemon configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Config is the top-level docket configuration.
type Config struct {
	Server        ServerConfig  `json:"server" yaml:"server"`
	Auth          AuthConfig    `json:"auth" yaml:"auth"`
	Storage       StorageConfig `json:"storage" yaml:"storage"`
	Matrix        MatrixConfig  `json:"matrix" yaml:"matrix"`
	DataDir       string        `json:"data_dir" yaml:"data_dir"`
	LogLevel      string        `json:"log_level" yaml:"log_level"`
	TemplatesFile string        `json:"templates_file,omitempty" yaml:"templates_file"` // empty uses the built-in catalog
	CasesFile     string        `json:"cases_file" yaml:"cases_file"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"` // listen address, e.g., ":9090"
}

// AuthConfig controls bearer-token actor resolution.
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret"`
}

// StorageConfig selects where task snapshots are kept.
type StorageConfig struct {
	Backend string `json:"backend" yaml:"backend"` // "sqlite", "file" or "memory"
	Path    string `json:"path,omitempty" yaml:"path"`
	Key     string `json:"key,omitempty" yaml:"key"`
}

// MatrixConfig overrides the dashboard checklist columns.
type MatrixConfig struct {
	Columns []string `json:"columns,omitempty" yaml:"columns"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":9090",
		},
		Storage: StorageConfig{
			Backend: BackendSQLite,
			Key:     "docket.tasks",
		},
		DataDir:  "./data",
		LogLevel: "info",
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks fields that have a closed set of values.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendFile, BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// StoragePath returns the snapshot location, defaulting under DataDir.
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	switch c.Storage.Backend {
	case BackendFile:
		return filepath.Join(c.DataDir, "tasks.json")
	default:
		return filepath.Join(c.DataDir, "docket.db")
	}
}

// CasesPath returns the case file location, defaulting under DataDir.
func (c *Config) CasesPath() string {
	if c.CasesFile != "" {
		return c.CasesFile
	}
	return filepath.Join(c.DataDir, "cases.json")
}

// SlogLevel maps LogLevel to a slog level. Unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	lvl, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
