// Package config loads taskclock configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fentz26/taskclock/internal/blob"
	"github.com/fentz26/taskclock/internal/notify"
	"gopkg.in/yaml.v3"
)

// Environments.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Config is the full taskclock configuration.
type Config struct {
	// Env selects logging defaults: local, dev or prod.
	Env string `yaml:"env"`
	// Listen is the API server address.
	Listen   string         `yaml:"listen"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Notify   NotifyConfig   `yaml:"notify"`
	Blob     blob.Config    `yaml:"blob"`
	Identity IdentityConfig `yaml:"identity"`
}

// LogConfig controls the logger.
type LogConfig struct {
	// Level overrides the environment's default level when set.
	Level string `yaml:"level"`
	// File appends log output to a file instead of stderr.
	File string `yaml:"file"`
}

// DatabaseConfig selects the SQL backend.
type DatabaseConfig struct {
	// Driver is sqlite or postgres.
	Driver string `yaml:"driver"`
	// DSN is a file path for sqlite, a connection string for postgres.
	DSN string `yaml:"dsn"`
}

// CacheConfig controls the aggregate cache.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// NotifyConfig selects how notifications are delivered.
type NotifyConfig struct {
	// Driver is log or smtp.
	Driver    string            `yaml:"driver"`
	From      string            `yaml:"from"`
	Workers   int               `yaml:"workers"`
	QueueSize int               `yaml:"queue_size"`
	Timeout   time.Duration     `yaml:"timeout"`
	SMTP      notify.SMTPConfig `yaml:"smtp"`
}

// IdentityConfig selects the identity provider.
type IdentityConfig struct {
	// Provider is header or google.
	Provider string `yaml:"provider"`
	// Audience is the expected ID token audience for google.
	Audience string `yaml:"audience"`
}

// Dir returns ~/.taskclock, or .taskclock when the home dir is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskclock"
	}
	return filepath.Join(home, ".taskclock")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Env:    EnvLocal,
		Listen: "127.0.0.1:7466",
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(Dir(), "taskclock.db"),
		},
		Cache: CacheConfig{TTL: 60 * time.Second},
		Notify: NotifyConfig{
			Driver:    "log",
			From:      "noreply@taskclock.local",
			Workers:   2,
			QueueSize: 100,
			Timeout:   10 * time.Second,
			SMTP:      notify.SMTPConfig{Port: 587},
		},
		Blob: blob.Config{
			Bucket:    "taskclock-attachments",
			URLExpiry: time.Hour,
		},
		Identity: IdentityConfig{Provider: "header"},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories if needed.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("invalid env %q, must be: local, dev, or prod", c.Env)
	}
	if c.Listen == "" {
		return fmt.Errorf("listen must not be empty")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid database driver %q, must be: sqlite or postgres", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn must not be empty")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	switch c.Notify.Driver {
	case "log":
	case "smtp":
		if c.Notify.SMTP.Host == "" {
			return fmt.Errorf("notify smtp host must be set for the smtp driver")
		}
	default:
		return fmt.Errorf("invalid notify driver %q, must be: log or smtp", c.Notify.Driver)
	}
	if c.Notify.Workers < 1 || c.Notify.QueueSize < 1 {
		return fmt.Errorf("notify workers and queue_size must be at least 1")
	}
	if c.Notify.Timeout <= 0 {
		return fmt.Errorf("notify timeout must be positive")
	}
	switch c.Identity.Provider {
	case "header":
	case "google":
		if c.Identity.Audience == "" {
			return fmt.Errorf("identity audience must be set for the google provider")
		}
	default:
		return fmt.Errorf("invalid identity provider %q, must be: header or google", c.Identity.Provider)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Env = EnvOrDefault("TASKCLOCK_ENV", c.Env)
	c.Listen = EnvOrDefault("TASKCLOCK_LISTEN", c.Listen)
	c.Database.Driver = EnvOrDefault("TASKCLOCK_DB_DRIVER", c.Database.Driver)
	c.Database.DSN = EnvOrDefault("TASKCLOCK_DB_DSN", c.Database.DSN)
}

// EnvOrDefault returns the value of key, or fallback when it is unset or empty.
func EnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
