package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Listen != "127.0.0.1:7466" || cfg.Cache.TTL != 60*time.Second || cfg.Database.Driver != "sqlite" {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
env: prod
listen: ":8080"
database:
  driver: postgres
  dsn: postgres://taskclock@localhost/taskclock?sslmode=disable
cache:
  ttl: 5m
notify:
  driver: smtp
  timeout: 3s
  smtp:
    host: mail.example.com
identity:
  provider: google
  audience: taskclock-client
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Env != EnvProd || cfg.Database.Driver != "postgres" || cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("File values not applied: %+v", cfg)
	}
	if cfg.Notify.Timeout != 3*time.Second {
		t.Errorf("Expected notify timeout 3s, got %v", cfg.Notify.Timeout)
	}
	// Untouched keys keep their defaults
	if cfg.Notify.Workers != 2 || cfg.Notify.SMTP.Port != 587 {
		t.Errorf("Defaults lost: %+v", cfg.Notify)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TASKCLOCK_ENV", "dev")
	t.Setenv("TASKCLOCK_LISTEN", "0.0.0.0:9000")
	t.Setenv("TASKCLOCK_DB_DSN", "/tmp/override.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Env != EnvDev || cfg.Listen != "0.0.0.0:9000" || cfg.Database.DSN != "/tmp/override.db" {
		t.Errorf("Env overrides not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad env", func(c *Config) { c.Env = "staging" }, "invalid env"},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "database driver"},
		{"zero ttl", func(c *Config) { c.Cache.TTL = 0 }, "cache ttl"},
		{"smtp without host", func(c *Config) { c.Notify.Driver = "smtp" }, "smtp host"},
		{"google without audience", func(c *Config) { c.Identity.Provider = "google" }, "audience"},
		{"no workers", func(c *Config) { c.Notify.Workers = 0 }, "workers"},
		{"zero notify timeout", func(c *Config) { c.Notify.Timeout = 0 }, "notify timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Defaults should be valid: %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Cache.TTL = 90 * time.Second
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Cache.TTL != 90*time.Second {
		t.Errorf("Expected ttl 90s, got %v", loaded.Cache.TTL)
	}
	if err := Save(path, nil); err == nil {
		t.Error("Saving nil should fail")
	}
}
