package config

import (
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	for _, key := range []string{
		"STORE_DRIVER", "DATABASE_URL", "MIGRATE_ON_START", "JWT_SECRET", "JWT_EXPIRY",
		"API_PORT", "API_HOST", "SHUTDOWN_TIMEOUT", "JOBS_FILE", "TRIGGER_SUFFIXES",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadWithDefaults()
	if cfg.StoreDriver != StoreDriverPostgres {
		t.Errorf("StoreDriver = %q, want %q", cfg.StoreDriver, StoreDriverPostgres)
	}
	if !cfg.MigrateOnStart {
		t.Error("MigrateOnStart should default to true")
	}
	if want := []string{"/build", "/buildWithParameters"}; !reflect.DeepEqual(cfg.TriggerSuffixes, want) {
		t.Errorf("TriggerSuffixes = %v, want %v", cfg.TriggerSuffixes, want)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want INFO", cfg.LogLevel)
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("API_PORT", "9000")
	t.Setenv("SHUTDOWN_TIMEOUT", "5s")
	t.Setenv("TRIGGER_SUFFIXES", " /build , ,/rebuild")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("MIGRATE_ON_START", "false")
	t.Setenv("JOBS_FILE", "jobs.yaml")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StoreDriver != StoreDriverMemory {
		t.Errorf("StoreDriver = %q", cfg.StoreDriver)
	}
	if cfg.APIPort != 9000 {
		t.Errorf("APIPort = %d", cfg.APIPort)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
	if want := []string{"/build", "/rebuild"}; !reflect.DeepEqual(cfg.TriggerSuffixes, want) {
		t.Errorf("TriggerSuffixes = %v, want %v", cfg.TriggerSuffixes, want)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.MigrateOnStart {
		t.Error("MigrateOnStart should be false")
	}
	if cfg.JobsFile != "jobs.yaml" {
		t.Errorf("JobsFile = %q", cfg.JobsFile)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := LoadWithDefaults()
		c.JWTSecret = strings.Repeat("x", 32)
		c.StoreDriver = StoreDriverMemory
		c.TriggerSuffixes = []string{"/build"}
		c.LogFormat = "json"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET is required"},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "at least 32"},
		{"unknown driver", func(c *Config) { c.StoreDriver = "mysql" }, "STORE_DRIVER"},
		{"postgres without dsn", func(c *Config) { c.StoreDriver = StoreDriverPostgres; c.DatabaseDSN = "" }, "DATABASE_URL"},
		{"no suffixes", func(c *Config) { c.TriggerSuffixes = nil }, "TRIGGER_SUFFIXES"},
		{"relative suffix", func(c *Config) { c.TriggerSuffixes = []string{"build"} }, "must start with /"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
