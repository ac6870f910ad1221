/*
Package config loads server configuration from environment variables.

PURPOSE:
  Maps environment variables onto a Config struct using envconfig, with
  sane defaults so a bare `go run ./cmd/server` works out of the box.
  Command-line flags in cmd/server/main.go override these values.

VARIABLES:
  PORT                  HTTP listen port (default 8080)
  DB_PATH               SQLite database path (default ./data/swasthyam.db)
  HARM_TABLE_PATH       Optional JSON harm table; empty uses built-in
  DEFAULT_HARM_SCORE    Score for unknown oil types (default 50)
  AUDIT_ENABLED         Background counter audit on/off (default true)
  AUDIT_INTERVAL        How often the audit runs (default 1h)
  AUDIT_LOOKBACK_DAYS   How far back the audit walks (default 7)

SEE ALSO:
  - cmd/server/main.go: Flag overrides and wiring
  - api/scheduler.go: Audit scheduler consuming these settings
*/
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all server settings.
type Config struct {
	Port   int    `envconfig:"PORT" default:"8080"`
	DBPath string `envconfig:"DB_PATH" default:"./data/swasthyam.db"`

	HarmTablePath    string `envconfig:"HARM_TABLE_PATH" default:""`
	DefaultHarmScore int    `envconfig:"DEFAULT_HARM_SCORE" default:"50"`

	AuditEnabled      bool          `envconfig:"AUDIT_ENABLED" default:"true"`
	AuditInterval     time.Duration `envconfig:"AUDIT_INTERVAL" default:"1h"`
	AuditLookbackDays int           `envconfig:"AUDIT_LOOKBACK_DAYS" default:"7"`
}

// Validate checks cross-field constraints envconfig can't express.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be in 1..65535, got %d", c.Port)
	}
	if c.DefaultHarmScore < 0 || c.DefaultHarmScore > 100 {
		return fmt.Errorf("DEFAULT_HARM_SCORE must be in 0..100, got %d", c.DefaultHarmScore)
	}
	if c.AuditInterval <= 0 {
		return fmt.Errorf("AUDIT_INTERVAL must be positive, got %v", c.AuditInterval)
	}
	if c.AuditLookbackDays <= 0 {
		return fmt.Errorf("AUDIT_LOOKBACK_DAYS must be positive, got %d", c.AuditLookbackDays)
	}
	return nil
}

// Load reads the environment and returns a validated Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
