// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// AppConfig holds all configuration for the service.
type AppConfig struct {
	Port               int
	DatabaseDriver     string
	DatabaseURL        string
	LogLevel           string
	Environment        string
	InvitationTTL      time.Duration
	InvitationSweep    string // cron spec for expiring stale invitation codes
	CORSAllowedOrigins []string
}

// Default returns the configuration used when nothing is set.
func Default() *AppConfig {
	return &AppConfig{
		Port:               8080,
		DatabaseDriver:     DriverSQLite,
		DatabaseURL:        "homestaff.db",
		LogLevel:           "info",
		Environment:        "development",
		InvitationTTL:      7 * 24 * time.Hour,
		InvitationSweep:    "@every 1h",
		CORSAllowedOrigins: []string{"*"},
	}
}

// Load reads configuration from environment variables and a .env file if
// one exists. Existing environment variables win over .env entries.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := Default()

	if v := os.Getenv("HOMESTAFF_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid HOMESTAFF_PORT: %w", err)
		}
		cfg.Port = port
	}

	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.DatabaseDriver = strings.ToLower(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		cfg.Environment = strings.ToLower(v)
	}

	if v := os.Getenv("INVITATION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid INVITATION_TTL: %w", err)
		}
		cfg.InvitationTTL = ttl
	}
	if v := os.Getenv("INVITATION_SWEEP_SPEC"); v != "" {
		cfg.InvitationSweep = v
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitList(v)
	}

	return cfg, cfg.Validate()
}

// Validate checks that values are usable.
func (c *AppConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q (want sqlite, postgres or memory)", c.DatabaseDriver)
	}
	if c.DatabaseDriver != DriverMemory && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	if c.InvitationTTL <= 0 {
		return fmt.Errorf("INVITATION_TTL must be positive")
	}
	if _, err := cron.ParseStandard(c.InvitationSweep); err != nil {
		return fmt.Errorf("invalid INVITATION_SWEEP_SPEC: %w", err)
	}
	return nil
}

// IsProduction is true for environments that log JSON.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "staging"
}

func (c *AppConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
