// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/roach88/askfit/internal/execute"
	"github.com/roach88/askfit/internal/generate"
)

// Config is the full service configuration.
type Config struct {
	// OpenAI is the generation service configuration.
	OpenAI generate.Config

	// ClickHouse is the store configuration.
	ClickHouse execute.Config

	// ListenAddr is the HTTP listen address for `askfit serve`.
	ListenAddr string

	// AuditPath is the SQLite audit log path. Empty disables auditing.
	AuditPath string
}

// Defaults.
const (
	DefaultListenAddr = ":8000"
	DefaultAuditPath  = "askfit-audit.db"
)

// FromEnv reads configuration from environment variables.
//
// Required: OPENAI_API_KEY, CLICKHOUSE_HOST. Everything else has a
// default or may stay empty.
func FromEnv() (*Config, error) {
	cfg := &Config{
		OpenAI: generate.Config{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   os.Getenv("OPENAI_MODEL"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
		},
		ClickHouse: execute.Config{
			Host:     os.Getenv("CLICKHOUSE_HOST"),
			User:     os.Getenv("CLICKHOUSE_USER"),
			Password: os.Getenv("CLICKHOUSE_PASSWORD"),
			Database: os.Getenv("CLICKHOUSE_DATABASE"),
			Secure:   true,
		},
		ListenAddr: envOr("ASKFIT_LISTEN_ADDR", DefaultListenAddr),
		AuditPath:  envOr("ASKFIT_AUDIT_PATH", DefaultAuditPath),
	}

	if port := os.Getenv("CLICKHOUSE_PORT"); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("CLICKHOUSE_PORT: %w", err)
		}
		cfg.ClickHouse.Port = n
	}

	if secure := os.Getenv("CLICKHOUSE_SECURE"); secure != "" {
		b, err := strconv.ParseBool(secure)
		if err != nil {
			return nil, fmt.Errorf("CLICKHOUSE_SECURE: %w", err)
		}
		cfg.ClickHouse.Secure = b
	}

	if timeout := os.Getenv("OPENAI_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("OPENAI_TIMEOUT: %w", err)
		}
		cfg.OpenAI.Timeout = d
	}

	return cfg, nil
}

// Validate checks the fields every online command needs.
// Offline commands (grammar, validate) skip this.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("CLICKHOUSE_HOST is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
