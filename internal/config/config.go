// Copyright (c) 2025-2026 PHS Web Team
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"PHS_DB_PATH" envDefault:"./data/phs.db"`
	ServerHost string `env:"PHS_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"PHS_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"PHS_ENV" envDefault:"development"`
	LogLevel   string `env:"PHS_LOG_LEVEL" envDefault:"info"`

	// Session configuration. An empty secret means a random signing key is
	// generated at startup, so sessions do not survive a restart and cannot
	// be shared between processes.
	SessionSecret string `env:"PHS_SESSION_SECRET"`
	SessionMaxAge int    `env:"PHS_SESSION_MAX_AGE" envDefault:"86400"` // Seconds

	// Cache configuration
	RedisURL    string `env:"PHS_REDIS_URL"`                      // Optional Redis URL for shared permission caching
	CachePrefix string `env:"PHS_CACHE_PREFIX" envDefault:"phs:"` // Redis key prefix
	CacheTTL    int    `env:"PHS_CACHE_TTL" envDefault:"15"`      // Permission cache TTL in seconds

	// Seeding configuration
	DoSeed bool `env:"PHS_DO_SEED" envDefault:"false"` // Create the default admin account on startup
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// MinSessionSecretLength is the minimum required length for the session
// secret when one is supplied.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.SessionSecret != "" {
		if len(cfg.SessionSecret) < MinSessionSecretLength {
			return nil, fmt.Errorf("PHS_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
				"generate a secure secret with: openssl rand -base64 32",
				MinSessionSecretLength, len(cfg.SessionSecret))
		}
		for _, weak := range knownWeakSecrets {
			if cfg.SessionSecret == weak {
				return nil, fmt.Errorf("PHS_SESSION_SECRET is a known default value and must not be used; " +
					"generate a secure secret with: openssl rand -base64 32")
			}
		}
		if !hasMinimumEntropy(cfg.SessionSecret) {
			slog.Warn("PHS_SESSION_SECRET has low character diversity; " +
				"consider generating a random secret with: openssl rand -base64 32")
		}
	}

	if cfg.SessionMaxAge <= 0 {
		return nil, fmt.Errorf("PHS_SESSION_MAX_AGE must be positive, got %d", cfg.SessionMaxAge)
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
