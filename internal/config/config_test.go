// Copyright (c) 2025-2026 PHS Web Team
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"os"
	"testing"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "./data/phs.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "./data/phs.db")
	}
	if cfg.ServerHost != "localhost" {
		t.Errorf("ServerHost = %q, want %q", cfg.ServerHost, "localhost")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want %q", cfg.Env, "development")
	}
	if cfg.SessionSecret != "" {
		t.Errorf("SessionSecret = %q, want empty", cfg.SessionSecret)
	}
	if cfg.SessionMaxAge != 86400 {
		t.Errorf("SessionMaxAge = %d, want 86400", cfg.SessionMaxAge)
	}
	if cfg.CacheTTL != 15 {
		t.Errorf("CacheTTL = %d, want 15", cfg.CacheTTL)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	setEnv(t, "PHS_SESSION_SECRET", "custom-secret-key-32-bytes-long!")
	setEnv(t, "PHS_DB_PATH", "/custom/path.db")
	setEnv(t, "PHS_SERVER_HOST", "0.0.0.0")
	setEnv(t, "PHS_SERVER_PORT", "3000")
	setEnv(t, "PHS_ENV", "production")
	setEnv(t, "PHS_REDIS_URL", "redis://localhost:6379/0")
	setEnv(t, "PHS_DO_SEED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "/custom/path.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/custom/path.db")
	}
	if cfg.ServerAddr() != "0.0.0.0:3000" {
		t.Errorf("ServerAddr() = %q, want %q", cfg.ServerAddr(), "0.0.0.0:3000")
	}
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true in production")
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if !cfg.DoSeed {
		t.Error("DoSeed = false, want true")
	}
}

func TestLoad_ShortSecretRejected(t *testing.T) {
	os.Clearenv()
	setEnv(t, "PHS_SESSION_SECRET", "too-short")

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted a short session secret")
	}
}

func TestLoad_WeakSecretRejected(t *testing.T) {
	os.Clearenv()
	setEnv(t, "PHS_SESSION_SECRET", "change-me-to-32-byte-secret-key!")

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted a known default secret")
	}
}

func TestLoad_InvalidMaxAgeRejected(t *testing.T) {
	os.Clearenv()
	setEnv(t, "PHS_SESSION_MAX_AGE", "-5")

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted a negative session max age")
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	tests := []struct {
		secret string
		want   bool
	}{
		{"abcdefghij1234567890ABCDEFGHIJ!!", true},
		{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false},
		{"abc123ABC", true},
		{"abcdef123456", false},
	}
	for _, tt := range tests {
		if got := hasMinimumEntropy(tt.secret); got != tt.want {
			t.Errorf("hasMinimumEntropy(%q) = %v, want %v", tt.secret, got, tt.want)
		}
	}
}
