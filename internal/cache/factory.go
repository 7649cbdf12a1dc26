// Copyright (c) 2025-2026 PHS Web Team
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"fmt"
	"log/slog"
	"time"
)

// Options selects and configures a cache backend.
type Options struct {
	// RedisURL selects the Redis backend when non-empty; otherwise the
	// in-memory backend is used.
	RedisURL string

	// Prefix is the Redis key prefix.
	Prefix string

	// DefaultTTL is the default entry lifetime.
	DefaultTTL time.Duration
}

// New creates a cache from the given options: Redis when a URL is
// configured, in-memory otherwise.
func New(opts Options) (Cache, error) {
	if opts.RedisURL != "" {
		c, err := NewRedisCache(RedisOptions{
			URL:        opts.RedisURL,
			Prefix:     opts.Prefix,
			DefaultTTL: opts.DefaultTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		slog.Info("using redis cache", "prefix", opts.Prefix, "ttl", opts.DefaultTTL)
		return c, nil
	}

	slog.Info("using in-memory cache", "ttl", opts.DefaultTTL)
	return NewMemoryCache(opts.DefaultTTL, time.Minute), nil
}
