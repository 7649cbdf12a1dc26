// Copyright (c) 2025-2026 PHS Web Team
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service contains business logic sitting between handlers and the
// store.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phs-web/phs-go/internal/auth"
	"github.com/phs-web/phs-go/internal/cache"
	"github.com/phs-web/phs-go/internal/model"
	"github.com/phs-web/phs-go/internal/store"
)

// ErrUserNotFound indicates the user id does not exist in the store. The
// HTTP boundary treats it as unauthenticated: a stale session referencing a
// deleted user, not a server error.
var ErrUserNotFound = errors.New("user not found")

// DefaultCacheTTL bounds the staleness window of cached effective sets.
// Permission changes are rare administrative events, so a short TTL is an
// acceptable consistency bound; mutating handlers additionally invalidate
// eagerly.
const DefaultCacheTTL = 15 * time.Second

// PermissionService resolves the effective permission set of a user from
// its role, direct grants, and group memberships. An optional cache
// accelerates repeated resolutions; the service is fully correct with a nil
// cache.
type PermissionService struct {
	queries *store.Queries
	cache   cache.Cache
	ttl     time.Duration
}

// NewPermissionService creates a PermissionService. cacheBackend may be nil
// to disable caching. ttl 0 means DefaultCacheTTL.
func NewPermissionService(db *sql.DB, cacheBackend cache.Cache, ttl time.Duration) *PermissionService {
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	return &PermissionService{
		queries: store.New(db),
		cache:   cacheBackend,
		ttl:     ttl,
	}
}

func permissionCacheKey(userID int64) string {
	return fmt.Sprintf("perms:%d", userID)
}

// EffectivePermissions computes the union of the user's role-implied,
// direct, and group-inherited permissions. Admin is a root override and
// short-circuits to the full vocabulary without touching the cache or the
// group join.
func (s *PermissionService) EffectivePermissions(ctx context.Context, userID int64) (auth.PermissionSet, error) {
	user, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("fetching user %d: %w", userID, err)
	}

	if user.IsAdmin() {
		return auth.AllPermissions(), nil
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, permissionCacheKey(userID)); err == nil {
			set, perr := auth.ParsePermissionSet(string(cached))
			if perr == nil {
				return set, nil
			}
			// Corrupt entry: drop it and recompute.
			_ = s.cache.Delete(ctx, permissionCacheKey(userID))
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			// Cache trouble must not fail resolution; fall through to the store.
			slog.Warn("permission cache read failed", "user_id", userID, "error", err)
		}
	}

	effective, err := s.aggregate(ctx, user)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, permissionCacheKey(userID), []byte(effective.String()), s.ttl); err != nil {
			slog.Warn("permission cache write failed", "user_id", userID, "error", err)
		}
	}

	return effective, nil
}

// aggregate unions direct grants with every joined group's permissions.
func (s *PermissionService) aggregate(ctx context.Context, user model.User) (auth.PermissionSet, error) {
	effective := user.Permissions

	groups, err := s.queries.GetUserGroups(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("fetching groups of user %d: %w", user.ID, err)
	}
	for _, g := range groups {
		effective = effective.Union(g.Permissions)
	}

	return effective, nil
}

// Invalidate drops the cached effective set of a single user. Called after
// direct-permission or membership changes to tighten the staleness window.
func (s *PermissionService) Invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, permissionCacheKey(userID)); err != nil {
		slog.Warn("permission cache invalidation failed", "user_id", userID, "error", err)
	}
}

// InvalidateAll drops every cached effective set. Called after group
// permission edits, which can affect any number of members.
func (s *PermissionService) InvalidateAll(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Clear(ctx); err != nil {
		slog.Warn("permission cache clear failed", "error", err)
	}
}
