// Copyright (c) 2025-2026 PHS Web Team
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request context handling.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/phs-web/phs-go/internal/auth"
	"github.com/phs-web/phs-go/internal/service"
	"github.com/phs-web/phs-go/internal/session"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyAuthUser is the context key carrying the authenticated caller.
const ContextKeyAuthUser ContextKey = "auth_user"

// AuthUser is the authorization result attached to the request context:
// who the caller is and what they may do.
type AuthUser struct {
	ID          int64
	Permissions auth.PermissionSet
}

// Authorizer gates routes on required permissions. A route left unwrapped
// requires no authentication at all.
type Authorizer struct {
	codec *session.Codec
	perms *service.PermissionService
}

// NewAuthorizer creates an Authorizer over the given session codec and
// permission service.
func NewAuthorizer(codec *session.Codec, perms *service.PermissionService) *Authorizer {
	return &Authorizer{codec: codec, perms: perms}
}

// RequireAuth creates middleware that requires a valid session but no
// particular permission.
func (a *Authorizer) RequireAuth() func(http.Handler) http.Handler {
	return a.Require()
}

// Require creates middleware that requires a valid session whose user's
// effective permission set contains every given permission.
//
// Every verification failure (missing cookie, malformed, tampered or
// expired token, session referencing a deleted user) yields 401; a resolved
// but insufficient permission set yields 403; a store outage yields 503.
// Authorization decisions are deterministic per request and never retried.
func (a *Authorizer) Require(required ...auth.Permission) func(http.Handler) http.Handler {
	requiredSet := auth.NewPermissionSet(required...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := session.FromRequest(r)
			if err != nil {
				writeUnauthenticated(w)
				return
			}

			userID, err := a.codec.Verify(token)
			if err != nil {
				// Tokens are never logged; the error kind is enough.
				slog.Debug("session verification failed", "error", err)
				writeUnauthenticated(w)
				return
			}

			effective, err := a.perms.EffectivePermissions(r.Context(), userID)
			if err != nil {
				if errors.Is(err, service.ErrUserNotFound) {
					// Stale session for a deleted user.
					writeUnauthenticated(w)
					return
				}
				slog.Error("permission resolution failed", "user_id", userID, "error", err)
				writeJSONStatus(w, http.StatusServiceUnavailable, "Authorization temporarily unavailable")
				return
			}

			if !effective.ContainsAll(requiredSet) {
				slog.Warn("access denied",
					"status", http.StatusForbidden,
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", userID,
					"required", requiredSet.String(),
				)
				writeJSONStatus(w, http.StatusForbidden, "Inadequate permissions")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyAuthUser, AuthUser{
				ID:          userID,
				Permissions: effective,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAuthUser retrieves the authenticated caller from the request context.
// Returns nil outside of Require-wrapped handlers.
func GetAuthUser(r *http.Request) *AuthUser {
	u, ok := r.Context().Value(ContextKeyAuthUser).(AuthUser)
	if !ok {
		return nil
	}
	return &u
}

// GetUserID returns the authenticated caller's id, or 0 if not found.
// Safe to use in logging where a zero value is acceptable.
func GetUserID(r *http.Request) int64 {
	if u := GetAuthUser(r); u != nil {
		return u.ID
	}
	return 0
}

func writeUnauthenticated(w http.ResponseWriter) {
	writeJSONStatus(w, http.StatusUnauthorized, "Unauthorized")
}

func writeJSONStatus(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"success":false,"error":"` + message + `"}`))
}
