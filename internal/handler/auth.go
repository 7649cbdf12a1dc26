// Copyright (c) 2025-2026 PHS Web Team
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phs-web/phs-go/internal/auth"
	"github.com/phs-web/phs-go/internal/middleware"
	"github.com/phs-web/phs-go/internal/model"
)

// dummyHash is verified against when the username does not exist, so that
// login latency does not reveal whether an account is present.
const dummyHash = "$argon2id$v=19$m=19456,t=2,p=1$AAAAAAAAAAAAAAAAAAAAAA$RVhQ9CD1XlBDJhJjqw0L7JrQl3bqO7a1mBz1u0rKnN0"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// userResponse is the JSON shape for a user. Password hashes never leave
// the store layer.
type userResponse struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Department  *int64    `json:"department"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toUserResponse(u model.User) userResponse {
	resp := userResponse{
		ID:          u.ID,
		Username:    u.Username,
		Name:        u.Name,
		Description: u.Description,
		Role:        u.Role,
		Permissions: u.Permissions.Names(),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	if u.Department.Valid {
		resp.Department = &u.Department.Int64
	}
	return resp
}

// Login authenticates a user and issues a session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	if h.protection != nil {
		if locked, remaining := h.protection.IsAccountLocked(req.Username); locked {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(remaining.Seconds())+1))
			writeJSONError(w, http.StatusTooManyRequests, "Too many failed attempts, try again later")
			return
		}
	}

	user, err := h.queries.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Debug("login attempt for unknown user", "username", req.Username)
			// Burn the same hashing cost as a real check.
			_, _ = auth.CheckPassword(req.Password, dummyHash)
			_ = h.events.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login failed: user not found",
				0, middleware.ClientIP(r), map[string]any{"username": req.Username})
		} else {
			slog.Error("database error during login", "error", err)
		}
		h.recordLoginFailure(w, r, req.Username)
		return
	}

	valid, err := auth.CheckPassword(req.Password, user.PasswordHash)
	if err != nil {
		slog.Error("password check error", "error", err, "user_id", user.ID)
		writeJSONError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if !valid {
		slog.Debug("invalid password attempt", "username", req.Username)
		_ = h.events.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login failed: invalid password",
			user.ID, middleware.ClientIP(r), nil)
		h.recordLoginFailure(w, r, req.Username)
		return
	}

	if h.protection != nil {
		h.protection.RecordSuccessfulLogin(req.Username)
	}

	// Re-hash if the stored hash uses outdated parameters.
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(req.Password); err == nil {
			if err := h.queries.UpdateUserPassword(r.Context(), user.ID, newHash); err != nil {
				slog.Warn("failed to update rehashed password", "error", err, "user_id", user.ID)
			}
		}
	}

	h.codec.SetCookie(w, user.ID)
	slog.Info("user logged in", "user_id", user.ID, "username", user.Username)
	_ = h.events.LogAuthEvent(r.Context(), model.EventLevelInfo, "Login successful",
		user.ID, middleware.ClientIP(r), nil)
	writeJSONSuccess(w, map[string]any{"user": toUserResponse(user)})
}

// recordLoginFailure notes the failed attempt and answers with the same
// message regardless of whether the account exists.
func (h *Handler) recordLoginFailure(w http.ResponseWriter, r *http.Request, username string) {
	if h.protection != nil {
		if locked, lockDuration := h.protection.RecordFailedAttempt(username); locked {
			_ = h.events.LogAuthEvent(r.Context(), model.EventLevelWarning, "Account locked due to failed attempts",
				0, middleware.ClientIP(r), map[string]any{"username": username, "duration": lockDuration.String()})
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(lockDuration.Seconds())+1))
			writeJSONError(w, http.StatusTooManyRequests, "Too many failed attempts, try again later")
			return
		}
	}
	writeJSONError(w, http.StatusUnauthorized, "Invalid username or password")
}

// Logout clears the session cookie. Always succeeds, even without a session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.codec.ClearCookie(w)
	writeJSONSuccess(w, nil)
}

// Whoami returns the authenticated user along with the effective permission
// set resolved for this request.
func (h *Handler) Whoami(w http.ResponseWriter, r *http.Request) {
	authUser := middleware.GetAuthUser(r)
	if authUser == nil {
		writeJSONError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	user, err := h.queries.GetUserByID(r.Context(), authUser.ID)
	if err != nil {
		writeStoreError(w, err, "User not found")
		return
	}

	writeJSONSuccess(w, map[string]any{
		"user":                  toUserResponse(user),
		"effective_permissions": authUser.Permissions.Names(),
	})
}
