// Copyright (c) 2025-2026 PHS Web Team
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/phs-web/phs-go/internal/auth"
	"github.com/phs-web/phs-go/internal/middleware"
	"github.com/phs-web/phs-go/internal/model"
	"github.com/phs-web/phs-go/internal/store"
)

type createUserRequest struct {
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Department  *int64   `json:"department"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

type updateUserRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Department  *int64 `json:"department"`
	Role        string `json:"role"`
}

// ListUsers returns a page of users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	users, err := h.queries.ListUsers(r.Context(), limit, offset)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	writeJSONSuccess(w, map[string]any{"users": resp})
}

// GetUser returns a single user by ID.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	user, err := h.queries.GetUserByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "User not found")
		return
	}
	writeJSONSuccess(w, map[string]any{"user": toUserResponse(user)})
}

// CreateUser creates a new user account.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := model.ValidateUsername(req.Username); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "Password is required")
		return
	}
	if req.Role == "" {
		req.Role = model.RoleTeacher
	}
	if !model.ValidRole(req.Role) {
		writeJSONError(w, http.StatusBadRequest, "Invalid role")
		return
	}
	perms, err := auth.ParsePermissionNames(req.Permissions)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.queries.GetUserByUsername(r.Context(), req.Username); err == nil {
		writeJSONError(w, http.StatusConflict, "Username already taken")
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		slog.Error("failed to check username uniqueness", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}

	department, ok := h.resolveDepartment(w, r, req.Department)
	if !ok {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}

	user, err := h.queries.CreateUser(r.Context(), store.CreateUserParams{
		Username:     req.Username,
		PasswordHash: hash,
		Name:         req.Name,
		Description:  req.Description,
		Department:   department,
		Role:         req.Role,
		Permissions:  perms,
	})
	if err != nil {
		slog.Error("failed to create user", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}

	slog.Info("user created", "user_id", user.ID, "username", user.Username, "by", middleware.GetUserID(r))
	_ = h.events.LogUserEvent(r.Context(), model.EventLevelInfo, "User created",
		middleware.GetUserID(r), middleware.ClientIP(r), map[string]any{"created_id": user.ID, "username": user.Username})
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "user": toUserResponse(user)})
}

// UpdateUser updates profile fields and role.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !model.ValidRole(req.Role) {
		writeJSONError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	department, ok := h.resolveDepartment(w, r, req.Department)
	if !ok {
		return
	}

	user, err := h.queries.UpdateUser(r.Context(), store.UpdateUserParams{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Department:  department,
		Role:        req.Role,
	})
	if err != nil {
		writeStoreError(w, err, "User not found")
		return
	}

	// Role changes alter the effective permission set.
	h.perms.Invalidate(r.Context(), id)
	writeJSONSuccess(w, map[string]any{"user": toUserResponse(user)})
}

// DeleteUser removes a user account.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	if id == middleware.GetUserID(r) {
		writeJSONError(w, http.StatusBadRequest, "Cannot delete your own account")
		return
	}
	if err := h.queries.DeleteUser(r.Context(), id); err != nil {
		writeStoreError(w, err, "User not found")
		return
	}
	h.perms.Invalidate(r.Context(), id)
	slog.Info("user deleted", "user_id", id, "by", middleware.GetUserID(r))
	_ = h.events.LogUserEvent(r.Context(), model.EventLevelInfo, "User deleted",
		middleware.GetUserID(r), middleware.ClientIP(r), map[string]any{"deleted_id": id})
	writeJSONSuccess(w, nil)
}

type updatePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// UpdateUserPermissions replaces a user's direct permission set.
func (h *Handler) UpdateUserPermissions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	var req updatePermissionsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	perms, err := auth.ParsePermissionNames(req.Permissions)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.queries.UpdateUserPermissions(r.Context(), id, perms); err != nil {
		writeStoreError(w, err, "User not found")
		return
	}
	h.perms.Invalidate(r.Context(), id)
	slog.Info("user permissions updated", "user_id", id, "by", middleware.GetUserID(r))
	_ = h.events.LogUserEvent(r.Context(), model.EventLevelInfo, "User permissions updated",
		middleware.GetUserID(r), middleware.ClientIP(r), map[string]any{"target_id": id, "permissions": perms.String()})
	writeJSONSuccess(w, nil)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword lets the authenticated user change their own password
// after proving knowledge of the current one.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == 0 {
		writeJSONError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.NewPassword == "" {
		writeJSONError(w, http.StatusBadRequest, "New password is required")
		return
	}

	user, err := h.queries.GetUserByID(r.Context(), userID)
	if err != nil {
		writeStoreError(w, err, "User not found")
		return
	}
	valid, err := auth.CheckPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil || !valid {
		writeJSONError(w, http.StatusForbidden, "Current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	if err := h.queries.UpdateUserPassword(r.Context(), userID, hash); err != nil {
		writeStoreError(w, err, "User not found")
		return
	}
	slog.Info("password changed", "user_id", userID)
	writeJSONSuccess(w, nil)
}

// ResetPassword sets a random temporary password on the target account and
// returns it once in the response.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	tempPassword := uuid.NewString()
	hash, err := auth.HashPassword(tempPassword)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	if err := h.queries.UpdateUserPassword(r.Context(), id, hash); err != nil {
		writeStoreError(w, err, "User not found")
		return
	}
	slog.Info("password reset", "user_id", id, "by", middleware.GetUserID(r))
	_ = h.events.LogUserEvent(r.Context(), model.EventLevelInfo, "Password reset",
		middleware.GetUserID(r), middleware.ClientIP(r), map[string]any{"target_id": id})
	writeJSONSuccess(w, map[string]any{"temporary_password": tempPassword})
}

// resolveDepartment validates that a referenced department exists. A nil
// reference is allowed and maps to NULL.
func (h *Handler) resolveDepartment(w http.ResponseWriter, r *http.Request, ref *int64) (sql.NullInt64, bool) {
	if ref == nil {
		return sql.NullInt64{}, true
	}
	if _, err := h.queries.GetDepartmentByID(r.Context(), *ref); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusBadRequest, "Department does not exist")
		} else {
			slog.Error("failed to look up department", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "An unexpected error occurred")
		}
		return sql.NullInt64{}, false
	}
	return sql.NullInt64{Int64: *ref, Valid: true}, true
}
