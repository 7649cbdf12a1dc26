// Copyright (c) 2025-2026 PHS Web Team
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/phs-web/phs-go/internal/auth"
	"github.com/phs-web/phs-go/internal/middleware"
	"github.com/phs-web/phs-go/internal/model"
)

type groupRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

type groupResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toGroupResponse(g model.Group) groupResponse {
	return groupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Permissions: g.Permissions.Names(),
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

// ListGroups returns a page of permission groups.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	groups, err := h.queries.ListGroups(r.Context(), limit, offset)
	if err != nil {
		slog.Error("failed to list groups", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	resp := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		resp = append(resp, toGroupResponse(g))
	}
	writeJSONSuccess(w, map[string]any{"groups": resp})
}

// GetGroup returns a single group by ID.
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid group ID")
		return
	}
	group, err := h.queries.GetGroupByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Group not found")
		return
	}
	writeJSONSuccess(w, map[string]any{"group": toGroupResponse(group)})
}

// CreateGroup creates a new permission group.
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		writeJSONError(w, http.StatusBadRequest, "Group name is required")
		return
	}
	perms, err := auth.ParsePermissionNames(req.Permissions)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	group, err := h.queries.CreateGroup(r.Context(), req.Name, perms)
	if err != nil {
		slog.Error("failed to create group", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	slog.Info("group created", "group_id", group.ID, "name", group.Name, "by", middleware.GetUserID(r))
	_ = h.events.LogGroupEvent(r.Context(), model.EventLevelInfo, "Group created",
		middleware.GetUserID(r), middleware.ClientIP(r), map[string]any{"group_id": group.ID, "name": group.Name})
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "group": toGroupResponse(group)})
}

// UpdateGroup replaces a group's name and permission set. Any member's
// effective permissions may change, so all cached resolutions are dropped.
func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid group ID")
		return
	}
	var req groupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		writeJSONError(w, http.StatusBadRequest, "Group name is required")
		return
	}
	perms, err := auth.ParsePermissionNames(req.Permissions)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	group, err := h.queries.UpdateGroup(r.Context(), id, req.Name, perms)
	if err != nil {
		writeStoreError(w, err, "Group not found")
		return
	}
	h.perms.InvalidateAll(r.Context())
	_ = h.events.LogGroupEvent(r.Context(), model.EventLevelInfo, "Group updated",
		middleware.GetUserID(r), middleware.ClientIP(r), map[string]any{"group_id": id, "permissions": perms.String()})
	writeJSONSuccess(w, map[string]any{"group": toGroupResponse(group)})
}

// DeleteGroup removes a group and all memberships pointing at it.
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid group ID")
		return
	}
	if err := h.queries.DeleteGroup(r.Context(), id); err != nil {
		writeStoreError(w, err, "Group not found")
		return
	}
	h.perms.InvalidateAll(r.Context())
	slog.Info("group deleted", "group_id", id, "by", middleware.GetUserID(r))
	_ = h.events.LogGroupEvent(r.Context(), model.EventLevelInfo, "Group deleted",
		middleware.GetUserID(r), middleware.ClientIP(r), map[string]any{"group_id": id})
	writeJSONSuccess(w, nil)
}

// GetUserGroups lists the groups a user belongs to.
func (h *Handler) GetUserGroups(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	if _, err := h.queries.GetUserByID(r.Context(), id); err != nil {
		writeStoreError(w, err, "User not found")
		return
	}
	groups, err := h.queries.GetUserGroups(r.Context(), id)
	if err != nil {
		slog.Error("failed to list user groups", "error", err, "user_id", id)
		writeJSONError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	resp := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		resp = append(resp, toGroupResponse(g))
	}
	writeJSONSuccess(w, map[string]any{"groups": resp})
}

type membershipRequest struct {
	GroupID int64 `json:"group_id"`
}

// AddUserToGroup adds a user to a group. Adding an existing member is a
// no-op.
func (h *Handler) AddUserToGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	var req membershipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, err := h.queries.GetUserByID(r.Context(), id); err != nil {
		writeStoreError(w, err, "User not found")
		return
	}
	if _, err := h.queries.GetGroupByID(r.Context(), req.GroupID); err != nil {
		writeStoreError(w, err, "Group not found")
		return
	}
	if err := h.queries.AddUserToGroup(r.Context(), id, req.GroupID); err != nil {
		slog.Error("failed to add user to group", "error", err, "user_id", id, "group_id", req.GroupID)
		writeJSONError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	h.perms.Invalidate(r.Context(), id)
	slog.Info("user added to group", "user_id", id, "group_id", req.GroupID, "by", middleware.GetUserID(r))
	_ = h.events.LogGroupEvent(r.Context(), model.EventLevelInfo, "User added to group",
		middleware.GetUserID(r), middleware.ClientIP(r), map[string]any{"user_id": id, "group_id": req.GroupID})
	writeJSONSuccess(w, nil)
}

// RemoveUserFromGroup removes a membership.
func (h *Handler) RemoveUserFromGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	var req membershipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.queries.RemoveUserFromGroup(r.Context(), id, req.GroupID); err != nil {
		writeStoreError(w, err, "Membership not found")
		return
	}
	h.perms.Invalidate(r.Context(), id)
	slog.Info("user removed from group", "user_id", id, "group_id", req.GroupID, "by", middleware.GetUserID(r))
	_ = h.events.LogGroupEvent(r.Context(), model.EventLevelInfo, "User removed from group",
		middleware.GetUserID(r), middleware.ClientIP(r), map[string]any{"user_id": id, "group_id": req.GroupID})
	writeJSONSuccess(w, nil)
}
