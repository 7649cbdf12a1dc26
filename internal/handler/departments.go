// Copyright (c) 2025-2026 PHS Web Team
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/phs-web/phs-go/internal/middleware"
)

type departmentRequest struct {
	Name string `json:"name"`
}

// ListDepartments returns all departments.
func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.queries.ListDepartments(r.Context())
	if err != nil {
		slog.Error("failed to list departments", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	writeJSONSuccess(w, map[string]any{"departments": departments})
}

// CreateDepartment creates a new department.
func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req departmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		writeJSONError(w, http.StatusBadRequest, "Department name is required")
		return
	}
	department, err := h.queries.CreateDepartment(r.Context(), req.Name)
	if err != nil {
		slog.Error("failed to create department", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	slog.Info("department created", "department_id", department.ID, "by", middleware.GetUserID(r))
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "department": department})
}

// UpdateDepartment renames a department.
func (h *Handler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid department ID")
		return
	}
	var req departmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		writeJSONError(w, http.StatusBadRequest, "Department name is required")
		return
	}
	department, err := h.queries.UpdateDepartment(r.Context(), id, req.Name)
	if err != nil {
		writeStoreError(w, err, "Department not found")
		return
	}
	writeJSONSuccess(w, map[string]any{"department": department})
}

// DeleteDepartment removes a department. Users referencing it keep their
// account with the reference cleared.
func (h *Handler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid department ID")
		return
	}
	if err := h.queries.DeleteDepartment(r.Context(), id); err != nil {
		writeStoreError(w, err, "Department not found")
		return
	}
	slog.Info("department deleted", "department_id", id, "by", middleware.GetUserID(r))
	writeJSONSuccess(w, nil)
}
