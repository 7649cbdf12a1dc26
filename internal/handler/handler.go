// Copyright (c) 2025-2026 PHS Web Team
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/phs-web/phs-go/internal/middleware"
	"github.com/phs-web/phs-go/internal/service"
	"github.com/phs-web/phs-go/internal/session"
	"github.com/phs-web/phs-go/internal/store"
)

// Route path constants.
const (
	RouteLogin          = "/login"
	RouteLogout         = "/logout"
	RouteWhoami         = "/whoami"
	RouteUsers          = "/users"
	RouteUsersID        = "/users/{id}"
	RouteUsersIDPerms   = "/users/{id}/permissions"
	RouteUsersIDGroups  = "/users/{id}/groups"
	RouteChangePassword = "/users/change_password"
	RouteResetPassword  = "/users/{id}/reset_password"
	RouteGroups         = "/groups"
	RouteGroupsID       = "/groups/{id}"
	RouteDepartments    = "/departments"
	RouteDepartmentsID  = "/departments/{id}"
	RouteEvents         = "/events"
)

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	db         *sql.DB
	queries    *store.Queries
	codec      *session.Codec
	perms      *service.PermissionService
	events     *service.EventService
	protection *middleware.LoginProtection
}

// NewHandler creates a new handler with the given dependencies.
func NewHandler(db *sql.DB, codec *session.Codec, perms *service.PermissionService, protection *middleware.LoginProtection) *Handler {
	return &Handler{
		db:         db,
		queries:    store.New(db),
		codec:      codec,
		perms:      perms,
		events:     service.NewEventService(db),
		protection: protection,
	}
}

const defaultPageSize = 20

// parsePagination reads page and page_size query parameters. Pages are
// 1-based; page_size is clamped by the store.
func parsePagination(r *http.Request) (limit, offset int64) {
	page := int64(1)
	if s := r.URL.Query().Get("page"); s != "" {
		if p, err := strconv.ParseInt(s, 10, 64); err == nil && p > 0 {
			page = p
		}
	}
	size := int64(defaultPageSize)
	if s := r.URL.Query().Get("page_size"); s != "" {
		if ps, err := strconv.ParseInt(s, 10, 64); err == nil && ps > 0 {
			size = ps
		}
	}
	if size > store.MaxPageSize {
		size = store.MaxPageSize
	}
	return size, (page - 1) * size
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
