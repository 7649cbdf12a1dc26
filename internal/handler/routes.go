// Copyright (c) 2025-2026 PHS Web Team
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/phs-web/phs-go/internal/auth"
	"github.com/phs-web/phs-go/internal/middleware"
)

// Routes builds the API route table. Every route except login and logout
// sits behind the authorizer.
func (h *Handler) Routes(authz *middleware.Authorizer) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		if h.protection != nil {
			r.Use(h.protection.Middleware())
		}
		r.Post(RouteLogin, h.Login)
	})
	r.Post(RouteLogout, h.Logout)
	r.With(authz.RequireAuth()).Get(RouteWhoami, h.Whoami)
	r.With(authz.RequireAuth()).Post(RouteChangePassword, h.ChangePassword)

	r.Group(func(r chi.Router) {
		r.Use(authz.Require(auth.PermManageUsers))
		r.Get(RouteUsers, h.ListUsers)
		r.Post(RouteUsers, h.CreateUser)
		r.Get(RouteUsersID, h.GetUser)
		r.Put(RouteUsersID, h.UpdateUser)
		r.Delete(RouteUsersID, h.DeleteUser)
		r.Post(RouteResetPassword, h.ResetPassword)
	})

	r.With(authz.Require(auth.PermManagePermissions)).Put(RouteUsersIDPerms, h.UpdateUserPermissions)

	r.Group(func(r chi.Router) {
		r.Use(authz.Require(auth.PermManagePermissions))
		r.Get(RouteGroups, h.ListGroups)
		r.Post(RouteGroups, h.CreateGroup)
		r.Get(RouteGroupsID, h.GetGroup)
		r.Put(RouteGroupsID, h.UpdateGroup)
		r.Delete(RouteGroupsID, h.DeleteGroup)
	})

	// Membership moves permissions between users, so it needs both grants.
	r.Group(func(r chi.Router) {
		r.Use(authz.Require(auth.PermManagePermissions, auth.PermManageUsers))
		r.Get(RouteUsersIDGroups, h.GetUserGroups)
		r.Post(RouteUsersIDGroups, h.AddUserToGroup)
		r.Delete(RouteUsersIDGroups, h.RemoveUserFromGroup)
	})

	r.With(authz.Require(auth.PermManageUsers)).Get(RouteEvents, h.ListEvents)

	r.With(authz.RequireAuth()).Get(RouteDepartments, h.ListDepartments)
	r.Group(func(r chi.Router) {
		r.Use(authz.Require(auth.PermEditDepartments))
		r.Post(RouteDepartments, h.CreateDepartment)
		r.Put(RouteDepartmentsID, h.UpdateDepartment)
		r.Delete(RouteDepartmentsID, h.DeleteDepartment)
	})

	return r
}
