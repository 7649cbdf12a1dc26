// Copyright (c) 2025-2026 PHS Web Team
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the
// application including User, Group, Department, and the role enumeration.
package model

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/phs-web/phs-go/internal/auth"
)

// User roles. Admin is a root override: it implies every permission without
// consulting direct grants or group memberships.
const (
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// ValidRole reports whether role is a member of the role enumeration.
func ValidRole(role string) bool {
	return role == RoleTeacher || role == RoleAdmin
}

// MaxUsernameLength is the maximum accepted username length.
const MaxUsernameLength = 512

// User represents a backend user.
type User struct {
	ID           int64              `json:"id"`
	Username     string             `json:"username"`
	PasswordHash string             `json:"-"` // Never expose in JSON
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Department   sql.NullInt64      `json:"department,omitempty"`
	Role         string             `json:"role"`
	Permissions  auth.PermissionSet `json:"permissions"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidateUsername checks username constraints shared by create and update.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if len(username) > MaxUsernameLength {
		return fmt.Errorf("username exceeds %d characters", MaxUsernameLength)
	}
	return nil
}

// Group is a named bundle of permissions granted to its members.
type Group struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Permissions auth.PermissionSet `json:"permissions"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Department is an organizational unit users may belong to.
type Department struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
