// Copyright (c) 2025-2026 PHS Web Team
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"strings"
)

// Permission identifies a single capability in the fixed vocabulary.
// Ordinals are stable and append-only: new permissions may be added at the
// end, but existing values must never be removed or reordered because the
// canonical names derived from them are persisted in the database.
type Permission uint8

const (
	PermEditDepartments Permission = iota
	PermEditCategories
	PermCreatePosts
	PermEditPosts
	PermManageUsers
	PermManagePermissions
	PermManagePages

	permCount // keep last
)

var permissionNames = [permCount]string{
	PermEditDepartments:   "edit_departments",
	PermEditCategories:    "edit_categories",
	PermCreatePosts:       "create_posts",
	PermEditPosts:         "edit_posts",
	PermManageUsers:       "manage_users",
	PermManagePermissions: "manage_permissions",
	PermManagePages:       "manage_pages",
}

// String returns the canonical snake_case name of the permission.
func (p Permission) String() string {
	if p >= permCount {
		return fmt.Sprintf("permission(%d)", uint8(p))
	}
	return permissionNames[p]
}

// ParsePermission resolves a canonical name to its Permission value.
func ParsePermission(name string) (Permission, error) {
	for i, n := range permissionNames {
		if n == name {
			return Permission(i), nil
		}
	}
	return 0, fmt.Errorf("unknown permission: %q", name)
}

// PermissionSet is a bitset over the permission vocabulary indexed by
// ordinal. The zero value is the empty set.
type PermissionSet uint32

// NewPermissionSet builds a set from the given permissions. Duplicates
// collapse.
func NewPermissionSet(perms ...Permission) PermissionSet {
	var s PermissionSet
	for _, p := range perms {
		s |= 1 << p
	}
	return s
}

// AllPermissions returns the set containing the entire vocabulary.
func AllPermissions() PermissionSet {
	return 1<<permCount - 1
}

// Union returns the set containing every permission in either set.
func (s PermissionSet) Union(other PermissionSet) PermissionSet {
	return s | other
}

// Contains reports whether p is in the set.
func (s PermissionSet) Contains(p Permission) bool {
	return s&(1<<p) != 0
}

// ContainsAll reports whether every permission in required is in the set.
func (s PermissionSet) ContainsAll(required PermissionSet) bool {
	return s&required == required
}

// IsEmpty reports whether the set contains no permissions.
func (s PermissionSet) IsEmpty() bool {
	return s == 0
}

// Len returns the number of permissions in the set.
func (s PermissionSet) Len() int {
	return bits.OnesCount32(uint32(s))
}

// Permissions returns the members of the set in ordinal order.
func (s PermissionSet) Permissions() []Permission {
	perms := make([]Permission, 0, s.Len())
	for p := Permission(0); p < permCount; p++ {
		if s.Contains(p) {
			perms = append(perms, p)
		}
	}
	return perms
}

// Names returns the canonical names of the members in ordinal order.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, s.Len())
	for _, p := range s.Permissions() {
		names = append(names, p.String())
	}
	return names
}

// String returns the comma-joined canonical names in ordinal order. This is
// the representation persisted in the database, so it must remain stable.
func (s PermissionSet) String() string {
	return strings.Join(s.Names(), ",")
}

// ParsePermissionSet parses the comma-joined canonical form produced by
// String. Empty input yields the empty set. Unknown names are rejected.
func ParsePermissionSet(raw string) (PermissionSet, error) {
	var s PermissionSet
	if raw == "" {
		return s, nil
	}
	for _, name := range strings.Split(raw, ",") {
		p, err := ParsePermission(strings.TrimSpace(name))
		if err != nil {
			return 0, err
		}
		s |= 1 << p
	}
	return s, nil
}

// ParsePermissionNames builds a set from a slice of canonical names.
// Unknown names are rejected.
func ParsePermissionNames(names []string) (PermissionSet, error) {
	var s PermissionSet
	for _, name := range names {
		p, err := ParsePermission(name)
		if err != nil {
			return 0, err
		}
		s |= 1 << p
	}
	return s, nil
}

// MarshalJSON encodes the set as a JSON array of canonical names.
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, s.Len())
	for _, p := range s.Permissions() {
		names = append(names, p.String())
	}
	return json.Marshal(names)
}

// UnmarshalJSON decodes a JSON array of canonical names.
func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var set PermissionSet
	for _, name := range names {
		p, err := ParsePermission(name)
		if err != nil {
			return err
		}
		set |= 1 << p
	}
	*s = set
	return nil
}
