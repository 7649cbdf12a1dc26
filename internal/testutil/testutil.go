// Copyright (c) 2025-2026 PHS Web Team
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the PHS backend.
package testutil

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/phs-web/phs-go/internal/auth"
	"github.com/phs-web/phs-go/internal/store"
)

// TestLogger creates a silent test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestDB creates a temporary test database with migrations applied.
// The database file lives in t.TempDir and is removed automatically.
func TestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "phs-test.db")

	db, err := store.NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := store.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	return db
}

// CreateUser inserts a test user with the given role and direct permissions
// and returns its id. The password hash is a fixed argon2id hash of
// "changeme" to keep tests fast.
func CreateUser(t *testing.T, db *sql.DB, username, role string, perms auth.PermissionSet) int64 {
	t.Helper()

	queries := store.New(db)
	user, err := queries.CreateUser(context.Background(), store.CreateUserParams{
		Username:     username,
		PasswordHash: PasswordHashChangeme,
		Name:         username,
		Role:         role,
		Permissions:  perms,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return user.ID
}

// CreateGroup inserts a test group and returns its id.
func CreateGroup(t *testing.T, db *sql.DB, name string, perms auth.PermissionSet) int64 {
	t.Helper()

	queries := store.New(db)
	group, err := queries.CreateGroup(context.Background(), name, perms)
	if err != nil {
		t.Fatalf("CreateGroup(%s): %v", name, err)
	}
	return group.ID
}

// AddToGroup creates a test group membership.
func AddToGroup(t *testing.T, db *sql.DB, userID, groupID int64) {
	t.Helper()

	if err := store.New(db).AddUserToGroup(context.Background(), userID, groupID); err != nil {
		t.Fatalf("AddUserToGroup: %v", err)
	}
}

// PasswordHashChangeme is an argon2id hash of "changeme", computed once so
// fixture users do not pay hashing cost each.
var PasswordHashChangeme = func() string {
	hash, err := auth.HashPassword("changeme")
	if err != nil {
		panic(err)
	}
	return hash
}()
