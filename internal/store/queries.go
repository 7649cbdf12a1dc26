// Copyright (c) 2025-2026 PHS Web Team
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/phs-web/phs-go/internal/auth"
	"github.com/phs-web/phs-go/internal/model"
)

// MaxPageSize caps the page size of list queries.
const MaxPageSize = 100

// Queries wraps a database handle with the query methods used by services
// and handlers. All methods surface sql.ErrNoRows for missing rows so
// callers can translate it with errors.Is.
type Queries struct {
	db *sql.DB
}

// New creates a Queries instance for the given database.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

const userColumns = `id, username, password_hash, name, description, department, role, permissions, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	var perms string
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.Description,
		&u.Department, &u.Role, &perms, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.Permissions, err = auth.ParsePermissionSet(perms)
	if err != nil {
		return model.User{}, fmt.Errorf("user %d has corrupt permissions: %w", u.ID, err)
	}
	return u, nil
}

// GetUserByID fetches a user by primary key.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByUsername fetches a user by unique username.
func (q *Queries) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// ListUsers returns a page of users ordered by id.
func (q *Queries) ListUsers(ctx context.Context, limit, offset int64) ([]model.User, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateUserParams holds the fields for CreateUser.
type CreateUserParams struct {
	Username     string
	PasswordHash string
	Name         string
	Description  string
	Department   sql.NullInt64
	Role         string
	Permissions  auth.PermissionSet
}

// CreateUser inserts a new user and returns the created row.
func (q *Queries) CreateUser(ctx context.Context, p CreateUserParams) (model.User, error) {
	now := time.Now().UTC()
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, name, description, department, role, permissions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Username, p.PasswordHash, p.Name, p.Description, p.Department, p.Role, p.Permissions.String(), now, now)
	if err != nil {
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return q.GetUserByID(ctx, id)
}

// UpdateUserParams holds the profile fields for UpdateUser.
type UpdateUserParams struct {
	ID          int64
	Name        string
	Description string
	Department  sql.NullInt64
	Role        string
}

// UpdateUser updates profile fields and role of a user.
func (q *Queries) UpdateUser(ctx context.Context, p UpdateUserParams) (model.User, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE users SET name = ?, description = ?, department = ?, role = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Description, p.Department, p.Role, time.Now().UTC(), p.ID)
	if err != nil {
		return model.User{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.User{}, sql.ErrNoRows
	}
	return q.GetUserByID(ctx, p.ID)
}

// UpdateUserPermissions replaces a user's direct permission set.
func (q *Queries) UpdateUserPermissions(ctx context.Context, id int64, perms auth.PermissionSet) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE users SET permissions = ?, updated_at = ? WHERE id = ?`,
		perms.String(), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateUserPassword replaces a user's password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteUser removes a user. Group memberships are pruned by the cascading
// foreign key on users_groups.
func (q *Queries) DeleteUser(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const groupColumns = `id, name, permissions, created_at, updated_at`

func scanGroup(row interface{ Scan(...any) error }) (model.Group, error) {
	var g model.Group
	var perms string
	err := row.Scan(&g.ID, &g.Name, &perms, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return model.Group{}, err
	}
	g.Permissions, err = auth.ParsePermissionSet(perms)
	if err != nil {
		return model.Group{}, fmt.Errorf("group %d has corrupt permissions: %w", g.ID, err)
	}
	return g, nil
}

// GetGroupByID fetches a group by primary key.
func (q *Queries) GetGroupByID(ctx context.Context, id int64) (model.Group, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = ?`, id)
	return scanGroup(row)
}

// ListGroups returns a page of groups ordered by id.
func (q *Queries) ListGroups(ctx context.Context, limit, offset int64) ([]model.Group, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM groups ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var groups []model.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// CreateGroup inserts a new group and returns the created row.
func (q *Queries) CreateGroup(ctx context.Context, name string, perms auth.PermissionSet) (model.Group, error) {
	now := time.Now().UTC()
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO groups (name, permissions, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		name, perms.String(), now, now)
	if err != nil {
		return model.Group{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Group{}, err
	}
	return q.GetGroupByID(ctx, id)
}

// UpdateGroup replaces a group's name and permission set.
func (q *Queries) UpdateGroup(ctx context.Context, id int64, name string, perms auth.PermissionSet) (model.Group, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE groups SET name = ?, permissions = ?, updated_at = ? WHERE id = ?`,
		name, perms.String(), time.Now().UTC(), id)
	if err != nil {
		return model.Group{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.Group{}, sql.ErrNoRows
	}
	return q.GetGroupByID(ctx, id)
}

// DeleteGroup removes a group. Memberships are pruned by the cascading
// foreign key on users_groups.
func (q *Queries) DeleteGroup(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetUserGroups returns the groups the user belongs to, including their
// permission sets.
func (q *Queries) GetUserGroups(ctx context.Context, userID int64) ([]model.Group, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.permissions, g.created_at, g.updated_at
		FROM groups g
		JOIN users_groups ug ON ug.group_id = g.id
		WHERE ug.user_id = ?
		ORDER BY g.id`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var groups []model.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// AddUserToGroup creates a membership. Adding an existing membership is a
// no-op.
func (q *Queries) AddUserToGroup(ctx context.Context, userID, groupID int64) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users_groups (user_id, group_id) VALUES (?, ?)`,
		userID, groupID)
	return err
}

// RemoveUserFromGroup deletes a membership.
func (q *Queries) RemoveUserFromGroup(ctx context.Context, userID, groupID int64) error {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM users_groups WHERE user_id = ? AND group_id = ?`, userID, groupID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetDepartmentByID fetches a department by primary key.
func (q *Queries) GetDepartmentByID(ctx context.Context, id int64) (model.Department, error) {
	var d model.Department
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name FROM departments WHERE id = ?`, id).Scan(&d.ID, &d.Name)
	return d, err
}

// ListDepartments returns all departments ordered by name.
func (q *Queries) ListDepartments(ctx context.Context) ([]model.Department, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, name FROM departments ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var departments []model.Department
	for rows.Next() {
		var d model.Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}

// CreateDepartment inserts a new department.
func (q *Queries) CreateDepartment(ctx context.Context, name string) (model.Department, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO departments (name) VALUES (?)`, name)
	if err != nil {
		return model.Department{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Department{}, err
	}
	return model.Department{ID: id, Name: name}, nil
}

// UpdateDepartment renames a department.
func (q *Queries) UpdateDepartment(ctx context.Context, id int64, name string) (model.Department, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE departments SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return model.Department{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.Department{}, sql.ErrNoRows
	}
	return model.Department{ID: id, Name: name}, nil
}

// DeleteDepartment removes a department. Users referencing it keep existing
// with a nulled-out department (ON DELETE SET NULL).
func (q *Queries) DeleteDepartment(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM departments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
