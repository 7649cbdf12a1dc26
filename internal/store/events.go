// Copyright (c) 2025-2026 PHS Web Team
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/phs-web/phs-go/internal/model"
)

type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	UserID    int64 // Zero means no associated user
	Metadata  string
	IPAddress string
}

// CreateEvent inserts an audit log entry.
func (q *Queries) CreateEvent(ctx context.Context, p CreateEventParams) error {
	var userID any
	if p.UserID != 0 {
		userID = p.UserID
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO events (level, category, message, user_id, metadata, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Level, p.Category, p.Message, userID, p.Metadata, p.IPAddress, time.Now().UTC())
	return err
}

// ListEvents returns audit log entries, newest first.
func (q *Queries) ListEvents(ctx context.Context, limit, offset int64) ([]model.Event, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, level, category, message, user_id, metadata, ip_address, created_at
		FROM events ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message,
			&e.UserID, &e.Metadata, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteEventsBefore removes audit log entries older than the cutoff and
// returns how many were deleted.
func (q *Queries) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
