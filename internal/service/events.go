// Copyright (c) 2025-2026 PHS Web Team
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/phs-web/phs-go/internal/model"
	"github.com/phs-web/phs-go/internal/store"
)

// EventService writes audit log entries. Logging failures are reported but
// never fail the calling operation.
type EventService struct {
	queries *store.Queries
}

// NewEventService creates a new event service.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{
		queries: store.New(db),
	}
}

// LogEvent creates a new audit log entry. A zero userID means the event has
// no associated account.
func (s *EventService) LogEvent(ctx context.Context, level, category, message string, userID int64, ipAddress string, metadata map[string]any) error {
	metadataJSON := "{}"
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    userID,
		Metadata:  metadataJSON,
		IPAddress: ipAddress,
	})
	if err != nil {
		slog.Error("failed to write audit event", "error", err, "category", category)
	}
	return err
}

// LogAuthEvent logs an authentication event.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message string, userID int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryAuth, message, userID, ipAddress, metadata)
}

// LogUserEvent logs a user management event.
func (s *EventService) LogUserEvent(ctx context.Context, level, message string, userID int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryUser, message, userID, ipAddress, metadata)
}

// LogGroupEvent logs a group management event.
func (s *EventService) LogGroupEvent(ctx context.Context, level, message string, userID int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryGroup, message, userID, ipAddress, metadata)
}

// LogSystemEvent logs a system event.
func (s *EventService) LogSystemEvent(ctx context.Context, level, message string, userID int64, ipAddress string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategorySystem, message, userID, ipAddress, metadata)
}

// ListEvents returns audit log entries, newest first.
func (s *EventService) ListEvents(ctx context.Context, limit, offset int64) ([]model.Event, error) {
	return s.queries.ListEvents(ctx, limit, offset)
}

// DeleteOldEvents removes audit entries older than the given age.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.queries.DeleteEventsBefore(ctx, time.Now().UTC().Add(-olderThan))
}
