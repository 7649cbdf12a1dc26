// Copyright (c) 2025-2026 PHS Web Team
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/phs-web/phs-go/internal/model"
	"github.com/phs-web/phs-go/internal/store"
	"github.com/phs-web/phs-go/internal/testutil"
)

// discardHandler is a slog.Handler that discards all logs.
type discardHandler struct{}

func (h discardHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h discardHandler) WithGroup(string) slog.Handler             { return h }

func TestEventLogHandler_MirrorsErrors(t *testing.T) {
	db := testutil.TestDB(t)

	logger := slog.New(NewEventLogHandler(discardHandler{}, db))
	logger.Error("database connection failed", "host", "localhost")

	events, err := store.New(db).ListEvents(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Level != model.EventLevelError {
		t.Errorf("Level = %q, want %q", events[0].Level, model.EventLevelError)
	}
	if events[0].Message != "database connection failed" {
		t.Errorf("Message = %q", events[0].Message)
	}

	var meta map[string]string
	if err := json.Unmarshal([]byte(events[0].Metadata), &meta); err != nil {
		t.Fatalf("metadata is not valid JSON: %v", err)
	}
	if meta["host"] != "localhost" {
		t.Errorf("metadata host = %q, want localhost", meta["host"])
	}
}

func TestEventLogHandler_SkipsInfo(t *testing.T) {
	db := testutil.TestDB(t)

	logger := slog.New(NewEventLogHandler(discardHandler{}, db))
	logger.Info("routine operation")

	events, err := store.New(db).ListEvents(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestEventLogHandler_CustomLevel(t *testing.T) {
	db := testutil.TestDB(t)

	logger := slog.New(NewEventLogHandlerWithLevel(discardHandler{}, db, slog.LevelInfo))
	logger.Info("user logged in", "user_id", 7)

	events, err := store.New(db).ListEvents(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Category != model.EventCategoryAuth {
		t.Errorf("Category = %q, want %q", events[0].Category, model.EventCategoryAuth)
	}
}

func TestExtractCategory(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"login attempt for unknown user", model.EventCategoryAuth},
		{"user logged in", model.EventCategoryAuth},
		{"access denied", model.EventCategoryAuth},
		{"group deleted", model.EventCategoryGroup},
		{"user permissions updated", model.EventCategoryUser},
		{"department created", model.EventCategoryDepartment},
		{"disk almost full", model.EventCategorySystem},
	}
	for _, tt := range tests {
		var r slog.Record
		r.Message = tt.message
		if got := extractCategory(r); got != tt.want {
			t.Errorf("extractCategory(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestExtractCategory_ExplicitAttribute(t *testing.T) {
	var r slog.Record
	r.Message = "something happened"
	r.AddAttrs(slog.String("category", model.EventCategoryGroup))
	if got := extractCategory(r); got != model.EventCategoryGroup {
		t.Errorf("extractCategory = %q, want %q", got, model.EventCategoryGroup)
	}
}
