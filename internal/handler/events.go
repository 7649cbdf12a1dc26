// Copyright (c) 2025-2026 PHS Web Team
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/phs-web/phs-go/internal/model"
)

// ListEvents returns a page of audit log entries, newest first.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	events, err := h.events.ListEvents(r.Context(), limit, offset)
	if err != nil {
		slog.Error("failed to list events", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSONSuccess(w, map[string]any{"events": events})
}
