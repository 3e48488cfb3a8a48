// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package api

import (
	"net/http"
)

// RecordInteraction accepts one interaction event from an action-originating
// controller. The event is persisted asynchronously, so 202 does not mean
// it has been stored: repeats and events about unknown entities are
// dropped later.
//
// @Summary Record an interaction
// @Tags Interactions
// @Accept json
// @Produce json
// @Success 202 {object} APIResponse "Event accepted"
// @Failure 400 {object} APIResponse "Malformed event"
// @Router /api/v1/interactions [post]
func (h *Handler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	event, err := decodeInteraction(w, r)
	if err != nil {
		rw.FromError(err)
		return
	}

	if err := h.recorder.Record(r.Context(), event); err != nil {
		rw.FromError(err)
		return
	}
	rw.Accepted(map[string]bool{"accepted": true})
}
