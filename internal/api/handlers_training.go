// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/logging"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/model"
)

// TriggerResponse reports whether a trigger started a run.
type TriggerResponse struct {
	Model   string `json:"model"`
	Started bool   `json:"started"`
}

// TriggerTraining starts a training run for the model named in the path.
// A run already in progress makes the call a no-op answered with 200 and
// started=false.
//
// @Summary Trigger training
// @Tags Training
// @Produce json
// @Param model path string true "collaborative or content"
// @Success 202 {object} APIResponse{data=TriggerResponse} "Run started"
// @Success 200 {object} APIResponse{data=TriggerResponse} "Run already in progress"
// @Failure 400 {object} APIResponse "Unknown model"
// @Router /api/v1/training/{model} [post]
func (h *Handler) TriggerTraining(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	name := chi.URLParam(r, "model")

	var started bool
	switch name {
	case model.TypeCollaborative:
		started = h.training.StartCollaborativeTraining(r.Context())
	case model.TypeContent:
		started = h.training.StartContentTraining(r.Context())
	default:
		rw.ValidationError(recommend.NewValidationError("model", "model must be one of: collaborative content"))
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("model", name).
		Bool("started", started).
		Msg("training trigger received")

	resp := TriggerResponse{Model: name, Started: started}
	if started {
		rw.Accepted(resp)
		return
	}
	rw.Success(resp)
}

// TrainingStatus returns the state of both trainers.
//
// @Summary Training status
// @Tags Training
// @Produce json
// @Success 200 {object} APIResponse{data=training.Status}
// @Router /api/v1/training/status [get]
func (h *Handler) TrainingStatus(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.training.Status())
}
