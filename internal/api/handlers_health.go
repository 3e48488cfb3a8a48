// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package api

import (
	"context"
	"net/http"
	"time"
)

// readinessTimeout bounds all readiness checks of one probe.
const readinessTimeout = 2 * time.Second

// HealthLive handles liveness probe requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
//
// @Summary Kubernetes liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} APIResponse "Service is alive"
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style).
// It returns 503 while any dependency check fails. A missing model is not
// a readiness failure: queries are answered by the popularity fallback.
//
// @Summary Kubernetes readiness probe
// @Tags Health
// @Produce json
// @Success 200 {object} APIResponse "Service is ready"
// @Failure 503 {object} APIResponse "Service is not ready"
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	ready := true
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			checks[c.Name] = err.Error()
			ready = false
			continue
		}
		checks[c.Name] = "ok"
	}

	data := map[string]interface{}{
		"ready":  ready,
		"checks": checks,
		"uptime": time.Since(h.startTime).Seconds(),
	}

	rw := NewResponseWriter(w, r)
	if !ready {
		rw.writeJSON(http.StatusServiceUnavailable, APIResponse{
			Success: false,
			Data:    data,
			Error: &APIError{
				Code:    ErrCodeServiceUnavailable,
				Message: "service not ready",
			},
			Meta: rw.meta(),
		})
		return
	}
	rw.Success(data)
}
