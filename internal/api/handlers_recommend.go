// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/logging"
)

// Recommendations returns one ranked page for a target type.
//
// @Summary Get recommendations
// @Description Returns a ranked page of items. Anonymous callers and actors with little history get a popularity fallback, flagged by metadata.isRecommendationBased=false.
// @Tags Recommendations
// @Produce json
// @Param targetType path string true "product, post, shop or flash_sale"
// @Param actorId query string false "Querying actor"
// @Param actorType query string false "user (default) or shop"
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 20)"
// @Param sortBy query string false "recommended, popular, hot, ending_soon, newest or similar"
// @Param similarTo query string false "Seed item for more-like-this"
// @Param excludeIds query string false "Comma-separated item IDs to exclude"
// @Param category query string false "Category path prefix, e.g. electronics/laptop"
// @Param hashtag query string false "Hashtag filter"
// @Param ownerId query string false "Owning shop filter"
// @Success 200 {object} APIResponse{data=RecommendationData}
// @Failure 400 {object} APIResponse "Invalid parameters"
// @Router /api/v1/recommendations/{targetType} [get]
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	q, err := parseQuery(r, chi.URLParam(r, "targetType"))
	if err != nil {
		rw.FromError(err)
		return
	}

	ctx := r.Context()
	if q.ActorID != "" {
		ctx = logging.ContextWithActorID(ctx, q.ActorID)
	}

	res, err := h.recommender.Query(ctx, q)
	if err != nil {
		rw.FromError(err)
		return
	}
	rw.Success(newRecommendationData(res))
}

// BulkRecommendations returns the recommended, hot, ending-soon and newest
// slices in one response.
//
// @Summary Get home-screen slices
// @Tags Recommendations
// @Produce json
// @Param targetType query string true "product, post, shop or flash_sale"
// @Param actorId query string false "Querying actor"
// @Param actorType query string false "user (default) or shop"
// @Param limit query int false "Page size of every slice"
// @Success 200 {object} APIResponse{data=bulk.Response}
// @Failure 400 {object} APIResponse "Invalid parameters"
// @Router /api/v1/recommendations/bulk [get]
func (h *Handler) BulkRecommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req, err := parseBulkRequest(r)
	if err != nil {
		rw.FromError(err)
		return
	}

	ctx := r.Context()
	if req.ActorID != "" {
		ctx = logging.ContextWithActorID(ctx, req.ActorID)
	}

	resp, err := h.bulk.Aggregate(ctx, req)
	if err != nil {
		rw.FromError(err)
		return
	}
	rw.Success(resp)
}
