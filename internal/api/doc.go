// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

/*
Package api is the HTTP transport of the personalization engine.

It is a thin adapter: handlers parse parameters, call the serving layer,
the bulk aggregator, the interaction recorder or the training coordinator,
and wrap the result in a standard envelope.

Endpoints:

	GET  /api/v1/recommendations/{targetType}  ranked page for one target type
	GET  /api/v1/recommendations/bulk          recommended, hot, endingSoon and newest slices
	POST /api/v1/interactions                  record one interaction event (202)
	POST /api/v1/training/{model}              start collaborative or content training
	GET  /api/v1/training/status               trainer state
	GET  /health/live, /health/ready           Kubernetes probes
	GET  /metrics                              Prometheus scrape endpoint

Envelope:

	{"success": true, "data": {...}, "meta": {"requestId": "...", "timestamp": "...", "durationMs": 3}}
	{"success": false, "error": {"code": "VALIDATION_ERROR", "message": "...", "field": "limit"}}

Only malformed input produces an error response from the recommendation
endpoints. Model, catalog and timeout problems are answered with a fallback
list whose metadata.isRecommendationBased is false and whose
metadata.reasonCode names the cause.

Middleware (go-chi): request IDs propagated to zerolog, real client IP,
panic recovery, CORS, per-IP rate limiting via httprate, and Prometheus
request metrics by route pattern.
*/
package api
