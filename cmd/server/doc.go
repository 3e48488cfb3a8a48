// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

/*
Package main is the entry point of the personalization engine server.

The server ranks products, posts, shops and users for every actor of the
storefront by blending a collaborative model (implicit-feedback matrix
factorization trained from recorded interactions) with a content model
(TF-IDF vectors over catalog text), then adjusting for context and
trending.

# Application Architecture

Startup happens in this order:

 1. Configuration: defaults, optional YAML file, environment (Koanf v2)
 2. Logging: zerolog, JSON or console
 3. Catalog: DuckDB or in-memory, behind a circuit breaker, optionally seeded
 4. Interaction log: BadgerDB with the asynchronous recorder in front
 5. Models: snapshots restored from MODEL_DIR into the registry
 6. Serving: engine, result cache (memory or Redis) and bulk aggregator
 7. Analytics: Watermill publisher (NATS JetStream or gochannel) and the
    impression feedback consumer
 8. HTTP: chi router with CORS, rate limits and Prometheus metrics

# Supervisor Tree

Long-running components run under a suture tree:

	personalization
	├── data-layer
	│   ├── interaction-recorder
	│   └── event-log-gc
	├── messaging-layer
	│   ├── analytics-emitter
	│   └── impression-feedback
	├── training-layer
	│   ├── collaborative-training-scheduler
	│   └── content-training-scheduler
	└── api-layer
	    └── http-server

A failing service is restarted with backoff without affecting its
siblings. Training schedules are absent when TRAINING_SCHEDULE_ENABLED is
false; training can then be triggered through POST /api/v1/training.

# Signal Handling

The server handles graceful shutdown on SIGINT and SIGTERM:

 1. Stops accepting new HTTP connections and waits for in-flight requests
 2. Drains the interaction recorder into the log
 3. Stops the analytics emitter and feedback consumer
 4. Closes the result cache, interaction log and catalog
 5. Reports any services that failed to stop

# Usage Examples

Development with an in-memory catalog:

	export ENVIRONMENT=development
	export CATALOG_BACKEND=memory CATALOG_SEED_FILE=./cmd/server/testdata/catalog.json
	export EVENT_LOG_PATH=/tmp/events MODEL_DIR=/tmp/models
	go run ./cmd/server

Production with NATS and Redis:

	export NATS_URL=nats://nats:4222 ANALYTICS_TRANSPORT=nats
	export CACHE_BACKEND=redis REDIS_ADDR=redis:6379
	export CORS_ORIGINS=https://shop.example.com
	./personalization

# See Also

  - internal/config: Configuration management
  - internal/recommend: Scoring, models and training
  - internal/api: HTTP handlers and routing
  - internal/supervisor: Process supervision
*/
package main
