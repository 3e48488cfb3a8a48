// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

/*
Package config loads the personalization engine configuration.

Configuration is layered with Koanf v2: built-in defaults, then an optional
YAML file, then environment variables. The file is taken from CONFIG_PATH
or the first of DefaultConfigPaths that exists.

# Environment Variables

Only explicitly mapped variables are read. The main ones:

Server and API:
  - HTTP_HOST, HTTP_PORT: listen address (default 0.0.0.0:8090)
  - CORS_ORIGINS: comma-separated allowed origins (default *)
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW: read budget per client IP
  - INTERACTION_RATE_LIMIT_REQUESTS: ingestion budget per client IP

Storage:
  - EVENT_LOG_PATH: Badger directory for the interaction log
  - CATALOG_BACKEND: memory or duckdb
  - DUCKDB_PATH, DUCKDB_MAX_MEMORY: DuckDB catalog
  - MODEL_DIR: model snapshot directory
  - CACHE_BACKEND: none, memory or redis; REDIS_ADDR for redis

Analytics:
  - ANALYTICS_TRANSPORT: nats or gochannel
  - NATS_URL, NATS_DURABLE_NAME, NATS_QUEUE_GROUP

Training:
  - TRAIN_ON_STARTUP: run both trainers when the process starts
  - TRAINING_COLLABORATIVE_EVERY, TRAINING_COLLABORATIVE_OFFSET (24h, 3h)
  - TRAINING_CONTENT_EVERY, TRAINING_CONTENT_OFFSET (168h, 4h)

Engine tunables use the RECOMMEND_ prefix, for example
RECOMMEND_ALS_FACTORS, RECOMMEND_MAX_LIMIT and RECOMMEND_REQUEST_TIMEOUT.

# YAML Example

	server:
	  port: 8090
	catalog:
	  backend: duckdb
	  duckdb:
	    path: /data/catalog.duckdb
	recommend:
	  als:
	    factors: 64
	  weights:
	    flash_sale:
	      velocity: 0.4
*/
package config
