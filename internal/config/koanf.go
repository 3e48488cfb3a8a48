// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/personalization/config.yaml",
	"/etc/personalization/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// recommendPath is the koanf path of the engine tunables.
const recommendPath = "recommend"

// defaultConfig returns a Config with all defaults except Recommend, which
// comes from recommend.DefaultConfig.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8090,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "production",
		},
		API: APIConfig{
			CORSOrigins:                  []string{"*"},
			RateLimitRequests:            600,
			RateLimitWindow:              time.Minute,
			RateLimitDisabled:            false,
			InteractionRateLimitRequests: 3000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		EventLog: EventLogConfig{
			Path:           "/data/events",
			SyncWrites:     false,
			Compression:    true,
			GCInterval:     10 * time.Minute,
			GCDiscardRatio: 0.5,
		},
		Recorder: RecorderConfig{
			QueueSize:          10000,
			BatchSize:          256,
			FlushInterval:      time.Second,
			DedupCacheSize:     100000,
			ExistenceCacheSize: 50000,
			ExistenceCacheTTL:  10 * time.Minute,
			MaxClockSkew:       5 * time.Minute,
		},
		Catalog: CatalogConfig{
			Backend: CatalogDuckDB,
			DuckDB: DuckDBConfig{
				Path:         "/data/catalog.duckdb",
				Threads:      0,
				MaxMemory:    "1GB",
				QueryTimeout: 5 * time.Second,
			},
			BreakerFailures:    5,
			BreakerOpenTimeout: 30 * time.Second,
			BreakerMaxHalfOpen: 1,
			StaleFor:           10 * time.Minute,
		},
		Cache: CacheConfig{
			Backend:  CacheMemory,
			TTL:      time.Minute,
			Capacity: 10000,
			Redis: RedisConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "recs:",
			},
		},
		Analytics: AnalyticsConfig{
			Enabled:         true,
			Transport:       TransportGoChannel,
			FeedbackEnabled: true,
			QueueSize:       4096,
			PublishTimeout:  5 * time.Second,
			NATS: NATSConfig{
				URL:              "nats://127.0.0.1:4222",
				DurableName:      "personalization-impressions",
				QueueGroup:       "personalization",
				SubscribersCount: 2,
				MaxReconnects:    -1,
				ReconnectWait:    2 * time.Second,
			},
		},
		Models: ModelsConfig{
			Dir: "/data/models",
		},
		Schedule: ScheduleConfig{
			Enabled:      true,
			RunOnStartup: true,
			Collaborative: Cadence{
				Interval: 24 * time.Hour,
				Offset:   3 * time.Hour,
			},
			Content: Cadence{
				Interval: 7 * 24 * time.Hour,
				Offset:   4 * time.Hour,
			},
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// The engine tunables under "recommend" use the json tags of
// recommend.Config, every other section uses koanf tags.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from structs
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	rk := koanf.New(".")
	if err := rk.Load(structs.Provider(recommend.DefaultConfig(), "json"), nil); err != nil {
		return nil, fmt.Errorf("failed to load recommend defaults: %w", err)
	}
	if err := k.MergeAt(rk, recommendPath); err != nil {
		return nil, fmt.Errorf("failed to merge recommend defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := k.UnmarshalWithConf(recommendPath, &cfg.Recommend, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recommend configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"api.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, YAML lists are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Unlisted variables are ignored so the process environment cannot
// pollute the configuration.
var envMappings = map[string]string{
	// Server
	"http_host":          "server.host",
	"http_port":          "server.port",
	"http_read_timeout":  "server.read_timeout",
	"http_write_timeout": "server.write_timeout",
	"http_idle_timeout":  "server.idle_timeout",
	"shutdown_timeout":   "server.shutdown_timeout",
	"environment":        "server.environment",

	// API
	"cors_origins":                    "api.cors_origins",
	"rate_limit_requests":             "api.rate_limit_requests",
	"rate_limit_window":               "api.rate_limit_window",
	"disable_rate_limit":              "api.rate_limit_disabled",
	"interaction_rate_limit_requests": "api.interaction_rate_limit_requests",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Interaction log and recorder
	"event_log_path":             "event_log.path",
	"event_log_sync_writes":      "event_log.sync_writes",
	"event_log_compression":      "event_log.compression",
	"event_log_gc_interval":      "event_log.gc_interval",
	"event_log_gc_discard_ratio": "event_log.gc_discard_ratio",
	"recorder_queue_size":        "recorder.queue_size",
	"recorder_batch_size":        "recorder.batch_size",
	"recorder_flush_interval":    "recorder.flush_interval",
	"recorder_max_clock_skew":    "recorder.max_clock_skew",

	// Catalog
	"catalog_backend":          "catalog.backend",
	"catalog_seed_file":        "catalog.seed_file",
	"duckdb_path":              "catalog.duckdb.path",
	"duckdb_threads":           "catalog.duckdb.threads",
	"duckdb_max_memory":        "catalog.duckdb.max_memory",
	"duckdb_query_timeout":     "catalog.duckdb.query_timeout",
	"catalog_breaker_failures": "catalog.breaker_failures",
	"catalog_breaker_timeout":  "catalog.breaker_open_timeout",
	"catalog_stale_for":        "catalog.stale_for",

	// Result cache
	"cache_backend":  "cache.backend",
	"cache_ttl":      "cache.ttl",
	"cache_capacity": "cache.capacity",
	"redis_addr":     "cache.redis.addr",
	"redis_password": "cache.redis.password",
	"redis_db":       "cache.redis.db",
	"redis_prefix":   "cache.redis.prefix",

	// Analytics
	"analytics_enabled":         "analytics.enabled",
	"analytics_transport":       "analytics.transport",
	"analytics_feedback":        "analytics.feedback_enabled",
	"analytics_queue_size":      "analytics.queue_size",
	"analytics_publish_timeout": "analytics.publish_timeout",
	"nats_url":                  "analytics.nats.url",
	"nats_durable_name":         "analytics.nats.durable_name",
	"nats_queue_group":          "analytics.nats.queue_group",
	"nats_subscribers":          "analytics.nats.subscribers_count",

	// Models and schedules
	"model_dir":                     "models.dir",
	"training_schedule_enabled":     "schedule.enabled",
	"train_on_startup":              "schedule.run_on_startup",
	"training_collaborative_every":  "schedule.collaborative.interval",
	"training_collaborative_offset": "schedule.collaborative.offset",
	"training_content_every":        "schedule.content.interval",
	"training_content_offset":       "schedule.content.offset",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",

	// Engine tunables
	"recommend_min_interactions":     "recommend.min_interactions",
	"recommend_lookback":             "recommend.lookback",
	"recommend_dedup_window":         "recommend.dedup_window",
	"recommend_recent_items_limit":   "recommend.recent_items_limit",
	"recommend_seed":                 "recommend.seed",
	"recommend_als_factors":          "recommend.als.factors",
	"recommend_als_lambda":           "recommend.als.lambda",
	"recommend_als_alpha":            "recommend.als.alpha",
	"recommend_als_iterations":       "recommend.als.iterations",
	"recommend_als_epsilon":          "recommend.als.epsilon",
	"recommend_als_time_budget":      "recommend.als.time_budget",
	"recommend_als_holdout_fraction": "recommend.als.holdout_fraction",
	"recommend_als_workers":          "recommend.als.workers",
	"recommend_content_max_terms":    "recommend.content.max_terms_per_item",
	"recommend_popularity_half_life": "recommend.popularity.half_life",
	"recommend_velocity_window":      "recommend.popularity.velocity_window",
	"recommend_urgency_horizon":      "recommend.popularity.urgency_horizon",
	"recommend_training_timeout":     "recommend.training.max_duration",
	"recommend_regression_tolerance": "recommend.training.regression_tolerance",
	"recommend_retain_versions":      "recommend.training.retain_versions",
	"recommend_default_limit":        "recommend.limits.default_limit",
	"recommend_max_limit":            "recommend.limits.max_limit",
	"recommend_request_timeout":      "recommend.limits.request_timeout",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - DUCKDB_PATH -> catalog.duckdb.path
//   - RECOMMEND_ALS_FACTORS -> recommend.als.factors
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
