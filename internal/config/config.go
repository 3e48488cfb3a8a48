// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package config

import (
	"fmt"
	"time"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
)

// Config holds all process configuration of the personalization engine.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: defaultConfig() and recommend.DefaultConfig()
//  2. Config File: optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment Variables: the explicit mapping in envTransformFunc
//
// Sections:
//   - Server, API: HTTP listener, CORS and rate limits
//   - Logging: zerolog level and format
//   - Recommend: scoring, factorization and training tunables
//   - EventLog, Recorder: interaction persistence
//   - Catalog: item and actor metadata backend
//   - Cache: serving result cache
//   - Analytics: served-recommendation events and impression feedback
//   - Models: snapshot persistence
//   - Schedule: in-process training cadence
//   - Supervisor: suture restart policy
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal().Err(err).Msg("failed to load config")
//	}
//	engine := serving.NewEngine(reg, cat, &cfg.Recommend, logger)
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	API        APIConfig        `koanf:"api"`
	Logging    LoggingConfig    `koanf:"logging"`
	EventLog   EventLogConfig   `koanf:"event_log"`
	Recorder   RecorderConfig   `koanf:"recorder"`
	Catalog    CatalogConfig    `koanf:"catalog"`
	Cache      CacheConfig      `koanf:"cache"`
	Analytics  AnalyticsConfig  `koanf:"analytics"`
	Models     ModelsConfig     `koanf:"models"`
	Schedule   ScheduleConfig   `koanf:"schedule"`
	Supervisor SupervisorConfig `koanf:"supervisor"`

	// Recommend is decoded separately with its json tags so that the engine
	// package does not depend on koanf.
	Recommend recommend.Config `koanf:"-"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Environment is "production" or "development". Development relaxes the
	// wildcard CORS warning.
	Environment string `koanf:"environment"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// APIConfig configures the HTTP API middleware.
type APIConfig struct {
	CORSOrigins                  []string      `koanf:"cors_origins"`
	RateLimitRequests            int           `koanf:"rate_limit_requests"`
	RateLimitWindow              time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled            bool          `koanf:"rate_limit_disabled"`
	InteractionRateLimitRequests int           `koanf:"interaction_rate_limit_requests"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// EventLogConfig configures the Badger interaction log.
type EventLogConfig struct {
	Path        string `koanf:"path"`
	SyncWrites  bool   `koanf:"sync_writes"`
	Compression bool   `koanf:"compression"`

	// GCInterval and GCDiscardRatio drive value log garbage collection.
	GCInterval     time.Duration `koanf:"gc_interval"`
	GCDiscardRatio float64       `koanf:"gc_discard_ratio"`
}

// RecorderConfig configures the asynchronous interaction recorder.
type RecorderConfig struct {
	QueueSize          int           `koanf:"queue_size"`
	BatchSize          int           `koanf:"batch_size"`
	FlushInterval      time.Duration `koanf:"flush_interval"`
	DedupCacheSize     int           `koanf:"dedup_cache_size"`
	ExistenceCacheSize int           `koanf:"existence_cache_size"`
	ExistenceCacheTTL  time.Duration `koanf:"existence_cache_ttl"`
	MaxClockSkew       time.Duration `koanf:"max_clock_skew"`
}

// Catalog backends.
const (
	CatalogMemory = "memory"
	CatalogDuckDB = "duckdb"
)

// CatalogConfig selects and configures the catalog backend.
type CatalogConfig struct {
	Backend string       `koanf:"backend"`
	DuckDB  DuckDBConfig `koanf:"duckdb"`

	// SeedFile is an optional JSON document (see catalog.Seed) loaded into
	// the catalog at startup.
	SeedFile string `koanf:"seed_file"`

	BreakerFailures    uint32        `koanf:"breaker_failures"`
	BreakerOpenTimeout time.Duration `koanf:"breaker_open_timeout"`
	BreakerMaxHalfOpen uint32        `koanf:"breaker_max_half_open"`
	StaleFor           time.Duration `koanf:"stale_for"`
}

// DuckDBConfig configures the DuckDB catalog.
type DuckDBConfig struct {
	Path         string        `koanf:"path"`
	Threads      int           `koanf:"threads"`
	MaxMemory    string        `koanf:"max_memory"`
	QueryTimeout time.Duration `koanf:"query_timeout"`
}

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// CacheConfig selects and configures the result cache.
type CacheConfig struct {
	Backend  string        `koanf:"backend"`
	TTL      time.Duration `koanf:"ttl"`
	Capacity int           `koanf:"capacity"`
	Redis    RedisConfig   `koanf:"redis"`
}

// RedisConfig configures the shared result cache.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

// Analytics transports.
const (
	TransportNATS      = "nats"
	TransportGoChannel = "gochannel"
)

// AnalyticsConfig configures served-recommendation events and the
// impression feedback consumer.
type AnalyticsConfig struct {
	Enabled bool `koanf:"enabled"`

	// Transport is "nats" for JetStream or "gochannel" for a single process.
	Transport string `koanf:"transport"`

	// FeedbackEnabled runs the consumer that records impression messages as
	// view interactions.
	FeedbackEnabled bool `koanf:"feedback_enabled"`

	QueueSize      int           `koanf:"queue_size"`
	PublishTimeout time.Duration `koanf:"publish_timeout"`

	NATS NATSConfig `koanf:"nats"`
}

// NATSConfig configures the JetStream connection.
type NATSConfig struct {
	URL              string        `koanf:"url"`
	DurableName      string        `koanf:"durable_name"`
	QueueGroup       string        `koanf:"queue_group"`
	SubscribersCount int           `koanf:"subscribers_count"`
	MaxReconnects    int           `koanf:"max_reconnects"`
	ReconnectWait    time.Duration `koanf:"reconnect_wait"`
}

// ModelsConfig configures model snapshot persistence. The number of
// versions kept is recommend.training.retain_versions.
type ModelsConfig struct {
	Dir string `koanf:"dir"`
}

// ScheduleConfig configures in-process training schedules.
type ScheduleConfig struct {
	Enabled       bool    `koanf:"enabled"`
	RunOnStartup  bool    `koanf:"run_on_startup"`
	Collaborative Cadence `koanf:"collaborative"`
	Content       Cadence `koanf:"content"`
}

// Cadence is one training schedule: runs at every multiple of Interval plus
// Offset, in UTC.
type Cadence struct {
	Interval time.Duration `koanf:"interval"`
	Offset   time.Duration `koanf:"offset"`
}

// SupervisorConfig configures the suture restart policy.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// Load loads configuration from defaults, the optional config file and
// environment variables, then validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
