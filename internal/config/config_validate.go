// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/logging"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateRateLimits,
		c.validateLogging,
		c.validateEventLog,
		c.validateRecorder,
		c.validateCatalog,
		c.validateCache,
		c.validateAnalytics,
		c.validateModels,
		c.validateSchedule,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	if err := c.Recommend.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.Environment != "production" && c.Server.Environment != "development" {
		return fmt.Errorf("ENVIRONMENT must be production or development, got %q", c.Server.Environment)
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// hasWildcardCORS checks if CORS is configured with wildcard origins
func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.API.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if a wildcard origin is configured in
// production. The API is unauthenticated, so this is a warning only.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.IsProduction() && c.hasWildcardCORS()
}

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

// validateRateLimits validates rate limiting configuration bounds.
func (c *Config) validateRateLimits() error {
	if c.API.RateLimitDisabled {
		return nil
	}
	for name, v := range map[string]int{
		"RATE_LIMIT_REQUESTS":             c.API.RateLimitRequests,
		"INTERACTION_RATE_LIMIT_REQUESTS": c.API.InteractionRateLimitRequests,
	} {
		if v < minRateLimitRequests || v > maxRateLimitRequests {
			return fmt.Errorf("%s must be between %d and %d", name, minRateLimitRequests, maxRateLimitRequests)
		}
	}
	if c.API.RateLimitWindow < minRateLimitWindow || c.API.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

func (c *Config) validateEventLog() error {
	if c.EventLog.Path == "" {
		return fmt.Errorf("EVENT_LOG_PATH is required")
	}
	if c.EventLog.GCDiscardRatio <= 0 || c.EventLog.GCDiscardRatio >= 1 {
		return fmt.Errorf("EVENT_LOG_GC_DISCARD_RATIO must be in (0, 1), got %f", c.EventLog.GCDiscardRatio)
	}
	return nil
}

func (c *Config) validateRecorder() error {
	if c.Recorder.QueueSize <= 0 {
		return fmt.Errorf("RECORDER_QUEUE_SIZE must be positive")
	}
	if c.Recorder.BatchSize <= 0 || c.Recorder.BatchSize > c.Recorder.QueueSize {
		return fmt.Errorf("RECORDER_BATCH_SIZE must be between 1 and the queue size (%d)", c.Recorder.QueueSize)
	}
	if c.Recorder.FlushInterval <= 0 {
		return fmt.Errorf("RECORDER_FLUSH_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	switch c.Catalog.Backend {
	case CatalogMemory:
	case CatalogDuckDB:
		if c.Catalog.DuckDB.Path == "" {
			return fmt.Errorf("DUCKDB_PATH is required when CATALOG_BACKEND=duckdb")
		}
	default:
		return fmt.Errorf("CATALOG_BACKEND must be memory or duckdb, got %q", c.Catalog.Backend)
	}
	if c.Catalog.BreakerFailures == 0 {
		return fmt.Errorf("CATALOG_BREAKER_FAILURES must be positive")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case CacheNone:
		return nil
	case CacheMemory:
		if c.Cache.Capacity <= 0 {
			return fmt.Errorf("CACHE_CAPACITY must be positive")
		}
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when CACHE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be none, memory or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	return nil
}

func (c *Config) validateAnalytics() error {
	if !c.Analytics.Enabled {
		return nil
	}
	switch c.Analytics.Transport {
	case TransportGoChannel:
	case TransportNATS:
		if err := validateNATSURL(c.Analytics.NATS.URL); err != nil {
			return fmt.Errorf("NATS_URL: %w", err)
		}
		if c.Analytics.NATS.SubscribersCount < 1 {
			return fmt.Errorf("NATS_SUBSCRIBERS must be at least 1")
		}
	default:
		return fmt.Errorf("ANALYTICS_TRANSPORT must be nats or gochannel, got %q", c.Analytics.Transport)
	}
	if c.Analytics.QueueSize <= 0 {
		return fmt.Errorf("ANALYTICS_QUEUE_SIZE must be positive")
	}
	return nil
}

func (c *Config) validateModels() error {
	if c.Models.Dir == "" {
		return fmt.Errorf("MODEL_DIR is required")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if !c.Schedule.Enabled {
		return nil
	}
	for name, cadence := range map[string]Cadence{
		"collaborative": c.Schedule.Collaborative,
		"content":       c.Schedule.Content,
	} {
		if cadence.Interval < time.Minute {
			return fmt.Errorf("schedule.%s.interval must be at least 1m, got %v", name, cadence.Interval)
		}
		if cadence.Offset < 0 || cadence.Offset >= cadence.Interval {
			return fmt.Errorf("schedule.%s.offset must be in [0, interval), got %v", name, cadence.Offset)
		}
	}
	return nil
}

// validateNATSURL validates that the NATS URL is properly formatted
// Supports: nats://, tls://, and ws:// schemes with IP addresses/hostnames and optional ports
func validateNATSURL(rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	validSchemes := map[string]bool{"nats": true, "tls": true, "ws": true, "wss": true}
	if !validSchemes[parsedURL.Scheme] {
		return fmt.Errorf("scheme must be nats, tls, ws, or wss, got: %s", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("host is required (e.g., localhost:4222, nats.example.com)")
	}
	return nil
}
