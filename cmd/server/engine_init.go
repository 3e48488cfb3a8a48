// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/api"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/cache"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/catalog"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/config"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/bulk"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/events"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/model"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/serving"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/storage"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/training"
)

// EngineComponents holds the personalization components shared by the HTTP
// API, the analytics consumer and the supervisor tree.
type EngineComponents struct {
	Registry    *model.Registry
	Catalog     *catalog.Breaker
	EventLog    *events.BadgerLog
	Recorder    *events.Recorder
	Engine      *serving.Engine
	Coordinator *training.Coordinator
	Aggregator  *bulk.Aggregator

	// Checks are the readiness probes of the storage backends.
	Checks []api.ReadinessCheck

	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

func (c *EngineComponents) onClose(name string, fn func() error) {
	c.closers = append(c.closers, namedCloser{name: name, close: fn})
}

// Close releases storage in reverse order of creation.
func (c *EngineComponents) Close(logger zerolog.Logger) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		cl := c.closers[i]
		if err := cl.close(); err != nil {
			logger.Error().Err(err).Str("component", cl.name).Msg("error closing component")
		}
	}
}

// initEngine opens storage and builds the serving and training components.
// On error everything opened so far is closed again.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func initEngine(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (_ *EngineComponents, err error) {
	c := &EngineComponents{}
	defer func() {
		if err != nil {
			c.Close(logger)
		}
	}()

	if err = c.initCatalog(ctx, cfg, logger); err != nil {
		return nil, err
	}
	if err = c.initEventLog(cfg, logger); err != nil {
		return nil, err
	}
	if err = c.initRegistry(ctx, cfg, logger); err != nil {
		return nil, err
	}

	c.Engine = serving.NewEngine(c.Registry, c.Catalog, &cfg.Recommend, logger)
	resultCache, err := initResultCache(ctx, &cfg.Cache)
	if err != nil {
		return nil, err
	}
	if resultCache != nil {
		c.Engine.SetCache(resultCache)
		if closer, ok := resultCache.(interface{ Close() error }); ok {
			c.onClose("result-cache", closer.Close)
		}
	}

	c.Aggregator = bulk.NewAggregator(c.Engine)
	return c, nil
}

//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func (c *EngineComponents) initCatalog(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	var backend interface {
		catalog.Catalog
		catalog.Writer
	}

	switch cfg.Catalog.Backend {
	case config.CatalogDuckDB:
		db, err := catalog.OpenDuckDB(ctx, catalog.DuckDBConfig{
			Path:         cfg.Catalog.DuckDB.Path,
			Threads:      cfg.Catalog.DuckDB.Threads,
			MaxMemory:    cfg.Catalog.DuckDB.MaxMemory,
			QueryTimeout: cfg.Catalog.DuckDB.QueryTimeout,
		}, logger)
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		c.onClose("catalog", db.Close)
		c.Checks = append(c.Checks, api.ReadinessCheck{Name: "catalog", Check: db.Ping})
		backend = db
	default:
		backend = catalog.NewMemory()
	}

	if cfg.Catalog.SeedFile != "" {
		stats, err := catalog.LoadSeedFile(ctx, backend, cfg.Catalog.SeedFile)
		if err != nil {
			return err
		}
		logger.Info().
			Str("file", cfg.Catalog.SeedFile).
			Int("actors", stats.Actors).
			Int("items", stats.Items).
			Msg("catalog seeded")
	}

	c.Catalog = catalog.NewBreaker(backend, catalog.BreakerConfig{
		FailureThreshold: cfg.Catalog.BreakerFailures,
		OpenTimeout:      cfg.Catalog.BreakerOpenTimeout,
		MaxHalfOpen:      cfg.Catalog.BreakerMaxHalfOpen,
		StaleFor:         cfg.Catalog.StaleFor,
	}, logger)
	logger.Info().Str("backend", cfg.Catalog.Backend).Msg("catalog initialized")
	return nil
}

//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func (c *EngineComponents) initEventLog(cfg *config.Config, logger zerolog.Logger) error {
	eventLog, err := events.OpenBadgerLog(events.BadgerConfig{
		Path:        cfg.EventLog.Path,
		SyncWrites:  cfg.EventLog.SyncWrites,
		Compression: cfg.EventLog.Compression,
		DedupWindow: cfg.Recommend.DedupWindow,
	}, logger)
	if err != nil {
		return fmt.Errorf("open interaction log: %w", err)
	}
	c.EventLog = eventLog
	c.onClose("event-log", eventLog.Close)

	c.Recorder = events.NewRecorder(eventLog, c.Catalog, events.RecorderConfig{
		QueueSize:          cfg.Recorder.QueueSize,
		BatchSize:          cfg.Recorder.BatchSize,
		FlushInterval:      cfg.Recorder.FlushInterval,
		DedupWindow:        cfg.Recommend.DedupWindow,
		DedupCacheSize:     cfg.Recorder.DedupCacheSize,
		ExistenceCacheSize: cfg.Recorder.ExistenceCacheSize,
		ExistenceCacheTTL:  cfg.Recorder.ExistenceCacheTTL,
		MaxClockSkew:       cfg.Recorder.MaxClockSkew,
	}, logger)

	logger.Info().Str("path", cfg.EventLog.Path).Msg("interaction log opened")
	return nil
}

// initRegistry seeds the registry from persisted models and builds the
// training coordinator that publishes into it.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func (c *EngineComponents) initRegistry(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	store, err := storage.NewStore(cfg.Models.Dir)
	if err != nil {
		return fmt.Errorf("open model store: %w", err)
	}
	snapshots := storage.NewSnapshotStore(store, cfg.Recommend.Training.RetainVersions, logger)

	c.Registry = model.NewRegistry()
	c.Registry.OnPublish(training.RecordSnapshotMetrics)
	if err := snapshots.Restore(ctx, c.Registry); err != nil {
		return fmt.Errorf("restore models: %w", err)
	}
	snap := c.Registry.Current()
	logger.Info().
		Bool("collaborative", snap.Collaborative != nil).
		Bool("content", snap.Content != nil).
		Msg("model registry restored")

	c.Coordinator = training.NewCoordinator(training.CoordinatorConfig{
		Registry:      c.Registry,
		Collaborative: training.NewCollaborativeTrainer(c.EventLog, &cfg.Recommend, logger),
		Content:       training.NewContentTrainer(c.Catalog, &cfg.Recommend, logger),
		Saver:         snapshots,
		Config:        &cfg.Recommend,
	}, logger)
	return nil
}

// initResultCache returns nil when caching is disabled.
func initResultCache(ctx context.Context, cfg *config.CacheConfig) (cache.ResultCache, error) {
	switch cfg.Backend {
	case config.CacheMemory:
		return cache.NewMemoryResultCache(cfg.Capacity, cfg.TTL), nil
	case config.CacheRedis:
		rc, err := cache.NewRedisResultCache(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("connect result cache: %w", err)
		}
		return rc, nil
	default:
		return nil, nil
	}
}
