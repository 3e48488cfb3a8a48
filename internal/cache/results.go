// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResultCache stores serialized recommendation pages. Keys already embed the
// model version, so entries never need explicit invalidation.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

type memoryEntry struct {
	data []byte
}

// MemoryResultCache is a per-process ResultCache.
type MemoryResultCache struct {
	lru *LRU[memoryEntry]
}

// NewMemoryResultCache creates an in-process page cache.
func NewMemoryResultCache(capacity int, ttl time.Duration) *MemoryResultCache {
	return &MemoryResultCache{lru: NewLRU[memoryEntry](capacity, ttl)}
}

// Get returns the cached page for key.
func (c *MemoryResultCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	entry, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return entry.data, true, nil
}

// Set stores a page under key.
func (c *MemoryResultCache) Set(_ context.Context, key string, value []byte) error {
	c.lru.Add(key, memoryEntry{data: value})
	return nil
}

// RedisConfig configures the shared page cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// RedisResultCache shares pages between serving replicas.
type RedisResultCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisResultCache connects to Redis and verifies the connection.
func NewRedisResultCache(ctx context.Context, cfg RedisConfig) (*RedisResultCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close() //nolint:errcheck // connection already failed
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return NewRedisResultCacheWithClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewRedisResultCacheWithClient wraps an existing client.
func NewRedisResultCacheWithClient(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisResultCache {
	if prefix == "" {
		prefix = "recs:"
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisResultCache{client: client, prefix: prefix, ttl: ttl}
}

// Get returns the cached page for key.
func (c *RedisResultCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

// Set stores a page under key with the configured TTL.
func (c *RedisResultCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (c *RedisResultCache) Close() error {
	return c.client.Close()
}

var (
	_ ResultCache = (*MemoryResultCache)(nil)
	_ ResultCache = (*RedisResultCache)(nil)
)
