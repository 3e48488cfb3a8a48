// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/metrics"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
)

// BreakerConfig configures the circuit breaker around a catalog backend.
type BreakerConfig struct {
	// FailureThreshold consecutive failures open the circuit.
	FailureThreshold uint32

	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration

	// MaxHalfOpen is the number of probe requests allowed half-open.
	MaxHalfOpen uint32

	// StaleFor is how long the last good item list of a target type may be
	// served while the backend is failing. Zero disables stale reads.
	StaleFor time.Duration
}

// DefaultBreakerConfig returns production defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		MaxHalfOpen:      1,
		StaleFor:         10 * time.Minute,
	}
}

type staleItems struct {
	items []recommend.Item
	at    time.Time
}

// Breaker protects a Catalog with a circuit breaker. Existence checks fail
// fast while the circuit is open; Items falls back to the last good list.
type Breaker struct {
	backend  Catalog
	cb       *gobreaker.CircuitBreaker[interface{}]
	staleFor time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	mu    sync.RWMutex
	stale map[recommend.TargetType]staleItems
}

// NewBreaker wraps backend.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewBreaker(backend Catalog, cfg BreakerConfig, logger zerolog.Logger) *Breaker {
	b := &Breaker{
		backend:  backend,
		staleFor: cfg.StaleFor,
		logger:   logger.With().Str("component", "catalog-breaker").Logger(),
		now:      time.Now,
		stale:    make(map[recommend.TargetType]staleItems),
	}
	b.cb = gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: cfg.MaxHalfOpen,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not a backend failure.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CatalogBreakerState.Set(float64(to))
			b.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("catalog circuit breaker state changed")
		},
	})
	return b
}

// SetClock overrides the clock used to age stale lists.
func (b *Breaker) SetClock(now func() time.Time) {
	b.now = now
}

// State returns the breaker state ("closed", "half-open" or "open").
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// ActorExists forwards to the backend through the breaker.
func (b *Breaker) ActorExists(ctx context.Context, actorType recommend.ActorType, id string) (bool, error) {
	return b.exists("actor_exists", func() (bool, error) {
		return b.backend.ActorExists(ctx, actorType, id)
	})
}

// ItemExists forwards to the backend through the breaker.
func (b *Breaker) ItemExists(ctx context.Context, targetType recommend.TargetType, id string) (bool, error) {
	return b.exists("item_exists", func() (bool, error) {
		return b.backend.ItemExists(ctx, targetType, id)
	})
}

func (b *Breaker) exists(op string, fn func() (bool, error)) (bool, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		metrics.CatalogRequests.WithLabelValues(op, b.outcome(err)).Inc()
		return false, b.wrap(err)
	}
	metrics.CatalogRequests.WithLabelValues(op, "ok").Inc()
	found, _ := out.(bool) //nolint:errcheck // fn always returns bool
	return found, nil
}

// Items forwards to the backend. When the call fails or is rejected it
// returns the last good list of t if that is recent enough.
func (b *Breaker) Items(ctx context.Context, t recommend.TargetType) ([]recommend.Item, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.backend.Items(ctx, t)
	})
	if err == nil {
		items, _ := out.([]recommend.Item) //nolint:errcheck // backend always returns a slice
		b.mu.Lock()
		b.stale[t] = staleItems{items: items, at: b.now()}
		b.mu.Unlock()
		metrics.CatalogRequests.WithLabelValues("items", "ok").Inc()
		return items, nil
	}

	b.mu.RLock()
	last, ok := b.stale[t]
	b.mu.RUnlock()
	if ok && b.staleFor > 0 && b.now().Sub(last.at) <= b.staleFor {
		metrics.CatalogRequests.WithLabelValues("items", "stale").Inc()
		b.logger.Debug().Err(err).Str("target_type", string(t)).
			Dur("age", b.now().Sub(last.at)).Msg("serving stale catalog items")
		return last.items, nil
	}

	metrics.CatalogRequests.WithLabelValues("items", b.outcome(err)).Inc()
	return nil, b.wrap(err)
}

func (b *Breaker) outcome(err error) string {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "rejected"
	}
	return "error"
}

func (b *Breaker) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
