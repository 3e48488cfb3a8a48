// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

// Package catalog is the engine's view of the identity and catalog
// services: whether actors and items exist, and the text metadata and time
// windows of recommendable items.
//
// Three implementations share the Catalog interface. Memory backs tests and
// single-process deployments, DuckDB reads a locally synced catalog
// database, and Breaker wraps either one with a circuit breaker that serves
// the last good item list while the backend is failing.
package catalog

import (
	"context"
	"errors"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
)

// ErrUnavailable is returned by Breaker when the backend is failing and no
// earlier copy of the requested data exists.
var ErrUnavailable = errors.New("catalog unavailable")

// Catalog answers existence checks and lists candidate items.
type Catalog interface {
	ActorExists(ctx context.Context, actorType recommend.ActorType, id string) (bool, error)
	ItemExists(ctx context.Context, targetType recommend.TargetType, id string) (bool, error)

	// Items lists every item of t, including hidden and expired ones;
	// filtering is the serving layer's job. The result is ordered by ID
	// and must not be modified by the caller.
	Items(ctx context.Context, t recommend.TargetType) ([]recommend.Item, error)
}

// Writer is implemented by catalogs the sync job can write to.
type Writer interface {
	PutActor(ctx context.Context, actorType recommend.ActorType, id string) error
	PutItem(ctx context.Context, item *recommend.Item) error
}
