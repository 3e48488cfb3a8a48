// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

// Package events implements the interaction event store: a durable,
// append-only log of weighted behavioral events, an asynchronous Recorder
// that accepts events without blocking callers, and a windowed read used
// only by the trainers.
//
// Repeats of the same (actor, target, eventType) inside one dedup bucket are
// dropped twice over: in process by the Recorder's LRU, and durably by the
// Log so that retries and restarts never double count. The Recorder refuses
// events older than one dedup window, and the Log keeps each dedup record
// until two windows after its bucket closes, so a retry is always checked
// against a live record.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
)

// ErrLogClosed is returned by operations on a closed log.
var ErrLogClosed = errors.New("interaction log is closed")

// Log is the durable append-only interaction log.
type Log interface {
	// Append persists events, skipping any whose dedup key was already
	// written inside the dedup window. It returns the number written.
	Append(ctx context.Context, events []recommend.InteractionEvent) (int, error)

	// ReadWindow returns all events with OccurredAt at or after since,
	// ordered by OccurredAt.
	ReadWindow(ctx context.Context, since time.Time) ([]recommend.InteractionEvent, error)

	// Close releases the underlying storage.
	Close() error
}

// WindowReader is the read side of Log used by trainers.
type WindowReader interface {
	ReadWindow(ctx context.Context, since time.Time) ([]recommend.InteractionEvent, error)
}

// dedupExpiry is when the dedup record of e may be forgotten: two windows
// after its bucket closes, and never sooner than two windows from now.
func dedupExpiry(e *recommend.InteractionEvent, window time.Duration, now time.Time) time.Time {
	closes := e.OccurredAt.UTC().Truncate(window).Add(window)
	if closes.Before(now) {
		closes = now
	}
	return closes.Add(2 * window)
}
