// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package events

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
)

// MemoryLog is an in-process Log used by tests and single-node demos.
// It applies the same durable dedup rule as BadgerLog.
type MemoryLog struct {
	mu          sync.RWMutex
	events      []recommend.InteractionEvent
	dedup       map[string]time.Time
	dedupWindow time.Duration
	now         func() time.Time
	closed      bool

	// failErr, when set, is returned by every ReadWindow call.
	failErr error
}

// NewMemoryLog creates an empty in-memory log.
func NewMemoryLog(dedupWindow time.Duration) *MemoryLog {
	return &MemoryLog{
		dedup:       make(map[string]time.Time),
		dedupWindow: dedupWindow,
		now:         time.Now,
	}
}

// SetReadError makes ReadWindow fail with err until cleared with nil.
// It simulates an unreachable interaction source.
func (l *MemoryLog) SetReadError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failErr = err
}

// Append implements Log.
func (l *MemoryLog) Append(ctx context.Context, events []recommend.InteractionEvent) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, ErrLogClosed
	}

	now := l.now()
	written := 0
	for i := range events {
		key := events[i].DedupKey(l.dedupWindow)
		if exp, ok := l.dedup[key]; ok && now.Before(exp) {
			continue
		}
		l.dedup[key] = dedupExpiry(&events[i], l.dedupWindow, now)
		l.events = append(l.events, events[i])
		written++
	}
	return written, nil
}

// ReadWindow implements Log.
func (l *MemoryLog) ReadWindow(ctx context.Context, since time.Time) ([]recommend.InteractionEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, ErrLogClosed
	}
	if l.failErr != nil {
		return nil, l.failErr
	}

	out := make([]recommend.InteractionEvent, 0, len(l.events))
	for i := range l.events {
		if !l.events[i].OccurredAt.Before(since) {
			out = append(out, l.events[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out, nil
}

// Len returns the number of stored events.
func (l *MemoryLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Close implements Log.
func (l *MemoryLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

var _ Log = (*MemoryLog)(nil)
