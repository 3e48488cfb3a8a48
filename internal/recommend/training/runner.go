// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package training

import (
	"sync"
	"sync/atomic"
)

// Runner lets at most one run of a model type execute. A caller that finds
// a run in progress is turned away instead of waiting.
type Runner struct {
	mu      sync.Mutex
	running atomic.Bool
}

// TryAcquire claims the runner. ok is false when a run is in progress;
// otherwise release must be called when the run ends.
func (r *Runner) TryAcquire() (release func(), ok bool) {
	if !r.mu.TryLock() {
		return nil, false
	}
	r.running.Store(true)
	return func() {
		r.running.Store(false)
		r.mu.Unlock()
	}, true
}

// Running reports whether a run is in progress.
func (r *Runner) Running() bool {
	return r.running.Load()
}
