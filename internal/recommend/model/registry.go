// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package model

import (
	"sync"
	"sync/atomic"
	"time"
)

// Registry holds exactly one current snapshot.
//
// Current is a single atomic load. Publishers serialize on a mutex so two
// trainers finishing together cannot lose each other's model; readers
// never take it.
type Registry struct {
	current atomic.Pointer[ModelSnapshot]
	mu      sync.Mutex
	now     func() time.Time
	hooks   []func(*ModelSnapshot)
}

// NewRegistry returns a registry holding an empty snapshot.
func NewRegistry() *Registry {
	r := &Registry{now: time.Now}
	r.current.Store(&ModelSnapshot{})
	return r
}

// OnPublish registers fn to run after every publish, outside the hot path.
// It must be called before the registry is shared.
func (r *Registry) OnPublish(fn func(*ModelSnapshot)) {
	r.hooks = append(r.hooks, fn)
}

// Current returns the live snapshot. It is never nil.
func (r *Registry) Current() *ModelSnapshot {
	return r.current.Load()
}

// PublishCollaborative replaces the collaborative model and keeps the
// current content model. m must not be modified afterwards. A model whose
// version does not advance the live one is renumbered.
func (r *Registry) PublishCollaborative(m *LatentFactorModel) *ModelSnapshot {
	return r.swap(func(cur *ModelSnapshot) *ModelSnapshot {
		if cur.Collaborative != nil && m.Version <= cur.Collaborative.Version {
			m.Version = cur.Collaborative.Version + 1
		} else if m.Version <= 0 {
			m.Version = 1
		}
		return &ModelSnapshot{Collaborative: m, Content: cur.Content}
	})
}

// PublishContent replaces the content model and keeps the current
// collaborative model.
func (r *Registry) PublishContent(m *ContentVectorModel) *ModelSnapshot {
	return r.swap(func(cur *ModelSnapshot) *ModelSnapshot {
		if cur.Content != nil && m.Version <= cur.Content.Version {
			m.Version = cur.Content.Version + 1
		} else if m.Version <= 0 {
			m.Version = 1
		}
		return &ModelSnapshot{Collaborative: cur.Collaborative, Content: m}
	})
}

// Publish replaces the whole snapshot. Version and PublishedAt are set by
// the registry.
func (r *Registry) Publish(s *ModelSnapshot) *ModelSnapshot {
	return r.swap(func(*ModelSnapshot) *ModelSnapshot {
		return &ModelSnapshot{Collaborative: s.Collaborative, Content: s.Content}
	})
}

func (r *Registry) swap(build func(cur *ModelSnapshot) *ModelSnapshot) *ModelSnapshot {
	r.mu.Lock()
	cur := r.current.Load()
	next := build(cur)
	next.Version = cur.Version + 1
	next.PublishedAt = r.now()
	r.current.Store(next)
	r.mu.Unlock()

	for _, fn := range r.hooks {
		fn(next)
	}
	return next
}
