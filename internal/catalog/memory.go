// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
)

// Memory is an in-process catalog. Items keeps a sorted copy per target
// type that is rebuilt lazily after writes.
type Memory struct {
	mu     sync.RWMutex
	actors map[string]struct{}
	items  map[recommend.TargetType]map[string]recommend.Item
	sorted map[recommend.TargetType][]recommend.Item
}

// NewMemory creates an empty catalog.
func NewMemory() *Memory {
	return &Memory{
		actors: make(map[string]struct{}),
		items:  make(map[recommend.TargetType]map[string]recommend.Item),
		sorted: make(map[recommend.TargetType][]recommend.Item),
	}
}

// PutActor registers an actor.
func (m *Memory) PutActor(_ context.Context, actorType recommend.ActorType, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actors[recommend.ActorKey(actorType, id)] = struct{}{}
	return nil
}

// PutItem adds or replaces an item.
func (m *Memory) PutItem(_ context.Context, item *recommend.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byID, ok := m.items[item.Type]
	if !ok {
		byID = make(map[string]recommend.Item)
		m.items[item.Type] = byID
	}
	byID[item.ID] = *item
	delete(m.sorted, item.Type)
	return nil
}

// RemoveItem deletes an item. It reports whether the item existed.
func (m *Memory) RemoveItem(t recommend.TargetType, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[t][id]; !ok {
		return false
	}
	delete(m.items[t], id)
	delete(m.sorted, t)
	return true
}

// ActorExists reports whether the actor was registered.
func (m *Memory) ActorExists(_ context.Context, actorType recommend.ActorType, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.actors[recommend.ActorKey(actorType, id)]
	return ok, nil
}

// ItemExists reports whether the item is in the catalog. Hidden and expired
// items exist.
func (m *Memory) ItemExists(_ context.Context, targetType recommend.TargetType, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.items[targetType][id]
	return ok, nil
}

// Items returns the items of t ordered by ID.
func (m *Memory) Items(_ context.Context, t recommend.TargetType) ([]recommend.Item, error) {
	m.mu.RLock()
	list, ok := m.sorted[t]
	m.mu.RUnlock()
	if ok {
		return list, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if list, ok := m.sorted[t]; ok {
		return list, nil
	}
	list = make([]recommend.Item, 0, len(m.items[t]))
	for _, it := range m.items[t] {
		list = append(list, it)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	m.sorted[t] = list
	return list, nil
}
