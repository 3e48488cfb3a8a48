// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package algorithms

import (
	"hash/fnv"
	"sort"
	"strconv"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
)

// Entry is one observed cell of a matrix row or column.
type Entry struct {
	// Index is the item index in a row, the actor index in a column.
	Index int

	// Value is the aggregated event weight of the cell.
	Value float64
}

// Cell addresses one observed (actor, item) pair.
type Cell struct {
	Actor int
	Item  int
	Value float64
}

// InteractionMatrix is a sparse actor x item matrix of aggregated event
// weights. Keys are sorted so indices are deterministic for a given input.
type InteractionMatrix struct {
	ActorKeys []string
	ItemKeys  []string

	// Rows[u] lists the items of actor u, sorted by item index.
	Rows [][]Entry

	// Cols[i] lists the actors of item i, sorted by actor index.
	Cols [][]Entry

	actorIndex map[string]int
	itemIndex  map[string]int
}

// BuildInteractionMatrix aggregates events into a matrix, excluding actors
// and items whose aggregated confidence is below threshold. Excluded
// entities get no row or column at all; serving falls back for them rather
// than scoring with a degenerate zero vector.
//
// The threshold is applied once to the raw totals. Entities that pass it
// but share no cell with a qualifying counterpart are then dropped, so
// every row and column has at least one entry.
//
//nolint:gocritic // rangeValCopy: events are iterated read-only
func BuildInteractionMatrix(events []recommend.InteractionEvent, threshold float64) *InteractionMatrix {
	type pair struct{ actor, item string }

	cells := make(map[pair]float64)
	actorTotals := make(map[string]float64)
	itemTotals := make(map[string]float64)
	for _, e := range events {
		w := e.Weight
		if w <= 0 {
			w = e.EventType.Weight()
		}
		if w <= 0 {
			continue
		}
		p := pair{e.ActorKey(), e.ItemKey()}
		cells[p] += w
		actorTotals[p.actor] += w
		itemTotals[p.item] += w
	}

	actors := make(map[string]struct{})
	items := make(map[string]struct{})
	for key, total := range actorTotals {
		if total >= threshold {
			actors[key] = struct{}{}
		}
	}
	for key, total := range itemTotals {
		if total >= threshold {
			items[key] = struct{}{}
		}
	}

	// Drop qualifying entities without a qualifying counterpart. They
	// contribute no cells, so one pass leaves no empty row or column.
	actorCells := make(map[string]int, len(actors))
	itemCells := make(map[string]int, len(items))
	for p := range cells {
		_, okU := actors[p.actor]
		_, okI := items[p.item]
		if okU && okI {
			actorCells[p.actor]++
			itemCells[p.item]++
		}
	}
	for key := range actors {
		if actorCells[key] == 0 {
			delete(actors, key)
		}
	}
	for key := range items {
		if itemCells[key] == 0 {
			delete(items, key)
		}
	}

	m := &InteractionMatrix{
		actorIndex: make(map[string]int, len(actors)),
		itemIndex:  make(map[string]int, len(items)),
	}
	for key := range actors {
		m.ActorKeys = append(m.ActorKeys, key)
	}
	for key := range items {
		m.ItemKeys = append(m.ItemKeys, key)
	}
	sort.Strings(m.ActorKeys)
	sort.Strings(m.ItemKeys)
	for i, k := range m.ActorKeys {
		m.actorIndex[k] = i
	}
	for i, k := range m.ItemKeys {
		m.itemIndex[k] = i
	}

	m.Rows = make([][]Entry, len(m.ActorKeys))
	m.Cols = make([][]Entry, len(m.ItemKeys))
	for p, v := range cells {
		u, okU := m.actorIndex[p.actor]
		i, okI := m.itemIndex[p.item]
		if !okU || !okI {
			continue
		}
		m.Rows[u] = append(m.Rows[u], Entry{Index: i, Value: v})
		m.Cols[i] = append(m.Cols[i], Entry{Index: u, Value: v})
	}
	m.sortEntries()
	return m
}

func (m *InteractionMatrix) sortEntries() {
	for _, r := range m.Rows {
		sort.Slice(r, func(a, b int) bool { return r[a].Index < r[b].Index })
	}
	for _, c := range m.Cols {
		sort.Slice(c, func(a, b int) bool { return c[a].Index < c[b].Index })
	}
}

// NumActors returns the number of actors with a row.
func (m *InteractionMatrix) NumActors() int { return len(m.ActorKeys) }

// NumItems returns the number of items with a column.
func (m *InteractionMatrix) NumItems() int { return len(m.ItemKeys) }

// NNZ returns the number of observed cells.
func (m *InteractionMatrix) NNZ() int {
	n := 0
	for _, r := range m.Rows {
		n += len(r)
	}
	return n
}

// ActorIndex returns the row of an actor key.
func (m *InteractionMatrix) ActorIndex(key string) (int, bool) {
	i, ok := m.actorIndex[key]
	return i, ok
}

// ItemIndex returns the column of an item key.
func (m *InteractionMatrix) ItemIndex(key string) (int, bool) {
	i, ok := m.itemIndex[key]
	return i, ok
}

// Has reports whether cell (u, i) is observed.
func (m *InteractionMatrix) Has(u, i int) bool {
	row := m.Rows[u]
	k := sort.Search(len(row), func(n int) bool { return row[n].Index >= i })
	return k < len(row) && row[k].Index == i
}

// Split holds out a deterministic fraction of observed cells for
// evaluation and returns the remaining training matrix. The training
// matrix keeps every actor and item index.
//
// Only cells whose actor keeps at least two training items and whose item
// keeps at least one training actor are eligible, so no entity loses its
// factors to the holdout.
func (m *InteractionMatrix) Split(fraction float64, seed int64) (*InteractionMatrix, []Cell) {
	train := &InteractionMatrix{
		ActorKeys:  m.ActorKeys,
		ItemKeys:   m.ItemKeys,
		Rows:       make([][]Entry, len(m.Rows)),
		Cols:       make([][]Entry, len(m.Cols)),
		actorIndex: m.actorIndex,
		itemIndex:  m.itemIndex,
	}
	if fraction <= 0 {
		for u, r := range m.Rows {
			train.Rows[u] = append([]Entry(nil), r...)
		}
		for i, c := range m.Cols {
			train.Cols[i] = append([]Entry(nil), c...)
		}
		return train, nil
	}

	rowLeft := make([]int, len(m.Rows))
	colLeft := make([]int, len(m.Cols))
	for u, r := range m.Rows {
		rowLeft[u] = len(r)
	}
	for i, c := range m.Cols {
		colLeft[i] = len(c)
	}

	threshold := uint64(fraction * float64(^uint64(0)>>11))
	var heldOut []Cell
	for u, r := range m.Rows {
		for _, e := range r {
			h := cellHash(m.ActorKeys[u], m.ItemKeys[e.Index], seed) >> 11
			if h < threshold && rowLeft[u] > 2 && colLeft[e.Index] > 1 {
				rowLeft[u]--
				colLeft[e.Index]--
				heldOut = append(heldOut, Cell{Actor: u, Item: e.Index, Value: e.Value})
				continue
			}
			train.Rows[u] = append(train.Rows[u], e)
			train.Cols[e.Index] = append(train.Cols[e.Index], Entry{Index: u, Value: e.Value})
		}
	}
	return train, heldOut
}

func cellHash(actor, item string, seed int64) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(actor))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(item))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strconv.FormatInt(seed, 10)))
	return h.Sum64()
}
