// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package catalog

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
)

// Seed is the JSON document accepted by LoadSeed.
//
//	{
//	  "actors": [{"type": "user", "id": "u1"}],
//	  "items":  [{"id": "p1", "type": "product", "name": "Summer dress"}]
//	}
type Seed struct {
	Actors []SeedActor      `json:"actors"`
	Items  []recommend.Item `json:"items"`
}

// SeedActor is one actor entry of a Seed.
type SeedActor struct {
	Type recommend.ActorType `json:"type"`
	ID   string              `json:"id"`
}

// SeedStats counts what LoadSeed wrote.
type SeedStats struct {
	Actors int
	Items  int
}

// LoadSeed decodes a Seed from r and writes it to w. Entries are checked
// before anything is written, so a bad document leaves w untouched.
func LoadSeed(ctx context.Context, w Writer, r io.Reader) (SeedStats, error) {
	var seed Seed
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&seed); err != nil {
		return SeedStats{}, fmt.Errorf("decode catalog seed: %w", err)
	}

	for i, a := range seed.Actors {
		if !a.Type.Valid() || a.ID == "" {
			return SeedStats{}, fmt.Errorf("actors[%d]: invalid actor %q/%q", i, a.Type, a.ID)
		}
	}
	for i := range seed.Items {
		it := &seed.Items[i]
		if !it.Type.Valid() || it.ID == "" {
			return SeedStats{}, fmt.Errorf("items[%d]: invalid item %q/%q", i, it.Type, it.ID)
		}
	}

	var stats SeedStats
	for _, a := range seed.Actors {
		if err := w.PutActor(ctx, a.Type, a.ID); err != nil {
			return stats, fmt.Errorf("put actor %s: %w", recommend.ActorKey(a.Type, a.ID), err)
		}
		stats.Actors++
	}
	for i := range seed.Items {
		if err := w.PutItem(ctx, &seed.Items[i]); err != nil {
			return stats, fmt.Errorf("put item %s: %w", seed.Items[i].Key(), err)
		}
		stats.Items++
	}
	return stats, nil
}

// LoadSeedFile is LoadSeed on the file at path.
func LoadSeedFile(ctx context.Context, w Writer, path string) (SeedStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return SeedStats{}, fmt.Errorf("open catalog seed: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only
	return LoadSeed(ctx, w, f)
}
