// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
)

const seedDoc = `{
  "actors": [{"type": "user", "id": "u1"}, {"type": "shop", "id": "s1"}],
  "items": [
    {"id": "p1", "type": "product", "ownerId": "s1", "name": "Summer dress", "categoryPath": ["fashion"], "createdAt": "2026-06-01T10:00:00Z"},
    {"id": "f1", "type": "flash_sale", "name": "Midnight sale", "expiresAt": "2026-06-02T00:00:00Z"}
  ]
}`

func TestLoadSeed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	stats, err := LoadSeed(ctx, m, strings.NewReader(seedDoc))
	if err != nil {
		t.Fatalf("LoadSeed() error = %v", err)
	}
	if stats.Actors != 2 || stats.Items != 2 {
		t.Errorf("stats = %+v, want 2 actors and 2 items", stats)
	}

	if ok, _ := m.ActorExists(ctx, recommend.ActorShop, "s1"); !ok {
		t.Error("shop s1 not loaded")
	}
	items, _ := m.Items(ctx, recommend.TargetFlashSale)
	if len(items) != 1 || items[0].ExpiresAt.IsZero() {
		t.Errorf("flash sales = %+v", items)
	}
}

func TestLoadSeed_RejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", `{"items": [`},
		{"unknown field", `{"products": []}`},
		{"bad actor type", `{"actors": [{"type": "admin", "id": "a1"}]}`},
		{"missing item id", `{"items": [{"type": "product", "name": "x"}]}`},
		{"bad item type", `{"items": [{"id": "x1", "type": "video"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMemory()
			if _, err := LoadSeed(context.Background(), m, strings.NewReader(tt.doc)); err == nil {
				t.Fatal("LoadSeed() error = nil")
			}
			// Nothing is written from a rejected document.
			if ok, _ := m.ActorExists(context.Background(), recommend.ActorUser, "u1"); ok {
				t.Error("catalog modified")
			}
		})
	}
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	if err := os.WriteFile(path, []byte(seedDoc), 0o600); err != nil {
		t.Fatal(err)
	}
	m := NewMemory()
	if _, err := LoadSeedFile(context.Background(), m, path); err != nil {
		t.Fatalf("LoadSeedFile() error = %v", err)
	}
	if ok, _ := m.ItemExists(context.Background(), recommend.TargetProduct, "p1"); !ok {
		t.Error("product p1 not loaded")
	}

	if _, err := LoadSeedFile(context.Background(), m, filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file error = nil")
	}
}
