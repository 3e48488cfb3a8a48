// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package algorithms

import (
	"math"
	"testing"
	"time"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
)

func TestPopularity_Decay(t *testing.T) {
	now := baseTime
	fresh := event("a", "fresh", recommend.EventPurchase)
	fresh.OccurredAt = now
	old := event("a", "old", recommend.EventPurchase)
	old.OccurredAt = now.Add(-7 * 24 * time.Hour)

	scores := Popularity([]recommend.InteractionEvent{fresh, old}, now, 7*24*time.Hour)
	if got := scores["product:fresh"]; got != 10 {
		t.Errorf("fresh = %f, want 10", got)
	}
	if got := scores["product:old"]; math.Abs(got-5) > 1e-9 {
		t.Errorf("old = %f, want 5 (one half-life)", got)
	}
}

func TestPurchaseVelocity(t *testing.T) {
	now := baseTime
	var events []recommend.InteractionEvent
	for i := 0; i < 6; i++ {
		e := event("a", "hot", recommend.EventPurchase)
		e.OccurredAt = now.Add(-time.Duration(i) * time.Hour)
		events = append(events, e)
	}
	stale := event("a", "hot", recommend.EventPurchase)
	stale.OccurredAt = now.Add(-48 * time.Hour)
	view := event("a", "hot", recommend.EventView)
	events = append(events, stale, view)

	v := PurchaseVelocity(events, now, 24*time.Hour)
	if got := v["product:hot"]; math.Abs(got-6.0/24) > 1e-9 {
		t.Errorf("velocity = %f, want %f", got, 6.0/24)
	}
}

func TestUrgency(t *testing.T) {
	now := baseTime
	tests := []struct {
		name    string
		expires time.Time
		want    float64
	}{
		{"no expiry", time.Time{}, 0},
		{"expired", now.Add(-time.Minute), 0},
		{"far away", now.Add(48 * time.Hour), 0},
		{"half horizon", now.Add(12 * time.Hour), 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Urgency(tt.expires, now, 24*time.Hour); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Urgency() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestFreshness(t *testing.T) {
	if got := Freshness(time.Time{}, baseTime, time.Hour); got != 0 {
		t.Errorf("zero createdAt = %f, want 0", got)
	}
	if got := Freshness(baseTime.Add(-time.Hour), baseTime, time.Hour); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("one half-life = %f, want 0.5", got)
	}
}

func TestNormalizeMax(t *testing.T) {
	got := NormalizeMax(map[string]float64{"a": 2, "b": 4, "c": 0})
	if got["b"] != 1 || got["a"] != 0.5 || got["c"] != 0 {
		t.Errorf("NormalizeMax() = %v", got)
	}
}
