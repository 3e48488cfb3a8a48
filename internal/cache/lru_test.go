// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package cache

import (
	"strconv"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU[int](3, time.Minute)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)
	c.Get("a")
	c.Add("d", 4)

	if _, ok := c.Get("b"); ok {
		t.Error("expected 'b' to be evicted")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("expected %q to be present", key)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}

func TestLRU_TTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU[string](10, time.Minute)
	c.SetClock(clock.Now)

	c.Add("k", "v")
	if v, ok := c.Get("k"); !ok || v != "v" {
		t.Fatalf("Get(k) = (%q, %v), want (v, true)", v, ok)
	}

	clock.Advance(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("expected entry to expire")
	}
}

func TestLRU_Seen(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU[struct{}](10, 5*time.Minute)
	c.SetClock(clock.Now)

	if c.Seen("u1|p1|view", struct{}{}) {
		t.Fatal("first Seen() = true, want false")
	}
	if !c.Seen("u1|p1|view", struct{}{}) {
		t.Fatal("second Seen() = false, want true")
	}

	clock.Advance(6 * time.Minute)
	if c.Seen("u1|p1|view", struct{}{}) {
		t.Error("Seen() after TTL = true, want false")
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 2 {
		t.Errorf("Stats() = (%d, %d), want (1, 2)", hits, misses)
	}
}

func TestLRU_ConcurrentSeen(t *testing.T) {
	c := NewLRU[struct{}](1000, time.Minute)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fresh int
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if !c.Seen("key-"+strconv.Itoa(i), struct{}{}) {
					mu.Lock()
					fresh++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if fresh != 100 {
		t.Errorf("fresh keys = %d, want 100", fresh)
	}
}
