// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package events

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
)

func openTestBadger(t *testing.T, path string) *BadgerLog {
	t.Helper()
	log, err := OpenBadgerLog(BadgerConfig{
		Path:        path,
		DedupWindow: 5 * time.Minute,
		Compression: true,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenBadgerLog() error = %v", err)
	}
	return log
}

func TestBadgerLog_AppendAndReadWindow(t *testing.T) {
	log := openTestBadger(t, t.TempDir())
	defer log.Close()
	ctx := context.Background()

	var batch []recommend.InteractionEvent
	for i := 0; i < 10; i++ {
		e := purchase("alice", fmt.Sprintf("p%d", i))
		e.ID = fmt.Sprintf("evt-%d", i)
		e.Weight = e.EventType.Weight()
		// Reverse order on input; the key layout sorts by time.
		e.OccurredAt = baseTime.Add(time.Duration(10-i) * time.Minute)
		batch = append(batch, e)
	}

	written, err := log.Append(ctx, batch)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if written != 10 {
		t.Fatalf("written = %d, want 10", written)
	}

	got, err := log.ReadWindow(ctx, baseTime.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("ReadWindow() error = %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("ReadWindow() returned %d events, want 6", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].OccurredAt.Before(got[i-1].OccurredAt) {
			t.Fatalf("events out of order at %d", i)
		}
	}
	if got[0].TargetID != "p5" || got[5].TargetID != "p0" {
		t.Errorf("window = %s..%s, want p5..p0", got[0].TargetID, got[5].TargetID)
	}
}

func TestBadgerLog_DurableDedupSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	e := purchase("alice", "laptop-1")
	e.ID = "first"
	e.OccurredAt = time.Now().UTC()

	log := openTestBadger(t, dir)
	if n, err := log.Append(ctx, []recommend.InteractionEvent{e}); err != nil || n != 1 {
		t.Fatalf("Append() = (%d, %v), want (1, nil)", n, err)
	}
	if err := log.Close(); err != nil {
		t.Fatal(err)
	}

	log = openTestBadger(t, dir)
	defer log.Close()

	retry := e
	retry.ID = "retry"
	n, err := log.Append(ctx, []recommend.InteractionEvent{retry})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("retry written = %d, want 0", n)
	}

	got, err := log.ReadWindow(ctx, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "first" {
		t.Errorf("stored %+v, want only the first event", got)
	}
}

func TestBadgerLog_Closed(t *testing.T) {
	log := openTestBadger(t, t.TempDir())
	if err := log.Close(); err != nil {
		t.Fatal(err)
	}
	if err := log.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if _, err := log.Append(context.Background(), nil); !errors.Is(err, ErrLogClosed) {
		t.Errorf("Append() error = %v, want ErrLogClosed", err)
	}
	if _, err := log.ReadWindow(context.Background(), time.Time{}); !errors.Is(err, ErrLogClosed) {
		t.Errorf("ReadWindow() error = %v, want ErrLogClosed", err)
	}
}

func TestOpenBadgerLog_InvalidConfig(t *testing.T) {
	if _, err := OpenBadgerLog(BadgerConfig{Path: t.TempDir()}, zerolog.Nop()); err == nil {
		t.Error("expected error for zero dedup window")
	}
	if _, err := OpenBadgerLog(BadgerConfig{DedupWindow: time.Minute}, zerolog.Nop()); err == nil {
		t.Error("expected error for empty path")
	}
}
