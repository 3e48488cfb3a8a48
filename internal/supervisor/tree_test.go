// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

// mockService fails failures times, then runs until canceled.
type mockService struct {
	name     string
	failures int32
	starts   atomic.Int32
	stops    atomic.Int32
}

func (m *mockService) Serve(ctx context.Context) error {
	n := m.starts.Add(1)
	defer m.stops.Add(1)
	if n <= m.failures {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockService) String() string { return m.name }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewTree_Defaults(t *testing.T) {
	tree := NewTree(quietLogger(), TreeConfig{})
	want := DefaultTreeConfig()
	if tree.config != want {
		t.Errorf("config = %+v, want %+v", tree.config, want)
	}

	custom := TreeConfig{FailureThreshold: 2, FailureDecay: 1, FailureBackoff: time.Second, ShutdownTimeout: time.Second}
	if got := NewTree(quietLogger(), custom).config; got != custom {
		t.Errorf("custom config = %+v", got)
	}
}

func TestTree_RunsEveryLayer(t *testing.T) {
	tree := NewTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})

	layers := []*mockService{
		{name: "recorder"},
		{name: "emitter"},
		{name: "scheduler"},
		{name: "http"},
	}
	tree.AddDataService(layers[0])
	tree.AddMessagingService(layers[1])
	tree.AddTrainingService(layers[2])
	tree.AddAPIService(layers[3])

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	for _, svc := range layers {
		svc := svc
		waitFor(t, svc.name+" to start", func() bool { return svc.starts.Load() == 1 })
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop")
	}
	for _, svc := range layers {
		if svc.stops.Load() != 1 {
			t.Errorf("%s stopped %d times", svc.name, svc.stops.Load())
		}
	}

	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport() error = %v", err)
	}
	if len(report) != 0 {
		t.Errorf("unstopped services: %v", report)
	}
}

func TestTree_RestartsFailedService(t *testing.T) {
	tree := NewTree(quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	flaky := &mockService{name: "flaky-scheduler", failures: 2}
	steady := &mockService{name: "http"}
	tree.AddTrainingService(flaky)
	tree.AddAPIService(steady)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	waitFor(t, "flaky service to recover", func() bool { return flaky.starts.Load() >= 3 })

	// A crash in the training layer never restarts the API layer.
	if steady.starts.Load() != 1 {
		t.Errorf("api service started %d times", steady.starts.Load())
	}

	cancel()
	<-errCh
}
