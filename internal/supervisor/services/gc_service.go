// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// GarbageCollector is implemented by *events.BadgerLog.
type GarbageCollector interface {
	RunGC(discardRatio float64) error
}

// EventLogGCService periodically reclaims space in the interaction log's
// value files. Badger never rewrites them on its own.
type EventLogGCService struct {
	gc           GarbageCollector
	interval     time.Duration
	discardRatio float64
	logger       zerolog.Logger
}

// NewEventLogGCService creates the service. Defaults: every 10 minutes,
// discard ratio 0.5.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEventLogGCService(gc GarbageCollector, interval time.Duration, discardRatio float64, logger zerolog.Logger) *EventLogGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if discardRatio <= 0 || discardRatio >= 1 {
		discardRatio = 0.5
	}
	return &EventLogGCService{
		gc:           gc,
		interval:     interval,
		discardRatio: discardRatio,
		logger:       logger.With().Str("service", "event-log-gc").Logger(),
	}
}

// Serve implements suture.Service. GC failures are logged and retried on
// the next tick; they never restart the service.
func (s *EventLogGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.gc.RunGC(s.discardRatio); err != nil {
				s.logger.Warn().Err(err).Msg("event log GC failed")
				continue
			}
			s.logger.Debug().Dur("duration", time.Since(start)).Msg("event log GC complete")
		}
	}
}

// String implements fmt.Stringer for suture.
func (s *EventLogGCService) String() string {
	return "event-log-gc"
}
