// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/training"
)

// TriggerFunc runs one training pass and returns when it is done.
// (*training.Coordinator).TriggerCollaborativeTraining and
// TriggerContentTraining have this shape.
type TriggerFunc func(ctx context.Context) training.Outcome

// ScheduleConfig configures one training cadence.
type ScheduleConfig struct {
	// Model names the schedule in logs ("collaborative", "content").
	Model string

	// Interval is the cadence: 24h for nightly, 168h for weekly.
	Interval time.Duration

	// Offset shifts runs inside the interval. Runs happen at
	// boundary+Offset, where boundaries are multiples of Interval counted
	// from Go's zero time, so a 24h interval with a 3h offset runs at
	// 03:00 UTC and a 168h interval with a 3h offset runs Mondays at 03:00
	// UTC.
	Offset time.Duration

	// RunOnStartup triggers one run as soon as the service starts.
	RunOnStartup bool
}

// TrainingScheduler triggers a training run on a fixed cadence. It is the
// in-process scheduler collaborator; external schedulers can use the HTTP
// trigger instead, and overlapping runs are skipped by the coordinator.
type TrainingScheduler struct {
	trigger TriggerFunc
	config  ScheduleConfig
	logger  zerolog.Logger
	now     func() time.Time
}

// NewTrainingScheduler creates a scheduler. A non-positive interval means
// 24h.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewTrainingScheduler(trigger TriggerFunc, cfg ScheduleConfig, logger zerolog.Logger) *TrainingScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	return &TrainingScheduler{
		trigger: trigger,
		config:  cfg,
		logger:  logger.With().Str("service", "training-scheduler").Str("model", cfg.Model).Logger(),
		now:     time.Now,
	}
}

// Serve implements suture.Service.
func (s *TrainingScheduler) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("run_on_startup", s.config.RunOnStartup).
		Dur("interval", s.config.Interval).
		Dur("offset", s.config.Offset).
		Msg("training scheduler starting")

	if s.config.RunOnStartup {
		s.run(ctx, "startup")
	}

	for {
		next := NextRun(s.now(), s.config.Interval, s.config.Offset)
		s.logger.Debug().Time("next_run", next).Msg("next training scheduled")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info().Msg("training scheduler stopped")
			return ctx.Err()
		case <-timer.C:
			s.run(ctx, "schedule")
		}
	}
}

func (s *TrainingScheduler) run(ctx context.Context, cause string) {
	start := time.Now()
	outcome := s.trigger(ctx)

	event := s.logger.Info()
	if outcome == training.OutcomeFailed {
		event = s.logger.Warn()
	}
	event.
		Str("cause", cause).
		Str("outcome", string(outcome)).
		Dur("duration", time.Since(start)).
		Msg("scheduled training finished")
}

// String implements fmt.Stringer for suture.
func (s *TrainingScheduler) String() string {
	return s.config.Model + "-training-scheduler"
}

// NextRun returns the first instant after now that is a multiple of
// interval (counted from the zero time.Time) plus offset.
func NextRun(now time.Time, interval, offset time.Duration) time.Time {
	now = now.UTC()
	next := now.Truncate(interval).Add(offset)
	for !next.After(now) {
		next = next.Add(interval)
	}
	return next
}
