// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

// Package training orchestrates the collaborative and content trainers.
//
// Each model type has its own single-flight Runner: the two trainers may
// run at the same time, but a trigger that finds its own model type already
// training is skipped rather than queued. A run is bounded by
// Training.MaxDuration and publishes to the model.Registry only after the
// new model passed validation (and, for the collaborative model, the
// held-out regression guard). A failed run leaves the live model in place.
package training

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/analytics"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/metrics"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/model"
)

// Outcome is the result of a trigger.
type Outcome string

// Trigger outcomes.
const (
	OutcomePublished Outcome = "published"
	OutcomeDegraded  Outcome = "degraded"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// SnapshotSaver persists published models. *storage.SnapshotStore
// implements it.
type SnapshotSaver interface {
	SaveCollaborative(ctx context.Context, m *model.LatentFactorModel) error
	SaveContent(ctx context.Context, m *model.ContentVectorModel) error
}

// Notifier receives run reports. *analytics.Emitter implements it.
type Notifier interface {
	TrainingCompleted(ctx context.Context, r analytics.TrainingReport)
	TrainingFailed(ctx context.Context, r analytics.TrainingReport)
}

// ModelStatus describes the training state of one model type.
type ModelStatus struct {
	Model        string    `json:"model"`
	Running      bool      `json:"running"`
	LastRunAt    time.Time `json:"lastRunAt,omitempty"`
	LastOutcome  Outcome   `json:"lastOutcome,omitempty"`
	LastReason   string    `json:"lastReason,omitempty"`
	LastError    string    `json:"lastError,omitempty"`
	LastDuration string    `json:"lastDuration,omitempty"`
	Version      int64     `json:"version"`
	Degraded     bool      `json:"degraded"`
	HeldOutError float64   `json:"heldOutError,omitempty"`
}

// Status is the training state of both model types.
type Status struct {
	Collaborative ModelStatus `json:"collaborative"`
	Content       ModelStatus `json:"content"`
}

// Coordinator owns the trainers and publishes their results.
type Coordinator struct {
	registry      *model.Registry
	collaborative *CollaborativeTrainer
	content       *ContentTrainer
	saver         SnapshotSaver
	notifier      Notifier
	maxDuration   time.Duration
	logger        zerolog.Logger
	now           func() time.Time

	collabRunner  Runner
	contentRunner Runner

	mu     sync.Mutex
	status map[string]*ModelStatus
}

// CoordinatorConfig wires a Coordinator. Saver and Notifier are optional.
type CoordinatorConfig struct {
	Registry      *model.Registry
	Collaborative *CollaborativeTrainer
	Content       *ContentTrainer
	Saver         SnapshotSaver
	Notifier      Notifier
	Config        *recommend.Config
}

// NewCoordinator creates a Coordinator.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewCoordinator(cfg CoordinatorConfig, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		registry:      cfg.Registry,
		collaborative: cfg.Collaborative,
		content:       cfg.Content,
		saver:         cfg.Saver,
		notifier:      cfg.Notifier,
		maxDuration:   cfg.Config.Training.MaxDuration,
		logger:        logger.With().Str("component", "training").Logger(),
		now:           time.Now,
		status: map[string]*ModelStatus{
			model.TypeCollaborative: {Model: model.TypeCollaborative},
			model.TypeContent:       {Model: model.TypeContent},
		},
	}
}

// SetClock overrides the clock used for model timestamps.
func (c *Coordinator) SetClock(now func() time.Time) {
	c.now = now
}

// SetNotifier installs the analytics notifier. Call before the first run.
func (c *Coordinator) SetNotifier(n Notifier) {
	c.notifier = n
}

// TriggerCollaborativeTraining runs the collaborative trainer and returns
// when it is done. It is a no-op returning OutcomeSkipped when a
// collaborative run is already in progress.
func (c *Coordinator) TriggerCollaborativeTraining(ctx context.Context) Outcome {
	release, ok := c.collabRunner.TryAcquire()
	if !ok {
		return c.skipped(model.TypeCollaborative)
	}
	defer release()
	return c.runCollaborative(ctx)
}

// TriggerContentTraining runs the content trainer and returns when it is
// done, or returns OutcomeSkipped when a content run is in progress.
func (c *Coordinator) TriggerContentTraining(ctx context.Context) Outcome {
	release, ok := c.contentRunner.TryAcquire()
	if !ok {
		return c.skipped(model.TypeContent)
	}
	defer release()
	return c.runContent(ctx)
}

// StartCollaborativeTraining starts a collaborative run in the background.
// It reports false when a run was already in progress. The run outlives
// ctx's cancellation but keeps its values.
func (c *Coordinator) StartCollaborativeTraining(ctx context.Context) bool {
	release, ok := c.collabRunner.TryAcquire()
	if !ok {
		c.skipped(model.TypeCollaborative)
		return false
	}
	go func() {
		defer release()
		c.runCollaborative(context.WithoutCancel(ctx))
	}()
	return true
}

// StartContentTraining starts a content run in the background.
func (c *Coordinator) StartContentTraining(ctx context.Context) bool {
	release, ok := c.contentRunner.TryAcquire()
	if !ok {
		c.skipped(model.TypeContent)
		return false
	}
	go func() {
		defer release()
		c.runContent(context.WithoutCancel(ctx))
	}()
	return true
}

// Status returns a copy of the training state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	collab := *c.status[model.TypeCollaborative]
	collab.Running = c.collabRunner.Running()
	content := *c.status[model.TypeContent]
	content.Running = c.contentRunner.Running()
	return Status{Collaborative: collab, Content: content}
}

func (c *Coordinator) runCollaborative(ctx context.Context) Outcome {
	runCtx, cancel := c.bound(ctx)
	defer cancel()

	start := time.Now()
	live := c.registry.Current().Collaborative
	m, err := c.collaborative.Train(runCtx, c.now().UTC(), live)
	if err != nil {
		return c.failed(ctx, model.TypeCollaborative, start, err)
	}

	snap := c.registry.PublishCollaborative(m)
	if c.saver != nil {
		if err := c.saver.SaveCollaborative(ctx, m); err != nil {
			c.logger.Error().Err(err).Int64("version", m.Version).Msg("failed to persist collaborative model")
		}
	}

	outcome := OutcomePublished
	if m.Degraded {
		outcome = OutcomeDegraded
	}
	return c.published(ctx, model.TypeCollaborative, start, outcome, snap.Version, m.Version, m.Degraded, m.HeldOutError)
}

func (c *Coordinator) runContent(ctx context.Context) Outcome {
	runCtx, cancel := c.bound(ctx)
	defer cancel()

	start := time.Now()
	m, err := c.content.Train(runCtx, c.now().UTC())
	if err != nil {
		return c.failed(ctx, model.TypeContent, start, err)
	}

	snap := c.registry.PublishContent(m)
	if c.saver != nil {
		if err := c.saver.SaveContent(ctx, m); err != nil {
			c.logger.Error().Err(err).Int64("version", m.Version).Msg("failed to persist content model")
		}
	}
	return c.published(ctx, model.TypeContent, start, OutcomePublished, snap.Version, m.Version, false, 0)
}

// RecordSnapshotMetrics exports the model gauges of a published snapshot.
// Registering it with Registry.OnPublish before Restore also reports the
// models loaded from disk.
func RecordSnapshotMetrics(s *model.ModelSnapshot) {
	if m := s.Collaborative; m != nil {
		metrics.ModelHeldOutError.Set(m.HeldOutError)
		metrics.RecordPublishedModel(model.TypeCollaborative, m.Version, len(m.ActorIndex), len(m.ItemIndex))
	}
	if m := s.Content; m != nil {
		metrics.RecordPublishedModel(model.TypeContent, m.Version, 0, len(m.Vectors))
	}
}

func (c *Coordinator) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.maxDuration <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.maxDuration)
}

func (c *Coordinator) skipped(modelType string) Outcome {
	metrics.RecordTrainingRun(modelType, string(OutcomeSkipped), 0)
	c.logger.Info().Str("model", modelType).Msg("training already in progress, trigger skipped")
	return OutcomeSkipped
}

func (c *Coordinator) published(ctx context.Context, modelType string, start time.Time, outcome Outcome,
	snapshotVersion, version int64, degraded bool, heldOut float64,
) Outcome {
	duration := time.Since(start)
	metrics.RecordTrainingRun(modelType, string(outcome), duration)

	c.mu.Lock()
	st := c.status[modelType]
	st.LastRunAt = c.now().UTC()
	st.LastOutcome = outcome
	st.LastReason = ""
	st.LastError = ""
	st.LastDuration = duration.String()
	st.Version = version
	st.Degraded = degraded
	st.HeldOutError = heldOut
	c.mu.Unlock()

	c.logger.Info().
		Str("model", modelType).
		Str("outcome", string(outcome)).
		Int64("version", version).
		Int64("snapshot_version", snapshotVersion).
		Dur("duration", duration).
		Msg("model published")

	if c.notifier != nil {
		c.notifier.TrainingCompleted(ctx, analytics.TrainingReport{
			Model:        modelType,
			Outcome:      string(outcome),
			Version:      version,
			Degraded:     degraded,
			HeldOutError: heldOut,
			DurationMS:   duration.Milliseconds(),
			OccurredAt:   c.now().UTC(),
		})
	}
	return outcome
}

func (c *Coordinator) failed(ctx context.Context, modelType string, start time.Time, err error) Outcome {
	duration := time.Since(start)
	reason := failureReason(err)
	metrics.RecordTrainingRun(modelType, string(OutcomeFailed), duration)

	c.mu.Lock()
	st := c.status[modelType]
	st.LastRunAt = c.now().UTC()
	st.LastOutcome = OutcomeFailed
	st.LastReason = string(reason)
	st.LastError = err.Error()
	st.LastDuration = duration.String()
	c.mu.Unlock()

	c.logger.Error().
		Err(err).
		Str("model", modelType).
		Str("reason", string(reason)).
		Dur("duration", duration).
		Msg("training failed, previous model kept")

	if c.notifier != nil {
		c.notifier.TrainingFailed(ctx, analytics.TrainingReport{
			Model:      modelType,
			Outcome:    string(OutcomeFailed),
			Reason:     string(reason),
			Error:      err.Error(),
			DurationMS: duration.Milliseconds(),
			OccurredAt: c.now().UTC(),
		})
	}
	return OutcomeFailed
}
