// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/rs/zerolog"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
)

// EventRecorder accepts interaction events. *events.Recorder implements it.
type EventRecorder interface {
	Record(ctx context.Context, event recommend.InteractionEvent) error
}

// ImpressionHandler turns impression messages into view events.
type ImpressionHandler struct {
	recorder EventRecorder
	logger   zerolog.Logger
}

// NewImpressionHandler creates a handler recording into recorder.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewImpressionHandler(recorder EventRecorder, logger zerolog.Logger) *ImpressionHandler {
	return &ImpressionHandler{
		recorder: recorder,
		logger:   logger.With().Str("component", "impression-handler").Logger(),
	}
}

// Handle processes one message. Malformed payloads and invalid items are
// logged and acknowledged; redelivering them cannot succeed.
func (h *ImpressionHandler) Handle(msg *message.Message) error {
	imp, err := DecodeImpression(msg.Payload)
	if err != nil {
		h.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("discarding malformed impression")
		return nil
	}

	ctx := msg.Context()
	recorded := 0
	for _, itemID := range imp.ItemIDs {
		event := recommend.InteractionEvent{
			ActorID:    imp.ActorID,
			ActorType:  recommend.ActorType(imp.ActorType),
			TargetID:   itemID,
			TargetType: recommend.TargetType(imp.TargetType),
			EventType:  recommend.EventView,
			OccurredAt: imp.OccurredAt,
		}
		if err := h.recorder.Record(ctx, event); err != nil {
			if recommend.IsValidationError(err) {
				h.logger.Debug().Err(err).Str("item_id", itemID).Msg("skipping invalid impression item")
				continue
			}
			return fmt.Errorf("record impression of %s: %w", itemID, err)
		}
		recorded++
	}

	h.logger.Trace().
		Str("actor_id", imp.ActorID).
		Int("items", len(imp.ItemIDs)).
		Int("recorded", recorded).
		Msg("impression recorded")
	return nil
}

// RouterConfig holds the impression router settings.
type RouterConfig struct {
	CloseTimeout         time.Duration
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	// ThrottlePerSecond caps consumed impressions per second; 0 disables.
	ThrottlePerSecond int64
}

// DefaultRouterConfig returns production defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 500 * time.Millisecond,
		RetryMaxInterval:     10 * time.Second,
		RetryMultiplier:      2.0,
	}
}

// FeedbackRouter runs the impression consumer.
type FeedbackRouter struct {
	router *message.Router
}

// NewFeedbackRouter wires handler to the impression topic of subscriber.
func NewFeedbackRouter(cfg *RouterConfig, subscriber message.Subscriber, handler *ImpressionHandler, logger watermill.LoggerAdapter) (*FeedbackRouter, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if cfg == nil {
		def := DefaultRouterConfig()
		cfg = &def
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create impression router: %w", err)
	}

	router.AddMiddleware(middleware.Recoverer)
	retry := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      cfg.RetryMultiplier,
		Logger:          logger,
	}
	router.AddMiddleware(retry.Middleware)
	if cfg.ThrottlePerSecond > 0 {
		router.AddMiddleware(middleware.NewThrottle(cfg.ThrottlePerSecond, time.Second).Middleware)
	}

	router.AddConsumerHandler("impression-feedback", TopicImpression, subscriber, handler.Handle)
	return &FeedbackRouter{router: router}, nil
}

// Serve runs the router until ctx is canceled.
func (r *FeedbackRouter) Serve(ctx context.Context) error {
	if err := r.router.Run(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

// Running is closed once all handlers are subscribed.
func (r *FeedbackRouter) Running() chan struct{} {
	return r.router.Running()
}

// Close stops the router.
func (r *FeedbackRouter) Close() error {
	return r.router.Close()
}

// String implements fmt.Stringer for the supervisor.
func (r *FeedbackRouter) String() string {
	return "impression-feedback"
}
