// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/metrics"
)

// EmitterConfig configures the outbound analytics queue.
type EmitterConfig struct {
	// QueueSize bounds buffered messages; further messages are dropped.
	QueueSize int

	// PublishTimeout bounds a single publish call.
	PublishTimeout time.Duration

	// BreakerFailures consecutive publish failures open the circuit.
	BreakerFailures uint32

	// BreakerTimeout is how long the circuit stays open.
	BreakerTimeout time.Duration
}

// DefaultEmitterConfig returns production defaults.
func DefaultEmitterConfig() EmitterConfig {
	return EmitterConfig{
		QueueSize:       4096,
		PublishTimeout:  5 * time.Second,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

type outbound struct {
	topic string
	msg   *message.Message
}

// Emitter publishes analytics messages asynchronously. Every emit method
// returns immediately; Serve does the actual publishing.
type Emitter struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[interface{}]
	queue     chan outbound
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewEmitter creates an Emitter on top of any Watermill publisher.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEmitter(publisher message.Publisher, cfg EmitterConfig, logger zerolog.Logger) *Emitter {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultEmitterConfig().QueueSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultEmitterConfig().PublishTimeout
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = DefaultEmitterConfig().BreakerFailures
	}

	log := logger.With().Str("component", "analytics-emitter").Logger()
	breaker := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "analytics-publisher",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("analytics circuit breaker state changed")
		},
	})

	return &Emitter{
		publisher: publisher,
		breaker:   breaker,
		queue:     make(chan outbound, cfg.QueueSize),
		timeout:   cfg.PublishTimeout,
		logger:    log,
	}
}

// RecommendationServed queues a recommendation.served message.
//
//nolint:gocritic // payload is copied into the message
func (e *Emitter) RecommendationServed(_ context.Context, s Served) {
	s.SchemaVersion = SchemaVersion
	if s.OccurredAt.IsZero() {
		s.OccurredAt = time.Now().UTC()
	}
	e.enqueue(TopicRecommendationServed, s)
}

// TrainingCompleted queues a training.completed message.
//
//nolint:gocritic // payload is copied into the message
func (e *Emitter) TrainingCompleted(_ context.Context, r TrainingReport) {
	r.SchemaVersion = SchemaVersion
	e.enqueue(TopicTrainingCompleted, r)
}

// TrainingFailed queues a training.failed message.
//
//nolint:gocritic // payload is copied into the message
func (e *Emitter) TrainingFailed(_ context.Context, r TrainingReport) {
	r.SchemaVersion = SchemaVersion
	e.enqueue(TopicTrainingFailed, r)
}

func (e *Emitter) enqueue(topic string, payload interface{}) {
	msg, err := NewMessage(topic, payload)
	if err != nil {
		e.logger.Error().Err(err).Str("topic", topic).Msg("failed to encode analytics message")
		metrics.RecordAnalyticsPublish(topic, err)
		return
	}
	select {
	case e.queue <- outbound{topic: topic, msg: msg}:
	default:
		metrics.RecordAnalyticsDropped(topic)
		e.logger.Debug().Str("topic", topic).Msg("analytics queue full, message dropped")
	}
}

// Pending returns the number of queued messages.
func (e *Emitter) Pending() int {
	return len(e.queue)
}

// Serve publishes queued messages until ctx is canceled, then makes a final
// bounded attempt at whatever is still queued.
func (e *Emitter) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			e.drain()
			return ctx.Err()
		case out := <-e.queue:
			e.publish(ctx, out)
		}
	}
}

func (e *Emitter) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	for {
		select {
		case out := <-e.queue:
			if ctx.Err() != nil {
				metrics.RecordAnalyticsDropped(out.topic)
				continue
			}
			e.publish(ctx, out)
		default:
			return
		}
	}
}

func (e *Emitter) publish(ctx context.Context, out outbound) {
	_, err := e.breaker.Execute(func() (interface{}, error) {
		return nil, e.publishWithTimeout(ctx, out)
	})
	metrics.RecordAnalyticsPublish(out.topic, err)
	if err == nil {
		return
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		e.logger.Debug().Str("topic", out.topic).Msg("analytics circuit open, message dropped")
		return
	}
	e.logger.Warn().Err(err).Str("topic", out.topic).Str("message_uuid", out.msg.UUID).
		Msg("failed to publish analytics message")
}

func (e *Emitter) publishWithTimeout(ctx context.Context, out outbound) error {
	pubCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		out.msg.SetContext(pubCtx)
		done <- e.publisher.Publish(out.topic, out.msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("publish %s: %w", out.topic, err)
		}
		return nil
	case <-pubCtx.Done():
		return fmt.Errorf("publish %s: %w", out.topic, pubCtx.Err())
	}
}

// String implements fmt.Stringer for the supervisor.
func (e *Emitter) String() string {
	return "analytics-emitter"
}
