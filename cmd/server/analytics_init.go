// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package main

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/analytics"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/config"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/logging"
)

// AnalyticsComponents holds the analytics bus services. Both are nil when
// analytics is disabled; Feedback is nil when the impression consumer is off.
type AnalyticsComponents struct {
	Emitter  *analytics.Emitter
	Feedback *analytics.FeedbackRouter

	closers []namedCloser
}

// Close releases the bus connections.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func (a *AnalyticsComponents) Close(logger zerolog.Logger) {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].close(); err != nil {
			logger.Error().Err(err).Str("component", a.closers[i].name).Msg("error closing analytics component")
		}
	}
}

// transport is a Watermill publisher with an optional subscriber.
type transport struct {
	publisher  message.Publisher
	subscriber message.Subscriber

	// shared is set when publisher and subscriber are the same Pub/Sub.
	shared bool
}

// newTransport connects the analytics bus. The gochannel transport serves
// both sides from one in-process Pub/Sub.
func newTransport(cfg *config.AnalyticsConfig, wmLogger watermill.LoggerAdapter) (*transport, error) {
	switch cfg.Transport {
	case config.TransportNATS:
		natsCfg := analytics.DefaultNATSConfig(cfg.NATS.URL)
		natsCfg.DurableName = cfg.NATS.DurableName
		natsCfg.QueueGroup = cfg.NATS.QueueGroup
		natsCfg.SubscribersCount = cfg.NATS.SubscribersCount
		natsCfg.MaxReconnects = cfg.NATS.MaxReconnects
		natsCfg.ReconnectWait = cfg.NATS.ReconnectWait

		pub, err := analytics.NewNATSPublisher(&natsCfg, wmLogger)
		if err != nil {
			return nil, err
		}
		t := &transport{publisher: pub}
		if cfg.FeedbackEnabled {
			sub, err := analytics.NewNATSSubscriber(&natsCfg, wmLogger)
			if err != nil {
				_ = pub.Close() //nolint:errcheck // already failing
				return nil, err
			}
			t.subscriber = sub
		}
		return t, nil

	case config.TransportGoChannel:
		ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: int64(cfg.QueueSize)}, wmLogger)
		return &transport{publisher: ps, subscriber: ps, shared: true}, nil

	default:
		return nil, fmt.Errorf("unknown analytics transport %q", cfg.Transport)
	}
}

func (t *transport) closers() []namedCloser {
	out := []namedCloser{{name: "analytics-publisher", close: t.publisher.Close}}
	if t.subscriber != nil && !t.shared {
		out = append(out, namedCloser{name: "analytics-subscriber", close: t.subscriber.Close})
	}
	return out
}

// initAnalytics builds the emitter and, when enabled, the impression
// consumer that records impressions through recorder. It returns nil when
// analytics is disabled.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func initAnalytics(cfg *config.AnalyticsConfig, recorder analytics.EventRecorder, logger zerolog.Logger) (*AnalyticsComponents, error) {
	if !cfg.Enabled {
		logger.Info().Msg("analytics disabled (ANALYTICS_ENABLED=false)")
		return nil, nil
	}

	wmLogger := logging.NewWatermillAdapter(logger.With().Str("component", "watermill").Logger())
	t, err := newTransport(cfg, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("connect analytics bus: %w", err)
	}

	a := &AnalyticsComponents{closers: t.closers()}
	emitterCfg := analytics.DefaultEmitterConfig()
	emitterCfg.QueueSize = cfg.QueueSize
	emitterCfg.PublishTimeout = cfg.PublishTimeout
	a.Emitter = analytics.NewEmitter(t.publisher, emitterCfg, logger)

	if cfg.FeedbackEnabled && t.subscriber != nil {
		routerCfg := analytics.DefaultRouterConfig()
		handler := analytics.NewImpressionHandler(recorder, logger)
		router, err := analytics.NewFeedbackRouter(&routerCfg, t.subscriber, handler, wmLogger)
		if err != nil {
			a.Close(logger)
			return nil, err
		}
		a.Feedback = router
	}

	logger.Info().
		Str("transport", cfg.Transport).
		Bool("feedback", a.Feedback != nil).
		Msg("analytics bus connected")
	return a, nil
}
