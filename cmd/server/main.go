// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/api"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/config"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/logging"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/model"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/supervisor"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("catalog", cfg.Catalog.Backend).
		Str("cache", cfg.Cache.Backend).
		Bool("analytics", cfg.Analytics.Enabled).
		Msg("Starting personalization engine with supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := initEngine(ctx, cfg, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize engine")
	}

	bus, err := initAnalytics(&cfg.Analytics, components.Recorder, logger)
	if err != nil {
		components.Close(logger)
		logging.Fatal().Err(err).Msg("Failed to initialize analytics")
	}
	if bus != nil && bus.Emitter != nil {
		components.Engine.SetNotifier(bus.Emitter)
		components.Coordinator.SetNotifier(bus.Emitter)
	}

	handler := api.NewHandler(api.Dependencies{
		Recommender: components.Engine,
		Bulk:        components.Aggregator,
		Recorder:    components.Recorder,
		Training:    components.Coordinator,
		Checks:      components.Checks,
	})

	middlewareCfg := api.DefaultChiMiddlewareConfig()
	middlewareCfg.CORSAllowedOrigins = cfg.API.CORSOrigins
	middlewareCfg.RateLimitRequests = cfg.API.RateLimitRequests
	middlewareCfg.RateLimitWindow = cfg.API.RateLimitWindow
	middlewareCfg.RateLimitDisabled = cfg.API.RateLimitDisabled
	middlewareCfg.InteractionRateLimitRequests = cfg.API.InteractionRateLimitRequests

	if cfg.API.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: CORS is configured with wildcard origin (CORS_ORIGINS=*)")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  Any website can read recommendations and post interactions.")
		logging.Warn().Msg("  RECOMMENDED: Set specific origins in production:")
		logging.Warn().Msg("    CORS_ORIGINS=https://shop.example.com")
		logging.Warn().Msg("============================================================")
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(handler, middlewareCfg).SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})

	// Data layer: interaction persistence.
	tree.AddDataService(components.Recorder)
	tree.AddDataService(services.NewEventLogGCService(
		components.EventLog, cfg.EventLog.GCInterval, cfg.EventLog.GCDiscardRatio, logger))

	// Messaging layer: analytics bus.
	if bus != nil {
		tree.AddMessagingService(bus.Emitter)
		if bus.Feedback != nil {
			tree.AddMessagingService(bus.Feedback)
		}
		logging.Info().Msg("Analytics services added to supervisor tree")
	}

	// Training layer: in-process schedules.
	if cfg.Schedule.Enabled {
		tree.AddTrainingService(services.NewTrainingScheduler(
			components.Coordinator.TriggerCollaborativeTraining,
			services.ScheduleConfig{
				Model:        model.TypeCollaborative,
				Interval:     cfg.Schedule.Collaborative.Interval,
				Offset:       cfg.Schedule.Collaborative.Offset,
				RunOnStartup: cfg.Schedule.RunOnStartup,
			}, logger))
		tree.AddTrainingService(services.NewTrainingScheduler(
			components.Coordinator.TriggerContentTraining,
			services.ScheduleConfig{
				Model:        model.TypeContent,
				Interval:     cfg.Schedule.Content.Interval,
				Offset:       cfg.Schedule.Content.Offset,
				RunOnStartup: cfg.Schedule.RunOnStartup,
			}, logger))
		logging.Info().
			Dur("collaborative_every", cfg.Schedule.Collaborative.Interval).
			Dur("content_every", cfg.Schedule.Content.Interval).
			Msg("Training schedules added to supervisor tree")
	} else {
		logging.Info().Msg("Training schedules disabled (TRAINING_SCHEDULE_ENABLED=false), use POST /api/v1/training")
	}

	// API layer.
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logger))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
		cancel()
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}

	// The recorder drains on shutdown; anything accepted after that is
	// persisted here before the log is closed.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := components.Recorder.Flush(flushCtx); err != nil {
		logging.Error().Err(err).Msg("Failed to flush interaction recorder")
	}
	flushCancel()

	bus.Close(logger)
	components.Close(logger)
	logging.Info().Msg("Personalization engine stopped")
}
