// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

// Package services adapts engine components to suture.Service.
//
// Components that already have a Serve(ctx) error method, such as
// events.Recorder, analytics.Emitter and analytics.FeedbackRouter, are added
// to the tree directly. This package holds the wrappers for the rest: the
// HTTP server, the training schedules and event log garbage collection.
package services
