// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package api

import (
	"context"
	"time"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/bulk"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/training"
)

// Recommender answers single-list queries. *serving.Engine implements it.
type Recommender interface {
	Query(ctx context.Context, q recommend.Query) (*recommend.Result, error)
}

// BulkAggregator answers home-screen bulk queries. *bulk.Aggregator
// implements it.
type BulkAggregator interface {
	Aggregate(ctx context.Context, req bulk.Request) (*bulk.Response, error)
}

// InteractionRecorder accepts interaction events. *events.Recorder
// implements it.
type InteractionRecorder interface {
	Record(ctx context.Context, event recommend.InteractionEvent) error
}

// TrainingController starts training runs in the background.
// *training.Coordinator implements it.
type TrainingController interface {
	StartCollaborativeTraining(ctx context.Context) bool
	StartContentTraining(ctx context.Context) bool
	Status() training.Status
}

// ReadinessCheck reports whether one dependency can serve traffic.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Dependencies wires a Handler. Every field except Checks is required.
type Dependencies struct {
	Recommender Recommender
	Bulk        BulkAggregator
	Recorder    InteractionRecorder
	Training    TrainingController
	Checks      []ReadinessCheck
}

// Handler implements the HTTP endpoints.
type Handler struct {
	recommender Recommender
	bulk        BulkAggregator
	recorder    InteractionRecorder
	training    TrainingController
	checks      []ReadinessCheck
	startTime   time.Time
}

// NewHandler creates a Handler.
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		recommender: deps.Recommender,
		bulk:        deps.Bulk,
		recorder:    deps.Recorder,
		training:    deps.Training,
		checks:      deps.Checks,
		startTime:   time.Now(),
	}
}

// RecommendationData is the payload of a single-list response.
type RecommendationData struct {
	Items      []recommend.RecommendationItem `json:"items"`
	Pagination recommend.Pagination           `json:"pagination"`
	Metadata   recommend.SliceMetadata        `json:"metadata"`
}

func newRecommendationData(res *recommend.Result) RecommendationData {
	items := res.Items
	if items == nil {
		items = []recommend.RecommendationItem{}
	}
	return RecommendationData{
		Items:      items,
		Pagination: res.Pagination,
		Metadata:   res.Metadata(),
	}
}
