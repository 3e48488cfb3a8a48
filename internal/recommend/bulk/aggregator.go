// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

// Package bulk computes the named recommendation slices a home screen
// renders in one round trip.
//
// Every slice is an independent serving query with its own sort mode. The
// slices run concurrently and each carries its own metadata, so a caller
// can tell a personalized "recommended" slice apart from a fallback one
// without another request.
package bulk

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/validation"
)

// Querier answers one recommendation query. *serving.Engine implements it.
type Querier interface {
	Query(ctx context.Context, q recommend.Query) (*recommend.Result, error)
}

// Slice names, also used as JSON keys of the response.
const (
	SliceRecommended = "recommended"
	SliceHot         = "hot"
	SliceEndingSoon  = "endingSoon"
	SliceNewest      = "newest"
)

// Request is the shared actor context of a bulk call.
type Request struct {
	ActorID    string               `json:"actorId,omitempty" validate:"omitempty,entityid"`
	ActorType  recommend.ActorType  `json:"actorType,omitempty" validate:"omitempty,oneof=user shop"`
	TargetType recommend.TargetType `json:"targetType" validate:"required,oneof=product post shop flash_sale"`
	Limit      int                  `json:"limit" validate:"gte=0"`
	Filters    recommend.Filters    `json:"filters"`
}

// Slice is one named list of a bulk response.
type Slice struct {
	Items      []recommend.RecommendationItem `json:"items"`
	Pagination recommend.Pagination           `json:"pagination"`
	Metadata   recommend.SliceMetadata        `json:"metadata"`
}

// Response holds every slice. Slices are always present; an empty one has
// HasData false.
type Response struct {
	Recommended Slice `json:"recommended"`
	Hot         Slice `json:"hot"`
	EndingSoon  Slice `json:"endingSoon"`
	Newest      Slice `json:"newest"`
}

// Aggregator fans a bulk request out to the serving layer.
type Aggregator struct {
	querier Querier
}

// NewAggregator creates an Aggregator.
func NewAggregator(querier Querier) *Aggregator {
	return &Aggregator{querier: querier}
}

// Aggregate computes all slices for req. It fails only on invalid input;
// degraded slices come back with a fallback reason code.
//
//nolint:gocritic // hugeParam: req is copied into each slice query
func (a *Aggregator) Aggregate(ctx context.Context, req Request) (*Response, error) {
	if err := validation.ValidateStruct(&req); err != nil {
		first := err.Errors()[0]
		return nil, &recommend.ValidationError{Field: first.Field(), Message: first.Error()}
	}

	resp := &Response{}
	slices := []struct {
		sortBy recommend.SortBy
		out    *Slice
	}{
		{recommend.SortRecommended, &resp.Recommended},
		{recommend.SortHot, &resp.Hot},
		{recommend.SortEndingSoon, &resp.EndingSoon},
		{recommend.SortNewest, &resp.Newest},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range slices {
		g.Go(func() error {
			res, err := a.querier.Query(gctx, recommend.Query{
				ActorID:    req.ActorID,
				ActorType:  req.ActorType,
				TargetType: req.TargetType,
				Page:       1,
				Limit:      req.Limit,
				SortBy:     s.sortBy,
				Filters:    req.Filters,
			})
			if err != nil {
				return err
			}
			*s.out = sliceOf(res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resp, nil
}

func sliceOf(res *recommend.Result) Slice {
	items := res.Items
	if items == nil {
		items = []recommend.RecommendationItem{}
	}
	meta := res.Metadata()
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now().UTC()
	}
	return Slice{Items: items, Pagination: res.Pagination, Metadata: meta}
}
