// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package recommend

import (
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/validation"
)

// SortBy selects the ranking of a query.
type SortBy string

// Supported orderings.
const (
	SortRecommended SortBy = "recommended"
	SortPopular     SortBy = "popular"
	SortHot         SortBy = "hot"
	SortEndingSoon  SortBy = "ending_soon"
	SortNewest      SortBy = "newest"
	SortSimilar     SortBy = "similar"
)

// Filters narrow the candidate set before ranking.
type Filters struct {
	// ExcludeIDs are raw item IDs the caller never wants to see.
	ExcludeIDs []string `json:"excludeIds,omitempty" validate:"max=500,dive,required"`

	// CategoryPrefix keeps items under a category path ("electronics/laptop").
	CategoryPrefix string `json:"category,omitempty" validate:"max=256"`

	// Hashtag keeps items carrying the hashtag.
	Hashtag string `json:"hashtag,omitempty" validate:"max=64"`

	// OwnerID keeps items owned by one shop.
	OwnerID string `json:"ownerId,omitempty" validate:"omitempty,entityid"`
}

// Query is one recommendation request.
type Query struct {
	// ActorID is optional; anonymous queries get popularity ranking.
	ActorID   string    `json:"actorId,omitempty" validate:"omitempty,entityid"`
	ActorType ActorType `json:"actorType,omitempty" validate:"omitempty,oneof=user shop"`

	TargetType TargetType `json:"targetType" validate:"required,oneof=product post shop flash_sale"`
	Page       int        `json:"page" validate:"gte=1,lte=10000"`
	Limit      int        `json:"limit" validate:"gte=1"`
	SortBy     SortBy     `json:"sortBy,omitempty" validate:"omitempty,oneof=recommended popular hot ending_soon newest similar"`

	// SimilarTo is the raw ID of the seed item for "more like this".
	SimilarTo string `json:"similarTo,omitempty" validate:"omitempty,entityid"`

	Filters Filters `json:"filters"`
}

// Normalize fills defaults in place: page 1, the given default limit,
// recommended ordering, user actors, and similar ordering when SimilarTo is set.
func (q *Query) Normalize(defaultLimit int) {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	if q.SortBy == "" {
		q.SortBy = SortRecommended
		if q.SimilarTo != "" {
			q.SortBy = SortSimilar
		}
	}
	if q.ActorID != "" && q.ActorType == "" {
		q.ActorType = ActorUser
	}
}

// Validate checks q against struct rules and the configured maximum page size.
func (q *Query) Validate(maxLimit int) error {
	if err := validation.ValidateStruct(q); err != nil {
		first := err.Errors()[0]
		return &ValidationError{Field: first.Field(), Message: first.Error()}
	}
	if q.Limit > maxLimit {
		return NewValidationError("limit", "limit must be at most %d", maxLimit)
	}
	if q.SortBy == SortSimilar && q.SimilarTo == "" {
		return NewValidationError("similarTo", "similarTo is required when sortBy is similar")
	}
	return nil
}

// ActorKey returns the model key of the querying actor, or "" for anonymous
// queries.
func (q *Query) ActorKey() string {
	if q.ActorID == "" {
		return ""
	}
	return ActorKey(q.ActorType, q.ActorID)
}

// ValidateEvent checks the structural rules of an interaction event.
func ValidateEvent(e *InteractionEvent) error {
	if err := validation.ValidateStruct(e); err != nil {
		first := err.Errors()[0]
		return &ValidationError{Field: first.Field(), Message: first.Error()}
	}
	return nil
}
