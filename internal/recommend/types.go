// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package recommend

import (
	"strconv"
	"strings"
	"time"
)

// ActorType identifies who performed an interaction.
type ActorType string

// Supported actor types.
const (
	ActorUser ActorType = "user"
	ActorShop ActorType = "shop"
)

// Valid reports whether t is a supported actor type.
func (t ActorType) Valid() bool {
	return t == ActorUser || t == ActorShop
}

// TargetType identifies the kind of catalog entity being recommended.
type TargetType string

// Supported target types.
const (
	TargetProduct   TargetType = "product"
	TargetPost      TargetType = "post"
	TargetShop      TargetType = "shop"
	TargetFlashSale TargetType = "flash_sale"
)

// TargetTypes returns all supported target types in a fixed order.
func TargetTypes() []TargetType {
	return []TargetType{TargetProduct, TargetPost, TargetShop, TargetFlashSale}
}

// Valid reports whether t is a supported target type.
func (t TargetType) Valid() bool {
	switch t {
	case TargetProduct, TargetPost, TargetShop, TargetFlashSale:
		return true
	}
	return false
}

// EventType is the behavioral signal carried by an interaction.
type EventType string

// Supported event types.
const (
	EventView     EventType = "view"
	EventLike     EventType = "like"
	EventComment  EventType = "comment"
	EventShare    EventType = "share"
	EventFollow   EventType = "follow"
	EventPurchase EventType = "purchase"
)

// eventWeights is the only place raw behavior becomes a number.
var eventWeights = map[EventType]float64{
	EventView:     1,
	EventLike:     3,
	EventComment:  4,
	EventShare:    5,
	EventFollow:   8,
	EventPurchase: 10,
}

// Valid reports whether e is a supported event type.
func (e EventType) Valid() bool {
	_, ok := eventWeights[e]
	return ok
}

// Weight returns the static weight of e, or 0 for unknown types.
func (e EventType) Weight() float64 {
	return eventWeights[e]
}

// Owning reports whether the event marks the target as already owned by the
// actor (a purchased product or a followed shop).
func (e EventType) Owning() bool {
	return e == EventPurchase || e == EventFollow
}

const keySeparator = ":"

// ActorKey builds the model key for an actor.
func ActorKey(t ActorType, id string) string {
	return string(t) + keySeparator + id
}

// ItemKey builds the model key for a catalog item.
func ItemKey(t TargetType, id string) string {
	return string(t) + keySeparator + id
}

// InteractionEvent is one weighted behavioral signal. It is immutable once
// recorded.
type InteractionEvent struct {
	// ID is assigned by the store when the event is accepted.
	ID string `json:"id,omitempty"`

	// ActorID identifies the user or shop performing the action.
	ActorID string `json:"actorId" validate:"required,entityid"`

	// ActorType is user or shop.
	ActorType ActorType `json:"actorType" validate:"required,oneof=user shop"`

	// TargetID identifies the catalog entity acted upon.
	TargetID string `json:"targetId" validate:"required,entityid"`

	// TargetType is product, post, shop or flash_sale.
	TargetType TargetType `json:"targetType" validate:"required,oneof=product post shop flash_sale"`

	// EventType is the behavioral signal.
	EventType EventType `json:"eventType" validate:"required,oneof=view like comment share follow purchase"`

	// Weight is taken from the static table when the event is recorded.
	Weight float64 `json:"weight"`

	// OccurredAt is when the action happened. Zero means "now" at record time.
	OccurredAt time.Time `json:"occurredAt"`
}

// ActorKey returns the model key of the event's actor.
//
//nolint:gocritic // value receiver keeps events immutable
func (e InteractionEvent) ActorKey() string {
	return ActorKey(e.ActorType, e.ActorID)
}

// ItemKey returns the model key of the event's target.
//
//nolint:gocritic // value receiver keeps events immutable
func (e InteractionEvent) ItemKey() string {
	return ItemKey(e.TargetType, e.TargetID)
}

// DedupKey identifies repeats of the same (actor, target, eventType) inside
// one time bucket of the given width.
//
//nolint:gocritic // value receiver keeps events immutable
func (e InteractionEvent) DedupKey(bucket time.Duration) string {
	var b strings.Builder
	b.Grow(len(e.ActorID) + len(e.TargetID) + 48)
	b.WriteString(e.ActorKey())
	b.WriteByte('|')
	b.WriteString(e.ItemKey())
	b.WriteByte('|')
	b.WriteString(string(e.EventType))
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(e.OccurredAt.UTC().Truncate(bucket).Unix(), 10))
	return b.String()
}

// Item is the catalog metadata the engine needs about a recommendable entity.
type Item struct {
	ID           string     `json:"id"`
	Type         TargetType `json:"type"`
	OwnerID      string     `json:"ownerId,omitempty"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Hashtags     []string   `json:"hashtags,omitempty"`
	CategoryPath []string   `json:"categoryPath,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`

	// StartsAt and ExpiresAt bound time-boxed entities such as flash sales.
	// Zero values mean unbounded.
	StartsAt  time.Time `json:"startsAt,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`

	// Hidden items are never recommended.
	Hidden bool `json:"hidden,omitempty"`
}

// Key returns the model key of the item.
func (i *Item) Key() string {
	return ItemKey(i.Type, i.ID)
}

// Active reports whether the item is visible and inside its time window.
func (i *Item) Active(now time.Time) bool {
	if i.Hidden {
		return false
	}
	if !i.StartsAt.IsZero() && now.Before(i.StartsAt) {
		return false
	}
	if !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt) {
		return false
	}
	return true
}

// InCategory reports whether the item's category path starts with prefix,
// compared segment by segment and case-insensitively. prefix uses '/' as the
// separator ("electronics/laptop").
func (i *Item) InCategory(prefix string) bool {
	segments := strings.Split(strings.Trim(prefix, "/"), "/")
	if len(segments) > len(i.CategoryPath) {
		return false
	}
	for n, s := range segments {
		if !strings.EqualFold(s, i.CategoryPath[n]) {
			return false
		}
	}
	return true
}

// HasHashtag reports whether the item carries tag, ignoring a leading '#'
// and case.
func (i *Item) HasHashtag(tag string) bool {
	tag = strings.TrimPrefix(tag, "#")
	for _, h := range i.Hashtags {
		if strings.EqualFold(strings.TrimPrefix(h, "#"), tag) {
			return true
		}
	}
	return false
}

// Reason codes attached to items and responses.
const (
	ReasonPersonalized        = "personalized"
	ReasonSimilarToHistory    = "similar_to_history"
	ReasonCollaborative       = "collaborative"
	ReasonPopular             = "popular"
	ReasonTrending            = "trending"
	ReasonEndingSoon          = "ending_soon"
	ReasonNewest              = "newest"
	ReasonSimilarItems        = "similar_items"
	ReasonInsufficientHistory = "insufficient_history"
	ReasonModelUnavailable    = "model_unavailable"
	ReasonScoringTimeout      = "scoring_timeout"
	ReasonCatalogUnavailable  = "catalog_unavailable"
	ReasonItemUnknown         = "item_unknown"
)

// RecommendationItem is one ranked entry of a result page.
type RecommendationItem struct {
	ItemID     string  `json:"itemId"`
	Score      float64 `json:"score"`
	ReasonCode string  `json:"reasonCode"`
}

// Pagination describes the page returned out of the full ranked list.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalCount int  `json:"totalCount"`
	HasNext    bool `json:"hasNext"`
}

// NewPagination computes page bounds for a ranked list of total entries.
func NewPagination(page, limit, total int) Pagination {
	return Pagination{
		Page:       page,
		Limit:      limit,
		TotalCount: total,
		HasNext:    page*limit < total,
	}
}

// Bounds returns the half-open slice range of the page inside the full list.
func (p Pagination) Bounds() (start, end int) {
	start = (p.Page - 1) * p.Limit
	if start > p.TotalCount {
		start = p.TotalCount
	}
	end = start + p.Limit
	if end > p.TotalCount {
		end = p.TotalCount
	}
	return start, end
}

// SliceMetadata lets consumers tell personalization apart from fallback.
type SliceMetadata struct {
	HasData               bool      `json:"hasData"`
	IsRecommendationBased bool      `json:"isRecommendationBased"`
	ReasonCode            string    `json:"reasonCode"`
	Timestamp             time.Time `json:"timestamp"`
}

// Result is one answered query.
type Result struct {
	TargetType     TargetType           `json:"targetType"`
	Items          []RecommendationItem `json:"items"`
	Pagination     Pagination           `json:"pagination"`
	IsPersonalized bool                 `json:"isPersonalized"`
	ReasonCode     string               `json:"reasonCode"`
	ModelVersion   int64                `json:"modelVersion"`
	GeneratedAt    time.Time            `json:"generatedAt"`
}

// Metadata summarizes the result for response envelopes.
func (r *Result) Metadata() SliceMetadata {
	return SliceMetadata{
		HasData:               len(r.Items) > 0,
		IsRecommendationBased: r.IsPersonalized,
		ReasonCode:            r.ReasonCode,
		Timestamp:             r.GeneratedAt,
	}
}
