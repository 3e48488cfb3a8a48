// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

// Package analytics carries the engine's side channel to the rest of the
// platform: "recommendation served" and training outcome messages go out
// over Watermill, and consumer-observed impressions come back in and are
// recorded as view events.
//
// Publishing is best effort. A slow or unavailable broker never delays a
// recommendation query or a training run.
package analytics

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// SchemaVersion is stamped on every outbound message.
const SchemaVersion = 1

// Topics.
const (
	TopicRecommendationServed = "recommendation.served"
	TopicTrainingCompleted    = "training.completed"
	TopicTrainingFailed       = "training.failed"
	TopicImpression           = "recommendation.impression"
)

// Message metadata keys.
const (
	MetadataSchemaVersion = "schema_version"
	MetadataEventType     = "event_type"
)

// Served describes one answered recommendation query, for offline
// evaluation of ranking quality.
type Served struct {
	SchemaVersion int       `json:"schemaVersion"`
	RequestID     string    `json:"requestId,omitempty"`
	ActorID       string    `json:"actorId,omitempty"`
	ActorType     string    `json:"actorType,omitempty"`
	TargetType    string    `json:"targetType"`
	SortBy        string    `json:"sortBy"`
	ReasonCode    string    `json:"reasonCode"`
	Personalized  bool      `json:"personalized"`
	ModelVersion  int64     `json:"modelVersion"`
	ItemIDs       []string  `json:"itemIds"`
	Page          int       `json:"page"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// TrainingReport describes the end of one training run.
type TrainingReport struct {
	SchemaVersion int       `json:"schemaVersion"`
	Model         string    `json:"model"`
	Outcome       string    `json:"outcome"`
	Reason        string    `json:"reason,omitempty"`
	Error         string    `json:"error,omitempty"`
	Version       int64     `json:"version,omitempty"`
	Degraded      bool      `json:"degraded,omitempty"`
	HeldOutError  float64   `json:"heldOutError,omitempty"`
	DurationMS    int64     `json:"durationMs"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Impression is a batch of items a consumer actually displayed to an actor.
type Impression struct {
	ActorID    string    `json:"actorId"`
	ActorType  string    `json:"actorType"`
	TargetType string    `json:"targetType"`
	ItemIDs    []string  `json:"itemIds"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewMessage encodes payload as a Watermill message with a fresh UUID and
// the schema metadata set.
func NewMessage(eventType string, payload interface{}) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", eventType, err)
	}
	msg := message.NewMessage(uuid.New().String(), data)
	msg.Metadata.Set(MetadataSchemaVersion, fmt.Sprint(SchemaVersion))
	msg.Metadata.Set(MetadataEventType, eventType)
	return msg, nil
}

// DecodeImpression parses an impression message payload.
func DecodeImpression(payload []byte) (*Impression, error) {
	var imp Impression
	if err := json.Unmarshal(payload, &imp); err != nil {
		return nil, fmt.Errorf("unmarshal impression: %w", err)
	}
	return &imp, nil
}
