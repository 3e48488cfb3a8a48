// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package algorithms

import (
	"math"
	"time"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
)

// Popularity returns the recency-decayed interaction mass per item key:
//
//	score(i) = sum over events on i of weight * 2^(-age / halfLife)
//
// Events in the future relative to now count at full weight.
//
//nolint:gocritic // rangeValCopy: events are iterated read-only
func Popularity(events []recommend.InteractionEvent, now time.Time, halfLife time.Duration) map[string]float64 {
	scores := make(map[string]float64)
	for _, e := range events {
		w := e.Weight
		if w <= 0 {
			w = e.EventType.Weight()
		}
		scores[e.ItemKey()] += w * Decay(now.Sub(e.OccurredAt), halfLife)
	}
	return scores
}

// PurchaseVelocity returns purchases per hour per item key over the
// window ending at now.
//
//nolint:gocritic // rangeValCopy: events are iterated read-only
func PurchaseVelocity(events []recommend.InteractionEvent, now time.Time, window time.Duration) map[string]float64 {
	hours := window.Hours()
	if hours <= 0 {
		return map[string]float64{}
	}

	since := now.Add(-window)
	velocity := make(map[string]float64)
	for _, e := range events {
		if e.EventType != recommend.EventPurchase {
			continue
		}
		if e.OccurredAt.Before(since) || e.OccurredAt.After(now) {
			continue
		}
		velocity[e.ItemKey()] += 1 / hours
	}
	return velocity
}

// Decay is the half-life decay factor for an age. Non-positive ages or
// half-lives yield 1.
func Decay(age, halfLife time.Duration) float64 {
	if age <= 0 || halfLife <= 0 {
		return 1
	}
	return math.Exp2(-float64(age) / float64(halfLife))
}

// Freshness is Decay applied to time since creation.
func Freshness(createdAt, now time.Time, halfLife time.Duration) float64 {
	if createdAt.IsZero() {
		return 0
	}
	return Decay(now.Sub(createdAt), halfLife)
}

// Urgency rises linearly from 0 to 1 as an active item approaches its
// expiry over the final horizon. Items without expiry score 0.
func Urgency(expiresAt, now time.Time, horizon time.Duration) float64 {
	if expiresAt.IsZero() || horizon <= 0 {
		return 0
	}
	left := expiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	if left >= horizon {
		return 0
	}
	return 1 - float64(left)/float64(horizon)
}
