// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

// Package recommend holds the shared vocabulary of the hybrid personalization
// engine: entity and event types, the static event weight table, catalog
// items, queries, the typed response records and the error taxonomy.
//
// # Architecture
//
// The engine is split into leaf-first subpackages:
//
//   - events: durable, deduplicated interaction log (Recorder, Log)
//   - algorithms: implicit ALS, TF-IDF, popularity and velocity math
//   - model: immutable model snapshots and the atomic Registry
//   - training: collaborative and content trainers with single-flight triggers
//   - serving: blended ranking, cold-start fallback and stable pagination
//   - bulk: multi-slice aggregation for dashboard widgets
//
// Data flows one way: catalog and interaction events feed the trainers,
// trainers publish to the Registry, and the serving layer reads whatever
// snapshot is current.
//
// # Keys
//
// Items of different target types may share raw identifiers, so models key
// actors as "actorType:actorId" and items as "targetType:itemId" (see
// ActorKey and ItemKey). Raw identifiers never contain ':'.
//
// # Usage
//
//	q := recommend.Query{ActorID: "u42", ActorType: recommend.ActorUser,
//	    TargetType: recommend.TargetProduct, Page: 1, Limit: 20}
//	result, err := engine.Query(ctx, q)
//	var verr *recommend.ValidationError
//	if errors.As(err, &verr) {
//	    // reject the request
//	}
//
// # Thread Safety
//
// All types in this package are plain values. Query and Item values are safe
// to share once constructed; nothing here mutates shared state.
package recommend
