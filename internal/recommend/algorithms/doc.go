// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

// Package algorithms holds the numerical core of the personalization
// engine. Everything here is a pure function of its inputs: no clocks, no
// storage, no logging. The trainers in package training own orchestration.
//
// # Collaborative Filtering
//
// BuildInteractionMatrix aggregates weighted events into a sparse
// actor x item matrix and drops actors and items whose aggregated
// confidence falls below the configured threshold. TrainALS then fits
// implicit-feedback factors (Hu, Koren, Volinsky 2008):
//
//	minimize  sum_{u,i} c_ui (p_ui - x_u . y_i)^2 + lambda (||X||^2 + ||Y||^2)
//	p_ui = 1 if u interacted with i, else 0
//	c_ui = 1 + alpha * weightSum(u, i)
//
// by alternating closed-form solves of X and Y. Each solve is a small
// positive-definite system handled by a Cholesky factorization.
//
// # Content Similarity
//
// Tokenize folds text into lower-case, accent-free terms. BuildTFIDF
// weights them as tf * log(N/df) and L2-normalizes each item vector so
// cosine similarity is a sparse dot product.
//
// # Popularity
//
// Popularity and PurchaseVelocity aggregate the same window into the
// always-available fallback signals.
package algorithms
