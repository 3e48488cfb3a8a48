// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package training

import (
	"context"
	"errors"
	"fmt"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
)

// RegressionError is the cause of a regression-guard trip.
type RegressionError struct {
	HeldOutError float64
	LiveError    float64
	Tolerance    float64
}

func (e *RegressionError) Error() string {
	return fmt.Sprintf("held-out error %.6f exceeds live %.6f by more than %.0f%%",
		e.HeldOutError, e.LiveError, e.Tolerance*100)
}

// failure wraps err as a TrainingFailure. Once the run's context is done
// the reason is always timeout, whatever step noticed it.
func failure(ctx context.Context, modelType string, reason recommend.FailureReason, err error) *recommend.TrainingFailure {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		reason = recommend.FailureTimeout
	}
	return &recommend.TrainingFailure{Model: modelType, Reason: reason, Err: err}
}

// failureReason extracts the reason of a TrainingFailure, or "" for other
// errors.
func failureReason(err error) recommend.FailureReason {
	var tf *recommend.TrainingFailure
	if errors.As(err, &tf) {
		return tf.Reason
	}
	return ""
}
