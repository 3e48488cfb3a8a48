// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package recommend

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input (pagination, filters, events).
// It is the only error the serving layer returns to callers.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// ErrModelUnavailable matches every ModelUnavailableError via errors.Is.
var ErrModelUnavailable = errors.New("model unavailable")

// ModelUnavailableError means no trained model of the named kind exists yet.
// It is not fatal; callers fall back to popularity ranking.
type ModelUnavailableError struct {
	Model string
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("no trained %s model available", e.Model)
}

// Is makes errors.Is(err, ErrModelUnavailable) true.
func (e *ModelUnavailableError) Is(target error) bool {
	return target == ErrModelUnavailable
}

// FailureReason classifies why a training run did not publish.
type FailureReason string

// Training failure reasons.
const (
	FailureDataSource     FailureReason = "data_source"
	FailureNonConvergence FailureReason = "non_convergence"
	FailureRegression     FailureReason = "regression"
	FailureTimeout        FailureReason = "timeout"
	FailureInvalidModel   FailureReason = "invalid_model"
)

// TrainingFailure is an operational signal: the run aborted and the previous
// model stays live.
type TrainingFailure struct {
	Model  string
	Reason FailureReason
	Err    error
}

func (e *TrainingFailure) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s training failed: %s", e.Model, e.Reason)
	}
	return fmt.Sprintf("%s training failed: %s: %v", e.Model, e.Reason, e.Err)
}

func (e *TrainingFailure) Unwrap() error {
	return e.Err
}

// DataSourceError wraps an interaction or catalog read failure.
type DataSourceError struct {
	Source string
	Err    error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Source, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}
