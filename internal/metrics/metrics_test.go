// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRecommendation(t *testing.T) {
	tests := []struct {
		name         string
		targetType   string
		personalized bool
		reason       string
		wantFallback bool
	}{
		{"personalized", "product", true, "personalized", false},
		{"cold start", "post", false, "insufficient_history", true},
		{"anonymous without reason", "shop", false, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(RecommendFallbacks.WithLabelValues(tt.reason))
			RecordRecommendation(tt.targetType, "recommended", tt.personalized, tt.reason, 5*time.Millisecond)
			after := testutil.ToFloat64(RecommendFallbacks.WithLabelValues(tt.reason))

			if got := after - before; (got == 1) != tt.wantFallback {
				t.Errorf("fallback delta = %v, wantFallback %v", got, tt.wantFallback)
			}
		})
	}
}

func TestRecordTrainingRun(t *testing.T) {
	before := testutil.ToFloat64(TrainingRuns.WithLabelValues("content", "skipped"))
	RecordTrainingRun("content", "skipped", 0)
	RecordTrainingRun("content", "skipped", 0)

	if got := testutil.ToFloat64(TrainingRuns.WithLabelValues("content", "skipped")) - before; got != 2 {
		t.Errorf("skipped runs delta = %v, want 2", got)
	}
}

func TestRecordPublishedModel(t *testing.T) {
	RecordPublishedModel("collaborative", 7, 120, 340)

	if got := testutil.ToFloat64(ModelVersion.WithLabelValues("collaborative")); got != 7 {
		t.Errorf("model_version = %v, want 7", got)
	}
	if got := testutil.ToFloat64(ModelEntities.WithLabelValues("collaborative", "items")); got != 340 {
		t.Errorf("model_entities items = %v, want 340", got)
	}
}

func TestRecordAnalyticsPublish(t *testing.T) {
	before := testutil.ToFloat64(AnalyticsPublished.WithLabelValues("recommendation.served", "error"))
	RecordAnalyticsPublish("recommendation.served", errors.New("nats down"))

	if got := testutil.ToFloat64(AnalyticsPublished.WithLabelValues("recommendation.served", "error")) - before; got != 1 {
		t.Errorf("error publishes delta = %v, want 1", got)
	}
}
