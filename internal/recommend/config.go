// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package recommend

import (
	"fmt"
	"time"
)

// Config contains all tunables of the personalization engine.
type Config struct {
	// MinInteractions is the aggregated confidence below which an actor or
	// item is excluded from factorization and served through fallback.
	MinInteractions float64 `json:"min_interactions"`

	// Lookback bounds the interaction window read by the trainers.
	Lookback time.Duration `json:"lookback"`

	// DedupWindow is the width of the time bucket inside which repeats of the
	// same (actor, target, eventType) are dropped.
	DedupWindow time.Duration `json:"dedup_window"`

	// RecentItemsLimit caps the per-actor history used for content scoring.
	RecentItemsLimit int `json:"recent_items_limit"`

	ALS        ALSConfig        `json:"als"`
	Content    ContentConfig    `json:"content"`
	Popularity PopularityConfig `json:"popularity"`
	Weights    WeightsConfig    `json:"weights"`
	Training   TrainingConfig   `json:"training"`
	Limits     LimitsConfig     `json:"limits"`

	// Seed makes factor initialization and held-out sampling reproducible.
	Seed int64 `json:"seed"`
}

// ALSConfig contains implicit alternating least squares parameters.
type ALSConfig struct {
	// Factors is the latent dimension k.
	Factors int `json:"factors"`

	// Lambda is the L2 regularization strength.
	Lambda float64 `json:"lambda"`

	// Alpha scales interaction weight into confidence: c = 1 + alpha*w.
	Alpha float64 `json:"alpha"`

	// Iterations is the hard iteration cap.
	Iterations int `json:"iterations"`

	// Epsilon stops iteration once the relative change in reconstruction
	// error falls below it.
	Epsilon float64 `json:"epsilon"`

	// TimeBudget is the soft convergence budget. When exceeded the best
	// iterate so far is published flagged as degraded.
	TimeBudget time.Duration `json:"time_budget"`

	// HoldoutFraction of eligible interactions is held out to compute the
	// sanity metric.
	HoldoutFraction float64 `json:"holdout_fraction"`

	// Workers bounds solver parallelism; 0 means GOMAXPROCS.
	Workers int `json:"workers"`
}

// ContentConfig contains TF-IDF builder parameters.
type ContentConfig struct {
	// MinTermLength drops shorter tokens.
	MinTermLength int `json:"min_term_length"`

	// MaxTermsPerItem keeps only the heaviest terms of each vector.
	MaxTermsPerItem int `json:"max_terms_per_item"`
}

// PopularityConfig contains the recency decay and velocity windows.
type PopularityConfig struct {
	// HalfLife is the age at which an interaction counts half.
	HalfLife time.Duration `json:"half_life"`

	// VelocityWindow is the window for purchase velocity ("hot").
	VelocityWindow time.Duration `json:"velocity_window"`

	// FreshnessHalfLife decays item age for the newest-biased fallback.
	FreshnessHalfLife time.Duration `json:"freshness_half_life"`

	// UrgencyHorizon is the time-to-expiry at which urgency starts to rise.
	UrgencyHorizon time.Duration `json:"urgency_horizon"`
}

// BlendWeights are the per-signal coefficients of the final score.
type BlendWeights struct {
	CF         float64 `json:"cf"`
	Content    float64 `json:"content"`
	Popularity float64 `json:"popularity"`
	Velocity   float64 `json:"velocity"`
	Urgency    float64 `json:"urgency"`
}

// Sum returns the total of all weights.
func (w BlendWeights) Sum() float64 {
	return w.CF + w.Content + w.Popularity + w.Velocity + w.Urgency
}

func (w BlendWeights) validate(name string) error {
	for field, v := range map[string]float64{
		"cf": w.CF, "content": w.Content, "popularity": w.Popularity,
		"velocity": w.Velocity, "urgency": w.Urgency,
	} {
		if v < 0 {
			return fmt.Errorf("weights.%s.%s must be non-negative, got %f", name, field, v)
		}
	}
	if w.Sum() == 0 {
		return fmt.Errorf("weights.%s must not all be zero", name)
	}
	return nil
}

// WeightsConfig holds blend weights per target type.
type WeightsConfig struct {
	Product   BlendWeights `json:"product"`
	Post      BlendWeights `json:"post"`
	Shop      BlendWeights `json:"shop"`
	FlashSale BlendWeights `json:"flash_sale"`
}

// For returns the weights of target type t.
func (w *WeightsConfig) For(t TargetType) BlendWeights {
	switch t {
	case TargetPost:
		return w.Post
	case TargetShop:
		return w.Shop
	case TargetFlashSale:
		return w.FlashSale
	default:
		return w.Product
	}
}

// TrainingConfig contains training lifecycle parameters.
type TrainingConfig struct {
	// MaxDuration aborts a run that takes longer; the previous model stays live.
	MaxDuration time.Duration `json:"max_duration"`

	// RegressionTolerance is the allowed relative increase of held-out error
	// versus the live model before publication is refused.
	RegressionTolerance float64 `json:"regression_tolerance"`

	// RetainVersions is the number of persisted model versions to keep.
	RetainVersions int `json:"retain_versions"`
}

// LimitsConfig contains serving limits.
type LimitsConfig struct {
	DefaultLimit int `json:"default_limit"`
	MaxLimit     int `json:"max_limit"`

	// RequestTimeout bounds scoring; on expiry the popularity fallback is
	// returned instead.
	RequestTimeout time.Duration `json:"request_timeout"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		MinInteractions:  3,
		Lookback:         90 * 24 * time.Hour,
		DedupWindow:      5 * time.Minute,
		RecentItemsLimit: 20,
		ALS: ALSConfig{
			Factors:         32,
			Lambda:          0.1,
			Alpha:           40,
			Iterations:      15,
			Epsilon:         1e-4,
			TimeBudget:      10 * time.Minute,
			HoldoutFraction: 0.1,
		},
		Content: ContentConfig{
			MinTermLength:   2,
			MaxTermsPerItem: 64,
		},
		Popularity: PopularityConfig{
			HalfLife:          7 * 24 * time.Hour,
			VelocityWindow:    24 * time.Hour,
			FreshnessHalfLife: 3 * 24 * time.Hour,
			UrgencyHorizon:    24 * time.Hour,
		},
		Weights: WeightsConfig{
			Product:   BlendWeights{CF: 0.5, Content: 0.3, Popularity: 0.2},
			Post:      BlendWeights{CF: 0.4, Content: 0.4, Popularity: 0.2},
			Shop:      BlendWeights{CF: 0.6, Content: 0.2, Popularity: 0.2},
			FlashSale: BlendWeights{CF: 0.2, Content: 0.1, Popularity: 0.1, Velocity: 0.3, Urgency: 0.3},
		},
		Training: TrainingConfig{
			MaxDuration:         30 * time.Minute,
			RegressionTolerance: 0.10,
			RetainVersions:      3,
		},
		Limits: LimitsConfig{
			DefaultLimit:   20,
			MaxLimit:       100,
			RequestTimeout: 250 * time.Millisecond,
		},
		Seed: 42,
	}
}

// Validate checks the configuration for invalid values.
//
//nolint:gocyclo // one branch per field
func (c *Config) Validate() error {
	if c.MinInteractions < 0 {
		return fmt.Errorf("min_interactions must be non-negative, got %f", c.MinInteractions)
	}
	if c.Lookback <= 0 {
		return fmt.Errorf("lookback must be positive, got %v", c.Lookback)
	}
	if c.DedupWindow <= 0 {
		return fmt.Errorf("dedup_window must be positive, got %v", c.DedupWindow)
	}
	if c.RecentItemsLimit <= 0 {
		return fmt.Errorf("recent_items_limit must be positive, got %d", c.RecentItemsLimit)
	}

	if c.ALS.Factors <= 0 {
		return fmt.Errorf("als.factors must be positive, got %d", c.ALS.Factors)
	}
	if c.ALS.Lambda <= 0 {
		return fmt.Errorf("als.lambda must be positive, got %f", c.ALS.Lambda)
	}
	if c.ALS.Alpha <= 0 {
		return fmt.Errorf("als.alpha must be positive, got %f", c.ALS.Alpha)
	}
	if c.ALS.Iterations <= 0 {
		return fmt.Errorf("als.iterations must be positive, got %d", c.ALS.Iterations)
	}
	if c.ALS.Epsilon < 0 {
		return fmt.Errorf("als.epsilon must be non-negative, got %f", c.ALS.Epsilon)
	}
	if c.ALS.TimeBudget <= 0 {
		return fmt.Errorf("als.time_budget must be positive, got %v", c.ALS.TimeBudget)
	}
	if c.ALS.HoldoutFraction < 0 || c.ALS.HoldoutFraction >= 0.5 {
		return fmt.Errorf("als.holdout_fraction must be in [0, 0.5), got %f", c.ALS.HoldoutFraction)
	}
	if c.ALS.Workers < 0 {
		return fmt.Errorf("als.workers must be non-negative, got %d", c.ALS.Workers)
	}

	if c.Content.MinTermLength <= 0 {
		return fmt.Errorf("content.min_term_length must be positive, got %d", c.Content.MinTermLength)
	}
	if c.Content.MaxTermsPerItem <= 0 {
		return fmt.Errorf("content.max_terms_per_item must be positive, got %d", c.Content.MaxTermsPerItem)
	}

	if c.Popularity.HalfLife <= 0 || c.Popularity.VelocityWindow <= 0 ||
		c.Popularity.FreshnessHalfLife <= 0 || c.Popularity.UrgencyHorizon <= 0 {
		return fmt.Errorf("popularity windows must be positive")
	}

	for _, t := range TargetTypes() {
		if err := c.Weights.For(t).validate(string(t)); err != nil {
			return err
		}
	}

	if c.Training.MaxDuration <= 0 {
		return fmt.Errorf("training.max_duration must be positive, got %v", c.Training.MaxDuration)
	}
	if c.Training.RegressionTolerance < 0 {
		return fmt.Errorf("training.regression_tolerance must be non-negative, got %f", c.Training.RegressionTolerance)
	}
	if c.Training.RetainVersions < 1 {
		return fmt.Errorf("training.retain_versions must be at least 1, got %d", c.Training.RetainVersions)
	}

	if c.Limits.DefaultLimit <= 0 {
		return fmt.Errorf("limits.default_limit must be positive, got %d", c.Limits.DefaultLimit)
	}
	if c.Limits.MaxLimit < c.Limits.DefaultLimit {
		return fmt.Errorf("limits.max_limit (%d) must be >= default_limit (%d)", c.Limits.MaxLimit, c.Limits.DefaultLimit)
	}
	if c.Limits.RequestTimeout <= 0 {
		return fmt.Errorf("limits.request_timeout must be positive, got %v", c.Limits.RequestTimeout)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
