// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package training

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/algorithms"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/events"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/model"
)

// CollaborativeTrainer rebuilds the latent factor model, actor profiles and
// popularity signals from the interaction window.
type CollaborativeTrainer struct {
	source events.WindowReader
	cfg    *recommend.Config
	logger zerolog.Logger
}

// NewCollaborativeTrainer creates a trainer reading from source.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewCollaborativeTrainer(source events.WindowReader, cfg *recommend.Config, logger zerolog.Logger) *CollaborativeTrainer {
	return &CollaborativeTrainer{
		source: source,
		cfg:    cfg,
		logger: logger.With().Str("component", "cf-trainer").Logger(),
	}
}

// Train fits a new model as of now. live is the currently published model
// (nil when none) and is only used by the regression guard. Every error is
// a *recommend.TrainingFailure.
func (t *CollaborativeTrainer) Train(ctx context.Context, now time.Time, live *model.LatentFactorModel) (*model.LatentFactorModel, error) {
	start := time.Now()

	evts, err := t.source.ReadWindow(ctx, now.Add(-t.cfg.Lookback))
	if err != nil {
		return nil, failure(ctx, model.TypeCollaborative, recommend.FailureDataSource,
			&recommend.DataSourceError{Source: "interactions", Err: err})
	}

	full := algorithms.BuildInteractionMatrix(evts, t.cfg.MinInteractions)
	train, heldOut := full.Split(t.cfg.ALS.HoldoutFraction, t.cfg.Seed)

	t.logger.Debug().
		Int("events", len(evts)).
		Int("actors", full.NumActors()).
		Int("items", full.NumItems()).
		Int("cells", full.NNZ()).
		Int("held_out", len(heldOut)).
		Msg("interaction matrix built")

	res, err := algorithms.TrainALS(ctx, train, algorithms.ALSParams{
		Factors:    t.cfg.ALS.Factors,
		Lambda:     t.cfg.ALS.Lambda,
		Alpha:      t.cfg.ALS.Alpha,
		Iterations: t.cfg.ALS.Iterations,
		Epsilon:    t.cfg.ALS.Epsilon,
		TimeBudget: t.cfg.ALS.TimeBudget,
		Workers:    t.cfg.ALS.Workers,
		Seed:       t.cfg.Seed,
	})
	if err != nil {
		// algorithms.ErrNonFinite, or the run's deadline.
		return nil, failure(ctx, model.TypeCollaborative, recommend.FailureNonConvergence, err)
	}

	m := &model.LatentFactorModel{
		TrainedAt:       now,
		Factors:         t.cfg.ALS.Factors,
		MinInteractions: t.cfg.MinInteractions,
		ActorIndex:      indexOf(full.ActorKeys),
		ItemIndex:       indexOf(full.ItemKeys),
		ActorFactors:    res.ActorFactors,
		ItemFactors:     res.ItemFactors,
		Profiles:        buildProfiles(evts, t.cfg.RecentItemsLimit),
		Popularity:      algorithms.Popularity(evts, now, t.cfg.Popularity.HalfLife),
		Velocity:        algorithms.PurchaseVelocity(evts, now, t.cfg.Popularity.VelocityWindow),
		Degraded:        res.Degraded,
		Stats: model.TrainingStats{
			Events:     len(evts),
			Actors:     full.NumActors(),
			Items:      full.NumItems(),
			Cells:      full.NNZ(),
			Iterations: res.Iterations,
		},
	}
	if live != nil {
		m.Version = live.Version + 1
	} else {
		m.Version = 1
	}

	if mse, ok := algorithms.HeldOutError(res, full, heldOut, t.cfg.Seed); ok {
		m.HeldOutError, m.HasHeldOut = mse, true
		if live != nil && live.HasHeldOut && mse > live.HeldOutError*(1+t.cfg.Training.RegressionTolerance) {
			return nil, &recommend.TrainingFailure{
				Model:  model.TypeCollaborative,
				Reason: recommend.FailureRegression,
				Err: &RegressionError{
					HeldOutError: mse,
					LiveError:    live.HeldOutError,
					Tolerance:    t.cfg.Training.RegressionTolerance,
				},
			}
		}
	}

	if err := m.Validate(); err != nil {
		return nil, &recommend.TrainingFailure{Model: model.TypeCollaborative, Reason: recommend.FailureInvalidModel, Err: err}
	}
	m.Stats.Duration = time.Since(start)

	t.logger.Info().
		Int64("version", m.Version).
		Int("actors", m.Stats.Actors).
		Int("items", m.Stats.Items).
		Int("iterations", res.Iterations).
		Bool("converged", res.Converged).
		Bool("degraded", res.Degraded).
		Float64("heldout_error", m.HeldOutError).
		Dur("duration", m.Stats.Duration).
		Msg("collaborative model trained")
	return m, nil
}

// buildProfiles derives per-actor confidence, recent history and the owned
// set. evts must be ordered by OccurredAt. Actors below the training
// threshold get a profile too, so owned items are excluded for them.
//
//nolint:gocritic // rangeValCopy: events are read-only
func buildProfiles(evts []recommend.InteractionEvent, recentLimit int) map[string]*model.ActorProfile {
	profiles := make(map[string]*model.ActorProfile)
	owned := make(map[string]map[string]struct{})
	seen := make(map[string]map[string]struct{})

	for i := len(evts) - 1; i >= 0; i-- {
		e := &evts[i]
		actor, item := e.ActorKey(), e.ItemKey()

		p, ok := profiles[actor]
		if !ok {
			p = &model.ActorProfile{}
			profiles[actor] = p
			seen[actor] = make(map[string]struct{})
		}
		p.Confidence += e.Weight

		if e.EventType.Owning() {
			if owned[actor] == nil {
				owned[actor] = make(map[string]struct{})
			}
			owned[actor][item] = struct{}{}
		}

		if e.Weight > 0 && len(p.Recent) < recentLimit {
			if _, dup := seen[actor][item]; !dup {
				seen[actor][item] = struct{}{}
				p.Recent = append(p.Recent, item)
			}
		}
	}

	for actor, items := range owned {
		keys := make([]string, 0, len(items))
		for k := range items {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		profiles[actor].Owned = keys
	}
	return profiles
}

func indexOf(keys []string) map[string]int {
	idx := make(map[string]int, len(keys))
	for i, k := range keys {
		idx[k] = i
	}
	return idx
}
