// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package storage

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/model"
)

// SnapshotStore saves and restores the models of a model.Registry.
type SnapshotStore struct {
	store  *Store
	keep   int
	logger zerolog.Logger
}

// NewSnapshotStore wraps store, keeping the newest keep versions per model.
//
//nolint:gocritic // logger passed by value for zerolog chaining
func NewSnapshotStore(store *Store, keep int, logger zerolog.Logger) *SnapshotStore {
	return &SnapshotStore{
		store:  store,
		keep:   keep,
		logger: logger.With().Str("component", "model-store").Logger(),
	}
}

// SaveCollaborative persists a published collaborative model.
func (s *SnapshotStore) SaveCollaborative(ctx context.Context, m *model.LatentFactorModel) error {
	meta := ModelMetadata{TrainedAt: m.TrainedAt, Actors: len(m.ActorIndex), Items: len(m.ItemIndex)}
	if err := s.store.Save(ctx, model.TypeCollaborative, m.Version, m, meta); err != nil {
		return err
	}
	return s.store.Prune(ctx, model.TypeCollaborative, s.keep)
}

// SaveContent persists a published content model.
func (s *SnapshotStore) SaveContent(ctx context.Context, m *model.ContentVectorModel) error {
	meta := ModelMetadata{TrainedAt: m.TrainedAt, Items: len(m.Vectors)}
	if err := s.store.Save(ctx, model.TypeContent, m.Version, m, meta); err != nil {
		return err
	}
	return s.store.Prune(ctx, model.TypeContent, s.keep)
}

// Restore loads the newest valid version of each model into reg. A
// corrupt file is skipped in favour of the next older version. Missing
// models are not an error: the registry stays empty and serving falls
// back until the first training run.
func (s *SnapshotStore) Restore(ctx context.Context, reg *model.Registry) error {
	for _, v := range s.store.Versions(model.TypeCollaborative) {
		var m model.LatentFactorModel
		if _, err := s.store.Load(ctx, model.TypeCollaborative, v, &m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn().Err(err).Int64("version", v).Msg("skipping unreadable collaborative model")
			continue
		}
		if err := m.Validate(); err != nil {
			s.logger.Warn().Err(err).Int64("version", v).Msg("skipping invalid collaborative model")
			continue
		}
		reg.PublishCollaborative(&m)
		s.logger.Info().Int64("version", m.Version).Int("actors", len(m.ActorIndex)).Msg("restored collaborative model")
		break
	}

	for _, v := range s.store.Versions(model.TypeContent) {
		var m model.ContentVectorModel
		if _, err := s.store.Load(ctx, model.TypeContent, v, &m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn().Err(err).Int64("version", v).Msg("skipping unreadable content model")
			continue
		}
		if err := m.Validate(); err != nil {
			s.logger.Warn().Err(err).Int64("version", v).Msg("skipping invalid content model")
			continue
		}
		reg.PublishContent(&m)
		s.logger.Info().Int64("version", m.Version).Int("items", len(m.Vectors)).Msg("restored content model")
		break
	}
	return nil
}
