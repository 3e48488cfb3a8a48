// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package training

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/algorithms"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/model"
)

// ItemLister reads catalog metadata. *catalog.Memory, *catalog.DuckDB and
// *catalog.Breaker implement it.
type ItemLister interface {
	Items(ctx context.Context, t recommend.TargetType) ([]recommend.Item, error)
}

// ContentTrainer rebuilds TF-IDF vectors over the text and metadata of
// every catalog entity.
type ContentTrainer struct {
	catalog ItemLister
	cfg     *recommend.Config
	logger  zerolog.Logger
}

// NewContentTrainer creates a trainer reading from catalog.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewContentTrainer(catalog ItemLister, cfg *recommend.Config, logger zerolog.Logger) *ContentTrainer {
	return &ContentTrainer{
		catalog: catalog,
		cfg:     cfg,
		logger:  logger.With().Str("component", "content-trainer").Logger(),
	}
}

// Train builds a content model as of now. Every error is a
// *recommend.TrainingFailure.
func (t *ContentTrainer) Train(ctx context.Context, now time.Time) (*model.ContentVectorModel, error) {
	start := time.Now()
	types := recommend.TargetTypes()
	items := make([][]recommend.Item, len(types))

	g, gctx := errgroup.WithContext(ctx)
	for i, tt := range types {
		g.Go(func() error {
			list, err := t.catalog.Items(gctx, tt)
			if err != nil {
				return &recommend.DataSourceError{Source: "catalog/" + string(tt), Err: err}
			}
			items[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, failure(ctx, model.TypeContent, recommend.FailureDataSource, err)
	}

	var docs []algorithms.Document
	for _, list := range items {
		for i := range list {
			docs = append(docs, document(&list[i], t.cfg.Content.MinTermLength))
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, failure(ctx, model.TypeContent, recommend.FailureTimeout, err)
	}

	tfidf := algorithms.BuildTFIDF(docs, t.cfg.Content.MaxTermsPerItem)
	idf := make(map[string]float64, len(tfidf.Vocabulary))
	for i, term := range tfidf.Vocabulary {
		idf[term] = tfidf.IDF[i]
	}

	m := &model.ContentVectorModel{
		TrainedAt:  now,
		Vocabulary: tfidf.Vocabulary,
		IDF:        idf,
		Vectors:    tfidf.Vectors,
		Documents:  tfidf.Documents,
	}
	if err := m.Validate(); err != nil {
		return nil, &recommend.TrainingFailure{Model: model.TypeContent, Reason: recommend.FailureInvalidModel, Err: err}
	}

	t.logger.Info().
		Int("documents", len(docs)).
		Int("vectors", len(m.Vectors)).
		Int("vocabulary", len(m.Vocabulary)).
		Dur("duration", time.Since(start)).
		Msg("content model trained")
	return m, nil
}

func document(item *recommend.Item, minTermLength int) algorithms.Document {
	text := strings.TrimSpace(item.Name + " " + item.Description)
	terms := algorithms.TokenizeMin(text, minTermLength)
	terms = append(terms, algorithms.MetadataTerms(item.CategoryPath, item.Hashtags)...)
	return algorithms.Document{Key: item.Key(), Terms: terms}
}
