// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

// Package serving answers recommendation queries against the current
// model snapshot.
//
// A query reads the registry's snapshot exactly once, so a concurrent
// publish never mixes two model versions into one response. Model-internal
// failures are never returned to the caller: a missing model, an unknown
// seed item, an expired request deadline or an unavailable catalog all
// degrade to popularity ranking with an explicit reason code. The only
// error Query returns is a *recommend.ValidationError.
package serving

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/analytics"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/cache"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/logging"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/metrics"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/model"
)

// SnapshotSource provides the live snapshot. *model.Registry implements it;
// tests can inject a fixed snapshot.
type SnapshotSource interface {
	Current() *model.ModelSnapshot
}

// Catalog lists the candidate items of a target type.
type Catalog interface {
	Items(ctx context.Context, t recommend.TargetType) ([]recommend.Item, error)
}

// ServedNotifier receives a record of each answered query.
// *analytics.Emitter implements it.
type ServedNotifier interface {
	RecommendationServed(ctx context.Context, s analytics.Served)
}

// Engine is the stateless serving layer. It is safe for concurrent use.
type Engine struct {
	snapshots SnapshotSource
	catalog   Catalog
	cfg       *recommend.Config
	cache     cache.ResultCache
	notifier  ServedNotifier
	logger    zerolog.Logger
	now       func() time.Time
}

// NewEngine creates an Engine.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEngine(snapshots SnapshotSource, catalog Catalog, cfg *recommend.Config, logger zerolog.Logger) *Engine {
	return &Engine{
		snapshots: snapshots,
		catalog:   catalog,
		cfg:       cfg,
		logger:    logger.With().Str("component", "serving").Logger(),
		now:       time.Now,
	}
}

// SetCache enables the page cache.
func (e *Engine) SetCache(c cache.ResultCache) {
	e.cache = c
}

// SetNotifier enables "recommendation served" analytics.
func (e *Engine) SetNotifier(n ServedNotifier) {
	e.notifier = n
}

// SetClock overrides the engine clock. It must be called before use.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Query answers q. Missing fields of q are defaulted first.
//
//nolint:gocritic // hugeParam: q is normalized on a private copy
func (e *Engine) Query(ctx context.Context, q recommend.Query) (*recommend.Result, error) {
	start := time.Now()
	q.Normalize(e.cfg.Limits.DefaultLimit)
	if err := q.Validate(e.cfg.Limits.MaxLimit); err != nil {
		return nil, err
	}

	snap := e.snapshots.Current()
	now := e.now().UTC()
	key := cacheKey(snap.Version, &q, now)
	if res := e.cached(ctx, key, now); res != nil {
		e.finish(ctx, &q, res, start)
		return res, nil
	}

	res, validUntil := e.rank(ctx, &q, snap, now)
	e.store(ctx, key, res, validUntil)
	e.finish(ctx, &q, res, start)
	return res, nil
}

// rank answers q as of now. validUntil is the next time an item of the
// target type starts or expires, zero when none will.
func (e *Engine) rank(ctx context.Context, q *recommend.Query, snap *model.ModelSnapshot, now time.Time) (_ *recommend.Result, validUntil time.Time) {
	scoreCtx, cancel := context.WithTimeout(ctx, e.cfg.Limits.RequestTimeout)
	defer cancel()

	items, err := e.catalog.Items(scoreCtx, q.TargetType)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("target_type", string(q.TargetType)).
			Msg("catalog unavailable, returning empty fallback")
		return e.result(q, snap, now, nil, false, recommend.ReasonCatalogUnavailable), time.Time{}
	}

	r := &ranker{cfg: e.cfg, snap: snap, query: q, now: now}
	candidates := r.candidates(items)

	ranked, personalized, reason, err := r.rank(scoreCtx, candidates)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int("candidates", len(candidates)).
			Msg("scoring did not finish in time, returning popularity fallback")
		ranked = r.popularity(candidates)
		personalized, reason = false, recommend.ReasonScoringTimeout
	}
	return e.result(q, snap, now, ranked, personalized, reason), nextVisibilityChange(items, now)
}

// nextVisibilityChange returns the earliest StartsAt or ExpiresAt after now.
func nextVisibilityChange(items []recommend.Item, now time.Time) time.Time {
	var next time.Time
	for i := range items {
		for _, t := range [...]time.Time{items[i].StartsAt, items[i].ExpiresAt} {
			if t.After(now) && (next.IsZero() || t.Before(next)) {
				next = t
			}
		}
	}
	return next
}

func (e *Engine) result(q *recommend.Query, snap *model.ModelSnapshot, now time.Time, ranked []scored, personalized bool, reason string) *recommend.Result {
	sortRanked(ranked)

	pg := recommend.NewPagination(q.Page, q.Limit, len(ranked))
	from, to := pg.Bounds()
	items := make([]recommend.RecommendationItem, 0, to-from)
	for _, s := range ranked[from:to] {
		items = append(items, recommend.RecommendationItem{
			ItemID:     s.item.ID,
			Score:      s.score,
			ReasonCode: s.reason,
		})
	}

	return &recommend.Result{
		TargetType:     q.TargetType,
		Items:          items,
		Pagination:     pg,
		IsPersonalized: personalized,
		ReasonCode:     reason,
		ModelVersion:   snap.Version,
		GeneratedAt:    now,
	}
}

func (e *Engine) finish(ctx context.Context, q *recommend.Query, res *recommend.Result, start time.Time) {
	metrics.RecordRecommendation(string(q.TargetType), string(q.SortBy), res.IsPersonalized, res.ReasonCode, time.Since(start))

	logging.Ctx(ctx).Debug().
		Str("target_type", string(q.TargetType)).
		Str("sort_by", string(q.SortBy)).
		Bool("personalized", res.IsPersonalized).
		Str("reason", res.ReasonCode).
		Int("returned", len(res.Items)).
		Int("total", res.Pagination.TotalCount).
		Dur("latency", time.Since(start)).
		Msg("recommendation query served")

	if e.notifier == nil {
		return
	}
	ids := make([]string, len(res.Items))
	for i := range res.Items {
		ids[i] = res.Items[i].ItemID
	}
	e.notifier.RecommendationServed(ctx, analytics.Served{
		RequestID:    logging.RequestIDFromContext(ctx),
		ActorID:      q.ActorID,
		ActorType:    string(q.ActorType),
		TargetType:   string(q.TargetType),
		SortBy:       string(q.SortBy),
		ReasonCode:   res.ReasonCode,
		Personalized: res.IsPersonalized,
		ModelVersion: res.ModelVersion,
		ItemIDs:      ids,
		Page:         q.Page,
	})
}

// urgencyBucket is how long an ending-soon or flash sale page may be
// served from cache before its urgency scores are recomputed.
const urgencyBucket = time.Minute

// cachedPage is the result cache payload.
type cachedPage struct {
	Result     *recommend.Result `json:"result"`
	ValidUntil time.Time         `json:"validUntil,omitempty"`
}

// cacheKey identifies a page of q under one snapshot version. Pages whose
// scores depend on time to expiry are also keyed by a coarse time bucket.
func cacheKey(version int64, q *recommend.Query, now time.Time) string {
	var bucket int64
	if q.SortBy == recommend.SortEndingSoon || q.TargetType == recommend.TargetFlashSale {
		bucket = now.Truncate(urgencyBucket).Unix()
	}
	data, err := json.Marshal(struct {
		V int64            `json:"v"`
		B int64            `json:"b,omitempty"`
		Q *recommend.Query `json:"q"`
	}{version, bucket, q})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return "rec:" + hex.EncodeToString(sum[:16])
}

// cached returns the stored page for key unless an item of its target type
// has started or expired since it was stored.
func (e *Engine) cached(ctx context.Context, key string, now time.Time) *recommend.Result {
	if e.cache == nil || key == "" {
		return nil
	}
	data, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		metrics.RecommendCacheLookups.WithLabelValues("error").Inc()
		e.logger.Debug().Err(err).Msg("result cache lookup failed")
		return nil
	}
	if !ok {
		metrics.RecommendCacheLookups.WithLabelValues("miss").Inc()
		return nil
	}
	var page cachedPage
	if err := json.Unmarshal(data, &page); err != nil || page.Result == nil {
		metrics.RecommendCacheLookups.WithLabelValues("error").Inc()
		return nil
	}
	if !page.ValidUntil.IsZero() && !now.Before(page.ValidUntil) {
		metrics.RecommendCacheLookups.WithLabelValues("expired").Inc()
		return nil
	}
	metrics.RecommendCacheLookups.WithLabelValues("hit").Inc()
	return page.Result
}

func (e *Engine) store(ctx context.Context, key string, res *recommend.Result, validUntil time.Time) {
	// Timeouts and catalog outages are transient; don't pin them.
	if e.cache == nil || key == "" ||
		res.ReasonCode == recommend.ReasonScoringTimeout || res.ReasonCode == recommend.ReasonCatalogUnavailable {
		return
	}
	data, err := json.Marshal(cachedPage{Result: res, ValidUntil: validUntil})
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, key, data); err != nil {
		e.logger.Debug().Err(err).Msg("result cache store failed")
	}
}
