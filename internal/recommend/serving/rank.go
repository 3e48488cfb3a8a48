// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package serving

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/algorithms"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/model"
)

// checkEvery is how many candidates are scored between deadline checks.
const checkEvery = 256

// scored is one ranked candidate. Candidates are ordered by key desc, then
// item ID asc; score is what the caller sees.
type scored struct {
	item   *recommend.Item
	key    float64
	score  float64
	reason string
}

func sortRanked(ranked []scored) {
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].key != ranked[j].key {
			return ranked[i].key > ranked[j].key
		}
		return ranked[i].item.ID < ranked[j].item.ID
	})
}

// ranker scores one query against one snapshot.
type ranker struct {
	cfg   *recommend.Config
	snap  *model.ModelSnapshot
	query *recommend.Query
	now   time.Time
}

// candidates applies every exclusion before anything is ranked.
func (r *ranker) candidates(items []recommend.Item) []*recommend.Item {
	q := r.query
	excluded := make(map[string]struct{}, len(q.Filters.ExcludeIDs))
	for _, id := range q.Filters.ExcludeIDs {
		excluded[id] = struct{}{}
	}

	var profile *model.ActorProfile
	if actor := q.ActorKey(); actor != "" {
		profile = r.snap.Collaborative.Profile(actor)
	}

	out := make([]*recommend.Item, 0, len(items))
	for i := range items {
		it := &items[i]
		if it.Type != q.TargetType || !it.Active(r.now) {
			continue
		}
		if _, ok := excluded[it.ID]; ok {
			continue
		}
		if q.Filters.CategoryPrefix != "" && !it.InCategory(q.Filters.CategoryPrefix) {
			continue
		}
		if q.Filters.Hashtag != "" && !it.HasHashtag(q.Filters.Hashtag) {
			continue
		}
		if q.Filters.OwnerID != "" && it.OwnerID != q.Filters.OwnerID {
			continue
		}
		if profile != nil && profile.Owns(it.Key()) {
			continue
		}
		// A shop is never recommended to itself, nor are its own listings.
		if q.ActorType == recommend.ActorShop && q.ActorID != "" {
			if (it.Type == recommend.TargetShop && it.ID == q.ActorID) || it.OwnerID == q.ActorID {
				continue
			}
		}
		if q.SortBy == recommend.SortSimilar && it.ID == q.SimilarTo {
			continue
		}
		out = append(out, it)
	}
	return out
}

// rank dispatches on the sort mode. A non-nil error means the deadline
// passed mid-scoring.
func (r *ranker) rank(ctx context.Context, candidates []*recommend.Item) (ranked []scored, personalized bool, reason string, err error) {
	switch r.query.SortBy {
	case recommend.SortPopular:
		return r.popularity(candidates), false, recommend.ReasonPopular, nil
	case recommend.SortHot:
		return r.hot(candidates), false, recommend.ReasonTrending, nil
	case recommend.SortEndingSoon:
		return r.endingSoon(candidates), false, recommend.ReasonEndingSoon, nil
	case recommend.SortNewest:
		return r.newest(candidates), false, recommend.ReasonNewest, nil
	case recommend.SortSimilar:
		return r.similar(ctx, candidates)
	default:
		return r.recommended(ctx, candidates)
	}
}

func (r *ranker) recommended(ctx context.Context, candidates []*recommend.Item) ([]scored, bool, string, error) {
	actor := r.query.ActorKey()
	if actor == "" {
		return r.popularity(candidates), false, recommend.ReasonInsufficientHistory, nil
	}
	cf, err := r.snap.CollaborativeModel()
	if errors.Is(err, recommend.ErrModelUnavailable) {
		return r.popularity(candidates), false, recommend.ReasonModelUnavailable, nil
	}
	if !cf.Personalizes(actor) {
		return r.popularity(candidates), false, recommend.ReasonInsufficientHistory, nil
	}
	profile := cf.Profile(actor)

	w := r.cfg.Weights.For(r.query.TargetType)
	pop := r.normalized(cf.Popularity, candidates)
	vel := r.normalized(cf.Velocity, candidates)
	content := r.snap.Content

	out := make([]scored, 0, len(candidates))
	for n, it := range candidates {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, false, "", err
			}
		}
		key := it.Key()
		parts := [...]struct {
			value  float64
			reason string
		}{
			{w.CF * cf.CFScore(actor, key), recommend.ReasonCollaborative},
			{w.Content * content.MaxSimilarity(key, profile.Recent), recommend.ReasonSimilarToHistory},
			{w.Popularity * pop[key], recommend.ReasonPopular},
			{w.Velocity * vel[key], recommend.ReasonTrending},
			{w.Urgency * algorithms.Urgency(it.ExpiresAt, r.now, r.cfg.Popularity.UrgencyHorizon), recommend.ReasonEndingSoon},
		}

		var total, best float64
		reason := recommend.ReasonPopular
		for _, p := range parts {
			total += p.value
			if p.value > best {
				best, reason = p.value, p.reason
			}
		}
		if math.IsNaN(total) || math.IsInf(total, 0) {
			total = 0
		}
		out = append(out, scored{item: it, key: total, score: total, reason: reason})
	}
	return out, true, recommend.ReasonPersonalized, nil
}

// similar ranks "more like this" by content and item-factor similarity to
// the seed item.
func (r *ranker) similar(ctx context.Context, candidates []*recommend.Item) ([]scored, bool, string, error) {
	seed := recommend.ItemKey(r.query.TargetType, r.query.SimilarTo)
	cf, content := r.snap.Collaborative, r.snap.Content
	_, inCF := cf.ItemVector(seed)
	if !content.Has(seed) && !inCF {
		return r.popularity(candidates), false, recommend.ReasonItemUnknown, nil
	}

	w := r.cfg.Weights.For(r.query.TargetType)
	out := make([]scored, 0, len(candidates))
	for n, it := range candidates {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, false, "", err
			}
		}
		key := it.Key()
		s := w.Content*content.Similarity(seed, key) + w.CF*cf.ItemSimilarity(seed, key)
		out = append(out, scored{item: it, key: s, score: s, reason: recommend.ReasonSimilarItems})
	}
	return out, false, recommend.ReasonSimilarItems, nil
}

// popularity is the universal fallback. Without any popularity signal for
// the candidates it degrades to freshness.
func (r *ranker) popularity(candidates []*recommend.Item) []scored {
	var pop map[string]float64
	if r.snap.Collaborative != nil {
		pop = r.normalized(r.snap.Collaborative.Popularity, candidates)
	}
	if len(pop) == 0 {
		return r.newest(candidates)
	}
	out := make([]scored, 0, len(candidates))
	for _, it := range candidates {
		s := pop[it.Key()]
		out = append(out, scored{item: it, key: s, score: s, reason: recommend.ReasonPopular})
	}
	return out
}

func (r *ranker) hot(candidates []*recommend.Item) []scored {
	var vel map[string]float64
	if r.snap.Collaborative != nil {
		vel = r.snap.Collaborative.Velocity
	}
	out := make([]scored, 0, len(candidates))
	for _, it := range candidates {
		v := vel[it.Key()]
		out = append(out, scored{item: it, key: v, score: v, reason: recommend.ReasonTrending})
	}
	return out
}

// endingSoon orders by ascending time to expiry; items without an expiry
// come last.
func (r *ranker) endingSoon(candidates []*recommend.Item) []scored {
	out := make([]scored, 0, len(candidates))
	for _, it := range candidates {
		key := math.Inf(-1)
		if !it.ExpiresAt.IsZero() {
			key = -it.ExpiresAt.Sub(r.now).Seconds()
		}
		score := algorithms.Urgency(it.ExpiresAt, r.now, r.cfg.Popularity.UrgencyHorizon)
		out = append(out, scored{item: it, key: key, score: score, reason: recommend.ReasonEndingSoon})
	}
	return out
}

func (r *ranker) newest(candidates []*recommend.Item) []scored {
	out := make([]scored, 0, len(candidates))
	for _, it := range candidates {
		key := math.Inf(-1)
		if !it.CreatedAt.IsZero() {
			key = float64(it.CreatedAt.Unix())
		}
		score := algorithms.Freshness(it.CreatedAt, r.now, r.cfg.Popularity.FreshnessHalfLife)
		out = append(out, scored{item: it, key: key, score: score, reason: recommend.ReasonNewest})
	}
	return out
}

// normalized rescales signal over the candidates to [0, 1]. It returns nil
// when no candidate has a positive value.
func (r *ranker) normalized(signal map[string]float64, candidates []*recommend.Item) map[string]float64 {
	if len(signal) == 0 {
		return nil
	}
	sub := make(map[string]float64, len(candidates))
	for _, it := range candidates {
		key := it.Key()
		if v, ok := signal[key]; ok && v > 0 {
			sub[key] = v
		}
	}
	if len(sub) == 0 {
		return nil
	}
	return algorithms.NormalizeMax(sub)
}
