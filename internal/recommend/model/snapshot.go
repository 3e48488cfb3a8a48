// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

// Package model holds the immutable model values the serving layer reads
// and the Registry that publishes them.
//
// A model is never mutated after it is handed to the Registry. Publishing
// builds a new ModelSnapshot and swaps one pointer, so a reader that loaded
// the previous snapshot keeps a consistent view until it drops the
// reference, at which point the garbage collector releases it.
package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/algorithms"
)

// Model type names used in logs, metrics and storage file names.
const (
	TypeCollaborative = "collaborative"
	TypeContent       = "content"
)

// ActorProfile is the per-actor summary the collaborative trainer derives
// from the interaction window.
type ActorProfile struct {
	// Confidence is the actor's aggregated event weight in the window.
	Confidence float64

	// Recent lists positively weighted item keys, most recent first.
	Recent []string

	// Owned is the sorted set of item keys the actor purchased or followed.
	Owned []string
}

// Owns reports whether itemKey is in the owned set.
func (p *ActorProfile) Owns(itemKey string) bool {
	i := sort.SearchStrings(p.Owned, itemKey)
	return i < len(p.Owned) && p.Owned[i] == itemKey
}

// TrainingStats describes the data a model was trained on.
type TrainingStats struct {
	Events     int
	Actors     int
	Items      int
	Cells      int
	Iterations int
	Duration   time.Duration
}

// LatentFactorModel is the collaborative model plus the aggregate signals
// computed from the same window.
type LatentFactorModel struct {
	Version   int64
	TrainedAt time.Time
	Factors   int

	// MinInteractions is the confidence threshold the model was trained
	// with. Serving gates cold start on it rather than on live config.
	MinInteractions float64

	ActorIndex   map[string]int
	ItemIndex    map[string]int
	ActorFactors [][]float64
	ItemFactors  [][]float64

	// Profiles covers every actor in the window, including those below the
	// factorization threshold.
	Profiles map[string]*ActorProfile

	// Popularity is the recency-decayed interaction mass per item key.
	Popularity map[string]float64

	// Velocity is purchases per hour per item key.
	Velocity map[string]float64

	HeldOutError float64
	HasHeldOut   bool
	Degraded     bool
	Stats        TrainingStats
}

// ActorVector returns the latent vector for an actor key.
func (m *LatentFactorModel) ActorVector(actorKey string) ([]float64, bool) {
	if m == nil {
		return nil, false
	}
	u, ok := m.ActorIndex[actorKey]
	if !ok {
		return nil, false
	}
	return m.ActorFactors[u], true
}

// ItemVector returns the latent vector for an item key.
func (m *LatentFactorModel) ItemVector(itemKey string) ([]float64, bool) {
	if m == nil {
		return nil, false
	}
	i, ok := m.ItemIndex[itemKey]
	if !ok {
		return nil, false
	}
	return m.ItemFactors[i], true
}

// CFScore is actorFactors[actor] . itemFactors[item], and 0 unless both
// have factors.
func (m *LatentFactorModel) CFScore(actorKey, itemKey string) float64 {
	x, ok := m.ActorVector(actorKey)
	if !ok {
		return 0
	}
	y, ok := m.ItemVector(itemKey)
	if !ok {
		return 0
	}
	return algorithms.Dot(x, y)
}

// ItemSimilarity is the cosine of two item vectors, and 0 unless both
// have factors.
func (m *LatentFactorModel) ItemSimilarity(a, b string) float64 {
	x, ok := m.ItemVector(a)
	if !ok {
		return 0
	}
	y, ok := m.ItemVector(b)
	if !ok {
		return 0
	}
	return algorithms.Cosine(x, y)
}

// Profile returns the actor's profile or nil.
func (m *LatentFactorModel) Profile(actorKey string) *ActorProfile {
	if m == nil {
		return nil
	}
	return m.Profiles[actorKey]
}

// Personalizes reports whether actorKey has enough history in this model
// to be ranked by it.
func (m *LatentFactorModel) Personalizes(actorKey string) bool {
	p := m.Profile(actorKey)
	return p != nil && p.Confidence >= m.MinInteractions
}

// Validate checks the structural invariants the serving layer relies on.
func (m *LatentFactorModel) Validate() error {
	if m.MinInteractions < 0 || math.IsNaN(m.MinInteractions) {
		return fmt.Errorf("invalid interaction threshold %f", m.MinInteractions)
	}
	if len(m.ActorFactors) != len(m.ActorIndex) {
		return fmt.Errorf("actor factors %d != actor index %d", len(m.ActorFactors), len(m.ActorIndex))
	}
	if len(m.ItemFactors) != len(m.ItemIndex) {
		return fmt.Errorf("item factors %d != item index %d", len(m.ItemFactors), len(m.ItemIndex))
	}
	for _, rows := range [][][]float64{m.ActorFactors, m.ItemFactors} {
		for _, v := range rows {
			if len(v) != m.Factors {
				return fmt.Errorf("vector of length %d, want %d", len(v), m.Factors)
			}
			for _, x := range v {
				if math.IsNaN(x) || math.IsInf(x, 0) {
					return errors.New("non-finite factor")
				}
			}
		}
	}
	return nil
}

// ContentVectorModel is the TF-IDF content model.
type ContentVectorModel struct {
	Version    int64
	TrainedAt  time.Time
	Vocabulary []string

	// IDF is log(N / df) per vocabulary term.
	IDF map[string]float64

	Vectors   map[string]algorithms.SparseVector
	Documents int
}

// Validate applies the publish gate of a freshly built TF-IDF model to m.
func (m *ContentVectorModel) Validate() error {
	for term, w := range m.IDF {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("idf of %q is %f", term, w)
		}
	}
	for key, v := range m.Vectors {
		if len(v.Terms) != len(v.Weights) {
			return fmt.Errorf("vector %s has %d terms and %d weights", key, len(v.Terms), len(v.Weights))
		}
	}
	tf := algorithms.TFIDF{Vocabulary: m.Vocabulary, Vectors: m.Vectors, Documents: m.Documents}
	return tf.Validate()
}

// Has reports whether itemKey has a content vector.
func (m *ContentVectorModel) Has(itemKey string) bool {
	if m == nil {
		return false
	}
	_, ok := m.Vectors[itemKey]
	return ok
}

// Similarity is the cosine similarity of two items.
func (m *ContentVectorModel) Similarity(a, b string) float64 {
	if m == nil {
		return 0
	}
	va, ok := m.Vectors[a]
	if !ok {
		return 0
	}
	vb, ok := m.Vectors[b]
	if !ok {
		return 0
	}
	return va.Dot(vb)
}

// MaxSimilarity is the highest similarity between itemKey and any of the
// history items, excluding itemKey itself.
func (m *ContentVectorModel) MaxSimilarity(itemKey string, history []string) float64 {
	if m == nil || len(history) == 0 {
		return 0
	}
	v, ok := m.Vectors[itemKey]
	if !ok {
		return 0
	}
	var best float64
	for _, h := range history {
		if h == itemKey {
			continue
		}
		if hv, ok := m.Vectors[h]; ok {
			if s := v.Dot(hv); s > best {
				best = s
			}
		}
	}
	return best
}

// ModelSnapshot is the unit of publication: every model the serving layer
// needs, from one consistent point in time.
type ModelSnapshot struct {
	Version       int64
	PublishedAt   time.Time
	Collaborative *LatentFactorModel
	Content       *ContentVectorModel
}

// CollaborativeModel returns the collaborative model, or a
// *recommend.ModelUnavailableError before the first one is published.
func (s *ModelSnapshot) CollaborativeModel() (*LatentFactorModel, error) {
	if s.Collaborative == nil {
		return nil, &recommend.ModelUnavailableError{Model: TypeCollaborative}
	}
	return s.Collaborative, nil
}

// Empty reports whether no model has been published yet.
func (s *ModelSnapshot) Empty() bool {
	return s.Collaborative == nil && s.Content == nil
}
