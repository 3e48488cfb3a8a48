// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package algorithms

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Document is the term bag of one catalog item.
type Document struct {
	Key   string
	Terms []string
}

// SparseVector is a sparse vector sorted by term index.
type SparseVector struct {
	Terms   []int32
	Weights []float64
}

// Len returns the number of non-zero terms.
func (v SparseVector) Len() int { return len(v.Terms) }

// Dot returns the dot product of two sparse vectors. For L2-normalized
// vectors this is their cosine similarity.
func (v SparseVector) Dot(o SparseVector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Terms) && j < len(o.Terms) {
		switch {
		case v.Terms[i] == o.Terms[j]:
			sum += v.Weights[i] * o.Weights[j]
			i++
			j++
		case v.Terms[i] < o.Terms[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Norm returns the Euclidean norm.
func (v SparseVector) Norm() float64 {
	var sum float64
	for _, w := range v.Weights {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// TFIDF is a built content model: a shared vocabulary and one normalized
// vector per document that has at least one discriminative term.
type TFIDF struct {
	Vocabulary []string
	IDF        []float64
	Vectors    map[string]SparseVector

	// Documents is the corpus size N.
	Documents int
}

// BuildTFIDF weights every document as tf(t) * log(N / df(t)) and
// L2-normalizes the result, keeping at most maxTerms strongest terms per
// document. Terms present in every document carry no signal (idf = 0)
// and are dropped.
func BuildTFIDF(docs []Document, maxTerms int) *TFIDF {
	df := make(map[string]int)
	for _, d := range docs {
		seen := make(map[string]struct{}, len(d.Terms))
		for _, t := range d.Terms {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	n := len(docs)
	vocab := make([]string, 0, len(df))
	for t, c := range df {
		if c < n {
			vocab = append(vocab, t)
		}
	}
	sort.Strings(vocab)

	index := make(map[string]int32, len(vocab))
	idf := make([]float64, len(vocab))
	for i, t := range vocab {
		index[t] = int32(i) //nolint:gosec // vocabulary is bounded by catalog size
		idf[i] = math.Log(float64(n) / float64(df[t]))
	}

	model := &TFIDF{
		Vocabulary: vocab,
		IDF:        idf,
		Vectors:    make(map[string]SparseVector, n),
		Documents:  n,
	}
	for _, d := range docs {
		if v, ok := weigh(d.Terms, index, idf, maxTerms); ok {
			model.Vectors[d.Key] = v
		}
	}
	return model
}

type termWeight struct {
	term   int32
	weight float64
}

func weigh(terms []string, index map[string]int32, idf []float64, maxTerms int) (SparseVector, bool) {
	if len(terms) == 0 {
		return SparseVector{}, false
	}

	counts := make(map[int32]int)
	for _, t := range terms {
		if i, ok := index[t]; ok {
			counts[i]++
		}
	}
	if len(counts) == 0 {
		return SparseVector{}, false
	}

	weights := make([]termWeight, 0, len(counts))
	for i, c := range counts {
		weights = append(weights, termWeight{i, float64(c) / float64(len(terms)) * idf[i]})
	}
	sort.Slice(weights, func(a, b int) bool {
		if weights[a].weight != weights[b].weight {
			return weights[a].weight > weights[b].weight
		}
		return weights[a].term < weights[b].term
	})
	if maxTerms > 0 && len(weights) > maxTerms {
		weights = weights[:maxTerms]
	}
	sort.Slice(weights, func(a, b int) bool { return weights[a].term < weights[b].term })

	var norm float64
	for _, w := range weights {
		norm += w.weight * w.weight
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return SparseVector{}, false
	}

	v := SparseVector{
		Terms:   make([]int32, len(weights)),
		Weights: make([]float64, len(weights)),
	}
	for i, w := range weights {
		v.Terms[i] = w.term
		v.Weights[i] = w.weight / norm
	}
	return v, true
}

// Validate is the sanity gate run before a content model is published:
// a non-trivial corpus must yield vectors, and every vector must be finite
// and unit length.
func (m *TFIDF) Validate() error {
	if m.Documents >= 2 && len(m.Vectors) == 0 {
		return errors.New("no document has a discriminative term")
	}
	for key, v := range m.Vectors {
		if !finite(v.Weights) {
			return fmt.Errorf("vector %s is not finite", key)
		}
		if n := v.Norm(); math.Abs(n-1) > 1e-6 {
			return fmt.Errorf("vector %s has norm %f", key, n)
		}
	}
	return nil
}
