// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package algorithms

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"
)

// ErrNonFinite is returned when a factor update produces NaN or Inf.
var ErrNonFinite = errors.New("als produced non-finite factors")

// ALSParams configures one ALS fit.
type ALSParams struct {
	// Factors is the dimension of the latent vectors.
	Factors int

	// Lambda is the L2 regularization weight.
	Lambda float64

	// Alpha scales confidence: c = 1 + Alpha * weightSum.
	Alpha float64

	// Iterations caps the number of alternating sweeps.
	Iterations int

	// Epsilon stops early once the relative loss change drops below it.
	Epsilon float64

	// TimeBudget is a soft deadline. When it passes before convergence the
	// best iterate so far is returned flagged as degraded.
	TimeBudget time.Duration

	// Workers is the solve parallelism. Zero means GOMAXPROCS.
	Workers int

	// Seed makes initialization reproducible.
	Seed int64
}

// ALSResult is a fitted factorization.
type ALSResult struct {
	// ActorFactors[u] and ItemFactors[i] follow the matrix indices.
	ActorFactors [][]float64
	ItemFactors  [][]float64

	Iterations int
	Loss       float64
	Converged  bool

	// Degraded is set when the time budget ran out before convergence.
	Degraded bool
}

// Score returns the predicted preference of actor u for item i.
func (r *ALSResult) Score(u, i int) float64 {
	return Dot(r.ActorFactors[u], r.ItemFactors[i])
}

// TrainALS fits implicit-feedback factors to m.
//
// The hard deadline is ctx: cancellation aborts with ctx.Err() and no
// result. The soft deadline is p.TimeBudget, checked after each sweep.
func TrainALS(ctx context.Context, m *InteractionMatrix, p ALSParams) (*ALSResult, error) {
	if p.Factors <= 0 {
		return nil, errors.New("als factors must be positive")
	}
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	nu, ni, k := m.NumActors(), m.NumItems(), p.Factors
	res := &ALSResult{
		ActorFactors: initFactors(nu, k, p.Seed),
		ItemFactors:  initFactors(ni, k, p.Seed+1),
	}
	if nu == 0 || ni == 0 {
		res.Converged = true
		return res, nil
	}

	start := time.Now()
	prevLoss := math.Inf(1)
	for iter := 0; iter < p.Iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		solveSide(res.ActorFactors, res.ItemFactors, m.Rows, k, p, workers)

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		solveSide(res.ItemFactors, res.ActorFactors, m.Cols, k, p, workers)

		loss := implicitLoss(m, res, k, p)
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return nil, ErrNonFinite
		}
		res.Iterations = iter + 1
		res.Loss = loss

		if prevLoss != math.Inf(1) && math.Abs(prevLoss-loss) <= p.Epsilon*math.Max(prevLoss, 1e-12) {
			res.Converged = true
			break
		}
		prevLoss = loss

		if p.TimeBudget > 0 && time.Since(start) > p.TimeBudget && iter+1 < p.Iterations {
			res.Degraded = true
			break
		}
	}
	if !res.Degraded && res.Iterations == p.Iterations {
		// Reaching the iteration cap is the normal stopping rule.
		res.Converged = true
	}

	for _, f := range res.ActorFactors {
		if !finite(f) {
			return nil, ErrNonFinite
		}
	}
	for _, f := range res.ItemFactors {
		if !finite(f) {
			return nil, ErrNonFinite
		}
	}
	return res, nil
}

func initFactors(n, k int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible init, not security
	scale := 0.1 / math.Sqrt(float64(k))
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, k)
		for f := range out[i] {
			out[i][f] = scale * (rng.Float64() - 0.5)
		}
	}
	return out
}

// solveSide recomputes every vector in target holding fixed constant.
// lines[t] holds the observed cells for target vector t.
//
//	x_t = (F'F + F' (C_t - I) F + lambda I)^-1 F' C_t p_t
func solveSide(target, fixed [][]float64, lines [][]Entry, k int, p ALSParams, workers int) {
	ftf := gram(fixed, k)

	var wg sync.WaitGroup
	chunk := (len(target) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(target) {
			hi = len(target)
		}
		if lo >= hi {
			break
		}

		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			a := make([]float64, k*k)
			b := make([]float64, k)
			for t := lo; t < hi; t++ {
				copy(a, ftf)
				for f := 0; f < k; f++ {
					a[f*k+f] += p.Lambda
					b[f] = 0
				}
				for _, e := range lines[t] {
					c := 1 + p.Alpha*e.Value
					y := fixed[e.Index]
					for f1 := 0; f1 < k; f1++ {
						v := (c - 1) * y[f1]
						for f2 := f1; f2 < k; f2++ {
							a[f1*k+f2] += v * y[f2]
						}
						b[f1] += c * y[f1]
					}
				}
				for f1 := 0; f1 < k; f1++ {
					for f2 := 0; f2 < f1; f2++ {
						a[f1*k+f2] = a[f2*k+f1]
					}
				}
				target[t] = choleskySolve(a, b, k)
			}
		}(lo, hi)
	}
	wg.Wait()
}

// implicitLoss evaluates the full objective in O(nu k^2 + nnz k) by
// summing the unobserved cells through the item Gram matrix:
//
//	sum_{all u,i} s_ui^2 = sum_u x_u' (Y'Y) x_u
//
// and correcting the observed cells to c (1 - s)^2.
func implicitLoss(m *InteractionMatrix, r *ALSResult, k int, p ALSParams) float64 {
	yty := gram(r.ItemFactors, k)

	var loss float64
	for u, row := range m.Rows {
		x := r.ActorFactors[u]
		loss += quadForm(x, yty, k)
		for _, e := range row {
			s := Dot(x, r.ItemFactors[e.Index])
			c := 1 + p.Alpha*e.Value
			loss += c*(1-s)*(1-s) - s*s
		}
	}

	var reg float64
	for _, x := range r.ActorFactors {
		reg += Dot(x, x)
	}
	for _, y := range r.ItemFactors {
		reg += Dot(y, y)
	}
	return loss + p.Lambda*reg
}

// HeldOutError scores r on the held-out cells as positives and an equal
// number of sampled unobserved cells as negatives, and returns the mean
// squared error against targets 1 and 0. ok is false when there is
// nothing to evaluate.
//
// full is the matrix before the split, so sampled negatives are never
// cells the actor actually interacted with.
func HeldOutError(r *ALSResult, full *InteractionMatrix, heldOut []Cell, seed int64) (mse float64, ok bool) {
	if len(heldOut) == 0 || full.NumItems() < 2 {
		return 0, false
	}

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible sampling
	var sum float64
	n := 0
	for _, c := range heldOut {
		d := 1 - r.Score(c.Actor, c.Item)
		sum += d * d
		n++

		// A handful of attempts is enough on sparse data.
		for attempt := 0; attempt < 10; attempt++ {
			j := rng.Intn(full.NumItems())
			if full.Has(c.Actor, j) {
				continue
			}
			s := r.Score(c.Actor, j)
			sum += s * s
			n++
			break
		}
	}
	return sum / float64(n), true
}
