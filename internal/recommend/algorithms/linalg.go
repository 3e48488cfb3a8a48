// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package algorithms

import "math"

// choleskySolve solves A x = b for a symmetric positive-definite n x n
// matrix A stored row-major in a. a is overwritten with the factor L.
//
// ALS systems are (YtY + lambda I + ...) with lambda > 0, so they are
// positive definite up to rounding. A pivot that rounds to zero or below
// is clamped so the solve degrades gracefully instead of producing NaN.
//
//nolint:gocritic // a, b, L follow standard linear algebra notation
func choleskySolve(a, b []float64, n int) []float64 {
	// In-place factorization: lower triangle of a becomes L.
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := a[i*n+j]
			for k := 0; k < j; k++ {
				sum -= a[i*n+k] * a[j*n+k]
			}
			if i == j {
				if sum <= 1e-12 {
					sum = 1e-12
				}
				a[i*n+i] = math.Sqrt(sum)
			} else {
				a[i*n+j] = sum / a[j*n+j]
			}
		}
	}

	// L z = b
	z := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := b[i]
		for k := 0; k < i; k++ {
			sum -= a[i*n+k] * z[k]
		}
		z[i] = sum / a[i*n+i]
	}

	// L' x = z
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := z[i]
		for k := i + 1; k < n; k++ {
			sum -= a[k*n+i] * x[k]
		}
		x[i] = sum / a[i*n+i]
	}
	return x
}

// gram returns F' F for the rows of F as a row-major k x k matrix.
func gram(rows [][]float64, k int) []float64 {
	g := make([]float64, k*k)
	for _, r := range rows {
		for f1 := 0; f1 < k; f1++ {
			v := r[f1]
			if v == 0 {
				continue
			}
			for f2 := f1; f2 < k; f2++ {
				g[f1*k+f2] += v * r[f2]
			}
		}
	}
	for f1 := 0; f1 < k; f1++ {
		for f2 := 0; f2 < f1; f2++ {
			g[f1*k+f2] = g[f2*k+f1]
		}
	}
	return g
}

// quadForm returns x' G x for a row-major k x k matrix G.
func quadForm(x, g []float64, k int) float64 {
	var sum float64
	for i := 0; i < k; i++ {
		var row float64
		for j := 0; j < k; j++ {
			row += g[i*k+j] * x[j]
		}
		sum += x[i] * row
	}
	return sum
}
