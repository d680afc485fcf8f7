// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import (
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/bitjungle/lophi/internal/config"
	"github.com/bitjungle/lophi/pkg/types"
)

// welfordPair accumulates the single-pass, numerically stable weighted
// covariance recurrence for one (x, y) column pair, restricted to rows
// where both values are non-null and carry positive weight.
type welfordPair struct {
	w     float64
	meanX float64
	meanY float64
	sxx   float64
	syy   float64
	sxy   float64
}

func (a *welfordPair) add(x, y, w float64) {
	a.w += w
	dx := x - a.meanX
	a.meanX += w * dx / a.w
	dy := y - a.meanY
	a.meanY += w * dy / a.w
	a.sxx += w * dx * (x - a.meanX)
	a.syy += w * dy * (y - a.meanY)
	a.sxy += w * dx * (y - a.meanY)
}

func (a *welfordPair) correlation() float64 {
	if a.w <= 0 || a.sxx <= 0 || a.syy <= 0 {
		return math.NaN()
	}
	return a.sxy / math.Sqrt(a.sxx*a.syy)
}

// CorrelationMatrix computes the weighted Pearson correlation between every
// pair of numeric columns named in cols, restricted row-by-row to the
// intersection of each pair's non-null rows. It dispatches to the pairwise
// Welford algorithm below cfg.MatrixThreshold columns and to the
// dense-matrix algorithm at or above it; both compute the same restricted
// moments and agree to within floating point tolerance, so callers may treat
// the choice as a pure performance concern. Pairs with zero intersecting
// weight (r undefined) are omitted from the result.
func CorrelationMatrix(table *types.Table, cols []string, weights []float64, cfg *config.Config) ([]types.PairScore, error) {
	if len(cols) < 2 {
		return nil, nil
	}
	sorted := append([]string(nil), cols...)
	sort.Strings(sorted)

	if len(sorted) < cfg.MatrixThreshold {
		return pairwiseCorrelation(table, sorted, weights)
	}
	return matrixCorrelation(table, sorted, weights)
}

// pairwiseCorrelation runs one streaming Welford accumulator per column
// pair. Pairs are independent, so they are distributed across a bounded
// worker pool.
func pairwiseCorrelation(table *types.Table, cols []string, weights []float64) ([]types.PairScore, error) {
	type job struct{ i, j int }
	var jobs []job
	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			jobs = append(jobs, job{i, j})
		}
	}
	if len(jobs) == 0 {
		return nil, nil
	}

	columns := make([]types.Column, len(cols))
	for i, name := range cols {
		columns[i], _ = table.Column(name)
	}

	results := make([]types.PairScore, len(jobs))
	var g errgroup.Group
	g.SetLimit(correlationWorkerLimit())
	for idx, jb := range jobs {
		idx, jb := idx, jb
		g.Go(func() error {
			x := columns[jb.i].Numeric
			y := columns[jb.j].Numeric
			var acc welfordPair
			for row := 0; row < table.Rows(); row++ {
				if math.IsNaN(x[row]) || math.IsNaN(y[row]) {
					continue
				}
				w := weights[row]
				if w <= 0 {
					continue
				}
				acc.add(x[row], y[row], w)
			}
			r := acc.correlation()
			results[idx] = types.PairScore{FeatureI: cols[jb.i], FeatureJ: cols[jb.j], R: r, AbsR: math.Abs(r)}
			return nil
		})
	}
	_ = g.Wait()

	return filterFiniteScores(results), nil
}

// matrixCorrelation materializes every numeric column into a shared
// gonum dense matrix and derives pairwise correlation from it directly.
// A column's global mean and variance are not reusable across pairs here:
// once two columns carry different null patterns, the subset of rows a
// pair shares is not the same subset every other pair involving that
// column shares, so each pair must be centered on its own restricted mean
// before its central moments are accumulated (a single global
// standardization followed by a plain Gram product silently mixes in rows
// outside the pair's intersection and produces a biased, sometimes
// out-of-range r). This is the path used once column count reaches
// cfg.MatrixThreshold; it keeps the pairwise algorithm's per-pair
// restriction but replaces the streaming Welford recurrence with a
// two-pass reduction over a shared mat.Dense, which favors cache locality
// on wide tables.
func matrixCorrelation(table *types.Table, cols []string, weights []float64) ([]types.PairScore, error) {
	n := table.Rows()
	d := len(cols)

	raw := mat.NewDense(n, d, nil)
	for c, name := range cols {
		col, _ := table.Column(name)
		for row := 0; row < n; row++ {
			raw.Set(row, c, col.Numeric[row])
		}
	}

	var mu sync.Mutex
	var results []types.PairScore
	var g errgroup.Group
	g.SetLimit(correlationWorkerLimit())

	for i := 0; i < d; i++ {
		for j := i + 1; j < d; j++ {
			i, j := i, j
			g.Go(func() error {
				r := restrictedPearson(raw, i, j, weights, n)
				mu.Lock()
				results = append(results, types.PairScore{FeatureI: cols[i], FeatureJ: cols[j], R: r, AbsR: math.Abs(r)})
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	sort.Slice(results, func(a, b int) bool {
		if results[a].FeatureI != results[b].FeatureI {
			return results[a].FeatureI < results[b].FeatureI
		}
		return results[a].FeatureJ < results[b].FeatureJ
	})
	return filterFiniteScores(results), nil
}

// restrictedPearson computes the weighted Pearson correlation between
// columns i and j of raw over exactly the rows where both are non-null
// and carry positive weight: a first pass establishes the pair's own
// weighted means over that intersection, a second accumulates the central
// second moments against those means. This is the same quantity
// welfordPair accumulates in one streaming pass, just split into two
// explicit passes, so the two algorithms always agree to within floating
// point tolerance regardless of how the columns' null patterns differ.
func restrictedPearson(raw *mat.Dense, i, j int, weights []float64, n int) float64 {
	var wsum, wx, wy float64
	for row := 0; row < n; row++ {
		x, y := raw.At(row, i), raw.At(row, j)
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		w := weights[row]
		if w <= 0 {
			continue
		}
		wsum += w
		wx += w * x
		wy += w * y
	}
	if wsum <= 0 {
		return math.NaN()
	}
	meanX, meanY := wx/wsum, wy/wsum

	var sxx, syy, sxy float64
	for row := 0; row < n; row++ {
		x, y := raw.At(row, i), raw.At(row, j)
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		w := weights[row]
		if w <= 0 {
			continue
		}
		dx, dy := x-meanX, y-meanY
		sxx += w * dx * dx
		syy += w * dy * dy
		sxy += w * dx * dy
	}
	if sxx <= 0 || syy <= 0 {
		return math.NaN()
	}
	return sxy / math.Sqrt(sxx*syy)
}

func filterFiniteScores(scores []types.PairScore) []types.PairScore {
	out := make([]types.PairScore, 0, len(scores))
	for _, s := range scores {
		if !math.IsNaN(s.R) {
			out = append(out, s)
		}
	}
	return out
}

// correlationWorkerLimit bounds concurrent goroutines per correlation call.
// Pair computations are independent and side-effect free, so any positive
// limit is correct; this caps resource use on wide tables.
func correlationWorkerLimit() int {
	return 8
}
