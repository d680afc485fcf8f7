// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import (
	"time"

	"github.com/bitjungle/lophi/internal/config"
	"github.com/bitjungle/lophi/pkg/types"
)

// OptimizeResult is the outcome of the binning optimizer: either the
// solver's chosen partition, or the greedy fallback with a diagnostic
// explaining why the solver didn't produce one.
type OptimizeResult struct {
	Bins       []PreBin
	Diagnostic types.SolverDiagnostic
}

// dpState is one (score, lastBinWoE) entry of the partition DP: the best
// total IV reachable ending a k-bin partition at index p, together with the
// WoE of that final bin, which a monotonicity constraint checks when
// extending the path. Only this one highest-scoring path is kept per
// (k, p); other paths to the same state are discarded.
type dpState struct {
	score     float64
	lastWoE   float64
	feasible  bool
	predGroup int // start index of the final bin, for reconstruction
	predK     int // predecessor state index (k-1, predGroup)
}

// Optimize chooses a contiguous partition of preBins maximizing total IV,
// subject to the cardinality target cfg.TargetBins and (optionally) a
// monotonicity trend on the final bins' WoE sequence. It is a dynamic
// program over interval partitions: since the cardinality and coverage
// constraints reduce to "partition n items into exactly K contiguous
// groups", it computes the exact optimum in polynomial time when no trend
// is imposed. Under a trend the result is monotone but not guaranteed
// optimal: each DP state keeps only its highest-scoring path, so a
// lower-scoring path whose last WoE would have admitted a later group is
// discarded, and SolverInfeasible can be reported even though a monotone
// partition into K groups exists.
//
// On timeout (deadline exceeded before the DP completes) or infeasibility
// (no partition satisfies the cardinality/monotonicity constraints), it
// falls back to the greedy partition already present in preBins.
func Optimize(preBins []PreBin, eventTotal, nonEventTotal float64, cfg *config.Config) OptimizeResult {
	deadline := time.Now().Add(time.Duration(cfg.SolverTimeoutSeconds) * time.Second)

	n := len(preBins)
	target := cfg.TargetBins
	if target > n {
		target = n
	}
	if target < 1 {
		target = 1
	}

	ivCache := make([][]float64, n+1)
	woeCache := make([][]float64, n+1)
	feasible := make([][]bool, n+1)
	for i := range ivCache {
		ivCache[i] = make([]float64, n+1)
		woeCache[i] = make([]float64, n+1)
		feasible[i] = make([]bool, n+1)
	}
	for i := 0; i < n; i++ {
		var mass BinMass
		for j := i; j < n; j++ {
			mass = mass.Add(preBins[j].Mass)
			stats := EvaluateBin(mass, eventTotal, nonEventTotal, cfg.Smoothing)
			ivCache[i][j+1] = stats.IV
			woeCache[i][j+1] = stats.WoE
			feasible[i][j+1] = mass.Count >= cfg.MinBinSamples
		}
	}

	trend := cfg.Monotonicity
	if trend == config.MonotoneAuto {
		best := OptimizeResult{Diagnostic: types.SolverInfeasible}
		bestIV := -1.0
		for _, t := range []config.Monotonicity{config.MonotoneNone, config.MonotoneAsc, config.MonotoneDesc, config.MonotonePeak, config.MonotoneVal} {
			sub := *cfg
			sub.Monotonicity = t
			res := Optimize(preBins, eventTotal, nonEventTotal, &sub)
			if res.Diagnostic == types.SolverNone {
				iv := TotalIV(massesToStats(res.Bins, eventTotal, nonEventTotal, cfg.Smoothing))
				if iv > bestIV {
					bestIV = iv
					best = res
				}
			}
			if time.Now().After(deadline) {
				break
			}
		}
		if bestIV < 0 {
			return OptimizeResult{Bins: preBins, Diagnostic: types.SolverInfeasible}
		}
		return best
	}

	if trend == config.MonotonePeak || trend == config.MonotoneVal {
		return optimizePeakValley(preBins, ivCache, woeCache, feasible, target, trend, deadline)
	}

	bins, ok, timedOut := solvePartition(ivCache, woeCache, feasible, n, target, trend, deadline)
	if timedOut {
		return OptimizeResult{Bins: preBins, Diagnostic: types.SolverTimeout}
	}
	if !ok {
		return OptimizeResult{Bins: preBins, Diagnostic: types.SolverInfeasible}
	}
	return OptimizeResult{Bins: reconstructBins(preBins, bins), Diagnostic: types.SolverNone}
}

// solvePartition runs the core DP: dp[k][p] is the best (score, lastWoE)
// achievable partitioning preBins[0,p) into exactly k groups. Transitions
// from dp[k-1][j] to dp[k][p] via group [j,p) are only considered when the
// group is feasible and, under Asc/Desc, compatible with the predecessor's
// WoE. None imposes no compatibility check. The predecessor is the single
// best-scoring path stored at dp[k-1][j]; other paths ending there are not
// considered.
func solvePartition(ivCache, woeCache [][]float64, feasible [][]bool, n, target int, trend config.Monotonicity, deadline time.Time) (groups []int, ok bool, timedOut bool) {
	dp := make([][]dpState, target+1)
	for k := range dp {
		dp[k] = make([]dpState, n+1)
	}
	dp[0][0] = dpState{score: 0, feasible: true}

	for k := 1; k <= target; k++ {
		if time.Now().After(deadline) {
			return nil, false, true
		}
		for p := 1; p <= n; p++ {
			best := dpState{feasible: false}
			for j := 0; j < p; j++ {
				if !dp[k-1][j].feasible || !feasible[j][p] {
					continue
				}
				woe := woeCache[j][p]
				if k > 1 && trend != config.MonotoneNone {
					if !compatible(dp[k-1][j].lastWoE, woe, trend) {
						continue
					}
				}
				score := dp[k-1][j].score + ivCache[j][p]
				if !best.feasible || score > best.score {
					best = dpState{score: score, lastWoE: woe, feasible: true, predGroup: j, predK: k - 1}
				}
			}
			dp[k][p] = best
		}
	}

	if !dp[target][n].feasible {
		return nil, false, false
	}

	groups = make([]int, 0, target)
	k, p := target, n
	for k > 0 {
		st := dp[k][p]
		groups = append([]int{st.predGroup}, groups...)
		p = st.predGroup
		k--
	}
	return groups, true, false
}

// compatible reports whether appending a group with WoE `next` after a
// predecessor group with WoE `prev` respects the requested trend.
func compatible(prev, next float64, trend config.Monotonicity) bool {
	switch trend {
	case config.MonotoneAsc:
		return next >= prev
	case config.MonotoneDesc:
		return next <= prev
	default:
		return true
	}
}

// optimizePeakValley enumerates every possible apex position, solving each
// side as an ascending/descending (for Peak) or descending/ascending (for
// Valley) instance, and keeps the best-IV combination overall.
func optimizePeakValley(preBins []PreBin, ivCache, woeCache [][]float64, feasible [][]bool, target int, trend config.Monotonicity, deadline time.Time) OptimizeResult {
	n := len(preBins)
	bestIV := -1.0
	var bestGroups []int

	firstTrend, secondTrend := config.MonotoneAsc, config.MonotoneDesc
	if trend == config.MonotoneVal {
		firstTrend, secondTrend = config.MonotoneDesc, config.MonotoneAsc
	}

	for apex := 1; apex < n; apex++ {
		if time.Now().After(deadline) {
			return OptimizeResult{Bins: preBins, Diagnostic: types.SolverTimeout}
		}
		for leftK := 1; leftK < target; leftK++ {
			rightK := target - leftK
			if rightK < 1 {
				continue
			}
			leftGroups, leftOK, _ := solvePartition(subCache(ivCache, 0, apex), subCache(woeCache, 0, apex), subFeasible(feasible, 0, apex), apex, leftK, firstTrend, deadline)
			if !leftOK {
				continue
			}
			rightGroups, rightOK, _ := solvePartition(subCache(ivCache, apex, n), subCache(woeCache, apex, n), subFeasible(feasible, apex, n), n-apex, rightK, secondTrend, deadline)
			if !rightOK {
				continue
			}
			groups := append(append([]int{}, leftGroups...), offsetGroups(rightGroups, apex)...)
			iv := partitionIV(ivCache, groups, n)
			if iv > bestIV {
				bestIV = iv
				bestGroups = groups
			}
		}
	}

	if bestGroups == nil {
		return OptimizeResult{Bins: preBins, Diagnostic: types.SolverInfeasible}
	}
	return OptimizeResult{Bins: reconstructBins(preBins, bestGroups), Diagnostic: types.SolverNone}
}

func offsetGroups(groups []int, offset int) []int {
	out := make([]int, len(groups))
	for i, g := range groups {
		out[i] = g + offset
	}
	return out
}

func partitionIV(ivCache [][]float64, groups []int, n int) float64 {
	var total float64
	for i, start := range groups {
		end := n
		if i+1 < len(groups) {
			end = groups[i+1]
		}
		total += ivCache[start][end]
	}
	return total
}

// subCache/subFeasible extract the [lo, hi) sub-range of a full-range
// upper-triangular cache, re-indexed to start at 0, for use by the
// apex-split sub-problems in optimizePeakValley.
func subCache(cache [][]float64, lo, hi int) [][]float64 {
	size := hi - lo
	out := make([][]float64, size+1)
	for i := 0; i <= size; i++ {
		out[i] = make([]float64, size+1)
		for j := i; j <= size; j++ {
			out[i][j] = cache[lo+i][lo+j]
		}
	}
	return out
}

func subFeasible(cache [][]bool, lo, hi int) [][]bool {
	size := hi - lo
	out := make([][]bool, size+1)
	for i := 0; i <= size; i++ {
		out[i] = make([]bool, size+1)
		for j := i; j <= size; j++ {
			out[i][j] = cache[lo+i][lo+j]
		}
	}
	return out
}

// reconstructBins merges preBins according to the group start indices into
// the final contiguous partition.
func reconstructBins(preBins []PreBin, groupStarts []int) []PreBin {
	n := len(preBins)
	out := make([]PreBin, 0, len(groupStarts))
	for i, start := range groupStarts {
		end := n
		if i+1 < len(groupStarts) {
			end = groupStarts[i+1]
		}
		merged := preBins[start]
		for j := start + 1; j < end; j++ {
			merged = PreBin{
				Interval: types.Interval{Lo: merged.Interval.Lo, Hi: preBins[j].Interval.Hi},
				Mass:     merged.Mass.Add(preBins[j].Mass),
			}
		}
		out = append(out, merged)
	}
	return out
}

func massesToStats(bins []PreBin, eventTotal, nonEventTotal, smoothing float64) []types.BinStats {
	out := make([]types.BinStats, len(bins))
	for i, b := range bins {
		out[i] = EvaluateBin(b.Mass, eventTotal, nonEventTotal, smoothing)
	}
	return out
}
