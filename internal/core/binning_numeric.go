// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import (
	"math"
	"sort"

	"github.com/bitjungle/lophi/internal/config"
	"github.com/bitjungle/lophi/pkg/types"
)

// numericSample is one analyzable (non-null value, resolved target) row fed
// to the numeric binning kernel.
type numericSample struct {
	value  float64
	event  bool
	weight float64
}

// PreBin is one leaf of a contiguous numeric partition together with its
// weighted event/non-event mass; it is the unit both the greedy merge (C4)
// and the binning optimizer (C7) operate over.
type PreBin struct {
	Interval types.Interval
	Mass     BinMass
}

// idxRange is a half-open [start, end) index range into a sorted sample
// slice, used by both pre-binning strategies before they hand off to
// segmentsToBins.
type idxRange struct{ start, end int }

// giniImpurity is the CART split criterion: g(p) = 2p(1-p) on the weighted
// event rate.
func giniImpurity(eventWeight, totalWeight float64) float64 {
	if totalWeight <= 0 {
		return 0
	}
	p := eventWeight / totalWeight
	return 2 * p * (1 - p)
}

// BuildNumericPreBins produces at most cfg.Prebins contiguous, non-empty
// bins covering every analyzable (non-null) value of a numeric feature,
// using either the CART or quantile strategy, then greedily merges bins
// until every one satisfies cfg.MinBinSamples.
func BuildNumericPreBins(values []float64, isEvent []bool, weights []float64, eventTotal, nonEventTotal float64, cfg *config.Config) ([]PreBin, error) {
	samples := make([]numericSample, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		samples = append(samples, numericSample{value: v, event: isEvent[i], weight: weights[i]})
	}
	if len(samples) == 0 {
		return nil, types.NewError(types.ErrInvalidBinCount, "no analyzable values for numeric feature")
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i].value < samples[j].value })

	var bins []PreBin
	switch cfg.BinningStrategy {
	case config.StrategyQuantile:
		bins = quantilePreBins(samples, cfg.Prebins)
	default:
		bins = cartPreBins(samples, cfg)
	}

	bins = greedyMergeNumeric(bins, cfg.MinBinSamples, eventTotal, nonEventTotal, cfg.Smoothing)

	nonMissing := 0
	for _, b := range bins {
		if b.Mass.Count >= cfg.MinBinSamples {
			nonMissing++
		}
	}
	if nonMissing < 2 {
		return nil, types.NewError(types.ErrInvalidBinCount, "fewer than two non-missing bins remain after merging")
	}
	return bins, nil
}

// cartPreBins grows a best-first CART partition: at each round, every
// current leaf is searched for its single best split point, and the leaf
// with the globally largest positive gain is split. Growth stops at
// cfg.Prebins leaves or when no leaf has a feasible split left.
func cartPreBins(samples []numericSample, cfg *config.Config) []PreBin {
	n := len(samples)
	minLeafByPct := int(math.Ceil(cfg.CartMinBinPct / 100 * float64(n)))
	minLeaf := cfg.MinBinSamples
	if minLeafByPct > minLeaf {
		minLeaf = minLeafByPct
	}

	leaves := []idxRange{{0, n}}

	for len(leaves) < cfg.Prebins {
		bestLeafIdx := -1
		bestSplit := -1
		bestGain := 0.0

		for li, seg := range leaves {
			var totalWeight, eventWeight float64
			for k := seg.start; k < seg.end; k++ {
				totalWeight += samples[k].weight
				if samples[k].event {
					eventWeight += samples[k].weight
				}
			}
			parentImpurity := giniImpurity(eventWeight, totalWeight)

			var leftWeight, leftEvent float64
			for k := seg.start; k < seg.end-1; k++ {
				leftWeight += samples[k].weight
				if samples[k].event {
					leftEvent += samples[k].weight
				}
				mLeft := k - seg.start + 1
				mRight := seg.end - (k + 1)
				if samples[k].value == samples[k+1].value {
					continue // only split between distinct values
				}
				if mLeft < minLeaf || mRight < minLeaf {
					continue
				}
				rightWeight := totalWeight - leftWeight
				rightEvent := eventWeight - leftEvent
				gL := giniImpurity(leftEvent, leftWeight)
				gR := giniImpurity(rightEvent, rightWeight)
				gain := parentImpurity - (leftWeight*gL+rightWeight*gR)/totalWeight
				if gain > bestGain || (gain == bestGain && gain > 0 && bestSplit != -1 && k < bestSplit) {
					bestGain = gain
					bestSplit = k
					bestLeafIdx = li
				}
			}
		}

		if bestLeafIdx == -1 || bestGain <= 0 {
			break
		}
		seg := leaves[bestLeafIdx]
		left := idxRange{seg.start, bestSplit + 1}
		right := idxRange{bestSplit + 1, seg.end}
		leaves = append(leaves[:bestLeafIdx], leaves[bestLeafIdx+1:]...)
		leaves = append(leaves, left, right)
		sort.Slice(leaves, func(i, j int) bool { return leaves[i].start < leaves[j].start })
	}

	return segmentsToBins(samples, leaves)
}

// quantilePreBins cuts samples at the cfg.Prebins-quantiles of weighted
// mass, collapsing duplicate cut points.
func quantilePreBins(samples []numericSample, prebins int) []PreBin {
	var totalWeight float64
	for _, s := range samples {
		totalWeight += s.weight
	}

	cuts := map[float64]bool{}
	var cum float64
	ci := 0
	for _, s := range samples {
		cum += s.weight
		for ci < prebins-1 && cum >= totalWeight*float64(ci+1)/float64(prebins) {
			cuts[s.value] = true
			ci++
		}
	}

	boundaries := make([]float64, 0, len(cuts))
	for c := range cuts {
		boundaries = append(boundaries, c)
	}
	sort.Float64s(boundaries)

	var leaves []idxRange
	start := 0
	bi := 0
	for i, s := range samples {
		for bi < len(boundaries) && s.value > boundaries[bi] {
			leaves = append(leaves, idxRange{start, i})
			start = i
			bi++
		}
	}
	leaves = append(leaves, idxRange{start, len(samples)})

	return segmentsToBins(samples, leaves)
}

func segmentsToBins(samples []numericSample, leaves []idxRange) []PreBin {
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].start < leaves[j].start })
	bins := make([]PreBin, 0, len(leaves))
	for li, seg := range leaves {
		lo := math.Inf(-1)
		if li > 0 {
			lo = samples[seg.start].value
		}
		hi := math.Inf(1)
		if li < len(leaves)-1 {
			hi = samples[seg.end].value
		}
		var mass BinMass
		for k := seg.start; k < seg.end; k++ {
			mass.Count++
			if samples[k].event {
				mass.Event += samples[k].weight
			} else {
				mass.NonEvent += samples[k].weight
			}
		}
		bins = append(bins, PreBin{Interval: types.Interval{Lo: lo, Hi: hi}, Mass: mass})
	}
	return bins
}

// greedyMergeNumeric repeatedly merges the smallest under-sized bin into
// whichever neighbor maximizes the post-merge IV, tie-broken by closer WoE,
// until every bin satisfies minBinSamples or only one bin remains.
func greedyMergeNumeric(bins []PreBin, minBinSamples int, eventTotal, nonEventTotal, smoothing float64) []PreBin {
	for len(bins) > 1 {
		smallest := -1
		for i, b := range bins {
			if b.Mass.Count < minBinSamples {
				if smallest == -1 || b.Mass.Count < bins[smallest].Mass.Count {
					smallest = i
				}
			}
		}
		if smallest == -1 {
			break
		}
		neighbor := bestMergeNeighbor(bins, smallest, eventTotal, nonEventTotal, smoothing)
		bins = mergeAt(bins, smallest, neighbor)
	}
	return bins
}

// bestMergeNeighbor picks the left or right neighbor of idx that yields the
// higher post-merge IV; ties broken by the neighbor whose WoE is closer to
// idx's own WoE.
func bestMergeNeighbor(bins []PreBin, idx int, eventTotal, nonEventTotal, smoothing float64) int {
	hasLeft := idx > 0
	hasRight := idx < len(bins)-1
	if !hasLeft {
		return idx + 1
	}
	if !hasRight {
		return idx - 1
	}

	leftStats := EvaluateBin(bins[idx].Mass.Add(bins[idx-1].Mass), eventTotal, nonEventTotal, smoothing)
	rightStats := EvaluateBin(bins[idx].Mass.Add(bins[idx+1].Mass), eventTotal, nonEventTotal, smoothing)

	if leftStats.IV > rightStats.IV {
		return idx - 1
	}
	if rightStats.IV > leftStats.IV {
		return idx + 1
	}

	ownStats := EvaluateBin(bins[idx].Mass, eventTotal, nonEventTotal, smoothing)
	leftNeighborStats := EvaluateBin(bins[idx-1].Mass, eventTotal, nonEventTotal, smoothing)
	rightNeighborStats := EvaluateBin(bins[idx+1].Mass, eventTotal, nonEventTotal, smoothing)
	if math.Abs(leftNeighborStats.WoE-ownStats.WoE) <= math.Abs(rightNeighborStats.WoE-ownStats.WoE) {
		return idx - 1
	}
	return idx + 1
}

// mergeAt merges bins[a] and bins[b] (adjacent) into a single bin occupying
// the union interval, returning the shrunk slice.
func mergeAt(bins []PreBin, a, b int) []PreBin {
	if a > b {
		a, b = b, a
	}
	merged := PreBin{
		Interval: types.Interval{Lo: bins[a].Interval.Lo, Hi: bins[b].Interval.Hi},
		Mass:     bins[a].Mass.Add(bins[b].Mass),
	}
	out := make([]PreBin, 0, len(bins)-1)
	out = append(out, bins[:a]...)
	out = append(out, merged)
	out = append(out, bins[b+1:]...)
	return out
}
