// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import (
	"sort"

	"github.com/bitjungle/lophi/pkg/types"
)

// BinMass is the weighted event/non-event mass and raw sample count
// assigned to one pre-bin or final bin; it is the sufficient statistic C6
// needs to compute WoE/IV for that bin, and the unit C7 merges over
// contiguous ranges of.
type BinMass struct {
	Event    float64
	NonEvent float64
	Count    int
}

// Add returns the pointwise sum of two BinMass values, used when merging
// adjacent pre-bins into a wider final bin.
func (m BinMass) Add(o BinMass) BinMass {
	return BinMass{Event: m.Event + o.Event, NonEvent: m.NonEvent + o.NonEvent, Count: m.Count + o.Count}
}

// EvaluateBin computes Laplace-smoothed WoE/IV for a single bin's mass
// against the feature's population totals.
func EvaluateBin(mass BinMass, eventTotal, nonEventTotal, smoothing float64) types.BinStats {
	return types.ComputeBinStats(mass.Event, mass.NonEvent, mass.Count, eventTotal, nonEventTotal, smoothing)
}

// TotalIV sums IV contributions across bins, including the missing bin,
// always non-negative under the smoothing invariant.
func TotalIV(stats []types.BinStats) float64 {
	var total float64
	for _, s := range stats {
		total += s.IV
	}
	return total
}

// woeRow is one row's WoE-encoded value (the WoE of whichever bin the row
// falls in, including the missing bin) paired with its target class and
// weight, the unit the weighted Mann-Whitney U statistic is computed over.
type woeRow struct {
	woe    float64
	weight float64
	event  bool
}

// Gini computes the Gini coefficient of a feature given the WoE value
// assigned to each analyzable row and that row's target class and weight.
// It implements the weighted Mann-Whitney U / AUC construction from the
// design: sort by WoE, assign tied rows the midpoint rank of their
// cumulative weight interval, then U = sum(w_i * rank_i over events) -
// W_E^2/2, AUC = U / (W_E * W_NE), Gini = 2*AUC - 1.
//
// Returns singular=true when either class carries zero weight, in which
// case Gini is undefined (reported as the Singular diagnostic upstream).
func Gini(rows []woeRow) (gini float64, singular bool) {
	if len(rows) == 0 {
		return 0, true
	}

	sorted := make([]woeRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].woe < sorted[j].woe })

	var weightEvent, weightNonEvent float64
	for _, r := range sorted {
		if r.event {
			weightEvent += r.weight
		} else {
			weightNonEvent += r.weight
		}
	}
	if weightEvent <= 0 || weightNonEvent <= 0 {
		return 0, true
	}

	var cumWeight float64
	var u float64
	i := 0
	for i < len(sorted) {
		j := i
		for j < len(sorted) && sorted[j].woe == sorted[i].woe {
			j++
		}
		// Rows [i, j) are tied: the group spans cumulative weight interval
		// (cumWeight, cumWeight+groupWeight]; every row in it gets the
		// midpoint rank of that interval.
		var groupWeight float64
		for k := i; k < j; k++ {
			groupWeight += sorted[k].weight
		}
		midRank := cumWeight + groupWeight/2
		for k := i; k < j; k++ {
			if sorted[k].event {
				u += sorted[k].weight * midRank
			}
		}
		cumWeight += groupWeight
		i = j
	}

	u -= (weightEvent * weightEvent) / 2
	auc := u / (weightEvent * weightNonEvent)
	return 2*auc - 1, false
}
