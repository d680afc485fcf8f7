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

// BreakPairs resolves the correlated-pair graph into a drop set: repeatedly
// take the surviving pair with the largest |r|, and drop whichever of its
// two endpoints currently appears in the most surviving pairs (breaking the
// most edges per drop). Ties go to the feature with the lower Gini, then to
// the lexicographically later name. The target column, if present among
// the candidate features, is never dropped.
//
// ginis supplies each feature's Gini coefficient for tie-breaking; a
// feature absent from ginis is treated as Gini 0 (least informative).
func BreakPairs(pairs []types.PairScore, threshold float64, ginis map[string]float64, target string) map[string]bool {
	var active []types.PairScore
	for _, p := range pairs {
		if p.AbsR > threshold {
			active = append(active, p)
		}
	}

	dropped := make(map[string]bool)
	for len(active) > 0 {
		sort.Slice(active, func(i, j int) bool {
			if active[i].AbsR != active[j].AbsR {
				return active[i].AbsR > active[j].AbsR
			}
			if active[i].FeatureI != active[j].FeatureI {
				return active[i].FeatureI < active[j].FeatureI
			}
			return active[i].FeatureJ < active[j].FeatureJ
		})
		top := active[0]

		freq := pairFrequency(active)
		loser := pickLoser(top.FeatureI, top.FeatureJ, freq, ginis, target)
		dropped[loser] = true

		var remaining []types.PairScore
		for _, p := range active {
			if p.FeatureI == loser || p.FeatureJ == loser {
				continue
			}
			remaining = append(remaining, p)
		}
		active = remaining
	}

	return dropped
}

func pairFrequency(pairs []types.PairScore) map[string]int {
	freq := make(map[string]int)
	for _, p := range pairs {
		freq[p.FeatureI]++
		freq[p.FeatureJ]++
	}
	return freq
}

// pickLoser chooses which of a and b to drop: the target is never chosen
// unless it is the only candidate, then higher pair-frequency, then lower
// Gini, then the lexicographically later name.
func pickLoser(a, b string, freq map[string]int, ginis map[string]float64, target string) string {
	if a == target {
		return b
	}
	if b == target {
		return a
	}
	if freq[a] != freq[b] {
		if freq[a] > freq[b] {
			return a
		}
		return b
	}
	gA, gB := ginis[a], ginis[b]
	if gA != gB {
		if gA < gB {
			return a
		}
		return b
	}
	if a > b {
		return a
	}
	return b
}
