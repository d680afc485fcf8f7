// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import (
	"sort"

	"github.com/bitjungle/lophi/internal/config"
	"github.com/bitjungle/lophi/pkg/types"
)

// CategoricalBin is one group of category labels together with its
// weighted event/non-event mass.
type CategoricalBin struct {
	Categories []string
	IsOther    bool
	Mass       BinMass
}

// BuildCategoricalBins groups rows by category, merges any category whose
// raw count falls below cfg.MinCategorySamples into a single OTHER bucket,
// and, when the solver is disabled, emits one bin per remaining category.
// When the solver is enabled, remaining categories (and OTHER, if
// non-empty) are sorted by event rate ascending and CART-merged exactly as
// the numeric kernel merges pre-bins, treating the sorted sequence as a
// contiguous axis.
func BuildCategoricalBins(values []string, nullMask []bool, isEvent []bool, weights []float64, eventTotal, nonEventTotal float64, cfg *config.Config) ([]CategoricalBin, error) {
	type agg struct {
		mass BinMass
	}
	byCat := make(map[string]*agg)

	for i, v := range values {
		if nullMask != nil && nullMask[i] {
			continue
		}
		a, ok := byCat[v]
		if !ok {
			a = &agg{}
			byCat[v] = a
		}
		a.mass.Count++
		if isEvent[i] {
			a.mass.Event += weights[i]
		} else {
			a.mass.NonEvent += weights[i]
		}
	}

	var kept []CategoricalBin
	var other CategoricalBin
	other.IsOther = true
	for cat, a := range byCat {
		if a.mass.Count < cfg.MinCategorySamples {
			other.Mass = other.Mass.Add(a.mass)
			other.Categories = append(other.Categories, cat)
			continue
		}
		kept = append(kept, CategoricalBin{Categories: []string{cat}, Mass: a.mass})
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Categories[0] < kept[j].Categories[0] })
	if other.Mass.Count > 0 {
		sort.Strings(other.Categories)
		kept = append(kept, other)
	}

	if len(kept) == 0 {
		return nil, types.NewError(types.ErrInvalidBinCount, "no analyzable categories for categorical feature")
	}

	if !cfg.UseSolver {
		return kept, nil
	}
	return cartMergeCategorical(kept, eventTotal, nonEventTotal, cfg), nil
}

// cartMergeCategorical orders bins by event rate ascending and merges
// adjacent bins with the same IV-maximizing criterion the numeric kernel
// uses, down to at most cfg.TargetBins groups.
func cartMergeCategorical(bins []CategoricalBin, eventTotal, nonEventTotal float64, cfg *config.Config) []CategoricalBin {
	sort.Slice(bins, func(i, j int) bool {
		return eventRate(bins[i].Mass) < eventRate(bins[j].Mass)
	})

	target := cfg.TargetBins
	if target > len(bins) {
		target = len(bins)
	}
	if target < 1 {
		target = 1
	}

	for len(bins) > target {
		// Merge the adjacent pair whose combined IV loss (relative to
		// keeping them separate) is smallest, i.e. the pair most alike in
		// WoE, mirroring the numeric kernel's "closer WoE" tie-break.
		bestIdx := 0
		bestDelta := mergeDelta(bins, 0, eventTotal, nonEventTotal, cfg.Smoothing)
		for i := 1; i < len(bins)-1; i++ {
			d := mergeDelta(bins, i, eventTotal, nonEventTotal, cfg.Smoothing)
			if d < bestDelta {
				bestDelta = d
				bestIdx = i
			}
		}
		merged := CategoricalBin{
			Categories: append(append([]string{}, bins[bestIdx].Categories...), bins[bestIdx+1].Categories...),
			IsOther:    bins[bestIdx].IsOther || bins[bestIdx+1].IsOther,
			Mass:       bins[bestIdx].Mass.Add(bins[bestIdx+1].Mass),
		}
		out := make([]CategoricalBin, 0, len(bins)-1)
		out = append(out, bins[:bestIdx]...)
		out = append(out, merged)
		out = append(out, bins[bestIdx+2:]...)
		bins = out
	}
	return bins
}

func mergeDelta(bins []CategoricalBin, i int, eventTotal, nonEventTotal, smoothing float64) float64 {
	a := EvaluateBin(bins[i].Mass, eventTotal, nonEventTotal, smoothing)
	b := EvaluateBin(bins[i+1].Mass, eventTotal, nonEventTotal, smoothing)
	merged := EvaluateBin(bins[i].Mass.Add(bins[i+1].Mass), eventTotal, nonEventTotal, smoothing)
	return (a.IV + b.IV) - merged.IV
}

func eventRate(m BinMass) float64 {
	total := m.Event + m.NonEvent
	if total <= 0 {
		return 0
	}
	return m.Event / total
}
