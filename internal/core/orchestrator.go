// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/bitjungle/lophi/internal/config"
	"github.com/bitjungle/lophi/internal/version"
	"github.com/bitjungle/lophi/pkg/types"
)

// AbortFlag is polled at stage boundaries; a reduce() call observing it
// return true stops without producing a partial outcome.
type AbortFlag func() bool

// Reduce is the single entry point of the core: it resolves the target and
// weight vectors, then applies the Missing, IV/Gini and Correlation stages
// in fixed order, each stage's surviving column set feeding the next.
func Reduce(table *types.Table, targetName string, weightColumn *string, cfg *config.Config, abort AbortFlag) (*types.ReductionOutcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if table.Rows() == 0 || len(table.Columns()) == 0 {
		return nil, types.NewError(types.ErrEmptyTable, "table has zero rows or zero columns")
	}

	// Weights come from the original table so that a weight column listed in
	// DropColumns still resolves; it is never analyzed as a feature either way.
	weights, err := ResolveWeights(table, weightColumn)
	if err != nil {
		return nil, err
	}

	working := table
	if len(cfg.DropColumns) > 0 {
		drop := make(map[string]bool, len(cfg.DropColumns))
		for _, name := range cfg.DropColumns {
			drop[name] = true
		}
		working = table.Without(drop)
	}
	target, err := ResolveTarget(working, targetName, weights, cfg)
	if err != nil {
		return nil, err
	}

	if abort != nil && abort() {
		return nil, types.NewError(types.ErrAborted, "aborted before stage 1")
	}

	var drops []types.DropRecord
	dropped := make(map[string]bool)
	var timings types.StageTimings

	features := make([]string, 0, len(working.Columns()))
	for _, name := range working.Columns() {
		if name == targetName {
			continue
		}
		if weightColumn != nil && name == *weightColumn {
			continue
		}
		features = append(features, name)
	}
	sort.Strings(features)

	// Stage 1: Missing.
	stageStart := time.Now()
	missingReport := MissingReport(working, weights)
	for _, name := range features {
		ratio := missingReport[name]
		if ratio > cfg.MissingThreshold {
			dropped[name] = true
			drops = append(drops, types.DropRecord{
				Feature: name,
				Stage:   types.StageMissing,
				Reason:  "missing_ratio_exceeds_threshold",
				Context: map[string]any{"ratio": ratio, "threshold": cfg.MissingThreshold},
			})
		}
	}
	timings[0] = uint32(time.Since(stageStart).Milliseconds())

	survivors := remaining(features, dropped)
	if len(survivors) == 0 {
		return nil, types.NewError(types.ErrDegenerateReduction, "no non-target features survived the missing-value stage")
	}
	if abort != nil && abort() {
		return nil, types.NewError(types.ErrAborted, "aborted after stage 1")
	}

	// Stage 2: IV/Gini. Feature-level computations are independent; fan out
	// across a bounded worker pool and collect results sorted by feature
	// name before any drop decision is made, so ties resolve deterministically.
	stageStart = time.Now()
	analyses := make(map[string]types.AnalysisRecord, len(survivors))
	results := make([]types.AnalysisRecord, len(survivors))
	var g errgroup.Group
	g.SetLimit(featureWorkerLimit())
	for idx, name := range survivors {
		idx, name := idx, name
		g.Go(func() error {
			col, _ := working.Column(name)
			results[idx] = analyzeFeature(name, col, target, weights, cfg)
			return nil
		})
	}
	_ = g.Wait()

	ginis := make(map[string]float64, len(survivors))
	for i, name := range survivors {
		analyses[name] = results[i]
		ginis[name] = results[i].Gini
		if results[i].Excluded() {
			dropped[name] = true
			drops = append(drops, types.DropRecord{
				Feature: name,
				Stage:   types.StageIV,
				Reason:  string(results[i].Exclusion),
				Context: map[string]any{"gini": results[i].Gini, "total_iv": results[i].TotalIV},
			})
		} else if results[i].Gini < cfg.GiniThreshold {
			dropped[name] = true
			drops = append(drops, types.DropRecord{
				Feature: name,
				Stage:   types.StageIV,
				Reason:  "gini_below_threshold",
				Context: map[string]any{"gini": results[i].Gini, "threshold": cfg.GiniThreshold},
			})
		}
	}
	timings[1] = uint32(time.Since(stageStart).Milliseconds())

	survivors = remaining(survivors, dropped)
	if len(survivors) == 0 {
		return nil, types.NewError(types.ErrDegenerateReduction, "no non-target features survived the IV/Gini stage")
	}
	if abort != nil && abort() {
		return nil, types.NewError(types.ErrAborted, "aborted after stage 2")
	}

	// Stage 3: Correlation, over numeric survivors only.
	stageStart = time.Now()
	var numericCols []string
	for _, name := range survivors {
		col, _ := working.Column(name)
		if col.Kind == types.KindNumeric {
			numericCols = append(numericCols, name)
		}
	}
	if !cfg.ExcludeTargetFromCorrelation {
		if targetCol, ok := working.Column(targetName); ok && targetCol.Kind == types.KindNumeric {
			numericCols = append(numericCols, targetName)
		}
	}

	correlations, err := CorrelationMatrix(working, numericCols, weights, cfg)
	if err != nil {
		return nil, err
	}
	corrDropped := BreakPairs(correlations, cfg.CorrelationThreshold, ginis, targetName)
	corrNames := make([]string, 0, len(corrDropped))
	for name := range corrDropped {
		corrNames = append(corrNames, name)
	}
	sort.Strings(corrNames)
	for _, name := range corrNames {
		if name == targetName {
			continue
		}
		dropped[name] = true
		drops = append(drops, types.DropRecord{
			Feature: name,
			Stage:   types.StageCorrelation,
			Reason:  "correlated_pair_drop",
			Context: map[string]any{"gini": ginis[name]},
		})
	}
	timings[2] = uint32(time.Since(stageStart).Milliseconds())

	survivors = remaining(survivors, dropped)
	if len(survivors) == 0 {
		return nil, types.NewError(types.ErrDegenerateReduction, "no non-target features survived the correlation stage")
	}

	kept := make([]string, 0, len(survivors)+1)
	kept = append(kept, targetName)
	kept = append(kept, survivors...)

	return &types.ReductionOutcome{
		RunID:         uuid.NewString(),
		EngineVersion: version.Get().Short(),
		KeptColumns:   kept,
		Drops:         drops,
		Analyses:      analyses,
		Correlations:  correlations,
		StageTimings:  timings,
	}, nil
}

// remaining filters names down to those not yet marked dropped, preserving
// order.
func remaining(names []string, dropped map[string]bool) []string {
	return lo.Reject(names, func(n string, _ int) bool { return dropped[n] })
}

func featureWorkerLimit() int {
	return 8
}

// analyzeFeature runs C4/C5+C6(+C7) for a single feature: it builds the
// missing bin, the non-missing partition (numeric via CART/quantile
// pre-binning and the binning optimizer, categorical via grouping and
// optional CART merge), then evaluates WoE/IV/Gini over the result.
func analyzeFeature(name string, col types.Column, target *Target, weights []float64, cfg *config.Config) types.AnalysisRecord {
	analyzable := make([]int, 0, col.Len())
	for i := 0; i < col.Len(); i++ {
		if target.Value[i] != nil {
			analyzable = append(analyzable, i)
		}
	}

	var missingMass BinMass
	for _, i := range analyzable {
		if !col.IsNull(i) {
			continue
		}
		missingMass.Count++
		if *target.Value[i] {
			missingMass.Event += weights[i]
		} else {
			missingMass.NonEvent += weights[i]
		}
	}
	missingStats := EvaluateBin(missingMass, target.EventTotal, target.NonEvtTot, cfg.Smoothing)
	missingBin := types.Bin{Kind: types.BinMissingKind, Label: "MISSING", Stats: missingStats}

	if col.Kind == types.KindNumeric {
		return analyzeNumericFeature(name, col, analyzable, target, weights, cfg, missingBin)
	}
	return analyzeCategoricalFeature(name, col, analyzable, target, weights, cfg, missingBin)
}

func analyzeNumericFeature(name string, col types.Column, analyzable []int, target *Target, weights []float64, cfg *config.Config, missingBin types.Bin) types.AnalysisRecord {
	values := make([]float64, 0, len(analyzable))
	isEvent := make([]bool, 0, len(analyzable))
	rowWeights := make([]float64, 0, len(analyzable))
	distinct := make(map[float64]bool)
	for _, i := range analyzable {
		v := col.Numeric[i]
		values = append(values, v)
		isEvent = append(isEvent, *target.Value[i])
		rowWeights = append(rowWeights, weights[i])
		if !math.IsNaN(v) {
			distinct[v] = true
		}
	}

	base := types.AnalysisRecord{
		Feature:       name,
		Kind:          types.FeatureNumeric,
		Missing:       missingBin,
		EventTotal:    target.EventTotal,
		NonEventTotal: target.NonEvtTot,
	}

	if len(distinct) <= 1 {
		base.Exclusion = types.ReasonZeroVariance
		base.TotalIV = missingStatsIV(missingBin)
		return base
	}

	preBins, err := BuildNumericPreBins(values, isEvent, rowWeights, target.EventTotal, target.NonEvtTot, cfg)
	if err != nil {
		base.Exclusion = types.ReasonInsufficientSamples
		base.TotalIV = missingStatsIV(missingBin)
		return base
	}

	finalBins := preBins
	solverDiag := types.SolverNone
	if cfg.UseSolver {
		result := Optimize(preBins, target.EventTotal, target.NonEvtTot, cfg)
		finalBins = result.Bins
		solverDiag = result.Diagnostic
	}

	if len(finalBins) < 2 {
		base.Exclusion = types.ReasonDegenerateBins
		base.TotalIV = missingStatsIV(missingBin)
		base.Solver = solverDiag
		return base
	}

	bins := make([]types.Bin, len(finalBins))
	for i, pb := range finalBins {
		bins[i] = types.Bin{
			Kind:    types.BinNumericKind,
			Numeric: pb.Interval,
			Label:   formatInterval(pb.Interval),
			Stats:   EvaluateBin(pb.Mass, target.EventTotal, target.NonEvtTot, cfg.Smoothing),
		}
	}

	base.Bins = bins
	woeRows := make([]woeRow, 0, len(analyzable))
	for k, i := range analyzable {
		woeRows = append(woeRows, woeRow{woe: base.WoEForNumeric(values[k]), weight: weights[i], event: *target.Value[i]})
	}
	gini, singular := Gini(woeRows)

	base.Solver = solverDiag
	base.TotalIV = sumBinIV(bins) + missingBin.Stats.IV
	base.Gini = gini
	if singular {
		base.Exclusion = types.ReasonSingular
	}
	return base
}

func analyzeCategoricalFeature(name string, col types.Column, analyzable []int, target *Target, weights []float64, cfg *config.Config, missingBin types.Bin) types.AnalysisRecord {
	values := make([]string, 0, len(analyzable))
	nullMask := make([]bool, 0, len(analyzable))
	isEvent := make([]bool, 0, len(analyzable))
	rowWeights := make([]float64, 0, len(analyzable))
	for _, i := range analyzable {
		values = append(values, col.Categorical[i])
		nullMask = append(nullMask, col.IsNull(i))
		isEvent = append(isEvent, *target.Value[i])
		rowWeights = append(rowWeights, weights[i])
	}

	base := types.AnalysisRecord{
		Feature:       name,
		Kind:          types.FeatureCategorical,
		Missing:       missingBin,
		EventTotal:    target.EventTotal,
		NonEventTotal: target.NonEvtTot,
	}

	catBins, err := BuildCategoricalBins(values, nullMask, isEvent, rowWeights, target.EventTotal, target.NonEvtTot, cfg)
	if err != nil {
		base.Exclusion = types.ReasonInsufficientSamples
		base.TotalIV = missingStatsIV(missingBin)
		return base
	}
	if len(catBins) < 2 {
		base.Exclusion = types.ReasonDegenerateBins
		base.TotalIV = missingStatsIV(missingBin)
		return base
	}

	bins := make([]types.Bin, len(catBins))
	membership := make(map[string]int, len(values))
	for i, cb := range catBins {
		label := "OTHER"
		if !cb.IsOther {
			label = cb.Categories[0]
			if len(cb.Categories) > 1 {
				label = cb.Categories[0] + "+"
			}
		}
		catSet := make(map[string]bool, len(cb.Categories))
		for _, c := range cb.Categories {
			catSet[c] = true
			membership[c] = i
		}
		bins[i] = types.Bin{
			Kind:       types.BinCategoricalKind,
			Categories: catSet,
			Label:      label,
			Stats:      EvaluateBin(cb.Mass, target.EventTotal, target.NonEvtTot, cfg.Smoothing),
		}
	}

	woeRows := make([]woeRow, 0, len(analyzable))
	for k, i := range analyzable {
		var woe float64
		if nullMask[k] {
			woe = missingBin.Stats.WoE
		} else if idx, ok := membership[values[k]]; ok {
			woe = bins[idx].Stats.WoE
		}
		woeRows = append(woeRows, woeRow{woe: woe, weight: weights[i], event: *target.Value[i]})
	}
	gini, singular := Gini(woeRows)

	base.Bins = bins
	base.TotalIV = sumBinIV(bins) + missingBin.Stats.IV
	base.Gini = gini
	if singular {
		base.Exclusion = types.ReasonSingular
	}
	return base
}

func sumBinIV(bins []types.Bin) float64 {
	var total float64
	for _, b := range bins {
		total += b.Stats.IV
	}
	return total
}

func missingStatsIV(missingBin types.Bin) float64 {
	return missingBin.Stats.IV
}

func formatInterval(iv types.Interval) string {
	lo := "-Inf"
	if !math.IsInf(iv.Lo, -1) {
		lo = fmt.Sprintf("%g", iv.Lo)
	}
	hi := "+Inf"
	if !math.IsInf(iv.Hi, 1) {
		hi = fmt.Sprintf("%g", iv.Hi)
	}
	return fmt.Sprintf("[%s, %s)", lo, hi)
}
