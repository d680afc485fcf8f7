// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import (
	"math"
	"testing"

	"github.com/bitjungle/lophi/internal/config"
	"github.com/bitjungle/lophi/internal/version"
	"github.com/bitjungle/lophi/pkg/types"
)

func buildTable(names []string, cols []types.Column) *types.Table {
	return types.NewTable(names, cols)
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// TestReduceDropsAtMissingStage builds a ten-row table where one feature is
// 60% null (exceeding the 30% default threshold) and a perfectly separating
// categorical feature that should survive every stage.
func TestReduceDropsAtMissingStage(t *testing.T) {
	n := 10
	target := make([]float64, n)
	mostlyNull := make([]float64, n)
	goodFeature := make([]string, n)
	for i := 0; i < n; i++ {
		if i < 5 {
			target[i] = 1
			goodFeature[i] = "HIGH"
		} else {
			target[i] = 0
			goodFeature[i] = "LOW"
		}
		if i < 6 {
			mostlyNull[i] = math.NaN()
		} else {
			mostlyNull[i] = 1.0
		}
	}

	table := buildTable(
		[]string{"outcome", "mostly_null", "good_feature"},
		[]types.Column{
			types.NewNumericColumn(target),
			types.NewNumericColumn(mostlyNull),
			types.NewCategoricalColumn(goodFeature, nil),
		},
	)

	cfg := config.DefaultConfig()
	outcome, err := Reduce(table, "outcome", nil, cfg, nil)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}

	found := false
	for _, d := range outcome.Drops {
		if d.Feature == "mostly_null" {
			found = true
			if d.Stage != types.StageMissing {
				t.Errorf("mostly_null dropped at stage %v, want Missing", d.Stage)
			}
		}
	}
	if !found {
		t.Fatalf("expected mostly_null to be dropped, drops=%v", outcome.Drops)
	}

	if outcome.RunID == "" {
		t.Error("expected RunID to be populated")
	}
	if outcome.EngineVersion != version.Get().Short() {
		t.Errorf("EngineVersion = %q, want %q", outcome.EngineVersion, version.Get().Short())
	}

	keptSet := map[string]bool{}
	for _, c := range outcome.KeptColumns {
		keptSet[c] = true
	}
	if !keptSet["outcome"] || !keptSet["good_feature"] {
		t.Fatalf("expected outcome and good_feature to survive, kept=%v", outcome.KeptColumns)
	}
	if keptSet["mostly_null"] {
		t.Fatalf("mostly_null should not survive, kept=%v", outcome.KeptColumns)
	}
}

// TestReduceDropsAtIVStage builds a twenty-row table where a categorical
// feature has identical event rates in every category (IV = 0, Gini = 0)
// and should be dropped for falling below the default Gini threshold, while
// a perfectly separating feature survives.
func TestReduceDropsAtIVStage(t *testing.T) {
	n := 20
	target := make([]float64, n)
	region := make([]string, n)
	goodFeature := make([]string, n)
	for i := 0; i < n; i++ {
		if i < 10 {
			target[i] = 1
			goodFeature[i] = "HIGH"
		} else {
			target[i] = 0
			goodFeature[i] = "LOW"
		}
		if i%10 < 5 {
			region[i] = "A"
		} else {
			region[i] = "B"
		}
	}

	table := buildTable(
		[]string{"outcome", "region", "good_feature"},
		[]types.Column{
			types.NewNumericColumn(target),
			types.NewCategoricalColumn(region, nil),
			types.NewCategoricalColumn(goodFeature, nil),
		},
	)

	cfg := config.DefaultConfig()
	outcome, err := Reduce(table, "outcome", nil, cfg, nil)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}

	var regionDrop *types.DropRecord
	for i := range outcome.Drops {
		if outcome.Drops[i].Feature == "region" {
			regionDrop = &outcome.Drops[i]
		}
	}
	if regionDrop == nil {
		t.Fatalf("expected region to be dropped, drops=%v", outcome.Drops)
	}
	if regionDrop.Stage != types.StageIV {
		t.Errorf("region dropped at stage %v, want IV", regionDrop.Stage)
	}
	if regionDrop.Reason != "gini_below_threshold" {
		t.Errorf("region drop reason = %q, want gini_below_threshold", regionDrop.Reason)
	}

	regionAnalysis, ok := outcome.Analyses["region"]
	if !ok {
		t.Fatalf("expected an analysis record for region")
	}
	if regionAnalysis.Gini != 0 {
		t.Errorf("region Gini = %v, want exactly 0 (uniform event rate across categories)", regionAnalysis.Gini)
	}

	keptSet := map[string]bool{}
	for _, c := range outcome.KeptColumns {
		keptSet[c] = true
	}
	if keptSet["region"] {
		t.Fatalf("region should not survive, kept=%v", outcome.KeptColumns)
	}
	if !keptSet["good_feature"] {
		t.Fatalf("expected good_feature to survive, kept=%v", outcome.KeptColumns)
	}
}

// TestReduceDropsAtCorrelationStage mirrors the design's canonical scenario:
// two numeric features, identical to one another and each strongly
// correlated with the (numeric) target, chain-eliminate each other at the
// Correlation stage, while an unrelated categorical feature survives
// untouched because categorical columns never enter the correlation pass.
func TestReduceDropsAtCorrelationStage(t *testing.T) {
	n := 20
	target := make([]float64, n)
	income := make([]float64, n)
	age := make([]float64, n)
	safeFeature := make([]string, n)
	for i := 0; i < n; i++ {
		if i < 10 {
			target[i] = 1
			safeFeature[i] = "X"
		} else {
			target[i] = 0
			safeFeature[i] = "Y"
		}
		income[i] = float64(100 - i)
		age[i] = float64(100 - i)
	}

	table := buildTable(
		[]string{"outcome", "income", "age", "safe_feature"},
		[]types.Column{
			types.NewNumericColumn(target),
			types.NewNumericColumn(income),
			types.NewNumericColumn(age),
			types.NewCategoricalColumn(safeFeature, nil),
		},
	)

	cfg := config.DefaultConfig()
	outcome, err := Reduce(table, "outcome", nil, cfg, nil)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}

	dropStage := map[string]types.Stage{}
	for _, d := range outcome.Drops {
		dropStage[d.Feature] = d.Stage
	}
	if dropStage["income"] != types.StageCorrelation {
		t.Errorf("income drop stage = %v, want Correlation (drops=%v)", dropStage["income"], outcome.Drops)
	}
	if dropStage["age"] != types.StageCorrelation {
		t.Errorf("age drop stage = %v, want Correlation (drops=%v)", dropStage["age"], outcome.Drops)
	}

	keptSet := map[string]bool{}
	for _, c := range outcome.KeptColumns {
		keptSet[c] = true
	}
	if keptSet["income"] || keptSet["age"] {
		t.Fatalf("income and age should both be dropped, kept=%v", outcome.KeptColumns)
	}
	if !keptSet["outcome"] || !keptSet["safe_feature"] {
		t.Fatalf("expected outcome and safe_feature to survive, kept=%v", outcome.KeptColumns)
	}

	if len(outcome.Correlations) == 0 {
		t.Fatalf("expected at least one computed correlation pair")
	}
}

// TestReduceDegenerateWhenEveryFeatureDropped checks that the orchestrator
// surfaces ErrDegenerateReduction rather than an empty outcome when a stage
// would otherwise leave zero non-target features.
func TestReduceDegenerateWhenEveryFeatureDropped(t *testing.T) {
	n := 10
	target := make([]float64, n)
	allNull := make([]float64, n)
	for i := 0; i < n; i++ {
		if i < 5 {
			target[i] = 1
		}
		allNull[i] = math.NaN()
	}

	table := buildTable(
		[]string{"outcome", "all_null"},
		[]types.Column{
			types.NewNumericColumn(target),
			types.NewNumericColumn(allNull),
		},
	)

	cfg := config.DefaultConfig()
	_, err := Reduce(table, "outcome", nil, cfg, nil)
	if err == nil {
		t.Fatalf("expected an error when every feature is dropped")
	}
	if !types.IsKind(err, types.ErrDegenerateReduction) {
		t.Errorf("got error %v, want ErrDegenerateReduction", err)
	}
}

// TestReduceRespectsAbortFlag checks that a true-returning abort flag short
// circuits the run instead of producing an outcome.
func TestReduceRespectsAbortFlag(t *testing.T) {
	n := 10
	target := make([]float64, n)
	for i := 0; i < n; i++ {
		if i < 5 {
			target[i] = 1
		}
	}
	feature := repeat(1.0, n)

	table := buildTable(
		[]string{"outcome", "feature"},
		[]types.Column{
			types.NewNumericColumn(target),
			types.NewNumericColumn(feature),
		},
	)

	cfg := config.DefaultConfig()
	_, err := Reduce(table, "outcome", nil, cfg, func() bool { return true })
	if err == nil {
		t.Fatalf("expected an error when abort is asserted")
	}
	if !types.IsKind(err, types.ErrAborted) {
		t.Errorf("got error %v, want ErrAborted", err)
	}
}
