// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import (
	"testing"

	"github.com/bitjungle/lophi/internal/config"
)

func TestBuildCategoricalBinsOneBinPerCategoryWithoutSolver(t *testing.T) {
	values := []string{"A", "A", "B", "B", "C", "C"}
	isEvent := []bool{true, false, true, false, true, false}
	weights := []float64{1, 1, 1, 1, 1, 1}
	cfg := config.DefaultConfig()
	cfg.UseSolver = false
	cfg.MinCategorySamples = 1

	bins, err := BuildCategoricalBins(values, nil, isEvent, weights, 3, 3, cfg)
	if err != nil {
		t.Fatalf("BuildCategoricalBins: %v", err)
	}
	if len(bins) != 3 {
		t.Fatalf("expected 3 bins (one per category), got %d", len(bins))
	}
}

func TestBuildCategoricalBinsRareCategoryMergedIntoOther(t *testing.T) {
	values := []string{"A", "A", "A", "A", "A", "RARE"}
	isEvent := []bool{true, false, true, false, true, true}
	weights := []float64{1, 1, 1, 1, 1, 1}
	cfg := config.DefaultConfig()
	cfg.UseSolver = false
	cfg.MinCategorySamples = 5

	bins, err := BuildCategoricalBins(values, nil, isEvent, weights, 4, 2, cfg)
	if err != nil {
		t.Fatalf("BuildCategoricalBins: %v", err)
	}
	var otherFound bool
	for _, b := range bins {
		if b.IsOther {
			otherFound = true
			if len(b.Categories) != 1 || b.Categories[0] != "RARE" {
				t.Errorf("OTHER categories = %v, want [RARE]", b.Categories)
			}
		}
	}
	if !otherFound {
		t.Fatalf("expected an OTHER bin for the rare category, bins=%v", bins)
	}
}

func TestBuildCategoricalBinsNullMaskExcludesRows(t *testing.T) {
	values := []string{"A", "A", "B"}
	nullMask := []bool{false, true, false}
	isEvent := []bool{true, false, true}
	weights := []float64{1, 1, 1}
	cfg := config.DefaultConfig()
	cfg.UseSolver = false
	cfg.MinCategorySamples = 1

	bins, err := BuildCategoricalBins(values, nullMask, isEvent, weights, 2, 0, cfg)
	if err != nil {
		t.Fatalf("BuildCategoricalBins: %v", err)
	}
	var totalCount int
	for _, b := range bins {
		totalCount += b.Mass.Count
	}
	if totalCount != 2 {
		t.Errorf("total bin count = %d, want 2 (null row excluded)", totalCount)
	}
}

func TestBuildCategoricalBinsAllNullIsError(t *testing.T) {
	values := []string{"A", "B"}
	nullMask := []bool{true, true}
	isEvent := []bool{true, false}
	weights := []float64{1, 1}
	cfg := config.DefaultConfig()
	_, err := BuildCategoricalBins(values, nullMask, isEvent, weights, 1, 1, cfg)
	if err == nil {
		t.Fatalf("expected an error when every row is null")
	}
}

func TestBuildCategoricalBinsSolverMergesToTargetBins(t *testing.T) {
	values := []string{"A", "A", "A", "A", "A", "B", "B", "B", "B", "B", "C", "C", "C", "C", "C"}
	isEvent := make([]bool, len(values))
	for i := range values {
		switch values[i] {
		case "A":
			isEvent[i] = i%5 < 4 // 80% event
		case "B":
			isEvent[i] = i%5 < 2 // 40% event
		case "C":
			isEvent[i] = i%5 < 1 // 20% event
		}
	}
	weights := make([]float64, len(values))
	for i := range weights {
		weights[i] = 1
	}
	cfg := config.DefaultConfig()
	cfg.UseSolver = true
	cfg.MinCategorySamples = 1
	cfg.TargetBins = 2

	bins, err := BuildCategoricalBins(values, nil, isEvent, weights, 7, 8, cfg)
	if err != nil {
		t.Fatalf("BuildCategoricalBins: %v", err)
	}
	if len(bins) != 2 {
		t.Fatalf("expected solver to merge down to TargetBins=2, got %d", len(bins))
	}
}

func TestEventRateZeroTotalIsZero(t *testing.T) {
	if r := eventRate(BinMass{}); r != 0 {
		t.Errorf("eventRate of empty mass = %v, want 0", r)
	}
}
