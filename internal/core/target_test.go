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
	"github.com/bitjungle/lophi/pkg/types"
)

func TestResolveTargetNumericZeroOne(t *testing.T) {
	table := types.NewTable([]string{"outcome"}, []types.Column{
		types.NewNumericColumn([]float64{0, 1, 1, 0, 1}),
	})
	cfg := config.DefaultConfig()
	weights := []float64{1, 1, 1, 1, 1}

	target, err := ResolveTarget(table, "outcome", weights, cfg)
	if err != nil {
		t.Fatalf("ResolveTarget: %v", err)
	}
	if target.EventTotal != 3 || target.NonEvtTot != 2 {
		t.Errorf("totals = (%v, %v), want (3, 2)", target.EventTotal, target.NonEvtTot)
	}
	want := []bool{false, true, true, false, true}
	for i, w := range want {
		if target.Value[i] == nil || *target.Value[i] != w {
			t.Errorf("row %d = %v, want %v", i, target.Value[i], w)
		}
	}
}

func TestResolveTargetNumericWithinTolerance(t *testing.T) {
	table := types.NewTable([]string{"outcome"}, []types.Column{
		types.NewNumericColumn([]float64{1e-10, 1 - 1e-10}),
	})
	cfg := config.DefaultConfig()
	target, err := ResolveTarget(table, "outcome", []float64{1, 1}, cfg)
	if err != nil {
		t.Fatalf("ResolveTarget: %v", err)
	}
	if *target.Value[0] != false || *target.Value[1] != true {
		t.Errorf("values within tolerance not snapped to {0,1}: %v, %v", *target.Value[0], *target.Value[1])
	}
}

func TestResolveTargetNumericAmbiguous(t *testing.T) {
	table := types.NewTable([]string{"outcome"}, []types.Column{
		types.NewNumericColumn([]float64{0, 1, 2}),
	})
	cfg := config.DefaultConfig()
	_, err := ResolveTarget(table, "outcome", []float64{1, 1, 1}, cfg)
	if !types.IsKind(err, types.ErrTargetAmbiguous) {
		t.Fatalf("got %v, want ErrTargetAmbiguous", err)
	}
}

func TestResolveTargetNumericNonZeroOneTwoValues(t *testing.T) {
	table := types.NewTable([]string{"outcome"}, []types.Column{
		types.NewNumericColumn([]float64{5, 10, 5, 10}),
	})
	cfg := config.DefaultConfig()
	_, err := ResolveTarget(table, "outcome", []float64{1, 1, 1, 1}, cfg)
	if !types.IsKind(err, types.ErrTargetAmbiguous) {
		t.Fatalf("got %v, want ErrTargetAmbiguous", err)
	}
}

func TestResolveTargetDegenerateSingleValue(t *testing.T) {
	table := types.NewTable([]string{"outcome"}, []types.Column{
		types.NewNumericColumn([]float64{1, 1, 1}),
	})
	cfg := config.DefaultConfig()
	_, err := ResolveTarget(table, "outcome", []float64{1, 1, 1}, cfg)
	if !types.IsKind(err, types.ErrTargetDegenerate) {
		t.Fatalf("got %v, want ErrTargetDegenerate", err)
	}
}

func TestResolveTargetCategoricalRequiresMapping(t *testing.T) {
	table := types.NewTable([]string{"outcome"}, []types.Column{
		types.NewCategoricalColumn([]string{"yes", "no", "yes"}, nil),
	})
	cfg := config.DefaultConfig()
	_, err := ResolveTarget(table, "outcome", []float64{1, 1, 1}, cfg)
	if !types.IsKind(err, types.ErrTargetAmbiguous) {
		t.Fatalf("got %v, want ErrTargetAmbiguous", err)
	}

	cfg.TargetMapping = &config.TargetMapping{Event: "yes", NonEvent: "no"}
	target, err := ResolveTarget(table, "outcome", []float64{1, 1, 1}, cfg)
	if err != nil {
		t.Fatalf("ResolveTarget with mapping: %v", err)
	}
	if *target.Value[0] != true || *target.Value[1] != false || *target.Value[2] != true {
		t.Errorf("unexpected mapped values: %v %v %v", *target.Value[0], *target.Value[1], *target.Value[2])
	}
}

func TestResolveTargetCategoricalUnmappedRowsExcluded(t *testing.T) {
	table := types.NewTable([]string{"outcome"}, []types.Column{
		types.NewCategoricalColumn([]string{"yes", "no", "maybe"}, nil),
	})
	cfg := config.DefaultConfig()
	cfg.TargetMapping = &config.TargetMapping{Event: "yes", NonEvent: "no"}
	target, err := ResolveTarget(table, "outcome", []float64{1, 1, 1}, cfg)
	if err != nil {
		t.Fatalf("ResolveTarget: %v", err)
	}
	if target.Value[2] != nil {
		t.Errorf("row with unmapped value should be excluded (nil), got %v", *target.Value[2])
	}
}

func TestResolveTargetNotFound(t *testing.T) {
	table := types.NewTable([]string{"other"}, []types.Column{types.NewNumericColumn([]float64{1, 0})})
	cfg := config.DefaultConfig()
	_, err := ResolveTarget(table, "outcome", []float64{1, 1}, cfg)
	if !types.IsKind(err, types.ErrTargetNotFound) {
		t.Fatalf("got %v, want ErrTargetNotFound", err)
	}
}

func TestResolveTargetNullsExcludedFromTotals(t *testing.T) {
	table := types.NewTable([]string{"outcome"}, []types.Column{
		types.NewNumericColumn([]float64{0, 1, math.NaN(), 1}),
	})
	cfg := config.DefaultConfig()
	target, err := ResolveTarget(table, "outcome", []float64{1, 1, 1, 1}, cfg)
	if err != nil {
		t.Fatalf("ResolveTarget: %v", err)
	}
	if target.Value[2] != nil {
		t.Errorf("null target row should resolve to nil")
	}
	if target.EventTotal != 2 || target.NonEvtTot != 1 {
		t.Errorf("totals = (%v, %v), want (2, 1)", target.EventTotal, target.NonEvtTot)
	}
}
