// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package config

import (
	"fmt"

	"github.com/bitjungle/lophi/pkg/types"
)

// BinningStrategy selects the pre-binning method for numeric features (C4).
type BinningStrategy string

const (
	StrategyCart     BinningStrategy = "cart"
	StrategyQuantile BinningStrategy = "quantile"
)

// Monotonicity selects the WoE trend constraint given to the binning
// optimizer (C7).
type Monotonicity string

const (
	MonotoneNone Monotonicity = "none"
	MonotoneAsc  Monotonicity = "asc"
	MonotoneDesc Monotonicity = "desc"
	MonotonePeak Monotonicity = "peak"
	MonotoneVal  Monotonicity = "valley"
	MonotoneAuto Monotonicity = "auto"
)

// TargetMapping names the (event, non-event) string values used to resolve
// a non-binary target column. Both fields empty means "no mapping supplied".
type TargetMapping struct {
	Event    string
	NonEvent string
}

// Config holds every tunable recognised by the reduction orchestrator.
// Every constant mentioned in the design (smoothing, minimum sample counts,
// thresholds) is a field here, never a package-level global, so that tests
// can vary them independently.
type Config struct {
	MissingThreshold     float64         `json:"missing_threshold"`
	GiniThreshold        float64         `json:"gini_threshold"`
	CorrelationThreshold float64         `json:"correlation_threshold"`
	BinningStrategy      BinningStrategy `json:"binning_strategy"`
	Prebins              int             `json:"prebins"`
	TargetBins           int             `json:"target_bins"`
	CartMinBinPct        float64         `json:"cart_min_bin_pct"`
	MinBinSamples        int             `json:"min_bin_samples"`
	MinCategorySamples   int             `json:"min_category_samples"`
	MatrixThreshold      int             `json:"matrix_threshold"`
	UseSolver            bool            `json:"use_solver"`
	Monotonicity         Monotonicity    `json:"monotonicity"`
	SolverTimeoutSeconds int             `json:"solver_timeout_s"`
	SolverGap            float64         `json:"solver_gap"`
	TargetMapping        *TargetMapping  `json:"target_mapping,omitempty"`
	DropColumns          []string        `json:"drop_columns"`
	Smoothing            float64         `json:"smoothing"`
	Tolerance            float64         `json:"tolerance"`

	// ExcludeTargetFromCorrelation opts out of the source behaviour of
	// including the target column in the correlation pass (see the open
	// question on target/feature pair-breaking). Default false preserves
	// the original, observable outcome.
	ExcludeTargetFromCorrelation bool `json:"exclude_target_from_correlation"`
}

// DefaultConfig returns the configuration described by the component
// defaults table: missing=0.30, gini=0.05, correlation=0.40, CART
// pre-binning into 20 bins merged down to 10 via the solver, etc.
func DefaultConfig() *Config {
	return &Config{
		MissingThreshold:     0.30,
		GiniThreshold:        0.05,
		CorrelationThreshold: 0.40,
		BinningStrategy:      StrategyCart,
		Prebins:              20,
		TargetBins:           10,
		CartMinBinPct:        5.0,
		MinBinSamples:        5,
		MinCategorySamples:   5,
		MatrixThreshold:      15,
		UseSolver:            true,
		Monotonicity:         MonotoneNone,
		SolverTimeoutSeconds: 30,
		SolverGap:            0.01,
		DropColumns:          nil,
		Smoothing:            0.5,
		Tolerance:            1e-9,
	}
}

// Validate checks every field against its documented valid range and
// returns a *types.CoreError describing the first violation found.
func (c *Config) Validate() error {
	if c.MissingThreshold < 0 || c.MissingThreshold > 1 {
		return types.NewError(types.ErrInvalidThreshold, "missing_threshold must be in [0, 1]")
	}
	if c.GiniThreshold < 0 || c.GiniThreshold > 1 {
		return types.NewError(types.ErrInvalidThreshold, "gini_threshold must be in [0, 1]")
	}
	if c.CorrelationThreshold < 0 || c.CorrelationThreshold > 1 {
		return types.NewError(types.ErrInvalidThreshold, "correlation_threshold must be in [0, 1]")
	}
	if c.BinningStrategy != StrategyCart && c.BinningStrategy != StrategyQuantile {
		return types.NewError(types.ErrInvalidBinCount, fmt.Sprintf("unknown binning strategy %q", c.BinningStrategy))
	}
	if c.Prebins < 2 {
		return types.NewError(types.ErrInvalidBinCount, "prebins must be >= 2")
	}
	if c.TargetBins > c.Prebins {
		return types.NewError(types.ErrInvalidBinCount, "target_bins must be <= prebins")
	}
	if c.TargetBins < 1 {
		return types.NewError(types.ErrInvalidBinCount, "target_bins must be >= 1")
	}
	if c.CartMinBinPct <= 0 || c.CartMinBinPct > 100 {
		return types.NewError(types.ErrInvalidBinCount, "cart_min_bin_pct must be in (0, 100]")
	}
	if c.MinBinSamples < 1 {
		return types.NewError(types.ErrInvalidBinCount, "min_bin_samples must be >= 1")
	}
	if c.MinCategorySamples < 1 {
		return types.NewError(types.ErrInvalidBinCount, "min_category_samples must be >= 1")
	}
	if c.MatrixThreshold < 2 {
		return types.NewError(types.ErrInvalidBinCount, "matrix_threshold must be >= 2")
	}
	if c.SolverTimeoutSeconds < 1 {
		return types.NewError(types.ErrInvalidThreshold, "solver_timeout_s must be >= 1")
	}
	if c.SolverGap <= 0 || c.SolverGap > 1 {
		return types.NewError(types.ErrSolverBadGap, "solver_gap must be in (0, 1]")
	}
	if c.Smoothing <= 0 {
		return types.NewError(types.ErrInvalidThreshold, "smoothing must be > 0")
	}
	if c.Tolerance <= 0 || c.Tolerance >= 1 {
		return types.NewError(types.ErrInvalidThreshold, "tolerance must be in (0, 1)")
	}
	return nil
}
