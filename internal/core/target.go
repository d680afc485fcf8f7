// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import (
	"fmt"
	"math"

	"github.com/bitjungle/lophi/internal/config"
	"github.com/bitjungle/lophi/pkg/types"
)

// Target is the resolved binary indicator for every row of a table, plus
// the weighted class totals needed by every downstream WoE/IV computation.
// A nil entry in Value means the row's target is null or matches neither
// side of the configured mapping; such rows are excluded from all
// per-feature analyses.
type Target struct {
	Value      []*bool // len == table rows; nil means excluded
	EventTotal float64 // weighted
	NonEvtTot  float64 // weighted
}

// ResolveTarget maps a target column to a binary indicator, following the
// rules in the data model: a column with exactly two distinct non-null
// values numerically within Tolerance of {0, 1} maps directly; otherwise an
// explicit (event, non-event) string mapping must be configured.
func ResolveTarget(table *types.Table, targetName string, weights []float64, cfg *config.Config) (*Target, error) {
	col, ok := table.Column(targetName)
	if !ok {
		return nil, types.NewError(types.ErrTargetNotFound, fmt.Sprintf("target column %q not found", targetName))
	}

	n := table.Rows()
	values := make([]*bool, n)

	switch col.Kind {
	case types.KindNumeric:
		if err := resolveNumericTarget(col, cfg.Tolerance, values); err != nil {
			return nil, err
		}
	case types.KindCategorical:
		if err := resolveCategoricalTarget(col, cfg.TargetMapping, values); err != nil {
			return nil, err
		}
	}

	var eventTotal, nonEventTotal float64
	for i, v := range values {
		if v == nil {
			continue
		}
		if *v {
			eventTotal += weights[i]
		} else {
			nonEventTotal += weights[i]
		}
	}

	if eventTotal <= 0 || nonEventTotal <= 0 {
		return nil, types.NewError(types.ErrTargetDegenerate, "only one class carries positive weight after target resolution")
	}

	return &Target{Value: values, EventTotal: eventTotal, NonEvtTot: nonEventTotal}, nil
}

func resolveNumericTarget(col types.Column, tolerance float64, out []*bool) error {
	distinct := make(map[float64]bool)
	for _, v := range col.Numeric {
		if math.IsNaN(v) {
			continue
		}
		distinct[v] = true
		if len(distinct) > 2 {
			return types.NewError(types.ErrTargetAmbiguous, "numeric target has more than two distinct values")
		}
	}
	if len(distinct) == 0 {
		return types.NewError(types.ErrTargetDegenerate, "target column has no non-null values")
	}

	isZeroOrOne := true
	for v := range distinct {
		if !near(v, 0, tolerance) && !near(v, 1, tolerance) {
			isZeroOrOne = false
			break
		}
	}
	if len(distinct) == 2 && !isZeroOrOne {
		return types.NewError(types.ErrTargetAmbiguous, "numeric target's two distinct values are not {0, 1}")
	}
	if len(distinct) == 1 {
		// A single distinct value is always degenerate, whether or not it is 0/1.
		return types.NewError(types.ErrTargetDegenerate, "numeric target has a single distinct value")
	}

	for i, v := range col.Numeric {
		if math.IsNaN(v) {
			continue
		}
		b := near(v, 1, tolerance)
		out[i] = &b
	}
	return nil
}

func resolveCategoricalTarget(col types.Column, mapping *config.TargetMapping, out []*bool) error {
	distinct := make(map[string]bool)
	for i, v := range col.Categorical {
		if col.IsNull(i) {
			continue
		}
		distinct[v] = true
	}
	if len(distinct) == 0 {
		return types.NewError(types.ErrTargetDegenerate, "target column has no non-null values")
	}

	if mapping == nil || (mapping.Event == "" && mapping.NonEvent == "") {
		return types.NewError(types.ErrTargetAmbiguous, "categorical target requires an explicit event/non-event mapping")
	}

	for i, v := range col.Categorical {
		if col.IsNull(i) {
			continue
		}
		switch v {
		case mapping.Event:
			t := true
			out[i] = &t
		case mapping.NonEvent:
			f := false
			out[i] = &f
		default:
			// rows not matching either side of the mapping are excluded
		}
	}
	return nil
}

func near(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}
