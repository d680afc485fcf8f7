// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import (
	"fmt"
	"math"

	"github.com/bitjungle/lophi/pkg/types"
)

// ResolveWeights produces a length-n vector of finite, non-negative row
// weights. With no weight column configured, every row defaults to 1.0.
// The first offending row is reported on failure, per the design's
// validate-element-by-element contract.
func ResolveWeights(table *types.Table, weightName *string) ([]float64, error) {
	n := table.Rows()
	weights := make([]float64, n)

	if weightName == nil {
		for i := range weights {
			weights[i] = 1.0
		}
		return weights, nil
	}

	col, ok := table.Column(*weightName)
	if !ok {
		return nil, types.NewError(types.ErrTargetNotFound, fmt.Sprintf("weight column %q not found", *weightName))
	}
	if col.Kind != types.KindNumeric {
		return nil, types.NewError(types.ErrColumnTypeMismatch, fmt.Sprintf("weight column %q must be numeric", *weightName))
	}

	for i, v := range col.Numeric {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, types.NewErrorWithContext(types.ErrWeightInvalid,
				fmt.Sprintf("weight at row %d is not finite and non-negative: %v", i, v),
				map[string]any{"row": i, "value": v})
		}
		weights[i] = v
	}
	return weights, nil
}
