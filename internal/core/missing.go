// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import "github.com/bitjungle/lophi/pkg/types"

// MissingRatio computes the weighted null ratio for a single column:
// mu_c = sum(w_i : c_i is null) / sum(w_i). A column with zero total weight
// is reported as fully missing, since no analyzable mass remains.
func MissingRatio(col types.Column, weights []float64) float64 {
	var nullWeight, totalWeight float64
	for i := 0; i < col.Len(); i++ {
		totalWeight += weights[i]
		if col.IsNull(i) {
			nullWeight += weights[i]
		}
	}
	if totalWeight <= 0 {
		return 1.0
	}
	return nullWeight / totalWeight
}

// MissingReport is the weighted null ratio for every column of a table,
// keyed by column name. It is a pure function of the table and weights:
// one sequential pass over each column, independent of the others.
func MissingReport(table *types.Table, weights []float64) map[string]float64 {
	names := table.Columns()
	report := make(map[string]float64, len(names))
	for _, name := range names {
		col, _ := table.Column(name)
		report[name] = MissingRatio(col, weights)
	}
	return report
}
