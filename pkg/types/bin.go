// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package types

import "math"

// BinKind tags which variant of Bin is populated.
type BinKind string

const (
	// BinNumericKind is a half-open numeric interval [Lo, Hi).
	BinNumericKind BinKind = "numeric"
	// BinCategoricalKind is a set of category labels (possibly the
	// synthetic "OTHER" bucket).
	BinCategoricalKind BinKind = "categorical"
	// BinMissingKind collects null rows for the feature.
	BinMissingKind BinKind = "missing"
)

// Interval is a half-open numeric range [Lo, Hi). Lo may be -Inf and Hi may
// be +Inf for the outermost bins of a partition.
type Interval struct {
	Lo float64
	Hi float64
}

// Contains reports whether x falls in [Lo, Hi).
func (iv Interval) Contains(x float64) bool {
	return x >= iv.Lo && x < iv.Hi
}

// Bin is a tagged variant over the three ways a partition groups rows of a
// feature: a numeric interval, a set of category labels, or the dedicated
// missing bucket. Downstream consumers dispatch on Kind rather than relying
// on type assertions.
type Bin struct {
	Kind       BinKind
	Numeric    Interval        // valid when Kind == BinNumericKind
	Categories map[string]bool // valid when Kind == BinCategoricalKind; "OTHER" is a label like any other
	Label      string          // human-readable name, e.g. "[0, 40000)", "OTHER", "MISSING"
	Stats      BinStats
}

// IsOther reports whether this categorical bin is the rare-category bucket.
func (b Bin) IsOther() bool {
	return b.Kind == BinCategoricalKind && b.Label == "OTHER"
}

// BinStats holds the weighted counts and derived Weight-of-Evidence figures
// for one bin, computed against the feature's analyzable population totals.
type BinStats struct {
	Event    float64 // weighted event count E
	NonEvent float64 // weighted non-event count NE
	Count    int     // raw (unweighted) sample count m, used only against MIN_BIN_SAMPLES
	PEvent   float64 // smoothed event share p_e
	PNonEvt  float64 // smoothed non-event share p_ne
	WoE      float64 // ln(p_e / p_ne)
	IV       float64 // (p_e - p_ne) * WoE
}

// ComputeBinStats derives the smoothed shares, WoE and IV contribution for a
// bin given its raw weighted counts and the feature's totals, per the
// Laplace-smoothing contract: p_e = (E+S)/(E_tot+S), p_ne = (NE+S)/(NE_tot+S).
func ComputeBinStats(event, nonEvent float64, count int, eventTotal, nonEventTotal, smoothing float64) BinStats {
	pe := (event + smoothing) / (eventTotal + smoothing)
	pne := (nonEvent + smoothing) / (nonEventTotal + smoothing)
	woe := math.Log(pe) - math.Log(pne)
	iv := (pe - pne) * woe
	return BinStats{
		Event:    event,
		NonEvent: nonEvent,
		Count:    count,
		PEvent:   pe,
		PNonEvt:  pne,
		WoE:      woe,
		IV:       iv,
	}
}
