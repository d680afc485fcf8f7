// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

// Package types provides the core data structures shared across the lo-phi
// feature-reduction engine: the column-oriented Table, bin and partition
// representations, and the analysis/drop records that make up a reduction
// outcome.
//
// # Core Types
//
// The package defines several essential types:
//
//   - Table: immutable column-oriented dataset (numeric and categorical columns)
//   - Bin: one half-open interval, category set or missing bucket a feature is split into
//   - AnalysisRecord: the WoE/IV/Gini snapshot produced for one feature
//   - DropRecord: why and when a feature left the kept set
//
// # Error Handling
//
// The package provides a single structured error type, CoreError, carrying a
// Kind taxonomy and optional context, used for every input/configuration
// failure the engine can raise.
//
// # Thread Safety
//
// Table is a read-only snapshot and safe for concurrent reads. Nothing in
// this package mutates shared state after construction.
package types
