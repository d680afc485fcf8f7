// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package types

import (
	"errors"
	"fmt"
)

// ErrorKind represents categories of errors that can occur while reducing
// a table. The kind is part of the contract: callers branch on it with
// errors.As, not on the message text.
type ErrorKind string

const (
	// ErrTargetNotFound indicates the configured target column does not exist.
	ErrTargetNotFound ErrorKind = "target_not_found"
	// ErrTargetAmbiguous indicates the target column cannot be mapped to
	// {0, 1}: a numeric column with more than two distinct values or with
	// two values other than 0 and 1, or a categorical column with no
	// event/non-event mapping supplied.
	ErrTargetAmbiguous ErrorKind = "target_ambiguous"
	// ErrTargetDegenerate indicates only one class carries positive weight
	// after target resolution.
	ErrTargetDegenerate ErrorKind = "target_degenerate"
	// ErrWeightInvalid indicates a negative or non-finite weight value.
	ErrWeightInvalid ErrorKind = "weight_invalid"
	// ErrColumnTypeMismatch indicates a column was used as the wrong kind
	// (numeric where categorical was expected, or vice versa).
	ErrColumnTypeMismatch ErrorKind = "column_type_mismatch"
	// ErrEmptyTable indicates the table has zero rows or zero columns.
	ErrEmptyTable ErrorKind = "empty_table"
	// ErrInvalidThreshold indicates a threshold config value outside its valid range.
	ErrInvalidThreshold ErrorKind = "invalid_threshold"
	// ErrInvalidBinCount indicates prebins/target_bins configuration is unsatisfiable.
	ErrInvalidBinCount ErrorKind = "invalid_bin_count"
	// ErrSolverBadGap indicates solver_gap is outside (0, 1].
	ErrSolverBadGap ErrorKind = "solver_bad_gap"
	// ErrDegenerateReduction indicates a stage left zero non-target features.
	ErrDegenerateReduction ErrorKind = "degenerate_reduction"
	// ErrAborted indicates the caller's abort flag was observed.
	ErrAborted ErrorKind = "aborted"
)

// CoreError is the single structured error type raised by the lo-phi core
// for input and configuration failures. Feature-level problems (insufficient
// samples, singular bins, solver timeouts, ...) are never returned as a
// CoreError: they are recorded on the relevant AnalysisRecord instead, per
// the error taxonomy in the reduction design.
type CoreError struct {
	Kind    ErrorKind
	Message string
	Context map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *CoreError) Unwrap() error {
	return e.Cause
}

// NewError builds a CoreError with no context.
func NewError(kind ErrorKind, message string) *CoreError {
	return &CoreError{Kind: kind, Message: message}
}

// NewErrorWithCause builds a CoreError wrapping an underlying cause.
func NewErrorWithCause(kind ErrorKind, message string, cause error) *CoreError {
	return &CoreError{Kind: kind, Message: message, Cause: cause}
}

// NewErrorWithContext builds a CoreError carrying structured context, e.g.
// the offending row index for a weight validation failure.
func NewErrorWithContext(kind ErrorKind, message string, context map[string]any) *CoreError {
	return &CoreError{Kind: kind, Message: message, Context: context}
}

// IsKind reports whether err is, or wraps, a *CoreError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}
