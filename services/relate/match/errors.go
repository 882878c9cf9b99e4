// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package match provides name normalization and two-phase name resolution
// (exact, then fuzzy) over a dataset snapshot.
//
// Matching is pure computation: no side effects beyond debug logging, no
// mutation of the snapshot, and deterministic results for a given
// (snapshot, query) pair. "No match" is a normal typed result, never an
// error.
package match

import "errors"

// Sentinel errors for matching operations.
var (
	// ErrInvalidName is returned by Normalize when the input is empty
	// after normalization (nothing comparable remains).
	ErrInvalidName = errors.New("name is empty after normalization")

	// ErrEmptyQuery is returned when the matcher is handed an empty
	// normalized key. The Normalize contract prevents this upstream, so
	// hitting it means the workflow's ordering contract was violated:
	// treat it as a programming error, not a retryable condition.
	ErrEmptyQuery = errors.New("matcher called with empty normalized query")

	// ErrInvalidConfig is returned by NewMatcher for out-of-range
	// thresholds.
	ErrInvalidConfig = errors.New("invalid matcher config")
)
