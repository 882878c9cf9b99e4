// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dataset provides the record store for the Relate service.
//
// The dataset package loads the tabular relationship dataset (one row per
// subject: canonical name, relationship label, aliases) into an immutable
// Snapshot with a normalized-key exact index, and publishes snapshots
// through an atomic pointer so lookups never observe a half-built store.
//
// # Ownership Model
//
// A Snapshot and the Records inside it are immutable after Load():
//   - Records MUST NOT be mutated after the snapshot is published
//   - Lookups share Record pointers with the snapshot (no copying)
//
// # Lifecycle
//
// A typical store lifecycle:
//  1. Create with NewStore(path, normalize)
//  2. Call Load() once at startup
//  3. Serve lookups via Active(), Snapshot.GetExact(), Snapshot.Candidates()
//  4. Call Reload() on demand; failure leaves the active snapshot serving
package dataset

import "errors"

// Sentinel errors for dataset operations.
var (
	// ErrNotLoaded is returned by Active when no snapshot has been
	// published yet (Load was never called, or the initial load failed).
	ErrNotLoaded = errors.New("dataset not loaded")

	// ErrEmptyDataset is returned when the source parses cleanly but
	// contains zero data rows. An empty store can never resolve anything,
	// so this is a load failure rather than a valid state.
	ErrEmptyDataset = errors.New("dataset has no rows")

	// ErrMissingColumn is returned when the source header lacks one of
	// the required columns (name, relationship).
	ErrMissingColumn = errors.New("required column missing")

	// ErrMalformedRow is returned when a data row cannot be converted
	// into a valid Record. Malformed rows are rejected eagerly at load
	// time; they never propagate into matching.
	ErrMalformedRow = errors.New("malformed dataset row")

	// ErrInvalidRecord is returned when a Record fails validation.
	ErrInvalidRecord = errors.New("invalid record")
)
