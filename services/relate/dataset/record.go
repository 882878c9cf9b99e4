// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dataset

import (
	"fmt"
	"strings"
)

// Record is one row of the relationship dataset.
//
// Records are strongly typed at load time: a row that cannot produce a
// valid Record fails the whole load rather than flowing untyped data into
// the matcher.
//
// Ownership:
//
//	Records are immutable after the owning Snapshot is published.
//	Callers receiving a *Record from a lookup MUST NOT mutate it.
type Record struct {
	// CanonicalName is the subject's primary name as it appears in the
	// source file. Unique across a snapshot (last-write-wins on duplicates).
	CanonicalName string

	// Relationship is the free-text relationship label (e.g. "Daughter").
	Relationship string

	// Aliases are alternate names/spellings that resolve to this record,
	// in source order.
	Aliases []string

	// NormalizedKeys holds the normalized canonical name followed by the
	// normalized aliases, precomputed at load time so fuzzy scans are pure
	// map/slice walks. Same order as CanonicalName + Aliases, minus any
	// alias whose normalization failed (logged at load).
	NormalizedKeys []string
}

// Validate checks the record's internal consistency.
//
// Outputs:
//
//	error - Non-nil if the canonical name or relationship is blank, or if
//	        no normalized key survived normalization.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.CanonicalName) == "" {
		return fmt.Errorf("%w: canonical name is blank", ErrInvalidRecord)
	}
	if strings.TrimSpace(r.Relationship) == "" {
		return fmt.Errorf("%w: relationship is blank for %q", ErrInvalidRecord, r.CanonicalName)
	}
	if len(r.NormalizedKeys) == 0 {
		return fmt.Errorf("%w: no normalized keys for %q", ErrInvalidRecord, r.CanonicalName)
	}
	return nil
}

// NormalizedCanonical returns the normalized form of the canonical name.
// Valid only after load (NormalizedKeys[0] is always the canonical key).
func (r *Record) NormalizedCanonical() string {
	if len(r.NormalizedKeys) == 0 {
		return ""
	}
	return r.NormalizedKeys[0]
}
