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
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// NormalizeFunc maps a raw name to its comparison key. Injected by the
// caller (the match package owns the canonical implementation) so this
// package has no dependency on matching logic.
type NormalizeFunc func(raw string) (string, error)

// Snapshot is one immutable, fully-loaded instance of the record store.
//
// Thread Safety:
//
//	Snapshots are read-only after construction and safe for unsynchronized
//	concurrent reads. A lookup that captured a snapshot keeps seeing that
//	snapshot even if the store reloads underneath it.
type Snapshot struct {
	// exact maps normalized keys (canonical names and aliases) to records.
	exact map[string]*Record

	// candidates holds records in source-file insertion order. This order
	// is the fuzzy tie-break, so it must be stable across loads of the
	// same file.
	candidates []*Record

	// SourceIdentity is the path of the file this snapshot was built from.
	SourceIdentity string

	// LoadedAt is when the snapshot was built.
	LoadedAt time.Time

	// RowCount is the number of records in the snapshot.
	RowCount int
}

// GetExact performs an O(1) lookup by normalized key.
//
// Outputs:
//
//	*Record - The matching record, nil if none.
//	bool - True if a record was found.
func (s *Snapshot) GetExact(normalizedKey string) (*Record, bool) {
	rec, ok := s.exact[normalizedKey]
	return rec, ok
}

// Candidates returns the records in insertion order for fuzzy scanning.
//
// Ownership: the returned slice is the snapshot's own backing slice and
// MUST NOT be mutated. (Snapshots are shared across concurrent lookups.)
func (s *Snapshot) Candidates() []*Record {
	return s.candidates
}

// Store publishes dataset snapshots and serves the active one.
//
// Description:
//
//	Store owns the source path and the active-snapshot pointer. Load and
//	Reload build a complete new Snapshot off to the side, then publish it
//	with a single atomic pointer swap. In-flight lookups keep the snapshot
//	they captured; a failed reload leaves the previous snapshot serving.
//
// Thread Safety:
//
//	Safe for concurrent use. Reads never lock; Load/Reload serialize
//	against each other with a mutex but never block readers.
type Store struct {
	source    string
	normalize NormalizeFunc
	logger    *slog.Logger

	// loadMu serializes concurrent Load/Reload calls. Readers go through
	// the atomic pointer only.
	loadMu sync.Mutex
	active atomic.Pointer[Snapshot]
}

// NewStore creates a store for the given source file.
//
// Inputs:
//
//	source - Path to the tabular dataset (CSV with name/relationship/aliases).
//	normalize - Normalization function used to build the exact index.
//	logger - Logger for load diagnostics. If nil, uses slog.Default().
//
// The store starts empty; call Load before serving lookups.
func NewStore(source string, normalize NormalizeFunc, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		source:    source,
		normalize: normalize,
		logger:    logger,
	}
}

// Source returns the path this store loads from.
func (s *Store) Source() string {
	return s.source
}

// Active returns the currently-published snapshot.
//
// Outputs:
//
//	*Snapshot - The active snapshot.
//	error - ErrNotLoaded if no snapshot has been published yet.
//
// Thread Safety: This method is safe for concurrent use and never blocks.
func (s *Store) Active() (*Snapshot, error) {
	snap := s.active.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap, nil
}

// Load reads the source and publishes the first snapshot.
//
// Description:
//
//	Parses the source, constructs Records (rejecting malformed rows),
//	builds the normalized exact index, and atomically publishes the new
//	snapshot. All-or-nothing: on any error nothing is published.
//
// Outputs:
//
//	*Snapshot - The newly published snapshot.
//	error - Non-nil if the source is missing, malformed, or empty.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Store) Load() (*Snapshot, error) {
	return s.Reload()
}

// Reload re-reads the source and swaps the active snapshot.
//
// Description:
//
//	Builds a complete new snapshot, then publishes it with an atomic
//	pointer swap. Lookups in flight keep whichever snapshot they captured.
//	If the new load fails, the previous snapshot stays active and serving;
//	reload is all-or-nothing.
//
// Outputs:
//
//	*Snapshot - The newly published snapshot.
//	error - Non-nil if the load failed (previous snapshot unaffected).
//
// Thread Safety: This method is safe for concurrent use.
func (s *Store) Reload() (*Snapshot, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	snap, err := s.build()
	if err != nil {
		s.logger.Error("dataset load failed; previous snapshot remains active",
			slog.String("source", s.source),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.active.Store(snap)
	s.logger.Info("dataset snapshot published",
		slog.String("source", snap.SourceIdentity),
		slog.Int("rows", snap.RowCount),
		slog.Time("loaded_at", snap.LoadedAt))
	return snap, nil
}

// build constructs a snapshot without touching the active pointer.
func (s *Store) build() (*Snapshot, error) {
	rows, err := parseCSV(s.source)
	if err != nil {
		return nil, err
	}

	records := make([]*Record, 0, len(rows))
	byCanonical := make(map[string]int, len(rows)) // normalized canonical -> index in records

	for _, r := range rows {
		canonicalKey, err := s.normalize(r.name)
		if err != nil {
			return nil, fmt.Errorf("%w: name %q does not normalize", ErrMalformedRow, r.name)
		}

		rec := &Record{
			CanonicalName:  r.name,
			Relationship:   r.relationship,
			Aliases:        r.aliases,
			NormalizedKeys: []string{canonicalKey},
		}
		for _, alias := range r.aliases {
			aliasKey, err := s.normalize(alias)
			if err != nil {
				s.logger.Warn("dropping alias that does not normalize",
					slog.String("alias", alias),
					slog.String("canonical", r.name))
				continue
			}
			rec.NormalizedKeys = append(rec.NormalizedKeys, aliasKey)
		}

		if err := rec.Validate(); err != nil {
			return nil, err
		}

		// Duplicate canonical names: last write wins, keeping the first
		// occurrence's position so candidate order stays stable.
		if idx, dup := byCanonical[canonicalKey]; dup {
			s.logger.Warn("duplicate canonical name; last row wins",
				slog.String("name", r.name))
			records[idx] = rec
			continue
		}
		byCanonical[canonicalKey] = len(records)
		records = append(records, rec)
	}

	return s.buildSnapshot(records), nil
}

// buildSnapshot assembles the exact index from validated records.
//
// Index policy:
//
//   - Canonical names always own their key. A canonical entry is never
//     displaced by an alias.
//   - An alias claimed by two different records is ambiguous: the key is
//     removed from the exact index entirely, so queries for it fall
//     through to fuzzy matching.
func (s *Store) buildSnapshot(records []*Record) *Snapshot {
	exact := make(map[string]*Record, len(records)*2)

	// Canonical keys first: they are authoritative.
	for _, rec := range records {
		exact[rec.NormalizedCanonical()] = rec
	}

	aliasOwner := make(map[string]*Record)
	for _, rec := range records {
		for _, key := range rec.NormalizedKeys[1:] {
			if owner, isCanonical := exact[key]; isCanonical && aliasOwner[key] == nil {
				if owner != rec {
					// Key is some record's canonical name; the alias loses.
					s.logger.Warn("alias shadowed by canonical name",
						slog.String("key", key),
						slog.String("alias_of", rec.CanonicalName),
						slog.String("canonical_of", owner.CanonicalName))
				}
				continue
			}
			if owner, claimed := aliasOwner[key]; claimed {
				if owner != rec {
					// Two records claim the alias: ambiguous, drop it.
					s.logger.Warn("ambiguous alias removed from exact index",
						slog.String("key", key),
						slog.String("claimed_by", owner.CanonicalName),
						slog.String("also_claimed_by", rec.CanonicalName))
					delete(exact, key)
				}
				continue
			}
			aliasOwner[key] = rec
			exact[key] = rec
		}
	}

	return &Snapshot{
		exact:          exact,
		candidates:     records,
		SourceIdentity: s.source,
		LoadedAt:       time.Now().UTC(),
		RowCount:       len(records),
	}
}
