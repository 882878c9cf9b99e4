// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package match

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/RelateFOSS/services/relate/dataset"
)

const scoreTolerance = 1e-9

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// loadSnapshot writes csvContent to a temp file and loads it through a
// real store using the canonical normalizer.
func loadSnapshot(t *testing.T, csvContent string) *dataset.Snapshot {
	t.Helper()
	path := filepath.Join(t.TempDir(), "family.csv")
	if err := os.WriteFile(path, []byte(csvContent), 0o644); err != nil {
		t.Fatalf("writing test dataset: %v", err)
	}
	snap, err := dataset.NewStore(path, Normalize, testLogger()).Load()
	if err != nil {
		t.Fatalf("loading test dataset: %v", err)
	}
	return snap
}

func newTestMatcher(t *testing.T, cfg Config) *Matcher {
	t.Helper()
	m, err := NewMatcher(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	return m
}

const familyCSV = `name,relationship,aliases
Saanvi,Niece,Sanu;Vivi
Arjun,Cousin,
Mary Jane Watson,Friend,MJ
`

// TestExactLookup_Hit verifies an exact hit scores 1.0 with High
// confidence, for both canonical names and aliases.
func TestExactLookup_Hit(t *testing.T) {
	snap := loadSnapshot(t, familyCSV)
	m := newTestMatcher(t, DefaultConfig())

	for _, query := range []string{"saanvi", "sanu", "vivi"} {
		res, found, err := m.ExactLookup(snap, query)
		if err != nil {
			t.Fatalf("ExactLookup(%q): %v", query, err)
		}
		if !found {
			t.Fatalf("ExactLookup(%q): expected a hit", query)
		}
		if res.Strategy != StrategyExact {
			t.Errorf("strategy = %q, want exact", res.Strategy)
		}
		if res.Score != 1.0 {
			t.Errorf("score = %v, want 1.0", res.Score)
		}
		if res.Confidence != ConfidenceHigh {
			t.Errorf("confidence = %q, want high", res.Confidence)
		}
		if res.Record.CanonicalName != "Saanvi" {
			t.Errorf("record = %q, want Saanvi", res.Record.CanonicalName)
		}
	}
}

// TestExactLookup_EmptyQuery verifies an empty key is an invariant
// violation, not a miss.
func TestExactLookup_EmptyQuery(t *testing.T) {
	snap := loadSnapshot(t, familyCSV)
	m := newTestMatcher(t, DefaultConfig())

	if _, _, err := m.ExactLookup(snap, ""); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("error = %v, want ErrEmptyQuery", err)
	}
}

// TestResolve_ExactShortCircuits verifies an exact hit is returned even
// when other candidates would score highly in the fuzzy phase.
func TestResolve_ExactShortCircuits(t *testing.T) {
	snap := loadSnapshot(t, `name,relationship,aliases
Anna,Sister,
Annas,Aunt,
`)
	m := newTestMatcher(t, DefaultConfig())

	res, err := m.Resolve(snap, "anna")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Strategy != StrategyExact {
		t.Fatalf("strategy = %q, want exact", res.Strategy)
	}
	if res.Record.CanonicalName != "Anna" {
		t.Errorf("record = %q, want Anna", res.Record.CanonicalName)
	}
}

// TestFuzzyLookup_NearMiss verifies a one-edit typo resolves fuzzily with
// the expected normalized similarity and a Low confidence bucket.
func TestFuzzyLookup_NearMiss(t *testing.T) {
	snap := loadSnapshot(t, familyCSV)
	m := newTestMatcher(t, DefaultConfig())

	res, err := m.Resolve(snap, "saani")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Strategy != StrategyFuzzy {
		t.Fatalf("strategy = %q, want fuzzy", res.Strategy)
	}
	if res.Record.CanonicalName != "Saanvi" {
		t.Errorf("record = %q, want Saanvi", res.Record.CanonicalName)
	}
	// "saani" vs "saanvi": distance 1 over max length 6.
	if want := 1.0 - 1.0/6.0; math.Abs(res.Score-want) > scoreTolerance {
		t.Errorf("score = %v, want %v", res.Score, want)
	}
	if res.Confidence != ConfidenceLow {
		t.Errorf("confidence = %q, want low (score below medium band)", res.Confidence)
	}
}

// TestFuzzyLookup_MediumBand verifies scores at or above the medium band
// get Medium confidence, never High.
func TestFuzzyLookup_MediumBand(t *testing.T) {
	snap := loadSnapshot(t, familyCSV)
	m := newTestMatcher(t, DefaultConfig())

	// "saanvii" vs "saanvi": distance 1 over max length 7 = 0.857...
	res, err := m.Resolve(snap, "saanvii")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Strategy != StrategyFuzzy {
		t.Fatalf("strategy = %q, want fuzzy", res.Strategy)
	}
	if res.Confidence != ConfidenceMedium {
		t.Errorf("confidence = %q, want medium", res.Confidence)
	}
}

// TestFuzzyLookup_ThresholdInclusive verifies a score exactly at the
// threshold is a match, and one just below is a miss.
func TestFuzzyLookup_ThresholdInclusive(t *testing.T) {
	// "abcx" vs "abcd": distance 1 over max length 4 = exactly 0.75.
	snap := loadSnapshot(t, `name,relationship,aliases
abcd,Friend,
`)

	at := newTestMatcher(t, Config{EnableFuzzy: true, Threshold: 0.75, MediumBand: 0.85})
	res, found := at.FuzzyLookup(snap, "abcx")
	if !found {
		t.Fatal("score exactly at threshold should match (inclusive boundary)")
	}
	if res.Score != 0.75 {
		t.Errorf("score = %v, want 0.75", res.Score)
	}

	above := newTestMatcher(t, Config{EnableFuzzy: true, Threshold: 0.76, MediumBand: 0.85})
	if _, found := above.FuzzyLookup(snap, "abcx"); found {
		t.Error("score below threshold should be a miss")
	}
}

// TestFuzzyLookup_TieBreakFirstInOrder verifies equal scores keep the
// record that appears first in dataset order, deterministically.
func TestFuzzyLookup_TieBreakFirstInOrder(t *testing.T) {
	snap := loadSnapshot(t, `name,relationship,aliases
anna,Sister,
annb,Aunt,
`)
	m := newTestMatcher(t, DefaultConfig())

	// "annc" is distance 1 from both candidates.
	for i := 0; i < 10; i++ {
		res, found := m.FuzzyLookup(snap, "annc")
		if !found {
			t.Fatal("expected a fuzzy match")
		}
		if res.Record.CanonicalName != "anna" {
			t.Fatalf("tie resolved to %q, want first-loaded record anna", res.Record.CanonicalName)
		}
	}
}

// TestResolve_FuzzyDisabled verifies a near-miss is a typed no-match when
// the fuzzy phase is off.
func TestResolve_FuzzyDisabled(t *testing.T) {
	snap := loadSnapshot(t, familyCSV)
	m := newTestMatcher(t, Config{EnableFuzzy: false, Threshold: DefaultThreshold, MediumBand: DefaultMediumBand})

	res, err := m.Resolve(snap, "saani")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Strategy != StrategyNone {
		t.Errorf("strategy = %q, want none", res.Strategy)
	}
	if res.Record != nil {
		t.Error("miss should carry no record")
	}
}

// TestResolve_NoMatch verifies a query nothing resembles is a typed miss
// with a nil error.
func TestResolve_NoMatch(t *testing.T) {
	snap := loadSnapshot(t, familyCSV)
	m := newTestMatcher(t, DefaultConfig())

	res, err := m.Resolve(snap, "zzzzzzzzzz")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Strategy != StrategyNone {
		t.Errorf("strategy = %q, want none", res.Strategy)
	}
	if res.Score != 0 || res.Confidence != "" {
		t.Errorf("miss should be zero-valued, got score=%v confidence=%q", res.Score, res.Confidence)
	}
}

// TestSimilarity verifies the normalized Levenshtein similarity,
// including rune-level distance for multi-byte characters.
func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"saanvi", "saanvi", 1.0},
		{"", "", 1.0},
		{"saani", "saanvi", 1.0 - 1.0/6.0},
		{"josé", "jose", 0.75}, // 4 runes each, distance 1
		{"abc", "xyz", 0.0},
	}

	for _, tt := range tests {
		got := Similarity(tt.a, tt.b)
		if math.Abs(got-tt.want) > scoreTolerance {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		// Symmetry
		if rev := Similarity(tt.b, tt.a); math.Abs(got-rev) > scoreTolerance {
			t.Errorf("Similarity not symmetric for (%q, %q): %v vs %v", tt.a, tt.b, got, rev)
		}
	}
}

// TestNewMatcher_InvalidConfig verifies threshold and band validation.
func TestNewMatcher_InvalidConfig(t *testing.T) {
	bad := []Config{
		{EnableFuzzy: true, Threshold: 0, MediumBand: 0.85},
		{EnableFuzzy: true, Threshold: -0.1, MediumBand: 0.85},
		{EnableFuzzy: true, Threshold: 1.2, MediumBand: 1.2},
		{EnableFuzzy: true, Threshold: 0.6, MediumBand: 0.5},
		{EnableFuzzy: true, Threshold: 0.6, MediumBand: 1.1},
	}

	for _, cfg := range bad {
		if _, err := NewMatcher(cfg, testLogger()); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("NewMatcher(%+v) error = %v, want ErrInvalidConfig", cfg, err)
		}
	}
}
