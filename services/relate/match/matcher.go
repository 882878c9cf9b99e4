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
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/AleutianAI/RelateFOSS/services/relate/dataset"
)

// Strategy identifies which phase produced a match.
type Strategy string

// Match strategies.
const (
	StrategyExact Strategy = "exact"
	StrategyFuzzy Strategy = "fuzzy"
	StrategyNone  Strategy = "none"
)

// Confidence is a coarse match-quality label for downstream consumers.
type Confidence string

// Confidence levels. Only an exact match yields ConfidenceHigh.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Default configuration values.
const (
	// DefaultThreshold is the inclusive minimum fuzzy score for a match.
	DefaultThreshold = 0.6

	// DefaultMediumBand is the inclusive minimum fuzzy score for Medium
	// confidence. Fuzzy scores below it (but at or above the threshold)
	// are Low.
	DefaultMediumBand = 0.85
)

// Config tunes the matcher.
type Config struct {
	// EnableFuzzy controls whether the fuzzy phase runs at all. When
	// false, anything short of an exact hit is StrategyNone.
	EnableFuzzy bool

	// Threshold is the inclusive minimum similarity for a fuzzy match.
	// Scores below it are treated as no-match. Range (0, 1].
	Threshold float64

	// MediumBand is the inclusive minimum similarity for Medium
	// confidence. Must be >= Threshold. Fuzzy matches never reach High.
	MediumBand float64
}

// DefaultConfig returns the default matcher configuration.
func DefaultConfig() Config {
	return Config{
		EnableFuzzy: true,
		Threshold:   DefaultThreshold,
		MediumBand:  DefaultMediumBand,
	}
}

// Result is the outcome of a lookup. A miss (StrategyNone) is a normal,
// successfully-typed result: Score is 0, Confidence is empty, Record nil.
type Result struct {
	Strategy   Strategy
	Score      float64
	Confidence Confidence
	Record     *dataset.Record
}

// NoMatch is the canonical miss result.
func NoMatch() Result {
	return Result{Strategy: StrategyNone}
}

// Matcher resolves normalized queries against a snapshot using a
// two-phase strategy: exact first (authoritative), then fuzzy.
//
// Thread Safety:
//
//	Matcher is stateless after construction and safe for concurrent use.
//	Matching never mutates the snapshot.
type Matcher struct {
	cfg    Config
	logger *slog.Logger
}

// NewMatcher creates a matcher with the given configuration.
//
// Inputs:
//
//	cfg - Matcher configuration. Use DefaultConfig() for defaults.
//	logger - Logger for debug output. If nil, uses slog.Default().
//
// Outputs:
//
//	*Matcher - The configured matcher.
//	error - ErrInvalidConfig if thresholds are out of range.
func NewMatcher(cfg Config, logger *slog.Logger) (*Matcher, error) {
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %v not in (0, 1]", ErrInvalidConfig, cfg.Threshold)
	}
	if cfg.MediumBand < cfg.Threshold || cfg.MediumBand > 1 {
		return nil, fmt.Errorf("%w: medium band %v not in [threshold, 1]", ErrInvalidConfig, cfg.MediumBand)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{cfg: cfg, logger: logger}, nil
}

// Config returns the matcher's configuration.
func (m *Matcher) Config() Config {
	return m.cfg
}

// Resolve runs both phases and returns the single best result.
//
// Description:
//
//	Exact lookup first; an exact hit short-circuits fuzzy matching and is
//	never overridden by a higher fuzzy score elsewhere. If exact misses
//	and fuzzy is enabled, the fuzzy phase scans every candidate. A miss in
//	both phases returns StrategyNone with a nil error.
//
// Inputs:
//
//	snap - The snapshot to resolve against. Captured by the caller.
//	normalizedQuery - The query key produced by Normalize.
//
// Outputs:
//
//	Result - The typed outcome (exact / fuzzy / none).
//	error - ErrEmptyQuery only, for an empty key (invariant violation).
//
// Thread Safety: Safe for concurrent use.
func (m *Matcher) Resolve(snap *dataset.Snapshot, normalizedQuery string) (Result, error) {
	if res, found, err := m.ExactLookup(snap, normalizedQuery); err != nil {
		return NoMatch(), err
	} else if found {
		return res, nil
	}

	if !m.cfg.EnableFuzzy {
		return NoMatch(), nil
	}
	if res, found := m.FuzzyLookup(snap, normalizedQuery); found {
		return res, nil
	}
	return NoMatch(), nil
}

// ExactLookup is phase 1: an O(1) hit in the snapshot's exact index.
//
// Outputs:
//
//	Result - StrategyExact with score 1.0 and ConfidenceHigh when found.
//	bool - True if a record was found.
//	error - ErrEmptyQuery for an empty key.
func (m *Matcher) ExactLookup(snap *dataset.Snapshot, normalizedQuery string) (Result, bool, error) {
	if normalizedQuery == "" {
		return NoMatch(), false, ErrEmptyQuery
	}

	rec, ok := snap.GetExact(normalizedQuery)
	if !ok {
		return NoMatch(), false, nil
	}
	return Result{
		Strategy:   StrategyExact,
		Score:      1.0,
		Confidence: ConfidenceHigh,
		Record:     rec,
	}, true, nil
}

// FuzzyLookup is phase 2: a similarity scan over every candidate's
// normalized canonical name and aliases.
//
// Description:
//
//	Tracks the single highest-scoring (record, score) pair. Ties keep the
//	candidate appearing first in snapshot insertion order: the comparison
//	is strictly-greater, so a later equal score never displaces an
//	earlier one. Scores below the configured threshold are a miss.
//
// Outputs:
//
//	Result - StrategyFuzzy with the winning score and a Medium/Low
//	         confidence bucket when found.
//	bool - True if some candidate cleared the threshold.
func (m *Matcher) FuzzyLookup(snap *dataset.Snapshot, normalizedQuery string) (Result, bool) {
	var best *dataset.Record
	bestScore := 0.0

	for _, rec := range snap.Candidates() {
		for _, key := range rec.NormalizedKeys {
			if score := Similarity(normalizedQuery, key); score > bestScore {
				bestScore = score
				best = rec
			}
		}
	}

	if best == nil || bestScore < m.cfg.Threshold {
		m.logger.Debug("fuzzy lookup below threshold",
			slog.String("query", normalizedQuery),
			slog.Float64("best_score", bestScore))
		return NoMatch(), false
	}

	return Result{
		Strategy:   StrategyFuzzy,
		Score:      bestScore,
		Confidence: m.bucket(bestScore),
		Record:     best,
	}, true
}

// bucket maps a fuzzy score to its confidence band. Fuzzy never yields
// High; only an exact match does.
func (m *Matcher) bucket(score float64) Confidence {
	if score >= m.cfg.MediumBand {
		return ConfidenceMedium
	}
	return ConfidenceLow
}

// Similarity returns the normalized Levenshtein similarity of two strings,
// bounded to [0, 1].
//
// Description:
//
//	1 - distance/maxRuneLen. Symmetric, deterministic, and 1.0 only for
//	identical strings. Distance is computed over runes, so multi-byte
//	characters count once.
//
// Thread Safety: Safe for concurrent use (pure function).
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(distance)/float64(maxLen)
}
