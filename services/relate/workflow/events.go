// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workflow

import (
	"time"

	"github.com/AleutianAI/RelateFOSS/services/relate/match"
)

// EventKind tags an emitted workflow event.
type EventKind string

// Event kinds, in emission order for a successful run.
const (
	EventStart  EventKind = "start"
	EventNode   EventKind = "node"
	EventResult EventKind = "result"
	EventError  EventKind = "error"
	EventEnd    EventKind = "end"
)

// Node names reported in EventNode events.
const (
	NodeNormalize   = "normalize"
	NodeExactLookup = "exact_lookup"
	NodeFuzzyLookup = "fuzzy_lookup"
)

// Error codes reported in EventError events.
const (
	CodeInvalidName      = "INVALID_NAME"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
)

// Event is one step of a resolution, consumed by the transport layer.
// Ownership is transient: the emitter reuses nothing, the consumer may
// keep or serialize the value freely.
type Event struct {
	// Kind is the event tag: start, node, result, error, end.
	Kind EventKind `json:"event"`

	// RunID correlates all events of one resolution.
	RunID string `json:"run_id"`

	// Name echoes the raw query on start events.
	Name string `json:"name,omitempty"`

	// Node is the node name on node events.
	Node string `json:"node,omitempty"`

	// Match carries the node's partial result when it produced one.
	Match *MatchInfo `json:"match,omitempty"`

	// Payload is the final resolution on result events.
	Payload *Resolution `json:"payload,omitempty"`

	// Code and Message describe the failure on error events.
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	// DurationMs is the total elapsed time on end events.
	DurationMs int64 `json:"duration_ms,omitempty"`
}

// MatchInfo is the wire form of a match outcome.
type MatchInfo struct {
	// Strategy is exact, fuzzy, or none.
	Strategy match.Strategy `json:"strategy"`

	// Score is 1.0 for exact, the similarity for fuzzy, omitted for none.
	Score float64 `json:"score,omitempty"`
}

// Provenance identifies the snapshot a resolution was served from.
type Provenance struct {
	// File is the source identity of the dataset.
	File string `json:"file"`

	// LastLoadedAt is when the snapshot was built.
	LastLoadedAt time.Time `json:"last_loaded_at"`

	// Rows is the snapshot's record count.
	Rows int `json:"rows"`
}

// Resolution is the final response payload: the best match plus the
// provenance of the snapshot that produced it.
type Resolution struct {
	// Person is the matched canonical name, or "Unknown" on a miss.
	Person string `json:"person"`

	// Relationship is the matched label, or "Unknown" on a miss.
	Relationship string `json:"relationship"`

	// Confidence is high/medium/low; omitted on a miss.
	Confidence match.Confidence `json:"confidence,omitempty"`

	// Matching describes how the result was found.
	Matching MatchInfo `json:"matching"`

	// Source is the snapshot provenance.
	Source Provenance `json:"source"`
}
