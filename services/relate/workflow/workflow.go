// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workflow sequences name resolution as a small deterministic
// state machine: Start → Normalize → ExactLookup → FuzzyLookup → Result →
// End, with FuzzyLookup skipped when the exact phase hits and Error as a
// terminal state reachable from anywhere.
//
// One Workflow serves all requests; each Run is an independent pass that
// holds no state between invocations. Concurrent runs share only the
// read-only snapshot they each capture at start, so no locking is needed
// among them.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/RelateFOSS/services/relate/dataset"
	"github.com/AleutianAI/RelateFOSS/services/relate/match"
)

var (
	tracer = otel.Tracer("aleutian.relate.workflow")
	meter  = otel.Meter("aleutian.relate.workflow")
)

// ErrNilContext is returned when Run is called with a nil context.
var ErrNilContext = errors.New("nil context")

// unknownSubject fills the Person/Relationship fields on a miss.
const unknownSubject = "Unknown"

// EmitFunc receives events as the state machine advances. Called
// synchronously from the run's goroutine, in order.
type EmitFunc func(Event)

// Workflow drives the resolution sequence and emits step events.
//
// Thread Safety:
//
//	Workflow is safe for concurrent use. Each Run/Stream invocation is an
//	independent state machine instance.
type Workflow struct {
	store   *dataset.Store
	matcher *match.Matcher
	logger  *slog.Logger

	// Metrics (initialized lazily)
	metricsOnce    sync.Once
	runLatency     metric.Float64Histogram
	runResults     metric.Int64Counter
	fuzzyFallbacks metric.Int64Counter
}

// New creates a workflow over the given store and matcher.
//
// Inputs:
//
//	store - The dataset store. Must not be nil.
//	matcher - The matcher. Must not be nil.
//	logger - Logger for run logs. If nil, uses slog.Default().
func New(store *dataset.Store, matcher *match.Matcher, logger *slog.Logger) (*Workflow, error) {
	if store == nil {
		return nil, errors.New("nil store")
	}
	if matcher == nil {
		return nil, errors.New("nil matcher")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{store: store, matcher: matcher, logger: logger}, nil
}

// initMetrics lazily initializes metrics. Metric failures degrade
// observability but never fail a run.
func (w *Workflow) initMetrics() {
	w.metricsOnce.Do(func() {
		var initErrors []string

		var err error
		w.runLatency, err = meter.Float64Histogram("relate_resolution_duration_seconds",
			metric.WithDescription("Time spent resolving one name"),
			metric.WithUnit("s"),
		)
		if err != nil {
			initErrors = append(initErrors, "run_latency: "+err.Error())
		}

		w.runResults, err = meter.Int64Counter("relate_resolution_total",
			metric.WithDescription("Resolutions by final strategy or error code"),
		)
		if err != nil {
			initErrors = append(initErrors, "run_results: "+err.Error())
		}

		w.fuzzyFallbacks, err = meter.Int64Counter("relate_fuzzy_fallback_total",
			metric.WithDescription("Resolutions that fell through to the fuzzy phase"),
		)
		if err != nil {
			initErrors = append(initErrors, "fuzzy_fallbacks: "+err.Error())
		}

		if len(initErrors) > 0 {
			w.logger.Error("failed to initialize some workflow metrics (observability degraded)",
				slog.Int("failed_count", len(initErrors)),
				slog.Any("errors", initErrors),
			)
		}
	})
}

// state is the machine's position. Transitions are strictly sequential
// within one run.
type state int

const (
	stateStart state = iota
	stateNormalize
	stateExactLookup
	stateFuzzyLookup
	stateResult
	stateEnd
	stateError
)

// Run resolves a raw name and returns the authoritative result.
//
// Description:
//
//	Equivalent to Stream with no event consumer. See Stream for the full
//	contract.
func (w *Workflow) Run(ctx context.Context, rawName string) (*Resolution, error) {
	return w.Stream(ctx, rawName, nil)
}

// Stream resolves a raw name, emitting an event at every transition.
//
// Description:
//
//	Drives the state machine to completion. The snapshot is captured once
//	at start, so a concurrent reload never produces mixed state within a
//	run. Events arrive in order: start, node (normalize), node
//	(exact_lookup), [node (fuzzy_lookup)], result, end — or an error event
//	terminating the sequence.
//
// Inputs:
//
//	ctx - Context for tracing. Must not be nil. Resolution has no
//	      blocking step, so cancellation mid-run simply abandons the
//	      instance (it holds no external resources).
//	rawName - The name to resolve. May be empty or junk; rejected cleanly.
//	emit - Event consumer; nil to discard events.
//
// Outputs:
//
//	*Resolution - The final payload (including a typed "none" miss).
//	error - Non-nil for invalid names (match.ErrInvalidName) or an
//	        unloaded store (dataset.ErrNotLoaded). A miss is NOT an error.
//
// Thread Safety: Safe for concurrent use.
func (w *Workflow) Stream(ctx context.Context, rawName string, emit EmitFunc) (*Resolution, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	w.initMetrics()
	if emit == nil {
		emit = func(Event) {}
	}

	ctx, span := tracer.Start(ctx, "workflow.Resolve",
		trace.WithAttributes(attribute.Int("query.length", len(rawName))),
	)
	defer span.End()

	start := time.Now()
	runID := uuid.NewString()[:12]
	logger := w.logger.With(slog.String("run_id", runID))

	var (
		snap       *dataset.Snapshot
		normalized string
		outcome    match.Result
		resolution *Resolution
	)

	fail := func(code string, cause error) (*Resolution, error) {
		logger.Warn("resolution failed",
			slog.String("code", code),
			slog.String("error", cause.Error()))
		span.RecordError(cause)
		span.SetStatus(codes.Error, code)
		if w.runResults != nil {
			w.runResults.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", code)))
		}
		emit(Event{Kind: EventError, RunID: runID, Code: code, Message: cause.Error()})
		return nil, cause
	}

	for st := stateStart; st != stateEnd; {
		switch st {
		case stateStart:
			emit(Event{Kind: EventStart, RunID: runID, Name: rawName})
			st = stateNormalize

		case stateNormalize:
			var err error
			normalized, err = match.Normalize(rawName)
			if err != nil {
				return fail(CodeInvalidName, err)
			}
			// Capture the snapshot once; the whole run resolves against it
			// even if a reload publishes a new one mid-flight.
			snap, err = w.store.Active()
			if err != nil {
				return fail(CodeStoreUnavailable, err)
			}
			emit(Event{Kind: EventNode, RunID: runID, Node: NodeNormalize})
			st = stateExactLookup

		case stateExactLookup:
			res, found, err := w.matcher.ExactLookup(snap, normalized)
			if err != nil {
				// Normalize guarantees a non-empty key; reaching this is a
				// broken ordering contract, not a user error.
				return fail(CodeInvalidName, err)
			}
			ev := Event{Kind: EventNode, RunID: runID, Node: NodeExactLookup}
			if found {
				outcome = res
				ev.Match = &MatchInfo{Strategy: res.Strategy, Score: res.Score}
				st = stateResult
			} else {
				st = stateFuzzyLookup
			}
			emit(ev)

		case stateFuzzyLookup:
			if w.fuzzyFallbacks != nil {
				w.fuzzyFallbacks.Add(ctx, 1)
			}
			ev := Event{Kind: EventNode, RunID: runID, Node: NodeFuzzyLookup}
			if w.matcher.Config().EnableFuzzy {
				if res, found := w.matcher.FuzzyLookup(snap, normalized); found {
					outcome = res
					ev.Match = &MatchInfo{Strategy: res.Strategy, Score: res.Score}
				} else {
					outcome = match.NoMatch()
				}
			} else {
				outcome = match.NoMatch()
			}
			emit(ev)
			st = stateResult

		case stateResult:
			resolution = composeResolution(outcome, snap)
			emit(Event{Kind: EventResult, RunID: runID, Payload: resolution})
			st = stateEnd
		}
	}

	duration := time.Since(start)
	emit(Event{Kind: EventEnd, RunID: runID, DurationMs: duration.Milliseconds()})

	span.SetAttributes(
		attribute.String("match.strategy", string(outcome.Strategy)),
		attribute.Float64("match.score", outcome.Score),
	)
	if w.runLatency != nil {
		w.runLatency.Record(ctx, duration.Seconds())
	}
	if w.runResults != nil {
		w.runResults.Add(ctx, 1,
			metric.WithAttributes(attribute.String("outcome", string(outcome.Strategy))))
	}
	logger.Info("resolution complete",
		slog.String("strategy", string(outcome.Strategy)),
		slog.Duration("duration", duration))

	return resolution, nil
}

// composeResolution packages the match outcome with snapshot provenance.
func composeResolution(outcome match.Result, snap *dataset.Snapshot) *Resolution {
	res := &Resolution{
		Person:       unknownSubject,
		Relationship: unknownSubject,
		Matching:     MatchInfo{Strategy: outcome.Strategy, Score: outcome.Score},
		Source: Provenance{
			File:         snap.SourceIdentity,
			LastLoadedAt: snap.LoadedAt,
			Rows:         snap.RowCount,
		},
	}
	if outcome.Record != nil {
		res.Person = outcome.Record.CanonicalName
		res.Relationship = outcome.Record.Relationship
		res.Confidence = outcome.Confidence
	}
	return res
}
