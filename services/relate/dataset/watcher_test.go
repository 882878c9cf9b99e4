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
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

// waitForRows polls the store until the active snapshot has want rows or
// the deadline expires.
func waitForRows(t *testing.T, store *Store, want int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			snap, _ := store.Active()
			rows := -1
			if snap != nil {
				rows = snap.RowCount
			}
			t.Fatalf("timed out waiting for %d rows, have %d", want, rows)
		case <-time.After(10 * time.Millisecond):
			if snap, err := store.Active(); err == nil && snap.RowCount == want {
				return
			}
		}
	}
}

// TestWatcher_ReloadsOnWrite verifies a file rewrite triggers an
// automatic reload after the debounce window.
func TestWatcher_ReloadsOnWrite(t *testing.T) {
	store := newTestStore(t, "name,relationship\nSaanvi,Niece\n")
	if _, err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	w, err := NewWatcher(store, &WatcherOptions{DebounceWindow: 20 * time.Millisecond}, store.logger)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	started := make(chan error, 1)
	go func() {
		started <- w.Start(context.Background())
	}()

	updated := "name,relationship\nSaanvi,Niece\nArjun,Cousin\n"
	if err := os.WriteFile(store.Source(), []byte(updated), 0o644); err != nil {
		t.Fatalf("rewriting dataset: %v", err)
	}

	waitForRows(t, store, 2)

	w.Stop()
	if err := <-started; err != nil {
		t.Errorf("Start returned %v after Stop, want nil", err)
	}
}

// TestWatcher_FailedReloadKeepsServing verifies a corrupt write leaves
// the previous snapshot active, and a subsequent good write recovers.
func TestWatcher_FailedReloadKeepsServing(t *testing.T) {
	store := newTestStore(t, "name,relationship\nSaanvi,Niece\n")
	if _, err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	w, err := NewWatcher(store, &WatcherOptions{DebounceWindow: 20 * time.Millisecond}, store.logger)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()
	go w.Start(context.Background()) //nolint:errcheck

	// Corrupt write: reload fails, snapshot untouched.
	if err := os.WriteFile(store.Source(), []byte("name,relationship\n,\n"), 0o644); err != nil {
		t.Fatalf("corrupting dataset: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	snap, err := store.Active()
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if snap.RowCount != 1 {
		t.Fatalf("RowCount = %d, want 1 (old snapshot serving)", snap.RowCount)
	}

	// A good write recovers automatically.
	good := "name,relationship\nSaanvi,Niece\nArjun,Cousin\nZoya,Aunt\n"
	if err := os.WriteFile(store.Source(), []byte(good), 0o644); err != nil {
		t.Fatalf("rewriting dataset: %v", err)
	}
	waitForRows(t, store, 3)
}

// TestWatcher_ContextCancel verifies Start returns the context error on
// cancellation.
func TestWatcher_ContextCancel(t *testing.T) {
	store := newTestStore(t, "name,relationship\nSaanvi,Niece\n")

	w, err := NewWatcher(store, nil, store.logger)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan error, 1)
	go func() {
		started <- w.Start(ctx)
	}()

	cancel()
	select {
	case err := <-started:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}
