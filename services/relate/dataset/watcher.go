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
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the store when the dataset file changes on disk.
//
// Description:
//
//	Watches the dataset file's directory (editors often replace files via
//	rename, which drops a watch placed on the file itself) and triggers a
//	store reload after a debounce window. A reload that fails leaves the
//	active snapshot serving, so a half-written file is harmless: the next
//	write triggers another attempt.
//
// Thread Safety:
//
//	Safe for concurrent use. Reloads run from a single goroutine.
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOptions configures the Watcher.
type WatcherOptions struct {
	// DebounceWindow is how long to wait for more writes before reloading.
	// Default: 250ms
	DebounceWindow time.Duration
}

// DefaultWatcherOptions returns sensible defaults.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		DebounceWindow: 250 * time.Millisecond,
	}
}

// NewWatcher creates a watcher for the store's source file.
//
// Inputs:
//
//	store - The store to reload on change. Must not be nil.
//	opts - Optional configuration (nil uses defaults).
//	logger - Logger for watch events. If nil, uses slog.Default().
//
// Outputs:
//
//	*Watcher - Ready-to-use watcher (call Start to begin watching).
//	error - Non-nil if the underlying fsnotify watcher cannot be created
//	        or the dataset directory cannot be watched.
func NewWatcher(store *Store, opts *WatcherOptions, logger *slog.Logger) (*Watcher, error) {
	if opts == nil {
		defaults := DefaultWatcherOptions()
		opts = &defaults
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(store.Source())); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		store:    store,
		watcher:  fsw,
		debounce: opts.DebounceWindow,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. Blocks until ctx is canceled or Stop is called.
//
// Thread Safety: Call once. Stop may be called from any goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	target := filepath.Clean(w.store.Source())
	w.logger.Info("watching dataset for changes", slog.String("path", target))

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			// Restart the debounce window on every relevant event.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("dataset watch error", slog.String("error", err.Error()))

		case <-timerC:
			timer = nil
			timerC = nil
			if _, err := w.store.Reload(); err != nil {
				// Keep serving the old snapshot; the next write retries.
				w.logger.Warn("auto-reload failed",
					slog.String("source", target),
					slog.String("error", err.Error()))
			}
		}
	}
}

// Stop stops the watcher and releases the fsnotify handle. Idempotent.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}
