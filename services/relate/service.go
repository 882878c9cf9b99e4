// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package relate provides the Aleutian Relate HTTP service for name
// resolution and relationship lookup.
//
// The service exposes endpoints for:
//   - Resolving a name to a relationship (exact then fuzzy matching)
//   - Streaming the resolution steps over a WebSocket
//   - Reloading the dataset snapshot on demand
//   - Health and readiness checks
package relate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/RelateFOSS/services/relate/dataset"
	"github.com/AleutianAI/RelateFOSS/services/relate/match"
	"github.com/AleutianAI/RelateFOSS/services/relate/workflow"
)

// ServiceVersion is reported by the health endpoint.
const ServiceVersion = "0.1.0"

// ServiceConfig configures the Relate service.
type ServiceConfig struct {
	// DatasetPath is the path to the relationship dataset (CSV with
	// name/relationship/aliases columns).
	DatasetPath string `yaml:"dataset_path" validate:"required"`

	// EnableFuzzy controls the fuzzy matching phase.
	// Default: true
	EnableFuzzy bool `yaml:"enable_fuzzy"`

	// FuzzyThreshold is the inclusive minimum similarity for a fuzzy
	// match. Default: 0.6
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" validate:"gt=0,lte=1"`

	// MediumBand is the inclusive minimum similarity for Medium
	// confidence. Default: 0.85
	MediumBand float64 `yaml:"medium_band" validate:"gt=0,lte=1,gtefield=FuzzyThreshold"`

	// WatchDataset enables auto-reload when the dataset file changes.
	// Default: true
	WatchDataset bool `yaml:"watch_dataset"`

	// ResolveTimeout bounds one whole Start→End resolution when the
	// transport does not impose its own deadline. Default: 5s
	ResolveTimeout time.Duration `yaml:"resolve_timeout"`
}

// DefaultServiceConfig returns sensible defaults. DatasetPath must still
// be set by the caller.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		EnableFuzzy:    true,
		FuzzyThreshold: match.DefaultThreshold,
		MediumBand:     match.DefaultMediumBand,
		WatchDataset:   true,
		ResolveTimeout: 5 * time.Second,
	}
}

// LoadServiceConfig reads relate.config.yaml overrides on top of defaults.
//
// Description:
//
//	A missing config file is not an error (zero-config works out of the
//	box); only an unparseable file is. The result is NOT yet validated:
//	callers may still override fields (e.g. from command-line flags)
//	before NewService runs Validate.
//
// Inputs:
//
//	path - Path to the YAML config file. May be empty (defaults only).
//
// Outputs:
//
//	ServiceConfig - The effective configuration.
//	error - Non-nil if the file exists but cannot be parsed.
//
// Thread Safety: Safe for concurrent use (stateless function).
func LoadServiceConfig(path string) (ServiceConfig, error) {
	cfg := DefaultServiceConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("reading %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate checks the configuration with go-playground/validator.
func (c ServiceConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// Service is the Relate service: the dataset store, the matcher, and the
// resolution workflow behind one facade.
//
// Thread Safety:
//
//	Service is safe for concurrent use. Multiple goroutines can call any
//	combination of methods simultaneously.
type Service struct {
	config  ServiceConfig
	store   *dataset.Store
	matcher *match.Matcher
	flow    *workflow.Workflow
	watcher *dataset.Watcher
	logger  *slog.Logger
}

// NewService creates a Relate service from the given configuration.
//
// Description:
//
//	Wires the store (with the canonical normalizer), the matcher, and the
//	workflow. The service starts with no snapshot; call Start to perform
//	the initial load and begin watching.
//
// Outputs:
//
//	*Service - The configured service.
//	error - Non-nil if the configuration is invalid.
func NewService(config ServiceConfig, logger *slog.Logger) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	matcher, err := match.NewMatcher(match.Config{
		EnableFuzzy: config.EnableFuzzy,
		Threshold:   config.FuzzyThreshold,
		MediumBand:  config.MediumBand,
	}, logger)
	if err != nil {
		return nil, err
	}

	store := dataset.NewStore(config.DatasetPath, match.Normalize, logger)

	flow, err := workflow.New(store, matcher, logger)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		config:  config,
		store:   store,
		matcher: matcher,
		flow:    flow,
		logger:  logger,
	}

	if config.WatchDataset {
		watcher, err := dataset.NewWatcher(store, nil, logger)
		if err != nil {
			return nil, fmt.Errorf("creating dataset watcher: %w", err)
		}
		svc.watcher = watcher
	}

	return svc, nil
}

// Start performs the initial dataset load and runs the watcher (if
// enabled) until ctx is canceled.
//
// Description:
//
//	The initial load is mandatory: a service that cannot load its dataset
//	refuses to start rather than serving STORE_UNAVAILABLE forever.
//	Blocks while watching; with watching disabled it returns after the
//	load.
func (s *Service) Start(ctx context.Context) error {
	if _, err := s.store.Load(); err != nil {
		return fmt.Errorf("initial dataset load: %w", err)
	}
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Start(ctx)
}

// Stop releases the watcher, if any. Idempotent.
func (s *Service) Stop() {
	if s.watcher != nil {
		s.watcher.Stop()
	}
}

// Resolve runs one resolution and returns the authoritative result.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Service) Resolve(ctx context.Context, name string) (*workflow.Resolution, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.flow.Run(ctx, name)
}

// ResolveStream runs one resolution, emitting step events to emit.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Service) ResolveStream(ctx context.Context, name string, emit workflow.EmitFunc) (*workflow.Resolution, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.flow.Stream(ctx, name, emit)
}

// Reload re-reads the dataset and swaps the active snapshot. A failed
// reload leaves the previous snapshot serving.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Service) Reload(ctx context.Context) (*dataset.Snapshot, error) {
	return s.store.Reload()
}

// Snapshot returns the active snapshot, or dataset.ErrNotLoaded.
func (s *Service) Snapshot() (*dataset.Snapshot, error) {
	return s.store.Active()
}

// Config returns the service configuration.
func (s *Service) Config() ServiceConfig {
	return s.config
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.ResolveTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.config.ResolveTimeout)
}
