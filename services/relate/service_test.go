// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package relate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/RelateFOSS/services/relate/match"
)

// TestLoadServiceConfig_MissingFile verifies zero-config operation: a
// missing file yields pure defaults without error, and validation of the
// unfilled result still catches the missing dataset path.
func TestLoadServiceConfig_MissingFile(t *testing.T) {
	cfg, err := LoadServiceConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultServiceConfig(), cfg)

	assert.Error(t, cfg.Validate())
	cfg.DatasetPath = "family.csv"
	assert.NoError(t, cfg.Validate())
}

// TestLoadServiceConfig_Overrides verifies YAML fields override defaults
// and unset fields keep them.
func TestLoadServiceConfig_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relate.config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dataset_path: family.csv
fuzzy_threshold: 0.7
watch_dataset: false
`), 0o644))

	cfg, err := LoadServiceConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "family.csv", cfg.DatasetPath)
	assert.Equal(t, 0.7, cfg.FuzzyThreshold)
	assert.False(t, cfg.WatchDataset)
	// Untouched fields keep their defaults.
	assert.True(t, cfg.EnableFuzzy)
	assert.Equal(t, match.DefaultMediumBand, cfg.MediumBand)
	assert.Equal(t, 5*time.Second, cfg.ResolveTimeout)
}

// TestLoadServiceConfig_Invalid verifies out-of-range and inconsistent
// values are rejected.
func TestLoadServiceConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"threshold above one", "dataset_path: family.csv\nfuzzy_threshold: 1.5\n"},
		{"medium band below threshold", "dataset_path: family.csv\nfuzzy_threshold: 0.9\nmedium_band: 0.7\n"},
		{"missing dataset path", "fuzzy_threshold: 0.6\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "relate.config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			cfg, err := LoadServiceConfig(path)
			require.NoError(t, err)
			assert.Error(t, cfg.Validate())
		})
	}
}

// TestService_StartFailsWithoutDataset verifies the mandatory initial
// load: a service with a missing dataset refuses to start.
func TestService_StartFailsWithoutDataset(t *testing.T) {
	cfg := DefaultServiceConfig()
	cfg.DatasetPath = filepath.Join(t.TempDir(), "nope.csv")
	cfg.WatchDataset = false

	svc, err := NewService(cfg, testLogger())
	require.NoError(t, err)

	assert.Error(t, svc.Start(context.Background()))
}

// TestService_ResolveRoundTrip verifies the facade wires normalizer,
// store, matcher, and workflow together.
func TestService_ResolveRoundTrip(t *testing.T) {
	svc := newTestService(t, familyCSV, true)

	res, err := svc.Resolve(context.Background(), "sanu")
	require.NoError(t, err)
	assert.Equal(t, "Saanvi", res.Person)
	assert.Equal(t, "Niece", res.Relationship)
	assert.Equal(t, match.StrategyExact, res.Matching.Strategy)
}
