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
	"testing"
)

// TestNormalize_Table verifies the canonical normalization rules: case
// folding, whitespace collapsing, diacritic stripping, and punctuation
// removal.
func TestNormalize_Table(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase passthrough", "saanvi", "saanvi"},
		{"mixed case", "SaAnVi", "saanvi"},
		{"leading and trailing whitespace", "  Saanvi  ", "saanvi"},
		{"internal whitespace collapsed", "Mary   Jane\tWatson", "mary jane watson"},
		{"diacritics stripped", "José", "jose"},
		{"diacritics and case", "ZOË", "zoe"},
		{"punctuation dropped", "O'Brien, Jr.", "obrien jr"},
		{"hyphen preserved", "Anne-Marie", "anne-marie"},
		{"digits preserved", "Agent 47", "agent 47"},
		{"tabs and newlines are whitespace", "a\nb\tc", "a b c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if err != nil {
				t.Fatalf("Normalize(%q) returned error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestNormalize_Idempotent verifies Normalize(Normalize(s)) == Normalize(s).
func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"  Saanvi  ", "José María", "O'Brien, Jr.", "ANNE-marie  smith"}

	for _, in := range inputs {
		once, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", in, err)
		}
		twice, err := Normalize(once)
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", once, err)
		}
		if once != twice {
			t.Errorf("not idempotent: Normalize(%q) = %q, Normalize again = %q", in, once, twice)
		}
	}
}

// TestNormalize_Invalid verifies inputs with nothing comparable left
// return ErrInvalidName.
func TestNormalize_Invalid(t *testing.T) {
	inputs := []string{"", "   ", "\t\n", "!!!", "...,,;"}

	for _, in := range inputs {
		if _, err := Normalize(in); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Normalize(%q) error = %v, want ErrInvalidName", in, err)
		}
	}
}
