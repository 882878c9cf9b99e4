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
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// writeDataset writes content to a temp CSV file and returns its path.
func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "family.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test dataset: %v", err)
	}
	return path
}

// TestParseCSV_HappyPath verifies column mapping, alias splitting, and
// file-order preservation.
func TestParseCSV_HappyPath(t *testing.T) {
	path := writeDataset(t, `name,relationship,aliases
Saanvi,Niece,Sanu; Vivi
Arjun,Cousin,
Mary Jane Watson,Friend,MJ
`)

	rows, err := parseCSV(path)
	if err != nil {
		t.Fatalf("parseCSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	if rows[0].name != "Saanvi" || rows[0].relationship != "Niece" {
		t.Errorf("row 0 = %+v, want Saanvi/Niece", rows[0])
	}
	if !reflect.DeepEqual(rows[0].aliases, []string{"Sanu", "Vivi"}) {
		t.Errorf("row 0 aliases = %v, want [Sanu Vivi]", rows[0].aliases)
	}
	if len(rows[1].aliases) != 0 {
		t.Errorf("row 1 aliases = %v, want none", rows[1].aliases)
	}
	if rows[2].name != "Mary Jane Watson" {
		t.Errorf("row 2 name = %q, want Mary Jane Watson", rows[2].name)
	}
}

// TestParseCSV_HeaderCaseInsensitive verifies header columns match
// regardless of case, and extra columns are ignored.
func TestParseCSV_HeaderCaseInsensitive(t *testing.T) {
	path := writeDataset(t, `Notes,NAME,Relationship,ALIASES
ignored,Saanvi,Niece,Sanu
`)

	rows, err := parseCSV(path)
	if err != nil {
		t.Fatalf("parseCSV: %v", err)
	}
	if len(rows) != 1 || rows[0].name != "Saanvi" || rows[0].relationship != "Niece" {
		t.Fatalf("rows = %+v, want one Saanvi/Niece row", rows)
	}
}

// TestParseCSV_OmittedAliasColumn verifies rows may omit the trailing
// aliases field entirely.
func TestParseCSV_OmittedAliasColumn(t *testing.T) {
	path := writeDataset(t, `name,relationship,aliases
Saanvi,Niece
`)

	rows, err := parseCSV(path)
	if err != nil {
		t.Fatalf("parseCSV: %v", err)
	}
	if len(rows) != 1 || len(rows[0].aliases) != 0 {
		t.Fatalf("rows = %+v, want one alias-free row", rows)
	}
}

// TestParseCSV_MissingColumn verifies a header without a required column
// fails the whole parse.
func TestParseCSV_MissingColumn(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no name column", "relationship,aliases"},
		{"no relationship column", "name,aliases"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeDataset(t, tt.header+"\nSaanvi,Niece\n")
			if _, err := parseCSV(path); !errors.Is(err, ErrMissingColumn) {
				t.Errorf("error = %v, want ErrMissingColumn", err)
			}
		})
	}
}

// TestParseCSV_MalformedRow verifies a blank required field rejects the
// whole file rather than skipping the row.
func TestParseCSV_MalformedRow(t *testing.T) {
	path := writeDataset(t, `name,relationship,aliases
Saanvi,Niece,
,Cousin,
`)

	if _, err := parseCSV(path); !errors.Is(err, ErrMalformedRow) {
		t.Errorf("error = %v, want ErrMalformedRow", err)
	}
}

// TestParseCSV_EmptyDataset verifies header-only and empty files are
// rejected.
func TestParseCSV_EmptyDataset(t *testing.T) {
	for name, content := range map[string]string{
		"header only": "name,relationship,aliases\n",
		"empty file":  "",
	} {
		t.Run(name, func(t *testing.T) {
			path := writeDataset(t, content)
			if _, err := parseCSV(path); !errors.Is(err, ErrEmptyDataset) {
				t.Errorf("error = %v, want ErrEmptyDataset", err)
			}
		})
	}
}

// TestParseCSV_FileMissing verifies a missing file surfaces the OS error.
func TestParseCSV_FileMissing(t *testing.T) {
	if _, err := parseCSV(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
