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
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Required and optional column names, matched case-insensitively.
const (
	columnName         = "name"
	columnRelationship = "relationship"
	columnAliases      = "aliases"

	// aliasSeparator splits the alias column into individual aliases.
	aliasSeparator = ";"
)

// row is one parsed data row before Record construction.
type row struct {
	name         string
	relationship string
	aliases      []string
}

// parseCSV reads the dataset source into raw rows.
//
// Description:
//
//	Parses a CSV file with a mandatory header row. Columns are matched
//	case-insensitively; "name" and "relationship" are required, "aliases"
//	is optional (";"-separated when present). Extra columns are ignored.
//	Rows with a blank name or relationship fail the whole parse: malformed
//	data is rejected eagerly rather than skipped silently.
//
// Inputs:
//
//	path - Path to the CSV file.
//
// Outputs:
//
//	[]row - Parsed rows in file order.
//	error - Non-nil if the file is missing, unreadable, schema-violating,
//	        or contains zero data rows.
//
// Errors:
//
//	ErrMissingColumn - Header lacks a required column
//	ErrMalformedRow - A data row has a blank required field
//	ErrEmptyDataset - No data rows after the header
//
// Thread Safety: Safe for concurrent use (stateless function).
func parseCSV(path string) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	// Rows may omit the trailing aliases column.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%s: %w", path, ErrEmptyDataset)
		}
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}

	nameIdx, relIdx, aliasIdx := -1, -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case columnName:
			nameIdx = i
		case columnRelationship:
			relIdx = i
		case columnAliases:
			aliasIdx = i
		}
	}
	if nameIdx < 0 {
		return nil, fmt.Errorf("%w: %q in %s", ErrMissingColumn, columnName, path)
	}
	if relIdx < 0 {
		return nil, fmt.Errorf("%w: %q in %s", ErrMissingColumn, columnRelationship, path)
	}

	var rows []row
	line := 1 // header was line 1
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading %s line %d: %w", path, line, err)
		}

		r := row{}
		if nameIdx < len(fields) {
			r.name = strings.TrimSpace(fields[nameIdx])
		}
		if relIdx < len(fields) {
			r.relationship = strings.TrimSpace(fields[relIdx])
		}
		if r.name == "" || r.relationship == "" {
			return nil, fmt.Errorf("%w: line %d of %s", ErrMalformedRow, line, path)
		}

		if aliasIdx >= 0 && aliasIdx < len(fields) {
			for _, alias := range strings.Split(fields[aliasIdx], aliasSeparator) {
				alias = strings.TrimSpace(alias)
				if alias != "" {
					r.aliases = append(r.aliases, alias)
				}
			}
		}

		rows = append(rows, r)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyDataset)
	}

	return rows, nil
}
