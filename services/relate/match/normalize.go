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
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripDiacritics decomposes to NFD, removes combining marks, and
// recomposes. "José" becomes "Jose".
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize maps a raw name to its canonical comparison key.
//
// Description:
//
//	Applies, in order: diacritic stripping, lowercasing, removal of
//	characters outside letters/digits/space/hyphen, whitespace collapsing,
//	and trimming. The same human name always normalizes identically
//	regardless of case, spacing, or accents, and the function is
//	idempotent: Normalize(Normalize(s)) == Normalize(s).
//
// Inputs:
//
//	raw - The name as supplied by the caller. May be empty or junk.
//
// Outputs:
//
//	string - The normalized key.
//	error - ErrInvalidName if nothing comparable remains.
//
// Thread Safety: Safe for concurrent use (pure function, no shared state).
func Normalize(raw string) (string, error) {
	s, _, err := transform.String(stripDiacritics, raw)
	if err != nil {
		// The chain never fails on valid UTF-8; fall back to the input so
		// a lone bad byte degrades to filtering instead of a hard error.
		s = raw
	}

	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
		// Everything else (punctuation, symbols) is dropped.
	}

	normalized := strings.Join(strings.Fields(b.String()), " ")
	if normalized == "" {
		return "", ErrInvalidName
	}
	return normalized, nil
}
