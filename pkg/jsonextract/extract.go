// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package jsonextract pulls JSON payloads out of free-form LLM output.
//
// Model responses wrap JSON in markdown fences, preamble prose, or trailing
// commentary more often than not. Every component that parses structured
// model output goes through this package so the fallback order is applied
// in exactly one place.
package jsonextract

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON indicates no stage of the fallback chain produced valid JSON.
var ErrNoJSON = errors.New("jsonextract: no JSON object found in text")

var (
	jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	anyFenceRe  = regexp.MustCompile("(?s)```(?:[a-zA-Z0-9_-]*)\\s*(.*?)```")
)

// Extract returns the best JSON candidate embedded in text.
//
// # Description
//
//	Applies the fallback chain in order: a ```json fenced block, any fenced
//	block, the first balanced {...} or [...] span, then the raw trimmed
//	text. The result is a candidate string; it is not guaranteed to be
//	valid JSON. Use Unmarshal when decoding is required.
//
// # Inputs
//
//	text - raw model output, possibly empty.
//
// # Outputs
//
//	string - the extracted candidate, trimmed. Empty input yields "".
func Extract(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}

	if m := jsonFenceRe.FindStringSubmatch(trimmed); m != nil {
		if c := strings.TrimSpace(m[1]); c != "" {
			return c
		}
	}
	if m := anyFenceRe.FindStringSubmatch(trimmed); m != nil {
		if c := strings.TrimSpace(m[1]); c != "" {
			return c
		}
	}
	if span := firstSpan(trimmed); span != "" {
		return span
	}
	return trimmed
}

// Unmarshal extracts a JSON candidate from text and decodes it into v.
//
// Each stage of the fallback chain is tried until one yields a candidate
// that decodes cleanly; stages producing invalid JSON are skipped rather
// than aborting the chain. Returns ErrNoJSON when every stage fails.
func Unmarshal(text string, v any) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrNoJSON
	}

	var candidates []string
	if m := jsonFenceRe.FindStringSubmatch(trimmed); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if m := anyFenceRe.FindStringSubmatch(trimmed); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if span := firstSpan(trimmed); span != "" {
		candidates = append(candidates, span)
	}
	candidates = append(candidates, trimmed)

	for _, c := range candidates {
		if c == "" {
			continue
		}
		if err := json.Unmarshal([]byte(c), v); err == nil {
			return nil
		}
	}
	return ErrNoJSON
}

// firstSpan returns the first balanced top-level {...} or [...] span in s,
// or "" when none closes. String literals and escapes are honored so braces
// inside JSON strings do not unbalance the scan.
func firstSpan(s string) string {
	start := -1
	for i, r := range s {
		if r == '{' || r == '[' {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}

	open := s[start]
	var close byte
	if open == '{' {
		close = '}'
	} else {
		close = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
