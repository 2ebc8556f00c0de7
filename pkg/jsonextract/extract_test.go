// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package jsonextract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "json fenced block",
			text: "Here is the plan:\n```json\n{\"action\": \"DIRECT\"}\n```\nDone.",
			want: `{"action": "DIRECT"}`,
		},
		{
			name: "plain fenced block",
			text: "```\n{\"status\": \"COMPLETE\"}\n```",
			want: `{"status": "COMPLETE"}`,
		},
		{
			name: "language tagged fence",
			text: "```sql\nSELECT 1\n```",
			want: "SELECT 1",
		},
		{
			name: "bare object with preamble",
			text: "Sure! The answer is {\"classification\": \"CUSTOMER\", \"name\": \"Ali\"} as requested.",
			want: `{"classification": "CUSTOMER", "name": "Ali"}`,
		},
		{
			name: "bare array",
			text: "steps: [\"one\", \"two\"] trailing",
			want: `["one", "two"]`,
		},
		{
			name: "nested braces",
			text: `{"a": {"b": 1}, "c": 2} extra`,
			want: `{"a": {"b": 1}, "c": 2}`,
		},
		{
			name: "brace inside string literal",
			text: `{"note": "uses { and } freely"} tail`,
			want: `{"note": "uses { and } freely"}`,
		},
		{
			name: "unclosed brace falls back to raw",
			text: `{"broken": "never closes`,
			want: `{"broken": "never closes`,
		},
		{
			name: "no json at all",
			text: "the model refused to answer",
			want: "the model refused to answer",
		},
		{
			name: "empty input",
			text: "",
			want: "",
		},
		{
			name: "whitespace only",
			text: "   \n\t  ",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text))
		})
	}
}

func TestUnmarshal(t *testing.T) {
	type classification struct {
		Classification string  `json:"classification"`
		Name           string  `json:"name"`
		Confidence     float64 `json:"confidence"`
	}

	t.Run("decodes fenced object", func(t *testing.T) {
		var got classification
		err := Unmarshal("```json\n{\"classification\": \"AGENT\", \"name\": \"Omar\", \"confidence\": 0.8}\n```", &got)
		require.NoError(t, err)
		assert.Equal(t, "AGENT", got.Classification)
		assert.Equal(t, "Omar", got.Name)
		assert.InDelta(t, 0.8, got.Confidence, 1e-9)
	})

	t.Run("skips fence with invalid json and uses brace span", func(t *testing.T) {
		var got classification
		text := "```\nnot json here\n```\nActual: {\"classification\": \"USER\", \"name\": \"Sara\", \"confidence\": 0.6}"
		err := Unmarshal(text, &got)
		require.NoError(t, err)
		assert.Equal(t, "USER", got.Classification)
	})

	t.Run("returns ErrNoJSON for prose", func(t *testing.T) {
		var got classification
		err := Unmarshal("I could not determine the classification.", &got)
		assert.ErrorIs(t, err, ErrNoJSON)
	})

	t.Run("returns ErrNoJSON for empty", func(t *testing.T) {
		var got classification
		assert.ErrorIs(t, Unmarshal("", &got), ErrNoJSON)
	})

	t.Run("truncated json is not an exception", func(t *testing.T) {
		var got map[string]any
		err := Unmarshal(`{"steps": ["a", "b"`, &got)
		assert.ErrorIs(t, err, ErrNoJSON)
	})
}
