// Copyright (C) 2025 The CoreReports Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agents implements the specialist model calls behind the
// question-answering pipeline: planning, SQL design, computation,
// evaluation, response generation, name detection, and fuzzy matching.
//
// Every agent is total: a model failure or unparseable reply degrades to
// a conservative default instead of an error, so one flaky completion
// never kills a cycle. The prompt-context helpers in this package build
// the shared context blocks those prompts embed.
package agents

import (
	"go.opentelemetry.io/otel"

	"github.com/yazeedmshayekh2/CoreReports/services/llm"
)

var tracer = otel.Tracer("corereports.agents")

func f32ptr(v float32) *float32 { return &v }
func intptr(v int) *int         { return &v }

// genParams is the shared sampling profile for structured-output calls.
// Low temperature keeps JSON replies stable.
func genParams(temperature float32, maxTokens int) llm.GenerationParams {
	return llm.GenerationParams{
		Temperature: f32ptr(temperature),
		MaxTokens:   intptr(maxTokens),
	}
}
