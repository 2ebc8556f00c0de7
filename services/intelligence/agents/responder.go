// Copyright (C) 2025 The CoreReports Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/yazeedmshayekh2/CoreReports/pkg/logging"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/datatypes"
	"github.com/yazeedmshayekh2/CoreReports/services/llm"
)

// Responder writes the final natural-language answer from the fetched
// data and the evaluation summary.
type Responder struct {
	client llm.LLMClient
	logger *logging.Logger
}

func NewResponder(client llm.LLMClient, logger *logging.Logger) *Responder {
	if logger == nil {
		logger = logging.Default()
	}
	return &Responder{client: client, logger: logger}
}

// Respond generates the answer text. When the model is unavailable the
// raw results summary is returned so the user still sees the data.
func (r *Responder) Respond(ctx context.Context, question string, result *datatypes.ExecutionResult, evaluation datatypes.EvaluationResult) string {
	ctx, span := tracer.Start(ctx, "Responder.Respond")
	defer span.End()

	summary := FormatResultsSummary(result)
	prompt := r.buildPrompt(question, summary, evaluation)
	raw, err := r.client.Generate(ctx, prompt, genParams(0.4, 4096))
	if err != nil {
		r.logger.Warn("responder generation failed, returning raw summary", "error", err)
		return summary
	}
	answer := strings.TrimSpace(raw)
	if answer == "" {
		return summary
	}
	return answer
}

func (r *Responder) buildPrompt(question, resultsSummary string, evaluation datatypes.EvaluationResult) string {
	var b strings.Builder
	b.WriteString("As the Response Generator, write the final answer for this insurance data question.\n\n")
	fmt.Fprintf(&b, "USER QUESTION: %s\n\n", question)
	b.WriteString(resultsSummary)
	if evaluation.Summary != "" {
		fmt.Fprintf(&b, "\nEVALUATION SUMMARY: %s\n", evaluation.Summary)
	}
	b.WriteString(`
RESPONSE REQUIREMENTS:
- Answer the question directly using only the data above
- State concrete numbers and names; never invent values not present in the results
- When both a policy count and a transaction count are present, report both
- Keep monetary amounts with their currency context
- Plain prose or short bullet lists; no SQL, no JSON`)
	return b.String()
}
