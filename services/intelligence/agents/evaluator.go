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

	"github.com/yazeedmshayekh2/CoreReports/pkg/jsonextract"
	"github.com/yazeedmshayekh2/CoreReports/pkg/logging"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/datatypes"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/knowledge"
	"github.com/yazeedmshayekh2/CoreReports/services/llm"
)

// Evaluator judges whether one cycle's results answer the question or
// another cycle is needed.
type Evaluator struct {
	client    llm.LLMClient
	knowledge *knowledge.Store
	logger    *logging.Logger
}

func NewEvaluator(client llm.LLMClient, store *knowledge.Store, logger *logging.Logger) *Evaluator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Evaluator{client: client, knowledge: store, logger: logger}
}

// Evaluate returns the verdict for one cycle. An unusable model reply
// degrades to CONTINUE at 0.5 with the raw text as rationale, which lets
// the loop replan rather than fail.
func (e *Evaluator) Evaluate(ctx context.Context, question string, cycle int, result *datatypes.ExecutionResult) datatypes.EvaluationResult {
	ctx, span := tracer.Start(ctx, "Evaluator.Evaluate")
	defer span.End()

	prompt := e.buildPrompt(question, cycle, result)
	raw, err := e.client.Generate(ctx, prompt, genParams(0.1, 1024))
	if err != nil {
		e.logger.Warn("evaluator generation failed, continuing", "error", err)
		return datatypes.EvaluationResult{Status: datatypes.StatusContinue, Confidence: 0.5, Rationale: err.Error()}
	}
	var reply datatypes.EvaluationResult
	if uerr := jsonextract.Unmarshal(raw, &reply); uerr != nil || reply.Status == "" {
		e.logger.Warn("evaluator reply unparseable, continuing")
		return datatypes.EvaluationResult{Status: datatypes.StatusContinue, Confidence: 0.5, Rationale: raw}
	}
	reply.Status = datatypes.EvaluationStatus(strings.ToUpper(string(reply.Status)))
	switch reply.Status {
	case datatypes.StatusComplete, datatypes.StatusContinue, datatypes.StatusAskUser:
	default:
		e.logger.Warn("evaluator returned unknown status, continuing", "status", reply.Status)
		reply.Status = datatypes.StatusContinue
	}
	return reply
}

func (e *Evaluator) buildPrompt(question string, cycle int, result *datatypes.ExecutionResult) string {
	var b strings.Builder
	b.WriteString("As the Results Intelligence Evaluator, analyze these query results.\n\n")
	fmt.Fprintf(&b, "USER QUESTION: %s\n", question)
	fmt.Fprintf(&b, "CYCLE: %d\n\n", cycle)
	b.WriteString(FormatResultsSummary(result))
	b.WriteString("\n")
	b.WriteString(e.knowledge.ForQuestion(question))
	b.WriteString(`
BE DECISIVE AND EFFICIENT - Evaluate quickly:

QUICK COMPLETENESS CHECK:
1. Does the data directly answer what the user asked?
2. Are the key data points present and relevant?
3. If calculations were needed, were they performed correctly?
4. Is there enough information for the user to understand the answer?

DECISION MATRIX (Choose COMPLETE when possible):
- User asked for policies and got policies with relevant details = COMPLETE
- User asked for claims and got claims with amounts/status = COMPLETE
- User asked for calculations and got correct calculations = COMPLETE
- User asked for comparisons and got data from all compared items = COMPLETE
- User asked a broad question and got a representative sample = COMPLETE

ONLY choose CONTINUE if:
- Critical data is obviously missing (e.g., asked for amounts but got none)
- The calculation is clearly wrong or incomplete
- The question has multiple parts and only one part was answered

ONLY choose ASK_USER if:
- Results are completely unrelated to the question
- The question is genuinely ambiguous

DEFAULT TO COMPLETE: When in doubt, favor COMPLETE over CONTINUE.

Respond with JSON:
{"status": "COMPLETE/CONTINUE/ASK_USER", "confidence": 0.9, "rationale": "...", "summary": "..."}`)
	return b.String()
}
