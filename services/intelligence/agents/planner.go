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

// Planner decides the execution strategy for one cycle: how many query
// steps the question needs and whether computation follows.
type Planner struct {
	client    llm.LLMClient
	knowledge *knowledge.Store
	logger    *logging.Logger
}

func NewPlanner(client llm.LLMClient, store *knowledge.Store, logger *logging.Logger) *Planner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Planner{client: client, knowledge: store, logger: logger}
}

type plannerReply struct {
	Action              string   `json:"action"`
	Steps               []string `json:"steps"`
	ComputeRequirements string   `json:"compute_requirements"`
	Rationale           string   `json:"rationale"`
}

// Plan produces a Strategy for the question. Any model or parse failure
// degrades to a single direct query built from the question text itself,
// so planning never blocks a cycle.
func (p *Planner) Plan(ctx context.Context, question, executionContext string) datatypes.Strategy {
	ctx, span := tracer.Start(ctx, "Planner.Plan")
	defer span.End()

	prompt := p.buildPrompt(question, executionContext)
	fallback := datatypes.Strategy{
		Action: datatypes.ActionDirect,
		Steps:  []string{question},
	}

	raw, err := p.client.Generate(ctx, prompt, genParams(0.2, 2048))
	if err != nil {
		p.logger.Warn("planner generation failed, using direct fallback", "error", err)
		return fallback
	}
	var reply plannerReply
	if err := jsonextract.Unmarshal(raw, &reply); err != nil {
		p.logger.Warn("planner reply unparseable, using direct fallback", "error", err)
		return fallback
	}
	action, known := datatypes.ParseAction(reply.Action)
	if !known {
		p.logger.Warn("planner returned unknown action, coercing to direct", "action", reply.Action)
	}
	steps := make([]string, 0, len(reply.Steps))
	for _, s := range reply.Steps {
		if s = strings.TrimSpace(s); s != "" {
			steps = append(steps, s)
		}
	}
	if len(steps) == 0 && action != datatypes.ActionAskUser {
		steps = []string{question}
	}
	return datatypes.Strategy{
		Action:              action,
		Steps:               steps,
		ComputeRequirements: strings.TrimSpace(reply.ComputeRequirements),
		Rationale:           strings.TrimSpace(reply.Rationale),
	}
}

func (p *Planner) buildPrompt(question, executionContext string) string {
	var b strings.Builder
	b.WriteString("As the Strategic Query Planner, create an execution strategy for this insurance data question.\n\n")
	fmt.Fprintf(&b, "USER QUESTION: %s\n\n", question)
	fmt.Fprintf(&b, "EXECUTION CONTEXT:\n%s\n\n", executionContext)
	b.WriteString(p.knowledge.ForQuestion(question))
	b.WriteString(`
STRATEGY OPTIONS:
- QUERY_DIRECT: one query answers the question
- QUERY_SEQUENCE: multiple dependent queries, later steps use earlier results
- QUERY_COMPUTE: queries gather data, then a calculation produces the answer
- ASK_USER: the question is too ambiguous to plan

Steps are natural-language descriptions of what each query must fetch,
in execution order. For QUERY_COMPUTE, prefix calculation steps with
"Compute" or "Calculate" and describe the math in compute_requirements.

Respond with JSON:
{"action": "QUERY_DIRECT/QUERY_SEQUENCE/QUERY_COMPUTE/ASK_USER", "steps": ["..."], "compute_requirements": "...", "rationale": "..."}`)
	return b.String()
}
