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
	"github.com/yazeedmshayekh2/CoreReports/services/llm"
)

// ComputeAnalyst performs the calculation phase of QUERY_COMPUTE plans
// over data already fetched by earlier steps.
type ComputeAnalyst struct {
	client llm.LLMClient
	logger *logging.Logger
}

func NewComputeAnalyst(client llm.LLMClient, logger *logging.Logger) *ComputeAnalyst {
	if logger == nil {
		logger = logging.Default()
	}
	return &ComputeAnalyst{client: client, logger: logger}
}

// Compute runs one calculation step against the intermediate data. On any
// failure the raw model text (or step description) becomes the result with
// placeholder interpretation fields, keyed to the data that was available.
func (a *ComputeAnalyst) Compute(ctx context.Context, question, stepDescription, requirements string, intermediate map[string][]datatypes.Row, descriptions map[string]string) datatypes.ComputeResult {
	ctx, span := tracer.Start(ctx, "ComputeAnalyst.Compute")
	defer span.End()

	prompt := a.buildPrompt(question, stepDescription, requirements, intermediate, descriptions)
	raw, err := a.client.Generate(ctx, prompt, genParams(0.2, 2048))
	if err != nil {
		a.logger.Warn("compute generation failed, recording step description", "error", err)
		raw = stepDescription
	}
	var result datatypes.ComputeResult
	if err == nil {
		if uerr := jsonextract.Unmarshal(raw, &result); uerr == nil && result.Result != "" {
			return result
		}
		a.logger.Warn("compute reply unparseable, storing raw text")
	}
	return datatypes.ComputeResult{
		CalculationType:        "step",
		Result:                 raw,
		FormulaUsed:            "Analysis provided",
		BusinessInterpretation: raw,
		DataPointsUsed:         sortedKeys(intermediate),
	}
}

func (a *ComputeAnalyst) buildPrompt(question, stepDescription, requirements string, intermediate map[string][]datatypes.Row, descriptions map[string]string) string {
	var b strings.Builder
	b.WriteString("As the Computational Analyst, perform this calculation over the fetched insurance data.\n\n")
	fmt.Fprintf(&b, "USER QUESTION: %s\n", question)
	fmt.Fprintf(&b, "CALCULATION STEP: %s\n", stepDescription)
	if requirements != "" {
		fmt.Fprintf(&b, "COMPUTE REQUIREMENTS: %s\n", requirements)
	}
	b.WriteString("\n")
	b.WriteString(FormatDataSourcesSummary(intermediate, descriptions))
	b.WriteString(`
Perform the calculation using only the data above. Show the formula and
interpret the result in business terms.

Respond with JSON:
{"calculation_type": "...", "result": "...", "formula_used": "...", "business_interpretation": "...", "data_points_used": ["step_1"]}`)
	return b.String()
}
