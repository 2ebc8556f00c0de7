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

// Detector classifies names mentioned in a question as customer, agent,
// or system-user references, and extracts branch names used to scope
// agent and user lookups.
type Detector struct {
	client llm.LLMClient
	logger *logging.Logger
}

func NewDetector(client llm.LLMClient, logger *logging.Logger) *Detector {
	if logger == nil {
		logger = logging.Default()
	}
	return &Detector{client: client, logger: logger}
}

// Detect finds at most one name in the question. Failures degrade to
// NONE at 0.5 so resolution is skipped rather than aborted.
func (d *Detector) Detect(ctx context.Context, question string) datatypes.Detection {
	ctx, span := tracer.Start(ctx, "Detector.Detect")
	defer span.End()

	none := datatypes.Detection{Classification: "NONE", Confidence: 0.5}
	raw, err := d.client.Generate(ctx, d.buildDetectPrompt(question), genParams(0.1, 512))
	if err != nil {
		d.logger.Warn("name detection failed, assuming no name", "error", err)
		return none
	}
	var reply datatypes.Detection
	if uerr := jsonextract.Unmarshal(raw, &reply); uerr != nil {
		d.logger.Warn("name detection reply unparseable, assuming no name")
		return none
	}
	reply.Classification = strings.ToUpper(strings.TrimSpace(reply.Classification))
	reply.Name = strings.TrimSpace(reply.Name)
	switch reply.Classification {
	case "CUSTOMER", "AGENT", "USER":
		if reply.Name == "" {
			return none
		}
	case "NONE":
		reply.Name = ""
	default:
		return none
	}
	return reply
}

// ExtractBranches pulls branch names mentioned in the question so agent
// and user name lists can be filtered. Failures return nil, meaning no
// filter.
func (d *Detector) ExtractBranches(ctx context.Context, question string) []string {
	ctx, span := tracer.Start(ctx, "Detector.ExtractBranches")
	defer span.End()

	raw, err := d.client.Generate(ctx, d.buildBranchPrompt(question), genParams(0.1, 256))
	if err != nil {
		d.logger.Warn("branch extraction failed, no filter applied", "error", err)
		return nil
	}
	var reply struct {
		Branches []string `json:"branches"`
	}
	if uerr := jsonextract.Unmarshal(raw, &reply); uerr != nil {
		return nil
	}
	var out []string
	for _, b := range reply.Branches {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func (d *Detector) buildDetectPrompt(question string) string {
	var b strings.Builder
	b.WriteString("As the Name Detection Specialist, identify any person or company name in this question.\n\n")
	fmt.Fprintf(&b, "QUESTION: %s\n", question)
	b.WriteString(`
CLASSIFICATION GUIDELINES:
- CUSTOMER: names in the context of "find customer", "customer X", "policies for John"
- AGENT: names in the context of "agent Y", "broker Z", "sold by", "written by"; AGENT and BROKER are the same thing
- USER: names referring to system users who registered documents
- NONE: no names in the question

Only report a name actually present in the question text.

Respond with JSON:
{"classification": "CUSTOMER/AGENT/USER/NONE", "name": "extracted name or empty", "confidence": 0.9}`)
	return b.String()
}

func (d *Detector) buildBranchPrompt(question string) string {
	var b strings.Builder
	b.WriteString("Extract insurance branch names mentioned in this question.\n\n")
	fmt.Fprintf(&b, "QUESTION: %s\n", question)
	b.WriteString(`
Known branches: Main Branch, Doha Islamic Insurance - Shamel, India Branch, Mena Life, Mena Re Underwriters.
Report only branches the question refers to; an empty list means no branch scope.

Respond with JSON:
{"branches": ["..."]}`)
	return b.String()
}
