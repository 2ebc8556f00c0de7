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
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/knowledge"
	"github.com/yazeedmshayekh2/CoreReports/services/llm"
)

// SQLDesigner turns one natural-language step description into an Oracle
// SQL statement against insmv.AIMS_ALL_DATA.
type SQLDesigner struct {
	client    llm.LLMClient
	knowledge *knowledge.Store
	logger    *logging.Logger
}

func NewSQLDesigner(client llm.LLMClient, store *knowledge.Store, logger *logging.Logger) *SQLDesigner {
	if logger == nil {
		logger = logging.Default()
	}
	return &SQLDesigner{client: client, knowledge: store, logger: logger}
}

// RetryContext formats a previous failure for inclusion in the next
// design attempt.
func RetryContext(failure string) string {
	return fmt.Sprintf("\nPREVIOUS ATTEMPT FAILED: %s\nPlease generate an alternative query to avoid this error.\n", failure)
}

// Design returns cleaned SQL for one step. Unlike the other agents this
// one fails loudly: there is no safe fallback statement, and the caller
// already retries with error context.
func (d *SQLDesigner) Design(ctx context.Context, question, stepDescription, previousResults, retryContext string) (string, error) {
	ctx, span := tracer.Start(ctx, "SQLDesigner.Design")
	defer span.End()

	prompt := d.buildPrompt(question, stepDescription, previousResults, retryContext)
	raw, err := d.client.Generate(ctx, prompt, genParams(0.1, 2048))
	if err != nil {
		return "", fmt.Errorf("sql design: %w", err)
	}
	query := CleanQuery(raw)
	if query == "" {
		return "", fmt.Errorf("sql design: model returned no statement")
	}
	return query, nil
}

func (d *SQLDesigner) buildPrompt(question, stepDescription, previousResults, retryContext string) string {
	var b strings.Builder
	b.WriteString("As the SQL Query Architect, design one Oracle SQL query for this step.\n\n")
	fmt.Fprintf(&b, "USER QUESTION: %s\n", question)
	fmt.Fprintf(&b, "STEP TO IMPLEMENT: %s\n", stepDescription)
	if previousResults != "" {
		b.WriteString(previousResults)
	}
	if retryContext != "" {
		b.WriteString(retryContext)
	}
	b.WriteString("\n")
	b.WriteString(d.knowledge.ForQuestion(question + " " + stepDescription))
	b.WriteString(`
QUERY REQUIREMENTS:
- Query the view insmv.AIMS_ALL_DATA only
- Oracle syntax: no LIMIT, no TOP, no FETCH FIRST; Top-N uses a subquery with ROWNUM
- When the user asks for descriptive terms, filter on _NAME fields
- For policy counts, return both the policy count (DOC_TYPE IN (1,4)) and the transaction count

Return ONLY the SQL statement, optionally in a sql code fence. No commentary.`)
	return b.String()
}
