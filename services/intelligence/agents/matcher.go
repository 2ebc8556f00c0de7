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

// maxMatches bounds how many candidates a multiple-match result carries.
const maxMatches = 10

// entityLabels parameterizes the one matching prompt per entity kind.
var entityLabels = map[datatypes.EntityKind]string{
	datatypes.EntityCustomer: "customer",
	datatypes.EntityCompany:  "company customer",
	datatypes.EntityAgent:    "broker",
	datatypes.EntityUser:     "system user",
}

// Matcher fuzzy-matches a user-supplied name against names fetched from
// the database. One matcher serves every entity kind; only the prompt
// label changes.
type Matcher struct {
	client llm.LLMClient
	logger *logging.Logger
}

func NewMatcher(client llm.LLMClient, logger *logging.Logger) *Matcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Matcher{client: client, logger: logger}
}

// Match compares input against candidates. Failures degrade to no_match.
// Results are normalized: Matches is bounded to ten entries, every match
// must name a real candidate, and a single surviving match with an Exact
// field collapses to exact_match.
func (m *Matcher) Match(ctx context.Context, kind datatypes.EntityKind, input string, candidates []string) datatypes.MatchResult {
	ctx, span := tracer.Start(ctx, "Matcher.Match")
	defer span.End()

	none := datatypes.MatchResult{Status: datatypes.MatchNone}
	if len(candidates) == 0 {
		return none
	}
	raw, err := m.client.Generate(ctx, m.buildPrompt(kind, input, candidates), genParams(0.1, 1024))
	if err != nil {
		m.logger.Warn("name matching failed", "kind", kind, "error", err)
		return none
	}
	var reply datatypes.MatchResult
	if uerr := jsonextract.Unmarshal(raw, &reply); uerr != nil {
		m.logger.Warn("name matching reply unparseable", "kind", kind)
		return none
	}
	return normalizeMatch(reply, candidates)
}

func normalizeMatch(reply datatypes.MatchResult, candidates []string) datatypes.MatchResult {
	known := make(map[string]string, len(candidates))
	for _, c := range candidates {
		known[strings.ToLower(strings.TrimSpace(c))] = c
	}
	canonical := func(name string) (string, bool) {
		c, ok := known[strings.ToLower(strings.TrimSpace(name))]
		return c, ok
	}

	switch reply.Status {
	case datatypes.MatchExact:
		name := reply.Exact
		if name == "" && len(reply.Matches) > 0 {
			name = reply.Matches[0]
		}
		if c, ok := canonical(name); ok {
			return datatypes.MatchResult{Status: datatypes.MatchExact, Exact: c, Matches: []string{c},
				ConfidenceScores: firstScore(reply.ConfidenceScores), Reasoning: reply.Reasoning}
		}
		return datatypes.MatchResult{Status: datatypes.MatchNone}
	case datatypes.MatchMultiple:
		var names []string
		var scores []float64
		for i, n := range reply.Matches {
			c, ok := canonical(n)
			if !ok {
				continue
			}
			names = append(names, c)
			if i < len(reply.ConfidenceScores) {
				scores = append(scores, reply.ConfidenceScores[i])
			} else {
				scores = append(scores, 0)
			}
			if len(names) == maxMatches {
				break
			}
		}
		switch len(names) {
		case 0:
			return datatypes.MatchResult{Status: datatypes.MatchNone}
		case 1:
			return datatypes.MatchResult{Status: datatypes.MatchExact, Exact: names[0], Matches: names,
				ConfidenceScores: scores, Reasoning: reply.Reasoning}
		default:
			return datatypes.MatchResult{Status: datatypes.MatchMultiple, Matches: names,
				ConfidenceScores: scores, Reasoning: reply.Reasoning}
		}
	default:
		return datatypes.MatchResult{Status: datatypes.MatchNone, Reasoning: reply.Reasoning}
	}
}

func firstScore(scores []float64) []float64 {
	if len(scores) == 0 {
		return []float64{1.0}
	}
	return scores[:1]
}

func (m *Matcher) buildPrompt(kind datatypes.EntityKind, input string, candidates []string) string {
	label := entityLabels[kind]
	if label == "" {
		label = "customer"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Match the user input with available %s names using intelligent comparison.\n\n", label)
	fmt.Fprintf(&b, "USER INPUT: %q\n", input)
	fmt.Fprintf(&b, "AVAILABLE NAMES: %v\n", candidates)
	fmt.Fprintf(&b, "TOTAL NAMES: %d\n", len(candidates))
	b.WriteString(`
MATCHING STRATEGIES:
- Exact match gets highest priority (confidence 1.0)
- Partial name matches (first name, last name, substring)
- Case-insensitive comparison
- Common spelling variations and nicknames
- Cultural name variations (Arabic/English transliterations)
- Phonetic similarity for pronunciation-based matches

RESPONSE RULES:
- If 1 exact match: return "exact_match" with the name in "exact"
- If 2-10 good matches: return "multiple_matches" with the list
- If more than 10 matches: return the top 10 as "multiple_matches"
- If no good matches: return "no_match"
- Every reported name must be copied verbatim from AVAILABLE NAMES

Respond with JSON:
{"status": "exact_match/multiple_matches/no_match", "exact": "name", "matches": ["name1", "name2"], "confidence_scores": [0.95, 0.85], "reasoning": "..."}`)
	return b.String()
}
