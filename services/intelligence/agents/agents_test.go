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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/datatypes"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/knowledge"
	"github.com/yazeedmshayekh2/CoreReports/services/llm"
)

// mockClient replays canned completions in order and records prompts.
type mockClient struct {
	replies []string
	err     error
	calls   int
	prompts []string
}

func (m *mockClient) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	i := m.calls
	m.calls++
	if i >= len(m.replies) {
		i = len(m.replies) - 1
	}
	return m.replies[i], nil
}

func testKnowledge(t *testing.T) *knowledge.Store {
	t.Helper()
	store, err := knowledge.NewStore("", nil)
	require.NoError(t, err)
	return store
}

func TestGenParamsTypes(t *testing.T) {
	params := genParams(0.2, 2048)
	require.NotNil(t, params.Temperature)
	assert.Equal(t, float32(0.2), *params.Temperature)
	require.NotNil(t, params.MaxTokens)
	assert.Equal(t, 2048, *params.MaxTokens)
}

func TestPlannerParsesStrategy(t *testing.T) {
	client := &mockClient{replies: []string{
		"```json\n{\"action\": \"QUERY_COMPUTE\", \"steps\": [\"Fetch premium totals\", \"Compute the loss ratio\"], \"compute_requirements\": \"loss ratio formula\", \"rationale\": \"needs math\"}\n```",
	}}
	p := NewPlanner(client, testKnowledge(t), nil)

	s := p.Plan(context.Background(), "what is the loss ratio for 2024", "First cycle - no previous context")
	assert.Equal(t, datatypes.ActionCompute, s.Action)
	assert.Len(t, s.Steps, 2)
	assert.Equal(t, "loss ratio formula", s.ComputeRequirements)
}

func TestPlannerFallbacks(t *testing.T) {
	question := "policies for customer 28140001175"
	tests := []struct {
		name   string
		client *mockClient
	}{
		{"generation error", &mockClient{err: errors.New("boom")}},
		{"unparseable reply", &mockClient{replies: []string{"I cannot help with that."}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewPlanner(tt.client, testKnowledge(t), nil).Plan(context.Background(), question, "ctx")
			assert.Equal(t, datatypes.ActionDirect, s.Action)
			assert.Equal(t, []string{question}, s.Steps)
		})
	}
}

func TestPlannerCoercesUnknownAction(t *testing.T) {
	client := &mockClient{replies: []string{`{"action": "QUERY_MAGIC", "steps": ["fetch things"]}`}}
	s := NewPlanner(client, testKnowledge(t), nil).Plan(context.Background(), "q", "ctx")
	assert.Equal(t, datatypes.ActionDirect, s.Action)
	assert.Equal(t, []string{"fetch things"}, s.Steps)
}

func TestSQLDesignerCleansFences(t *testing.T) {
	client := &mockClient{replies: []string{"```sql\nSELECT COUNT(*) FROM insmv.AIMS_ALL_DATA;\n```"}}
	d := NewSQLDesigner(client, testKnowledge(t), nil)

	q, err := d.Design(context.Background(), "how many rows", "count all documents", "", "")
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM insmv.AIMS_ALL_DATA", q)
}

func TestSQLDesignerErrors(t *testing.T) {
	d := NewSQLDesigner(&mockClient{err: errors.New("down")}, testKnowledge(t), nil)
	_, err := d.Design(context.Background(), "q", "step", "", "")
	assert.Error(t, err)

	d = NewSQLDesigner(&mockClient{replies: []string{"```sql\n\n```"}}, testKnowledge(t), nil)
	_, err = d.Design(context.Background(), "q", "step", "", "")
	assert.Error(t, err)
}

func TestSQLDesignerIncludesRetryContext(t *testing.T) {
	client := &mockClient{replies: []string{"SELECT 1 FROM DUAL"}}
	d := NewSQLDesigner(client, testKnowledge(t), nil)
	retry := RetryContext("ORA-00904: invalid identifier")

	_, err := d.Design(context.Background(), "q", "step", "", retry)
	require.NoError(t, err)
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "PREVIOUS ATTEMPT FAILED: ORA-00904")
	assert.Contains(t, client.prompts[0], "alternative query")
}

func TestEvaluatorParsesVerdict(t *testing.T) {
	client := &mockClient{replies: []string{`{"status": "complete", "confidence": 0.92, "summary": "answered"}`}}
	e := NewEvaluator(client, testKnowledge(t), nil)

	res := &datatypes.ExecutionResult{Results: map[string][]datatypes.Row{"step_1": {{"N": 3}}}}
	v := e.Evaluate(context.Background(), "q", 1, res)
	assert.Equal(t, datatypes.StatusComplete, v.Status)
	assert.Equal(t, 0.92, v.Confidence)
}

func TestEvaluatorFallsBackToContinue(t *testing.T) {
	res := &datatypes.ExecutionResult{Results: map[string][]datatypes.Row{}}
	tests := []struct {
		name   string
		client *mockClient
	}{
		{"generation error", &mockClient{err: errors.New("down")}},
		{"prose reply", &mockClient{replies: []string{"the results look fine to me"}}},
		{"unknown status", &mockClient{replies: []string{`{"status": "MAYBE", "confidence": 0.8}`}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewEvaluator(tt.client, testKnowledge(t), nil).Evaluate(context.Background(), "q", 2, res)
			assert.Equal(t, datatypes.StatusContinue, v.Status)
		})
	}
}

func TestComputeAnalystFallback(t *testing.T) {
	client := &mockClient{replies: []string{"the grand total is forty-two"}}
	a := NewComputeAnalyst(client, nil)
	intermediate := map[string][]datatypes.Row{"step_1": {{"TOTAL": 42}}}

	res := a.Compute(context.Background(), "q", "Compute the total", "", intermediate, nil)
	assert.Equal(t, "step", res.CalculationType)
	assert.Equal(t, "the grand total is forty-two", res.Result)
	assert.Equal(t, "Analysis provided", res.FormulaUsed)
	assert.Equal(t, []string{"step_1"}, res.DataPointsUsed)
}

func TestComputeAnalystParsesResult(t *testing.T) {
	client := &mockClient{replies: []string{`{"calculation_type": "loss_ratio", "result": "64.2%", "formula_used": "(paid+outstanding-recovered)/premium", "business_interpretation": "healthy", "data_points_used": ["step_1"]}`}}
	res := NewComputeAnalyst(client, nil).Compute(context.Background(), "q", "Compute loss ratio", "", map[string][]datatypes.Row{"step_1": {{"X": 1}}}, nil)
	assert.Equal(t, "loss_ratio", res.CalculationType)
	assert.Equal(t, "64.2%", res.Result)
}

func TestDetectorClassifies(t *testing.T) {
	tests := []struct {
		name   string
		client *mockClient
		want   datatypes.Detection
	}{
		{
			"customer name",
			&mockClient{replies: []string{`{"classification": "CUSTOMER", "name": "Ali Hassan", "confidence": 0.93}`}},
			datatypes.Detection{Classification: "CUSTOMER", Name: "Ali Hassan", Confidence: 0.93},
		},
		{
			"generation error",
			&mockClient{err: errors.New("down")},
			datatypes.Detection{Classification: "NONE", Confidence: 0.5},
		},
		{
			"named but unknown class",
			&mockClient{replies: []string{`{"classification": "ROBOT", "name": "R2D2", "confidence": 0.9}`}},
			datatypes.Detection{Classification: "NONE", Confidence: 0.5},
		},
		{
			"classified but empty name",
			&mockClient{replies: []string{`{"classification": "AGENT", "name": "", "confidence": 0.9}`}},
			datatypes.Detection{Classification: "NONE", Confidence: 0.5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewDetector(tt.client, nil).Detect(context.Background(), "question")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectorExtractBranches(t *testing.T) {
	client := &mockClient{replies: []string{`{"branches": ["Main Branch", " "]}`}}
	got := NewDetector(client, nil).ExtractBranches(context.Background(), "brokers in the main branch")
	assert.Equal(t, []string{"Main Branch"}, got)

	got = NewDetector(&mockClient{err: errors.New("down")}, nil).ExtractBranches(context.Background(), "q")
	assert.Nil(t, got)
}

func TestMatcherNormalization(t *testing.T) {
	candidates := []string{"Ali Hassan", "Ali Hasan", "Aly Hassan"}
	tests := []struct {
		name  string
		reply string
		want  datatypes.MatchResult
	}{
		{
			"exact match canonicalized",
			`{"status": "exact_match", "exact": "ali hassan", "confidence_scores": [0.97]}`,
			datatypes.MatchResult{Status: datatypes.MatchExact, Exact: "Ali Hassan", Matches: []string{"Ali Hassan"}, ConfidenceScores: []float64{0.97}},
		},
		{
			"hallucinated exact rejected",
			`{"status": "exact_match", "exact": "Bob Smith"}`,
			datatypes.MatchResult{Status: datatypes.MatchNone},
		},
		{
			"multiple keeps only real candidates",
			`{"status": "multiple_matches", "matches": ["Ali Hassan", "Ghost Name", "Ali Hasan"], "confidence_scores": [0.9, 0.8, 0.7]}`,
			datatypes.MatchResult{Status: datatypes.MatchMultiple, Matches: []string{"Ali Hassan", "Ali Hasan"}, ConfidenceScores: []float64{0.9, 0.7}},
		},
		{
			"single survivor collapses to exact",
			`{"status": "multiple_matches", "matches": ["Ghost", "Aly Hassan"], "confidence_scores": [0.9, 0.8]}`,
			datatypes.MatchResult{Status: datatypes.MatchExact, Exact: "Aly Hassan", Matches: []string{"Aly Hassan"}, ConfidenceScores: []float64{0.8}},
		},
		{
			"no match passthrough",
			`{"status": "no_match"}`,
			datatypes.MatchResult{Status: datatypes.MatchNone},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMatcher(&mockClient{replies: []string{tt.reply}}, nil)
			got := m.Match(context.Background(), datatypes.EntityCustomer, "Ali", candidates)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatcherBoundsMatches(t *testing.T) {
	var candidates []string
	var reported []string
	for i := 0; i < 15; i++ {
		name := string(rune('A'+i)) + "li Hassan"
		candidates = append(candidates, name)
		reported = append(reported, name)
	}
	reply := `{"status": "multiple_matches", "matches": ["` + joinQuoted(reported) + `"]}`
	m := NewMatcher(&mockClient{replies: []string{reply}}, nil)
	got := m.Match(context.Background(), datatypes.EntityAgent, "Ali", candidates)
	assert.Equal(t, datatypes.MatchMultiple, got.Status)
	assert.Len(t, got.Matches, 10)
}

func joinQuoted(names []string) string {
	out := names[0]
	for _, n := range names[1:] {
		out += `", "` + n
	}
	return out
}

func TestMatcherEmptyCandidates(t *testing.T) {
	m := NewMatcher(&mockClient{replies: []string{`{"status": "exact_match", "exact": "x"}`}}, nil)
	got := m.Match(context.Background(), datatypes.EntityUser, "Ali", nil)
	assert.Equal(t, datatypes.MatchNone, got.Status)
}

func TestClassifyCustomerInput(t *testing.T) {
	tests := []struct {
		input string
		want  InputKind
	}{
		{"28140001175", InputCustomerID},
		{"55512345", InputPhone},
		{"5551234567", InputPhone},
		{"1234567", InputInvalid},
		{"123456789012", InputInvalid},
		{"CR-4471", InputCompanyID},
		{"  28140001175  ", InputCustomerID},
		{"", InputInvalid},
		{"   ", InputInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyCustomerInput(tt.input))
		})
	}
}
