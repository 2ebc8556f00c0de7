// Copyright (C) 2025 The CoreReports Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package intelligence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yazeedmshayekh2/CoreReports/pkg/logging"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/agents"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/datatypes"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/knowledge"
	"github.com/yazeedmshayekh2/CoreReports/services/llm"
	"github.com/yazeedmshayekh2/CoreReports/services/warehouse"
)

// mockLLM replays completions in call order across all agents sharing it.
type mockLLM struct {
	replies []string
	calls   int
	prompts []string
}

func (m *mockLLM) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	m.prompts = append(m.prompts, prompt)
	i := m.calls
	m.calls++
	if i >= len(m.replies) {
		i = len(m.replies) - 1
	}
	return m.replies[i], nil
}

// dbResult is one scripted warehouse response.
type dbResult struct {
	rows []warehouse.Row
	err  error
}

// fakeDB pops scripted responses in order and records every statement.
type fakeDB struct {
	script  []dbResult
	queries []string
}

func (f *fakeDB) Execute(_ context.Context, query string) ([]warehouse.Row, error) {
	f.queries = append(f.queries, query)
	if len(f.script) == 0 {
		return nil, nil
	}
	r := f.script[0]
	f.script = f.script[1:]
	return r.rows, r.err
}

func quietLogger(t *testing.T) *logging.Logger {
	t.Helper()
	return logging.New(logging.Config{Level: logging.LevelError, Quiet: true})
}

func testStore(t *testing.T) *knowledge.Store {
	t.Helper()
	store, err := knowledge.NewStore("", nil)
	require.NoError(t, err)
	return store
}

func newExecutor(t *testing.T, client llm.LLMClient, db warehouse.Executor) *StepExecutor {
	t.Helper()
	logger := quietLogger(t)
	store := testStore(t)
	return NewStepExecutor(
		agents.NewSQLDesigner(client, store, logger),
		agents.NewComputeAnalyst(client, logger),
		db, logger)
}

func TestExecuteDirectStep(t *testing.T) {
	client := &mockLLM{replies: []string{"SELECT COUNT(*) AS N FROM insmv.AIMS_ALL_DATA"}}
	db := &fakeDB{script: []dbResult{{rows: []warehouse.Row{{"N": int64(42)}}}}}
	exec := newExecutor(t, client, db)

	strategy := datatypes.Strategy{Action: datatypes.ActionDirect, Steps: []string{"count all documents"}}
	result := exec.Execute(context.Background(), "how many documents", strategy)

	require.Len(t, result.ExecutedQueries, 1)
	assert.Equal(t, "step_1", result.ExecutedQueries[0].Step)
	assert.Equal(t, 1, result.ExecutedQueries[0].Attempts)
	assert.Equal(t, 1, result.ExecutedQueries[0].RowCount)
	assert.Empty(t, result.ExecutedQueries[0].Error)
	assert.Equal(t, result.Results["step_1"], result.IntermediateData["step_1"])
	assert.False(t, result.Empty())
}

func TestExecuteRetriesWithErrorContext(t *testing.T) {
	client := &mockLLM{replies: []string{
		"SELECT BAD FROM insmv.AIMS_ALL_DATA LIMIT 5",
		"SELECT * FROM (SELECT DOC_CUST_NAME FROM insmv.AIMS_ALL_DATA ORDER BY DOC_PREMIUM DESC) WHERE ROWNUM <= 5",
	}}
	db := &fakeDB{script: []dbResult{
		{err: &warehouse.ExecutionError{Query: "q1", Message: "ORA-00933: SQL command not properly ended"}},
		{rows: []warehouse.Row{{"DOC_CUST_NAME": "Ali Hassan"}}},
	}}
	exec := newExecutor(t, client, db)

	strategy := datatypes.Strategy{Action: datatypes.ActionDirect, Steps: []string{"top 5 customers"}}
	result := exec.Execute(context.Background(), "top 5 customers by premium", strategy)

	require.Len(t, result.ExecutedQueries, 1)
	assert.Equal(t, 2, result.ExecutedQueries[0].Attempts)
	assert.Empty(t, result.ExecutedQueries[0].Error)
	require.Len(t, client.prompts, 2)
	assert.Contains(t, client.prompts[1], "PREVIOUS ATTEMPT FAILED")
	assert.Contains(t, client.prompts[1], "ORA-00933")
}

func TestExecuteFailedStepDoesNotBlockLaterSteps(t *testing.T) {
	client := &mockLLM{replies: []string{
		"SELECT A FROM B", "SELECT A FROM B", "SELECT A FROM B",
		"SELECT DOC_CUST_NAME FROM insmv.AIMS_ALL_DATA",
	}}
	boom := &warehouse.ExecutionError{Query: "x", Message: "table or view does not exist"}
	db := &fakeDB{script: []dbResult{
		{err: boom}, {err: boom}, {err: boom},
		{rows: []warehouse.Row{{"DOC_CUST_NAME": "Sara Ahmed"}}},
	}}
	exec := newExecutor(t, client, db)

	strategy := datatypes.Strategy{Action: datatypes.ActionSequence, Steps: []string{"fetch claims", "fetch customers"}}
	result := exec.Execute(context.Background(), "claims and customers", strategy)

	require.Len(t, result.ExecutedQueries, 2)
	assert.Equal(t, maxQueryAttempts, result.ExecutedQueries[0].Attempts)
	assert.Contains(t, result.ExecutedQueries[0].Error, "does not exist")
	assert.NotContains(t, result.Results, "step_1")
	assert.Len(t, result.Results["step_2"], 1)
}

func TestExecuteComputeFlow(t *testing.T) {
	client := &mockLLM{replies: []string{
		"SELECT SUM(DOC_PREMIUM) AS TOTAL FROM insmv.AIMS_ALL_DATA",
		`{"calculation_type": "loss_ratio", "result": "64.2%", "formula_used": "claims/premium", "business_interpretation": "within appetite", "data_points_used": ["step_1"]}`,
	}}
	db := &fakeDB{script: []dbResult{{rows: []warehouse.Row{{"TOTAL": 120000.0}}}}}
	exec := newExecutor(t, client, db)

	strategy := datatypes.Strategy{
		Action:              datatypes.ActionCompute,
		Steps:               []string{"fetch premium totals", "Compute the loss ratio"},
		ComputeRequirements: "loss ratio formula",
	}
	result := exec.Execute(context.Background(), "what is the loss ratio", strategy)

	require.Contains(t, result.Results, "step_1")
	require.Contains(t, result.Results, "computation_1")
	comp := result.Results["computation_1"][0]
	assert.Equal(t, "loss_ratio", comp["calculation_type"])
	assert.Equal(t, "64.2%", comp["result"])
	// The compute prompt sees the data fetched by earlier steps.
	assert.Contains(t, client.prompts[1], "AVAILABLE DATA SOURCES:")
	assert.Contains(t, client.prompts[1], "STEP_1")
}

func TestExecuteSkipsComputeStepsOutsideComputeStrategy(t *testing.T) {
	client := &mockLLM{replies: []string{"SELECT 1 FROM DUAL"}}
	db := &fakeDB{script: []dbResult{{rows: []warehouse.Row{{"X": 1}}}}}
	exec := newExecutor(t, client, db)

	strategy := datatypes.Strategy{
		Action: datatypes.ActionDirect,
		Steps:  []string{"fetch totals", "Calculate the growth rate"},
	}
	result := exec.Execute(context.Background(), "totals", strategy)

	assert.Contains(t, result.Results, "step_1")
	assert.NotContains(t, result.Results, "computation_1")
	assert.Len(t, client.prompts, 1)
}

func TestExecutionResultClassification(t *testing.T) {
	// A clean query with zero rows is a success; only errors and empty
	// plans are not.
	clean := &datatypes.ExecutionResult{ExecutedQueries: []datatypes.ExecutedQuery{{Step: "step_1", RowCount: 0}}}
	assert.True(t, clean.HasSuccess())
	assert.True(t, clean.Attempted())

	failed := &datatypes.ExecutionResult{ExecutedQueries: []datatypes.ExecutedQuery{{Step: "step_1", Error: "ORA-00942: table or view does not exist"}}}
	assert.False(t, failed.HasSuccess())
	assert.True(t, failed.Attempted())

	computed := &datatypes.ExecutionResult{Results: map[string][]datatypes.Row{"computation_1": {{"result": "5.2%"}}}}
	assert.True(t, computed.HasSuccess())
	assert.True(t, computed.Attempted())

	nothing := &datatypes.ExecutionResult{}
	assert.False(t, nothing.HasSuccess())
	assert.False(t, nothing.Attempted())
}

func TestIsComputeStep(t *testing.T) {
	tests := []struct {
		step string
		want bool
	}{
		{"Compute the loss ratio", true},
		{"calculate growth by year", true},
		{"  COMPUTE averages", true},
		{"fetch premium totals", false},
		{"recompute nothing", false},
	}
	for _, tt := range tests {
		t.Run(tt.step, func(t *testing.T) {
			assert.Equal(t, tt.want, isComputeStep(tt.step))
		})
	}
}
