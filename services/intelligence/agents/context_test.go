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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/datatypes"
)

func TestCleanQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"sql fence",
			"```sql\nSELECT *\nFROM insmv.AIMS_ALL_DATA;\n```",
			"SELECT * FROM insmv.AIMS_ALL_DATA",
		},
		{
			"plain fence",
			"```\nSELECT 1 FROM DUAL\n```",
			"SELECT 1 FROM DUAL",
		},
		{
			"bare statement with whitespace",
			"  SELECT   COUNT(*)\n  FROM insmv.AIMS_ALL_DATA  ;  ",
			"SELECT COUNT(*) FROM insmv.AIMS_ALL_DATA",
		},
		{
			"fence with trailing prose outside",
			"Here you go:\n```sql\nSELECT A FROM B\n```\nLet me know!",
			"SELECT A FROM B",
		},
		{
			"unclosed fence",
			"```sql\nSELECT A FROM B",
			"SELECT A FROM B",
		},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanQuery(tt.in))
		})
	}
}

func TestBuildExecutionContext(t *testing.T) {
	assert.Equal(t, "First cycle - no previous context", BuildExecutionContext(1, nil, nil))

	executed := []datatypes.ExecutedQuery{{Step: "step_1", Query: "SELECT 1"}}
	accumulated := map[string][]datatypes.Row{"step_1": {{"X": 1}}}
	ctx := BuildExecutionContext(3, executed, accumulated)
	assert.Contains(t, ctx, "Previous cycles: 2")
	assert.Contains(t, ctx, "Previous queries executed: 1")
	assert.Contains(t, ctx, "step_1")
}

func TestBuildPreviousResultsContext(t *testing.T) {
	assert.Empty(t, BuildPreviousResultsContext(nil))

	intermediate := map[string][]datatypes.Row{
		"step_1": {{"DOC_CUST_NAME": "Ali Hassan", "CUST_ID_NO": "28140001175"}},
		"step_2": {},
	}
	ctx := BuildPreviousResultsContext(intermediate)
	assert.Contains(t, ctx, "PREVIOUS STEP RESULTS:")
	assert.Contains(t, ctx, "- step_1: 1 rows, columns: [CUST_ID_NO DOC_CUST_NAME]")
	assert.Contains(t, ctx, "- step_2: 0 rows")
}

func TestFormatResultsSummary(t *testing.T) {
	result := &datatypes.ExecutionResult{
		Results: map[string][]datatypes.Row{
			"step_1": {
				{"POLICY_COUNT": 30},
				{"POLICY_COUNT": 12},
			},
		},
	}
	sum := FormatResultsSummary(result)
	assert.Contains(t, sum, "QUERY RESULTS SUMMARY:")
	assert.Contains(t, sum, "STEP_1 (2 rows):")
	assert.Contains(t, sum, "Row 1: {POLICY_COUNT: 30}")
	assert.Contains(t, sum, "Row 2: {POLICY_COUNT: 12}")
}

func TestFormatDataSourcesSummary(t *testing.T) {
	intermediate := map[string][]datatypes.Row{
		"step_1": {{"TOTAL_PREMIUM": 1500.5, "DOC_CUST_NAME": "Ali"}},
		"step_2": {},
	}
	descriptions := map[string]string{"step_1": "premium totals per customer"}
	sum := FormatDataSourcesSummary(intermediate, descriptions)
	assert.Contains(t, sum, "AVAILABLE DATA SOURCES:")
	assert.Contains(t, sum, "STEP_1 (1 rows):")
	assert.Contains(t, sum, "Description: premium totals per customer")
	assert.Contains(t, sum, "Sample numeric values: {TOTAL_PREMIUM: 1500.5}")
	assert.NotContains(t, sum, "STEP_2")
}
