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

	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/agents"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/datatypes"
	"github.com/yazeedmshayekh2/CoreReports/services/warehouse"
)

func newResolver(t *testing.T, client *mockLLM, db *fakeDB) *Resolver {
	t.Helper()
	logger := quietLogger(t)
	return NewResolver(agents.NewDetector(client, logger), agents.NewMatcher(client, logger), db, logger)
}

func TestLookupCustomerByID(t *testing.T) {
	db := &fakeDB{script: []dbResult{
		{rows: []warehouse.Row{{"DOC_CUST_NAME": "Ali Hassan", "CUST_ID_NO": "28140001175", "COMP_EID_NO": nil}}},
	}}
	r := newResolver(t, &mockLLM{replies: []string{"{}"}}, db)

	res := r.LookupCustomer(context.Background(), "28140001175")
	assert.Equal(t, datatypes.ResolutionResolved, res.Kind)
	assert.Equal(t, datatypes.EntityCustomer, res.Entity)
	assert.Equal(t, "28140001175", res.Key)
	assert.Equal(t, "Ali Hassan", res.DisplayName)

	require.Len(t, db.queries, 1)
	assert.Equal(t,
		"SELECT DISTINCT DOC_CUST_NAME, CUST_ID_NO, COMP_EID_NO FROM insmv.AIMS_ALL_DATA WHERE CUST_ID_NO = '28140001175'",
		db.queries[0])
}

func TestLookupCustomerByPhone(t *testing.T) {
	db := &fakeDB{script: []dbResult{
		{rows: []warehouse.Row{{"DOC_CUST_NAME": "Sara Ahmed", "CUST_ID_NO": "28140002200", "COMP_EID_NO": nil}}},
	}}
	r := newResolver(t, &mockLLM{replies: []string{"{}"}}, db)

	res := r.LookupCustomer(context.Background(), "55512345")
	assert.Equal(t, datatypes.ResolutionResolved, res.Kind)
	require.Len(t, db.queries, 1)
	assert.Equal(t,
		"SELECT DISTINCT DOC_CUST_NAME, CUST_ID_NO, COMP_EID_NO FROM insmv.AIMS_ALL_DATA WHERE (CUST_PHONE_NO LIKE '%55512345%' OR CUST_MOBILE_NO LIKE '%55512345%')",
		db.queries[0])
}

func TestLookupCustomerByCompanyID(t *testing.T) {
	db := &fakeDB{script: []dbResult{
		{rows: []warehouse.Row{{"DOC_CUST_NAME": "Qatar Widgets WLL", "CUST_ID_NO": nil, "COMP_EID_NO": "CR-4471"}}},
	}}
	r := newResolver(t, &mockLLM{replies: []string{"{}"}}, db)

	res := r.LookupCustomer(context.Background(), "CR-4471")
	assert.Equal(t, datatypes.ResolutionResolved, res.Kind)
	assert.Equal(t, datatypes.EntityCompany, res.Entity)
	assert.Equal(t, "CR-4471", res.Key)
	assert.Contains(t, db.queries[0], "WHERE COMP_EID_NO = 'CR-4471'")
}

func TestLookupCustomerOutcomes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		db    *fakeDB
		want  datatypes.ResolutionKind
	}{
		{
			"not found",
			"28140001175",
			&fakeDB{script: []dbResult{{rows: nil}}},
			datatypes.ResolutionInvalid,
		},
		{
			"multiple phone matches need a choice",
			"55512345",
			&fakeDB{script: []dbResult{{rows: []warehouse.Row{
				{"DOC_CUST_NAME": "Ali Hassan", "CUST_ID_NO": "1", "COMP_EID_NO": nil},
				{"DOC_CUST_NAME": "Sara Ahmed", "CUST_ID_NO": "2", "COMP_EID_NO": nil},
			}}}},
			datatypes.ResolutionNeedsUserChoice,
		},
		{
			"invalid format",
			"123",
			&fakeDB{},
			datatypes.ResolutionInvalid,
		},
		{
			"database failure",
			"28140001175",
			&fakeDB{script: []dbResult{{err: &warehouse.ExecutionError{Query: "q", Message: "connection lost"}}}},
			datatypes.ResolutionInvalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResolver(t, &mockLLM{replies: []string{"{}"}}, tt.db)
			res := r.LookupCustomer(context.Background(), tt.input)
			assert.Equal(t, tt.want, res.Kind)
		})
	}
}

func TestResolveAgentName(t *testing.T) {
	client := &mockLLM{replies: []string{
		`{"classification": "AGENT", "name": "Khalid", "confidence": 0.9}`,
		`{"branches": ["Main Branch"]}`,
		`{"status": "exact_match", "exact": "Khalid Al-Thani", "confidence_scores": [0.95]}`,
	}}
	db := &fakeDB{script: []dbResult{
		{rows: []warehouse.Row{
			{"DOC_AGENT_NAME": "Khalid Al-Thani"},
			{"DOC_AGENT_NAME": "Khalid Mansour"},
		}},
	}}
	r := newResolver(t, client, db)

	res := r.Resolve(context.Background(), "policies sold by broker Khalid in the main branch")
	assert.Equal(t, datatypes.ResolutionResolved, res.Kind)
	assert.Equal(t, datatypes.EntityAgent, res.Entity)
	assert.Equal(t, "Khalid Al-Thani", res.Key)

	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], "SELECT DISTINCT DOC_AGENT_NAME FROM insmv.AIMS_ALL_DATA WHERE DOC_AGENT_NAME IS NOT NULL")
	assert.Contains(t, db.queries[0], "UPPER(DOC_BRANCH_NAME) LIKE UPPER('%Main Branch%')")
}

func TestResolveUserNameNoMatch(t *testing.T) {
	client := &mockLLM{replies: []string{
		`{"classification": "USER", "name": "Zorro", "confidence": 0.8}`,
		`{"branches": []}`,
		`{"status": "no_match"}`,
	}}
	db := &fakeDB{script: []dbResult{
		{rows: []warehouse.Row{{"DOC_USER_NAME": "Fatima Noor"}}},
	}}
	r := newResolver(t, client, db)

	res := r.Resolve(context.Background(), "documents registered by user Zorro")
	assert.Equal(t, datatypes.ResolutionInvalid, res.Kind)
	assert.Contains(t, res.Reason, "Zorro")
}

func TestResolveUnknownCustomerNameAsksForIdentifier(t *testing.T) {
	client := &mockLLM{replies: []string{
		`{"classification": "CUSTOMER", "name": "Mariam Saleh", "confidence": 0.9}`,
	}}
	db := &fakeDB{script: []dbResult{{rows: nil}}}
	r := newResolver(t, client, db)

	res := r.Resolve(context.Background(), "policies for Mariam Saleh")
	assert.Equal(t, datatypes.ResolutionNeedsIdentifier, res.Kind)
	assert.Equal(t, datatypes.EntityCustomer, res.Entity)
	assert.Equal(t, "Mariam Saleh", res.OriginalInput)
	assert.Contains(t, res.Reason, "Mariam Saleh")
	assert.Contains(t, res.Reason, "11-digit")
}

func TestResolveCustomerIDInQuestionSkipsNameSearch(t *testing.T) {
	client := &mockLLM{replies: []string{
		`{"classification": "CUSTOMER", "name": "28140001175", "confidence": 0.95}`,
	}}
	db := &fakeDB{script: []dbResult{
		{rows: []warehouse.Row{{"DOC_CUST_NAME": "Ali Hassan", "CUST_ID_NO": "28140001175", "COMP_EID_NO": nil}}},
	}}
	r := newResolver(t, client, db)

	res := r.Resolve(context.Background(), "policies for customer 28140001175")
	assert.Equal(t, datatypes.ResolutionResolved, res.Kind)
	assert.Equal(t, "28140001175", res.Key)
	assert.Equal(t, "Ali Hassan", res.DisplayName)

	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], "WHERE CUST_ID_NO = '28140001175'")
}

func TestResumeWithIdentifier(t *testing.T) {
	pending := datatypes.Resolution{
		Kind:          datatypes.ResolutionNeedsIdentifier,
		Entity:        datatypes.EntityCustomer,
		OriginalInput: "Mariam Saleh",
	}

	t.Run("valid ID resolves", func(t *testing.T) {
		db := &fakeDB{script: []dbResult{
			{rows: []warehouse.Row{{"DOC_CUST_NAME": "Mariam Saleh", "CUST_ID_NO": "28140003300", "COMP_EID_NO": nil}}},
		}}
		r := newResolver(t, &mockLLM{replies: []string{"{}"}}, db)
		res := r.ResumeWithIdentifier(context.Background(), pending, "28140003300")
		assert.Equal(t, datatypes.ResolutionResolved, res.Kind)
		assert.Equal(t, "28140003300", res.Key)
	})

	t.Run("unknown ID is invalid", func(t *testing.T) {
		db := &fakeDB{script: []dbResult{{rows: nil}}}
		r := newResolver(t, &mockLLM{replies: []string{"{}"}}, db)
		res := r.ResumeWithIdentifier(context.Background(), pending, "28140009999")
		assert.Equal(t, datatypes.ResolutionInvalid, res.Kind)
		assert.Contains(t, res.Reason, "28140009999")
	})

	t.Run("malformed input stays pending", func(t *testing.T) {
		r := newResolver(t, &mockLLM{replies: []string{"{}"}}, &fakeDB{})
		res := r.ResumeWithIdentifier(context.Background(), pending, "123")
		assert.Equal(t, datatypes.ResolutionNeedsIdentifier, res.Kind)
		assert.Contains(t, res.Reason, "'123'")
	})

	t.Run("cancel aborts", func(t *testing.T) {
		r := newResolver(t, &mockLLM{replies: []string{"{}"}}, &fakeDB{})
		res := r.ResumeWithIdentifier(context.Background(), pending, "cancel")
		assert.Equal(t, datatypes.ResolutionCancelled, res.Kind)
	})

	t.Run("empty aborts", func(t *testing.T) {
		r := newResolver(t, &mockLLM{replies: []string{"{}"}}, &fakeDB{})
		res := r.ResumeWithIdentifier(context.Background(), pending, "  ")
		assert.Equal(t, datatypes.ResolutionCancelled, res.Kind)
	})
}

func TestResumeWithChoice(t *testing.T) {
	pending := datatypes.Resolution{
		Kind:          datatypes.ResolutionNeedsUserChoice,
		Entity:        datatypes.EntityAgent,
		OriginalInput: "Khalid",
		Candidates: []datatypes.Candidate{
			{Name: "Khalid Al-Thani", Confidence: 0.9},
			{Name: "Khalid Mansour", Confidence: 0.8},
		},
	}
	r := newResolver(t, &mockLLM{replies: []string{"{}"}}, &fakeDB{})

	tests := []struct {
		name   string
		choice string
		kind   datatypes.ResolutionKind
		key    string
	}{
		{"ordinal", "2", datatypes.ResolutionResolved, "Khalid Mansour"},
		{"exact text", "khalid al-thani", datatypes.ResolutionResolved, "Khalid Al-Thani"},
		{"partial text", "mansour", datatypes.ResolutionResolved, "Khalid Mansour"},
		{"out of range ordinal", "7", datatypes.ResolutionNeedsUserChoice, ""},
		{"unmatchable text", "Bob", datatypes.ResolutionNeedsUserChoice, ""},
		{"cancel", "cancel", datatypes.ResolutionCancelled, ""},
		{"empty", "", datatypes.ResolutionCancelled, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.ResumeWithChoice(pending, tt.choice)
			assert.Equal(t, tt.kind, res.Kind)
			if tt.key != "" {
				assert.Equal(t, tt.key, res.Key)
			}
		})
	}
}

func TestEnhanceQuestionFormats(t *testing.T) {
	q := "show the policies"
	tests := []struct {
		name string
		res  datatypes.Resolution
		want string
	}{
		{
			"customer id",
			datatypes.Resolution{Kind: datatypes.ResolutionResolved, Entity: datatypes.EntityCustomer, Key: "28140001175"},
			"show the policies (Focus on customer with CUST_ID_NO = '28140001175')",
		},
		{
			"company id",
			datatypes.Resolution{Kind: datatypes.ResolutionResolved, Entity: datatypes.EntityCompany, Key: "CR-4471"},
			"show the policies (Focus on company customer with COMP_EID_NO = 'CR-4471')",
		},
		{
			"agent",
			datatypes.Resolution{Kind: datatypes.ResolutionResolved, Entity: datatypes.EntityAgent, Key: "Khalid Al-Thani"},
			"show the policies (Focus on policies/transactions involving agent DOC_AGENT_NAME = 'Khalid Al-Thani')",
		},
		{
			"system user",
			datatypes.Resolution{Kind: datatypes.ResolutionResolved, Entity: datatypes.EntityUser, Key: "Fatima Noor"},
			"show the policies (Focus on policies/transactions involving system user DOC_USER_NAME = 'Fatima Noor')",
		},
		{
			"no name leaves question alone",
			datatypes.Resolution{Kind: datatypes.ResolutionNoName},
			"show the policies",
		},
		{
			"invalid leaves question alone",
			datatypes.Resolution{Kind: datatypes.ResolutionInvalid, Reason: "nope"},
			"show the policies",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EnhanceQuestion(q, tt.res))
		})
	}
}

func TestSQLEscape(t *testing.T) {
	db := &fakeDB{script: []dbResult{{rows: nil}}}
	r := newResolver(t, &mockLLM{replies: []string{"{}"}}, db)

	r.LookupCustomer(context.Background(), "O'Brien Trading")
	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], "COMP_EID_NO = 'O''Brien Trading'")
}
