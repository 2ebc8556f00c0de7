// Copyright (C) 2025 The CoreReports Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the value types passed between the planning,
// execution, evaluation, and response stages. Everything here is plain
// data; behavior lives in the stage that produces or consumes it.
package datatypes

import (
	"strings"

	"github.com/yazeedmshayekh2/CoreReports/services/warehouse"
)

// Action is the execution strategy class chosen by the planner.
type Action string

const (
	ActionDirect   Action = "QUERY_DIRECT"
	ActionSequence Action = "QUERY_SEQUENCE"
	ActionCompute  Action = "QUERY_COMPUTE"
	ActionAskUser  Action = "ASK_USER"
)

// ParseAction maps a raw planner string to a known Action. Unknown values
// return ActionDirect with ok=false so the caller can log the coercion
// and still proceed.
func ParseAction(raw string) (Action, bool) {
	switch Action(strings.ToUpper(strings.TrimSpace(raw))) {
	case ActionDirect:
		return ActionDirect, true
	case ActionSequence:
		return ActionSequence, true
	case ActionCompute:
		return ActionCompute, true
	case ActionAskUser:
		return ActionAskUser, true
	default:
		return ActionDirect, false
	}
}

// Strategy is the planner's output: what class of execution to run and
// the ordered natural-language step descriptions to feed the SQL designer.
type Strategy struct {
	Action              Action   `json:"action"`
	Steps               []string `json:"steps"`
	ComputeRequirements string   `json:"compute_requirements,omitempty"`
	Rationale           string   `json:"rationale,omitempty"`
}

// ExecutedQuery records one attempted step for the execution summary.
// Error is empty when the step produced rows.
type ExecutedQuery struct {
	Step     string `json:"step"`
	Query    string `json:"query"`
	RowCount int    `json:"row_count"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

// Row is one tabular result row keyed by column name.
type Row = warehouse.Row

// ExecutionResult is the accumulated outcome of one execution phase.
// Results and IntermediateData share the same backing entries: a step's
// rows are stored under its key in both so later steps can reference
// earlier data and the evaluator sees everything that was fetched.
type ExecutionResult struct {
	ExecutedQueries  []ExecutedQuery  `json:"executed_queries"`
	Results          map[string][]Row `json:"results"`
	IntermediateData map[string][]Row `json:"intermediate_data"`
	Strategy         Strategy         `json:"strategy"`
	Action           Action           `json:"action"`
}

// RowCount sums rows across all stored step results.
func (r *ExecutionResult) RowCount() int {
	n := 0
	for _, rows := range r.Results {
		n += len(rows)
	}
	return n
}

// Empty reports whether no step produced any rows.
func (r *ExecutionResult) Empty() bool {
	return r.RowCount() == 0
}

// HasSuccess reports whether any step completed without an error. A
// query that executed cleanly counts even when it matched zero rows;
// the caller decides what an empty answer means, not the executor.
func (r *ExecutionResult) HasSuccess() bool {
	for _, q := range r.ExecutedQueries {
		if q.Error == "" {
			return true
		}
	}
	// Compute steps record no ExecutedQuery entry; their output lands
	// directly in Results.
	return len(r.Results) > 0
}

// Attempted reports whether the cycle ran any step at all.
func (r *ExecutionResult) Attempted() bool {
	return len(r.ExecutedQueries) > 0 || len(r.Results) > 0
}

// EvaluationStatus is the evaluator's verdict on one cycle's results.
type EvaluationStatus string

const (
	StatusComplete EvaluationStatus = "COMPLETE"
	StatusContinue EvaluationStatus = "CONTINUE"
	StatusAskUser  EvaluationStatus = "ASK_USER"
	StatusError    EvaluationStatus = "ERROR"
	StatusPartial  EvaluationStatus = "PARTIAL"
)

// EvaluationResult carries the verdict plus the evaluator's reasoning.
type EvaluationResult struct {
	Status     EvaluationStatus `json:"status"`
	Confidence float64          `json:"confidence"`
	Rationale  string           `json:"rationale,omitempty"`
	Summary    string           `json:"summary,omitempty"`
}

// Confidence levels attached to outcomes the pipeline synthesizes itself
// rather than reading from the evaluator.
const (
	ConfidenceFastPath = 0.9
	ConfidenceFallback = 0.85
	ConfidencePartial  = 0.7
	ConfidenceError    = 0.3
	ConfidenceFatal    = 0.2
)

// EntityKind classifies what a detected or resolved name refers to.
type EntityKind string

const (
	EntityCustomer EntityKind = "CUSTOMER"
	EntityCompany  EntityKind = "COMPANY"
	EntityAgent    EntityKind = "AGENT"
	EntityUser     EntityKind = "USER"
)

// Detection is the name detector's structured output. Name is empty when
// Classification is NONE.
type Detection struct {
	Classification string  `json:"classification"`
	Name           string  `json:"name"`
	Confidence     float64 `json:"confidence"`
}

// MatchResult is the fuzzy matcher's output for any entity kind.
// Matches and ConfidenceScores are parallel slices; Exact is set only
// when Status is exact_match.
type MatchResult struct {
	Status           string    `json:"status"`
	Matches          []string  `json:"matches"`
	ConfidenceScores []float64 `json:"confidence_scores"`
	Exact            string    `json:"exact,omitempty"`
	Reasoning        string    `json:"reasoning,omitempty"`
}

const (
	MatchExact    = "exact_match"
	MatchMultiple = "multiple_matches"
	MatchNone     = "no_match"
)

// ResolutionKind tags the outcome of name resolution.
type ResolutionKind string

const (
	ResolutionNoName          ResolutionKind = "no_name"
	ResolutionResolved        ResolutionKind = "resolved"
	ResolutionNeedsUserChoice ResolutionKind = "needs_user_choice"
	ResolutionNeedsIdentifier ResolutionKind = "needs_identifier"
	ResolutionCancelled       ResolutionKind = "cancelled"
	ResolutionInvalid         ResolutionKind = "invalid"
)

// Candidate is one option offered to the user when resolution is ambiguous.
type Candidate struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Resolution is the name resolver's outcome. It is a value, not a blocking
// call: when Kind is ResolutionNeedsUserChoice the caller presents
// Candidates, collects a choice, and resumes resolution with it; when Kind
// is ResolutionNeedsIdentifier the caller collects a customer identifier
// instead, with Reason carrying the prompt.
type Resolution struct {
	Kind          ResolutionKind `json:"kind"`
	Entity        EntityKind     `json:"entity,omitempty"`
	Key           string         `json:"key,omitempty"`
	DisplayName   string         `json:"display_name,omitempty"`
	Candidates    []Candidate    `json:"candidates,omitempty"`
	OriginalInput string         `json:"original_input,omitempty"`
	Reason        string         `json:"reason,omitempty"`
}

// ComputeResult is the computational analyst's structured output.
type ComputeResult struct {
	CalculationType        string   `json:"calculation_type"`
	Result                 string   `json:"result"`
	FormulaUsed            string   `json:"formula_used"`
	BusinessInterpretation string   `json:"business_interpretation"`
	DataPointsUsed         []string `json:"data_points_used"`
}

// FinalResponse is what the orchestration loop hands back to the caller.
// Question holds the enhanced form actually planned against, not the raw
// user input.
type FinalResponse struct {
	Status            string  `json:"status"`
	Question          string  `json:"question"`
	Response          string  `json:"response"`
	CyclesUsed        int     `json:"cycles_used"`
	Confidence        float64 `json:"confidence"`
	ExecutionSummary  string  `json:"execution_summary,omitempty"`
	EvaluationSummary string  `json:"evaluation_summary,omitempty"`
}

const (
	ResponseSuccess   = "success"
	ResponsePartial   = "partial"
	ResponseError     = "error"
	ResponseCancelled = "cancelled"
	ResponseAskUser   = "ask_user"
	ResponseInvalid   = "invalid"
)
