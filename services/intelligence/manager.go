// Copyright (C) 2025 The CoreReports Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package intelligence orchestrates the multi-cycle question-answering
// loop: resolve names, plan, execute SQL steps, and either answer,
// replan, or hand control back to the user. The first cleanly executed
// step ends the question; cycles that produce only errors replan until
// the cycle budget runs out. All per-question progress lives in an
// explicit SessionState value threaded through the cycle functions;
// suspending for a user selection is just returning that state to the
// caller.
package intelligence

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yazeedmshayekh2/CoreReports/pkg/logging"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/agents"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/datatypes"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/knowledge"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/memory"
	"github.com/yazeedmshayekh2/CoreReports/services/llm"
	"github.com/yazeedmshayekh2/CoreReports/services/warehouse"
)

var tracer = otel.Tracer("corereports.intelligence")

// Cycle limits. Interactive sessions keep latency tighter.
const (
	DefaultMaxCycles     = 5
	InteractiveMaxCycles = 3
)

// fallbackAnnotation marks replanning cycles so the planner knows the
// previous approach produced nothing useful.
const fallbackAnnotation = "(Previous queries failed, need alternative approach)"

// SessionState carries everything one question has accumulated so far.
// It is plain data: suspending on a pending selection means handing this
// value to the caller and getting it back with Resume.
type SessionState struct {
	Question        string
	Enhanced        string
	Cycle           int
	ExecutedQueries []datatypes.ExecutedQuery
	Accumulated     map[string][]datatypes.Row
	LastExecution   *datatypes.ExecutionResult
	LastEvaluation  datatypes.EvaluationResult
	Pending         *datatypes.Resolution
}

// Outcome is the result of Solve or Resume: either a final response or a
// suspended session waiting on a user selection. Exactly one field is set.
type Outcome struct {
	Response *datatypes.FinalResponse
	Pending  *SessionState
}

// Manager wires the agents, warehouse, and memory into the cycle loop.
type Manager struct {
	planner   *agents.Planner
	evaluator *agents.Evaluator
	responder *agents.Responder
	resolver  *Resolver
	executor  *StepExecutor
	memory    *memory.Store
	logger    *logging.Logger
	maxCycles int
}

// Config carries Manager construction knobs.
type Config struct {
	MaxCycles int
}

// NewManager builds the full pipeline on one LLM client and one warehouse
// executor. Memory may be nil for stateless callers.
func NewManager(client llm.LLMClient, db warehouse.Executor, store *knowledge.Store, mem *memory.Store, logger *logging.Logger, cfg Config) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxCycles <= 0 {
		cfg.MaxCycles = DefaultMaxCycles
	}
	designer := agents.NewSQLDesigner(client, store, logger)
	analyst := agents.NewComputeAnalyst(client, logger)
	detector := agents.NewDetector(client, logger)
	matcher := agents.NewMatcher(client, logger)
	return &Manager{
		planner:   agents.NewPlanner(client, store, logger),
		evaluator: agents.NewEvaluator(client, store, logger),
		responder: agents.NewResponder(client, logger),
		resolver:  NewResolver(detector, matcher, db, logger),
		executor:  NewStepExecutor(designer, analyst, db, logger),
		memory:    mem,
		logger:    logger,
		maxCycles: cfg.MaxCycles,
	}
}

// Resolver exposes the name resolver for direct customer lookups.
func (m *Manager) Resolver() *Resolver { return m.resolver }

// Evaluator exposes the completeness evaluator. The solve loop
// terminates on the first clean execution without consulting it; it
// stays available for callers that want an explicit verdict on an
// execution result.
func (m *Manager) Evaluator() *agents.Evaluator { return m.evaluator }

// Memory exposes the conversation store; nil when the manager is stateless.
func (m *Manager) Memory() *memory.Store { return m.memory }

// Solve answers one question end to end. When name resolution needs a
// user selection the returned Outcome carries the suspended session
// instead of a response; feed the user's choice to Resume.
func (m *Manager) Solve(ctx context.Context, question string) Outcome {
	ctx, span := tracer.Start(ctx, "Manager.Solve")
	defer span.End()

	state := &SessionState{
		Question:    question,
		Accumulated: map[string][]datatypes.Row{},
	}

	resolution := m.resolver.Resolve(ctx, question)
	switch resolution.Kind {
	case datatypes.ResolutionNeedsUserChoice, datatypes.ResolutionNeedsIdentifier:
		state.Pending = &resolution
		return Outcome{Pending: state}
	case datatypes.ResolutionCancelled:
		return Outcome{Response: m.cancelled(state)}
	case datatypes.ResolutionInvalid:
		if resolution.Entity == datatypes.EntityCustomer || resolution.Entity == datatypes.EntityCompany {
			return Outcome{Response: m.invalidResponse(state, resolution)}
		}
		m.logger.Info("name resolution inconclusive, proceeding unenhanced", "reason", resolution.Reason)
	}
	m.applyResolution(state, resolution)
	return m.runCycles(ctx, state)
}

// Resume continues a session suspended on user input. For a pending
// selection the input is a 1-based ordinal or free text; for a pending
// identifier request it is a customer ID, phone number, or company
// registration number. "cancel" or empty aborts. Input that matches
// nothing returns the session still pending, with the resolution Reason
// explaining why.
func (m *Manager) Resume(ctx context.Context, state *SessionState, choice string) Outcome {
	ctx, span := tracer.Start(ctx, "Manager.Resume")
	defer span.End()

	if state == nil || state.Pending == nil {
		return Outcome{Response: &datatypes.FinalResponse{
			Status:     datatypes.ResponseError,
			Response:   "no selection is pending for this session",
			Confidence: datatypes.ConfidenceFatal,
		}}
	}
	var resolution datatypes.Resolution
	if state.Pending.Kind == datatypes.ResolutionNeedsIdentifier {
		resolution = m.resolver.ResumeWithIdentifier(ctx, *state.Pending, choice)
	} else {
		resolution = m.resolver.ResumeWithChoice(*state.Pending, choice)
	}
	switch resolution.Kind {
	case datatypes.ResolutionNeedsUserChoice, datatypes.ResolutionNeedsIdentifier:
		state.Pending = &resolution
		return Outcome{Pending: state}
	case datatypes.ResolutionCancelled:
		return Outcome{Response: m.cancelled(state)}
	case datatypes.ResolutionInvalid:
		state.Pending = nil
		return Outcome{Response: m.invalidResponse(state, resolution)}
	}
	resolution = m.resolver.ResolveCandidate(ctx, resolution)
	state.Pending = nil
	m.applyResolution(state, resolution)
	return m.runCycles(ctx, state)
}

func (m *Manager) applyResolution(state *SessionState, resolution datatypes.Resolution) {
	enhanced := EnhanceQuestion(state.Question, resolution)
	if m.memory != nil {
		if memCtx := m.memory.ContextFor(state.Question); memCtx != "" {
			enhanced = memCtx + enhanced
		}
	}
	state.Enhanced = enhanced
}

func (m *Manager) runCycles(ctx context.Context, state *SessionState) Outcome {
	ctx, span := tracer.Start(ctx, "Manager.runCycles")
	defer span.End()

	for state.Cycle = 1; state.Cycle <= m.maxCycles; state.Cycle++ {
		if err := ctx.Err(); err != nil {
			return Outcome{Response: m.fatal(state, err)}
		}
		response, done := m.runOneCycle(ctx, state)
		if done {
			span.SetAttributes(attribute.Int("cycles_used", state.Cycle))
			return Outcome{Response: response}
		}
	}
	state.Cycle = m.maxCycles
	return Outcome{Response: m.partial(ctx, state)}
}

// runOneCycle executes a single plan/execute/evaluate pass. done=false
// means replan in the next cycle.
func (m *Manager) runOneCycle(ctx context.Context, state *SessionState) (*datatypes.FinalResponse, bool) {
	cycle := state.Cycle
	fallback := cycle > 1

	planQuestion := state.Enhanced
	if fallback {
		planQuestion += " " + fallbackAnnotation
	}
	execContext := agents.BuildExecutionContext(cycle, state.ExecutedQueries, state.Accumulated)
	strategy := m.planner.Plan(ctx, planQuestion, execContext)
	m.logger.Info("cycle planned", "cycle", cycle, "action", string(strategy.Action), "steps", len(strategy.Steps))

	if strategy.Action == datatypes.ActionAskUser {
		return m.askUser(state, strategy), true
	}

	result := m.executor.Execute(ctx, planQuestion, strategy)
	state.LastExecution = result
	state.ExecutedQueries = append(state.ExecutedQueries, result.ExecutedQueries...)
	for k, rows := range result.Results {
		state.Accumulated[k] = rows
	}

	// Any step that executed without an error ends the question here,
	// zero rows included. The evaluator is deliberately bypassed: the
	// system is tuned to terminate on the first clean result.
	if result.HasSuccess() {
		confidence := datatypes.ConfidenceFastPath
		summary := "Query executed successfully"
		if fallback {
			confidence = datatypes.ConfidenceFallback
			summary = "Alternative approach succeeded"
		}
		state.LastEvaluation = datatypes.EvaluationResult{
			Status:     datatypes.StatusComplete,
			Confidence: confidence,
			Summary:    summary,
		}
		return m.success(ctx, state, fallback), true
	}

	if !result.Attempted() {
		return m.errorResponse(state, "the plan produced no executable steps"), true
	}

	m.logger.Warn("no step succeeded this cycle, replanning", "cycle", cycle)
	return nil, false
}

func (m *Manager) success(ctx context.Context, state *SessionState, fallback bool) *datatypes.FinalResponse {
	confidence := state.LastEvaluation.Confidence
	if fallback {
		confidence = datatypes.ConfidenceFallback
	}
	answer := m.responder.Respond(ctx, state.Enhanced, state.LastExecution, state.LastEvaluation)
	resp := &datatypes.FinalResponse{
		Status:            datatypes.ResponseSuccess,
		Question:          state.Enhanced,
		Response:          answer,
		CyclesUsed:        state.Cycle,
		Confidence:        confidence,
		ExecutionSummary:  m.executionSummary(state),
		EvaluationSummary: state.LastEvaluation.Summary,
	}
	m.remember(state, resp)
	return resp
}

// partial answers from whatever the cycles actually accumulated rather
// than apologizing with empty hands.
func (m *Manager) partial(ctx context.Context, state *SessionState) *datatypes.FinalResponse {
	accumulated := &datatypes.ExecutionResult{Results: state.Accumulated}
	evaluation := state.LastEvaluation
	if evaluation.Summary == "" {
		evaluation.Summary = "Cycle limit reached without a fully successful query"
	}
	answer := m.responder.Respond(ctx, state.Enhanced, accumulated, evaluation)
	resp := &datatypes.FinalResponse{
		Status:            datatypes.ResponsePartial,
		Question:          state.Enhanced,
		Response:          answer,
		CyclesUsed:        state.Cycle,
		Confidence:        datatypes.ConfidencePartial,
		ExecutionSummary:  m.executionSummary(state),
		EvaluationSummary: evaluation.Summary,
	}
	m.remember(state, resp)
	return resp
}

func (m *Manager) askUser(state *SessionState, strategy datatypes.Strategy) *datatypes.FinalResponse {
	message := strategy.Rationale
	if message == "" {
		message = "The question is ambiguous. Please rephrase it with more specifics."
	}
	resp := &datatypes.FinalResponse{
		Status:           datatypes.ResponseAskUser,
		Question:         state.Enhanced,
		Response:         message,
		CyclesUsed:       state.Cycle,
		Confidence:       state.LastEvaluation.Confidence,
		ExecutionSummary: m.executionSummary(state),
	}
	m.remember(state, resp)
	return resp
}

// invalidResponse ends a question whose customer identity could not be
// established; running queries for an unknown customer would only return
// misleading rows.
func (m *Manager) invalidResponse(state *SessionState, resolution datatypes.Resolution) *datatypes.FinalResponse {
	reason := resolution.Reason
	if reason == "" {
		reason = fmt.Sprintf("no customer found for '%s'", resolution.OriginalInput)
	}
	resp := &datatypes.FinalResponse{
		Status:     datatypes.ResponseInvalid,
		Question:   state.Question,
		Response:   fmt.Sprintf("I could not identify the customer: %s", reason),
		CyclesUsed: state.Cycle,
		Confidence: datatypes.ConfidenceError,
	}
	m.remember(state, resp)
	return resp
}

func (m *Manager) errorResponse(state *SessionState, reason string) *datatypes.FinalResponse {
	resp := &datatypes.FinalResponse{
		Status:           datatypes.ResponseError,
		Question:         state.Enhanced,
		Response:         fmt.Sprintf("I could not retrieve the data needed to answer: %s", reason),
		CyclesUsed:       state.Cycle,
		Confidence:       datatypes.ConfidenceError,
		ExecutionSummary: m.executionSummary(state),
	}
	m.remember(state, resp)
	return resp
}

func (m *Manager) fatal(state *SessionState, err error) *datatypes.FinalResponse {
	m.logger.Error("question processing aborted", "error", err)
	return &datatypes.FinalResponse{
		Status:     datatypes.ResponseError,
		Question:   state.Enhanced,
		Response:   fmt.Sprintf("Processing failed: %v", err),
		CyclesUsed: state.Cycle,
		Confidence: datatypes.ConfidenceFatal,
	}
}

func (m *Manager) cancelled(state *SessionState) *datatypes.FinalResponse {
	return &datatypes.FinalResponse{
		Status:     datatypes.ResponseCancelled,
		Question:   state.Question,
		Response:   "Selection cancelled.",
		CyclesUsed: state.Cycle,
	}
}

func (m *Manager) executionSummary(state *SessionState) string {
	return fmt.Sprintf("%d queries executed across %d cycles", len(state.ExecutedQueries), state.Cycle)
}

func (m *Manager) remember(state *SessionState, resp *datatypes.FinalResponse) {
	if m.memory == nil {
		return
	}
	queryType := ""
	if state.LastExecution != nil {
		queryType = string(state.LastExecution.Action)
	}
	metadata := map[string]any{
		"confidence":       resp.Confidence,
		"cycles_used":      resp.CyclesUsed,
		"status":           resp.Status,
		"query_type":       queryType,
		"queries_executed": len(state.ExecutedQueries),
	}
	if err := m.memory.Add(state.Question, resp.Response, metadata); err != nil {
		m.logger.Warn("failed to persist conversation memory", "error", err)
	}
}
