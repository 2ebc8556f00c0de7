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
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/yazeedmshayekh2/CoreReports/pkg/logging"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/agents"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/datatypes"
	"github.com/yazeedmshayekh2/CoreReports/services/warehouse"
)

// Enhanced-question annotations appended after resolution. The planner
// and SQL designer key off these to scope every query to the resolved
// entity.
const (
	focusCustomerID   = "(Focus on customer with CUST_ID_NO = '%s')"
	focusCompanyID    = "(Focus on company customer with COMP_EID_NO = '%s')"
	focusCustomerName = "(Focus on customer named '%s' - search by DOC_CUST_NAME)"
	focusAgentName    = "(Focus on policies/transactions involving agent DOC_AGENT_NAME = '%s')"
	focusUserName     = "(Focus on policies/transactions involving system user DOC_USER_NAME = '%s')"
)

// identifierPrompt asks the user for something the warehouse can match
// exactly when a customer name alone cannot be resolved.
const identifierPrompt = "please provide the customer's 11-digit ID, an 8-11 digit phone number, or a company registration number"

// customerIDPattern spots an 11-digit national ID quoted directly in
// the question, which resolves without any prompting.
var customerIDPattern = regexp.MustCompile(`\b\d{11}\b`)

// Resolver turns a name mentioned in a question into a concrete database
// identity before planning starts. Ambiguity surfaces as a
// NeedsUserChoice value; the caller collects a selection and calls
// ResumeWithChoice, so resolution never blocks on input.
type Resolver struct {
	detector *agents.Detector
	matcher  *agents.Matcher
	db       warehouse.Executor
	logger   *logging.Logger
}

func NewResolver(detector *agents.Detector, matcher *agents.Matcher, db warehouse.Executor, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{detector: detector, matcher: matcher, db: db, logger: logger}
}

// Resolve detects and resolves at most one name in the question.
// Database or matching failures degrade to ResolutionInvalid so the
// pipeline proceeds with the unenhanced question.
func (r *Resolver) Resolve(ctx context.Context, question string) datatypes.Resolution {
	detection := r.detector.Detect(ctx, question)
	switch detection.Classification {
	case "CUSTOMER":
		// An 11-digit ID in the question resolves directly, no search.
		if id := customerIDPattern.FindString(question); id != "" {
			return r.LookupCustomer(ctx, id)
		}
		return r.resolveCustomerName(ctx, detection.Name)
	case "AGENT":
		branches := r.detector.ExtractBranches(ctx, question)
		return r.resolveListedName(ctx, datatypes.EntityAgent, detection.Name, branches)
	case "USER":
		branches := r.detector.ExtractBranches(ctx, question)
		return r.resolveListedName(ctx, datatypes.EntityUser, detection.Name, branches)
	default:
		return datatypes.Resolution{Kind: datatypes.ResolutionNoName}
	}
}

// LookupCustomer resolves a directly supplied customer identifier: a
// national ID, a phone number, or a company registration number.
func (r *Resolver) LookupCustomer(ctx context.Context, input string) datatypes.Resolution {
	input = strings.TrimSpace(input)
	var query string
	switch agents.ClassifyCustomerInput(input) {
	case agents.InputCustomerID:
		query = fmt.Sprintf("SELECT DISTINCT DOC_CUST_NAME, CUST_ID_NO, COMP_EID_NO FROM insmv.AIMS_ALL_DATA WHERE CUST_ID_NO = '%s'", sqlEscape(input))
	case agents.InputPhone:
		query = fmt.Sprintf("SELECT DISTINCT DOC_CUST_NAME, CUST_ID_NO, COMP_EID_NO FROM insmv.AIMS_ALL_DATA WHERE (CUST_PHONE_NO LIKE '%%%s%%' OR CUST_MOBILE_NO LIKE '%%%s%%')", sqlEscape(input), sqlEscape(input))
	case agents.InputCompanyID:
		query = fmt.Sprintf("SELECT DISTINCT DOC_CUST_NAME, CUST_ID_NO, COMP_EID_NO FROM insmv.AIMS_ALL_DATA WHERE COMP_EID_NO = '%s'", sqlEscape(input))
	default:
		return datatypes.Resolution{Kind: datatypes.ResolutionInvalid, Entity: datatypes.EntityCustomer,
			OriginalInput: input,
			Reason:        "expected an 11-digit customer ID, an 8-11 digit phone number, or a company registration number"}
	}
	rows, err := r.db.Execute(ctx, query)
	if err != nil {
		r.logger.Warn("customer lookup failed", "error", err)
		return datatypes.Resolution{Kind: datatypes.ResolutionInvalid, OriginalInput: input, Reason: err.Error()}
	}
	return r.customerRowsToResolution(input, rows)
}

func (r *Resolver) resolveCustomerName(ctx context.Context, name string) datatypes.Resolution {
	query := fmt.Sprintf("SELECT DISTINCT DOC_CUST_NAME, CUST_ID_NO, COMP_EID_NO FROM insmv.AIMS_ALL_DATA WHERE UPPER(DOC_CUST_NAME) LIKE UPPER('%%%s%%')", sqlEscape(name))
	rows, err := r.db.Execute(ctx, query)
	if err != nil {
		r.logger.Warn("customer name search failed", "name", name, "error", err)
		return datatypes.Resolution{Kind: datatypes.ResolutionInvalid, OriginalInput: name, Reason: err.Error()}
	}
	switch len(rows) {
	case 0:
		// The name is unknown to the warehouse. Ask for an identifier
		// the database can match exactly instead of guessing.
		return r.needsIdentifier(name,
			fmt.Sprintf("no customer named '%s' found; %s", name, identifierPrompt))
	case 1:
		return r.customerRowsToResolution(name, rows)
	default:
		names := distinctColumn(rows, "DOC_CUST_NAME")
		match := r.matcher.Match(ctx, datatypes.EntityCustomer, name, names)
		switch match.Status {
		case datatypes.MatchExact:
			return r.customerRowsToResolution(name, rowsWithName(rows, match.Exact))
		case datatypes.MatchMultiple:
			return needsChoice(datatypes.EntityCustomer, name, match)
		default:
			return datatypes.Resolution{
				Kind:          datatypes.ResolutionNeedsUserChoice,
				Entity:        datatypes.EntityCustomer,
				OriginalInput: name,
				Candidates:    candidatesFromNames(names),
			}
		}
	}
}

func (r *Resolver) resolveListedName(ctx context.Context, entity datatypes.EntityKind, name string, branches []string) datatypes.Resolution {
	column := "DOC_AGENT_NAME"
	if entity == datatypes.EntityUser {
		column = "DOC_USER_NAME"
	}
	query := fmt.Sprintf("SELECT DISTINCT %s FROM insmv.AIMS_ALL_DATA WHERE %s IS NOT NULL", column, column)
	if len(branches) > 0 {
		var conds []string
		for _, b := range branches {
			conds = append(conds, fmt.Sprintf("UPPER(DOC_BRANCH_NAME) LIKE UPPER('%%%s%%')", sqlEscape(b)))
		}
		query += " AND (" + strings.Join(conds, " OR ") + ")"
	}
	rows, err := r.db.Execute(ctx, query)
	if err != nil {
		r.logger.Warn("name list fetch failed", "entity", entity, "error", err)
		return datatypes.Resolution{Kind: datatypes.ResolutionInvalid, OriginalInput: name, Reason: err.Error()}
	}
	available := distinctColumn(rows, column)
	if len(available) == 0 {
		return datatypes.Resolution{Kind: datatypes.ResolutionInvalid, OriginalInput: name,
			Reason: fmt.Sprintf("no %s names found in the database", strings.ToLower(string(entity)))}
	}
	match := r.matcher.Match(ctx, entity, name, available)
	switch match.Status {
	case datatypes.MatchExact:
		return datatypes.Resolution{Kind: datatypes.ResolutionResolved, Entity: entity,
			Key: match.Exact, DisplayName: match.Exact, OriginalInput: name}
	case datatypes.MatchMultiple:
		return needsChoice(entity, name, match)
	default:
		return datatypes.Resolution{Kind: datatypes.ResolutionInvalid, OriginalInput: name,
			Reason: fmt.Sprintf("could not find a good match for '%s'", name)}
	}
}

// ResumeWithChoice applies the user's selection to a pending resolution.
// The choice may be a 1-based ordinal or free text matched exactly, then
// by substring, against the candidates. An unmatchable choice returns the
// pending resolution with Reason set so the caller can re-prompt.
func (r *Resolver) ResumeWithChoice(pending datatypes.Resolution, choice string) datatypes.Resolution {
	if pending.Kind != datatypes.ResolutionNeedsUserChoice {
		return pending
	}
	choice = strings.TrimSpace(choice)
	if choice == "" || strings.EqualFold(choice, "cancel") {
		return datatypes.Resolution{Kind: datatypes.ResolutionCancelled, Entity: pending.Entity, OriginalInput: pending.OriginalInput}
	}
	if n, err := strconv.Atoi(choice); err == nil {
		if n >= 1 && n <= len(pending.Candidates) {
			return resolvedCandidate(pending, pending.Candidates[n-1].Name)
		}
		pending.Reason = fmt.Sprintf("please enter a number between 1 and %d", len(pending.Candidates))
		return pending
	}
	lower := strings.ToLower(choice)
	for _, c := range pending.Candidates {
		if strings.ToLower(c.Name) == lower {
			return resolvedCandidate(pending, c.Name)
		}
	}
	for _, c := range pending.Candidates {
		cl := strings.ToLower(c.Name)
		if strings.Contains(cl, lower) || strings.Contains(lower, cl) {
			return resolvedCandidate(pending, c.Name)
		}
	}
	pending.Reason = fmt.Sprintf("'%s' doesn't match any of the provided options", choice)
	return pending
}

// ResumeWithIdentifier applies a user-supplied customer identifier to a
// pending needs-identifier resolution. A malformed identifier keeps the
// resolution pending with Reason set so the caller can re-prompt; an
// identifier the warehouse has never seen ends the question as invalid.
func (r *Resolver) ResumeWithIdentifier(ctx context.Context, pending datatypes.Resolution, input string) datatypes.Resolution {
	if pending.Kind != datatypes.ResolutionNeedsIdentifier {
		return pending
	}
	input = strings.TrimSpace(input)
	if input == "" || strings.EqualFold(input, "cancel") {
		return datatypes.Resolution{Kind: datatypes.ResolutionCancelled, Entity: pending.Entity, OriginalInput: pending.OriginalInput}
	}
	if agents.ClassifyCustomerInput(input) == agents.InputInvalid {
		pending.Reason = fmt.Sprintf("'%s' is not a recognized identifier; %s", input, identifierPrompt)
		return pending
	}
	return r.LookupCustomer(ctx, input)
}

func (r *Resolver) needsIdentifier(name, reason string) datatypes.Resolution {
	return datatypes.Resolution{
		Kind:          datatypes.ResolutionNeedsIdentifier,
		Entity:        datatypes.EntityCustomer,
		OriginalInput: name,
		Reason:        reason,
	}
}

// ResolveCandidate finalizes a customer choice that still needs its ID
// looked up; agent and user names are their own keys.
func (r *Resolver) ResolveCandidate(ctx context.Context, res datatypes.Resolution) datatypes.Resolution {
	if res.Kind != datatypes.ResolutionResolved || res.Entity != datatypes.EntityCustomer || res.Key != "" || res.DisplayName == "" {
		return res
	}
	query := fmt.Sprintf("SELECT DISTINCT DOC_CUST_NAME, CUST_ID_NO, COMP_EID_NO FROM insmv.AIMS_ALL_DATA WHERE DOC_CUST_NAME = '%s'", sqlEscape(res.DisplayName))
	rows, err := r.db.Execute(ctx, query)
	if err != nil || len(rows) == 0 {
		return res
	}
	return r.customerRowsToResolution(res.OriginalInput, rows[:1])
}

// EnhanceQuestion appends the focus annotation for a resolved identity.
// Unresolved outcomes leave the question untouched.
func EnhanceQuestion(question string, res datatypes.Resolution) string {
	if res.Kind != datatypes.ResolutionResolved {
		return question
	}
	switch res.Entity {
	case datatypes.EntityCustomer:
		if res.Key != "" {
			return question + " " + fmt.Sprintf(focusCustomerID, res.Key)
		}
		return question + " " + fmt.Sprintf(focusCustomerName, res.DisplayName)
	case datatypes.EntityCompany:
		return question + " " + fmt.Sprintf(focusCompanyID, res.Key)
	case datatypes.EntityAgent:
		return question + " " + fmt.Sprintf(focusAgentName, res.Key)
	case datatypes.EntityUser:
		return question + " " + fmt.Sprintf(focusUserName, res.Key)
	default:
		return question
	}
}

func (r *Resolver) customerRowsToResolution(input string, rows []warehouse.Row) datatypes.Resolution {
	switch len(rows) {
	case 0:
		return datatypes.Resolution{Kind: datatypes.ResolutionInvalid, Entity: datatypes.EntityCustomer,
			OriginalInput: input, Reason: fmt.Sprintf("no customer found for '%s'", input)}
	case 1:
		row := rows[0]
		name := stringField(row, "DOC_CUST_NAME")
		if custID := stringField(row, "CUST_ID_NO"); custID != "" {
			return datatypes.Resolution{Kind: datatypes.ResolutionResolved, Entity: datatypes.EntityCustomer,
				Key: custID, DisplayName: name, OriginalInput: input}
		}
		if compID := stringField(row, "COMP_EID_NO"); compID != "" {
			return datatypes.Resolution{Kind: datatypes.ResolutionResolved, Entity: datatypes.EntityCompany,
				Key: compID, DisplayName: name, OriginalInput: input}
		}
		return datatypes.Resolution{Kind: datatypes.ResolutionResolved, Entity: datatypes.EntityCustomer,
			DisplayName: name, OriginalInput: input}
	default:
		return datatypes.Resolution{
			Kind:          datatypes.ResolutionNeedsUserChoice,
			Entity:        datatypes.EntityCustomer,
			OriginalInput: input,
			Candidates:    candidatesFromNames(distinctColumn(rows, "DOC_CUST_NAME")),
		}
	}
}

func needsChoice(entity datatypes.EntityKind, input string, match datatypes.MatchResult) datatypes.Resolution {
	candidates := make([]datatypes.Candidate, len(match.Matches))
	for i, name := range match.Matches {
		c := datatypes.Candidate{Name: name}
		if i < len(match.ConfidenceScores) {
			c.Confidence = match.ConfidenceScores[i]
		}
		candidates[i] = c
	}
	return datatypes.Resolution{Kind: datatypes.ResolutionNeedsUserChoice, Entity: entity,
		OriginalInput: input, Candidates: candidates}
}

func resolvedCandidate(pending datatypes.Resolution, name string) datatypes.Resolution {
	return datatypes.Resolution{
		Kind:          datatypes.ResolutionResolved,
		Entity:        pending.Entity,
		Key:           keyForEntity(pending.Entity, name),
		DisplayName:   name,
		OriginalInput: pending.OriginalInput,
	}
}

// keyForEntity: agent and user names are their own search keys; customer
// selections have the ID filled in later by ResolveCandidate.
func keyForEntity(entity datatypes.EntityKind, name string) string {
	if entity == datatypes.EntityAgent || entity == datatypes.EntityUser {
		return name
	}
	return ""
}

func candidatesFromNames(names []string) []datatypes.Candidate {
	if len(names) > 10 {
		names = names[:10]
	}
	out := make([]datatypes.Candidate, len(names))
	for i, n := range names {
		out[i] = datatypes.Candidate{Name: n}
	}
	return out
}

func rowsWithName(rows []warehouse.Row, name string) []warehouse.Row {
	var out []warehouse.Row
	for _, row := range rows {
		if stringField(row, "DOC_CUST_NAME") == name {
			out = append(out, row)
		}
	}
	return out
}

func distinctColumn(rows []warehouse.Row, column string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, row := range rows {
		v := stringField(row, column)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func stringField(row warehouse.Row, column string) string {
	v, ok := row[column]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v))
}

// sqlEscape doubles single quotes for string literals. Identity values
// come from model output and user input, so the minimum hygiene is
// keeping them inside the literal.
func sqlEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
