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
	"strings"

	"github.com/yazeedmshayekh2/CoreReports/pkg/logging"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/agents"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/datatypes"
	"github.com/yazeedmshayekh2/CoreReports/services/warehouse"
)

// maxQueryAttempts bounds SQL design retries per step.
const maxQueryAttempts = 3

// StepExecutor runs one cycle's strategy: it designs and executes SQL for
// each query step and hands calculation steps to the compute analyst.
type StepExecutor struct {
	designer *agents.SQLDesigner
	analyst  *agents.ComputeAnalyst
	db       warehouse.Executor
	logger   *logging.Logger
}

func NewStepExecutor(designer *agents.SQLDesigner, analyst *agents.ComputeAnalyst, db warehouse.Executor, logger *logging.Logger) *StepExecutor {
	if logger == nil {
		logger = logging.Default()
	}
	return &StepExecutor{designer: designer, analyst: analyst, db: db, logger: logger}
}

// isComputeStep partitions steps lexically: a step whose description
// starts with "compute" or "calculate" is a calculation, everything else
// is a query.
func isComputeStep(step string) bool {
	lower := strings.ToLower(strings.TrimSpace(step))
	return strings.HasPrefix(lower, "compute") || strings.HasPrefix(lower, "calculate")
}

// Execute runs every step of the strategy in order. A step that exhausts
// its retries is recorded with its error and does not block later steps.
// Calculation steps run only under a QUERY_COMPUTE strategy; other
// strategies skip them. Each step's rows land in both Results and
// IntermediateData under the same key.
func (e *StepExecutor) Execute(ctx context.Context, question string, strategy datatypes.Strategy) *datatypes.ExecutionResult {
	result := &datatypes.ExecutionResult{
		Results:          map[string][]datatypes.Row{},
		IntermediateData: map[string][]datatypes.Row{},
		Strategy:         strategy,
		Action:           strategy.Action,
	}
	descriptions := map[string]string{}
	queryN, computeN := 0, 0

	for _, step := range strategy.Steps {
		if isComputeStep(step) {
			if strategy.Action != datatypes.ActionCompute {
				e.logger.Debug("skipping calculation step outside compute strategy", "step", step)
				continue
			}
			computeN++
			key := fmt.Sprintf("computation_%d", computeN)
			comp := e.analyst.Compute(ctx, question, step, strategy.ComputeRequirements, result.IntermediateData, descriptions)
			row := datatypes.Row{
				"calculation_type":        comp.CalculationType,
				"result":                  comp.Result,
				"formula_used":            comp.FormulaUsed,
				"business_interpretation": comp.BusinessInterpretation,
				"data_points_used":        comp.DataPointsUsed,
			}
			result.Results[key] = []datatypes.Row{row}
			result.IntermediateData[key] = result.Results[key]
			descriptions[key] = step
			continue
		}

		queryN++
		key := fmt.Sprintf("step_%d", queryN)
		rows, query, attempts, err := e.runQueryStep(ctx, question, step, result.IntermediateData)
		record := datatypes.ExecutedQuery{Step: key, Query: query, Attempts: attempts}
		if err != nil {
			record.Error = err.Error()
			e.logger.Warn("step failed after retries", "step", key, "attempts", attempts, "error", err)
		} else {
			record.RowCount = len(rows)
			result.Results[key] = rows
			result.IntermediateData[key] = rows
			descriptions[key] = step
		}
		result.ExecutedQueries = append(result.ExecutedQueries, record)
	}
	return result
}

func (e *StepExecutor) runQueryStep(ctx context.Context, question, step string, intermediate map[string][]datatypes.Row) (rows []warehouse.Row, lastQuery string, attempts int, err error) {
	previous := agents.BuildPreviousResultsContext(intermediate)
	retry := ""
	for attempts = 1; attempts <= maxQueryAttempts; attempts++ {
		var query string
		query, err = e.designer.Design(ctx, question, step, previous, retry)
		if err != nil {
			retry = agents.RetryContext(err.Error())
			continue
		}
		lastQuery = query
		rows, err = e.db.Execute(ctx, query)
		if err == nil {
			return rows, lastQuery, attempts, nil
		}
		retry = agents.RetryContext(err.Error())
	}
	return nil, lastQuery, maxQueryAttempts, err
}
