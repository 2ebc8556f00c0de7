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
	"fmt"
	"sort"
	"strings"

	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/datatypes"
)

// CleanQuery strips markdown fences, collapses whitespace, and drops a
// trailing semicolon from model-generated SQL.
func CleanQuery(sql string) string {
	if idx := strings.Index(sql, "```sql"); idx >= 0 {
		rest := sql[idx+len("```sql"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			sql = rest[:end]
		} else {
			sql = rest
		}
	} else if idx := strings.Index(sql, "```"); idx >= 0 {
		rest := sql[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			sql = rest[:end]
		} else {
			sql = rest
		}
	}
	sql = strings.Join(strings.Fields(sql), " ")
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(sql), ";"))
}

// BuildExecutionContext summarizes prior cycles for the planner. Cycle 1
// gets a fixed sentinel so the prompt shape stays stable.
func BuildExecutionContext(cycle int, executedQueries []datatypes.ExecutedQuery, accumulated map[string][]datatypes.Row) string {
	if cycle == 1 {
		return "First cycle - no previous context"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Previous cycles: %d\n", cycle-1)
	if len(executedQueries) > 0 {
		fmt.Fprintf(&b, "Previous queries executed: %d\n", len(executedQueries))
	}
	if len(accumulated) > 0 {
		fmt.Fprintf(&b, "Accumulated results: %v\n", sortedKeys(accumulated))
	}
	return b.String()
}

// BuildPreviousResultsContext describes earlier step outputs so the SQL
// designer can reference values produced upstream.
func BuildPreviousResultsContext(intermediate map[string][]datatypes.Row) string {
	if len(intermediate) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nPREVIOUS STEP RESULTS:\n")
	for _, key := range sortedKeys(intermediate) {
		rows := intermediate[key]
		fmt.Fprintf(&b, "- %s: %d rows", key, len(rows))
		if len(rows) > 0 {
			fmt.Fprintf(&b, ", columns: %v", columnNames(rows[0]))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatResultsSummary renders every fetched row for the response
// generator. No truncation: the responder sees exactly what the queries
// returned.
func FormatResultsSummary(result *datatypes.ExecutionResult) string {
	var b strings.Builder
	b.WriteString("QUERY RESULTS SUMMARY:\n")
	for _, key := range sortedKeys(result.Results) {
		rows := result.Results[key]
		fmt.Fprintf(&b, "\n%s (%d rows):\n", strings.ToUpper(key), len(rows))
		for i, row := range rows {
			fmt.Fprintf(&b, "  Row %d: %s\n", i+1, formatRow(row))
		}
	}
	return b.String()
}

// FormatDataSourcesSummary describes the fetched data sets for the
// computational analyst, including sample numeric values it can anchor
// calculations on.
func FormatDataSourcesSummary(intermediate map[string][]datatypes.Row, descriptions map[string]string) string {
	var b strings.Builder
	b.WriteString("AVAILABLE DATA SOURCES:\n")
	for _, key := range sortedKeys(intermediate) {
		rows := intermediate[key]
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%d rows):\n", strings.ToUpper(key), len(rows))
		desc := descriptions[key]
		if desc == "" {
			desc = "Query results"
		}
		fmt.Fprintf(&b, "  Description: %s\n", desc)
		fmt.Fprintf(&b, "  Columns: %v\n", columnNames(rows[0]))
		if numeric := numericSamples(rows[0]); len(numeric) > 0 {
			fmt.Fprintf(&b, "  Sample numeric values: %s\n", numeric)
		}
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func columnNames(row datatypes.Row) []string {
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func formatRow(row datatypes.Row) string {
	var parts []string
	for _, col := range columnNames(row) {
		parts = append(parts, fmt.Sprintf("%s: %v", col, row[col]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func numericSamples(row datatypes.Row) string {
	var parts []string
	for _, col := range columnNames(row) {
		switch v := row[col].(type) {
		case int, int32, int64, float32, float64:
			parts = append(parts, fmt.Sprintf("%s: %v", col, v))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
