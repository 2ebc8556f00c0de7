// Copyright (C) 2025 The CoreReports Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/yazeedmshayekh2/CoreReports/services/intelligence"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/datatypes"
)

// questionSolver is the slice of the intelligence manager the chat
// session needs. Tests substitute a stub.
type questionSolver interface {
	Solve(ctx context.Context, question string) intelligence.Outcome
	Resume(ctx context.Context, state *intelligence.SessionState, choice string) intelligence.Outcome
}

// isExitCommand reports whether the input ends an interactive session.
func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "quit", "exit", "bye", "goodbye":
		return true
	}
	return false
}

// chatSession drives the ask/selection/answer loop for one terminal
// session. Ambiguous name resolutions suspend the pipeline; the session
// prompts for a choice and resumes until a final response arrives.
type chatSession struct {
	solver questionSolver
	reader InputReader
	out    io.Writer
}

// ask answers a single question, prompting for entity selections as
// needed. Returns io.EOF when input runs out mid-selection.
func (s *chatSession) ask(ctx context.Context, question string) error {
	outcome := s.solver.Solve(ctx, question)
	for outcome.Pending != nil {
		resumed, err := s.resolveSelection(ctx, outcome.Pending)
		if err != nil {
			return err
		}
		outcome = resumed
	}
	renderResponse(s.out, outcome.Response)
	return nil
}

// run is the interactive loop. Exits on an exit command, EOF, or
// context cancellation.
func (s *chatSession) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if p, ok := s.reader.(interface{ SetPrompt(string) }); ok {
			p.SetPrompt("You: ")
		} else {
			fmt.Fprint(s.out, "You: ")
		}
		line, err := s.reader.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		if isExitCommand(line) {
			fmt.Fprintln(s.out, "Goodbye!")
			return nil
		}

		if err := s.ask(ctx, line); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// resolveSelection shows the pending prompt, reads the user's input, and
// resumes the suspended session with it. A selection lists candidates; an
// identifier request asks for a customer ID, phone, or company number.
func (s *chatSession) resolveSelection(ctx context.Context, state *intelligence.SessionState) (intelligence.Outcome, error) {
	pending := state.Pending
	if pending.Kind == datatypes.ResolutionNeedsIdentifier {
		if pending.Reason != "" {
			fmt.Fprintf(s.out, "\n%s\n", pending.Reason)
		}
		fmt.Fprint(s.out, "Enter an identifier, or 'cancel': ")
	} else {
		fmt.Fprintf(s.out, "\nMultiple %s matches found for '%s':\n",
			entityLabel(pending.Entity), pending.OriginalInput)
		for i, c := range pending.Candidates {
			if c.Confidence > 0 {
				fmt.Fprintf(s.out, "  %d. %s (%.0f%%)\n", i+1, c.Name, c.Confidence*100)
			} else {
				fmt.Fprintf(s.out, "  %d. %s\n", i+1, c.Name)
			}
		}
		if pending.Reason != "" {
			fmt.Fprintf(s.out, "%s\n", pending.Reason)
		}
		fmt.Fprintf(s.out, "Select an option (1-%d), type the name, or 'cancel': ",
			len(pending.Candidates))
	}

	choice, err := s.reader.ReadLine()
	if err != nil {
		return intelligence.Outcome{}, err
	}
	return s.solver.Resume(ctx, state, choice), nil
}

func entityLabel(entity datatypes.EntityKind) string {
	switch entity {
	case datatypes.EntityCompany:
		return "company customer"
	case datatypes.EntityAgent:
		return "broker"
	case datatypes.EntityUser:
		return "system user"
	default:
		return "customer"
	}
}

// renderResponse prints a final response in a terminal-friendly layout.
func renderResponse(w io.Writer, resp *datatypes.FinalResponse) {
	if resp == nil {
		return
	}
	fmt.Fprintf(w, "\n%s\n", resp.Response)
	switch resp.Status {
	case datatypes.ResponsePartial:
		fmt.Fprintf(w, "\n[partial answer after %d cycles, confidence %.2f]\n",
			resp.CyclesUsed, resp.Confidence)
	case datatypes.ResponseError, datatypes.ResponseInvalid:
		fmt.Fprintf(w, "\n[no answer, confidence %.2f]\n", resp.Confidence)
	default:
		if resp.ExecutionSummary != "" {
			fmt.Fprintf(w, "\n[%s, confidence %.2f]\n", resp.ExecutionSummary, resp.Confidence)
		}
	}
}
