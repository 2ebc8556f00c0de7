// Copyright (C) 2025 The CoreReports Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package apiserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yazeedmshayekh2/CoreReports/services/intelligence"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/datatypes"
)

type chatRequest struct {
	Question string `json:"question" binding:"required,min=1,max=4000"`
}

type selectRequest struct {
	SelectionID string `json:"selection_id" binding:"required,uuid"`
	Choice      string `json:"choice" binding:"required,max=200"`
}

// selectionResponse is returned when name resolution needs the user to
// pick among candidates before the question can be answered.
type selectionResponse struct {
	Status      string                `json:"status"`
	SelectionID string                `json:"selection_id"`
	Entity      string                `json:"entity"`
	Input       string                `json:"input"`
	Candidates  []datatypes.Candidate `json:"candidates"`
	Message     string                `json:"message,omitempty"`
}

// bindingError flattens validator errors into a field-level message;
// other decode errors pass through as-is.
func bindingError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		parts[i] = fmt.Sprintf("%s failed %q validation", strings.ToLower(fe.Field()), fe.Tag())
	}
	return strings.Join(parts, "; ")
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err)})
		return
	}
	out := s.solver.Solve(c.Request.Context(), req.Question)
	s.writeOutcome(c, out)
}

func (s *Server) handleSelect(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err)})
		return
	}
	state, ok := s.pending.take(req.SelectionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "selection not found or expired"})
		return
	}
	out := s.solver.Resume(c.Request.Context(), state, req.Choice)
	s.writeOutcome(c, out)
}

func (s *Server) writeOutcome(c *gin.Context, out intelligence.Outcome) {
	if out.Pending != nil {
		res := out.Pending.Pending
		id := s.pending.put(out.Pending)
		status := "needs_selection"
		if res.Kind == datatypes.ResolutionNeedsIdentifier {
			status = "needs_identifier"
		}
		questionsTotal.WithLabelValues(status).Inc()
		c.JSON(http.StatusOK, selectionResponse{
			Status:      status,
			SelectionID: id,
			Entity:      string(res.Entity),
			Input:       res.OriginalInput,
			Candidates:  res.Candidates,
			Message:     res.Reason,
		})
		return
	}
	resp := out.Response
	questionsTotal.WithLabelValues(resp.Status).Inc()
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleMemory(c *gin.Context) {
	mem := s.solver.Memory()
	if mem == nil {
		c.JSON(http.StatusOK, gin.H{"conversations": []any{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id":    mem.SessionID(),
		"conversations": mem.Recent(0),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
