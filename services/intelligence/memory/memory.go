// Copyright (C) 2025 The CoreReports Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package memory persists recent question/answer pairs so follow-up
// questions can be answered with context from earlier ones. Storage is a
// single JSON file; writes go through a temp file and rename so a crash
// mid-write never corrupts existing memory.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/yazeedmshayekh2/CoreReports/pkg/logging"
)

// DefaultRetention is how many conversations the store keeps.
const DefaultRetention = 5

// Conversation is one stored question/answer exchange.
type Conversation struct {
	Timestamp string         `json:"timestamp"`
	SessionID string         `json:"session_id"`
	Question  string         `json:"question"`
	Answer    string         `json:"answer"`
	Metadata  map[string]any `json:"metadata"`
}

type memoryFile struct {
	MemorySize       int            `json:"memory_size"`
	CurrentSessionID string         `json:"current_session_id"`
	Conversations    []Conversation `json:"conversations"`
	LastUpdated      string         `json:"last_updated"`
}

// Store is a bounded FIFO conversation log backed by one JSON file.
type Store struct {
	mu            sync.Mutex
	path          string
	retention     int
	sessionID     string
	conversations []Conversation
	logger        *logging.Logger
}

// NewStore opens or creates the memory file at path. An unreadable or
// malformed file is treated as empty rather than failing startup; the
// next save rewrites it.
func NewStore(path string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Store{
		path:      path,
		retention: DefaultRetention,
		sessionID: fmt.Sprintf("session_%s", time.Now().Format("20060102_150405")),
		logger:    logger,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("memory file unreadable, starting empty", "path", path, "error", err)
		}
		return s
	}
	var f memoryFile
	if err := json.Unmarshal(data, &f); err != nil {
		logger.Warn("memory file malformed, starting empty", "path", path, "error", err)
		return s
	}
	if f.MemorySize > 0 {
		s.retention = f.MemorySize
	}
	s.conversations = f.Conversations
	s.trimLocked()
	return s
}

// SessionID returns the identifier stamped onto conversations saved in
// this process.
func (s *Store) SessionID() string { return s.sessionID }

// Add appends one exchange and persists, dropping the oldest entries past
// the retention bound.
func (s *Store) Add(question, answer string, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if metadata == nil {
		metadata = map[string]any{}
	}
	s.conversations = append(s.conversations, Conversation{
		Timestamp: time.Now().Format(time.RFC3339),
		SessionID: s.sessionID,
		Question:  question,
		Answer:    answer,
		Metadata:  metadata,
	})
	s.trimLocked()
	return s.saveLocked()
}

// Recent returns up to n conversations, oldest first.
func (s *Store) Recent(n int) []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n > len(s.conversations) {
		n = len(s.conversations)
	}
	out := make([]Conversation, n)
	copy(out, s.conversations[len(s.conversations)-n:])
	return out
}

// Len reports how many conversations are stored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// Clear drops all conversations and removes the backing file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = nil
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("memory: clear %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) trimLocked() {
	if len(s.conversations) > s.retention {
		s.conversations = s.conversations[len(s.conversations)-s.retention:]
	}
}

func (s *Store) saveLocked() error {
	f := memoryFile{
		MemorySize:       s.retention,
		CurrentSessionID: s.sessionID,
		Conversations:    s.conversations,
		LastUpdated:      time.Now().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("memory: marshal: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("memory: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".memory-*.json")
	if err != nil {
		return fmt.Errorf("memory: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("memory: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("memory: close: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("memory: rename: %w", err)
	}
	return nil
}

var (
	customerIDRe = regexp.MustCompile(`\b\d{11}\b`)
	properNameRe = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	custNameRe   = regexp.MustCompile(`(?i)customer[^,.]*?([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`)
	resultNumRe  = regexp.MustCompile(`(?i)(\d+)\s+(?:policies|claims|transactions|customers)`)
)

var continuationKeywords = []string{"same", "this", "that", "also", "additionally", "more", "further", "his", "her"}

// ContextFor scans the last three conversations, newest first, and
// renders key details from the related ones as a block to prepend to the
// question. Returns "" when nothing relates.
func (s *Store) ContextFor(question string) string {
	convs := s.Recent(3)
	var parts []string
	for i := len(convs) - 1; i >= 0; i-- {
		conv := convs[i]
		if !isRelated(question, conv.Question) {
			continue
		}
		if info := extractKeyInfo(conv.Question, conv.Answer); info != "" {
			parts = append(parts, "Previous context: "+info)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "MEMORY CONTEXT FROM RECENT CONVERSATIONS:\n" + strings.Join(parts, "\n") + "\n\n"
}

func isRelated(current, previous string) bool {
	curIDs := customerIDRe.FindAllString(current, -1)
	prevIDs := customerIDRe.FindAllString(previous, -1)
	for _, id := range curIDs {
		for _, p := range prevIDs {
			if id == p {
				return true
			}
		}
	}
	curNames := properNameRe.FindAllString(current, -1)
	prevNames := properNameRe.FindAllString(previous, -1)
	for _, n := range curNames {
		for _, p := range prevNames {
			if n == p {
				return true
			}
		}
	}
	lower := strings.ToLower(current)
	for _, k := range continuationKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func extractKeyInfo(question, answer string) string {
	text := question + " " + answer
	var info []string
	if ids := uniqueStrings(customerIDRe.FindAllString(text, -1)); len(ids) > 0 {
		info = append(info, "Customer ID(s): "+strings.Join(ids, ", "))
	}
	var names []string
	for _, m := range custNameRe.FindAllStringSubmatch(text, -1) {
		names = append(names, m[1])
	}
	if names = uniqueStrings(names); len(names) > 0 {
		info = append(info, "Customer name(s): "+strings.Join(names, ", "))
	}
	var counts []string
	for _, m := range resultNumRe.FindAllStringSubmatch(answer, -1) {
		counts = append(counts, m[1])
	}
	if len(counts) > 0 {
		info = append(info, "Previous results: "+strings.Join(counts, ", ")+" items found")
	}
	return strings.Join(info, " | ")
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
