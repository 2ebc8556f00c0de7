// Copyright (C) 2025 The CoreReports Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package knowledge assembles the insurance-warehouse domain context that
// prompts are grounded on. A built-in baseline describes the AIMS_ALL_DATA
// schema, business rules, and Oracle SQL constraints; deployments can layer
// a YAML overlay on top and have it hot-reloaded on change.
package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/yazeedmshayekh2/CoreReports/pkg/logging"
)

// Section is one titled block of domain context. Always sections appear in
// every prompt; the rest are included only when the question mentions one
// of their keywords.
type Section struct {
	Name     string   `yaml:"name"`
	Title    string   `yaml:"title"`
	Always   bool     `yaml:"always"`
	Keywords []string `yaml:"keywords"`
	Lines    []string `yaml:"lines"`
}

type overlayFile struct {
	Sections []Section `yaml:"sections"`
}

// Store holds the merged baseline plus overlay sections.
type Store struct {
	mu          sync.RWMutex
	sections    []Section
	overlayPath string
	watcher     *fsnotify.Watcher
	logger      *logging.Logger
}

// NewStore builds a Store from the baseline. overlayPath may be empty; if
// given and the file exists, its sections are merged (matching names
// replace baseline sections, new names append).
func NewStore(overlayPath string, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Store{overlayPath: overlayPath, logger: logger}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Watch starts hot-reloading the overlay file. It returns immediately;
// reload failures are logged and the previous sections stay in effect.
func (s *Store) Watch() error {
	if s.overlayPath == "" {
		return fmt.Errorf("knowledge: no overlay path configured")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("knowledge: create watcher: %w", err)
	}
	// Watch the directory: editors replace files by rename, which drops
	// a watch placed on the file itself.
	if err := w.Add(filepath.Dir(s.overlayPath)); err != nil {
		w.Close()
		return fmt.Errorf("knowledge: watch %s: %w", s.overlayPath, err)
	}
	s.watcher = w
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(s.overlayPath) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := s.reload(); err != nil {
					s.logger.Warn("knowledge overlay reload failed", "path", s.overlayPath, "error", err)
				} else {
					s.logger.Info("knowledge overlay reloaded", "path", s.overlayPath)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("knowledge watcher error", "error", err)
			}
		}
	}()
	return nil
}

// Close stops the overlay watcher if one is running.
func (s *Store) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *Store) reload() error {
	merged := baseline()
	if s.overlayPath != "" {
		data, err := os.ReadFile(s.overlayPath)
		if err == nil {
			var overlay overlayFile
			if uerr := yaml.Unmarshal(data, &overlay); uerr != nil {
				return fmt.Errorf("knowledge: parse overlay %s: %w", s.overlayPath, uerr)
			}
			merged = mergeSections(merged, overlay.Sections)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("knowledge: read overlay %s: %w", s.overlayPath, err)
		}
	}
	s.mu.Lock()
	s.sections = merged
	s.mu.Unlock()
	return nil
}

func mergeSections(base, overlay []Section) []Section {
	out := make([]Section, len(base))
	copy(out, base)
	for _, o := range overlay {
		replaced := false
		for i := range out {
			if out[i].Name == o.Name {
				out[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, o)
		}
	}
	return out
}

// ForQuestion renders the domain context relevant to one question. The
// Always sections are unconditional, so the result is never empty.
func (s *Store) ForQuestion(question string) string {
	lower := strings.ToLower(question)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	for _, sec := range s.sections {
		if !sec.Always && !matchesAny(lower, sec.Keywords) {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("=== " + sec.Title + " ===\n")
		for _, line := range sec.Lines {
			b.WriteString("- " + line + "\n")
		}
	}
	return b.String()
}

// Summary renders every section regardless of keywords.
func (s *Store) Summary() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	for _, sec := range s.sections {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("=== " + sec.Title + " ===\n")
		for _, line := range sec.Lines {
			b.WriteString("- " + line + "\n")
		}
	}
	return b.String()
}

func matchesAny(lower string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
