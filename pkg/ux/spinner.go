// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Spinner renders an animated progress indicator while a long operation
// runs, typically a model call or a fallback re-plan cycle. In machine
// mode the message is printed once and no animation runs.
type Spinner struct {
	mu        sync.Mutex
	message   string
	program   *tea.Program
	done      chan struct{}
	isRunning bool
}

type spinnerModel struct {
	spin     spinner.Model
	message  string
	quitting bool
}

type setMessageMsg string
type stopSpinnerMsg struct{}

func newSpinnerModel(message string) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = Styles.Highlight
	return spinnerModel{spin: s, message: message}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case setMessageMsg:
		m.message = string(msg)
		return m, nil
	case stopSpinnerMsg:
		m.quitting = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.quitting {
		return ""
	}
	return fmt.Sprintf("%s %s", m.spin.View(), m.message)
}

// NewSpinner creates a spinner with the given message
func NewSpinner(message string) *Spinner {
	return &Spinner{message: message}
}

// Start begins the animation. Calling Start on a running spinner is a
// no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.isRunning = true

	if GetPersonality().Level == PersonalityMachine {
		fmt.Printf("PROGRESS: %s\n", s.message)
		return
	}

	s.done = make(chan struct{})
	s.program = tea.NewProgram(
		newSpinnerModel(s.message),
		tea.WithOutput(os.Stderr),
		tea.WithInput(nil),
	)
	go func() {
		defer close(s.done)
		_, _ = s.program.Run()
	}()
}

// Stop halts the animation and clears the line
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}
	s.isRunning = false

	if s.program == nil {
		return
	}
	s.program.Send(stopSpinnerMsg{})
	<-s.done
	s.program = nil
}

// UpdateMessage changes the message while running
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
	if s.program != nil {
		s.program.Send(setMessageMsg(message))
	}
}

// StopWithSuccess stops and prints a success message
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	Success(message)
}

// StopWithError stops and prints an error message
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	Error(message)
}

// WithSpinner runs fn under a spinner and reports the outcome
func WithSpinner(message string, fn func() error) error {
	spin := NewSpinner(message)
	spin.Start()

	err := fn()

	if err != nil {
		spin.StopWithError(fmt.Sprintf("%s: %v", message, err))
		return err
	}

	spin.StopWithSuccess(message)
	return nil
}
