// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
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
	"log"

	"github.com/spf13/cobra"
	"github.com/yazeedmshayekh2/CoreReports/cmd/corereports/config"
	"github.com/yazeedmshayekh2/CoreReports/pkg/ux"
)

// --- Global Command Variables ---
var (
	backendType      string // CLI override for model_backend.type
	maxCycles        int
	personalityLevel string // UX personality level (full/standard/minimal/machine)

	rootCmd = &cobra.Command{
		Use:   "corereports",
		Short: "A cli to query the AIMS insurance reporting warehouse in natural language",
		Long: `CoreReports answers natural-language questions against the
				insurance reporting view by planning, executing, and evaluating
				Oracle queries through an LLM agent pipeline.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := config.Load(); err != nil {
				log.Fatalf("Error loading config: %v", err)
			}
			// Initialize UX personality from flag or environment
			if personalityLevel != "" {
				ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityLevel))
			} else {
				ux.InitPersonality()
			}
		},
	}

	// --- Ask ---
	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Asks a single question against the reporting warehouse",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAskCommand, // Defined in cmd_ask.go
	}

	// --- Chat ---
	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Starts an interactive question-answering session",
		Run:   runChatCommand, // Defined in cmd_chat.go
	}

	// --- Memory ---
	memoryCmd = &cobra.Command{
		Use:   "memory",
		Short: "Manage conversation memory",
	}
	memoryShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the recent conversations held in memory",
		Run:   runMemoryShow, // Defined in cmd_memory.go
	}
	memoryClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete all stored conversation memory",
		Run:   runMemoryClear, // Defined in cmd_memory.go
	}

	// --- Serve ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Run:   runServeCommand, // Defined in cmd_serve.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output style: full (default, rich), standard, minimal, or machine (scripting)")
	rootCmd.PersistentFlags().StringVar(&backendType, "backend", "",
		"Override the LLM backend (openai, ollama)")

	rootCmd.AddCommand(askCmd)
	askCmd.Flags().IntVar(&maxCycles, "max-cycles", 0,
		"Maximum planning cycles before returning a partial answer (default from pipeline)")

	rootCmd.AddCommand(chatCmd)

	rootCmd.AddCommand(memoryCmd)
	memoryCmd.AddCommand(memoryShowCmd)
	memoryCmd.AddCommand(memoryClearCmd)

	rootCmd.AddCommand(serveCmd)
}
