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
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/yazeedmshayekh2/CoreReports/cmd/corereports/config"
	"github.com/yazeedmshayekh2/CoreReports/pkg/logging"
	"github.com/yazeedmshayekh2/CoreReports/pkg/ux"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/memory"
)

func openMemory() *memory.Store {
	logger := logging.New(logging.Config{Level: parseLogLevel(config.Global.Logging.Level), Service: "cli"})
	return memory.NewStore(config.Global.Memory.Path, logger)
}

func runMemoryShow(cmd *cobra.Command, args []string) {
	mem := openMemory()

	conversations := mem.Recent(0)
	if len(conversations) == 0 {
		ux.Info("No conversations in memory.")
		return
	}

	ux.Title(fmt.Sprintf("Conversation memory (%d entries)", len(conversations)))
	for i, conv := range conversations {
		fmt.Printf("%d. [%s] %s\n", i+1, conv.Timestamp, conv.Question)
		answer := conv.Answer
		if len(answer) > 200 {
			answer = answer[:200] + "..."
		}
		fmt.Printf("   %s\n", answer)
	}
}

func runMemoryClear(cmd *cobra.Command, args []string) {
	mem := openMemory()
	if err := mem.Clear(); err != nil {
		log.Fatalf("Error clearing memory: %v", err)
	}
	ux.Success("Conversation memory cleared.")
}
