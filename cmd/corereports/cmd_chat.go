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
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/yazeedmshayekh2/CoreReports/pkg/ux"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence"
)

func runChatCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	// Interactive sessions answer faster with a tighter cycle cap.
	rt, err := newRuntime(ctx, "cli", intelligence.InteractiveMaxCycles)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer rt.Close()

	ux.Title("CoreReports chat")
	ux.Muted("Ask about policies, claims, customers, brokers, or production.")
	ux.Muted("Type 'quit', 'exit', 'bye', or 'goodbye' to leave.")

	session := &chatSession{
		solver: rt.manager,
		reader: NewInteractiveInputReader(50),
		out:    os.Stdout,
	}
	if err := session.run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Chat error: %v", err)
	}
}
