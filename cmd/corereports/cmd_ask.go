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
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yazeedmshayekh2/CoreReports/pkg/ux"
)

func runAskCommand(cmd *cobra.Command, args []string) {
	question := strings.Join(args, " ")

	ctx, cancel := signalContext()
	defer cancel()

	rt, err := newRuntime(ctx, "cli", maxCycles)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer rt.Close()

	ux.Info("Asking: " + question)

	session := &chatSession{
		solver: rt.manager,
		reader: NewStdinReader(),
		out:    os.Stdout,
	}
	if err := session.ask(ctx, question); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}
