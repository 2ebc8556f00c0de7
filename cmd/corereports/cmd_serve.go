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
	"time"

	"github.com/spf13/cobra"
	"github.com/yazeedmshayekh2/CoreReports/cmd/corereports/config"
	"github.com/yazeedmshayekh2/CoreReports/services/apiserver"
)

func runServeCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	rt, err := newRuntime(ctx, "apiserver", 0)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer rt.Close()

	shutdownTracing, err := apiserver.InitTracing(config.Global.Server.Tracing)
	if err != nil {
		log.Fatalf("Error initializing tracing: %v", err)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := shutdownTracing(shutdownCtx); err != nil {
			rt.logger.Warn("Tracing shutdown failed", "error", err)
		}
	}()

	serverCfg := apiserver.DefaultConfig()
	if config.Global.Server.Addr != "" {
		serverCfg.Addr = config.Global.Server.Addr
	}
	if config.Global.Server.RequestsPerSec > 0 {
		serverCfg.RequestsPerSec = config.Global.Server.RequestsPerSec
	}
	if config.Global.Server.Burst > 0 {
		serverCfg.Burst = config.Global.Server.Burst
	}

	server := apiserver.New(rt.manager, rt.logger, serverCfg)
	rt.logger.Info("API server listening", "addr", serverCfg.Addr)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
