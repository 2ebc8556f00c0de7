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
	"os"

	// SQL drivers selected by warehouse.driver in the config.
	_ "github.com/sijms/go-ora/v2"
	_ "modernc.org/sqlite"

	"github.com/yazeedmshayekh2/CoreReports/cmd/corereports/config"
	"github.com/yazeedmshayekh2/CoreReports/pkg/logging"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/knowledge"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/memory"
	"github.com/yazeedmshayekh2/CoreReports/services/llm"
	"github.com/yazeedmshayekh2/CoreReports/services/warehouse"
)

// appRuntime bundles everything a command needs to answer questions.
// Close releases the database, the knowledge watcher, and the log file.
type appRuntime struct {
	manager   *intelligence.Manager
	db        *warehouse.DB
	knowledge *knowledge.Store
	logger    *logging.Logger
}

func (rt *appRuntime) Close() {
	if rt.knowledge != nil {
		rt.knowledge.Close()
	}
	if rt.db != nil {
		rt.db.Close()
	}
	if rt.logger != nil {
		rt.logger.Close()
	}
}

// newRuntime builds the full pipeline from the loaded config. Flag
// overrides (backend, max cycles) take precedence over the YAML values.
func newRuntime(ctx context.Context, service string, cycles int) (*appRuntime, error) {
	cfg := config.Global

	logger := logging.New(logging.Config{
		Level:   parseLogLevel(cfg.Logging.Level),
		LogDir:  cfg.Logging.Dir,
		Service: service,
		JSON:    cfg.Logging.JSON,
	})

	applyBackendEnv(cfg.ModelBackend)
	backend := cfg.ModelBackend.Type
	if backendType != "" {
		backend = backendType
	}
	client, err := llm.NewClient(backend)
	if err != nil {
		logger.Close()
		return nil, err
	}

	db, err := warehouse.Open(ctx, cfg.Warehouse.Driver, cfg.Warehouse.DSN, logger)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("opening warehouse: %w", err)
	}

	store, err := knowledge.NewStore(cfg.Knowledge.OverlayPath, logger)
	if err != nil {
		db.Close()
		logger.Close()
		return nil, fmt.Errorf("loading domain knowledge: %w", err)
	}
	if cfg.Knowledge.Watch {
		if err := store.Watch(); err != nil {
			logger.Warn("Knowledge overlay watch unavailable", "error", err)
		}
	}

	mem := memory.NewStore(cfg.Memory.Path, logger)

	manager := intelligence.NewManager(client, db, store, mem, logger,
		intelligence.Config{MaxCycles: cycles})

	return &appRuntime{manager: manager, db: db, knowledge: store, logger: logger}, nil
}

// applyBackendEnv projects config values into the environment variables
// the llm package reads. Explicit environment settings win.
func applyBackendEnv(backend config.BackendConfig) {
	setEnvDefault := func(key, value string) {
		if value != "" && os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
	setEnvDefault("OLLAMA_BASE_URL", backend.BaseURL)
	setEnvDefault("OLLAMA_MODEL", backend.Model)
	setEnvDefault("OPENAI_MODEL", backend.Model)
}

func parseLogLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}
