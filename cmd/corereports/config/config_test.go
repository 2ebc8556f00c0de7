// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "ollama", cfg.ModelBackend.Type)
	assert.Equal(t, "oracle", cfg.Warehouse.Driver)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5.0, cfg.Server.RequestsPerSec)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotEmpty(t, cfg.Memory.Path)
}

func TestConfigRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelBackend.Type = "openai"
	cfg.Warehouse.DSN = "file:test.db"
	cfg.Server.Tracing = true

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	var loaded CoreReportsConfig
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Equal(t, cfg, loaded)
}

func TestCreateDefaultWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "corereports.yaml")
	require.NoError(t, createDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded CoreReportsConfig
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Equal(t, DefaultConfig(), loaded)
}

func TestPartialConfigKeepsDefaults(t *testing.T) {
	partial := []byte("model_backend:\n  type: openai\n")

	cfg := DefaultConfig()
	require.NoError(t, yaml.Unmarshal(partial, &cfg))

	assert.Equal(t, "openai", cfg.ModelBackend.Type)
	assert.Equal(t, "oracle", cfg.Warehouse.Driver)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}
