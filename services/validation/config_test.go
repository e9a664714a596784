// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "strict_mode: true\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.StrictMode)
	assert.Equal(t, 200, cfg.TimeoutMS)
	assert.Equal(t, ":8085", cfg.ListenAddr)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Hour, cfg.Cache.TTL.Std())
	assert.Equal(t, "memory", cfg.Cache.Backend)
}

func TestLoadConfigEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err, "running without a config file must work")
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigParsesDurations(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "cache:\n  enabled: true\n  ttl: 30m\n"))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL.Std())

	cfg, err = LoadConfig(writeConfig(t, "cache:\n  enabled: true\n  ttl: 90\n"))
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL.Std())
}

func TestLoadConfigRejectsTimeoutOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"too low", "timeout_ms: 10\n"},
		{"too high", "timeout_ms: 60000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestLoadConfigRejectsBadgerWithoutPath(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "cache:\n  enabled: true\n  backend: badger\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a path")
}

func TestLoadConfigRejectsUnknownInterventionThreshold(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "intervention_threshold: apocalyptic\n"))
	require.Error(t, err)
}

func TestLoadConfigStageOverrides(t *testing.T) {
	path := writeConfig(t, `
stages:
  crisis_detection:
    timeout_ms: 150
    priority: 50
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	p, err := BuildPipeline(cfg)
	require.NoError(t, err)

	ordered := p.OrderedStages()
	require.NotEmpty(t, ordered)
	assert.Equal(t, "crisis_detection", ordered[0])

	for _, reg := range p.Registrations() {
		if reg.ID == "crisis_detection" {
			assert.Equal(t, 150*time.Millisecond, reg.Timeout)
			assert.Equal(t, 50, reg.Priority)
		}
	}
}

func TestBuildPipelineRejectsUnknownStageOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stages = map[string]StageOverride{"sentiment_polish": {TimeoutMS: 100}}

	_, err := BuildPipeline(cfg)
	require.Error(t, err)
}
