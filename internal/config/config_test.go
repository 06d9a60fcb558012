// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8090, cfg.Port)
	require.Equal(t, "logs", cfg.LogDir)
	require.False(t, cfg.Debug)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, 8090, cfg.Port)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
host: "127.0.0.1"
port: 9100
debug: true
logging-to-file: true
engine:
  pool-size: 4
  stage-timeout: 2s
  resilience:
    error-threshold: 7
  retrieval:
    threshold: 0.4
    max-messages: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", cfg.Host)
	require.Equal(t, 9100, cfg.Port)
	require.True(t, cfg.Debug)
	require.Equal(t, 4, cfg.Engine.PoolSize)
	require.Equal(t, 2*time.Second, cfg.Engine.StageTimeout)
	require.Equal(t, 7, cfg.Engine.Resilience.ErrorThreshold)
	require.Equal(t, 0.4, cfg.Engine.Retrieval.Threshold)
	require.Equal(t, 3, cfg.Engine.Retrieval.MaxMessages)
}

func TestLoad_EnvOverlay(t *testing.T) {
	t.Setenv("CONTEXTGATE_PORT", "9200")
	t.Setenv("CONTEXTGATE_DEBUG", "true")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9100\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9200, cfg.Port, "environment wins over the file")
	require.True(t, cfg.Debug)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not a number\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 70000
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Engine.PoolSize = -1
	require.Error(t, cfg.Validate())

	require.NoError(t, DefaultConfig().Validate())
}
