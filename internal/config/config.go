// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the service configuration: YAML file first, then
// CONTEXTGATE_* environment variables on top.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/goccy/go-yaml"

	"github.com/tesselai/contextgate/internal/engine"
)

// Config represents the service configuration, loaded from a YAML file.
type Config struct {
	// Host is the network interface the API server binds to. Empty binds
	// all interfaces; use "127.0.0.1" for local-only access.
	Host string `yaml:"host" env:"CONTEXTGATE_HOST"`
	// Port is the network port the API server listens on.
	Port int `yaml:"port" env:"CONTEXTGATE_PORT"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug" env:"CONTEXTGATE_DEBUG"`

	// LoggingToFile writes logs to rotating files instead of stdout.
	LoggingToFile bool `yaml:"logging-to-file" env:"CONTEXTGATE_LOGGING_TO_FILE"`
	// LogDir is the directory rotating log files are written to.
	LogDir string `yaml:"log-dir" env:"CONTEXTGATE_LOG_DIR"`

	// Engine nests the analysis pipeline options.
	Engine engine.Options `yaml:"engine"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Host:   "",
		Port:   8090,
		LogDir: "logs",
	}
}

// Load reads the configuration file at path (optional; defaults apply
// when it does not exist) and overlays CONTEXTGATE_* environment
// variables.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Missing file is fine; defaults plus environment apply.
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: environment overlay: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the parts that would otherwise fail at bind time.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.Engine.PoolSize < 0 {
		return fmt.Errorf("config: engine pool-size must not be negative")
	}
	return nil
}
