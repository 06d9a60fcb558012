// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the entry point for the contextgate server.
// It hosts the query analysis engine behind an HTTP API so a chat
// service can ask how to handle a query before spending tokens on it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/tesselai/contextgate/internal/api"
	"github.com/tesselai/contextgate/internal/buildinfo"
	"github.com/tesselai/contextgate/internal/config"
	"github.com/tesselai/contextgate/internal/engine"
	"github.com/tesselai/contextgate/internal/logging"
	"github.com/tesselai/contextgate/internal/metrics"
)

var (
	Version           = "dev"
	Commit            = "none"
	BuildDate         = "unknown"
	DefaultConfigPath = "config.yaml"
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	fmt.Println(buildinfo.String())

	var configPath string
	flag.StringVar(&configPath, "config", DefaultConfigPath, "Configure File Path")
	flag.Parse()

	// .env is optional; flags and CONTEXTGATE_* variables win over it.
	if wd, err := os.Getwd(); err == nil {
		if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil {
			log.Debugf("no .env file loaded: %v", errLoad)
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	if err := logging.ConfigureLogOutput(cfg.LoggingToFile, cfg.LogDir); err != nil {
		log.Fatalf("failed to configure log output: %v", err)
	}

	m := metrics.New()
	opts := cfg.Engine
	opts.Metrics = m
	opts.Logger = log.StandardLogger()

	eng, err := engine.New(opts)
	if err != nil {
		log.Fatalf("failed to build engine: %v", err)
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.New(cfg, eng, m)
	if err := server.Run(ctx); err != nil {
		log.Errorf("server exited: %v", err)
		os.Exit(1)
	}
	log.Info("contextgate stopped")
}
