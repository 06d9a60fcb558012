// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api exposes the analysis engine over HTTP. The chat layer
// proper lives elsewhere; this surface only answers "how should this
// query be handled" questions.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/tesselai/contextgate/internal/buildinfo"
	"github.com/tesselai/contextgate/internal/config"
	"github.com/tesselai/contextgate/internal/engine"
	"github.com/tesselai/contextgate/internal/metrics"
)

const shutdownGrace = 10 * time.Second

// Server hosts the HTTP API around an engine.
type Server struct {
	cfg    *config.Config
	engine *engine.Engine
	srv    *http.Server
}

// New builds the server and its routes. The metrics registry may be
// nil, in which case /metrics is not mounted.
func New(cfg *config.Config, e *engine.Engine, m *metrics.Metrics) *Server {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "contextgate",
			"version": buildinfo.Version,
		})
	})

	v1 := router.Group("/v1")
	v1.POST("/analyze", AnalyzeHandler(e))
	v1.GET("/health", HealthHandler(e))
	v1.GET("/stats", StatsHandler(e))
	v1.POST("/feedback", FeedbackHandler(e))

	if m != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))
	}

	return &Server{
		cfg:    cfg,
		engine: e,
		srv: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Run serves until ctx is cancelled, then drains in-flight requests
// before returning.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
