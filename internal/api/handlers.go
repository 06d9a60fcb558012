// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tesselai/contextgate/internal/chat"
	"github.com/tesselai/contextgate/internal/engine"
)

// IncomingMessage is one conversation turn in an analyze request.
type IncomingMessage struct {
	Role      string                `json:"role" binding:"required"`
	Content   string                `json:"content" binding:"required"`
	Timestamp time.Time             `json:"timestamp"`
	Metadata  *chat.MessageMetadata `json:"metadata,omitempty"`
}

// AnalyzeRequest is the body of POST /v1/analyze.
type AnalyzeRequest struct {
	Query     string            `json:"query" binding:"required"`
	SessionID string            `json:"session_id"`
	Messages  []IncomingMessage `json:"messages"`
}

// toContext converts the wire history into the engine's conversation
// context. Messages with no timestamp are treated as current.
func (r *AnalyzeRequest) toContext() *chat.Context {
	history := chat.NewContext()
	history.SessionID = r.SessionID
	for _, m := range r.Messages {
		msg := chat.NewMessage(chat.Role(strings.ToLower(m.Role)), m.Content)
		if !m.Timestamp.IsZero() {
			msg.Timestamp = m.Timestamp
		}
		msg.Metadata = m.Metadata
		history.Append(msg)
	}
	return history
}

// AnalyzeHandler returns the handler for POST /v1/analyze.
func AnalyzeHandler(e *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result := e.Analyze(c.Request.Context(), req.Query, req.toContext())
		c.JSON(http.StatusOK, result)
	}
}

// HealthHandler returns the handler for GET /v1/health. The overall
// status is the worst component status, so load balancers can act on
// the top-level field alone.
func HealthHandler(e *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		components := e.SystemHealth()

		status := "healthy"
		code := http.StatusOK
		for _, comp := range components {
			switch comp.Status {
			case "error":
				status = "error"
				code = http.StatusServiceUnavailable
			case "degraded":
				if status == "healthy" {
					status = "degraded"
				}
			}
		}

		c.JSON(code, gin.H{
			"status":     status,
			"components": components,
		})
	}
}

// StatsHandler returns the handler for GET /v1/stats.
func StatsHandler(e *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, e.Stats())
	}
}

// FeedbackRequest is the body of POST /v1/feedback. Exactly one of
// Component or PatternID should be set: component feedback trains the
// confidence scorer, pattern feedback adjusts pattern effectiveness.
type FeedbackRequest struct {
	Component  string `json:"component,omitempty"`
	PatternID  string `json:"pattern_id,omitempty"`
	WasCorrect bool   `json:"was_correct"`
}

// FeedbackHandler returns the handler for POST /v1/feedback.
func FeedbackHandler(e *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FeedbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Component == "" && req.PatternID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "component or pattern_id is required"})
			return
		}

		if req.Component != "" {
			e.RecordOutcome(req.Component, req.WasCorrect)
		}
		if req.PatternID != "" {
			e.RecordPatternFeedback(req.PatternID, req.WasCorrect)
		}
		c.JSON(http.StatusOK, gin.H{"status": "recorded"})
	}
}
