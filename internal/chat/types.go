// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package chat defines the conversation data model consumed by the analysis
// pipeline. Messages and contexts are owned by the calling chat layer; the
// engine only reads them.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageMetadata carries engagement signals attached to a message by the
// chat layer after the fact (e.g. once the user replied or marked an issue
// solved). All fields are optional.
type MessageMetadata struct {
	ContainedCode         bool `json:"contained_code,omitempty"`
	UserFollowupQuestions bool `json:"user_followup_questions,omitempty"`
	UserSaidThanks        bool `json:"user_said_thanks,omitempty"`
	LedToWorkingSolution  bool `json:"led_to_working_solution,omitempty"`
	ErrorContext          bool `json:"error_context,omitempty"`
}

// Message is a single conversation turn. Immutable once created.
type Message struct {
	ID        string           `json:"id"`
	Content   string           `json:"content"`
	Role      Role             `json:"role"`
	Timestamp time.Time        `json:"timestamp"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}

// NewMessage creates a message with a generated ID and the current time.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Content:   content,
		Role:      role,
		Timestamp: time.Now(),
	}
}

// Context is the ordered conversation history handed to the engine.
// Insertion order is chronological. The engine never mutates it.
type Context struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
	Timestamp time.Time `json:"timestamp"`
}

// NewContext creates an empty conversation context with a fresh session ID.
func NewContext() *Context {
	return &Context{
		SessionID: uuid.NewString(),
		Timestamp: time.Now(),
	}
}

// Append returns the context with msg added. The caller owns the history;
// this helper exists for tests and the HTTP host.
func (c *Context) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
}

// Len returns the number of messages in the history.
func (c *Context) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Messages)
}

// LastUserMessage returns the most recent user-authored message, or nil.
func (c *Context) LastUserMessage() *Message {
	if c == nil {
		return nil
	}
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleUser {
			return &c.Messages[i]
		}
	}
	return nil
}
