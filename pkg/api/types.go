package api

import "time"

type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
)

// ConversationTurn is one prior exchange supplied by the client as context.
// History is caller-owned; the server never stores it.
type ConversationTurn struct {
	Role    TurnRole `json:"role"`
	Content string   `json:"content"`
}

type ChatRequest struct {
	Message             string             `json:"message"`
	WorkspacePath       string             `json:"workspace_path,omitempty"`
	ConversationHistory []ConversationTurn `json:"conversation_history,omitempty"`
}

type EventType string

const (
	EventTypeMessageStart EventType = "message_start"
	EventTypeText         EventType = "text"
	EventTypeThinking     EventType = "thinking"
	EventTypeToolUseStart EventType = "tool_use_start"
	EventTypeToolUseEnd   EventType = "tool_use_end"
	EventTypeError        EventType = "error"
	EventTypeDone         EventType = "done"
)

// StreamEvent is one framed canonical event on the chat stream. Done is
// always the final event; nothing follows it.
type StreamEvent struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

type MessageStartData struct {
	ID string `json:"id"`
}

type TextData struct {
	Content string `json:"content"`
}

type ThinkingData struct {
	Content string `json:"content"`
}

type ToolUseStartData struct {
	ID    string         `json:"id"`
	Tool  string         `json:"tool"`
	Input map[string]any `json:"input"`
}

type ToolUseEndData struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type ErrorData struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ClaudeStatusResponse struct {
	Reachable bool   `json:"reachable"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type TranscriptRecord struct {
	Sequence  int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Payload   string    `json:"payload"`
}

type TranscriptResponse struct {
	RunID   string             `json:"run_id"`
	Records []TranscriptRecord `json:"records"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
