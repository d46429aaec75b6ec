package domain

import (
	"testing"
	"time"
)

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeMessageStart, "message_start"},
		{EventTypeText, "text"},
		{EventTypeThinking, "thinking"},
		{EventTypeToolUseStart, "tool_use_start"},
		{EventTypeToolUseEnd, "tool_use_end"},
		{EventTypeError, "error"},
		{EventTypeDone, "done"},
		{EventType(999), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.eventType.String(); got != tt.expected {
			t.Errorf("EventType(%d).String() = %q, want %q", tt.eventType, got, tt.expected)
		}
	}
}

func TestNewTextEvent(t *testing.T) {
	before := time.Now()
	e := NewTextEvent("Hello, world!")
	after := time.Now()

	if e.Type != EventTypeText {
		t.Errorf("expected EventTypeText, got %v", e.Type)
	}
	if e.Timestamp.Before(before) || e.Timestamp.After(after) {
		t.Error("timestamp out of expected range")
	}

	data, ok := e.Data.(TextData)
	if !ok {
		t.Fatalf("expected TextData, got %T", e.Data)
	}
	if data.Content != "Hello, world!" {
		t.Errorf("expected Content 'Hello, world!', got %q", data.Content)
	}
}

func TestNewThinkingEvent(t *testing.T) {
	e := NewThinkingEvent("pondering")

	if e.Type != EventTypeThinking {
		t.Errorf("expected EventTypeThinking, got %v", e.Type)
	}
	data, ok := e.Data.(ThinkingData)
	if !ok {
		t.Fatalf("expected ThinkingData, got %T", e.Data)
	}
	if data.Content != "pondering" {
		t.Errorf("expected Content 'pondering', got %q", data.Content)
	}
}

func TestNewMessageStartEvent(t *testing.T) {
	e := NewMessageStartEvent("msg_01")

	if e.Type != EventTypeMessageStart {
		t.Errorf("expected EventTypeMessageStart, got %v", e.Type)
	}
	data, ok := e.Data.(MessageStartData)
	if !ok {
		t.Fatalf("expected MessageStartData, got %T", e.Data)
	}
	if data.ID != "msg_01" {
		t.Errorf("expected ID 'msg_01', got %q", data.ID)
	}
}

func TestNewToolUseStartEvent(t *testing.T) {
	e := NewToolUseStartEvent("toolu_1", "Bash")

	if e.Type != EventTypeToolUseStart {
		t.Errorf("expected EventTypeToolUseStart, got %v", e.Type)
	}
	data, ok := e.Data.(ToolUseStartData)
	if !ok {
		t.Fatalf("expected ToolUseStartData, got %T", e.Data)
	}
	if data.ID != "toolu_1" {
		t.Errorf("expected ID 'toolu_1', got %q", data.ID)
	}
	if data.Tool != "Bash" {
		t.Errorf("expected Tool 'Bash', got %q", data.Tool)
	}
	if data.Input == nil || len(data.Input) != 0 {
		t.Errorf("expected empty non-nil Input, got %v", data.Input)
	}
}

func TestNewToolUseEndEvent(t *testing.T) {
	e := NewToolUseEndEvent("toolu_1", ToolStatusError, "boom")

	if e.Type != EventTypeToolUseEnd {
		t.Errorf("expected EventTypeToolUseEnd, got %v", e.Type)
	}
	data, ok := e.Data.(ToolUseEndData)
	if !ok {
		t.Fatalf("expected ToolUseEndData, got %T", e.Data)
	}
	if data.ID != "toolu_1" {
		t.Errorf("expected ID 'toolu_1', got %q", data.ID)
	}
	if data.Status != ToolStatusError {
		t.Errorf("expected status error, got %q", data.Status)
	}
	if data.Error != "boom" {
		t.Errorf("expected Error 'boom', got %q", data.Error)
	}
}

func TestNewErrorEvent(t *testing.T) {
	e := NewErrorEvent("connection failed", "E001")

	if e.Type != EventTypeError {
		t.Errorf("expected EventTypeError, got %v", e.Type)
	}
	data, ok := e.Data.(ErrorData)
	if !ok {
		t.Fatalf("expected ErrorData, got %T", e.Data)
	}
	if data.Message != "connection failed" {
		t.Errorf("expected Message 'connection failed', got %q", data.Message)
	}
	if data.Code != "E001" {
		t.Errorf("expected Code 'E001', got %q", data.Code)
	}
}

func TestNewDoneEvent(t *testing.T) {
	e := NewDoneEvent()

	if e.Type != EventTypeDone {
		t.Errorf("expected EventTypeDone, got %v", e.Type)
	}
	if e.Data != nil {
		t.Errorf("expected nil Data for done, got %v", e.Data)
	}
}

func TestTurnRoleLabel(t *testing.T) {
	tests := []struct {
		role     TurnRole
		expected string
	}{
		{TurnRoleUser, "Human"},
		{TurnRoleAssistant, "Assistant"},
		{TurnRole("other"), "Human"},
	}

	for _, tt := range tests {
		if got := tt.role.Label(); got != tt.expected {
			t.Errorf("TurnRole(%q).Label() = %q, want %q", tt.role, got, tt.expected)
		}
	}
}
