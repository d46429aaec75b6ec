package domain

import "time"

type EventType int

const (
	EventTypeMessageStart EventType = iota
	EventTypeText
	EventTypeThinking
	EventTypeToolUseStart
	EventTypeToolUseEnd
	EventTypeError
	EventTypeDone
)

func (t EventType) String() string {
	switch t {
	case EventTypeMessageStart:
		return "message_start"
	case EventTypeText:
		return "text"
	case EventTypeThinking:
		return "thinking"
	case EventTypeToolUseStart:
		return "tool_use_start"
	case EventTypeToolUseEnd:
		return "tool_use_end"
	case EventTypeError:
		return "error"
	case EventTypeDone:
		return "done"
	default:
		return "unknown"
	}
}

type ToolStatus string

const (
	ToolStatusSuccess ToolStatus = "success"
	ToolStatusError   ToolStatus = "error"
)

// Event is the bridge's only public output type. Done is terminal: exactly
// one per stream, always last.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      any
}

type MessageStartData struct {
	ID string
}

type TextData struct {
	Content string
}

type ThinkingData struct {
	Content string
}

// ToolUseStartData carries an empty Input map. Tool arguments arrive as
// incremental JSON deltas that the bridge does not reconstruct.
type ToolUseStartData struct {
	ID    string
	Tool  string
	Input map[string]any
}

type ToolUseEndData struct {
	ID     string
	Status ToolStatus
	Error  string
}

type ErrorData struct {
	Message string
	Code    string
}

func NewMessageStartEvent(id string) Event {
	return Event{
		Type:      EventTypeMessageStart,
		Timestamp: time.Now(),
		Data:      MessageStartData{ID: id},
	}
}

func NewTextEvent(content string) Event {
	return Event{
		Type:      EventTypeText,
		Timestamp: time.Now(),
		Data:      TextData{Content: content},
	}
}

func NewThinkingEvent(content string) Event {
	return Event{
		Type:      EventTypeThinking,
		Timestamp: time.Now(),
		Data:      ThinkingData{Content: content},
	}
}

func NewToolUseStartEvent(id, tool string) Event {
	return Event{
		Type:      EventTypeToolUseStart,
		Timestamp: time.Now(),
		Data: ToolUseStartData{
			ID:    id,
			Tool:  tool,
			Input: map[string]any{},
		},
	}
}

func NewToolUseEndEvent(id string, status ToolStatus, errText string) Event {
	return Event{
		Type:      EventTypeToolUseEnd,
		Timestamp: time.Now(),
		Data: ToolUseEndData{
			ID:     id,
			Status: status,
			Error:  errText,
		},
	}
}

func NewErrorEvent(message, code string) Event {
	return Event{
		Type:      EventTypeError,
		Timestamp: time.Now(),
		Data: ErrorData{
			Message: message,
			Code:    code,
		},
	}
}

func NewDoneEvent() Event {
	return Event{
		Type:      EventTypeDone,
		Timestamp: time.Now(),
	}
}
