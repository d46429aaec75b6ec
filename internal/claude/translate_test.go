package claude

import (
	"io"
	"log/slog"
	"testing"

	"github.com/codedeck/codedeck/internal/domain"
)

func newTestTranslator() *Translator {
	return NewTranslator(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// Dispatch coverage: which discriminators produce an event at all.
func TestTranslateDispatch(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantOK   bool
		wantType domain.EventType
	}{
		{"system dropped", `{"type":"system","subtype":"init"}`, false, 0},
		{"content_block_stop dropped", `{"type":"content_block_stop","index":0}`, false, 0},
		{"message_stop dropped", `{"type":"message_stop"}`, false, 0},
		{"message_delta dropped", `{"type":"message_delta","delta":{"stop_reason":"end_turn"}}`, false, 0},
		{"unknown dropped", `{"type":"wild_new_thing"}`, false, 0},
		{"text delta", `{"type":"content_block_delta","delta":{"type":"text_delta","text":"Hi"}}`, true, domain.EventTypeText},
		{"thinking delta", `{"type":"content_block_delta","delta":{"type":"thinking_delta","thinking":"hmm"}}`, true, domain.EventTypeThinking},
		{"input json delta dropped", `{"type":"content_block_delta","delta":{"type":"input_json_delta","partial_json":"{\"pa"}}`, false, 0},
		{"tool result", `{"type":"result","tool_use_id":"t1","is_error":true,"error":"boom"}`, true, domain.EventTypeToolUseEnd},
		{"final result dropped", `{"type":"result","subtype":"success","result":"full text"}`, false, 0},
		{"error event", `{"type":"error","error":{"message":"bad"}}`, true, domain.EventTypeError},
		{"empty line dropped", "", false, 0},
		{"malformed object dropped", `{"type":"assistant",`, false, 0},
		{"malformed array dropped", `[1,2`, false, 0},
		{"plain text forwarded", "Installing dependencies...", true, domain.EventTypeText},
	}

	tr := newTestTranslator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, ok := tr.Translate(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && event.Type != tt.wantType {
				t.Errorf("type = %v, want %v", event.Type, tt.wantType)
			}
		})
	}
}

func TestTranslateTextDelta(t *testing.T) {
	event, ok := newTestTranslator().Translate(`{"type":"content_block_delta","delta":{"type":"text_delta","text":"Hi"}}`)
	if !ok {
		t.Fatal("expected an event")
	}
	data, isText := event.Data.(domain.TextData)
	if !isText || data.Content != "Hi" {
		t.Errorf("expected Text{Hi}, got %#v", event.Data)
	}
}

func TestTranslateToolResult(t *testing.T) {
	event, ok := newTestTranslator().Translate(`{"type":"result","tool_use_id":"t1","is_error":true,"error":"boom"}`)
	if !ok {
		t.Fatal("expected an event")
	}
	data, isEnd := event.Data.(domain.ToolUseEndData)
	if !isEnd {
		t.Fatalf("expected ToolUseEndData, got %#v", event.Data)
	}
	if data.ID != "t1" || data.Status != domain.ToolStatusError || data.Error != "boom" {
		t.Errorf("unexpected payload: %#v", data)
	}
}

func TestTranslateToolResultSuccess(t *testing.T) {
	event, _ := newTestTranslator().Translate(`{"type":"result","tool_use_id":"t2","is_error":false}`)
	data := event.Data.(domain.ToolUseEndData)
	if data.Status != domain.ToolStatusSuccess || data.Error != "" {
		t.Errorf("unexpected payload: %#v", data)
	}
}

func TestTranslateAssistantText(t *testing.T) {
	line := `{"type":"assistant","message":{"id":"m1","content":[{"type":"text","text":"Hello there"}]}}`
	event, ok := newTestTranslator().Translate(line)
	if !ok {
		t.Fatal("expected an event")
	}
	data, isText := event.Data.(domain.TextData)
	if !isText || data.Content != "Hello there" {
		t.Errorf("expected Text{Hello there}, got %#v", event.Data)
	}
}

func TestTranslateAssistantThinking(t *testing.T) {
	line := `{"type":"assistant","message":{"id":"m1","content":[{"type":"thinking","thinking":"pondering"}]}}`
	event, ok := newTestTranslator().Translate(line)
	if !ok {
		t.Fatal("expected an event")
	}
	data, isThinking := event.Data.(domain.ThinkingData)
	if !isThinking || data.Content != "pondering" {
		t.Errorf("expected Thinking{pondering}, got %#v", event.Data)
	}
}

// With several blocks only the first text-or-thinking block counts.
func TestTranslateAssistantFirstBlockWins(t *testing.T) {
	line := `{"type":"assistant","message":{"id":"m1","content":[` +
		`{"type":"thinking","thinking":"first"},` +
		`{"type":"text","text":"second"}]}}`
	event, ok := newTestTranslator().Translate(line)
	if !ok {
		t.Fatal("expected an event")
	}
	if event.Type != domain.EventTypeThinking {
		t.Errorf("expected the thinking block to win, got %v", event.Type)
	}
}

func TestTranslateAssistantEmptyContent(t *testing.T) {
	event, ok := newTestTranslator().Translate(`{"type":"assistant","message":{"id":"m1","content":[]}}`)
	if !ok {
		t.Fatal("expected an event")
	}
	data, isStart := event.Data.(domain.MessageStartData)
	if !isStart || data.ID != "m1" {
		t.Errorf("expected MessageStart{m1}, got %#v", event.Data)
	}
}

func TestTranslateAssistantGeneratesID(t *testing.T) {
	event, ok := newTestTranslator().Translate(`{"type":"assistant","message":{"content":[]}}`)
	if !ok {
		t.Fatal("expected an event")
	}
	if data := event.Data.(domain.MessageStartData); data.ID == "" {
		t.Error("expected a generated id for an anonymous message")
	}
}

// Tool-use-only content already has a carrier via content_block_start.
func TestTranslateAssistantToolUseOnly(t *testing.T) {
	line := `{"type":"assistant","message":{"id":"m1","content":[{"type":"tool_use","id":"t1","name":"Bash"}]}}`
	if _, ok := newTestTranslator().Translate(line); ok {
		t.Error("expected no event for tool-use-only assistant message")
	}
}

func TestTranslateBlockStartThinking(t *testing.T) {
	event, ok := newTestTranslator().Translate(`{"type":"content_block_start","index":0,"content_block":{"type":"thinking"}}`)
	if !ok {
		t.Fatal("expected an event")
	}
	data, isThinking := event.Data.(domain.ThinkingData)
	if !isThinking || data.Content != "" {
		t.Errorf("expected empty Thinking opener, got %#v", event.Data)
	}
}

func TestTranslateBlockStartToolUse(t *testing.T) {
	line := `{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"Bash","input":{}}}`
	event, ok := newTestTranslator().Translate(line)
	if !ok {
		t.Fatal("expected an event")
	}
	data, isStart := event.Data.(domain.ToolUseStartData)
	if !isStart {
		t.Fatalf("expected ToolUseStartData, got %#v", event.Data)
	}
	if data.ID != "toolu_1" || data.Tool != "Bash" {
		t.Errorf("unexpected payload: %#v", data)
	}
	if data.Input == nil || len(data.Input) != 0 {
		t.Errorf("input should be an empty placeholder, got %#v", data.Input)
	}
}

func TestTranslateBlockStartText(t *testing.T) {
	if _, ok := newTestTranslator().Translate(`{"type":"content_block_start","content_block":{"type":"text","text":""}}`); ok {
		t.Error("text block start should not produce an event")
	}
}

func TestTranslateErrorNested(t *testing.T) {
	event, ok := newTestTranslator().Translate(`{"type":"error","error":{"message":"quota exceeded","code":"RATE_LIMIT"}}`)
	if !ok {
		t.Fatal("expected an event")
	}
	data := event.Data.(domain.ErrorData)
	if data.Message != "quota exceeded" || data.Code != "RATE_LIMIT" {
		t.Errorf("unexpected payload: %#v", data)
	}
}

func TestTranslateErrorTopLevelFallback(t *testing.T) {
	event, ok := newTestTranslator().Translate(`{"type":"error","message":"something broke"}`)
	if !ok {
		t.Fatal("expected an event")
	}
	if data := event.Data.(domain.ErrorData); data.Message != "something broke" {
		t.Errorf("unexpected payload: %#v", data)
	}
}

func TestTranslateErrorNoMessage(t *testing.T) {
	event, ok := newTestTranslator().Translate(`{"type":"error"}`)
	if !ok {
		t.Fatal("expected an event")
	}
	if data := event.Data.(domain.ErrorData); data.Message == "" {
		t.Error("expected a placeholder message")
	}
}

func TestTranslatePlainTextPassthrough(t *testing.T) {
	event, ok := newTestTranslator().Translate("Cloning repository...")
	if !ok {
		t.Fatal("expected an event")
	}
	if data := event.Data.(domain.TextData); data.Content != "Cloning repository..." {
		t.Errorf("unexpected payload: %#v", data)
	}
}

func TestTranslateStreamEventUnwraps(t *testing.T) {
	line := `{"type":"stream_event","event":{"type":"content_block_delta","delta":{"type":"text_delta","text":"inner"}}}`
	event, ok := newTestTranslator().Translate(line)
	if !ok {
		t.Fatal("expected an event")
	}
	if data := event.Data.(domain.TextData); data.Content != "inner" {
		t.Errorf("unexpected payload: %#v", data)
	}
}

func TestTranslateStreamEventNoRecursion(t *testing.T) {
	line := `{"type":"stream_event","event":{"type":"stream_event","event":{"type":"message_stop"}}}`
	if _, ok := newTestTranslator().Translate(line); ok {
		t.Error("double-wrapped envelope should be dropped")
	}
}
