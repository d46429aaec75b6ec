package claude

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/codedeck/codedeck/internal/domain"
)

// baseMessage carries only the discriminator; the full payload is decoded a
// second time once the shape is known.
type baseMessage struct {
	Type string `json:"type"`
}

type assistantMessage struct {
	Message struct {
		ID      string         `json:"id"`
		Content []contentBlock `json:"content"`
	} `json:"message"`
}

type contentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Thinking string `json:"thinking"`
	ID       string `json:"id"`
	Name     string `json:"name"`
}

type blockStartMessage struct {
	ContentBlock contentBlock `json:"content_block"`
}

type blockDeltaMessage struct {
	Delta struct {
		Type     string `json:"type"`
		Text     string `json:"text"`
		Thinking string `json:"thinking"`
	} `json:"delta"`
}

// resultMessage's error field is a plain string, unlike the error event's
// nested object.
type resultMessage struct {
	ToolUseID string `json:"tool_use_id"`
	IsError   bool   `json:"is_error"`
	Error     string `json:"error"`
}

type errorMessage struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
	Message string `json:"message"`
}

type streamEnvelope struct {
	Event json.RawMessage `json:"event"`
}

// Translator maps one line of the tool's stream-json output to at most one
// canonical event. Stateless across lines; every line stands alone.
type Translator struct {
	log *slog.Logger
}

func NewTranslator(log *slog.Logger) *Translator {
	if log == nil {
		log = slog.Default()
	}
	return &Translator{log: log}
}

// Translate parses one complete line and returns the canonical event it
// maps to, if any. Lines that fail to parse are forwarded as plain text
// when they look like incidental tool output, and dropped when they look
// like broken structured data.
func (t *Translator) Translate(line string) (domain.Event, bool) {
	var base baseMessage
	if err := json.Unmarshal([]byte(line), &base); err != nil {
		return t.passthrough(line)
	}
	return t.dispatch(base.Type, []byte(line))
}

func (t *Translator) dispatch(kind string, raw []byte) (domain.Event, bool) {
	switch kind {
	case "system", "content_block_stop", "message_stop", "message_delta":
		// Structural bookkeeping; nothing for the client.
		return domain.Event{}, false
	case "assistant":
		return t.translateAssistant(raw)
	case "result":
		return t.translateResult(raw)
	case "content_block_start":
		return t.translateBlockStart(raw)
	case "content_block_delta":
		return t.translateBlockDelta(raw)
	case "error":
		return t.translateError(raw)
	case "stream_event":
		return t.translateStreamEvent(raw)
	default:
		t.log.Debug("ignoring unknown stream event", "type", kind)
		return domain.Event{}, false
	}
}

// passthrough handles non-JSON lines. Plain diagnostic text is worth
// showing; a line that opens like structured data but failed to parse is
// garbage and gets dropped.
func (t *Translator) passthrough(line string) (domain.Event, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return domain.Event{}, false
	}
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		t.log.Debug("dropping malformed stream line", "length", len(trimmed))
		return domain.Event{}, false
	}
	return domain.NewTextEvent(line), true
}

// translateAssistant emits the first text or thinking block of the message.
// The tool sends one block per event in practice; picking the first avoids
// inventing an ordering for a case the format does not define. A message
// with no content yet becomes a MessageStart so the client can anchor a new
// message immediately.
func (t *Translator) translateAssistant(raw []byte) (domain.Event, bool) {
	var msg assistantMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.Event{}, false
	}

	for _, block := range msg.Message.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				return domain.NewTextEvent(block.Text), true
			}
		case "thinking":
			if block.Thinking != "" {
				return domain.NewThinkingEvent(block.Thinking), true
			}
		}
	}

	if len(msg.Message.Content) == 0 {
		id := msg.Message.ID
		if id == "" {
			id = uuid.NewString()
		}
		return domain.NewMessageStartEvent(id), true
	}
	return domain.Event{}, false
}

// translateResult reports tool completion. A result without a tool id only
// repeats text that already streamed incrementally, so it is dropped.
func (t *Translator) translateResult(raw []byte) (domain.Event, bool) {
	var msg resultMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.Event{}, false
	}
	if msg.ToolUseID == "" {
		return domain.Event{}, false
	}

	status := domain.ToolStatusSuccess
	if msg.IsError {
		status = domain.ToolStatusError
	}
	return domain.NewToolUseEndEvent(msg.ToolUseID, status, msg.Error), true
}

func (t *Translator) translateBlockStart(raw []byte) (domain.Event, bool) {
	var msg blockStartMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.Event{}, false
	}

	switch msg.ContentBlock.Type {
	case "thinking":
		// Opens a thinking segment; content follows as deltas.
		return domain.NewThinkingEvent(""), true
	case "tool_use":
		return domain.NewToolUseStartEvent(msg.ContentBlock.ID, msg.ContentBlock.Name), true
	}
	return domain.Event{}, false
}

func (t *Translator) translateBlockDelta(raw []byte) (domain.Event, bool) {
	var msg blockDeltaMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.Event{}, false
	}

	switch msg.Delta.Type {
	case "text_delta":
		return domain.NewTextEvent(msg.Delta.Text), true
	case "thinking_delta":
		return domain.NewThinkingEvent(msg.Delta.Thinking), true
	}
	// input_json_delta and signature_delta carry nothing renderable.
	return domain.Event{}, false
}

func (t *Translator) translateError(raw []byte) (domain.Event, bool) {
	var msg errorMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.Event{}, false
	}

	message := msg.Error.Message
	if message == "" {
		message = msg.Message
	}
	if message == "" {
		message = "unknown error"
	}
	return domain.NewErrorEvent(message, msg.Error.Code), true
}

// translateStreamEvent unwraps the envelope newer CLI versions put around
// raw API events and dispatches on the inner payload.
func (t *Translator) translateStreamEvent(raw []byte) (domain.Event, bool) {
	var envelope streamEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return domain.Event{}, false
	}

	var inner baseMessage
	if err := json.Unmarshal(envelope.Event, &inner); err != nil {
		return domain.Event{}, false
	}
	if inner.Type == "stream_event" {
		// One level of wrapping only; refuse to recurse.
		return domain.Event{}, false
	}
	return t.dispatch(inner.Type, envelope.Event)
}
