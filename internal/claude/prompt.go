package claude

import (
	"strings"

	"github.com/codedeck/codedeck/internal/domain"
)

// maxHistoryTurns bounds how much conversation history is replayed into the
// prompt. Older turns are silently dropped.
const maxHistoryTurns = 20

const historyPreamble = "The conversation so far:"

// ComposePrompt flattens the conversation history and the new message into
// the single text prompt the tool reads from stdin. With no history the
// message passes through unchanged. Pure; no I/O.
func ComposePrompt(message string, history []domain.ConversationTurn) string {
	if len(history) == 0 {
		return message
	}

	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	parts := make([]string, 0, len(history)+2)
	parts = append(parts, historyPreamble)
	for _, turn := range history {
		parts = append(parts, turn.Role.Label()+": "+turn.Content)
	}
	parts = append(parts, "Human: "+message)

	return strings.Join(parts, "\n\n")
}
