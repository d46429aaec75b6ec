package domain

type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
)

// Label returns the speaker label used when a turn is rendered into a
// flattened prompt.
func (r TurnRole) Label() string {
	switch r {
	case TurnRoleAssistant:
		return "Assistant"
	default:
		return "Human"
	}
}

// ConversationTurn is one prior exchange, oldest first in a history slice.
// The history is owned by the caller and read-only to the bridge.
type ConversationTurn struct {
	Role    TurnRole
	Content string
}
