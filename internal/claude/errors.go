package claude

import "errors"

// ErrEmptyMessage is returned when a chat request carries no usable message
// text. Checked before any process is spawned.
var ErrEmptyMessage = errors.New("message cannot be empty")

// Stable machine-readable codes attached to Error events. Clients dispatch
// on these, so they never change.
const (
	AuthErrorCode  = "AUTH_ERROR"
	SpawnErrorCode = "SPAWN_ERROR"
)
