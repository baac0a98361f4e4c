// internal/types/ids.go
package types

import (
	"github.com/google/uuid"
)

type SessionID string
type RunID string

// UserID is the chat-transport identity of an acting user.
type UserID int64

// NewSessionID returns a fresh unguessable session id. Sessions are keyed by
// this token, not by the owner, so concurrent searches never collide.
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

func NewRunID() RunID {
	return RunID(uuid.New().String())
}
