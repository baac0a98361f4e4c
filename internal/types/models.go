// internal/types/models.go
package types

import (
	"time"
)

// TrackSummary is one catalog search result. Read-only after fetch.
type TrackSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Duration   int    `json:"duration_seconds"`
	ArtworkURL string `json:"artwork_url,omitempty"`
}

// MessageRef is an opaque handle to one chat message.
type MessageRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// Zero reports whether the ref has been set.
func (m MessageRef) Zero() bool {
	return m.ChatID == 0 && m.MessageID == 0
}

// SearchSession is one page-able result set tied to one initiating user
// action. Results are immutable once fetched; only CurrentPage and Anchor
// mutate after creation.
type SearchSession struct {
	ID          SessionID      `json:"id"`
	Owner       UserID         `json:"owner"`
	QueryLabel  string         `json:"query_label"`
	Results     []TrackSummary `json:"results"`
	CurrentPage int            `json:"current_page"`
	Anchor      MessageRef     `json:"anchor"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ResolvedStream is the outcome of a resolution attempt. Computed per
// retrieval, never cached across attempts.
type ResolvedStream struct {
	URL       string
	Segmented bool
}

// AudioResult is a fully reassembled audio payload plus the track metadata
// used for captioning. Skipped counts playlist segments dropped during
// best-effort reassembly; callers should surface it rather than hide it.
type AudioResult struct {
	Track    TrackSummary
	Data     []byte
	Segments int
	Skipped  int
}

// EventKind classifies an inbound chat event.
type EventKind string

const (
	EventText     EventKind = "text"
	EventCommand  EventKind = "command"
	EventCallback EventKind = "callback"
)

// InboundEvent is one user action delivered by the chat transport.
type InboundEvent struct {
	Kind         EventKind
	UserID       UserID
	ChatID       int64
	MessageID    int
	Text         string
	Command      string
	Args         string
	CallbackID   string
	CallbackData string
}
