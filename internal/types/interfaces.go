// internal/types/interfaces.go
package types

import (
	"context"
)

// SessionStore holds the ephemeral per-search state backing paginated
// browsing. Creation and invalidation-of-previous are separate steps the
// caller must sequence; the store is identity-agnostic beyond keeping the
// owner field for callers to check against.
type SessionStore interface {
	Create(owner UserID, queryLabel string, results []TrackSummary, anchor MessageRef) SessionID
	Get(id SessionID) (*SearchSession, error)
	SetPage(id SessionID, page int) (*SearchSession, error)
	SetAnchor(id SessionID, anchor MessageRef) error
	Invalidate(id SessionID)
	InvalidateOwner(owner UserID) (*SearchSession, bool)
	List() []*SearchSession
}

// StreamResolver walks provider-specific strategies until one yields a
// playable URL or exhausts options (ErrStreamUnavailable).
type StreamResolver interface {
	Resolve(ctx context.Context, trackID string) (*ResolvedStream, error)
}

// AudioFetcher turns a resolved stream into one contiguous byte buffer,
// reassembling segmented playlists transparently (ErrDownloadFailed on
// sub-threshold or empty results).
type AudioFetcher interface {
	Fetch(ctx context.Context, stream *ResolvedStream) ([]byte, int, int, error)
}
