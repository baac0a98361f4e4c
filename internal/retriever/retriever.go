// Package retriever ties session lookup, stream resolution, and audio
// fetching together for one (session, index) selection.
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/tunefetch/internal/types"
)

// Orchestrator executes retrievals against the injected collaborators.
type Orchestrator struct {
	sessions types.SessionStore
	resolver types.StreamResolver
	fetcher  types.AudioFetcher
}

// New creates an Orchestrator.
func New(sessions types.SessionStore, resolver types.StreamResolver, fetcher types.AudioFetcher) *Orchestrator {
	return &Orchestrator{sessions: sessions, resolver: resolver, fetcher: fetcher}
}

// Retrieve resolves and downloads the track at the given index of the
// session's results. Preconditions are checked in order, each with its own
// error kind: session exists, requester owns the session, index in bounds.
//
// A failed resolve or fetch restores the session's page cursor to the page
// shown immediately before the attempt, so the caller can re-render the
// browsable page instead of leaving the user on a blank display.
func (o *Orchestrator) Retrieve(ctx context.Context, sessionID types.SessionID, index int, requester types.UserID) (*types.AudioResult, error) {
	session, err := o.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Owner != requester {
		return nil, fmt.Errorf("%w: session %s", types.ErrUnauthorized, sessionID)
	}
	if index < 0 || index >= len(session.Results) {
		return nil, fmt.Errorf("%w: index %d of %d results", types.ErrIndexOutOfRange, index, len(session.Results))
	}

	track := session.Results[index]
	pageBefore := session.CurrentPage
	start := time.Now()

	stream, err := o.resolver.Resolve(ctx, track.ID)
	if err != nil {
		o.restore(sessionID, pageBefore)
		return nil, err
	}

	data, segments, skipped, err := o.fetcher.Fetch(ctx, stream)
	if err != nil {
		o.restore(sessionID, pageBefore)
		return nil, err
	}

	slog.Info("track retrieved",
		"session_id", sessionID,
		"track_id", track.ID,
		"bytes", len(data),
		"segments", segments,
		"skipped", skipped,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return &types.AudioResult{Track: track, Data: data, Segments: segments, Skipped: skipped}, nil
}

// restore puts the page cursor back where it was before the attempt. The
// session may have been invalidated mid-flight; that is fine, the display is
// gone with it.
func (o *Orchestrator) restore(sessionID types.SessionID, page int) {
	if _, err := o.sessions.SetPage(sessionID, page); err != nil {
		slog.Debug("page restore skipped", "session_id", sessionID, "error", err)
	}
}
