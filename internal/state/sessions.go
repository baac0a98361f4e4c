// internal/state/sessions.go
package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/user/tunefetch/internal/types"
)

// SessionStore is the in-memory store for ephemeral search sessions. The
// store mutex guards the maps; each session additionally carries its own
// mutex so a page flip and a retrieval attempt racing on the same session id
// serialize without blocking unrelated sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[types.SessionID]*entry
	byOwner  map[types.UserID]types.SessionID
	pageSize int
}

type entry struct {
	mu      sync.Mutex
	session types.SearchSession
}

// NewSessionStore creates a store with the given page size.
func NewSessionStore(pageSize int) *SessionStore {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &SessionStore{
		sessions: make(map[types.SessionID]*entry),
		byOwner:  make(map[types.UserID]types.SessionID),
		pageSize: pageSize,
	}
}

// PageSize returns the configured results-per-page.
func (s *SessionStore) PageSize() int { return s.pageSize }

// Create allocates a fresh session on page 1. It does not touch any prior
// session of the same owner; invalidation of the previous session is a
// separate step the caller must sequence before this one.
func (s *SessionStore) Create(owner types.UserID, queryLabel string, results []types.TrackSummary, anchor types.MessageRef) types.SessionID {
	id := types.NewSessionID()
	e := &entry{session: types.SearchSession{
		ID:          id,
		Owner:       owner,
		QueryLabel:  queryLabel,
		Results:     results,
		CurrentPage: 1,
		Anchor:      anchor,
		CreatedAt:   time.Now(),
	}}

	s.mu.Lock()
	s.sessions[id] = e
	s.byOwner[owner] = id
	s.mu.Unlock()
	return id
}

// Get returns a snapshot of the session, or ErrSessionExpired when the id is
// unknown (never existed or was removed).
func (s *SessionStore) Get(id types.SessionID) (*types.SearchSession, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	snap := e.session
	e.mu.Unlock()
	return &snap, nil
}

// SetPage validates 1 <= page <= total pages, mutates the cursor atomically,
// and returns the updated session for rendering.
func (s *SessionStore) SetPage(id types.SessionID, page int) (*types.SearchSession, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	total := TotalPages(len(e.session.Results), s.pageSize)
	if page < 1 || page > total {
		return nil, fmt.Errorf("page %d out of range [1, %d]", page, total)
	}
	e.session.CurrentPage = page
	snap := e.session
	return &snap, nil
}

// SetAnchor records the chat message displaying this session's current page.
func (s *SessionStore) SetAnchor(id types.SessionID, anchor types.MessageRef) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.session.Anchor = anchor
	e.mu.Unlock()
	return nil
}

// Invalidate removes the session by id. Removing an absent id is a no-op.
func (s *SessionStore) Invalidate(id types.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return
	}
	delete(s.sessions, id)
	if s.byOwner[e.session.Owner] == id {
		delete(s.byOwner, e.session.Owner)
	}
}

// InvalidateOwner removes the owner's live session, returning a snapshot of
// what was removed so the caller can tear down its anchor message. Idempotent.
func (s *SessionStore) InvalidateOwner(owner types.UserID) (*types.SearchSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byOwner[owner]
	if !ok {
		return nil, false
	}
	e, ok := s.sessions[id]
	delete(s.byOwner, owner)
	if !ok {
		return nil, false
	}
	delete(s.sessions, id)
	snap := e.session
	return &snap, true
}

// List returns snapshots of all live sessions.
func (s *SessionStore) List() []*types.SearchSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.SearchSession, 0, len(s.sessions))
	for _, e := range s.sessions {
		e.mu.Lock()
		snap := e.session
		e.mu.Unlock()
		out = append(out, &snap)
	}
	return out
}

// Sweep removes every session created before the cutoff, returning snapshots
// of the removed sessions.
func (s *SessionStore) Sweep(cutoff time.Time) []*types.SearchSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []*types.SearchSession
	for id, e := range s.sessions {
		if e.session.CreatedAt.Before(cutoff) {
			snap := e.session
			removed = append(removed, &snap)
			delete(s.sessions, id)
			if s.byOwner[snap.Owner] == id {
				delete(s.byOwner, snap.Owner)
			}
		}
	}
	return removed
}

func (s *SessionStore) lookup(id types.SessionID) (*entry, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrSessionExpired, id)
	}
	return e, nil
}

// TotalPages returns the 1-indexed page count; an empty result set still has
// one (empty) page so the cursor invariant holds.
func TotalPages(results, pageSize int) int {
	if results <= 0 {
		return 1
	}
	return (results + pageSize - 1) / pageSize
}

// PageSlice returns the displayed slice for the session's current page:
// results[(page-1)*size : page*size], clamped to the result length.
func PageSlice(s *types.SearchSession, pageSize int) []types.TrackSummary {
	start := (s.CurrentPage - 1) * pageSize
	if start >= len(s.Results) {
		return nil
	}
	end := start + pageSize
	if end > len(s.Results) {
		end = len(s.Results)
	}
	return s.Results[start:end]
}
