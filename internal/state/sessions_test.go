// internal/state/sessions_test.go
package state

import (
	"sync"
	"testing"
	"time"

	"github.com/user/tunefetch/internal/types"
)

func tracks(n int) []types.TrackSummary {
	out := make([]types.TrackSummary, n)
	for i := range out {
		out[i] = types.TrackSummary{ID: string(rune('a' + i)), Title: "t", Artist: "a", Duration: 60}
	}
	return out
}

func TestSessionStoreCreateGet(t *testing.T) {
	store := NewSessionStore(10)

	id := store.Create(42, "Results for “x”", tracks(25), types.MessageRef{ChatID: 1, MessageID: 2})
	if id == "" {
		t.Fatal("expected non-empty session ID")
	}

	sess, err := store.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Owner != 42 {
		t.Errorf("expected owner 42, got %d", sess.Owner)
	}
	if sess.CurrentPage != 1 {
		t.Errorf("expected page 1, got %d", sess.CurrentPage)
	}
	if len(sess.Results) != 25 {
		t.Errorf("expected 25 results, got %d", len(sess.Results))
	}

	// Distinct ids for concurrent searches, even by the same owner
	id2 := store.Create(42, "again", tracks(3), types.MessageRef{})
	if id2 == id {
		t.Error("expected unique session ids")
	}
}

func TestSessionStorePagination(t *testing.T) {
	store := NewSessionStore(10)
	results := tracks(25)
	id := store.Create(1, "q", results, types.MessageRef{})

	// 25 results at page size 10 -> 3 pages
	for page := 1; page <= 3; page++ {
		sess, err := store.SetPage(id, page)
		if err != nil {
			t.Fatalf("set page %d: %v", page, err)
		}
		slice := PageSlice(sess, 10)
		wantLen := 10
		if page == 3 {
			wantLen = 5
		}
		if len(slice) != wantLen {
			t.Errorf("page %d: expected %d tracks, got %d", page, wantLen, len(slice))
		}
		if slice[0].ID != results[(page-1)*10].ID {
			t.Errorf("page %d: wrong first track", page)
		}
	}

	if _, err := store.SetPage(id, 0); err == nil {
		t.Error("expected error for page 0")
	}
	if _, err := store.SetPage(id, 4); err == nil {
		t.Error("expected error for page past the end")
	}

	// Cursor still valid after rejected mutations
	sess, err := store.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if sess.CurrentPage != 3 {
		t.Errorf("expected page 3 after rejected set, got %d", sess.CurrentPage)
	}
}

func TestSessionStoreInvalidate(t *testing.T) {
	store := NewSessionStore(10)
	id := store.Create(7, "q", tracks(3), types.MessageRef{})

	store.Invalidate(id)
	if _, err := store.Get(id); err == nil {
		t.Error("expected expired error after invalidate")
	}

	// Idempotent: removing an absent entry is a no-op
	store.Invalidate(id)
	store.Invalidate("never-existed")
	if _, err := store.Get("never-existed"); err == nil {
		t.Error("expected expired error for unknown id")
	}
}

func TestSessionStoreInvalidateOwner(t *testing.T) {
	store := NewSessionStore(10)
	id := store.Create(7, "q", tracks(3), types.MessageRef{ChatID: 9, MessageID: 11})

	removed, ok := store.InvalidateOwner(7)
	if !ok {
		t.Fatal("expected a session to be removed")
	}
	if removed.ID != id {
		t.Errorf("expected removed session %s, got %s", id, removed.ID)
	}
	if removed.Anchor.MessageID != 11 {
		t.Error("expected anchor snapshot on removed session")
	}
	if _, err := store.Get(id); err == nil {
		t.Error("expected expired after owner invalidation")
	}
	if _, ok := store.InvalidateOwner(7); ok {
		t.Error("expected no-op on second owner invalidation")
	}
}

func TestSessionStoreCreateKeepsPrior(t *testing.T) {
	store := NewSessionStore(10)
	old := store.Create(7, "first", tracks(3), types.MessageRef{})
	store.Create(7, "second", tracks(3), types.MessageRef{})

	// Creation does not clear the prior session; the caller sequences
	// invalidation separately.
	if _, err := store.Get(old); err != nil {
		t.Errorf("prior session should survive create: %v", err)
	}
}

func TestSessionStoreSetAnchor(t *testing.T) {
	store := NewSessionStore(10)
	id := store.Create(1, "q", tracks(1), types.MessageRef{})

	if err := store.SetAnchor(id, types.MessageRef{ChatID: 5, MessageID: 6}); err != nil {
		t.Fatal(err)
	}
	sess, err := store.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Anchor.ChatID != 5 || sess.Anchor.MessageID != 6 {
		t.Errorf("anchor not recorded: %+v", sess.Anchor)
	}

	if err := store.SetAnchor("missing", types.MessageRef{}); err == nil {
		t.Error("expected error for unknown session")
	}
}

func TestSessionStoreConcurrentPageFlips(t *testing.T) {
	store := NewSessionStore(10)
	id := store.Create(1, "q", tracks(35), types.MessageRef{})
	totalPages := TotalPages(35, 10)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				store.SetPage(id, 1+(n+j)%totalPages)
				sess, err := store.Get(id)
				if err != nil {
					t.Error(err)
					return
				}
				if sess.CurrentPage < 1 || sess.CurrentPage > totalPages {
					t.Errorf("page %d outside [1, %d]", sess.CurrentPage, totalPages)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestSessionStoreSweep(t *testing.T) {
	store := NewSessionStore(10)
	id := store.Create(1, "old", tracks(1), types.MessageRef{})

	removed := store.Sweep(time.Now().Add(time.Second))
	if len(removed) != 1 || removed[0].ID != id {
		t.Fatalf("expected the session to be swept, got %d", len(removed))
	}
	if _, err := store.Get(id); err == nil {
		t.Error("expected expired after sweep")
	}
	if got := store.Sweep(time.Now()); len(got) != 0 {
		t.Errorf("expected empty sweep, got %d", len(got))
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		results, pageSize, want int
	}{
		{0, 10, 1},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
	}
	for _, c := range cases {
		if got := TotalPages(c.results, c.pageSize); got != c.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", c.results, c.pageSize, got, c.want)
		}
	}
}
