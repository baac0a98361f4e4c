package telegram

import (
	"strings"
	"testing"

	"github.com/user/tunefetch/internal/types"
)

func sessionWith(n, page int) *types.SearchSession {
	results := make([]types.TrackSummary, n)
	for i := range results {
		results[i] = types.TrackSummary{ID: "trk", Title: "Song", Artist: "Artist", Duration: 185}
	}
	return &types.SearchSession{
		ID:          "sess-1",
		Owner:       42,
		QueryLabel:  "Results for “x”",
		Results:     results,
		CurrentPage: page,
	}
}

func TestCallbackRoundTrip(t *testing.T) {
	cases := []struct {
		data string
		want callbackAction
	}{
		{pageCallback("sess-1", 3), callbackAction{Kind: cbPage, SessionID: "sess-1", Page: 3}},
		{trackCallback("sess-1", 12), callbackAction{Kind: cbTrack, SessionID: "sess-1", Index: 12}},
		{relatedCallback("987654"), callbackAction{Kind: cbRelated, TrackID: "987654"}},
	}
	for _, c := range cases {
		got, err := parseCallback(c.data)
		if err != nil {
			t.Fatalf("parseCallback(%q): %v", c.data, err)
		}
		if *got != c.want {
			t.Errorf("parseCallback(%q) = %+v, want %+v", c.data, *got, c.want)
		}
	}
}

func TestParseCallbackMalformed(t *testing.T) {
	for _, data := range []string{"", "p", "p:sess", "p:sess:abc", "x:sess:1", "t:sess:"} {
		if _, err := parseCallback(data); err == nil {
			t.Errorf("expected error for %q", data)
		}
	}
}

func TestCallbackDataFitsTelegramLimit(t *testing.T) {
	// Telegram rejects callback data over 64 bytes. Session ids are UUIDs
	// (36 bytes), so the widest payload is a track selection at a high index.
	data := trackCallback(types.SessionID(strings.Repeat("a", 36)), 9999)
	if len(data) > 64 {
		t.Errorf("callback data %d bytes exceeds the 64-byte limit", len(data))
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{59, "0:59"},
		{60, "1:00"},
		{185, "3:05"},
		{3600, "1:00:00"},
		{3725, "1:02:05"},
		{-5, "0:00"},
	}
	for _, c := range cases {
		if got := formatDuration(c.seconds); got != c.want {
			t.Errorf("formatDuration(%d) = %q, want %q", c.seconds, got, c.want)
		}
	}
}

func TestRenderPage(t *testing.T) {
	sess := sessionWith(25, 3)
	text := renderPage(sess, 10)

	if !strings.Contains(text, "25 tracks (page 3/3)") {
		t.Errorf("missing page header in %q", text)
	}
	// Page 3 of 25 at size 10 holds entries 21-25, numbered absolutely.
	if !strings.Contains(text, "21. Artist — Song (3:05)") {
		t.Errorf("missing first entry of page 3 in %q", text)
	}
	if !strings.Contains(text, "25. Artist — Song") {
		t.Errorf("missing last entry in %q", text)
	}
	if strings.Contains(text, "26.") {
		t.Errorf("entry past the result set in %q", text)
	}
}

func TestRenderPageEmpty(t *testing.T) {
	sess := sessionWith(0, 1)
	text := renderPage(sess, 10)
	if !strings.Contains(text, "No tracks.") {
		t.Errorf("expected empty-results line, got %q", text)
	}
	if !strings.Contains(text, "(page 1/1)") {
		t.Errorf("empty session still renders as one page, got %q", text)
	}
}

func TestPageKeyboard(t *testing.T) {
	sess := sessionWith(25, 2)
	kb := pageKeyboard(sess, 10)

	// 10 selection buttons in rows of 5, plus a navigation row.
	if len(kb.InlineKeyboard) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(kb.InlineKeyboard))
	}
	if len(kb.InlineKeyboard[0]) != 5 || len(kb.InlineKeyboard[1]) != 5 {
		t.Error("expected selection rows of five")
	}

	first := kb.InlineKeyboard[0][0]
	if first.Text != "11" {
		t.Errorf("expected absolute numbering to start at 11 on page 2, got %q", first.Text)
	}
	if *first.CallbackData != trackCallback("sess-1", 10) {
		t.Errorf("unexpected callback %q", *first.CallbackData)
	}

	nav := kb.InlineKeyboard[2]
	if len(nav) != 3 {
		t.Fatalf("expected back/indicator/forward on a middle page, got %d buttons", len(nav))
	}
	if *nav[0].CallbackData != pageCallback("sess-1", 1) {
		t.Errorf("back button targets %q", *nav[0].CallbackData)
	}
	if nav[1].Text != "2/3" {
		t.Errorf("indicator shows %q", nav[1].Text)
	}
	if *nav[2].CallbackData != pageCallback("sess-1", 3) {
		t.Errorf("forward button targets %q", *nav[2].CallbackData)
	}
}

func TestPageKeyboardEdges(t *testing.T) {
	// First page: no back button.
	kb := pageKeyboard(sessionWith(25, 1), 10)
	nav := kb.InlineKeyboard[len(kb.InlineKeyboard)-1]
	if len(nav) != 2 || nav[0].Text != "1/3" {
		t.Errorf("first page nav should be indicator+forward, got %d buttons", len(nav))
	}

	// Last page: no forward button.
	kb = pageKeyboard(sessionWith(25, 3), 10)
	nav = kb.InlineKeyboard[len(kb.InlineKeyboard)-1]
	if len(nav) != 2 || nav[1].Text != "3/3" {
		t.Errorf("last page nav should be back+indicator, got %d buttons", len(nav))
	}

	// Single page: no navigation row at all.
	kb = pageKeyboard(sessionWith(5, 1), 10)
	if len(kb.InlineKeyboard) != 1 {
		t.Errorf("single-page session should have only selection rows, got %d rows", len(kb.InlineKeyboard))
	}
}

func TestAudioFileName(t *testing.T) {
	cases := []struct {
		track types.TrackSummary
		want  string
	}{
		{types.TrackSummary{ID: "1", Title: "One More Time"}, "One More Time.mp3"},
		{types.TrackSummary{ID: "2", Title: "a/b\\c:d"}, "a_b_c_d.mp3"},
		{types.TrackSummary{ID: "3"}, "track-3.mp3"},
	}
	for _, c := range cases {
		if got := audioFileName(c.track); got != c.want {
			t.Errorf("audioFileName(%q) = %q, want %q", c.track.Title, got, c.want)
		}
	}
}
