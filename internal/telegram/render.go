package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/tunefetch/internal/state"
	"github.com/user/tunefetch/internal/types"
)

// Callback payload prefixes. Telegram caps callback data at 64 bytes, so the
// payloads stay terse: "p:<session>:<page>", "t:<session>:<index>",
// "r:<track>".
const (
	cbPage    = "p"
	cbTrack   = "t"
	cbRelated = "r"
)

type callbackAction struct {
	Kind      string
	SessionID types.SessionID
	Page      int
	Index     int
	TrackID   string
}

func pageCallback(id types.SessionID, page int) string {
	return fmt.Sprintf("%s:%s:%d", cbPage, id, page)
}

func trackCallback(id types.SessionID, index int) string {
	return fmt.Sprintf("%s:%s:%d", cbTrack, id, index)
}

func relatedCallback(trackID string) string {
	return fmt.Sprintf("%s:%s", cbRelated, trackID)
}

func parseCallback(data string) (*callbackAction, error) {
	parts := strings.SplitN(data, ":", 3)
	switch {
	case len(parts) == 2 && parts[0] == cbRelated:
		return &callbackAction{Kind: cbRelated, TrackID: parts[1]}, nil
	case len(parts) == 3 && (parts[0] == cbPage || parts[0] == cbTrack):
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("malformed callback %q: %w", data, err)
		}
		action := &callbackAction{Kind: parts[0], SessionID: types.SessionID(parts[1])}
		if parts[0] == cbPage {
			action.Page = n
		} else {
			action.Index = n
		}
		return action, nil
	default:
		return nil, fmt.Errorf("malformed callback %q", data)
	}
}

// formatDuration renders seconds as m:ss or h:mm:ss.
func formatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// renderPage builds the anchor message text for the session's current page.
func renderPage(sess *types.SearchSession, pageSize int) string {
	total := state.TotalPages(len(sess.Results), pageSize)
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎵 %s — %d tracks (page %d/%d)\n\n", sess.QueryLabel, len(sess.Results), sess.CurrentPage, total)
	start := (sess.CurrentPage - 1) * pageSize
	for i, track := range state.PageSlice(sess, pageSize) {
		fmt.Fprintf(&sb, "%d. %s — %s (%s)\n", start+i+1, track.Artist, track.Title, formatDuration(track.Duration))
	}
	if len(sess.Results) == 0 {
		sb.WriteString("No tracks.\n")
	}
	return sb.String()
}

// pageKeyboard builds the inline keyboard for the session's current page:
// numbered selection buttons in rows of five, plus a navigation row when
// there is more than one page.
func pageKeyboard(sess *types.SearchSession, pageSize int) tgbotapi.InlineKeyboardMarkup {
	total := state.TotalPages(len(sess.Results), pageSize)
	start := (sess.CurrentPage - 1) * pageSize
	slice := state.PageSlice(sess, pageSize)

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i := range slice {
		abs := start + i
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(abs+1), trackCallback(sess.ID, abs)))
		if len(row) == 5 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	if total > 1 {
		var nav []tgbotapi.InlineKeyboardButton
		if sess.CurrentPage > 1 {
			nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️", pageCallback(sess.ID, sess.CurrentPage-1)))
		}
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d/%d", sess.CurrentPage, total), pageCallback(sess.ID, sess.CurrentPage)))
		if sess.CurrentPage < total {
			nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("➡️", pageCallback(sess.ID, sess.CurrentPage+1)))
		}
		rows = append(rows, nav)
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// audioFileName derives a safe upload file name from the track metadata.
func audioFileName(track types.TrackSummary) string {
	name := track.Title
	if name == "" {
		name = "track-" + track.ID
	}
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == 0:
			sb.WriteRune('_')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String() + ".mp3"
}
