package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/tunefetch/internal/catalog"
	"github.com/user/tunefetch/internal/gateway"
	"github.com/user/tunefetch/internal/retriever"
	"github.com/user/tunefetch/internal/state"
	"github.com/user/tunefetch/internal/types"
)

const helpText = `Send me a search query and I'll find tracks for you.

Commands:
/trending — what's hot right now
/help — this message

Tap a number to download a track, use the arrows to flip pages.`

const configMissingText = "The catalog API key is not configured. Set CATALOG_API_KEY and restart the bot."

// Adapter bridges Telegram to the retrieval engine. Inbound updates are
// enqueued on the gateway's per-user lanes; ProcessRun is the lane processor.
type Adapter struct {
	bot       *tgbotapi.BotAPI
	gateway   *gateway.Gateway
	catalog   *catalog.Client
	sessions  *state.SessionStore
	retriever *retriever.Orchestrator
	limit     int
}

// New creates a Telegram adapter.
func New(token string, gw *gateway.Gateway, cat *catalog.Client, sessions *state.SessionStore, orch *retriever.Orchestrator, searchLimit int) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Adapter{
		bot:       bot,
		gateway:   gw,
		catalog:   cat,
		sessions:  sessions,
		retriever: orch,
		limit:     searchLimit,
	}, nil
}

// Start begins long-polling for Telegram updates.
func (a *Adapter) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			a.dispatch(update)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return
		}
	}
}

// dispatch translates a Telegram update into an inbound event and enqueues
// it. Enqueueing never blocks the poll loop; a full lane is reported to the
// user instead.
func (a *Adapter) dispatch(update tgbotapi.Update) {
	event := toEvent(update)
	if event == nil {
		return
	}
	if err := a.gateway.HandleInbound(event); err != nil {
		slog.Warn("enqueue failed", "user_id", int64(event.UserID), "error", err)
		if event.Kind == types.EventCallback {
			a.answerCallback(event.CallbackID, "Busy, try again in a moment.")
		} else {
			a.sendText(event.ChatID, "I'm busy with your previous request, try again in a moment.")
		}
	}
}

func toEvent(update tgbotapi.Update) *types.InboundEvent {
	if cb := update.CallbackQuery; cb != nil && cb.Message != nil {
		return &types.InboundEvent{
			Kind:         types.EventCallback,
			UserID:       types.UserID(cb.From.ID),
			ChatID:       cb.Message.Chat.ID,
			MessageID:    cb.Message.MessageID,
			CallbackID:   cb.ID,
			CallbackData: cb.Data,
		}
	}
	if msg := update.Message; msg != nil && msg.Text != "" {
		event := &types.InboundEvent{
			UserID:    types.UserID(msg.From.ID),
			ChatID:    msg.Chat.ID,
			MessageID: msg.MessageID,
			Text:      msg.Text,
		}
		if msg.IsCommand() {
			event.Kind = types.EventCommand
			event.Command = msg.Command()
			event.Args = msg.CommandArguments()
		} else {
			event.Kind = types.EventText
		}
		return event
	}
	return nil
}

// ProcessRun routes one dequeued event. It is the gateway lane processor:
// returning an error here is logged by the queue but never crashes a lane.
func (a *Adapter) ProcessRun(run *gateway.Run) error {
	event := run.Event
	switch event.Kind {
	case types.EventCommand:
		return a.handleCommand(run.Ctx, event)
	case types.EventText:
		return a.startSearch(run.Ctx, event, event.Text)
	case types.EventCallback:
		return a.handleCallback(run.Ctx, event)
	}
	return nil
}

func (a *Adapter) handleCommand(ctx context.Context, event *types.InboundEvent) error {
	switch event.Command {
	case "start", "help":
		a.sendText(event.ChatID, helpText)
		return nil
	case "search":
		if event.Args == "" {
			a.sendText(event.ChatID, "Usage: /search <query>")
			return nil
		}
		return a.startSearch(ctx, event, event.Args)
	case "trending":
		return a.startTrending(ctx, event)
	default:
		a.sendText(event.ChatID, "Unknown command. Try /help.")
		return nil
	}
}

func (a *Adapter) startSearch(ctx context.Context, event *types.InboundEvent, query string) error {
	if !a.catalog.Configured() {
		a.sendText(event.ChatID, configMissingText)
		return nil
	}
	results, err := a.catalog.SearchTracks(ctx, query, a.limit)
	if err != nil {
		a.sendText(event.ChatID, a.errorText(err))
		return fmt.Errorf("search %q: %w", query, err)
	}
	if len(results) == 0 {
		a.sendText(event.ChatID, fmt.Sprintf("Nothing found for “%s”.", query))
		return nil
	}
	return a.openSession(event, fmt.Sprintf("Results for “%s”", query), results)
}

func (a *Adapter) startTrending(ctx context.Context, event *types.InboundEvent) error {
	if !a.catalog.Configured() {
		a.sendText(event.ChatID, configMissingText)
		return nil
	}
	results, err := a.catalog.Trending(ctx, a.limit)
	if err != nil {
		a.sendText(event.ChatID, a.errorText(err))
		return fmt.Errorf("trending: %w", err)
	}
	if len(results) == 0 {
		a.sendText(event.ChatID, "The trending chart is empty right now.")
		return nil
	}
	return a.openSession(event, "Trending", results)
}

func (a *Adapter) startRelated(ctx context.Context, event *types.InboundEvent, trackID string) error {
	if !a.catalog.Configured() {
		a.sendText(event.ChatID, configMissingText)
		return nil
	}
	results, err := a.catalog.Related(ctx, trackID, a.limit)
	if err != nil {
		a.sendText(event.ChatID, a.errorText(err))
		return fmt.Errorf("related %s: %w", trackID, err)
	}
	if len(results) == 0 {
		a.sendText(event.ChatID, "No similar tracks found.")
		return nil
	}
	return a.openSession(event, "Similar tracks", results)
}

// openSession enforces the one-live-session-per-owner invariant: the owner's
// previous session is invalidated (and its anchor deleted) before the new
// one is created, then the anchor message for page one is sent and recorded.
func (a *Adapter) openSession(event *types.InboundEvent, label string, results []types.TrackSummary) error {
	if prev, ok := a.sessions.InvalidateOwner(event.UserID); ok {
		a.deleteAnchor(prev.Anchor)
	}

	id := a.sessions.Create(event.UserID, label, results, types.MessageRef{})
	sess, err := a.sessions.Get(id)
	if err != nil {
		return fmt.Errorf("read back session: %w", err)
	}

	msg := tgbotapi.NewMessage(event.ChatID, renderPage(sess, a.sessions.PageSize()))
	msg.ReplyMarkup = pageKeyboard(sess, a.sessions.PageSize())
	sent, err := a.bot.Send(msg)
	if err != nil {
		a.sessions.Invalidate(id)
		return fmt.Errorf("send anchor message: %w", err)
	}
	if err := a.sessions.SetAnchor(id, types.MessageRef{ChatID: event.ChatID, MessageID: sent.MessageID}); err != nil {
		return fmt.Errorf("record anchor: %w", err)
	}
	return nil
}

func (a *Adapter) handleCallback(ctx context.Context, event *types.InboundEvent) error {
	action, err := parseCallback(event.CallbackData)
	if err != nil {
		a.answerCallback(event.CallbackID, "")
		return err
	}

	switch action.Kind {
	case cbPage:
		return a.flipPage(event, action)
	case cbTrack:
		return a.selectTrack(ctx, event, action)
	case cbRelated:
		a.answerCallback(event.CallbackID, "")
		return a.startRelated(ctx, event, action.TrackID)
	}
	return nil
}

func (a *Adapter) flipPage(event *types.InboundEvent, action *callbackAction) error {
	sess, err := a.sessions.Get(action.SessionID)
	if err != nil {
		a.answerCallback(event.CallbackID, "This list has expired, run a new search.")
		return nil
	}
	if sess.Owner != event.UserID {
		a.answerCallback(event.CallbackID, "This list belongs to someone else.")
		return nil
	}
	if sess.CurrentPage == action.Page {
		a.answerCallback(event.CallbackID, "")
		return nil
	}

	updated, err := a.sessions.SetPage(action.SessionID, action.Page)
	if err != nil {
		a.answerCallback(event.CallbackID, "")
		return fmt.Errorf("set page: %w", err)
	}
	a.editAnchor(updated)
	a.answerCallback(event.CallbackID, "")
	return nil
}

// selectTrack runs a full retrieval. The anchor is blanked to a progress
// note for the duration; on any failure the exact page shown before the
// attempt reappears, never a stuck "loading" display.
func (a *Adapter) selectTrack(ctx context.Context, event *types.InboundEvent, action *callbackAction) error {
	sess, err := a.sessions.Get(action.SessionID)
	if err != nil {
		a.answerCallback(event.CallbackID, "This list has expired, run a new search.")
		return nil
	}
	if sess.Owner != event.UserID {
		a.answerCallback(event.CallbackID, "This list belongs to someone else.")
		return nil
	}

	a.answerCallback(event.CallbackID, "")
	edit := tgbotapi.NewEditMessageText(sess.Anchor.ChatID, sess.Anchor.MessageID, "⏳ Fetching track…")
	if _, err := a.bot.Send(edit); err != nil {
		slog.Warn("blank anchor failed", "session_id", string(sess.ID), "error", err)
	}

	result, err := a.retriever.Retrieve(ctx, action.SessionID, action.Index, event.UserID)
	if err != nil {
		if restored, rerr := a.sessions.Get(action.SessionID); rerr == nil {
			a.editAnchor(restored)
		}
		a.sendText(event.ChatID, a.errorText(err))
		return fmt.Errorf("retrieve: %w", err)
	}

	if err := a.sendAudio(event.ChatID, sess.QueryLabel, result); err != nil {
		if restored, rerr := a.sessions.Get(action.SessionID); rerr == nil {
			a.editAnchor(restored)
		}
		a.sendText(event.ChatID, "Couldn't deliver the audio file.")
		return fmt.Errorf("send audio: %w", err)
	}

	// Result delivered; the browsable page has served its purpose.
	a.deleteAnchor(sess.Anchor)
	a.sessions.Invalidate(action.SessionID)
	return nil
}

func (a *Adapter) sendAudio(chatID int64, label string, result *types.AudioResult) error {
	audio := tgbotapi.NewAudio(chatID, tgbotapi.FileBytes{
		Name:  audioFileName(result.Track),
		Bytes: result.Data,
	})
	audio.Title = result.Track.Title
	audio.Performer = result.Track.Artist
	audio.Duration = result.Track.Duration
	audio.Caption = label
	if result.Skipped > 0 {
		audio.Caption = fmt.Sprintf("%s\n⚠️ %d of %d segments could not be fetched; minor gaps possible.",
			label, result.Skipped, result.Segments+result.Skipped)
	}
	if result.Track.ArtworkURL != "" {
		audio.Thumb = tgbotapi.FileURL(result.Track.ArtworkURL)
	}
	audio.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 More like this", relatedCallback(result.Track.ID)),
		),
	)
	_, err := a.bot.Send(audio)
	return err
}

// editAnchor re-renders the session's current page into its anchor message.
func (a *Adapter) editAnchor(sess *types.SearchSession) {
	if sess.Anchor.Zero() {
		return
	}
	edit := tgbotapi.NewEditMessageTextAndMarkup(
		sess.Anchor.ChatID, sess.Anchor.MessageID,
		renderPage(sess, a.sessions.PageSize()),
		pageKeyboard(sess, a.sessions.PageSize()),
	)
	if _, err := a.bot.Send(edit); err != nil {
		slog.Warn("edit anchor failed", "session_id", string(sess.ID), "error", err)
	}
}

// DeleteAnchor removes a session's anchor message. Used directly by the
// janitor when it evicts stale sessions.
func (a *Adapter) DeleteAnchor(sess *types.SearchSession) {
	a.deleteAnchor(sess.Anchor)
}

func (a *Adapter) deleteAnchor(anchor types.MessageRef) {
	if anchor.Zero() {
		return
	}
	if _, err := a.bot.Request(tgbotapi.NewDeleteMessage(anchor.ChatID, anchor.MessageID)); err != nil {
		slog.Debug("delete anchor failed", "chat_id", anchor.ChatID, "message_id", anchor.MessageID, "error", err)
	}
}

func (a *Adapter) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := a.bot.Send(msg); err != nil {
		slog.Warn("send message failed", "chat_id", chatID, "error", err)
	}
}

func (a *Adapter) answerCallback(callbackID, text string) {
	if callbackID == "" {
		return
	}
	if _, err := a.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		slog.Debug("answer callback failed", "error", err)
	}
}

// errorText translates engine failures into user-visible notifications.
func (a *Adapter) errorText(err error) string {
	switch {
	case errors.Is(err, types.ErrConfigMissing):
		return configMissingText
	case errors.Is(err, types.ErrStreamUnavailable):
		return "😔 No playable stream for this track."
	case errors.Is(err, types.ErrDownloadFailed):
		return "😔 The download failed, try again later."
	case errors.Is(err, types.ErrSessionExpired):
		return "This list has expired, run a new search."
	case errors.Is(err, types.ErrUnauthorized):
		return "This list belongs to someone else."
	case errors.Is(err, types.ErrIndexOutOfRange):
		return "That track is no longer on the list."
	default:
		return "Something went wrong, try again."
	}
}
