// internal/scheduler/janitor.go
package scheduler

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/user/tunefetch/internal/state"
	"github.com/user/tunefetch/internal/types"
)

// OnRemove is called for every session the janitor evicts, so the chat
// adapter can tear down the session's anchor message.
type OnRemove func(*types.SearchSession)

// Janitor evicts sessions older than the configured TTL on a fixed cron
// cadence. Without a TTL sessions accumulate until their owner replaces
// them; the janitor is the opt-in bounded-lifetime policy on top of that.
type Janitor struct {
	sessions *state.SessionStore
	ttl      time.Duration
	onRemove OnRemove
	cron     *cron.Cron
}

// New creates a Janitor. A non-positive ttl disables it.
func New(sessions *state.SessionStore, ttl time.Duration, onRemove OnRemove) *Janitor {
	return &Janitor{
		sessions: sessions,
		ttl:      ttl,
		onRemove: onRemove,
		cron:     cron.New(),
	}
}

// Start registers the sweep entry and starts the cron ticker.
func (j *Janitor) Start() error {
	if j.ttl <= 0 {
		return nil
	}
	if _, err := j.cron.AddFunc("@every 1m", j.sweep); err != nil {
		return err
	}
	j.cron.Start()
	slog.Info("session janitor started", "ttl", j.ttl)
	return nil
}

// Stop stops the cron ticker.
func (j *Janitor) Stop() {
	j.cron.Stop()
}

func (j *Janitor) sweep() {
	removed := j.sessions.Sweep(time.Now().Add(-j.ttl))
	for _, sess := range removed {
		slog.Info("session expired", "session_id", string(sess.ID), "owner", int64(sess.Owner), "age", time.Since(sess.CreatedAt).Round(time.Second))
		if j.onRemove != nil {
			j.onRemove(sess)
		}
	}
}
