package gateway

import (
	"context"
	"time"

	"github.com/user/tunefetch/internal/types"
)

// Run tracks a single execution of an inbound chat event.
type Run struct {
	ID        types.RunID
	Owner     types.UserID
	Event     *types.InboundEvent
	CreatedAt time.Time
	Ctx       context.Context
}

// NewRun wraps an inbound event for queueing, laned by its acting user.
func NewRun(event *types.InboundEvent) *Run {
	return &Run{
		ID:        types.NewRunID(),
		Owner:     event.UserID,
		Event:     event,
		CreatedAt: time.Now(),
	}
}
