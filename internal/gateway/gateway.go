package gateway

import (
	"context"

	"github.com/user/tunefetch/internal/types"
)

// Gateway accepts inbound chat events and enqueues them for processing, one
// FIFO lane per acting user with a global concurrency cap across lanes.
type Gateway struct {
	Queue *Queue

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Gateway with the given concurrency limit for simultaneous
// event processing.
func New(maxConcurrent int64) *Gateway {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Gateway{Queue: NewQueue(maxConcurrent)}
}

// Start initialises the gateway's context and starts the internal queue.
func (g *Gateway) Start(ctx context.Context) {
	g.ctx, g.cancel = context.WithCancel(ctx)
	g.Queue.Start(g.ctx)
}

// Stop cancels the gateway context and stops the queue.
func (g *Gateway) Stop() {
	if g.cancel != nil {
		g.cancel()
	}
	g.Queue.Stop()
}

// HandleInbound wraps the event in a Run and enqueues it on the acting
// user's lane.
func (g *Gateway) HandleInbound(event *types.InboundEvent) error {
	return g.Queue.Enqueue(NewRun(event))
}
