package bot

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/Philanthropists/inbox-otp-bot/internal/logger"
)

// Dispatcher handles every incoming message as its own task, at most limit
// at a time, each under its own deadline.
type Dispatcher struct {
	handler *Handler
	timeout time.Duration
	limit   int
}

func NewDispatcher(handler *Handler, timeout time.Duration, limit int) *Dispatcher {
	if limit < 1 {
		limit = 1
	}
	return &Dispatcher{handler: handler, timeout: timeout, limit: limit}
}

// Run consumes updates until the channel closes or ctx ends, then waits for
// the tasks still running.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan Incoming) error {
	var g errgroup.Group
	slots := semaphore.NewWeighted(int64(d.limit))

	for {
		select {
		case <-ctx.Done():
			return g.Wait()
		case in, ok := <-updates:
			if !ok {
				return g.Wait()
			}
			// Waiting for a slot gives up on shutdown; the message is dropped.
			if err := slots.Acquire(ctx, 1); err != nil {
				return g.Wait()
			}
			g.Go(func() error {
				defer slots.Release(1)
				d.dispatch(ctx, in)
				return nil
			})
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, in Incoming) {
	reqCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.handler.Handle(reqCtx, in); err != nil {
		logger.GetLogger().Errorw("Could not deliver reply",
			"chatId", in.ChatID,
			"error", err,
		)
	}
}
