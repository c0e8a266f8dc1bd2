package mavbus

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// WaitSet blocks a single caller until any of its subscriptions observes a
// message or a deadline passes. One wakeup may cover several messages, so
// the caller must check every subscription after each wait.
type WaitSet struct {
	clock clock.Clock
	wake  chan struct{}
}

// NewWaitSet returns a WaitSet using the given clock for deadline waits. A
// nil clock means the wall clock.
func NewWaitSet(c clock.Clock) *WaitSet {
	if c == nil {
		c = clock.New()
	}
	return &WaitSet{
		clock: c,
		wake:  make(chan struct{}, 1),
	}
}

func (ws *WaitSet) notify() {
	select {
	case ws.wake <- struct{}{}:
	default:
	}
}

// WaitUntil blocks until a subscription wakes the set (true), the deadline
// passes (false), or the context errors. A deadline at or before now does
// not wait, but a wakeup already pending is still consumed.
func (ws *WaitSet) WaitUntil(ctx context.Context, deadline time.Time) (bool, error) {
	remaining := deadline.Sub(ws.clock.Now())
	if remaining <= 0 {
		select {
		case <-ws.wake:
			return true, nil
		default:
			return false, nil
		}
	}

	timer := ws.clock.Timer(remaining)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-ws.wake:
		return true, nil
	case <-timer.C:
		return false, nil
	}
}
