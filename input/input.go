// Package input normalizes the mount control protocols into one command
// model. Each adapter translates its own message shapes, mode semantics and
// partial-update rules into a control.Command the actuation layer consumes
// without knowing which protocol produced it.
package input

import (
	"context"
	"time"

	"github.com/skylift-robotics/mount/control"
)

// Input is one protocol adapter. An adapter owns its command model and all
// of its subscriptions; it is driven by exactly one caller at a time.
type Input interface {
	// Initialize subscribes to the adapter's message sources. Any
	// subscription failure is fatal: the adapter must not be used afterward.
	Initialize() error

	// Update waits on the adapter's sources for up to the given timeout and
	// returns a snapshot of the command model when an input changed it, or
	// nil when nothing did. A timeout is not an error.
	Update(ctx context.Context, timeout time.Duration) (*control.Command, error)

	// Describe identifies which protocol the adapter implements.
	Describe() string

	// Close releases the adapter's subscriptions.
	Close() error
}

var (
	_ Input = (*ROIInput)(nil)
	_ Input = (*MountCommandInput)(nil)
	_ Input = (*GimbalManagerInput)(nil)
)
