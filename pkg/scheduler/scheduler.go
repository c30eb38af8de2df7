// Package scheduler drives the engine's background work: the periodic
// cull pass and one-shot delayed despawns.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/warren/pkg/logger"
)

// DefaultCullInterval is the cadence of the periodic cull pass.
const DefaultCullInterval = 5 * time.Second

// Target is the work a Culler drives on every tick. The registry
// implements it by culling every bin in registration order.
type Target interface {
	CullAll() int
}

// Culler invokes its target at a fixed interval until stopped. It runs
// for the lifetime of the registry that owns it.
type Culler struct {
	target   Target
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewCuller creates a culler for the target. A non-positive interval
// falls back to DefaultCullInterval.
func NewCuller(target Target, interval time.Duration) *Culler {
	if interval <= 0 {
		interval = DefaultCullInterval
	}
	return &Culler{
		target:   target,
		interval: interval,
		logger:   logger.Get().With(zap.String("component", "culler")),
	}
}

// Start launches the periodic pass. Starting an already running culler
// is a no-op.
func (c *Culler) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.stopped = make(chan struct{})

	go c.run(ctx, c.stopped)
}

func (c *Culler) run(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := c.target.CullAll(); n > 0 {
				c.logger.Debug("cull pass", zap.Int("destroyed", n))
			}

		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the periodic pass and waits for the worker to exit.
// Stopping a culler that was never started is a no-op.
func (c *Culler) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	stopped := c.stopped
	c.cancel = nil
	c.stopped = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}

// Delay schedules fn to run once after d. The task is not cancellable and
// independent tasks are not coalesced: each call fires exactly once. This
// mirrors the delayed-reclamation model the engine inherits, where the
// only way to preempt a pending despawn is to remove the instance through
// another path first.
func Delay(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}
