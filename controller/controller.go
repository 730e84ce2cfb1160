// controller/controller.go
package controller

import (
	"context"
	"time"

	"fawtrap-go/bus"
	"fawtrap-go/services/capture"
	"fawtrap-go/services/detector"
	"fawtrap-go/services/envmon"
	"fawtrap-go/store"
	"fawtrap-go/types"
)

var topicStatus = bus.T("trap", "status")

// Controller runs the device core on one cooperative loop: detector and
// capture polled every tick, the reset button checked for the clear-store
// maintenance action, and the status snapshot republished when it changes.
// The transfer engine runs on its own goroutine; everything here shares the
// store with it through the store's own locking.
type Controller struct {
	orch   *capture.Orchestrator
	env    *envmon.Service
	st     *store.Store
	button *detector.Button
	conn   *bus.Connection

	tick time.Duration

	lastPublished types.TrapStatus
}

// Config for the loop itself; everything else arrives pre-built.
type Config struct {
	TickInterval time.Duration
}

func New(orch *capture.Orchestrator, env *envmon.Service, st *store.Store,
	button *detector.Button, cfg Config, conn *bus.Connection) *Controller {
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	return &Controller{
		orch:   orch,
		env:    env,
		st:     st,
		button: button,
		conn:   conn,
		tick:   tick,
	}
}

// Run blocks until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	t := time.NewTicker(c.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			c.Tick(ctx, now)
		}
	}
}

// Tick is one pass of the loop, exposed for tests and simulators that drive
// virtual time.
func (c *Controller) Tick(ctx context.Context, now time.Time) {
	if c.button != nil && c.button.Poll(now) {
		c.st.Clear()
	}
	c.orch.OnTick(ctx, now)
	c.publishStatus(now)
}

// Snapshot serves the display pull: counts, last detection, latest reading.
func (c *Controller) Snapshot(now time.Time) types.TrapStatus {
	var reading types.Reading
	if r, ok := c.env.Latest(); ok {
		reading = r
	}
	return types.TrapStatus{
		EventCount:   c.st.Len(),
		UnsentCount:  c.st.Unsent(),
		LastDetectTS: c.orch.LastDetectTS(),
		LastReading:  reading,
		TS:           now.UnixMilli(),
	}
}

// publishStatus keeps a retained trap/status copy for bus consumers, but only
// when something other than the timestamp moved.
func (c *Controller) publishStatus(now time.Time) {
	if c.conn == nil {
		return
	}
	st := c.Snapshot(now)
	prev := c.lastPublished
	prev.TS, st.TS = 0, 0
	if st == prev {
		return
	}
	st.TS = now.UnixMilli()
	c.lastPublished = st
	c.conn.Publish(c.conn.NewMessage(topicStatus, st, true))
}
