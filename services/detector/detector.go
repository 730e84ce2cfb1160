// services/detector/detector.go
package detector

import (
	"sync/atomic"
	"time"

	"fawtrap-go/types"
)

// State of the break-beam line filter.
type State uint8

const (
	StateClear State = iota
	StateBroken
	StateCooldown
)

// edge is captured in interrupt context and drained on the main loop.
type edge struct {
	level bool // true = beam broken
	ts    time.Time
}

// Detector turns a noisy emitter/receiver line into at most one
// DetectionSignal per cooldown period. The IRQ handler calls OnEdge and never
// blocks; all filtering happens in Poll on the cooperative loop.
//
// The line must read broken continuously for the debounce window before a
// signal fires. A line already broken at boot still needs a full debounce
// interval measured from the first observation; boot state is not an edge.
type Detector struct {
	debounce time.Duration
	cooldown time.Duration

	// Written by ISR; MUST NOT block the ISR:
	edgeQ    chan edge
	drops    atomic.Uint32
	rawEdges atomic.Uint32

	// Optional direct line sampler for polled (non-IRQ) operation.
	sample func() bool

	state         State
	level         bool
	brokenAt      time.Time // when the line last went broken while armed
	cooldownUntil time.Time
}

func New(debounce, cooldown time.Duration, sample func() bool) *Detector {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	if cooldown <= 0 {
		cooldown = 500 * time.Millisecond
	}
	return &Detector{
		debounce: debounce,
		cooldown: cooldown,
		edgeQ:    make(chan edge, 32),
		sample:   sample,
	}
}

// OnEdge is safe to call from interrupt context: one counter increment and a
// non-blocking send. Lost edges only cost diagnostics; Poll re-samples level.
func (d *Detector) OnEdge(level bool, ts time.Time) {
	d.rawEdges.Add(1)
	select {
	case d.edgeQ <- edge{level: level, ts: ts}:
	default:
		d.drops.Add(1)
	}
}

// RawEdges reports the total raw IRQ edges seen (diagnostic).
func (d *Detector) RawEdges() uint32 { return d.rawEdges.Load() }

// Drops reports edges lost to a full ISR queue (diagnostic).
func (d *Detector) Drops() uint32 { return d.drops.Load() }

// State reports the current filter state (diagnostic).
func (d *Detector) State() State { return d.state }

// Poll drains pending edges and advances the state machine against now.
// It never blocks and emits at most one signal per cooldown period.
func (d *Detector) Poll(now time.Time) (types.DetectionSignal, bool) {
	d.drainEdges()
	if d.sample != nil {
		d.observe(d.sample(), now)
	}

	switch d.state {
	case StateClear:
		if d.level && !d.brokenAt.IsZero() && now.Sub(d.brokenAt) >= d.debounce {
			fired := d.brokenAt.Add(d.debounce)
			d.state = StateBroken
			d.enterCooldown(fired)
			return types.DetectionSignal{
				TS:       fired.UnixMilli(),
				RawEdges: d.rawEdges.Load(),
			}, true
		}
	case StateCooldown:
		if !now.Before(d.cooldownUntil) {
			d.state = StateClear
			// A line still broken after cooldown needs a fresh debounce
			// interval; beam re-settling must not re-trigger.
			if d.level {
				d.brokenAt = now
			} else {
				d.brokenAt = time.Time{}
			}
		}
	}
	return types.DetectionSignal{}, false
}

func (d *Detector) enterCooldown(fired time.Time) {
	d.state = StateCooldown
	d.cooldownUntil = fired.Add(d.cooldown)
	d.brokenAt = time.Time{}
}

func (d *Detector) drainEdges() {
	for {
		select {
		case ev := <-d.edgeQ:
			d.observe(ev.level, ev.ts)
		default:
			return
		}
	}
}

// observe applies one level observation at time ts.
func (d *Detector) observe(level bool, ts time.Time) {
	if level == d.level {
		// In Clear with a broken line we may not have an armed timestamp
		// yet (already broken at boot): arm from first observation.
		if d.state == StateClear && level && d.brokenAt.IsZero() {
			d.brokenAt = ts
		}
		return
	}
	d.level = level
	if d.state != StateClear {
		return
	}
	if level {
		d.brokenAt = ts
	} else {
		d.brokenAt = time.Time{}
	}
}
