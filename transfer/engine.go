// transfer/engine.go
package transfer

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"fawtrap-go/bus"
	"fawtrap-go/store"
	"fawtrap-go/types"
	"fawtrap-go/x/timex"
)

var topicState = bus.T("transfer", "state")

// Conn is one connected peer: a connection-oriented, packet-framed channel
// with a fixed maximum payload per packet. One frame per packet.
type Conn interface {
	// ReadPacket blocks until a packet arrives or the link drops.
	ReadPacket() ([]byte, error)
	WritePacket([]byte) error
	Close() error
}

// Transport accepts peer connections. Only the transfer engine uses it.
type Transport interface {
	Accept(ctx context.Context) (Conn, error)
	String() string
}

// -----------------------------------------------------------------------------
// Transport registry
// -----------------------------------------------------------------------------

type transportFactory func(types.LinkConfig) (Transport, error)

var (
	regMu    sync.RWMutex
	registry = map[string]transportFactory{}
)

// RegisterTransport lets transport packages add themselves (eg. "ws", "uart").
func RegisterTransport(name string, f transportFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = f
}

func NewTransport(name string, cfg types.LinkConfig) (Transport, error) {
	regMu.RLock()
	f, ok := registry[name]
	regMu.RUnlock()
	if !ok {
		return nil, errors.New("unknown transport type: " + name)
	}
	return f(cfg)
}

// -----------------------------------------------------------------------------
// Engine
// -----------------------------------------------------------------------------

// Engine supervises the single active peer session: one connection at a
// time, a fresh Session per connect, session state torn down on disconnect
// without touching the store (an aborted send marks nothing sent).
type Engine struct {
	st   *store.Store
	cfg  types.LinkConfig
	tr   Transport
	conn *bus.Connection
}

func NewEngine(st *store.Store, cfg types.LinkConfig, tr Transport, conn *bus.Connection) *Engine {
	return &Engine{st: st, cfg: cfg, tr: tr, conn: conn}
}

// Run blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	backoff := backoffSeq(250*time.Millisecond, 5*time.Second)
	e.publishState("idle", "awaiting_peer", nil)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c, err := e.tr.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			delay := backoff()
			e.publishState("degraded", "accept_failed_retrying", err)
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		e.publishState("up", "peer_connected", nil)
		e.serveConn(ctx, c)
		_ = c.Close()
		e.publishState("idle", "peer_disconnected", nil)
	}
}

// serveConn owns one peer session for the life of the connection.
func (e *Engine) serveConn(ctx context.Context, c Conn) {
	sess := NewSession(e.st, e.cfg)
	if e.cfg.AutoSendOnConnect {
		sess.StartAll()
	}

	frames := make(chan Frame, 8)
	rdErr := make(chan error, 1)
	go func() {
		for {
			pkt, err := c.ReadPacket()
			if err != nil {
				rdErr <- err
				return
			}
			f, ok := DecodeFrame(pkt)
			if !ok {
				// Malformed packet: answer, never silently drop.
				f = Frame{Type: 0x00}
			}
			select {
			case frames <- f:
			case <-ctx.Done():
				return
			}
		}
	}()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	if !e.pump(sess, c, time.Now()) {
		return
	}
	for {
		e.armTimer(timer, sess)
		select {
		case <-ctx.Done():
			return
		case <-rdErr:
			// Peer gone: session dies with the connection; store untouched.
			return
		case f := <-frames:
			now := time.Now()
			for _, rsp := range sess.Handle(f, now) {
				if !e.writeFrame(c, rsp) {
					return
				}
			}
			if !e.pump(sess, c, now) {
				return
			}
		case <-timer.C:
			if !e.pump(sess, c, time.Now()) {
				return
			}
		}
	}
}

// pump drains Step output (next chunk, retransmission or abandon-advance).
func (e *Engine) pump(sess *Session, c Conn, now time.Time) bool {
	before := sess.Failures()
	for _, f := range sess.Step(now) {
		if !e.writeFrame(c, f) {
			return false
		}
	}
	if sess.Failures() > before {
		e.publishState("degraded", "transfer_timeout", nil)
	}
	return true
}

func (e *Engine) armTimer(t *time.Timer, sess *Session) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	if dl, ok := sess.Deadline(); ok {
		t.Reset(time.Until(dl))
	} else {
		t.Reset(time.Hour)
	}
}

func (e *Engine) writeFrame(c Conn, f Frame) bool {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, f); err != nil {
		return false
	}
	if err := c.WritePacket(buf.Bytes()); err != nil {
		e.publishState("degraded", "link_lost", err)
		return false
	}
	return true
}

func (e *Engine) publishState(level, status string, err error) {
	if e.conn == nil {
		return
	}
	st := types.ServiceState{Level: level, Status: status, TS: timex.NowMs()}
	if err != nil {
		st.Status = status + ": " + err.Error()
	}
	e.conn.Publish(e.conn.NewMessage(topicState, st, true))
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	cur := min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
