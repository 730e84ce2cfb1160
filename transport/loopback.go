// transport/loopback.go
package transport

import (
	"context"
	"errors"
	"sync"

	"fawtrap-go/transfer"
	"fawtrap-go/types"
)

func init() {
	transfer.RegisterTransport("loopback", func(types.LinkConfig) (transfer.Transport, error) {
		return NewLoopback(), nil
	})
}

// Loopback is an in-memory transport: Dial hands the caller the peer end of a
// fresh connection and queues the device end for Accept. Host tests and the
// simulator use it to run both protocol ends in one process.
type Loopback struct {
	pending chan *loopConn
}

func NewLoopback() *Loopback {
	return &Loopback{pending: make(chan *loopConn, 4)}
}

func (l *Loopback) String() string { return "loopback" }

func (l *Loopback) Accept(ctx context.Context) (transfer.Conn, error) {
	select {
	case c := <-l.pending:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dial connects a new peer and returns its end of the link.
func (l *Loopback) Dial() transfer.Conn {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	done := make(chan struct{})
	device := &loopConn{r: ab, w: ba, done: done}
	peer := &loopConn{r: ba, w: ab, done: done}
	l.pending <- device
	return peer
}

var errLoopClosed = errors.New("loopback: connection closed")

type loopConn struct {
	r, w chan []byte

	once sync.Once
	done chan struct{}
}

func (c *loopConn) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-c.r:
		return pkt, nil
	case <-c.done:
		return nil, errLoopClosed
	}
}

func (c *loopConn) WritePacket(pkt []byte) error {
	cp := append([]byte(nil), pkt...)
	select {
	case c.w <- cp:
		return nil
	case <-c.done:
		return errLoopClosed
	}
}

// Close tears down both ends.
func (c *loopConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
