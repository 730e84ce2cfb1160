//go:build tinygo

// transport/uart_tinygo.go
package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"machine"

	"github.com/jangala-dev/tinygo-uartx/uartx"

	"fawtrap-go/transfer"
	"fawtrap-go/types"
)

func init() {
	transfer.RegisterTransport("uart", func(cfg types.LinkConfig) (transfer.Transport, error) {
		return NewUART(uartx.UART0, 115200, machine.NoPin, machine.NoPin)
	})
}

// UART carries the transfer protocol over a serial port, each packet as a
// 2-byte big-endian length prefix plus body. A serial line has no connect
// event, so Accept hands out the port as a connection and blocks until the
// previous one is released.
type UART struct {
	port *uartx.UART
	free chan struct{}
}

func NewUART(port *uartx.UART, baud uint32, tx, rx machine.Pin) (*UART, error) {
	if port == nil {
		return nil, errors.New("uart transport: nil port")
	}
	if err := port.Configure(uartx.UARTConfig{BaudRate: baud, TX: tx, RX: rx}); err != nil {
		return nil, err
	}
	u := &UART{port: port, free: make(chan struct{}, 1)}
	u.free <- struct{}{}
	return u, nil
}

func (u *UART) String() string { return "uart" }

func (u *UART) Accept(ctx context.Context) (transfer.Conn, error) {
	select {
	case <-u.free:
		return &uartConn{port: u.port, free: u.free}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type uartConn struct {
	port *uartx.UART
	free chan struct{}
}

func (c *uartConn) ReadPacket() ([]byte, error) {
	var hdr [2]byte
	if err := c.fill(hdr[:]); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint16(hdr[:]))
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if err := c.fill(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (c *uartConn) fill(buf []byte) error {
	for off := 0; off < len(buf); {
		n, err := c.port.RecvSomeContext(context.Background(), buf[off:])
		if err != nil {
			return err
		}
		off += n
	}
	return nil
}

func (c *uartConn) WritePacket(pkt []byte) error {
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(pkt)))
	if _, err := c.port.Write(hdr[:]); err != nil {
		return err
	}
	_, err := c.port.Write(pkt)
	return err
}

// Close releases the port for the next Accept.
func (c *uartConn) Close() error {
	select {
	case c.free <- struct{}{}:
	default:
	}
	return nil
}
