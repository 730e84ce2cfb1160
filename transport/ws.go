//go:build !tinygo

// transport/ws.go
package transport

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"fawtrap-go/transfer"
	"fawtrap-go/types"
)

func init() {
	transfer.RegisterTransport("ws", func(cfg types.LinkConfig) (transfer.Transport, error) {
		addr := cfg.Addr
		if addr == "" {
			addr = ":9444"
		}
		return NewWS(addr)
	})
}

// WS serves the transfer protocol over websocket, one binary message per
// frame. Host builds stand this in for the BLE characteristic link so the
// companion tooling can talk to a simulated or tethered trap.
type WS struct {
	lis      net.Listener
	upgrader websocket.Upgrader
	conns    chan transfer.Conn
	srv      *http.Server
}

func NewWS(addr string) (*WS, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	w := &WS{
		lis:   lis,
		conns: make(chan transfer.Conn, 1),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/link", w.handle)
	w.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go w.srv.Serve(lis)
	return w, nil
}

func (w *WS) String() string { return "ws " + w.lis.Addr().String() }

// Addr reports the bound listen address (useful with ":0").
func (w *WS) Addr() string { return w.lis.Addr().String() }

func (w *WS) handle(rw http.ResponseWriter, r *http.Request) {
	c, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	select {
	case w.conns <- &wsConn{c: c}:
	default:
		// Single active peer; refuse extras.
		c.Close()
	}
}

func (w *WS) Accept(ctx context.Context) (transfer.Conn, error) {
	select {
	case c := <-w.conns:
		return c, nil
	case <-ctx.Done():
		w.srv.Close()
		return nil, ctx.Err()
	}
}

type wsConn struct {
	c *websocket.Conn
}

func (c *wsConn) ReadPacket() ([]byte, error) {
	for {
		t, data, err := c.c.ReadMessage()
		if err != nil {
			return nil, err
		}
		if t == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *wsConn) WritePacket(pkt []byte) error {
	return c.c.WriteMessage(websocket.BinaryMessage, pkt)
}

func (c *wsConn) Close() error { return c.c.Close() }

// DialWS connects the peer side (companion tooling).
func DialWS(ctx context.Context, url string) (transfer.Conn, error) {
	c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{c: c}, nil
}
