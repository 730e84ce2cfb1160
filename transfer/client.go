// transfer/client.go
package transfer

import (
	"bytes"
	"encoding/binary"

	"fawtrap-go/errcode"
)

// Client implements the peer (mobile app) side of the protocol over a Conn:
// issue control commands, acknowledge every stream frame, reassemble events.
// Used by the companion CLI and by round-trip tests.
type Client struct {
	c Conn
}

func NewClient(c Conn) *Client { return &Client{c: c} }

// ReceivedEvent is one fully reassembled event.
type ReceivedEvent struct {
	Header EventHeader
	Image  []byte
	Audio  []byte
}

func (cl *Client) send(f Frame) error {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, f); err != nil {
		return err
	}
	return cl.c.WritePacket(buf.Bytes())
}

func (cl *Client) read() (Frame, error) {
	pkt, err := cl.c.ReadPacket()
	if err != nil {
		return Frame{}, err
	}
	f, ok := DecodeFrame(pkt)
	if !ok {
		return Frame{}, errcode.ProtocolViolation
	}
	return f, nil
}

// Status queries stored/unsent counts.
func (cl *Client) Status() (stored, unsent int, lastID uint32, err error) {
	if err = cl.send(Frame{Type: CmdStatus}); err != nil {
		return
	}
	for {
		var f Frame
		if f, err = cl.read(); err != nil {
			return
		}
		if f.Type != RspStatus {
			continue // stream frames from an auto-send burst may interleave
		}
		var ok bool
		stored, unsent, lastID, ok = DecodeStatus(f.Payload)
		if !ok {
			err = errcode.ProtocolViolation
		}
		return
	}
}

// Clear asks the device to drop its store.
func (cl *Client) Clear() error {
	if err := cl.send(Frame{Type: CmdClearStore}); err != nil {
		return err
	}
	f, err := cl.read()
	if err != nil {
		return err
	}
	if f.Type != RspStatus {
		return errcode.ProtocolViolation
	}
	return nil
}

// PullAll requests every unsent event and collects the stream until Done.
func (cl *Client) PullAll() ([]ReceivedEvent, error) {
	if err := cl.send(Frame{Type: CmdRequestAll}); err != nil {
		return nil, err
	}
	return cl.collect()
}

// PullSince requests events with id > after.
func (cl *Client) PullSince(after uint32) ([]ReceivedEvent, error) {
	payload := binary.BigEndian.AppendUint32(nil, after)
	if err := cl.send(Frame{Type: CmdRequestSince, Payload: payload}); err != nil {
		return nil, err
	}
	return cl.collect()
}

// collect acknowledges each frame and reassembles events until RspDone.
func (cl *Client) collect() ([]ReceivedEvent, error) {
	var events []ReceivedEvent
	var cur *ReceivedEvent
	var body []byte

	// finish closes out the current event. A reassembly cut short (the device
	// restarted the stream, eg. a pull overlapping auto-send) is dropped, not
	// emitted truncated; the complete copy follows in the restarted stream.
	finish := func() {
		if cur == nil {
			return
		}
		if uint32(len(body)) >= cur.Header.TotalLen {
			n := int(cur.Header.Image.Size)
			cur.Image = body[:n]
			cur.Audio = body[n:]
			events = append(events, *cur)
		}
		cur, body = nil, nil
	}

	for {
		f, err := cl.read()
		if err != nil {
			return events, err
		}
		switch f.Type {
		case EvtHeader:
			h, ok := DecodeHeader(f.Payload)
			if !ok {
				return events, errcode.ProtocolViolation
			}
			finish()
			cur = &ReceivedEvent{Header: h}
			if err := cl.send(Frame{Type: CmdAck, Seq: f.Seq}); err != nil {
				return events, err
			}
			if h.TotalLen == 0 {
				finish()
			}
		case EvtChunk:
			if cur == nil {
				continue // stale chunk from a superseded stream
			}
			body = append(body, f.Payload...)
			if err := cl.send(Frame{Type: CmdAck, Seq: f.Seq}); err != nil {
				return events, err
			}
			if uint32(len(body)) >= cur.Header.TotalLen {
				finish()
			}
		case RspDone:
			finish()
			return events, nil
		case RspStatus:
			// Ignore interleaved status replies.
		default:
			return events, errcode.ProtocolViolation
		}
	}
}
