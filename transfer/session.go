// transfer/session.go
package transfer

import (
	"encoding/binary"
	"time"

	"fawtrap-go/store"
	"fawtrap-go/types"
)

// SessionState per connected peer.
type SessionState uint8

const (
	StateIdle SessionState = iota
	StateStreaming
	StateAwaitingAck
)

// Session drives chunked event delivery to one connected peer. Every outbound
// frame (header or chunk) must be acknowledged before the next is sent; an
// ack timeout retransmits the same frame until the retry bound is consumed,
// after which the event is abandoned (skip-and-continue) and its sent flag
// stays false. Control commands are honoured in any state.
type Session struct {
	st         *store.Store
	mtu        int
	ackTimeout time.Duration
	maxRetries int

	state    SessionState
	queue    []uint32 // event ids still to stream (ascending)
	cur      *outEvent
	seq      uint16 // next chunk sequence number
	retries  int    // ack timeouts consumed for the in-flight frame
	deadline time.Time
	inflight Frame // frame awaiting ack, kept for retransmission

	failures     int  // abandoned events (diagnostic)
	announceDone bool // emit RspDone when the queue drains
}

// outEvent is the event currently on the wire.
type outEvent struct {
	id         uint32
	header     []byte
	payload    []byte // image bytes then audio bytes
	off        int
	headerAckd bool
}

func NewSession(st *store.Store, cfg types.LinkConfig) *Session {
	mtu := cfg.MTU
	if mtu < MinMTU {
		mtu = MinMTU
	}
	return &Session{
		st:         st,
		mtu:        mtu,
		ackTimeout: time.Duration(cfg.AckTimeoutMS) * time.Millisecond,
		maxRetries: cfg.MaxRetries,
	}
}

func (s *Session) State() SessionState { return s.state }

// Failures reports events abandoned after exhausting retries.
func (s *Session) Failures() int { return s.failures }

// StartAll queues every unsent event and enters Streaming.
func (s *Session) StartAll() {
	s.queue = s.st.UnsentIDs()
	s.resetStream()
}

// StartSince queues every event with id > after, sent or not.
func (s *Session) StartSince(after uint32) {
	s.queue = s.st.SinceIDs(after)
	s.resetStream()
}

func (s *Session) resetStream() {
	s.cur = nil
	s.retries = 0
	s.announceDone = true
	s.state = StateStreaming
}

// Handle processes one inbound frame and returns any immediate responses.
// After Handle the engine should drain Step for outbound stream frames.
func (s *Session) Handle(f Frame, now time.Time) []Frame {
	switch f.Type {
	case CmdAck:
		s.onAck(f.Seq)
		return nil
	case CmdRequestAll:
		s.StartAll()
		return nil
	case CmdRequestSince:
		if len(f.Payload) != 4 {
			return []Frame{{Type: RspUnsupported, Payload: []byte{f.Type}}}
		}
		s.StartSince(binary.BigEndian.Uint32(f.Payload))
		return nil
	case CmdClearStore:
		// Maintenance: drop everything, abort any in-progress stream.
		s.st.Clear()
		s.queue = nil
		s.cur = nil
		s.state = StateIdle
		return []Frame{s.statusFrame()}
	case CmdStatus:
		return []Frame{s.statusFrame()}
	default:
		// Never silently dropped.
		return []Frame{{Type: RspUnsupported, Payload: []byte{f.Type}}}
	}
}

// Step advances the send side: emits the next frame when Streaming, or
// handles an ack timeout when AwaitingAck. Returns frames to transmit.
func (s *Session) Step(now time.Time) []Frame {
	switch s.state {
	case StateAwaitingAck:
		if now.Before(s.deadline) {
			return nil
		}
		s.retries++
		if s.retries >= s.maxRetries {
			// Retry bound consumed: abandon this event, sent flag stays false.
			s.failures++
			s.cur = nil
			s.retries = 0
			s.state = StateStreaming
			return s.Step(now)
		}
		s.deadline = now.Add(s.ackTimeout)
		return []Frame{s.inflight}

	case StateStreaming:
		f, ok := s.nextFrame(now)
		if !ok {
			s.state = StateIdle
			if s.announceDone {
				s.announceDone = false
				// Done is advisory; it is not acknowledged.
				return []Frame{{Type: RspDone}}
			}
			return nil
		}
		return []Frame{f}
	}
	return nil
}

// Deadline reports the pending ack deadline (engine timer arming).
func (s *Session) Deadline() (time.Time, bool) {
	if s.state != StateAwaitingAck {
		return time.Time{}, false
	}
	return s.deadline, true
}

func (s *Session) nextFrame(now time.Time) (Frame, bool) {
	for s.cur == nil {
		if len(s.queue) == 0 {
			return Frame{}, false
		}
		id := s.queue[0]
		s.queue = s.queue[1:]
		ev, ok := s.st.Get(id)
		if !ok {
			continue // evicted since the scan; skip
		}
		s.cur = s.buildOutEvent(ev)
	}

	var f Frame
	if !s.cur.headerAckd {
		f = Frame{Type: EvtHeader, Seq: s.seq, Payload: s.cur.header}
	} else {
		chunk := s.mtu - frameOverhead
		rest := len(s.cur.payload) - s.cur.off
		if chunk > rest {
			chunk = rest
		}
		f = Frame{Type: EvtChunk, Seq: s.seq, Payload: s.cur.payload[s.cur.off : s.cur.off+chunk]}
	}
	s.inflight = f
	s.retries = 0
	s.deadline = now.Add(s.ackTimeout)
	s.state = StateAwaitingAck
	return f, true
}

func (s *Session) onAck(seq uint16) {
	if s.state != StateAwaitingAck || seq != s.inflight.Seq {
		return // stale or duplicate ack
	}
	s.seq++
	s.retries = 0
	if !s.cur.headerAckd {
		s.cur.headerAckd = true
	} else {
		s.cur.off += len(s.inflight.Payload)
	}
	if s.cur.headerAckd && s.cur.off >= len(s.cur.payload) {
		// Fully delivered.
		s.st.MarkSent(s.cur.id)
		s.cur = nil
	}
	s.state = StateStreaming
}

// buildOutEvent snapshots the event's artifact bytes so mid-stream eviction
// cannot pull the payload out from under the wire.
func (s *Session) buildOutEvent(ev types.Event) *outEvent {
	arena := s.st.Arena()
	var payload []byte
	if ev.Image.Kind == types.ArtifactImage && arena != nil {
		payload = append(payload, arena.Bytes(ev.Image.Slot)...)
	}
	if ev.Audio.Kind == types.ArtifactAudio && arena != nil {
		payload = append(payload, arena.Bytes(ev.Audio.Slot)...)
	}
	hdr := encodeHeader(EventHeader{
		ID:       ev.ID,
		TotalLen: uint32(len(payload)),
		Flags:    ev.Flags,
		TS:       ev.TS,
		Trigger:  ev.Trigger,
		Image:    ev.Image,
		Audio:    ev.Audio,
	})
	return &outEvent{id: ev.ID, header: hdr, payload: payload}
}

func (s *Session) statusFrame() Frame {
	return Frame{
		Type:    RspStatus,
		Payload: encodeStatus(s.st.Len(), s.st.Unsent(), s.st.LastID()),
	}
}
