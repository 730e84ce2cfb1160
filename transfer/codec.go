// transfer/codec.go
package transfer

import (
	"encoding/binary"
	"io"

	"fawtrap-go/errcode"
	"fawtrap-go/types"
)

// Wire format: every packet is one frame, type(1) | seq(2 BE) | len(2 BE) |
// payload. A frame never exceeds the negotiated MTU, so chunk payloads are
// capped at MTU minus the frame overhead.

const (
	frameOverhead = 5
	maxPayload    = 0xFFFF

	// MinMTU leaves room for the fixed event header in a single frame.
	MinMTU = 64
)

// Peer → device commands.
const (
	CmdRequestAll   byte = 0x01
	CmdRequestSince byte = 0x02 // payload: u32 event id
	CmdClearStore   byte = 0x03
	CmdStatus       byte = 0x04
	CmdAck          byte = 0x05 // seq field carries the acknowledged sequence
)

// Device → peer frames.
const (
	RspStatus      byte = 0x11 // payload: u16 stored | u16 unsent | u32 last id
	RspUnsupported byte = 0x12 // payload: offending type byte
	RspDone        byte = 0x13 // stream finished, session back to idle
	EvtHeader      byte = 0x20 // payload: fixed event header block
	EvtChunk       byte = 0x21 // payload: artifact byte stream slice
)

type Frame struct {
	Type    byte
	Seq     uint16
	Payload []byte
}

// EncodeFrame appends the wire form of f to dst.
func EncodeFrame(dst []byte, f Frame) ([]byte, error) {
	if len(f.Payload) > maxPayload {
		return dst, &errcode.E{C: errcode.InvalidParams, Op: "transfer.encode", Msg: "frame too large"}
	}
	dst = append(dst, f.Type)
	dst = binary.BigEndian.AppendUint16(dst, f.Seq)
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(f.Payload)))
	return append(dst, f.Payload...), nil
}

// ReadFrame decodes one frame from r (packet-per-frame transports hand a
// full packet; stream transports rely on the length prefix).
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [frameOverhead]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	f := Frame{
		Type: hdr[0],
		Seq:  binary.BigEndian.Uint16(hdr[1:3]),
	}
	n := int(binary.BigEndian.Uint16(hdr[3:5]))
	if n > 0 {
		f.Payload = make([]byte, n)
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return Frame{}, err
		}
	}
	return f, nil
}

// WriteFrame writes the wire form of f to w.
func WriteFrame(w io.Writer, f Frame) error {
	buf, err := EncodeFrame(make([]byte, 0, frameOverhead+len(f.Payload)), f)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// DecodeFrame parses a single whole-packet frame.
func DecodeFrame(pkt []byte) (Frame, bool) {
	if len(pkt) < frameOverhead {
		return Frame{}, false
	}
	n := int(binary.BigEndian.Uint16(pkt[3:5]))
	if len(pkt) != frameOverhead+n {
		return Frame{}, false
	}
	f := Frame{
		Type: pkt[0],
		Seq:  binary.BigEndian.Uint16(pkt[1:3]),
	}
	if n > 0 {
		f.Payload = append([]byte(nil), pkt[frameOverhead:]...)
	}
	return f, true
}

// -----------------------------------------------------------------------------
// Event header block
// -----------------------------------------------------------------------------

// headerLen is the fixed size of the event header payload:
// id(4) total(4) kinds(1) flags(1) ts(8) reading(16) image meta(9) audio meta(12).
const headerLen = 55

const (
	kindBitImage = 1 << 0
	kindBitAudio = 1 << 1
)

// EventHeader is the self-describing lead frame for one event: identity,
// total artifact byte length and every non-artifact field.
type EventHeader struct {
	ID       uint32
	TotalLen uint32
	Flags    types.EventFlags
	TS       int64
	Trigger  types.Reading
	Image    types.ArtifactRef // Slot meaningless on the wire; Size + meta used
	Audio    types.ArtifactRef
}

func encodeHeader(h EventHeader) []byte {
	b := make([]byte, 0, headerLen)
	b = binary.BigEndian.AppendUint32(b, h.ID)
	b = binary.BigEndian.AppendUint32(b, h.TotalLen)

	var kinds byte
	if h.Image.Kind == types.ArtifactImage {
		kinds |= kindBitImage
	}
	if h.Audio.Kind == types.ArtifactAudio {
		kinds |= kindBitAudio
	}
	b = append(b, kinds, byte(h.Flags))
	b = binary.BigEndian.AppendUint64(b, uint64(h.TS))

	// Trigger reading.
	b = binary.BigEndian.AppendUint64(b, uint64(h.Trigger.TS))
	b = binary.BigEndian.AppendUint16(b, uint16(h.Trigger.AirTempDeciC))
	b = append(b, h.Trigger.AirHumidityPct)
	b = binary.BigEndian.AppendUint16(b, uint16(h.Trigger.SoilTempDeciC))
	b = append(b, h.Trigger.SoilMoisturePct, h.Trigger.LightPct, boolByte(h.Trigger.Stale))

	// Image meta.
	b = binary.BigEndian.AppendUint16(b, h.Image.Image.Width)
	b = binary.BigEndian.AppendUint16(b, h.Image.Image.Height)
	b = append(b, h.Image.Image.Quality)
	b = binary.BigEndian.AppendUint32(b, h.Image.Size)

	// Audio meta.
	b = binary.BigEndian.AppendUint32(b, h.Audio.Audio.SampleRate)
	b = binary.BigEndian.AppendUint32(b, h.Audio.Audio.DurationMS)
	b = binary.BigEndian.AppendUint32(b, h.Audio.Size)
	return b
}

// DecodeHeader parses an EvtHeader payload (peer side and tests).
func DecodeHeader(b []byte) (EventHeader, bool) {
	if len(b) != headerLen {
		return EventHeader{}, false
	}
	var h EventHeader
	h.ID = binary.BigEndian.Uint32(b[0:4])
	h.TotalLen = binary.BigEndian.Uint32(b[4:8])
	kinds := b[8]
	h.Flags = types.EventFlags(b[9])
	h.TS = int64(binary.BigEndian.Uint64(b[10:18]))

	h.Trigger.TS = int64(binary.BigEndian.Uint64(b[18:26]))
	h.Trigger.AirTempDeciC = int16(binary.BigEndian.Uint16(b[26:28]))
	h.Trigger.AirHumidityPct = b[28]
	h.Trigger.SoilTempDeciC = int16(binary.BigEndian.Uint16(b[29:31]))
	h.Trigger.SoilMoisturePct = b[31]
	h.Trigger.LightPct = b[32]
	h.Trigger.Stale = b[33] != 0

	h.Image.Image.Width = binary.BigEndian.Uint16(b[34:36])
	h.Image.Image.Height = binary.BigEndian.Uint16(b[36:38])
	h.Image.Image.Quality = b[38]
	h.Image.Size = binary.BigEndian.Uint32(b[39:43])
	if kinds&kindBitImage != 0 {
		h.Image.Kind = types.ArtifactImage
	}

	h.Audio.Audio.SampleRate = binary.BigEndian.Uint32(b[43:47])
	h.Audio.Audio.DurationMS = binary.BigEndian.Uint32(b[47:51])
	h.Audio.Size = binary.BigEndian.Uint32(b[51:55])
	if kinds&kindBitAudio != 0 {
		h.Audio.Kind = types.ArtifactAudio
	}
	return h, true
}

func encodeStatus(stored, unsent int, lastID uint32) []byte {
	b := make([]byte, 0, 8)
	b = binary.BigEndian.AppendUint16(b, uint16(stored))
	b = binary.BigEndian.AppendUint16(b, uint16(unsent))
	return binary.BigEndian.AppendUint32(b, lastID)
}

// DecodeStatus parses an RspStatus payload.
func DecodeStatus(b []byte) (stored, unsent int, lastID uint32, ok bool) {
	if len(b) != 8 {
		return 0, 0, 0, false
	}
	return int(binary.BigEndian.Uint16(b[0:2])),
		int(binary.BigEndian.Uint16(b[2:4])),
		binary.BigEndian.Uint32(b[4:8]), true
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
